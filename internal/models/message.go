package models

type MessageKind string

const (
	KindBalance       MessageKind = "balance"
	KindPositions     MessageKind = "positions"
	KindPendingOrders MessageKind = "pending_orders"
	KindError         MessageKind = "error"
	KindPong          MessageKind = "pong"
)

// Message: то, что уходит наблюдателям. Seq = 0 для сообщений вне кеша (error, pong).
type Message struct {
	Type      MessageKind `json:"type"`
	AccountID string      `json:"account_id,omitempty"`
	Data      any         `json:"data,omitempty"`
	Message   string      `json:"message,omitempty"`
	Seq       uint64      `json:"seq,omitempty"`
	Timestamp string      `json:"timestamp,omitempty"`
}
