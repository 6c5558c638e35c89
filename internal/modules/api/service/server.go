package service

import (
	"context"
	"net/http"
	"time"

	"portfolio_monitor/internal/models"
	broadcast "portfolio_monitor/internal/modules/broadcast/service"

	"github.com/gorilla/mux"
	"github.com/gorilla/websocket"
)

type StateReader interface {
	Snapshot(accountID string) (models.AccountSnapshot, bool)
}

type SessionReader interface {
	Sessions() map[string]models.ConnectionSession
}

// Exchange: REST-запросы к бирже по конкретному аккаунту.
type Exchange interface {
	FetchBalance(ctx context.Context, accountID string) (models.Balance, error)
	FetchPositions(ctx context.Context, accountID string) ([]models.PositionEntry, error)
	FetchPendingOrders(ctx context.Context, accountID string) ([]models.PendingOrder, error)
	CancelOrder(ctx context.Context, accountID, instID, ordID string) error
}

type SnapshotLister interface {
	ListSnapshots(ctx context.Context, accountID string, from, to time.Time, withCurrencies bool) ([]models.SnapshotRecord, error)
}

type Deps struct {
	Accounts  []models.AccountIdentity
	State     StateReader
	Sessions  SessionReader
	Exchange  Exchange
	Snapshots SnapshotLister
	Hub       *broadcast.Hub
	// QueueSize: исходящая очередь каждого /ws наблюдателя.
	QueueSize int
}

type Server struct {
	accounts []models.AccountIdentity
	byID     map[string]models.AccountIdentity

	state     StateReader
	sessions  SessionReader
	exchange  Exchange
	snapshots SnapshotLister
	hub       *broadcast.Hub
	queueSize int

	upgrader websocket.Upgrader
	now      func() time.Time
}

func NewServer(d Deps) *Server {
	s := &Server{
		accounts:  d.Accounts,
		byID:      make(map[string]models.AccountIdentity, len(d.Accounts)),
		state:     d.State,
		sessions:  d.Sessions,
		exchange:  d.Exchange,
		snapshots: d.Snapshots,
		hub:       d.Hub,
		queueSize: d.QueueSize,
		upgrader: websocket.Upgrader{
			CheckOrigin: func(_ *http.Request) bool { return true },
		},
		now: time.Now,
	}
	for _, a := range d.Accounts {
		s.byID[a.ID] = a
	}
	return s
}

func (s *Server) Router() *mux.Router {
	router := mux.NewRouter()

	api := router.PathPrefix("/api").Subrouter()
	api.HandleFunc("/accounts", s.handleAccounts).Methods(http.MethodGet)
	api.HandleFunc("/summary", s.handleSummary).Methods(http.MethodGet)
	api.HandleFunc("/accounts/{id}/state", s.handleState).Methods(http.MethodGet)
	api.HandleFunc("/accounts/{id}/balance", s.handleBalance).Methods(http.MethodGet)
	api.HandleFunc("/accounts/{id}/positions", s.handlePositions).Methods(http.MethodGet)
	api.HandleFunc("/accounts/{id}/pending-orders", s.handlePendingOrders).Methods(http.MethodGet)
	api.HandleFunc("/accounts/{id}/snapshots", s.handleSnapshots).Methods(http.MethodGet)
	api.HandleFunc("/accounts/{id}/orders/{instId}/{ordId}/cancel", s.handleCancel).Methods(http.MethodPost)

	router.HandleFunc("/ws", s.handleWS)
	router.Use(logRequests)
	return router
}
