package service

import (
	"errors"
	"net/http"
	"strconv"
	"strings"
	"time"

	"portfolio_monitor/internal/models"
	broadcast "portfolio_monitor/internal/modules/broadcast/service"
	"portfolio_monitor/pkg/logger"

	"github.com/bytedance/sonic"
	"github.com/gorilla/mux"
)

type accountInfo struct {
	models.AccountIdentity
	Connection *models.ConnectionSession `json:"connection,omitempty"`
}

type accountSummary struct {
	Account   models.AccountIdentity `json:"account"`
	Balance   *models.Balance        `json:"balance"`
	Positions []models.PositionEntry `json:"positions"`
	Orders    []models.PendingOrder  `json:"pending_orders"`
	Seq       uint64                 `json:"seq"`
}

func (s *Server) handleAccounts(w http.ResponseWriter, _ *http.Request) {
	var sessions map[string]models.ConnectionSession
	if s.sessions != nil {
		sessions = s.sessions.Sessions()
	}
	out := make([]accountInfo, 0, len(s.accounts))
	for _, a := range s.accounts {
		info := accountInfo{AccountIdentity: a}
		if sess, ok := sessions[a.ID]; ok {
			info.Connection = &sess
		}
		out = append(out, info)
	}
	writeJSON(w, http.StatusOK, out)
}

// handleSummary: сводка по всем аккаунтам из кеша, без похода на биржу.
func (s *Server) handleSummary(w http.ResponseWriter, _ *http.Request) {
	out := make([]accountSummary, 0, len(s.accounts))
	for _, a := range s.accounts {
		snap, _ := s.state.Snapshot(a.ID)
		out = append(out, accountSummary{
			Account:   a,
			Balance:   snap.Balance,
			Positions: nonNil(snap.Positions),
			Orders:    nonNil(snap.PendingOrders),
			Seq:       snap.Seq,
		})
	}
	writeJSON(w, http.StatusOK, out)
}

func (s *Server) handleState(w http.ResponseWriter, r *http.Request) {
	id, ok := s.account(w, r)
	if !ok {
		return
	}
	snap, _ := s.state.Snapshot(id)
	snap.AccountID = id
	snap.Positions = nonNil(snap.Positions)
	snap.PendingOrders = nonNil(snap.PendingOrders)
	writeJSON(w, http.StatusOK, snap)
}

func (s *Server) handleBalance(w http.ResponseWriter, r *http.Request) {
	id, ok := s.account(w, r)
	if !ok {
		return
	}
	bal, err := s.exchange.FetchBalance(r.Context(), id)
	if err != nil {
		writeUpstreamError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, bal)
}

func (s *Server) handlePositions(w http.ResponseWriter, r *http.Request) {
	id, ok := s.account(w, r)
	if !ok {
		return
	}
	pos, err := s.exchange.FetchPositions(r.Context(), id)
	if err != nil {
		writeUpstreamError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, nonNil(pos))
}

func (s *Server) handlePendingOrders(w http.ResponseWriter, r *http.Request) {
	id, ok := s.account(w, r)
	if !ok {
		return
	}
	orders, err := s.exchange.FetchPendingOrders(r.Context(), id)
	if err != nil {
		writeUpstreamError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, nonNil(orders))
}

// handleSnapshots: ?start&end - unix ms или RFC3339, обе границы необязательны; currencies=1 - с разбивкой по валютам.
func (s *Server) handleSnapshots(w http.ResponseWriter, r *http.Request) {
	id, ok := s.account(w, r)
	if !ok {
		return
	}
	q := r.URL.Query()
	from, err := parseTime(q.Get("start"))
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid start: "+err.Error())
		return
	}
	to, err := parseTime(q.Get("end"))
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid end: "+err.Error())
		return
	}
	if !from.IsZero() && !to.IsZero() && to.Before(from) {
		writeError(w, http.StatusBadRequest, "end is before start")
		return
	}
	withCcy := q.Get("currencies") == "1" || q.Get("currencies") == "true"

	recs, err := s.snapshots.ListSnapshots(r.Context(), id, from, to, withCcy)
	if err != nil {
		logger.Error("[HTTP] list snapshots account=%s: %v", id, err)
		writeError(w, http.StatusInternalServerError, "snapshot query failed")
		return
	}
	writeJSON(w, http.StatusOK, nonNil(recs))
}

func (s *Server) handleCancel(w http.ResponseWriter, r *http.Request) {
	id, ok := s.account(w, r)
	if !ok {
		return
	}
	vars := mux.Vars(r)
	instID, ordID := vars["instId"], vars["ordId"]

	if err := s.exchange.CancelOrder(r.Context(), id, instID, ordID); err != nil {
		logger.Warn("[HTTP] cancel account=%s inst=%s ord=%s: %v", id, instID, ordID, err)
		writeUpstreamError(w, err)
		return
	}
	logger.Info("[HTTP] cancel account=%s inst=%s ord=%s: ok", id, instID, ordID)
	writeJSON(w, http.StatusOK, map[string]any{"success": true, "ord_id": ordID})
}

// handleWS поднимает наблюдателя хаба; соединение живёт в горутине запроса до разрыва.
func (s *Server) handleWS(w http.ResponseWriter, r *http.Request) {
	conn, err := s.upgrader.Upgrade(w, r, nil)
	if err != nil {
		logger.Warn("[HTTP] ws upgrade: %v", err)
		return
	}
	obs := broadcast.NewWSObserver(conn, s.queueSize)
	logger.Info("[HTTP] ws observer %s connected from %s", obs.ID(), r.RemoteAddr)
	obs.Serve(s.hub)
	logger.Info("[HTTP] ws observer %s gone", obs.ID())
}

func (s *Server) account(w http.ResponseWriter, r *http.Request) (string, bool) {
	id := mux.Vars(r)["id"]
	if _, ok := s.byID[id]; !ok {
		writeError(w, http.StatusNotFound, "account not found")
		return "", false
	}
	return id, true
}

func parseTime(v string) (time.Time, error) {
	v = strings.TrimSpace(v)
	if v == "" {
		return time.Time{}, nil
	}
	if ms, err := strconv.ParseInt(v, 10, 64); err == nil {
		return time.UnixMilli(ms).UTC(), nil
	}
	t, err := time.Parse(time.RFC3339, v)
	if err != nil {
		return time.Time{}, err
	}
	return t.UTC(), nil
}

func nonNil[T any](in []T) []T {
	if in == nil {
		return []T{}
	}
	return in
}

func writeUpstreamError(w http.ResponseWriter, err error) {
	if errors.Is(err, models.ErrAccountNotFound) {
		writeError(w, http.StatusNotFound, err.Error())
		return
	}
	writeError(w, http.StatusBadGateway, err.Error())
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]string{"error": msg})
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	data, err := sonic.Marshal(v)
	if err != nil {
		logger.Error("[HTTP] marshal response: %v", err)
		w.WriteHeader(http.StatusInternalServerError)
		return
	}
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_, _ = w.Write(data)
}

func logRequests(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		next.ServeHTTP(w, r)
		logger.Debug("[HTTP] %s %s %s", r.Method, r.URL.Path, time.Since(start))
	})
}
