package service

import (
	"sync/atomic"
	"time"
)

// ConnectorStats: сколько коннекторов в LIVE из общего числа.
type ConnectorStats interface {
	LiveCount() int
	Total() int
}

type ObserverCounter interface {
	Count() int
}

type TickReporter interface {
	LastTick() time.Time
}

type State struct {
	ready     atomic.Bool
	startedAt time.Time

	connectors ConnectorStats
	observers  ObserverCounter
	sampler    TickReporter
}

func NewState(connectors ConnectorStats, observers ObserverCounter, sampler TickReporter) *State {
	s := &State{
		startedAt:  time.Now(),
		connectors: connectors,
		observers:  observers,
		sampler:    sampler,
	}
	s.ready.Store(false)
	return s
}

func (s *State) SetReady(v bool) { s.ready.Store(v) }
func (s *State) Ready() bool     { return s.ready.Load() }

func (s *State) Uptime() time.Duration { return time.Since(s.startedAt) }

type Report struct {
	Ready            bool  `json:"ready"`
	ConnectorsLive   int   `json:"connectorsLive"`
	ConnectorsTotal  int   `json:"connectorsTotal"`
	Observers        int   `json:"observers"`
	UptimeSec        int64 `json:"uptimeSec"`
	LastSnapshotUnix int64 `json:"lastSnapshotUnix"`
}

// Report: снимок для /healthz; источники необязательны.
func (s *State) Report() Report {
	r := Report{
		Ready:     s.Ready(),
		UptimeSec: int64(s.Uptime().Seconds()),
	}
	if s.connectors != nil {
		r.ConnectorsLive = s.connectors.LiveCount()
		r.ConnectorsTotal = s.connectors.Total()
	}
	if s.observers != nil {
		r.Observers = s.observers.Count()
	}
	if s.sampler != nil {
		if t := s.sampler.LastTick(); !t.IsZero() {
			r.LastSnapshotUnix = t.Unix()
		}
	}
	return r
}
