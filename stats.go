package main

import (
	"sync"
	"time"
)

// Stats counts what the event loop has seen. The loop writes; the status
// server reads snapshots from another goroutine.
type Stats struct {
	mu             sync.Mutex
	started        time.Time
	events         map[string]uint64
	handlerErrors  uint64
	protocolErrors uint64
	lastError      string
	lastErrorAt    time.Time
}

// StatsSnapshot is a copy of Stats safe to hand out.
type StatsSnapshot struct {
	Uptime         string            `json:"uptime"`
	Events         map[string]uint64 `json:"events"`
	Dispatched     uint64            `json:"dispatched"`
	HandlerErrors  uint64            `json:"handler_errors"`
	ProtocolErrors uint64            `json:"protocol_errors"`
	LastError      string            `json:"last_error,omitempty"`
	LastErrorAt    *time.Time        `json:"last_error_at,omitempty"`
}

func NewStats() *Stats {
	return &Stats{
		started: time.Now(),
		events:  map[string]uint64{},
	}
}

func (s *Stats) recordEvent(kind string, err error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.events[kind]++
	if err != nil {
		s.handlerErrors++
		s.setLastError(err)
	}
}

func (s *Stats) recordProtocolError(err error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.protocolErrors++
	s.setLastError(err)
}

func (s *Stats) setLastError(err error) {
	s.lastError = err.Error()
	s.lastErrorAt = time.Now()
}

func (s *Stats) Snapshot() StatsSnapshot {
	s.mu.Lock()
	defer s.mu.Unlock()
	snap := StatsSnapshot{
		Uptime:         time.Since(s.started).Round(time.Second).String(),
		Events:         make(map[string]uint64, len(s.events)),
		HandlerErrors:  s.handlerErrors,
		ProtocolErrors: s.protocolErrors,
		LastError:      s.lastError,
	}
	for kind, n := range s.events {
		snap.Events[kind] = n
		snap.Dispatched += n
	}
	if !s.lastErrorAt.IsZero() {
		at := s.lastErrorAt
		snap.LastErrorAt = &at
	}
	return snap
}
