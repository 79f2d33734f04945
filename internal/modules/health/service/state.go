package service

import (
	"sync/atomic"
	"time"
)

type State struct {
	ready     atomic.Bool
	startedAt time.Time

	cycles        atomic.Int64
	lastCycleUnix atomic.Int64 // unix seconds
	lastFailed    atomic.Int64
	lastSymbols   atomic.Int64

	streamUp func() bool
}

func NewState() *State {
	s := &State{startedAt: time.Now()}
	s.ready.Store(false)
	return s
}

func (s *State) Ready() bool { return s.ready.Load() }

// CycleDone marks the service ready after the first finished cycle.
func (s *State) CycleDone(at time.Time, symbols, failed int) {
	s.cycles.Add(1)
	s.lastCycleUnix.Store(at.Unix())
	s.lastSymbols.Store(int64(symbols))
	s.lastFailed.Store(int64(failed))
	s.ready.Store(true)
}

func (s *State) Cycles() int64      { return s.cycles.Load() }
func (s *State) LastFailed() int64  { return s.lastFailed.Load() }
func (s *State) LastSymbols() int64 { return s.lastSymbols.Load() }

func (s *State) LastCycle() time.Time {
	u := s.lastCycleUnix.Load()
	if u == 0 {
		return time.Time{}
	}
	return time.Unix(u, 0)
}

// SetStreamCheck plugs in the price stream's connection status.
func (s *State) SetStreamCheck(fn func() bool) { s.streamUp = fn }

// StreamConnected is nil when no stream is configured.
func (s *State) StreamConnected() *bool {
	if s.streamUp == nil {
		return nil
	}
	v := s.streamUp()
	return &v
}

func (s *State) Uptime() time.Duration { return time.Since(s.startedAt) }
