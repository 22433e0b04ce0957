package state

import (
	abci "github.com/cometbft/cometbft/abci/types"
	cmtlog "github.com/cometbft/cometbft/libs/log"
)

// env is shared by the components of one State: the block clock and the
// event log of the transaction being applied.
type env struct {
	logger cmtlog.Logger
	now    uint64
	events []abci.Event
}

func newEnv(logger cmtlog.Logger) *env {
	return &env{logger: logger}
}

func (e *env) clone() *env {
	n := &env{
		logger: e.logger,
		now:    e.now,
	}
	if len(e.events) > 0 {
		n.events = make([]abci.Event, len(e.events))
		copy(n.events, e.events)
	}
	return n
}

func (e *env) emit(ev abci.Event) {
	e.events = append(e.events, ev)
}

func (e *env) take() []abci.Event {
	evs := e.events
	e.events = nil
	return evs
}

type guard struct {
	entered bool
}

func (g *guard) enter() (func(), error) {
	if g.entered {
		return nil, ErrReentrantCall
	}
	g.entered = true
	return func() { g.entered = false }, nil
}
