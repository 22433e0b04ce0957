package handler

import (
	"fmt"

	"github.com/calehh/khrt-app/state"
	"github.com/calehh/khrt-app/tx"
	"github.com/calehh/khrt-app/types"
	cmtlog "github.com/cometbft/cometbft/libs/log"
	"github.com/ethereum/go-ethereum/common"
)

var _ state.Dispatcher = (*Router)(nil)

// Router maps tx types to the handler of the owning module. It also runs the
// calls of council Execution proposals.
type Router struct {
	logger   cmtlog.Logger
	handlers map[tx.KHRTTxType]TxHandler
}

func NewRouter(logger cmtlog.Logger) *Router {
	r := &Router{
		logger:   logger.With("module", "router"),
		handlers: make(map[tx.KHRTTxType]TxHandler),
	}
	byModule := map[string]TxHandler{
		types.AuthorityModule:  NewAuthorityTxHandler(logger),
		types.CouncilModule:    NewCouncilTxHandler(logger),
		types.TokenModule:      NewTokenTxHandler(logger),
		types.CollateralModule: NewCollateralTxHandler(logger),
		types.BankModule:       NewBankTxHandler(logger),
	}
	for _, tp := range tx.TxTypes() {
		if h, ok := byModule[tp.Module()]; ok {
			r.handlers[tp] = h
		}
	}
	return r
}

func (r *Router) Handler(tp tx.KHRTTxType) (TxHandler, bool) {
	h, ok := r.handlers[tp]
	return h, ok
}

// Dispatch decodes calldata as a tx.Call and applies it as caller. The call
// type must belong to the module at target.
func (r *Router) Dispatch(st *state.State, caller, target common.Address, calldata []byte) error {
	tp, body, err := tx.UnmarshalCall(calldata)
	if err != nil {
		return err
	}
	owner, ok := tp.Target()
	if !ok || owner != target {
		return fmt.Errorf("%w: %v does not handle %v", state.ErrUnknownTarget, target, tp)
	}
	h, ok := r.handlers[tp]
	if !ok {
		return fmt.Errorf("%w: no handler for %v", state.ErrUnknownTarget, tp)
	}
	r.logger.Info("dispatch call", "type", tp, "target", target, "caller", caller)
	_, err = h.Apply(st, caller, tp, body)
	return err
}
