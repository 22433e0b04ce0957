package handler

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/calehh/khrt-app/state"
	"github.com/calehh/khrt-app/tx"
	"github.com/calehh/khrt-app/types"
	abcitypes "github.com/cometbft/cometbft/abci/types"
	cmtlog "github.com/cometbft/cometbft/libs/log"
	"github.com/ethereum/go-ethereum/common"
	"github.com/holiman/uint256"
)

type TxHandler interface {
	Check(ctx context.Context, st *state.State, btx *tx.KHRTTx) (res *abcitypes.ResponseCheckTx, err error)
	Process(ctx context.Context, st *state.State, btx *tx.KHRTTx) (res *abcitypes.ExecTxResult, err error)
	// Apply runs one call against st as from. The router uses it for
	// council Execution proposals.
	Apply(st *state.State, from common.Address, tp tx.KHRTTxType, body any) (data any, err error)
}

type applyFunc func(st *state.State, from common.Address, tp tx.KHRTTxType, body any) (any, error)

// baseHandler gives every module handler the same Check and Process on top
// of its apply function.
type baseHandler struct {
	logger cmtlog.Logger
	apply  applyFunc
}

func (h *baseHandler) Check(ctx context.Context, st *state.State, btx *tx.KHRTTx) (res *abcitypes.ResponseCheckTx, err error) {
	res = &abcitypes.ResponseCheckTx{Code: 0}
	_, err1 := h.apply(st.Clone(), btx.From, btx.Type, btx.Tx)
	if err1 != nil {
		h.logger.Info("CheckTx fail", "type", btx.Type, "from", btx.From, "err", err1)
		res.Code = state.ErrorCode(err1)
		res.Codespace = types.KHRTModuleName
		res.Log = err1.Error()
	}
	return
}

func (h *baseHandler) Process(ctx context.Context, st *state.State, btx *tx.KHRTTx) (res *abcitypes.ExecTxResult, err error) {
	data, err := h.apply(st, btx.From, btx.Type, btx.Tx)
	if err != nil {
		return nil, err
	}
	res = &abcitypes.ExecTxResult{Events: st.TakeEvents()}
	if data != nil {
		res.Data, err = json.Marshal(data)
	}
	return
}

func (h *baseHandler) Apply(st *state.State, from common.Address, tp tx.KHRTTxType, body any) (any, error) {
	return h.apply(st, from, tp, body)
}

func unexpected(tp tx.KHRTTxType, body any) error {
	return fmt.Errorf("%w: %v with body %T", tx.ErrInvalidTx, tp, body)
}

// amount maps a missing amount to zero so the modules reject it.
func amount(v *uint256.Int) *uint256.Int {
	if v == nil {
		return new(uint256.Int)
	}
	return v
}

func role(name string) (common.Hash, error) {
	r, ok := types.RoleByName(name)
	if !ok {
		return common.Hash{}, fmt.Errorf("%w: %q", state.ErrUnknownRole, name)
	}
	return r, nil
}
