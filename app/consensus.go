package app

import (
	"context"
	"fmt"

	"github.com/calehh/khrt-app/state"
	"github.com/calehh/khrt-app/tx"
	"github.com/calehh/khrt-app/types"
	abcitypes "github.com/cometbft/cometbft/abci/types"
)

const invalidTxLabel = "invalid"

// getState opens the working state of the next block on top of the
// committed one.
func (app *KHRTApp) getState(blkTime uint64) (st *state.State) {
	st = app.db.NewState()
	st.SetDispatcher(app.router)
	st.SetTime(blkTime)
	return
}

func (app *KHRTApp) parseTx(st *state.State, txDat []byte, allowNonceGap bool) (btx *tx.KHRTTx, err error) {
	btx, err = tx.UnmarshalKHRTTx(txDat)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", state.ErrTxMalformed, err)
	}
	if err = btx.Verify(st.Header().ChainId); err != nil {
		return nil, fmt.Errorf("%w: %w", state.ErrTxSigInvalid, err)
	}
	if err = st.CheckNonce(btx.From, btx.Nonce, allowNonceGap); err != nil {
		return nil, err
	}
	return
}

func errResult(err error) *abcitypes.ExecTxResult {
	return &abcitypes.ExecTxResult{
		Code:      state.ErrorCode(err),
		Codespace: types.KHRTModuleName,
		Log:       err.Error(),
	}
}

// deliverTx runs one block tx on top of st and returns the state the next tx
// builds on. A tx that parses always consumes its nonce, even when its
// handler fails; the handler's writes only survive on success. btx is nil
// when the tx does not parse.
func (app *KHRTApp) deliverTx(ctx context.Context, st *state.State, dat []byte) (next *state.State, res *abcitypes.ExecTxResult, btx *tx.KHRTTx) {
	btx, err := app.parseTx(st, dat, false)
	if err != nil {
		return st, errResult(err), nil
	}
	h, ok := app.router.Handler(btx.Type)
	if !ok {
		return st, errResult(fmt.Errorf("%w: %v", tx.ErrUnsupportedTxType, btx.Type)), nil
	}
	st.IncNonce(btx.From)
	stTmp := st.Clone()
	res, err = h.Process(ctx, stTmp, btx)
	if err != nil {
		app.logger.Info("tx reverted", "type", btx.Type, "from", btx.From, "nonce", btx.Nonce, "err", err)
		return st, errResult(err), btx
	}
	return stTmp, res, btx
}

func (app *KHRTApp) CheckTx(ctx context.Context, check *abcitypes.RequestCheckTx) (res *abcitypes.ResponseCheckTx, err error) {
	// execution proposals dispatch, so checks run on a routed copy
	st := app.getState(app.db.Header().Time)
	btx, err := app.parseTx(st, check.Tx, true)
	if err != nil {
		app.logger.Info("parse tx fail", "err", err)
		res = &abcitypes.ResponseCheckTx{
			Code:      state.ErrorCode(err),
			Codespace: types.KHRTModuleName,
			Log:       err.Error(),
		}
		return res, nil
	}
	h, ok := app.router.Handler(btx.Type)
	if !ok {
		app.logger.Error("unsupported tx", "type", btx.Type)
		res = &abcitypes.ResponseCheckTx{
			Code:      state.ErrorCode(tx.ErrUnsupportedTxType),
			Codespace: types.KHRTModuleName,
			Log:       "unsupported tx",
		}
		return res, nil
	}
	// nonces ahead of the committed one are checked against committed
	// balances; the block decides the final outcome
	res, err = h.Check(ctx, st, btx)
	if err != nil {
		app.logger.Error("check tx fail", "type", btx.Type, "err", err)
		res = &abcitypes.ResponseCheckTx{
			Code:      state.ErrorCode(err),
			Codespace: types.KHRTModuleName,
			Log:       err.Error(),
		}
		err = nil
	}
	return
}

func (app *KHRTApp) PrepareProposal(ctx context.Context, proposal *abcitypes.RequestPrepareProposal) (res *abcitypes.ResponsePrepareProposal, err error) {
	app.logger.Info("PrepareProposal", "height", proposal.Height, "txs", len(proposal.Txs))
	st := app.getState(uint64(proposal.Time.Unix()))
	var size int64
	txs := make([][]byte, 0, len(proposal.Txs))
	for _, stx := range proposal.Txs {
		if proposal.MaxTxBytes > 0 && size+int64(len(stx)) > proposal.MaxTxBytes {
			break
		}
		next, result, btx := app.deliverTx(ctx, st, stx)
		if btx == nil {
			app.logger.Error("drop tx", "code", result.Code, "log", result.Log)
			continue
		}
		st = next
		size += int64(len(stx))
		txs = append(txs, stx)
	}
	return &abcitypes.ResponsePrepareProposal{Txs: txs}, nil
}

func (app *KHRTApp) ProcessProposal(ctx context.Context, proposal *abcitypes.RequestProcessProposal) (res *abcitypes.ResponseProcessProposal, err error) {
	app.logger.Info("ProcessProposal", "height", proposal.Height, "txs", len(proposal.Txs))
	res = &abcitypes.ResponseProcessProposal{Status: abcitypes.ResponseProcessProposal_REJECT}
	if len(proposal.Txs) == 0 {
		res.Status = abcitypes.ResponseProcessProposal_ACCEPT
		return res, nil
	}
	st := app.getState(uint64(proposal.Time.Unix()))
	for i, stx := range proposal.Txs {
		next, result, btx := app.deliverTx(ctx, st, stx)
		if btx == nil {
			app.logger.Error("reject proposal", "height", proposal.Height, "tx", i, "log", result.Log)
			return res, nil
		}
		st = next
	}
	res.Status = abcitypes.ResponseProcessProposal_ACCEPT
	return res, nil
}

func (app *KHRTApp) FinalizeBlock(ctx context.Context, req *abcitypes.RequestFinalizeBlock) (*abcitypes.ResponseFinalizeBlock, error) {
	app.logger.Info("FinalizeBlock", "height", req.Height, "txs", len(req.Txs))
	app.lastBlk.Set(req)
	st := app.getState(app.lastBlk.Time)
	if st.Header().Height != app.lastBlk.Height {
		app.logger.Error("block height mismatch", "state", st.Header().Height, "block", req.Height)
	}
	results := make([]*abcitypes.ExecTxResult, len(req.Txs))
	for i, stx := range req.Txs {
		var btx *tx.KHRTTx
		st, results[i], btx = app.deliverTx(ctx, st, stx)
		label := invalidTxLabel
		if btx != nil {
			label = btx.Type.String()
		}
		app.metrics.observeTx(label, results[i].Code)
	}
	h, err := st.Update()
	if err != nil {
		app.logger.Error("state update hash fail", "err", err)
		return nil, err
	}
	app.st = st
	return &abcitypes.ResponseFinalizeBlock{
		TxResults: results,
		AppHash:   h.Bytes(),
	}, nil
}

func (app *KHRTApp) Commit(ctx context.Context, commit *abcitypes.RequestCommit) (*abcitypes.ResponseCommit, error) {
	if app.st == nil {
		return &abcitypes.ResponseCommit{}, nil
	}
	_, err := app.db.SetState(app.st)
	if err != nil {
		return nil, err
	}
	app.metrics.observeState(app.st)
	app.logger.Info("Commit", "height", app.st.Header().Height)
	app.st = nil
	return &abcitypes.ResponseCommit{}, nil
}
