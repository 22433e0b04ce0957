package handler

import (
	"github.com/calehh/khrt-app/state"
	"github.com/calehh/khrt-app/tx"
	cmtlog "github.com/cometbft/cometbft/libs/log"
	"github.com/ethereum/go-ethereum/common"
)

type CollateralTxHandler struct {
	baseHandler
}

func NewCollateralTxHandler(logger cmtlog.Logger) (h *CollateralTxHandler) {
	h = &CollateralTxHandler{}
	h.logger = logger.With("module", "collateralTx")
	h.apply = h.handle
	return
}

func (h *CollateralTxHandler) handle(st *state.State, from common.Address, tp tx.KHRTTxType, body any) (any, error) {
	l := st.Collateral()
	switch b := body.(type) {
	case *tx.DepositTx:
		minted, err := l.Deposit(from, b.Asset, amount(b.Amount))
		if err != nil {
			return nil, err
		}
		return map[string]string{"minted": minted.Dec()}, nil
	case *tx.WithdrawTx:
		released, err := l.Withdraw(from, b.Asset, amount(b.Amount))
		if err != nil {
			return nil, err
		}
		return map[string]string{"released": released.Dec()}, nil
	case *tx.AssetRatioTx:
		ratio, err := state.ParseRatio(b.Ratio)
		if err != nil {
			return nil, err
		}
		return nil, l.SetAssetRatio(from, b.Asset, ratio)
	}
	return nil, unexpected(tp, body)
}
