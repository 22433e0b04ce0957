package handler

import (
	"github.com/calehh/khrt-app/state"
	"github.com/calehh/khrt-app/tx"
	cmtlog "github.com/cometbft/cometbft/libs/log"
	"github.com/ethereum/go-ethereum/common"
)

type BankTxHandler struct {
	baseHandler
}

func NewBankTxHandler(logger cmtlog.Logger) (h *BankTxHandler) {
	h = &BankTxHandler{}
	h.logger = logger.With("module", "bankTx")
	h.apply = h.handle
	return
}

func (h *BankTxHandler) handle(st *state.State, from common.Address, tp tx.KHRTTxType, body any) (any, error) {
	if b, ok := body.(*tx.AssetTransferTx); ok {
		return nil, st.Bank().Transfer(from, b.Asset, b.To, amount(b.Amount))
	}
	return nil, unexpected(tp, body)
}
