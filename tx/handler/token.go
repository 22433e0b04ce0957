package handler

import (
	"github.com/calehh/khrt-app/state"
	"github.com/calehh/khrt-app/tx"
	cmtlog "github.com/cometbft/cometbft/libs/log"
	"github.com/ethereum/go-ethereum/common"
)

type TokenTxHandler struct {
	baseHandler
}

func NewTokenTxHandler(logger cmtlog.Logger) (h *TokenTxHandler) {
	h = &TokenTxHandler{}
	h.logger = logger.With("module", "tokenTx")
	h.apply = h.handle
	return
}

func (h *TokenTxHandler) handle(st *state.State, from common.Address, tp tx.KHRTTxType, body any) (any, error) {
	t := st.Token()
	switch b := body.(type) {
	case *tx.TransferTx:
		return nil, t.Transfer(from, b.To, amount(b.Amount))
	case *tx.TransferFromTx:
		return nil, t.TransferFrom(from, b.From, b.To, amount(b.Amount))
	case *tx.ApproveTx:
		return nil, t.Approve(from, b.Spender, amount(b.Amount))
	case *tx.MintTx:
		return nil, t.Mint(from, b.To, amount(b.Amount))
	case *tx.BurnTx:
		return nil, t.Burn(from, amount(b.Amount))
	case *tx.BurnFromTx:
		return nil, t.BurnFrom(from, b.From, amount(b.Amount))
	case *tx.BlacklistTx:
		return nil, t.UpdateBlacklist(from, b.Account, b.Blacklisted)
	case *tx.MaxSupplyTx:
		return nil, t.UpdateMaxSupply(from, amount(b.MaxSupply))
	case *tx.CollateralWhitelistTx:
		return nil, t.UpdateCollateralWhitelist(from, b.Asset, b.Allowed)
	case *tx.SwitchTx:
		if tp == tx.KHRTTxTypeToggleLocalEmergency {
			return nil, t.ToggleLocalEmergency(from, b.Active)
		}
	case *tx.EmptyTx:
		switch tp {
		case tx.KHRTTxTypePause:
			return nil, t.Pause(from)
		case tx.KHRTTxTypeUnpause:
			return nil, t.Unpause(from)
		}
	}
	return nil, unexpected(tp, body)
}
