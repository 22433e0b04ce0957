package handler

import (
	"github.com/calehh/khrt-app/state"
	"github.com/calehh/khrt-app/tx"
	cmtlog "github.com/cometbft/cometbft/libs/log"
	"github.com/ethereum/go-ethereum/common"
)

type AuthorityTxHandler struct {
	baseHandler
}

func NewAuthorityTxHandler(logger cmtlog.Logger) (h *AuthorityTxHandler) {
	h = &AuthorityTxHandler{}
	h.logger = logger.With("module", "authorityTx")
	h.apply = h.handle
	return
}

func (h *AuthorityTxHandler) handle(st *state.State, from common.Address, tp tx.KHRTTxType, body any) (any, error) {
	r := st.Authority()
	switch b := body.(type) {
	case *tx.RoleTx:
		rl, err := role(b.Role)
		if err != nil {
			return nil, err
		}
		switch tp {
		case tx.KHRTTxTypeGrantRole:
			return nil, r.GrantRole(from, rl, b.Account, b.Reason)
		case tx.KHRTTxTypeRevokeRole:
			return nil, r.RevokeRole(from, rl, b.Account, b.Reason)
		}
	case *tx.ProposeRoleChangeTx:
		rl, err := role(b.Role)
		if err != nil {
			return nil, err
		}
		id, err := r.ProposeRoleChange(from, rl, b.Account, b.Grant)
		if err != nil {
			return nil, err
		}
		return map[string]uint64{"id": id}, nil
	case *tx.RoleChangeTx:
		return nil, r.ExecuteRoleChange(from, b.Id)
	case *tx.AuthorizedCallerTx:
		return nil, r.SetAuthorizedCaller(from, b.Caller, b.Allowed)
	case *tx.SwitchTx:
		return nil, r.ToggleEmergencyMode(from, b.Active)
	case *tx.AddressTx:
		switch tp {
		case tx.KHRTTxTypeUpdateController:
			return nil, r.UpdateGovernanceController(from, b.Address)
		case tx.KHRTTxTypeUpdateEmergencyAdmin:
			return nil, r.UpdateEmergencyAdmin(from, b.Address)
		}
	case *tx.EmptyTx:
		if tp == tx.KHRTTxTypeCloseSetup {
			return nil, r.CloseSetup(from)
		}
	}
	return nil, unexpected(tp, body)
}
