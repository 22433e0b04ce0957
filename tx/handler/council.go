package handler

import (
	"github.com/calehh/khrt-app/state"
	"github.com/calehh/khrt-app/tx"
	"github.com/calehh/khrt-app/types"
	cmtlog "github.com/cometbft/cometbft/libs/log"
	"github.com/ethereum/go-ethereum/common"
)

type CouncilTxHandler struct {
	baseHandler
}

func NewCouncilTxHandler(logger cmtlog.Logger) (h *CouncilTxHandler) {
	h = &CouncilTxHandler{}
	h.logger = logger.With("module", "councilTx")
	h.apply = h.handle
	return
}

func (h *CouncilTxHandler) handle(st *state.State, from common.Address, tp tx.KHRTTxType, body any) (any, error) {
	c := st.Council()
	switch b := body.(type) {
	case *tx.ProposeTx:
		payload := state.ProposalPayload{
			Account:  b.Account,
			Grant:    b.Grant,
			Power:    b.Power,
			Target:   b.Target,
			Calldata: b.Calldata,
		}
		if b.Kind == types.ProposalKindRoleChange {
			rl, err := role(b.Role)
			if err != nil {
				return nil, err
			}
			payload.Role = rl
		}
		id, err := c.Propose(from, b.Kind, payload, b.Description)
		if err != nil {
			return nil, err
		}
		h.logger.Info("proposal created", "id", id, "kind", b.Kind, "proposer", from)
		return map[string]uint64{"proposal": id}, nil
	case *tx.VoteTx:
		return nil, c.Vote(from, b.Proposal, b.Support)
	case *tx.ExecuteTx:
		if err := c.Execute(from, b.Proposal); err != nil {
			return nil, err
		}
		h.logger.Info("proposal executed", "id", b.Proposal, "executor", from)
		return nil, nil
	case *tx.CouncilConfigTx:
		return nil, c.UpdateConfig(from, state.CouncilConfig{
			VotingPeriod:  b.VotingPeriod,
			TimeLock:      b.TimeLock,
			QuorumPercent: b.QuorumPercent,
		})
	}
	return nil, unexpected(tp, body)
}
