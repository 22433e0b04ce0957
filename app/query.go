package app

import (
	"context"
	"encoding/json"
	"fmt"
	"strconv"
	"strings"

	"github.com/calehh/khrt-app/state"
	"github.com/calehh/khrt-app/types"
	abcitypes "github.com/cometbft/cometbft/abci/types"
	cmtlog "github.com/cometbft/cometbft/libs/log"
	"github.com/ethereum/go-ethereum/common"
)

const (
	codeUnknownPath  = 404
	maxProposalsList = 100
)

func (app *KHRTApp) Query(ctx context.Context, req *abcitypes.RequestQuery) (res *abcitypes.ResponseQuery, err error) {
	path := req.Path
	if !strings.HasSuffix(path, "/") {
		path += "/"
	}
	q, ok := app.queriers[path]
	if !ok {
		res = &abcitypes.ResponseQuery{}
		res.Code = codeUnknownPath
		res.Log = "unknown query path " + req.Path
		return
	}
	res, err = q.Query(ctx, req)
	return
}

type Querier interface {
	Query(ctx context.Context, req *abcitypes.RequestQuery) (res *abcitypes.ResponseQuery, err error)
}

// parseAddress accepts the raw 20 bytes or a hex string.
func parseAddress(data []byte) (common.Address, error) {
	if len(data) == common.AddressLength {
		return common.BytesToAddress(data), nil
	}
	s := strings.TrimSpace(string(data))
	if common.IsHexAddress(s) {
		return common.HexToAddress(s), nil
	}
	return common.Address{}, fmt.Errorf("%w: bad address %q", state.ErrTxMalformed, s)
}

type AccountQuerier struct {
	db     *state.StateDB
	logger cmtlog.Logger
}

func NewAccountQuerier(db *state.StateDB, logger cmtlog.Logger) (q *AccountQuerier) {
	q = &AccountQuerier{
		db:     db,
		logger: logger,
	}
	return
}

func (q *AccountQuerier) Query(ctx context.Context, req *abcitypes.RequestQuery) (res *abcitypes.ResponseQuery, err error) {
	res = &abcitypes.ResponseQuery{}
	addr, err1 := parseAddress(req.Data)
	if err1 != nil {
		res.Code = state.ErrorCode(err1)
		res.Log = err1.Error()
		return
	}
	a, height, _ := q.db.GetAccount(addr)
	res.Value, _ = json.Marshal(a)
	res.Height = int64(height)
	return
}

type viewFunc func(st *state.State, data []byte) (any, error)

// ViewQuerier answers a path from the committed state. The value is encoded
// before the state lock is released.
type ViewQuerier struct {
	db     *state.StateDB
	logger cmtlog.Logger
	view   viewFunc
}

func newViewQuerier(db *state.StateDB, logger cmtlog.Logger, view viewFunc) *ViewQuerier {
	return &ViewQuerier{db: db, logger: logger, view: view}
}

func (q *ViewQuerier) Query(ctx context.Context, req *abcitypes.RequestQuery) (res *abcitypes.ResponseQuery, err error) {
	res = &abcitypes.ResponseQuery{}
	height, err1 := q.db.View(func(st *state.State) error {
		v, err := q.view(st, req.Data)
		if err != nil {
			return err
		}
		res.Value, err = json.Marshal(v)
		return err
	})
	if err1 != nil {
		q.logger.Debug("query fail", "path", req.Path, "err", err1)
		res.Code = state.ErrorCode(err1)
		res.Log = err1.Error()
		return
	}
	res.Height = int64(height)
	return
}

type RoleMembers struct {
	Role    string           `json:"role"`
	Hash    common.Hash      `json:"hash"`
	Members []common.Address `json:"members"`
}

type AccountRoles struct {
	Account common.Address `json:"account"`
	Roles   []string       `json:"roles"`
}

// NewRoleQuerier serves the registry summary for empty data, the holders of
// a role for a role name and the roles of an account for an address.
func NewRoleQuerier(db *state.StateDB, logger cmtlog.Logger) *ViewQuerier {
	return newViewQuerier(db, logger, func(st *state.State, data []byte) (any, error) {
		reg := st.Authority()
		if len(data) == 0 {
			return reg.Info(), nil
		}
		if role, ok := types.RoleByName(string(data)); ok {
			return &RoleMembers{Role: types.RoleName(role), Hash: role, Members: reg.RoleMembers(role)}, nil
		}
		addr, err := parseAddress(data)
		if err != nil {
			return nil, fmt.Errorf("%w: %q", state.ErrUnknownRole, string(data))
		}
		return &AccountRoles{Account: addr, Roles: reg.RolesOf(addr)}, nil
	})
}

type CouncilInfo struct {
	Members          []*state.CouncilMember `json:"members"`
	TotalVotingPower uint64                 `json:"totalVotingPower"`
	Config           state.CouncilConfig    `json:"config"`
	ProposalCount    uint64                 `json:"proposalCount"`
}

func NewCouncilQuerier(db *state.StateDB, logger cmtlog.Logger) *ViewQuerier {
	return newViewQuerier(db, logger, func(st *state.State, data []byte) (any, error) {
		c := st.Council()
		return &CouncilInfo{
			Members:          c.Members(),
			TotalVotingPower: c.TotalVotingPower(),
			Config:           c.Config(),
			ProposalCount:    c.ProposalCount(),
		}, nil
	})
}

// NewProposalQuerier returns one proposal for a decimal id, otherwise the
// latest proposals, newest first.
func NewProposalQuerier(db *state.StateDB, logger cmtlog.Logger) *ViewQuerier {
	return newViewQuerier(db, logger, func(st *state.State, data []byte) (any, error) {
		c := st.Council()
		if len(data) > 0 {
			id, err := strconv.ParseUint(strings.TrimSpace(string(data)), 10, 64)
			if err != nil {
				return nil, fmt.Errorf("%w: bad proposal id %q", state.ErrTxMalformed, string(data))
			}
			return c.Proposal(id)
		}
		var list []*state.Proposal
		for id := c.ProposalCount(); id > 0 && len(list) < maxProposalsList; id-- {
			p, err := c.Proposal(id)
			if err != nil {
				return nil, err
			}
			list = append(list, p)
		}
		return list, nil
	})
}

// NewPositionQuerier takes "<user>" or "<user>/<asset>".
func NewPositionQuerier(db *state.StateDB, logger cmtlog.Logger) *ViewQuerier {
	return newViewQuerier(db, logger, func(st *state.State, data []byte) (any, error) {
		user, asset, found := strings.Cut(string(data), "/")
		userAddr, err := parseAddress([]byte(user))
		if err != nil {
			return nil, err
		}
		if !found {
			return st.Collateral().Positions(userAddr), nil
		}
		assetAddr, err := parseAddress([]byte(asset))
		if err != nil {
			return nil, err
		}
		return st.Collateral().Position(userAddr, assetAddr), nil
	})
}

func NewTokenQuerier(db *state.StateDB, logger cmtlog.Logger) *ViewQuerier {
	return newViewQuerier(db, logger, func(st *state.State, data []byte) (any, error) {
		return st.Token().Info(), nil
	})
}

type AssetInfo struct {
	*state.Asset
	Whitelisted bool   `json:"whitelisted"`
	Ratio       string `json:"ratio,omitempty"`
	Locked      string `json:"locked"`
}

func NewAssetQuerier(db *state.StateDB, logger cmtlog.Logger) *ViewQuerier {
	return newViewQuerier(db, logger, func(st *state.State, data []byte) (any, error) {
		info := func(a *state.Asset) *AssetInfo {
			ai := &AssetInfo{
				Asset:       a,
				Whitelisted: st.Token().IsCollateralWhitelisted(a.Address),
				Locked:      st.Collateral().TotalCollateral(a.Address).Dec(),
			}
			if cfg, ok := st.Collateral().AssetConfig(a.Address); ok {
				ai.Ratio = state.FormatRatio(cfg.Ratio)
			}
			return ai
		}
		if len(data) > 0 {
			addr, err := parseAddress(data)
			if err != nil {
				return nil, err
			}
			a, ok := st.Bank().Asset(addr)
			if !ok {
				return nil, fmt.Errorf("%w: %s", state.ErrUnknownAsset, addr)
			}
			return info(a), nil
		}
		var res []*AssetInfo
		for _, a := range st.Bank().Assets() {
			res = append(res, info(a))
		}
		return res, nil
	})
}
