package app

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/calehh/khrt-app/config"
	"github.com/calehh/khrt-app/state"
	"github.com/calehh/khrt-app/tx/handler"
	"github.com/calehh/khrt-app/types"
	abcitypes "github.com/cometbft/cometbft/abci/types"
	cmtlog "github.com/cometbft/cometbft/libs/log"
	"github.com/cometbft/cometbft/store"
	"github.com/ethereum/go-ethereum/common"
	"github.com/prometheus/client_golang/prometheus"
)

var ErrEmptyAppState = errors.New("genesis app_state is empty")

type finalizeBlock struct {
	Height uint64
	Hash   common.Hash
	Time   uint64
}

func (b *finalizeBlock) Set(blk *abcitypes.RequestFinalizeBlock) {
	b.Height = uint64(blk.Height)
	b.Hash = common.BytesToHash(blk.Hash)
	b.Time = uint64(blk.Time.Unix())
}

var _ abcitypes.Application = &KHRTApp{}

type KHRTApp struct {
	cfg    *config.AppConfig
	logger cmtlog.Logger

	db       *state.StateDB
	lastBlk  finalizeBlock
	router   *handler.Router
	queriers map[string]Querier
	metrics  *appMetrics

	st *state.State
}

// NewKHRTApp opens the state under cfg.Home/data. Metrics are registered
// with reg.
func NewKHRTApp(cfg *config.AppConfig, logger cmtlog.Logger, reg prometheus.Registerer) (app *KHRTApp, err error) {
	logger = logger.With("module", "app")

	dir := cfg.Home + "/data"
	db, err := state.NewStateDB(dir, logger)
	if err != nil {
		return nil, err
	}

	app = &KHRTApp{
		cfg:      cfg,
		logger:   logger,
		db:       db,
		router:   handler.NewRouter(logger),
		queriers: make(map[string]Querier),
		metrics:  newAppMetrics(reg),
	}
	app.registerQuerier()
	return
}

func (app *KHRTApp) Start(bs *store.BlockStore) {
	height := app.db.Header().Height
	if height > 0 {
		blk := bs.LoadBlock(int64(height))
		if blk == nil {
			panic("unexpected BlockStore")
		}
		app.lastBlk.Height = height
		app.lastBlk.Hash = common.BytesToHash(blk.Hash())
		app.lastBlk.Time = uint64(blk.Time.Unix())
	}
	app.metrics.observeState(app.db.State())
}

func (app *KHRTApp) Stop() {
	err := app.db.Close()
	if err != nil {
		app.logger.Error("close db fail", "err", err)
	}
	app.logger.Info("KHRT app stopped")
}

func (app *KHRTApp) registerQuerier() {
	app.queriers["/accounts/"] = NewAccountQuerier(app.db, app.logger)
	app.queriers["/roles/"] = NewRoleQuerier(app.db, app.logger)
	app.queriers["/council/"] = NewCouncilQuerier(app.db, app.logger)
	app.queriers["/proposals/"] = NewProposalQuerier(app.db, app.logger)
	app.queriers["/positions/"] = NewPositionQuerier(app.db, app.logger)
	app.queriers["/token/"] = NewTokenQuerier(app.db, app.logger)
	app.queriers["/assets/"] = NewAssetQuerier(app.db, app.logger)
}

func (app *KHRTApp) InitChain(_ context.Context, chain *abcitypes.RequestInitChain) (res *abcitypes.ResponseInitChain, err error) {
	if len(chain.AppStateBytes) == 0 {
		return nil, ErrEmptyAppState
	}
	var genesis types.GenesisState
	if err = json.Unmarshal(chain.AppStateBytes, &genesis); err != nil {
		return nil, fmt.Errorf("decode app_state: %w", err)
	}
	st := app.db.NewState()
	st.SetChainId(chain.ChainId)
	st.SetDispatcher(app.router)
	if err = st.InitGenesis(&genesis, uint64(chain.Time.Unix())); err != nil {
		app.logger.Error("InitChain genesis fail", "err", err)
		return nil, err
	}
	var h common.Hash
	_, err = st.Update()
	if err != nil {
		app.logger.Error("InitChain update state fail", "err", err)
		return nil, err
	}
	h, err = app.db.SetState(st)
	if err != nil {
		app.logger.Error("InitChain apply state fail", "err", err)
		return nil, err
	}
	app.logger.Info("InitChain", "chainId", chain.ChainId, "council", len(genesis.Council), "assets", len(genesis.Assets))
	app.metrics.observeState(st)
	return &abcitypes.ResponseInitChain{
		AppHash: h.Bytes(),
	}, nil
}

func (app *KHRTApp) Info(ctx context.Context, info *abcitypes.RequestInfo) (*abcitypes.ResponseInfo, error) {
	header := app.db.Header()
	return &abcitypes.ResponseInfo{
		LastBlockHeight:  int64(header.Height),
		LastBlockAppHash: header.Hash,
	}, nil
}

func (app *KHRTApp) ExtendVote(_ context.Context, extend *abcitypes.RequestExtendVote) (*abcitypes.ResponseExtendVote, error) {
	return &abcitypes.ResponseExtendVote{}, nil
}

func (app *KHRTApp) VerifyVoteExtension(_ context.Context, verify *abcitypes.RequestVerifyVoteExtension) (*abcitypes.ResponseVerifyVoteExtension, error) {
	return &abcitypes.ResponseVerifyVoteExtension{Status: abcitypes.ResponseVerifyVoteExtension_ACCEPT}, nil
}

func (app *KHRTApp) ApplySnapshotChunk(context.Context, *abcitypes.RequestApplySnapshotChunk) (*abcitypes.ResponseApplySnapshotChunk, error) {
	return &abcitypes.ResponseApplySnapshotChunk{}, nil
}

func (app *KHRTApp) ListSnapshots(context.Context, *abcitypes.RequestListSnapshots) (*abcitypes.ResponseListSnapshots, error) {
	return &abcitypes.ResponseListSnapshots{}, nil
}

func (app *KHRTApp) LoadSnapshotChunk(context.Context, *abcitypes.RequestLoadSnapshotChunk) (*abcitypes.ResponseLoadSnapshotChunk, error) {
	return &abcitypes.ResponseLoadSnapshotChunk{}, nil
}

func (app *KHRTApp) OfferSnapshot(context.Context, *abcitypes.RequestOfferSnapshot) (*abcitypes.ResponseOfferSnapshot, error) {
	return &abcitypes.ResponseOfferSnapshot{}, nil
}
