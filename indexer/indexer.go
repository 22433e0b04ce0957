package indexer

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/calehh/khrt-app/types"
	abci "github.com/cometbft/cometbft/abci/types"
	cmtlog "github.com/cometbft/cometbft/libs/log"
	comethttp "github.com/cometbft/cometbft/rpc/client/http"
	ctypes "github.com/cometbft/cometbft/rpc/core/types"
	"github.com/jinzhu/gorm"
	_ "github.com/jinzhu/gorm/dialects/sqlite"
)

const defaultPageSize = 20
const maxPageSize = 100

// BlockSource is the part of the CometBFT RPC client the indexer reads from.
type BlockSource interface {
	Status(ctx context.Context) (*ctypes.ResultStatus, error)
	BlockResults(ctx context.Context, height *int64) (*ctypes.ResultBlockResults, error)
}

var _ BlockSource = (*comethttp.HTTP)(nil)

func NewRPCSource(url string) (*comethttp.HTTP, error) {
	return comethttp.New(url, "/websocket")
}

// ChainIndexer copies the events of finalized blocks into sqlite so they can
// be listed without replaying the chain.
type ChainIndexer struct {
	logger        cmtlog.Logger
	Height        int64
	interval      time.Duration
	db            *gorm.DB
	src           BlockSource
	eventHandlers map[string]eventHandler
}

type eventHandler func(db *gorm.DB, event abci.Event, height int64) error

func NewChainIndexer(logger cmtlog.Logger, dbPath string, src BlockSource, interval time.Duration) (*ChainIndexer, error) {
	logger.Info("NewChainIndexer", "dbPath", dbPath)
	db, err := gorm.Open("sqlite3", dbPath)
	if err != nil {
		return nil, err
	}
	if err := db.AutoMigrate(&Height{}, &Proposal{}, &Vote{}, &RoleChange{}, &Transfer{}, &CollateralMove{}).Error; err != nil {
		db.Close()
		return nil, err
	}
	h := Height{Id: 1}
	if err = db.First(&h).Error; err != nil && !errors.Is(err, gorm.ErrRecordNotFound) {
		db.Close()
		return nil, err
	}
	if interval <= 0 {
		interval = time.Second
	}
	c := &ChainIndexer{
		logger:   logger.With("module", "indexer"),
		Height:   int64(h.Height + 1),
		interval: interval,
		db:       db,
		src:      src,
	}
	c.eventHandlers = map[string]eventHandler{
		types.EventProposalCreatedType:     c.handleEventProposal,
		types.EventProposalVotedType:       c.handleEventVote,
		types.EventProposalExecutedType:    c.handleEventProposalExecuted,
		types.EventRoleGrantedType:         c.handleEventRole,
		types.EventRoleRevokedType:         c.handleEventRole,
		types.EventTransferType:            c.handleEventTransfer,
		types.EventMintedType:              c.handleEventTransfer,
		types.EventBurnedType:              c.handleEventTransfer,
		types.EventCollateralDepositedType: c.handleEventCollateral,
		types.EventCollateralWithdrawnType: c.handleEventCollateral,
	}
	return c, nil
}

func (c *ChainIndexer) Close() error {
	return c.db.Close()
}

func (c *ChainIndexer) handleEvent(db *gorm.DB, event abci.Event, height int64) error {
	if h, ok := c.eventHandlers[event.Type]; ok {
		return h(db, event, height)
	}
	return nil
}

func decodeFail(event abci.Event) error {
	return fmt.Errorf("decode %s event fail", event.Type)
}

func (c *ChainIndexer) handleEventProposal(db *gorm.DB, event abci.Event, height int64) error {
	ev := types.DecodeEventProposal(event)
	if ev == nil {
		return decodeFail(event)
	}
	proposal := Proposal{
		Id:          ev.ProposalIndex,
		Proposer:    ev.Proposer.Hex(),
		Kind:        ev.Kind.String(),
		Description: ev.Description,
		Status:      ev.Status.String(),
		Deadline:    ev.Deadline,
		ExecuteTime: ev.ExecuteTime,
		NewHeight:   uint64(height),
	}
	return db.Save(&proposal).Error
}

func (c *ChainIndexer) handleEventVote(db *gorm.DB, event abci.Event, height int64) error {
	ev := types.DecodeEventVote(event)
	if ev == nil {
		return decodeFail(event)
	}
	vote := Vote{
		Proposal: ev.ProposalIndex,
		Voter:    ev.Voter.Hex(),
		Support:  ev.Support,
		Weight:   ev.Weight,
		Height:   uint64(height),
	}
	if err := db.Create(&vote).Error; err != nil {
		return err
	}
	return db.Model(&Proposal{Id: ev.ProposalIndex}).Updates(map[string]interface{}{
		"for_votes":     ev.ForVotes,
		"against_votes": ev.AgainstVotes,
		"status":        ev.Status.String(),
	}).Error
}

func (c *ChainIndexer) handleEventProposalExecuted(db *gorm.DB, event abci.Event, height int64) error {
	ev := types.DecodeEventProposalExecuted(event)
	if ev == nil {
		return decodeFail(event)
	}
	return db.Model(&Proposal{Id: ev.ProposalIndex}).Updates(map[string]interface{}{
		"status":      types.ProposalStatusExecuted.String(),
		"exec_height": uint64(height),
		"executor":    ev.Executor.Hex(),
	}).Error
}

func (c *ChainIndexer) handleEventRole(db *gorm.DB, event abci.Event, height int64) error {
	ev := types.DecodeEventRole(event)
	if ev == nil {
		return decodeFail(event)
	}
	change := RoleChange{
		Role:    types.RoleName(ev.Role),
		Account: ev.Account.Hex(),
		Sender:  ev.Sender.Hex(),
		Granted: ev.Granted,
		Reason:  ev.Reason,
		Height:  uint64(height),
	}
	return db.Create(&change).Error
}

func (c *ChainIndexer) handleEventTransfer(db *gorm.DB, event abci.Event, height int64) error {
	ev := types.DecodeEventTransfer(event)
	if ev == nil {
		return decodeFail(event)
	}
	transfer := Transfer{
		Kind:   event.Type,
		From:   ev.From.Hex(),
		To:     ev.To.Hex(),
		Amount: ev.Amount.Dec(),
		Height: uint64(height),
	}
	return db.Create(&transfer).Error
}

func (c *ChainIndexer) handleEventCollateral(db *gorm.DB, event abci.Event, height int64) error {
	ev := types.DecodeEventCollateral(event)
	if ev == nil {
		return decodeFail(event)
	}
	move := CollateralMove{
		User:       ev.User.Hex(),
		Asset:      ev.Asset.Hex(),
		Deposit:    ev.Deposit,
		Collateral: ev.Collateral.Dec(),
		KHRT:       ev.KHRT.Dec(),
		Height:     uint64(height),
	}
	return db.Create(&move).Error
}

// indexBlock stores a block's events and the new height in one transaction.
func (c *ChainIndexer) indexBlock(ctx context.Context, height int64) error {
	res, err := c.src.BlockResults(ctx, &height)
	if err != nil {
		return err
	}
	tx := c.db.Begin()
	if tx.Error != nil {
		return tx.Error
	}
	for _, r := range res.TxsResults {
		if r.Code != 0 {
			continue
		}
		for _, event := range r.Events {
			if err := c.handleEvent(tx, event, height); err != nil {
				tx.Rollback()
				return err
			}
		}
	}
	if err := tx.Save(&Height{Id: 1, Height: uint64(height)}).Error; err != nil {
		tx.Rollback()
		return err
	}
	return tx.Commit().Error
}

// Sync indexes every block up to the node's latest height.
func (c *ChainIndexer) Sync(ctx context.Context) error {
	st, err := c.src.Status(ctx)
	if err != nil {
		return err
	}
	for c.Height <= st.SyncInfo.LatestBlockHeight {
		if err := ctx.Err(); err != nil {
			return err
		}
		if err := c.indexBlock(ctx, c.Height); err != nil {
			return fmt.Errorf("index block %d: %w", c.Height, err)
		}
		c.Height++
	}
	return nil
}

func (c *ChainIndexer) Start(ctx context.Context) error {
	ticker := time.NewTicker(c.interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return nil
		case <-ticker.C:
			if err := c.Sync(ctx); err != nil && ctx.Err() == nil {
				c.logger.Error("indexer sync fail", "height", c.Height, "err", err)
			}
		}
	}
}

func page(p, size int) (offset, limit int) {
	if size <= 0 {
		size = defaultPageSize
	}
	if size > maxPageSize {
		size = maxPageSize
	}
	if p < 0 {
		p = 0
	}
	return p * size, size
}

func (c *ChainIndexer) getProposals(status, proposer string, p, size int) ([]Proposal, uint64, error) {
	q := c.db.Model(&Proposal{})
	if status != "" {
		q = q.Where("status = ?", status)
	}
	if proposer != "" {
		q = q.Where("proposer = ?", proposer)
	}
	var total uint64
	if err := q.Count(&total).Error; err != nil {
		return nil, 0, err
	}
	offset, limit := page(p, size)
	var proposals []Proposal
	if err := q.Order("id desc").Offset(offset).Limit(limit).Find(&proposals).Error; err != nil {
		return nil, 0, err
	}
	return proposals, total, nil
}

func (c *ChainIndexer) getProposalById(id uint64) (Proposal, error) {
	var proposal Proposal
	err := c.db.Where("id = ?", id).First(&proposal).Error
	return proposal, err
}

func (c *ChainIndexer) getVotes(proposal uint64, voter string, p, size int) ([]Vote, error) {
	q := c.db.Model(&Vote{})
	if proposal != 0 {
		q = q.Where("proposal = ?", proposal)
	}
	if voter != "" {
		q = q.Where("voter = ?", voter)
	}
	offset, limit := page(p, size)
	var votes []Vote
	err := q.Order("id desc").Offset(offset).Limit(limit).Find(&votes).Error
	return votes, err
}

func (c *ChainIndexer) getRoleChanges(role, account string, p, size int) ([]RoleChange, error) {
	q := c.db.Model(&RoleChange{})
	if role != "" {
		q = q.Where("role = ?", role)
	}
	if account != "" {
		q = q.Where("account = ?", account)
	}
	offset, limit := page(p, size)
	var changes []RoleChange
	err := q.Order("id desc").Offset(offset).Limit(limit).Find(&changes).Error
	return changes, err
}

func (c *ChainIndexer) getTransfers(address string, p, size int) ([]Transfer, error) {
	q := c.db.Model(&Transfer{})
	if address != "" {
		q = q.Where("from_addr = ? OR to_addr = ?", address, address)
	}
	offset, limit := page(p, size)
	var transfers []Transfer
	err := q.Order("id desc").Offset(offset).Limit(limit).Find(&transfers).Error
	return transfers, err
}

func (c *ChainIndexer) getCollateralMoves(user, asset string) ([]CollateralMove, error) {
	q := c.db.Model(&CollateralMove{}).Where("user = ?", user)
	if asset != "" {
		q = q.Where("asset = ?", asset)
	}
	var moves []CollateralMove
	err := q.Order("id asc").Find(&moves).Error
	return moves, err
}
