package indexer

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"testing"

	"github.com/calehh/khrt-app/types"
	abci "github.com/cometbft/cometbft/abci/types"
	cmtlog "github.com/cometbft/cometbft/libs/log"
	ctypes "github.com/cometbft/cometbft/rpc/core/types"
	"github.com/ethereum/go-ethereum/common"
	"github.com/gin-gonic/gin"
	"github.com/holiman/uint256"
	"github.com/stretchr/testify/require"
)

var (
	member = common.HexToAddress("0x000000000000000000000000000000000000c001")
	holder = common.HexToAddress("0x000000000000000000000000000000000000d001")
	usdt   = common.HexToAddress("0x00000000000000000000000000000000000e0006")
)

type fakeSource struct {
	blocks map[int64][]*abci.ExecTxResult
	latest int64
}

func (f *fakeSource) Status(ctx context.Context) (*ctypes.ResultStatus, error) {
	return &ctypes.ResultStatus{SyncInfo: ctypes.SyncInfo{LatestBlockHeight: f.latest}}, nil
}

func (f *fakeSource) BlockResults(ctx context.Context, height *int64) (*ctypes.ResultBlockResults, error) {
	return &ctypes.ResultBlockResults{Height: *height, TxsResults: f.blocks[*height]}, nil
}

func (f *fakeSource) add(height int64, code uint32, events ...abci.Event) {
	if f.blocks == nil {
		f.blocks = make(map[int64][]*abci.ExecTxResult)
	}
	f.blocks[height] = append(f.blocks[height], &abci.ExecTxResult{Code: code, Events: events})
	if height > f.latest {
		f.latest = height
	}
}

func newTestIndexer(t *testing.T, src BlockSource, dbPath string) *ChainIndexer {
	c, err := NewChainIndexer(cmtlog.NewNopLogger(), dbPath, src, 0)
	require.NoError(t, err)
	return c
}

func chainEvents() *fakeSource {
	src := &fakeSource{}
	src.add(1, 0,
		types.EncodeEventTransfer(&types.EventTransfer{To: holder, Amount: uint256.NewInt(2_000_000)}),
		types.EncodeEventCollateral(&types.EventCollateral{
			User: holder, Asset: usdt, Collateral: uint256.NewInt(2_000_000), KHRT: uint256.NewInt(2_000_000), Deposit: true,
		}),
	)
	src.add(2, 0, types.EncodeEventProposal(&types.EventProposal{
		ProposalIndex: 1,
		Proposer:      member,
		Kind:          types.ProposalKindMemberAdd,
		Deadline:      100,
		ExecuteTime:   200,
		Status:        types.ProposalStatusActive,
		Description:   "grow the council",
	}))
	// reverted txs carry no state, their events are skipped
	src.add(2, 7, types.EncodeEventTransfer(&types.EventTransfer{From: holder, To: member, Amount: uint256.NewInt(1)}))
	src.add(3, 0,
		types.EncodeEventVote(&types.EventVote{
			ProposalIndex: 1, Voter: member, Support: true, Weight: 100, ForVotes: 100, Status: types.ProposalStatusSucceeded,
		}),
		types.EncodeEventRole(&types.EventRole{Role: types.RoleMinter, Account: holder, Sender: member, Granted: true, Reason: "ops"}),
	)
	src.add(4, 0,
		types.EncodeEventProposalExecuted(&types.EventProposalExecuted{ProposalIndex: 1, Kind: types.ProposalKindMemberAdd, Executor: holder}),
		types.EncodeEventCollateral(&types.EventCollateral{
			User: holder, Asset: usdt, Collateral: uint256.NewInt(500_000), KHRT: uint256.NewInt(500_000),
		}),
		types.EncodeEventTransfer(&types.EventTransfer{From: holder, Amount: uint256.NewInt(500_000)}),
	)
	return src
}

func TestIndexerSync(t *testing.T) {
	require := require.New(t)
	src := chainEvents()
	dbPath := filepath.Join(t.TempDir(), "indexer.db")
	c := newTestIndexer(t, src, dbPath)

	require.NoError(c.Sync(context.Background()))
	require.Equal(int64(5), c.Height)

	p, err := c.getProposalById(1)
	require.NoError(err)
	require.Equal(member.Hex(), p.Proposer)
	require.Equal(types.ProposalKindMemberAdd.String(), p.Kind)
	require.Equal(types.ProposalStatusExecuted.String(), p.Status)
	require.Equal(uint64(100), p.ForVotes)
	require.Equal(uint64(2), p.NewHeight)
	require.Equal(uint64(4), p.ExecHeight)
	require.Equal(holder.Hex(), p.Executor)

	votes, err := c.getVotes(1, "", 0, 0)
	require.NoError(err)
	require.Len(votes, 1)
	require.True(votes[0].Support)

	transfers, err := c.getTransfers(holder.Hex(), 0, 0)
	require.NoError(err)
	require.Len(transfers, 2)
	require.Equal(types.EventBurnedType, transfers[0].Kind)
	require.Equal(types.EventMintedType, transfers[1].Kind)

	changes, err := c.getRoleChanges("MINTER", "", 0, 0)
	require.NoError(err)
	require.Len(changes, 1)
	require.Equal(holder.Hex(), changes[0].Account)

	// restart resumes after the stored height
	require.NoError(c.Close())
	c = newTestIndexer(t, src, dbPath)
	defer c.Close()
	require.Equal(int64(5), c.Height)
	require.NoError(c.Sync(context.Background()))
	votes, err = c.getVotes(0, member.Hex(), 0, 0)
	require.NoError(err)
	require.Len(votes, 1)
}

func post(t *testing.T, h http.Handler, path string, body any) *httptest.ResponseRecorder {
	dat, err := json.Marshal(body)
	require.NoError(t, err)
	req := httptest.NewRequest(http.MethodPost, path, bytes.NewReader(dat))
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	h.ServeHTTP(w, req)
	return w
}

func TestService(t *testing.T) {
	require := require.New(t)
	gin.SetMode(gin.TestMode)
	c := newTestIndexer(t, chainEvents(), filepath.Join(t.TempDir(), "indexer.db"))
	defer c.Close()
	require.NoError(c.Sync(context.Background()))
	h := NewService("", c).Handler()

	w := post(t, h, "/getProposals", GetProposalsReq{})
	require.Equal(http.StatusOK, w.Code)
	var proposals GetProposalResponse
	require.NoError(json.Unmarshal(w.Body.Bytes(), &proposals))
	require.Equal(uint64(1), proposals.Total)
	require.Len(proposals.Proposals[0].Votes, 1)

	w = post(t, h, "/getProposals", GetProposalsReq{ProposalId: 9})
	require.Equal(http.StatusNotFound, w.Code)

	w = post(t, h, "/getVotes", GetVotesReq{})
	require.Equal(http.StatusBadRequest, w.Code)

	w = post(t, h, "/getPositions", GetPositionsReq{User: holder.Hex()})
	require.Equal(http.StatusOK, w.Code)
	var positions GetPositionsResponse
	require.NoError(json.Unmarshal(w.Body.Bytes(), &positions))
	require.Len(positions.Moves, 2)
	require.Equal([]PositionSummary{{Asset: usdt.Hex(), Collateral: "1500000", Minted: "1500000"}}, positions.Positions)

	w = post(t, h, "/getPositions", GetPositionsReq{})
	require.Equal(http.StatusBadRequest, w.Code)

	w = post(t, h, "/getRoleChanges", GetRoleChangesReq{Account: holder.Hex()})
	require.Equal(http.StatusOK, w.Code)
	require.Contains(w.Body.String(), `"role":"MINTER"`)
}
