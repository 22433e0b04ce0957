package state

import (
	"testing"

	"github.com/calehh/khrt-app/types"
	cmtlog "github.com/cometbft/cometbft/libs/log"
	"github.com/ethereum/go-ethereum/common"
	"github.com/holiman/uint256"
	"github.com/stretchr/testify/require"
)

const genesisTime = uint64(1_700_000_000)

var (
	owner   = common.HexToAddress("0x00000000000000000000000000000000000000a1")
	memberA = common.HexToAddress("0x000000000000000000000000000000000000c001")
	memberB = common.HexToAddress("0x000000000000000000000000000000000000c002")
	memberC = common.HexToAddress("0x000000000000000000000000000000000000c003")
	user    = common.HexToAddress("0x000000000000000000000000000000000000d001")
	user2   = common.HexToAddress("0x000000000000000000000000000000000000d002")
	asset18 = common.HexToAddress("0x00000000000000000000000000000000000e0018")
	asset6  = common.HexToAddress("0x00000000000000000000000000000000000e0006")
	assetNR = common.HexToAddress("0x00000000000000000000000000000000000e00ff")

	councilAddr    = types.ModuleAddress(types.CouncilModule)
	tokenAddr      = types.ModuleAddress(types.TokenModule)
	collateralAddr = types.ModuleAddress(types.CollateralModule)
)

func testGenesis() *types.GenesisState {
	g := types.DefaultGenesisState(owner, []types.GenesisCouncilMember{
		{Address: memberA, Power: 100},
		{Address: memberB, Power: 75},
		{Address: memberC, Power: 50},
	})
	g.Assets = []types.GenesisAsset{
		{
			Address:     asset18,
			Symbol:      "WETH",
			Decimals:    18,
			Ratio:       "2000",
			Whitelisted: true,
			Balances:    []types.GenesisBalance{{Address: user, Amount: "10000000000000000000"}},
		},
		{
			Address:     asset6,
			Symbol:      "USDT",
			Decimals:    6,
			Ratio:       "1",
			Whitelisted: true,
			Balances:    []types.GenesisBalance{{Address: user, Amount: "1000000000"}},
		},
		{
			Address:     assetNR,
			Symbol:      "NR",
			Decimals:    18,
			Whitelisted: true,
			Balances:    []types.GenesisBalance{{Address: user, Amount: "1000"}},
		},
	}
	g.Roles = append(g.Roles, types.GenesisRole{Role: "BLACKLIST_MANAGER", Account: owner})
	return g
}

func newTestStateFrom(t *testing.T, g *types.GenesisState) *State {
	st := NewMemState(cmtlog.NewNopLogger())
	require.NoError(t, st.InitGenesis(g, genesisTime))
	return st
}

func newTestState(t *testing.T) *State {
	return newTestStateFrom(t, testGenesis())
}

func u(v uint64) *uint256.Int {
	return uint256.NewInt(v)
}

func dec(t *testing.T, s string) *uint256.Int {
	v, err := uint256.FromDecimal(s)
	require.NoError(t, err)
	return v
}

func eventTypes(st *State) []string {
	var res []string
	for _, ev := range st.TakeEvents() {
		res = append(res, ev.Type)
	}
	return res
}
