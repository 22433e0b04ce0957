package main

import (
	"testing"

	"github.com/calehh/khrt-app/tx"
	"github.com/calehh/khrt-app/types"
	"github.com/ethereum/go-ethereum/common"
	"github.com/stretchr/testify/require"
)

func TestParseGenesisAsset(t *testing.T) {
	require := require.New(t)
	owner := common.HexToAddress("0x00000000000000000000000000000000000000a1")

	a, err := parseGenesisAsset("USDT:6:0.25:1000", owner)
	require.NoError(err)
	require.Equal(assetAddress("usdt"), a.Address)
	require.Equal(uint8(6), a.Decimals)
	require.True(a.Whitelisted)
	require.Equal("1000", a.Balances[0].Amount)

	for _, bad := range []string{"USDT:6:1", "USDT:x:1:1", "USDT:6:abc:1", "USDT:6:1:1.5"} {
		_, err = parseGenesisAsset(bad, owner)
		require.Error(err, bad)
	}
}

func TestBuildExecutionProposal(t *testing.T) {
	require := require.New(t)
	proposeArgs = proposeArguments{CallType: "update_max_supply", Call: `{"maxSupply":"42"}`, Description: "cap"}

	p, err := buildProposal(types.ProposalKindExecution)
	require.NoError(err)
	require.Equal(types.ModuleAddress(types.TokenModule), p.Target)

	tp, body, err := tx.UnmarshalCall(p.Calldata)
	require.NoError(err)
	require.Equal(tx.KHRTTxTypeUpdateMaxSupply, tp)
	require.Equal("42", body.(*tx.MaxSupplyTx).MaxSupply.Dec())

	proposeArgs.CallType = "nope"
	_, err = buildProposal(types.ProposalKindExecution)
	require.Error(err)

	proposeArgs = proposeArguments{Account: "nope"}
	_, err = buildProposal(types.ProposalKindMemberAdd)
	require.Error(err)
}
