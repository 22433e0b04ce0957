package tx

import (
	"testing"

	"github.com/calehh/khrt-app/types"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/crypto"
	"github.com/holiman/uint256"
	"github.com/stretchr/testify/require"
)

const chainID = "khrt-test"

func signedDeposit(t *testing.T) (*KHRTTx, common.Address) {
	key, err := crypto.GenerateKey()
	require.NoError(t, err)
	btx := &KHRTTx{
		Version: KHRTTxVersion1,
		Type:    KHRTTxTypeDeposit,
		Nonce:   3,
		Tx: &DepositTx{
			Asset:  common.HexToAddress("0xe0018"),
			Amount: uint256.NewInt(1_500_000),
		},
	}
	require.NoError(t, btx.Sign(key, chainID))
	return btx, crypto.PubkeyToAddress(key.PublicKey)
}

func TestSignAndVerify(t *testing.T) {
	require := require.New(t)
	btx, from := signedDeposit(t)

	require.Equal(from, btx.From)
	require.Len(btx.Sig, crypto.SignatureLength)
	require.NoError(btx.Verify(chainID))
	require.ErrorIs(btx.Verify("other-chain"), ErrInvalidSignature)

	dat, err := MarshalKHRTTx(btx)
	require.NoError(err)
	decoded, err := UnmarshalKHRTTx(dat)
	require.NoError(err)
	require.NoError(decoded.Verify(chainID))
	require.Equal(KHRTTxTypeDeposit, decoded.Type)
	require.Equal(uint64(3), decoded.Nonce)
	body, ok := decoded.Tx.(*DepositTx)
	require.True(ok)
	require.Equal("1500000", body.Amount.Dec())

	// a changed amount no longer matches the signature
	body.Amount = uint256.NewInt(1_500_001)
	require.ErrorIs(decoded.Verify(chainID), ErrInvalidSignature)
}

func TestVerifyRejectsForgedSender(t *testing.T) {
	require := require.New(t)
	btx, _ := signedDeposit(t)

	btx.From = common.HexToAddress("0xd001")
	require.ErrorIs(btx.Verify(chainID), ErrInvalidSignature)

	btx.Sig = btx.Sig[:10]
	require.ErrorIs(btx.Verify(chainID), ErrInvalidSignature)
}

func TestUnmarshalRejects(t *testing.T) {
	require := require.New(t)

	_, err := UnmarshalKHRTTx([]byte(`{"version":1,"type":200,"tx":{}}`))
	require.ErrorIs(err, ErrUnsupportedTxType)

	_, err = UnmarshalKHRTTx([]byte(`{"version":7,"type":40,"tx":{}}`))
	require.ErrorIs(err, ErrUnsupportedTxVersion)

	_, err = UnmarshalKHRTTx([]byte(`{"version":1,"type":40,"tx":{"amount":"abc"}}`))
	require.ErrorIs(err, ErrInvalidTx)

	_, err = UnmarshalKHRTTx([]byte(`not json`))
	require.ErrorIs(err, ErrInvalidTx)

	btx, err := UnmarshalKHRTTx([]byte(`{"version":1,"type":49}`))
	require.NoError(err)
	require.IsType(&EmptyTx{}, btx.Tx)
}

func TestCall(t *testing.T) {
	require := require.New(t)

	dat, err := NewCall(KHRTTxTypeUpdateMaxSupply, &MaxSupplyTx{MaxSupply: uint256.NewInt(42)})
	require.NoError(err)

	tp, body, err := UnmarshalCall(dat)
	require.NoError(err)
	require.Equal(KHRTTxTypeUpdateMaxSupply, tp)
	require.Equal("42", body.(*MaxSupplyTx).MaxSupply.Dec())

	_, err = NewCall(KHRTTxTypeUnknown, nil)
	require.ErrorIs(err, ErrUnsupportedTxType)
}

func TestTxTypeModule(t *testing.T) {
	require := require.New(t)

	require.Equal(types.AuthorityModule, KHRTTxTypeCloseSetup.Module())
	require.Equal(types.CouncilModule, KHRTTxTypeVote.Module())
	require.Equal(types.TokenModule, KHRTTxTypeToggleLocalEmergency.Module())
	require.Equal(types.CollateralModule, KHRTTxTypeSetAssetRatio.Module())
	require.Equal(types.BankModule, KHRTTxTypeAssetTransfer.Module())
	require.Equal("", KHRTTxType(99).Module())

	target, ok := KHRTTxTypeMint.Target()
	require.True(ok)
	require.Equal(types.ModuleAddress(types.TokenModule), target)

	for tp := range bodyDecoders {
		require.NotEmpty(tp.Module(), tp.String())
		parsed, ok := ParseTxType(tp.String())
		require.True(ok)
		require.Equal(tp, parsed)
	}
}
