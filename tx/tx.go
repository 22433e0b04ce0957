package tx

import (
	"crypto/ecdsa"
	"encoding/json"
	"fmt"

	"github.com/calehh/khrt-app/types"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/crypto"
	"github.com/holiman/uint256"
)

type KHRTTx struct {
	Version uint8          `json:"version"`
	Type    KHRTTxType     `json:"type"`
	Nonce   uint64         `json:"nonce"`
	From    common.Address `json:"from"`
	Tx      any            `json:"tx"`
	Sig     []byte         `json:"sig"`
}

type RoleTx struct {
	Role    string         `json:"role"`
	Account common.Address `json:"account"`
	Reason  string         `json:"reason"`
}

type ProposeRoleChangeTx struct {
	Role    string         `json:"role"`
	Account common.Address `json:"account"`
	Grant   bool           `json:"grant"`
}

type RoleChangeTx struct {
	Id uint64 `json:"id"`
}

type AuthorizedCallerTx struct {
	Caller  common.Address `json:"caller"`
	Allowed bool           `json:"allowed"`
}

type SwitchTx struct {
	Active bool `json:"active"`
}

type AddressTx struct {
	Address common.Address `json:"address"`
}

type EmptyTx struct{}

type ProposeTx struct {
	Kind        types.ProposalKind `json:"kind"`
	Role        string             `json:"role,omitempty"`
	Account     common.Address     `json:"account,omitempty"`
	Grant       bool               `json:"grant,omitempty"`
	Power       uint64             `json:"power,omitempty"`
	Target      common.Address     `json:"target,omitempty"`
	Calldata    []byte             `json:"calldata,omitempty"`
	Description string             `json:"description"`
}

type VoteTx struct {
	Proposal uint64 `json:"proposal"`
	Support  bool   `json:"support"`
}

type ExecuteTx struct {
	Proposal uint64 `json:"proposal"`
}

type CouncilConfigTx struct {
	VotingPeriod  uint64 `json:"votingPeriod"`
	TimeLock      uint64 `json:"timeLock"`
	QuorumPercent uint64 `json:"quorumPercent"`
}

type TransferTx struct {
	To     common.Address `json:"to"`
	Amount *uint256.Int   `json:"amount"`
}

type TransferFromTx struct {
	From   common.Address `json:"from"`
	To     common.Address `json:"to"`
	Amount *uint256.Int   `json:"amount"`
}

type ApproveTx struct {
	Spender common.Address `json:"spender"`
	Amount  *uint256.Int   `json:"amount"`
}

type MintTx struct {
	To     common.Address `json:"to"`
	Amount *uint256.Int   `json:"amount"`
}

type BurnTx struct {
	Amount *uint256.Int `json:"amount"`
}

type BurnFromTx struct {
	From   common.Address `json:"from"`
	Amount *uint256.Int   `json:"amount"`
}

type BlacklistTx struct {
	Account     common.Address `json:"account"`
	Blacklisted bool           `json:"blacklisted"`
}

type MaxSupplyTx struct {
	MaxSupply *uint256.Int `json:"maxSupply"`
}

type CollateralWhitelistTx struct {
	Asset   common.Address `json:"asset"`
	Allowed bool           `json:"allowed"`
}

type DepositTx struct {
	Asset  common.Address `json:"asset"`
	Amount *uint256.Int   `json:"amount"`
}

// WithdrawTx repays Amount KHRT against the Asset position.
type WithdrawTx struct {
	Asset  common.Address `json:"asset"`
	Amount *uint256.Int   `json:"amount"`
}

// AssetRatioTx carries the ratio as a decimal string, "2000" or "0.25".
type AssetRatioTx struct {
	Asset common.Address `json:"asset"`
	Ratio string         `json:"ratio"`
}

type AssetTransferTx struct {
	Asset  common.Address `json:"asset"`
	To     common.Address `json:"to"`
	Amount *uint256.Int   `json:"amount"`
}

// Call is the calldata of an Execution proposal: one transaction body that
// the council module sends as its own.
type Call struct {
	Type KHRTTxType      `json:"type"`
	Tx   json.RawMessage `json:"tx"`
}

func decodeBody[Tx any](dat []byte) (any, error) {
	body := new(Tx)
	if len(dat) == 0 {
		return body, nil
	}
	if err := json.Unmarshal(dat, body); err != nil {
		return nil, err
	}
	return body, nil
}

var bodyDecoders = map[KHRTTxType]func([]byte) (any, error){
	KHRTTxTypeGrantRole:                 decodeBody[RoleTx],
	KHRTTxTypeRevokeRole:                decodeBody[RoleTx],
	KHRTTxTypeProposeRoleChange:         decodeBody[ProposeRoleChangeTx],
	KHRTTxTypeExecuteRoleChange:         decodeBody[RoleChangeTx],
	KHRTTxTypeSetAuthorizedCaller:       decodeBody[AuthorizedCallerTx],
	KHRTTxTypeToggleEmergencyMode:       decodeBody[SwitchTx],
	KHRTTxTypeUpdateController:          decodeBody[AddressTx],
	KHRTTxTypeCloseSetup:                decodeBody[EmptyTx],
	KHRTTxTypeUpdateEmergencyAdmin:      decodeBody[AddressTx],
	KHRTTxTypePropose:                   decodeBody[ProposeTx],
	KHRTTxTypeVote:                      decodeBody[VoteTx],
	KHRTTxTypeExecute:                   decodeBody[ExecuteTx],
	KHRTTxTypeUpdateCouncilConfig:       decodeBody[CouncilConfigTx],
	KHRTTxTypeTransfer:                  decodeBody[TransferTx],
	KHRTTxTypeTransferFrom:              decodeBody[TransferFromTx],
	KHRTTxTypeApprove:                   decodeBody[ApproveTx],
	KHRTTxTypeMint:                      decodeBody[MintTx],
	KHRTTxTypeBurn:                      decodeBody[BurnTx],
	KHRTTxTypeBurnFrom:                  decodeBody[BurnFromTx],
	KHRTTxTypeUpdateBlacklist:           decodeBody[BlacklistTx],
	KHRTTxTypeUpdateMaxSupply:           decodeBody[MaxSupplyTx],
	KHRTTxTypeUpdateCollateralWhitelist: decodeBody[CollateralWhitelistTx],
	KHRTTxTypePause:                     decodeBody[EmptyTx],
	KHRTTxTypeUnpause:                   decodeBody[EmptyTx],
	KHRTTxTypeToggleLocalEmergency:      decodeBody[SwitchTx],
	KHRTTxTypeDeposit:                   decodeBody[DepositTx],
	KHRTTxTypeWithdraw:                  decodeBody[WithdrawTx],
	KHRTTxTypeSetAssetRatio:             decodeBody[AssetRatioTx],
	KHRTTxTypeAssetTransfer:             decodeBody[AssetTransferTx],
}

// DecodeBody parses the body of a tx of the given type.
func DecodeBody(tp KHRTTxType, dat []byte) (any, error) {
	dec, ok := bodyDecoders[tp]
	if !ok {
		return nil, fmt.Errorf("%w: %d", ErrUnsupportedTxType, tp)
	}
	body, err := dec(dat)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidTx, err)
	}
	return body, nil
}

type khrtTxTmpl struct {
	Version uint8           `json:"version"`
	Type    KHRTTxType      `json:"type"`
	Nonce   uint64          `json:"nonce"`
	From    common.Address  `json:"from"`
	Tx      json.RawMessage `json:"tx"`
	Sig     []byte          `json:"sig"`
}

func UnmarshalKHRTTx(dat []byte) (btx *KHRTTx, err error) {
	var txt khrtTxTmpl
	if err = json.Unmarshal(dat, &txt); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidTx, err)
	}
	if txt.Version != KHRTTxVersion1 {
		return nil, fmt.Errorf("%w: %d", ErrUnsupportedTxVersion, txt.Version)
	}
	body, err := DecodeBody(txt.Type, txt.Tx)
	if err != nil {
		return nil, err
	}
	btx = &KHRTTx{
		Version: txt.Version,
		Type:    txt.Type,
		Nonce:   txt.Nonce,
		From:    txt.From,
		Tx:      body,
		Sig:     txt.Sig,
	}
	return
}

func MarshalKHRTTx(btx *KHRTTx) (dat []byte, err error) {
	return json.Marshal(btx)
}

// SigData is the payload a sender signs: the tx with the chain id in place
// of the signature.
func (tx *KHRTTx) SigData(chainID string) (dat []byte, err error) {
	ntx := *tx
	ntx.Sig = []byte(chainID)
	dat, err = json.Marshal(ntx)
	return
}

func (tx *KHRTTx) SigHash(chainID string) ([]byte, error) {
	dat, err := tx.SigData(chainID)
	if err != nil {
		return nil, err
	}
	return crypto.Keccak256(dat), nil
}

// Sign fills From with the key's address and signs the tx for chainID.
func (tx *KHRTTx) Sign(key *ecdsa.PrivateKey, chainID string) error {
	tx.From = crypto.PubkeyToAddress(key.PublicKey)
	h, err := tx.SigHash(chainID)
	if err != nil {
		return err
	}
	tx.Sig, err = crypto.Sign(h, key)
	return err
}

// Verify recovers the signer and checks it is the declared sender.
func (tx *KHRTTx) Verify(chainID string) error {
	if len(tx.Sig) != crypto.SignatureLength {
		return fmt.Errorf("%w: length %d", ErrInvalidSignature, len(tx.Sig))
	}
	h, err := tx.SigHash(chainID)
	if err != nil {
		return err
	}
	pub, err := crypto.SigToPub(h, tx.Sig)
	if err != nil {
		return fmt.Errorf("%w: %v", ErrInvalidSignature, err)
	}
	if signer := crypto.PubkeyToAddress(*pub); signer != tx.From {
		return fmt.Errorf("%w: signed by %v, from %v", ErrInvalidSignature, signer, tx.From)
	}
	return nil
}

func NewCall(tp KHRTTxType, body any) ([]byte, error) {
	if _, ok := bodyDecoders[tp]; !ok {
		return nil, fmt.Errorf("%w: %d", ErrUnsupportedTxType, tp)
	}
	dat, err := json.Marshal(body)
	if err != nil {
		return nil, err
	}
	return json.Marshal(&Call{Type: tp, Tx: dat})
}

func UnmarshalCall(dat []byte) (tp KHRTTxType, body any, err error) {
	var c Call
	if err = json.Unmarshal(dat, &c); err != nil {
		return KHRTTxTypeUnknown, nil, fmt.Errorf("%w: %v", ErrInvalidTx, err)
	}
	body, err = DecodeBody(c.Type, c.Tx)
	return c.Type, body, err
}
