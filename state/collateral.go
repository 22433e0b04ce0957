package state

import (
	"encoding/json"
	"fmt"

	"github.com/calehh/khrt-app/types"
	"github.com/ethereum/go-ethereum/common"
	"github.com/holiman/uint256"
)

// StableToken is what the ledger needs from the token.
type StableToken interface {
	Mint(caller, to common.Address, amount *uint256.Int) error
	BurnFrom(caller, from common.Address, amount *uint256.Int) error
	IsAuthorizedMinter(account common.Address) bool
	IsCollateralWhitelisted(asset common.Address) bool
	Decimals() uint8
}

// AssetVault moves collateral asset units.
type AssetVault interface {
	Move(asset, from, to common.Address, amount *uint256.Int) error
	Decimals(asset common.Address) (uint8, bool)
}

type Governance interface {
	IsGovernance(addr common.Address) bool
}

type AssetConfig struct {
	Ratio    *uint256.Int `json:"ratio"`
	Decimals uint8        `json:"decimals"`
}

type Position struct {
	Deposited *uint256.Int `json:"deposited"`
	Minted    *uint256.Int `json:"minted"`
}

func (p *Position) clone() *Position {
	return &Position{Deposited: p.Deposited.Clone(), Minted: p.Minted.Clone()}
}

type collateralData struct {
	Configs   map[common.Address]*AssetConfig                  `json:"configs"`
	Positions map[common.Address]map[common.Address]*Position `json:"positions"`
	Totals    map[common.Address]*uint256.Int                  `json:"totals"`
}

// CollateralLedger locks whitelisted assets and mints KHRT against them at a
// governance-set ratio.
type CollateralLedger struct {
	env   *env
	token StableToken
	vault AssetVault
	gov   Governance
	self  common.Address
	guard guard
	data  collateralData
}

func NewCollateralLedger(e *env, token StableToken, vault AssetVault, gov Governance) *CollateralLedger {
	return &CollateralLedger{
		env:   e,
		token: token,
		vault: vault,
		gov:   gov,
		self:  types.ModuleAddress(types.CollateralModule),
		data: collateralData{
			Configs:   make(map[common.Address]*AssetConfig),
			Positions: make(map[common.Address]map[common.Address]*Position),
			Totals:    make(map[common.Address]*uint256.Int),
		},
	}
}

func (l *CollateralLedger) clone(e *env, token StableToken, vault AssetVault, gov Governance) *CollateralLedger {
	n := &CollateralLedger{env: e, token: token, vault: vault, gov: gov, self: l.self}
	n.data.Configs = make(map[common.Address]*AssetConfig, len(l.data.Configs))
	for k, c := range l.data.Configs {
		n.data.Configs[k] = &AssetConfig{Ratio: c.Ratio.Clone(), Decimals: c.Decimals}
	}
	n.data.Positions = make(map[common.Address]map[common.Address]*Position, len(l.data.Positions))
	for user, ps := range l.data.Positions {
		m := make(map[common.Address]*Position, len(ps))
		for asset, p := range ps {
			m[asset] = p.clone()
		}
		n.data.Positions[user] = m
	}
	n.data.Totals = copyAmounts(l.data.Totals)
	return n
}

func (l *CollateralLedger) marshal() ([]byte, error) {
	return json.Marshal(&l.data)
}

func (l *CollateralLedger) unmarshal(bz []byte) error {
	if err := json.Unmarshal(bz, &l.data); err != nil {
		return err
	}
	if l.data.Configs == nil {
		l.data.Configs = make(map[common.Address]*AssetConfig)
	}
	if l.data.Positions == nil {
		l.data.Positions = make(map[common.Address]map[common.Address]*Position)
	}
	if l.data.Totals == nil {
		l.data.Totals = make(map[common.Address]*uint256.Int)
	}
	return nil
}

func (l *CollateralLedger) SetAssetRatio(caller, asset common.Address, ratio *uint256.Int) error {
	if !l.gov.IsGovernance(caller) {
		return ErrNotGovernance
	}
	if asset == (common.Address{}) {
		return ErrZeroAddress
	}
	if !l.token.IsCollateralWhitelisted(asset) {
		return fmt.Errorf("%w: %v", ErrAssetNotWhitelisted, asset)
	}
	if ratio == nil || ratio.IsZero() {
		return ErrInvalidRatio
	}
	decimals, ok := l.vault.Decimals(asset)
	if !ok {
		decimals = DefaultAssetDecimals
	}
	l.data.Configs[asset] = &AssetConfig{Ratio: ratio.Clone(), Decimals: decimals}
	l.env.emit(types.EncodeEventAssetRatio(&types.EventAssetRatio{
		Asset: asset,
		Ratio: ratio.Clone(),
	}))
	return nil
}

func (l *CollateralLedger) config(asset common.Address) (*AssetConfig, error) {
	c, ok := l.data.Configs[asset]
	if !ok || c.Ratio.IsZero() {
		return nil, fmt.Errorf("%w: %v", ErrRatioNotSet, asset)
	}
	return c, nil
}

func (l *CollateralLedger) position(user, asset common.Address) *Position {
	if p, ok := l.data.Positions[user][asset]; ok {
		return p.clone()
	}
	return &Position{Deposited: new(uint256.Int), Minted: new(uint256.Int)}
}

func (l *CollateralLedger) setPosition(user, asset common.Address, p *Position) {
	ps := l.data.Positions[user]
	if p.Deposited.IsZero() && p.Minted.IsZero() {
		delete(ps, asset)
		if len(ps) == 0 {
			delete(l.data.Positions, user)
		}
		return
	}
	if ps == nil {
		ps = make(map[common.Address]*Position)
		l.data.Positions[user] = ps
	}
	ps[asset] = p
}

// Deposit locks amount of asset from caller and mints the KHRT it is worth.
func (l *CollateralLedger) Deposit(caller, asset common.Address, amount *uint256.Int) (*uint256.Int, error) {
	if amount == nil || amount.IsZero() {
		return nil, ErrZeroAmount
	}
	release, err := l.guard.enter()
	if err != nil {
		return nil, err
	}
	defer release()

	if !l.token.IsCollateralWhitelisted(asset) {
		return nil, fmt.Errorf("%w: %v", ErrAssetNotWhitelisted, asset)
	}
	cfg, err := l.config(asset)
	if err != nil {
		return nil, err
	}
	if !l.token.IsAuthorizedMinter(l.self) {
		return nil, ErrNoMintAuthority
	}
	minted, err := CollateralToToken(amount, cfg.Ratio, cfg.Decimals, l.token.Decimals())
	if err != nil {
		return nil, err
	}
	if minted.IsZero() {
		return nil, ErrBelowMinimumMint
	}

	if err := l.vault.Move(asset, caller, l.self, amount); err != nil {
		return nil, err
	}
	p := l.position(caller, asset)
	p.Deposited.Add(p.Deposited, amount)
	p.Minted.Add(p.Minted, minted)
	l.setPosition(caller, asset, p)
	total := amountOf(l.data.Totals, asset)
	setAmount(l.data.Totals, asset, total.Add(total, amount))

	if err := l.token.Mint(l.self, caller, minted); err != nil {
		return nil, err
	}
	l.env.emit(types.EncodeEventCollateral(&types.EventCollateral{
		User:       caller,
		Asset:      asset,
		Collateral: amount.Clone(),
		KHRT:       minted.Clone(),
		Deposit:    true,
	}))
	return minted, nil
}

// Withdraw burns khrt from caller and releases collateral. Repaying the whole
// minted amount releases everything left in the position.
func (l *CollateralLedger) Withdraw(caller, asset common.Address, khrt *uint256.Int) (*uint256.Int, error) {
	if khrt == nil || khrt.IsZero() {
		return nil, ErrZeroAmount
	}
	release, err := l.guard.enter()
	if err != nil {
		return nil, err
	}
	defer release()

	cfg, err := l.config(asset)
	if err != nil {
		return nil, err
	}
	p := l.position(caller, asset)
	if p.Minted.Lt(khrt) {
		return nil, fmt.Errorf("%w: minted %s", ErrInsufficientMinted, p.Minted.Dec())
	}
	remaining := new(uint256.Int).Sub(p.Minted, khrt)

	var out *uint256.Int
	if remaining.IsZero() {
		out = p.Deposited.Clone()
	} else {
		out, err = TokenToCollateral(khrt, cfg.Ratio, cfg.Decimals, l.token.Decimals())
		if err != nil {
			return nil, err
		}
		if out.Gt(p.Deposited) {
			return nil, fmt.Errorf("%w: need %s have %s", ErrInsufficientCollateral, out.Dec(), p.Deposited.Dec())
		}
		required, err := TokenToCollateral(remaining, cfg.Ratio, cfg.Decimals, l.token.Decimals())
		if err != nil {
			return nil, err
		}
		left := new(uint256.Int).Sub(p.Deposited, out)
		if left.Lt(required) {
			return nil, fmt.Errorf("%w: %s left, %s required", ErrWouldViolateMinimumRatio, left.Dec(), required.Dec())
		}
	}

	p.Deposited.Sub(p.Deposited, out)
	p.Minted = remaining
	l.setPosition(caller, asset, p)
	total := amountOf(l.data.Totals, asset)
	setAmount(l.data.Totals, asset, total.Sub(total, out))

	if err := l.token.BurnFrom(l.self, caller, khrt); err != nil {
		return nil, err
	}
	if !out.IsZero() {
		if err := l.vault.Move(asset, l.self, caller, out); err != nil {
			return nil, err
		}
	}
	l.env.emit(types.EncodeEventCollateral(&types.EventCollateral{
		User:       caller,
		Asset:      asset,
		Collateral: out.Clone(),
		KHRT:       khrt.Clone(),
	}))
	return out, nil
}

type PositionView struct {
	Balance             *uint256.Int `json:"balance"`
	Minted              *uint256.Int `json:"minted"`
	RatioBasisPoints    *uint256.Int `json:"ratioBasisPoints"`
	MaxWithdrawableKHRT *uint256.Int `json:"maxWithdrawableKHRT"`
}

// Position reports the user's holdings for asset. The ratio is the deposited
// collateral over what the minted amount requires, in basis points.
func (l *CollateralLedger) Position(user, asset common.Address) *PositionView {
	p := l.position(user, asset)
	view := &PositionView{
		Balance:             p.Deposited,
		Minted:              p.Minted,
		RatioBasisPoints:    new(uint256.Int),
		MaxWithdrawableKHRT: new(uint256.Int),
	}
	cfg, err := l.config(asset)
	if err != nil || p.Minted.IsZero() {
		return view
	}
	dec := l.token.Decimals()
	required, err := TokenToCollateral(p.Minted, cfg.Ratio, cfg.Decimals, dec)
	if err != nil || required.IsZero() {
		return view
	}
	if bps, err := mulDiv(p.Deposited, uint256.NewInt(10_000), required); err == nil {
		view.RatioBasisPoints = bps
	}
	if p.Deposited.Gt(required) {
		excess := new(uint256.Int).Sub(p.Deposited, required)
		if w, err := CollateralToToken(excess, cfg.Ratio, cfg.Decimals, dec); err == nil {
			if w.Gt(p.Minted) {
				w = p.Minted.Clone()
			}
			view.MaxWithdrawableKHRT = w
		}
	}
	return view
}

func (l *CollateralLedger) AssetConfig(asset common.Address) (*AssetConfig, bool) {
	c, ok := l.data.Configs[asset]
	if !ok {
		return nil, false
	}
	return &AssetConfig{Ratio: c.Ratio.Clone(), Decimals: c.Decimals}, true
}

func (l *CollateralLedger) TotalCollateral(asset common.Address) *uint256.Int {
	return amountOf(l.data.Totals, asset)
}

// CollateralRequired is the asset amount needed to back khrt, rounded up.
func (l *CollateralLedger) CollateralRequired(asset common.Address, khrt *uint256.Int) (*uint256.Int, error) {
	cfg, err := l.config(asset)
	if err != nil {
		return nil, err
	}
	return TokenToCollateral(khrt, cfg.Ratio, cfg.Decimals, l.token.Decimals())
}

// MintAmount previews what depositing amount of asset would mint.
func (l *CollateralLedger) MintAmount(asset common.Address, amount *uint256.Int) (*uint256.Int, error) {
	cfg, err := l.config(asset)
	if err != nil {
		return nil, err
	}
	return CollateralToToken(amount, cfg.Ratio, cfg.Decimals, l.token.Decimals())
}

// Positions lists a user's assets with an open position.
func (l *CollateralLedger) Positions(user common.Address) map[common.Address]*PositionView {
	res := make(map[common.Address]*PositionView)
	for asset := range l.data.Positions[user] {
		res[asset] = l.Position(user, asset)
	}
	return res
}
