package state

import (
	"encoding/json"
	"fmt"

	"github.com/calehh/khrt-app/types"
	"github.com/ethereum/go-ethereum/common"
	"github.com/holiman/uint256"
)

// RoleSource is the slice of the authority registry the token consults.
type RoleSource interface {
	HasRole(caller common.Address, role common.Hash, account common.Address) (bool, error)
	IsGovernance(addr common.Address) bool
	EmergencyMode() bool
	EmergencyAdmin() common.Address
}

type tokenData struct {
	Name           string                                            `json:"name"`
	Symbol         string                                            `json:"symbol"`
	Decimals       uint8                                             `json:"decimals"`
	TotalSupply    *uint256.Int                                      `json:"totalSupply"`
	MaxSupply      *uint256.Int                                      `json:"maxSupply"`
	Balances       map[common.Address]*uint256.Int                   `json:"balances"`
	Allowances     map[common.Address]map[common.Address]*uint256.Int `json:"allowances"`
	Blacklist      map[common.Address]bool                           `json:"blacklist"`
	Collateral     map[common.Address]bool                           `json:"collateral"`
	Paused         bool                                              `json:"paused"`
	LocalEmergency bool                                              `json:"localEmergency"`
}

// Token is the KHRT ledger. Every balance change passes beforeTransfer.
type Token struct {
	env   *env
	roles RoleSource
	self  common.Address
	data  tokenData
}

func NewToken(e *env, roles RoleSource, name, symbol string, decimals uint8, maxSupply *uint256.Int) *Token {
	return &Token{
		env:   e,
		roles: roles,
		self:  types.ModuleAddress(types.TokenModule),
		data: tokenData{
			Name:        name,
			Symbol:      symbol,
			Decimals:    decimals,
			TotalSupply: new(uint256.Int),
			MaxSupply:   maxSupply.Clone(),
			Balances:    make(map[common.Address]*uint256.Int),
			Allowances:  make(map[common.Address]map[common.Address]*uint256.Int),
			Blacklist:   make(map[common.Address]bool),
			Collateral:  make(map[common.Address]bool),
		},
	}
}

func (t *Token) clone(e *env, roles RoleSource) *Token {
	n := &Token{env: e, roles: roles, self: t.self, data: t.data}
	n.data.TotalSupply = t.data.TotalSupply.Clone()
	n.data.MaxSupply = t.data.MaxSupply.Clone()
	n.data.Balances = copyAmounts(t.data.Balances)
	n.data.Allowances = make(map[common.Address]map[common.Address]*uint256.Int, len(t.data.Allowances))
	for owner, a := range t.data.Allowances {
		n.data.Allowances[owner] = copyAmounts(a)
	}
	n.data.Blacklist = copyMap(t.data.Blacklist)
	n.data.Collateral = copyMap(t.data.Collateral)
	return n
}

func (t *Token) marshal() ([]byte, error) {
	return json.Marshal(&t.data)
}

func (t *Token) unmarshal(bz []byte) error {
	if err := json.Unmarshal(bz, &t.data); err != nil {
		return err
	}
	if t.data.TotalSupply == nil {
		t.data.TotalSupply = new(uint256.Int)
	}
	if t.data.MaxSupply == nil {
		t.data.MaxSupply = new(uint256.Int)
	}
	if t.data.Balances == nil {
		t.data.Balances = make(map[common.Address]*uint256.Int)
	}
	if t.data.Allowances == nil {
		t.data.Allowances = make(map[common.Address]map[common.Address]*uint256.Int)
	}
	if t.data.Blacklist == nil {
		t.data.Blacklist = make(map[common.Address]bool)
	}
	if t.data.Collateral == nil {
		t.data.Collateral = make(map[common.Address]bool)
	}
	return nil
}

func (t *Token) beforeTransfer(from, to common.Address) error {
	if t.data.Paused {
		return ErrPaused
	}
	if t.data.LocalEmergency || t.roles.EmergencyMode() {
		return ErrEmergencyActive
	}
	if from != (common.Address{}) && t.data.Blacklist[from] {
		return fmt.Errorf("%w: %v", ErrBlacklisted, from)
	}
	if to != (common.Address{}) && t.data.Blacklist[to] {
		return fmt.Errorf("%w: %v", ErrBlacklisted, to)
	}
	return nil
}

// move is the only place balances and supply change.
func (t *Token) move(from, to common.Address, amount *uint256.Int) error {
	if err := t.beforeTransfer(from, to); err != nil {
		return err
	}
	if from == (common.Address{}) {
		supply, err := add(t.data.TotalSupply, amount)
		if err != nil {
			return err
		}
		if supply.Gt(t.data.MaxSupply) {
			return ErrMaxSupplyExceeded
		}
		t.data.TotalSupply = supply
	} else {
		bal := amountOf(t.data.Balances, from)
		if bal.Lt(amount) {
			return fmt.Errorf("%w: %v has %s", ErrInsufficientBalance, from, bal.Dec())
		}
		setAmount(t.data.Balances, from, bal.Sub(bal, amount))
	}
	if to == (common.Address{}) {
		t.data.TotalSupply = new(uint256.Int).Sub(t.data.TotalSupply, amount)
	} else {
		bal := amountOf(t.data.Balances, to)
		setAmount(t.data.Balances, to, bal.Add(bal, amount))
	}
	t.env.emit(types.EncodeEventTransfer(&types.EventTransfer{
		From:   from,
		To:     to,
		Amount: amount.Clone(),
	}))
	return nil
}

func (t *Token) hasRole(role common.Hash, account common.Address) (bool, error) {
	return t.roles.HasRole(t.self, role, account)
}

func (t *Token) Transfer(caller, to common.Address, amount *uint256.Int) error {
	if to == (common.Address{}) {
		return ErrZeroAddress
	}
	if amount.IsZero() {
		return ErrZeroAmount
	}
	return t.move(caller, to, amount)
}

func (t *Token) spendAllowance(owner, spender common.Address, amount *uint256.Int) error {
	allowed := amountOf(t.data.Allowances[owner], spender)
	if allowed.Lt(amount) {
		return fmt.Errorf("%w: %s < %s", ErrInsufficientAllowance, allowed.Dec(), amount.Dec())
	}
	if allowed.Eq(maxUint256) {
		return nil
	}
	t.setAllowance(owner, spender, allowed.Sub(allowed, amount))
	return nil
}

func (t *Token) setAllowance(owner, spender common.Address, amount *uint256.Int) {
	a := t.data.Allowances[owner]
	if a == nil {
		a = make(map[common.Address]*uint256.Int)
		t.data.Allowances[owner] = a
	}
	setAmount(a, spender, amount)
	if len(a) == 0 {
		delete(t.data.Allowances, owner)
	}
}

func (t *Token) TransferFrom(caller, from, to common.Address, amount *uint256.Int) error {
	if from == (common.Address{}) || to == (common.Address{}) {
		return ErrZeroAddress
	}
	if amount.IsZero() {
		return ErrZeroAmount
	}
	if err := t.spendAllowance(from, caller, amount); err != nil {
		return err
	}
	return t.move(from, to, amount)
}

func (t *Token) Approve(caller, spender common.Address, amount *uint256.Int) error {
	if spender == (common.Address{}) {
		return ErrZeroAddress
	}
	t.setAllowance(caller, spender, amount.Clone())
	t.env.emit(types.EncodeEventApproval(&types.EventApproval{
		Owner:   caller,
		Spender: spender,
		Amount:  amount.Clone(),
	}))
	return nil
}

func (t *Token) Mint(caller, to common.Address, amount *uint256.Int) error {
	ok, err := t.hasRole(types.RoleMinter, caller)
	if err != nil {
		return err
	}
	if !ok {
		return fmt.Errorf("%w: MINTER %v", ErrMissingRole, caller)
	}
	if to == (common.Address{}) {
		return ErrZeroAddress
	}
	if amount.IsZero() {
		return ErrZeroAmount
	}
	return t.move(common.Address{}, to, amount)
}

func (t *Token) Burn(caller common.Address, amount *uint256.Int) error {
	if amount.IsZero() {
		return ErrZeroAmount
	}
	return t.move(caller, common.Address{}, amount)
}

// BurnFrom burns from another account. Burners skip the allowance check.
func (t *Token) BurnFrom(caller, from common.Address, amount *uint256.Int) error {
	if from == (common.Address{}) {
		return ErrZeroAddress
	}
	if amount.IsZero() {
		return ErrZeroAmount
	}
	burner, err := t.hasRole(types.RoleBurner, caller)
	if err != nil {
		return err
	}
	if !burner {
		if err := t.spendAllowance(from, caller, amount); err != nil {
			return err
		}
	}
	return t.move(from, common.Address{}, amount)
}

func (t *Token) UpdateBlacklist(caller, account common.Address, blacklisted bool) error {
	ok, err := t.hasRole(types.RoleBlacklistManager, caller)
	if err != nil {
		return err
	}
	if !ok {
		return fmt.Errorf("%w: BLACKLIST_MANAGER %v", ErrMissingRole, caller)
	}
	if account == (common.Address{}) {
		return ErrZeroAddress
	}
	if blacklisted {
		t.data.Blacklist[account] = true
	} else {
		delete(t.data.Blacklist, account)
	}
	t.env.emit(types.EncodeEventBlacklist(&types.EventBlacklist{
		Account:     account,
		Blacklisted: blacklisted,
		Sender:      caller,
	}))
	return nil
}

func (t *Token) UpdateMaxSupply(caller common.Address, next *uint256.Int) error {
	if !t.roles.IsGovernance(caller) {
		return ErrNotGovernance
	}
	if next.Lt(t.data.TotalSupply) {
		return fmt.Errorf("%w: %s < %s", ErrMaxSupplyBelowTotal, next.Dec(), t.data.TotalSupply.Dec())
	}
	prev := t.data.MaxSupply
	t.data.MaxSupply = next.Clone()
	t.env.emit(types.EncodeEventMaxSupply(&types.EventMaxSupply{
		Previous: prev,
		Next:     next.Clone(),
	}))
	return nil
}

func (t *Token) UpdateCollateralWhitelist(caller, asset common.Address, allowed bool) error {
	if !t.roles.IsGovernance(caller) {
		return ErrNotGovernance
	}
	if asset == (common.Address{}) {
		return ErrZeroAddress
	}
	if allowed {
		t.data.Collateral[asset] = true
	} else {
		delete(t.data.Collateral, asset)
	}
	t.env.emit(types.EncodeEventCollateralWhitelist(&types.EventCollateralWhitelist{
		Asset:   asset,
		Allowed: allowed,
	}))
	return nil
}

func (t *Token) checkEmergencyAdmin(caller common.Address) error {
	if caller != t.roles.EmergencyAdmin() {
		return ErrNotEmergencyAdmin
	}
	return nil
}

func (t *Token) Pause(caller common.Address) error {
	return t.setPaused(caller, true)
}

func (t *Token) Unpause(caller common.Address) error {
	return t.setPaused(caller, false)
}

func (t *Token) setPaused(caller common.Address, paused bool) error {
	if err := t.checkEmergencyAdmin(caller); err != nil {
		return err
	}
	t.data.Paused = paused
	t.env.emit(types.EncodeEventSwitch(&types.EventSwitch{
		Type:   types.EventPausedType,
		Active: paused,
		Sender: caller,
	}))
	return nil
}

func (t *Token) ToggleLocalEmergency(caller common.Address, active bool) error {
	if err := t.checkEmergencyAdmin(caller); err != nil {
		return err
	}
	t.data.LocalEmergency = active
	t.env.emit(types.EncodeEventSwitch(&types.EventSwitch{
		Type:   types.EventLocalEmergencyType,
		Active: active,
		Sender: caller,
	}))
	return nil
}

// IsAuthorizedMinter reports false when the registry refuses to answer.
func (t *Token) IsAuthorizedMinter(account common.Address) bool {
	ok, err := t.hasRole(types.RoleMinter, account)
	if err != nil {
		t.env.logger.Debug("minter lookup refused", "account", account, "err", err)
		return false
	}
	return ok
}

func (t *Token) IsCollateralWhitelisted(asset common.Address) bool {
	return t.data.Collateral[asset]
}

func (t *Token) IsBlacklisted(account common.Address) bool {
	return t.data.Blacklist[account]
}

func (t *Token) BalanceOf(account common.Address) *uint256.Int {
	return amountOf(t.data.Balances, account)
}

func (t *Token) Allowance(owner, spender common.Address) *uint256.Int {
	return amountOf(t.data.Allowances[owner], spender)
}

func (t *Token) TotalSupply() *uint256.Int { return t.data.TotalSupply.Clone() }

func (t *Token) MaxSupply() *uint256.Int { return t.data.MaxSupply.Clone() }

func (t *Token) Decimals() uint8 { return t.data.Decimals }

func (t *Token) Paused() bool { return t.data.Paused }

func (t *Token) LocalEmergency() bool { return t.data.LocalEmergency }

type TokenInfo struct {
	Name           string           `json:"name"`
	Symbol         string           `json:"symbol"`
	Decimals       uint8            `json:"decimals"`
	TotalSupply    string           `json:"totalSupply"`
	MaxSupply      string           `json:"maxSupply"`
	Paused         bool             `json:"paused"`
	LocalEmergency bool             `json:"localEmergency"`
	Collateral     []common.Address `json:"collateral"`
}

func (t *Token) Info() *TokenInfo {
	return &TokenInfo{
		Name:           t.data.Name,
		Symbol:         t.data.Symbol,
		Decimals:       t.data.Decimals,
		TotalSupply:    t.data.TotalSupply.Dec(),
		MaxSupply:      t.data.MaxSupply.Dec(),
		Paused:         t.data.Paused,
		LocalEmergency: t.data.LocalEmergency,
		Collateral:     sortedKeys(t.data.Collateral),
	}
}
