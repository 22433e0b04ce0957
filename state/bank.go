package state

import (
	"encoding/json"
	"fmt"

	"github.com/calehh/khrt-app/types"
	"github.com/ethereum/go-ethereum/common"
	"github.com/holiman/uint256"
)

const DefaultAssetDecimals = 18

type Asset struct {
	Address  common.Address `json:"address"`
	Symbol   string         `json:"symbol"`
	Decimals uint8          `json:"decimals"`
	Supply   *uint256.Int   `json:"supply"`
}

type bankData struct {
	Assets   map[common.Address]*Asset                          `json:"assets"`
	Balances map[common.Address]map[common.Address]*uint256.Int `json:"balances"`
}

// Bank holds the collateral asset balances that the ledger pulls from and
// releases to.
type Bank struct {
	env  *env
	data bankData
}

func NewBank(e *env) *Bank {
	return &Bank{
		env: e,
		data: bankData{
			Assets:   make(map[common.Address]*Asset),
			Balances: make(map[common.Address]map[common.Address]*uint256.Int),
		},
	}
}

func (b *Bank) clone(e *env) *Bank {
	n := &Bank{env: e}
	n.data.Assets = make(map[common.Address]*Asset, len(b.data.Assets))
	for k, a := range b.data.Assets {
		aa := *a
		aa.Supply = a.Supply.Clone()
		n.data.Assets[k] = &aa
	}
	n.data.Balances = make(map[common.Address]map[common.Address]*uint256.Int, len(b.data.Balances))
	for k, bals := range b.data.Balances {
		n.data.Balances[k] = copyAmounts(bals)
	}
	return n
}

func (b *Bank) marshal() ([]byte, error) {
	return json.Marshal(&b.data)
}

func (b *Bank) unmarshal(bz []byte) error {
	if err := json.Unmarshal(bz, &b.data); err != nil {
		return err
	}
	if b.data.Assets == nil {
		b.data.Assets = make(map[common.Address]*Asset)
	}
	if b.data.Balances == nil {
		b.data.Balances = make(map[common.Address]map[common.Address]*uint256.Int)
	}
	return nil
}

func (b *Bank) RegisterAsset(asset common.Address, symbol string, decimals uint8) error {
	if asset == (common.Address{}) {
		return ErrZeroAddress
	}
	if _, ok := b.data.Assets[asset]; ok {
		return fmt.Errorf("asset %v already registered", asset)
	}
	b.data.Assets[asset] = &Asset{
		Address:  asset,
		Symbol:   symbol,
		Decimals: decimals,
		Supply:   new(uint256.Int),
	}
	b.data.Balances[asset] = make(map[common.Address]*uint256.Int)
	return nil
}

// Credit issues new units of asset to holder. Used at genesis only.
func (b *Bank) Credit(asset, holder common.Address, amount *uint256.Int) error {
	a, ok := b.data.Assets[asset]
	if !ok {
		return fmt.Errorf("%w: %v", ErrUnknownAsset, asset)
	}
	supply, err := add(a.Supply, amount)
	if err != nil {
		return err
	}
	a.Supply = supply
	bals := b.data.Balances[asset]
	bal := amountOf(bals, holder)
	setAmount(bals, holder, bal.Add(bal, amount))
	return nil
}

// Move transfers asset units between two holders.
func (b *Bank) Move(asset, from, to common.Address, amount *uint256.Int) error {
	if _, ok := b.data.Assets[asset]; !ok {
		return fmt.Errorf("%w: %v", ErrUnknownAsset, asset)
	}
	if to == (common.Address{}) {
		return ErrZeroAddress
	}
	if amount.IsZero() {
		return ErrZeroAmount
	}
	bals := b.data.Balances[asset]
	bal := amountOf(bals, from)
	if bal.Lt(amount) {
		return fmt.Errorf("%w: %v holds %s of %v", ErrInsufficientBalance, from, bal.Dec(), asset)
	}
	setAmount(bals, from, bal.Sub(bal, amount))
	dst := amountOf(bals, to)
	setAmount(bals, to, dst.Add(dst, amount))
	b.env.emit(types.EncodeEventAssetTransfer(&types.EventAssetTransfer{
		Asset:  asset,
		From:   from,
		To:     to,
		Amount: amount.Clone(),
	}))
	return nil
}

func (b *Bank) Transfer(caller, asset, to common.Address, amount *uint256.Int) error {
	return b.Move(asset, caller, to, amount)
}

func (b *Bank) Decimals(asset common.Address) (uint8, bool) {
	a, ok := b.data.Assets[asset]
	if !ok {
		return 0, false
	}
	return a.Decimals, true
}

func (b *Bank) Asset(asset common.Address) (*Asset, bool) {
	a, ok := b.data.Assets[asset]
	if !ok {
		return nil, false
	}
	aa := *a
	aa.Supply = a.Supply.Clone()
	return &aa, true
}

func (b *Bank) Assets() []*Asset {
	var res []*Asset
	for _, addr := range sortedKeys(b.data.Assets) {
		a, _ := b.Asset(addr)
		res = append(res, a)
	}
	return res
}

func (b *Bank) BalanceOf(asset, holder common.Address) *uint256.Int {
	return amountOf(b.data.Balances[asset], holder)
}
