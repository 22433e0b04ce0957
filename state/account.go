package state

import (
	"github.com/ethereum/go-ethereum/common"
)

// Account is the query view of an address across modules.
type Account struct {
	Address     common.Address            `json:"address"`
	Nonce       uint64                    `json:"nonce"`
	Balance     string                    `json:"balance"`
	Roles       []string                  `json:"roles"`
	Council     *CouncilMember            `json:"council,omitempty"`
	Blacklisted bool                      `json:"blacklisted"`
	Assets      map[common.Address]string `json:"assets,omitempty"`
}

func (s *State) GetAccount(addr common.Address) *Account {
	a := &Account{
		Address:     addr,
		Nonce:       s.nonces[addr],
		Balance:     s.token.BalanceOf(addr).Dec(),
		Roles:       s.authority.RolesOf(addr),
		Blacklisted: s.token.IsBlacklisted(addr),
	}
	if m, ok := s.council.Member(addr); ok && m.Active {
		a.Council = m
	}
	for _, asset := range s.bank.Assets() {
		bal := s.bank.BalanceOf(asset.Address, addr)
		if bal.IsZero() {
			continue
		}
		if a.Assets == nil {
			a.Assets = make(map[common.Address]string)
		}
		a.Assets[asset.Address] = bal.Dec()
	}
	return a
}
