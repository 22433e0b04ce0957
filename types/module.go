package types

import (
	"strings"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/crypto"
)

const (
	AuthorityModule  = "authority"
	CouncilModule    = "council"
	TokenModule      = "token"
	CollateralModule = "collateral"
	BankModule       = "bank"
)

// ModuleAddress is the account a module uses as sender when it calls into
// another module.
func ModuleAddress(name string) common.Address {
	return common.BytesToAddress(crypto.Keccak256([]byte("khrt/module/" + name))[12:])
}

var (
	RoleMinter           = crypto.Keccak256Hash([]byte("MINTER_ROLE"))
	RoleBurner           = crypto.Keccak256Hash([]byte("BURNER_ROLE"))
	RoleBlacklistManager = crypto.Keccak256Hash([]byte("BLACKLIST_MANAGER_ROLE"))
	RoleGovernance       = crypto.Keccak256Hash([]byte("GOVERNANCE_ROLE"))
)

var roleNames = map[string]common.Hash{
	"MINTER":            RoleMinter,
	"BURNER":            RoleBurner,
	"BLACKLIST_MANAGER": RoleBlacklistManager,
	"GOVERNANCE":        RoleGovernance,
}

// RoleByName accepts the short name, the *_ROLE form or a 0x hash.
func RoleByName(name string) (common.Hash, bool) {
	n := strings.TrimSuffix(strings.ToUpper(name), "_ROLE")
	if r, ok := roleNames[n]; ok {
		return r, true
	}
	if strings.HasPrefix(name, "0x") && len(name) == 66 {
		h := common.HexToHash(name)
		return h, IsKnownRole(h)
	}
	return common.Hash{}, false
}

func IsKnownRole(role common.Hash) bool {
	for _, r := range roleNames {
		if r == role {
			return true
		}
	}
	return false
}

func RoleName(role common.Hash) string {
	for n, r := range roleNames {
		if r == role {
			return n
		}
	}
	return role.Hex()
}
