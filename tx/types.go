package tx

import (
	"errors"
	"sort"

	"github.com/calehh/khrt-app/types"
	"github.com/ethereum/go-ethereum/common"
)

type KHRTTxType uint8

const (
	KHRTTxTypeUnknown KHRTTxType = 0

	// authority
	KHRTTxTypeGrantRole            KHRTTxType = 1
	KHRTTxTypeRevokeRole           KHRTTxType = 2
	KHRTTxTypeProposeRoleChange    KHRTTxType = 3
	KHRTTxTypeExecuteRoleChange    KHRTTxType = 4
	KHRTTxTypeSetAuthorizedCaller  KHRTTxType = 5
	KHRTTxTypeToggleEmergencyMode  KHRTTxType = 6
	KHRTTxTypeUpdateController     KHRTTxType = 7
	KHRTTxTypeCloseSetup           KHRTTxType = 8
	KHRTTxTypeUpdateEmergencyAdmin KHRTTxType = 9

	// council
	KHRTTxTypePropose             KHRTTxType = 20
	KHRTTxTypeVote                KHRTTxType = 21
	KHRTTxTypeExecute             KHRTTxType = 22
	KHRTTxTypeUpdateCouncilConfig KHRTTxType = 23

	// token
	KHRTTxTypeTransfer                  KHRTTxType = 40
	KHRTTxTypeTransferFrom              KHRTTxType = 41
	KHRTTxTypeApprove                   KHRTTxType = 42
	KHRTTxTypeMint                      KHRTTxType = 43
	KHRTTxTypeBurn                      KHRTTxType = 44
	KHRTTxTypeBurnFrom                  KHRTTxType = 45
	KHRTTxTypeUpdateBlacklist           KHRTTxType = 46
	KHRTTxTypeUpdateMaxSupply           KHRTTxType = 47
	KHRTTxTypeUpdateCollateralWhitelist KHRTTxType = 48
	KHRTTxTypePause                     KHRTTxType = 49
	KHRTTxTypeUnpause                   KHRTTxType = 50
	KHRTTxTypeToggleLocalEmergency      KHRTTxType = 51

	// collateral
	KHRTTxTypeDeposit       KHRTTxType = 60
	KHRTTxTypeWithdraw      KHRTTxType = 61
	KHRTTxTypeSetAssetRatio KHRTTxType = 62

	// bank
	KHRTTxTypeAssetTransfer KHRTTxType = 70
)

var txTypeNames = map[KHRTTxType]string{
	KHRTTxTypeGrantRole:                 "grant_role",
	KHRTTxTypeRevokeRole:                "revoke_role",
	KHRTTxTypeProposeRoleChange:         "propose_role_change",
	KHRTTxTypeExecuteRoleChange:         "execute_role_change",
	KHRTTxTypeSetAuthorizedCaller:       "set_authorized_caller",
	KHRTTxTypeToggleEmergencyMode:       "toggle_emergency_mode",
	KHRTTxTypeUpdateController:          "update_controller",
	KHRTTxTypeCloseSetup:                "close_setup",
	KHRTTxTypeUpdateEmergencyAdmin:      "update_emergency_admin",
	KHRTTxTypePropose:                   "propose",
	KHRTTxTypeVote:                      "vote",
	KHRTTxTypeExecute:                   "execute",
	KHRTTxTypeUpdateCouncilConfig:       "update_council_config",
	KHRTTxTypeTransfer:                  "transfer",
	KHRTTxTypeTransferFrom:              "transfer_from",
	KHRTTxTypeApprove:                   "approve",
	KHRTTxTypeMint:                      "mint",
	KHRTTxTypeBurn:                      "burn",
	KHRTTxTypeBurnFrom:                  "burn_from",
	KHRTTxTypeUpdateBlacklist:           "update_blacklist",
	KHRTTxTypeUpdateMaxSupply:           "update_max_supply",
	KHRTTxTypeUpdateCollateralWhitelist: "update_collateral_whitelist",
	KHRTTxTypePause:                     "pause",
	KHRTTxTypeUnpause:                   "unpause",
	KHRTTxTypeToggleLocalEmergency:      "toggle_local_emergency",
	KHRTTxTypeDeposit:                   "deposit",
	KHRTTxTypeWithdraw:                  "withdraw",
	KHRTTxTypeSetAssetRatio:             "set_asset_ratio",
	KHRTTxTypeAssetTransfer:             "asset_transfer",
}

func (t KHRTTxType) String() string {
	if n, ok := txTypeNames[t]; ok {
		return n
	}
	return "unknown"
}

// Module is the name of the module that executes transactions of this type.
func (t KHRTTxType) Module() string {
	switch {
	case t >= KHRTTxTypeGrantRole && t <= KHRTTxTypeUpdateEmergencyAdmin:
		return types.AuthorityModule
	case t >= KHRTTxTypePropose && t <= KHRTTxTypeUpdateCouncilConfig:
		return types.CouncilModule
	case t >= KHRTTxTypeTransfer && t <= KHRTTxTypeToggleLocalEmergency:
		return types.TokenModule
	case t >= KHRTTxTypeDeposit && t <= KHRTTxTypeSetAssetRatio:
		return types.CollateralModule
	case t == KHRTTxTypeAssetTransfer:
		return types.BankModule
	}
	return ""
}

// Target is the module address an Execution proposal must name to run a call
// of this type.
func (t KHRTTxType) Target() (common.Address, bool) {
	m := t.Module()
	if m == "" {
		return common.Address{}, false
	}
	return types.ModuleAddress(m), true
}

func ParseTxType(name string) (KHRTTxType, bool) {
	for t, n := range txTypeNames {
		if n == name {
			return t, true
		}
	}
	return KHRTTxTypeUnknown, false
}

const (
	KHRTTxVersion0 uint8 = 0
	KHRTTxVersion1 uint8 = 1
)

var (
	ErrInvalidTx            = errors.New("invalid tx")
	ErrUnsupportedTxType    = errors.New("unsupported tx type")
	ErrUnsupportedTxVersion = errors.New("unsupported tx version")
	ErrInvalidSignature     = errors.New("invalid tx signature")
)

// TxTypes lists every supported type in ascending order.
func TxTypes() []KHRTTxType {
	res := make([]KHRTTxType, 0, len(txTypeNames))
	for t := range txTypeNames {
		res = append(res, t)
	}
	sort.Slice(res, func(i, j int) bool { return res[i] < res[j] })
	return res
}
