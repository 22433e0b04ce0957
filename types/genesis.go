package types

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"time"

	"github.com/cometbft/cometbft/crypto"
	cmtjson "github.com/cometbft/cometbft/libs/json"
	cmttypes "github.com/cometbft/cometbft/types"
	"github.com/ethereum/go-ethereum/common"
)

type GenesisValidator struct {
	Address crypto.Address `json:"address"`
	PubKey  crypto.PubKey  `json:"pub_key"`
	Power   int64          `json:"power"`
	Name    string         `json:"name"`
}

// GenesisDoc defines the initial conditions for a CometBFT blockchain, in particular its validator set.
type GenesisDoc struct {
	GenesisTime     time.Time                 `json:"genesis_time"`
	ChainID         string                    `json:"chain_id"`
	InitialHeight   int64                     `json:"initial_height"`
	ConsensusParams *cmttypes.ConsensusParams `json:"consensus_params,omitempty"`
	Validators      []GenesisValidator        `json:"validators"`
	AppHash         []byte                    `json:"app_hash"`
	AppState        json.RawMessage           `json:"app_state"`
}

// SaveAs is a utility method for saving GenensisDoc as a JSON file.
func (genDoc *GenesisDoc) SaveAs(file string) error {
	genDocBytes, err := cmtjson.MarshalIndent(genDoc, "", "  ")
	if err != nil {
		return err
	}
	return os.WriteFile(file, genDocBytes, 0o600)
}

func (ag *GenesisDoc) ValidateAndComplete() error {
	if ag.ChainID == "" {
		return errors.New("genesis doc must include non-empty chain_id")
	}

	if ag.InitialHeight < 0 {
		return fmt.Errorf("initial_height cannot be negative (got %v)", ag.InitialHeight)
	}

	if ag.InitialHeight == 0 {
		ag.InitialHeight = 1
	}

	if ag.GenesisTime.IsZero() {
		ag.GenesisTime = time.Now().Round(0).UTC()
	}

	return nil
}

func ExportGenesisFile(genesis *GenesisDoc, genFile string) error {
	if err := genesis.ValidateAndComplete(); err != nil {
		return err
	}
	return genesis.SaveAs(genFile)
}

const KHRTModuleName = "khrt"
const DefaultPower = 1000

type GenesisCouncilMember struct {
	Address common.Address `json:"address"`
	Power   uint64         `json:"power"`
}

type GenesisBalance struct {
	Address common.Address `json:"address"`
	Amount  string         `json:"amount"`
}

type GenesisAsset struct {
	Address     common.Address   `json:"address"`
	Symbol      string           `json:"symbol"`
	Decimals    uint8            `json:"decimals"`
	Ratio       string           `json:"ratio"`
	Whitelisted bool             `json:"whitelisted"`
	Balances    []GenesisBalance `json:"balances"`
}

type GenesisRole struct {
	Role    string         `json:"role"`
	Account common.Address `json:"account"`
}

type GenesisToken struct {
	Name      string           `json:"name"`
	Symbol    string           `json:"symbol"`
	Decimals  uint8            `json:"decimals"`
	MaxSupply string           `json:"max_supply"`
	Balances  []GenesisBalance `json:"balances"`
}

type GenesisCouncilParams struct {
	VotingPeriod  uint64 `json:"voting_period"`
	TimeLock      uint64 `json:"time_lock"`
	QuorumPercent uint64 `json:"quorum_percent"`
}

// GenesisState is the app_state section of the genesis document.
type GenesisState struct {
	Controller        common.Address         `json:"controller"`
	Bootstrap         common.Address         `json:"bootstrap"`
	EmergencyAdmin    common.Address         `json:"emergency_admin"`
	SetupWindow       uint64                 `json:"setup_window"`
	CloseSetup        bool                   `json:"close_setup"`
	Council           []GenesisCouncilMember `json:"council"`
	CouncilParams     GenesisCouncilParams   `json:"council_params"`
	Token             GenesisToken           `json:"token"`
	Assets            []GenesisAsset         `json:"assets"`
	Roles             []GenesisRole          `json:"roles"`
	AuthorizedCallers []common.Address       `json:"authorized_callers"`
}

func (g *GenesisState) Validate() error {
	if g.EmergencyAdmin == (common.Address{}) {
		return errors.New("genesis emergency_admin must be set")
	}
	if g.Controller == (common.Address{}) && g.Bootstrap == (common.Address{}) {
		return errors.New("genesis needs a controller or a bootstrap account")
	}
	if g.CloseSetup && g.Controller == (common.Address{}) {
		return errors.New("genesis cannot close setup without a controller")
	}
	seen := make(map[common.Address]bool)
	for _, m := range g.Council {
		if m.Address == (common.Address{}) || m.Power == 0 {
			return fmt.Errorf("invalid council member %v", m.Address)
		}
		if seen[m.Address] {
			return fmt.Errorf("duplicate council member %v", m.Address)
		}
		seen[m.Address] = true
	}
	assets := make(map[common.Address]bool)
	for _, a := range g.Assets {
		if a.Address == (common.Address{}) {
			return errors.New("genesis asset address must be set")
		}
		if assets[a.Address] {
			return fmt.Errorf("duplicate asset %v", a.Address)
		}
		assets[a.Address] = true
	}
	return nil
}

// DefaultGenesisState hands governance to the council module with the given
// accounts as the founding council.
func DefaultGenesisState(owner common.Address, council []GenesisCouncilMember) *GenesisState {
	return &GenesisState{
		Controller:     ModuleAddress(CouncilModule),
		Bootstrap:      owner,
		EmergencyAdmin: owner,
		SetupWindow:    uint64((7 * 24 * time.Hour).Seconds()),
		CloseSetup:     true,
		Council:        council,
		CouncilParams: GenesisCouncilParams{
			VotingPeriod:  uint64((3 * 24 * time.Hour).Seconds()),
			TimeLock:      uint64((24 * time.Hour).Seconds()),
			QuorumPercent: 60,
		},
		Token: GenesisToken{
			Name:      "Khmer Riel Token",
			Symbol:    "KHRT",
			Decimals:  6,
			MaxSupply: "1000000000000000000",
		},
		Roles: []GenesisRole{
			{Role: "MINTER", Account: ModuleAddress(CollateralModule)},
			{Role: "BURNER", Account: ModuleAddress(CollateralModule)},
		},
	}
}
