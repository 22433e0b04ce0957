package main

import (
	"encoding/json"
	"fmt"
	"math/rand"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/calehh/khrt-app/config"
	"github.com/calehh/khrt-app/state"
	"github.com/calehh/khrt-app/types"
	cmtos "github.com/cometbft/cometbft/libs/os"
	cmttypes "github.com/cometbft/cometbft/types"
	"github.com/ethereum/go-ethereum/common"
	"github.com/spf13/cobra"
)

// council keys written by init; the first also acts as bootstrap and
// emergency admin
var councilKeyNames = []string{"owner", "council1", "council2"}

type printInfo struct {
	ChainID    string          `json:"chain_id"`
	NodeID     string          `json:"node_id"`
	Accounts   []accountInfo   `json:"accounts"`
	AppMessage json.RawMessage `json:"app_message"`
}

type accountInfo struct {
	Name    string         `json:"name"`
	Address common.Address `json:"address"`
	KeyFile string         `json:"key_file"`
}

func displayInfo(info printInfo) error {
	out, err := json.MarshalIndent(info, "", " ")
	if err != nil {
		return err
	}
	_, err = fmt.Fprintf(os.Stderr, "%s\n", out)
	return err
}

type initArguments struct {
	Home      string
	ChainID   string
	Overwrite bool
	Assets    []string
}

var initArgs initArguments

var initCmd = &cobra.Command{
	Use:   "init",
	Short: "Initialize node keys, council accounts, genesis and configuration files",
	Args:  cobra.ExactArgs(0),
	RunE:  initRun,
}

func init() {
	homeFlag(initCmd, &initArgs.Home)
	initCmd.Flags().BoolVarP(&initArgs.Overwrite, FlagOverwrite, "o", false, "overwrite the genesis.json file")
	initCmd.Flags().StringVar(&initArgs.ChainID, FlagChainID, "", "genesis file chain-id, if left blank will be randomly created")
	initCmd.Flags().StringSliceVar(&initArgs.Assets, FlagAsset, []string{"USDT:6:1:1000000000000"},
		"collateral asset SYMBOL:DECIMALS:RATIO:OWNER_BALANCE, repeatable")
}

// assetAddress derives a stable address for a genesis asset symbol.
func assetAddress(symbol string) common.Address {
	return types.ModuleAddress("asset/" + strings.ToLower(symbol))
}

func parseGenesisAsset(s string, owner common.Address) (types.GenesisAsset, error) {
	parts := strings.Split(s, ":")
	if len(parts) != 4 {
		return types.GenesisAsset{}, fmt.Errorf("asset %q: want SYMBOL:DECIMALS:RATIO:OWNER_BALANCE", s)
	}
	decimals, err := strconv.ParseUint(parts[1], 10, 8)
	if err != nil {
		return types.GenesisAsset{}, fmt.Errorf("asset %q decimals: %w", s, err)
	}
	if _, err := state.ParseRatio(parts[2]); err != nil {
		return types.GenesisAsset{}, fmt.Errorf("asset %q ratio: %w", s, err)
	}
	if _, err := parseAmount(parts[3]); err != nil {
		return types.GenesisAsset{}, err
	}
	return types.GenesisAsset{
		Address:     assetAddress(parts[0]),
		Symbol:      parts[0],
		Decimals:    uint8(decimals),
		Ratio:       parts[2],
		Whitelisted: true,
		Balances:    []types.GenesisBalance{{Address: owner, Amount: parts[3]}},
	}, nil
}

func initRun(cmd *cobra.Command, args []string) error {
	chainID := initArgs.ChainID
	if chainID == "" {
		chainID = fmt.Sprintf("khrt-chain-%v", rand.Uint64())
	}
	appConfig := config.NewKHRTConfig(initArgs.Home)

	genFile := appConfig.GenesisFile()
	if !initArgs.Overwrite && cmtos.FileExists(genFile) {
		return fmt.Errorf("genesis file %s already exists, use --%s to replace it", genFile, FlagOverwrite)
	}

	nodeID, pk, err := config.InitializeNodeValidatorFiles(appConfig, nil)
	if err != nil {
		return err
	}

	var accounts []accountInfo
	var council []types.GenesisCouncilMember
	for _, name := range councilKeyNames {
		addr, err := config.InitializeAccount(appConfig, name)
		if err != nil {
			return fmt.Errorf("create %s key: %w", name, err)
		}
		accounts = append(accounts, accountInfo{Name: name, Address: addr, KeyFile: appConfig.KeyFile(name)})
		council = append(council, types.GenesisCouncilMember{Address: addr, Power: types.DefaultPower})
	}
	owner := accounts[0].Address

	genesis := types.DefaultGenesisState(owner, council)
	for _, a := range initArgs.Assets {
		asset, err := parseGenesisAsset(a, owner)
		if err != nil {
			return err
		}
		genesis.Assets = append(genesis.Assets, asset)
	}
	if err = genesis.Validate(); err != nil {
		return err
	}
	appState, err := json.MarshalIndent(genesis, "", "  ")
	if err != nil {
		return err
	}

	appGenesis := &types.GenesisDoc{
		GenesisTime:     time.Now(),
		ChainID:         chainID,
		ConsensusParams: cmttypes.DefaultConsensusParams(),
		InitialHeight:   1,
		Validators: []types.GenesisValidator{
			{Address: pk.Address(), PubKey: pk, Power: types.DefaultPower},
		},
		AppState: appState,
	}
	if err = types.ExportGenesisFile(appGenesis, genFile); err != nil {
		return fmt.Errorf("failed to export genesis file: %w", err)
	}
	if err = config.WriteConfigFile(filepath.Join(appConfig.RootDir, "config", "config.toml"), appConfig); err != nil {
		return err
	}
	return displayInfo(printInfo{
		ChainID:    chainID,
		NodeID:     nodeID,
		Accounts:   accounts,
		AppMessage: appState,
	})
}
