package config

import (
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/calehh/khrt-app/crypto"
	"github.com/cometbft/cometbft/config"
	cmtcrypto "github.com/cometbft/cometbft/crypto"
	"github.com/cometbft/cometbft/p2p"
	"github.com/cometbft/cometbft/privval"
	"github.com/ethereum/go-ethereum/common"
)

const (
	DefaultHomeName     = ".khrt"
	DefaultIndexerDB    = "indexer.db"
	DefaultServiceAddr  = "127.0.0.1:8088"
	DefaultPollInterval = 2 * time.Second
)

type AppConfig struct {
	Home          string `mapstructure:"-"`
	TimeoutCommit uint64 `mapstructure:"-"`

	Indexer      bool          `mapstructure:"indexer"`
	IndexerDB    string        `mapstructure:"indexer_db"`
	ServiceAddr  string        `mapstructure:"service_addr"`
	PollInterval time.Duration `mapstructure:"poll_interval"`
}

func DefaultAppConfig(home string) *AppConfig {
	return &AppConfig{
		Home:         home,
		Indexer:      true,
		IndexerDB:    DefaultIndexerDB,
		ServiceAddr:  DefaultServiceAddr,
		PollInterval: DefaultPollInterval,
	}
}

func (c *AppConfig) ValidateBasic() error {
	if c.Indexer && c.IndexerDB == "" {
		return fmt.Errorf("app.indexer_db must be set when the indexer is enabled")
	}
	if c.PollInterval < 0 {
		return fmt.Errorf("app.poll_interval can't be negative")
	}
	return nil
}

// IndexerPath resolves IndexerDB against the home directory.
func (c *AppConfig) IndexerPath() string {
	if filepath.IsAbs(c.IndexerDB) {
		return c.IndexerDB
	}
	return filepath.Join(c.Home, c.IndexerDB)
}

type Config struct {
	*config.Config `mapstructure:",squash"`

	App *AppConfig `mapstructure:"app"`
}

func DefaultHome() string {
	return os.ExpandEnv("$HOME/" + DefaultHomeName)
}

func NewKHRTConfig(home string) *Config {
	if len(home) == 0 {
		home = DefaultHome()
	}
	_ = os.MkdirAll(home+"/config", 0755)
	config := &Config{
		DefaultKHRTCometConfig(),
		DefaultAppConfig(home),
	}
	config.SetRoot(home)
	return config
}

func (c *Config) ValidateBasic() error {
	if err := c.Config.ValidateBasic(); err != nil {
		return err
	}
	return c.App.ValidateBasic()
}

// KeyFile is where init stores the account key called name.
func (c *Config) KeyFile(name string) string {
	return filepath.Join(c.RootDir, "config", name+"_priv_key")
}

// InitializeAccount writes a fresh account key under the config directory.
func InitializeAccount(c *Config, name string) (common.Address, error) {
	return crypto.GenerateKeyFile(c.KeyFile(name))
}

func InitializeNodeValidatorFiles(config *Config, privKey cmtcrypto.PrivKey) (nodeID string, pk cmtcrypto.PubKey, err error) {
	nodeKey, err := p2p.LoadOrGenNodeKey(config.NodeKeyFile())
	if err != nil {
		return "", nil, err
	}
	nodeID = string(nodeKey.ID())

	pvKeyFile := config.PrivValidatorKeyFile()
	if err := os.MkdirAll(filepath.Dir(pvKeyFile), 0o777); err != nil {
		return "", nil, fmt.Errorf("could not create directory %q: %w", filepath.Dir(pvKeyFile), err)
	}

	pvStateFile := config.PrivValidatorStateFile()
	if err := os.MkdirAll(filepath.Dir(pvStateFile), 0o777); err != nil {
		return "", nil, fmt.Errorf("could not create directory %q: %w", filepath.Dir(pvStateFile), err)
	}

	var filePV *privval.FilePV
	if privKey == nil {
		filePV = privval.LoadOrGenFilePV(pvKeyFile, pvStateFile)
	} else {
		filePV = privval.NewFilePV(privKey, pvKeyFile, pvStateFile)
		filePV.Save()
	}
	pukey, err := filePV.GetPubKey()
	if err != nil {
		return "", nil, err
	}

	return nodeID, pukey, nil
}

func DefaultKHRTCometConfig() *config.Config {
	cometConfig := config.DefaultConfig()
	cometConfig.Consensus.TimeoutPropose = time.Second * 3
	cometConfig.Consensus.TimeoutPrevote = time.Second * 1
	cometConfig.Consensus.TimeoutPrecommit = time.Second * 1
	cometConfig.Consensus.TimeoutCommit = time.Millisecond * 1200
	cometConfig.Instrumentation.Prometheus = true
	return cometConfig
}
