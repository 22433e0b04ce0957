package main

import (
	"context"
	"fmt"
	"net/url"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/calehh/khrt-app/app"
	"github.com/calehh/khrt-app/config"
	"github.com/calehh/khrt-app/indexer"
	cmtconfig "github.com/cometbft/cometbft/config"
	cmtflags "github.com/cometbft/cometbft/libs/cli/flags"
	cmtlog "github.com/cometbft/cometbft/libs/log"
	nm "github.com/cometbft/cometbft/node"
	"github.com/cometbft/cometbft/p2p"
	"github.com/cometbft/cometbft/privval"
	"github.com/cometbft/cometbft/proxy"
	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"golang.org/x/sync/errgroup"
)

const shutdownTimeout = 10 * time.Second

var nodeHome string

var nodeCmd = &cobra.Command{
	Use:   "node",
	Short: "Run the KHRT node with its indexer",
	Args:  cobra.ExactArgs(0),
	RunE:  nodeRun,
}

func init() {
	homeFlag(nodeCmd, &nodeHome)
}

func loadConfig(home string) (*config.Config, error) {
	appConfig := &config.Config{
		Config: config.DefaultKHRTCometConfig(),
		App:    config.DefaultAppConfig(home),
	}
	appConfig.SetRoot(home)

	v := viper.New()
	v.SetConfigFile(fmt.Sprintf("%s/%s", home, "config/config.toml"))
	if err := v.ReadInConfig(); err != nil {
		return nil, fmt.Errorf("reading config: %w", err)
	}
	if err := v.Unmarshal(appConfig); err != nil {
		return nil, fmt.Errorf("decoding config: %w", err)
	}
	appConfig.SetRoot(home)
	appConfig.App.Home = home
	appConfig.App.TimeoutCommit = uint64(appConfig.Consensus.TimeoutCommit.Seconds())
	if err := appConfig.ValidateBasic(); err != nil {
		return nil, fmt.Errorf("invalid configuration data: %w", err)
	}
	return appConfig, nil
}

func nodeRun(cmd *cobra.Command, args []string) error {
	appConfig, err := loadConfig(nodeHome)
	if err != nil {
		return err
	}

	pv := privval.LoadFilePV(
		appConfig.PrivValidatorKeyFile(),
		appConfig.PrivValidatorStateFile(),
	)
	nodeKey, err := p2p.LoadNodeKey(appConfig.NodeKeyFile())
	if err != nil {
		return fmt.Errorf("failed to load node's key: %w", err)
	}

	logger := cmtlog.NewTMLogger(cmtlog.NewSyncWriter(os.Stdout))
	logger, err = cmtflags.ParseLogLevel(appConfig.LogLevel, logger, cmtconfig.DefaultLogLevel)
	if err != nil {
		return fmt.Errorf("failed to parse log level: %w", err)
	}

	// the app registers on the default registry so its metrics are served by
	// the node's prometheus listener
	khrtApp, err := app.NewKHRTApp(appConfig.App, logger, prometheus.DefaultRegisterer)
	if err != nil {
		return fmt.Errorf("new app: %w", err)
	}

	node, err := nm.NewNode(
		appConfig.Config,
		pv,
		nodeKey,
		proxy.NewLocalClientCreator(khrtApp),
		nm.DefaultGenesisDocProviderFunc(appConfig.Config),
		cmtconfig.DefaultDBProvider,
		nm.DefaultMetricsProvider(appConfig.Instrumentation),
		logger,
	)
	if err != nil {
		khrtApp.Stop()
		return fmt.Errorf("creating node: %w", err)
	}

	khrtApp.Start(node.BlockStore())
	if err = node.Start(); err != nil {
		khrtApp.Stop()
		return fmt.Errorf("start comet node: %w", err)
	}
	defer func() {
		done := make(chan struct{})
		go func() {
			defer close(done)
			if err := node.Stop(); err != nil {
				logger.Error("stop comet node fail", "err", err)
			}
			node.Wait()
			khrtApp.Stop()
		}()
		select {
		case <-time.After(shutdownTimeout):
			logger.Error("shutdown timed out")
		case <-done:
		}
	}()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	g, ctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		<-ctx.Done()
		return nil
	})
	if appConfig.App.Indexer {
		if err = startIndexer(ctx, g, appConfig, logger); err != nil {
			return err
		}
	}
	return g.Wait()
}

func startIndexer(ctx context.Context, g *errgroup.Group, appConfig *config.Config, logger cmtlog.Logger) error {
	rpcUrl, err := url.Parse(appConfig.RPC.ListenAddress)
	if err != nil {
		return fmt.Errorf("parse rpc address: %w", err)
	}
	rpcUrl.Scheme = "http"
	src, err := indexer.NewRPCSource(rpcUrl.String())
	if err != nil {
		return err
	}
	idx, err := indexer.NewChainIndexer(logger, appConfig.App.IndexerPath(), src, appConfig.App.PollInterval)
	if err != nil {
		return fmt.Errorf("new chain indexer: %w", err)
	}
	gin.SetMode(gin.ReleaseMode)
	svc := indexer.NewService(appConfig.App.ServiceAddr, idx)
	g.Go(func() error {
		defer idx.Close()
		return idx.Start(ctx)
	})
	g.Go(func() error {
		return svc.Start(ctx)
	})
	logger.Info("indexer started", "db", appConfig.App.IndexerPath(), "service", appConfig.App.ServiceAddr)
	return nil
}
