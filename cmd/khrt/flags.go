package main

import (
	"github.com/calehh/khrt-app/config"
	"github.com/spf13/cobra"
)

const (
	FlagHome      = "home"
	FlagChainID   = "chain-id"
	FlagOverwrite = "overwrite"
	FlagURL       = "url"
	FlagKey       = "key"
	FlagNonce     = "nonce"
	FlagAsset     = "asset"
)

const defaultRPC = "http://127.0.0.1:26657"

func homeFlag(cmd *cobra.Command, home *string) {
	cmd.Flags().StringVarP(home, FlagHome, "d", config.DefaultHome(), "home directory")
}

func urlFlag(cmd *cobra.Command, url *string) {
	cmd.Flags().StringVarP(url, FlagURL, "u", defaultRPC, "khrt node rpc url")
}

// txFlags are shared by every command that signs and broadcasts.
type txFlags struct {
	Url     string
	KeyPath string
	Nonce   uint64
	NoSend  bool
}

func (f *txFlags) register(cmd *cobra.Command) {
	urlFlag(cmd, &f.Url)
	cmd.Flags().StringVarP(&f.KeyPath, FlagKey, "k", "", "account key file")
	cmd.Flags().Uint64VarP(&f.Nonce, FlagNonce, "n", 0, "account nonce, queried from the node when unset")
	cmd.Flags().BoolVar(&f.NoSend, "nosend", false, "print the signed tx instead of broadcasting it")
	_ = cmd.MarkFlagRequired(FlagKey)
}
