package main

import (
	"context"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"github.com/calehh/khrt-app/crypto"
	"github.com/calehh/khrt-app/state"
	"github.com/calehh/khrt-app/tx"
	"github.com/cometbft/cometbft/rpc/client/http"
	"github.com/ethereum/go-ethereum/common"
	"github.com/holiman/uint256"
	"github.com/spf13/cobra"
)

func newClient(url string) (*http.HTTP, error) {
	cli, err := http.New(url, "/websocket")
	if err != nil {
		return nil, fmt.Errorf("new client: %w", err)
	}
	return cli, nil
}

func abciQuery(ctx context.Context, cli *http.HTTP, path string, data []byte) ([]byte, error) {
	res, err := cli.ABCIQuery(ctx, path, data)
	if err != nil {
		return nil, err
	}
	if res.Response.Code != 0 {
		return nil, fmt.Errorf("query %s: code %d: %s", path, res.Response.Code, res.Response.Log)
	}
	return res.Response.Value, nil
}

func queryAccount(ctx context.Context, cli *http.HTTP, addr common.Address) (*state.Account, error) {
	dat, err := abciQuery(ctx, cli, "/accounts/", addr.Bytes())
	if err != nil {
		return nil, err
	}
	var act state.Account
	if err = json.Unmarshal(dat, &act); err != nil {
		return nil, err
	}
	return &act, nil
}

func parseAddr(s string) (common.Address, error) {
	if !common.IsHexAddress(s) {
		return common.Address{}, fmt.Errorf("invalid address %q", s)
	}
	return common.HexToAddress(s), nil
}

func parseAmount(s string) (*uint256.Int, error) {
	v, err := uint256.FromDecimal(strings.ReplaceAll(s, "_", ""))
	if err != nil {
		return nil, fmt.Errorf("invalid amount %q: %w", s, err)
	}
	return v, nil
}

// sendTx signs body with the key in f and broadcasts it. The nonce is taken
// from the node unless the flag was set.
func sendTx(cmd *cobra.Command, f *txFlags, tp tx.KHRTTxType, body any) error {
	ctx := cmd.Context()
	if ctx == nil {
		ctx = context.Background()
	}
	key, err := crypto.LoadKey(f.KeyPath)
	if err != nil {
		return err
	}
	from := crypto.KeyAddress(key)
	cli, err := newClient(f.Url)
	if err != nil {
		return err
	}
	gres, err := cli.Genesis(ctx)
	if err != nil {
		return fmt.Errorf("get chain genesis: %w", err)
	}
	chainId := gres.Genesis.ChainID

	nonce := f.Nonce
	if !cmd.Flags().Changed(FlagNonce) {
		act, err := queryAccount(ctx, cli, from)
		if err != nil {
			return err
		}
		nonce = act.Nonce
	}
	btx := &tx.KHRTTx{
		Version: tx.KHRTTxVersion1,
		Type:    tp,
		Nonce:   nonce,
		Tx:      body,
	}
	if err = btx.Sign(key, chainId); err != nil {
		return err
	}
	dat, err := tx.MarshalKHRTTx(btx)
	if err != nil {
		return err
	}
	if f.NoSend {
		fmt.Fprintln(cmd.OutOrStdout(), hex.EncodeToString(dat))
		return nil
	}
	res, err := cli.BroadcastTxSync(ctx, dat)
	if err != nil {
		return fmt.Errorf("broadcast tx: %w", err)
	}
	out, _ := json.Marshal(res)
	fmt.Fprintln(cmd.OutOrStdout(), string(out))
	if res.Code != 0 {
		return errors.New(res.Log)
	}
	return nil
}
