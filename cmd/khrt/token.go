package main

import (
	"strconv"

	"github.com/calehh/khrt-app/tx"
	"github.com/spf13/cobra"
)

var tokenCmd = &cobra.Command{
	Use:   "token",
	Short: "KHRT token transactions",
}

func addressAmount(args []string) (tx.TransferTx, error) {
	to, err := parseAddr(args[0])
	if err != nil {
		return tx.TransferTx{}, err
	}
	amount, err := parseAmount(args[1])
	if err != nil {
		return tx.TransferTx{}, err
	}
	return tx.TransferTx{To: to, Amount: amount}, nil
}

func switchTx(args []string) (any, error) {
	active, err := strconv.ParseBool(args[0])
	if err != nil {
		return nil, err
	}
	return &tx.SwitchTx{Active: active}, nil
}

func init() {
	tokenCmd.AddCommand(
		txCommand("transfer <to> <amount>", "send KHRT", 2, tx.KHRTTxTypeTransfer, func(args []string) (any, error) {
			t, err := addressAmount(args)
			if err != nil {
				return nil, err
			}
			return &t, nil
		}),
		txCommand("transfer-from <from> <to> <amount>", "send KHRT from an allowance", 3, tx.KHRTTxTypeTransferFrom, func(args []string) (any, error) {
			from, err := parseAddr(args[0])
			if err != nil {
				return nil, err
			}
			t, err := addressAmount(args[1:])
			if err != nil {
				return nil, err
			}
			return &tx.TransferFromTx{From: from, To: t.To, Amount: t.Amount}, nil
		}),
		txCommand("approve <spender> <amount>", "set an allowance", 2, tx.KHRTTxTypeApprove, func(args []string) (any, error) {
			t, err := addressAmount(args)
			if err != nil {
				return nil, err
			}
			return &tx.ApproveTx{Spender: t.To, Amount: t.Amount}, nil
		}),
		txCommand("mint <to> <amount>", "mint KHRT (MINTER role)", 2, tx.KHRTTxTypeMint, func(args []string) (any, error) {
			t, err := addressAmount(args)
			if err != nil {
				return nil, err
			}
			return &tx.MintTx{To: t.To, Amount: t.Amount}, nil
		}),
		txCommand("burn <amount>", "burn own KHRT (BURNER role)", 1, tx.KHRTTxTypeBurn, func(args []string) (any, error) {
			amount, err := parseAmount(args[0])
			if err != nil {
				return nil, err
			}
			return &tx.BurnTx{Amount: amount}, nil
		}),
		txCommand("burn-from <from> <amount>", "burn KHRT from an allowance (BURNER role)", 2, tx.KHRTTxTypeBurnFrom, func(args []string) (any, error) {
			t, err := addressAmount(args)
			if err != nil {
				return nil, err
			}
			return &tx.BurnFromTx{From: t.To, Amount: t.Amount}, nil
		}),
		txCommand("blacklist <account> <blacklisted>", "update the blacklist", 2, tx.KHRTTxTypeUpdateBlacklist, func(args []string) (any, error) {
			account, err := parseAddr(args[0])
			if err != nil {
				return nil, err
			}
			b, err := strconv.ParseBool(args[1])
			if err != nil {
				return nil, err
			}
			return &tx.BlacklistTx{Account: account, Blacklisted: b}, nil
		}),
		txCommand("max-supply <amount>", "update the supply cap", 1, tx.KHRTTxTypeUpdateMaxSupply, func(args []string) (any, error) {
			amount, err := parseAmount(args[0])
			if err != nil {
				return nil, err
			}
			return &tx.MaxSupplyTx{MaxSupply: amount}, nil
		}),
		txCommand("whitelist <asset> <allowed>", "update the collateral whitelist", 2, tx.KHRTTxTypeUpdateCollateralWhitelist, func(args []string) (any, error) {
			asset, err := parseAddr(args[0])
			if err != nil {
				return nil, err
			}
			allowed, err := strconv.ParseBool(args[1])
			if err != nil {
				return nil, err
			}
			return &tx.CollateralWhitelistTx{Asset: asset, Allowed: allowed}, nil
		}),
		txCommand("pause", "pause transfers", 0, tx.KHRTTxTypePause, func(args []string) (any, error) {
			return &tx.EmptyTx{}, nil
		}),
		txCommand("unpause", "resume transfers", 0, tx.KHRTTxTypeUnpause, func(args []string) (any, error) {
			return &tx.EmptyTx{}, nil
		}),
		txCommand("local-emergency <active>", "toggle the token's local emergency", 1, tx.KHRTTxTypeToggleLocalEmergency, switchTx),
	)
}
