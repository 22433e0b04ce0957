package main

import (
	"github.com/calehh/khrt-app/tx"
	"github.com/spf13/cobra"
)

var collateralCmd = &cobra.Command{
	Use:   "collateral",
	Short: "Collateral ledger and asset transactions",
}

func assetAmount(args []string) (tx.DepositTx, error) {
	asset, err := parseAddr(args[0])
	if err != nil {
		return tx.DepositTx{}, err
	}
	amount, err := parseAmount(args[1])
	if err != nil {
		return tx.DepositTx{}, err
	}
	return tx.DepositTx{Asset: asset, Amount: amount}, nil
}

func init() {
	collateralCmd.AddCommand(
		txCommand("deposit <asset> <amount>", "lock collateral and mint KHRT", 2, tx.KHRTTxTypeDeposit, func(args []string) (any, error) {
			d, err := assetAmount(args)
			if err != nil {
				return nil, err
			}
			return &d, nil
		}),
		txCommand("withdraw <asset> <khrt amount>", "burn KHRT and release collateral", 2, tx.KHRTTxTypeWithdraw, func(args []string) (any, error) {
			d, err := assetAmount(args)
			if err != nil {
				return nil, err
			}
			return &tx.WithdrawTx{Asset: d.Asset, Amount: d.Amount}, nil
		}),
		txCommand("set-ratio <asset> <ratio>", "set an asset's collateral ratio", 2, tx.KHRTTxTypeSetAssetRatio, func(args []string) (any, error) {
			asset, err := parseAddr(args[0])
			if err != nil {
				return nil, err
			}
			return &tx.AssetRatioTx{Asset: asset, Ratio: args[1]}, nil
		}),
		txCommand("send <asset> <to> <amount>", "transfer a collateral asset", 3, tx.KHRTTxTypeAssetTransfer, func(args []string) (any, error) {
			asset, err := parseAddr(args[0])
			if err != nil {
				return nil, err
			}
			to, err := parseAddr(args[1])
			if err != nil {
				return nil, err
			}
			amount, err := parseAmount(args[2])
			if err != nil {
				return nil, err
			}
			return &tx.AssetTransferTx{Asset: asset, To: to, Amount: amount}, nil
		}),
	)
}
