package main

import (
	"fmt"

	"github.com/calehh/khrt-app/crypto"
	"github.com/spf13/cobra"
)

var keyCmd = &cobra.Command{
	Use:   "key",
	Short: "Manage account keys",
}

var keyNewCmd = &cobra.Command{
	Use:   "new <file>",
	Short: "Generate a secp256k1 account key",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		addr, err := crypto.GenerateKeyFile(args[0])
		if err != nil {
			return err
		}
		fmt.Fprintln(cmd.OutOrStdout(), addr.Hex())
		return nil
	},
}

var keyShowCmd = &cobra.Command{
	Use:   "show <file>",
	Short: "Print the address of an account key",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		key, err := crypto.LoadKey(args[0])
		if err != nil {
			return err
		}
		fmt.Fprintln(cmd.OutOrStdout(), crypto.KeyAddress(key).Hex())
		return nil
	},
}

var keyValidatorCmd = &cobra.Command{
	Use:   "validator",
	Short: "Print the node's consensus public key and address",
	Args:  cobra.ExactArgs(0),
	RunE: func(cmd *cobra.Command, args []string) error {
		pv, err := crypto.LoadFilePV(validatorKeyPath())
		if err != nil {
			return err
		}
		fmt.Fprintf(cmd.OutOrStdout(), "pk:%x address:%s\n", pv.PublicKey(), pv.Address())
		return nil
	},
}

var validatorHome string

func validatorKeyPath() string {
	return validatorHome + "/config/priv_validator_key.json"
}

func init() {
	homeFlag(keyValidatorCmd, &validatorHome)
	keyCmd.AddCommand(keyNewCmd, keyShowCmd, keyValidatorCmd)
}
