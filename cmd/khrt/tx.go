package main

import (
	"fmt"
	"strings"

	"github.com/calehh/khrt-app/tx"
	"github.com/spf13/cobra"
)

var txArgs txFlags

var txCmd = &cobra.Command{
	Use:   "tx <type> <json body>",
	Short: "Sign and broadcast any transaction type",
	Long: `Sign and broadcast a transaction given its type name and JSON body, e.g.

  khrt tx update_max_supply '{"maxSupply":"5000000000000"}' -k owner_priv_key`,
	Args: cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		tp, ok := tx.ParseTxType(args[0])
		if !ok {
			return fmt.Errorf("unknown tx type %q, one of: %s", args[0], txTypeList())
		}
		body, err := tx.DecodeBody(tp, []byte(args[1]))
		if err != nil {
			return err
		}
		return sendTx(cmd, &txArgs, tp, body)
	},
}

func init() {
	txArgs.register(txCmd)
}

func txTypeList() string {
	var names []string
	for _, tp := range tx.TxTypes() {
		names = append(names, tp.String())
	}
	return strings.Join(names, ", ")
}

// txCommand builds a subcommand whose body comes from build.
func txCommand(use, short string, nargs int, tp tx.KHRTTxType, build func(args []string) (any, error)) *cobra.Command {
	f := &txFlags{}
	cmd := &cobra.Command{
		Use:   use,
		Short: short,
		Args:  cobra.ExactArgs(nargs),
		RunE: func(cmd *cobra.Command, args []string) error {
			body, err := build(args)
			if err != nil {
				return err
			}
			return sendTx(cmd, f, tp, body)
		},
	}
	f.register(cmd)
	return cmd
}
