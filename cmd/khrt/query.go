package main

import (
	"bytes"
	"encoding/json"
	"fmt"

	"github.com/spf13/cobra"
)

var queryUrl string

var queryCmd = &cobra.Command{
	Use:   "query <path> [data]",
	Short: "Query the node: accounts, roles, council, proposals, positions, token, assets",
	Long: `Query one of the app paths and print the JSON result, e.g.

  khrt query accounts 0x...
  khrt query proposals 3
  khrt query positions 0xUSER/0xASSET`,
	Args: cobra.RangeArgs(1, 2),
	RunE: func(cmd *cobra.Command, args []string) error {
		cli, err := newClient(queryUrl)
		if err != nil {
			return err
		}
		var data []byte
		if len(args) == 2 {
			data = []byte(args[1])
		}
		value, err := abciQuery(cmd.Context(), cli, "/"+args[0]+"/", data)
		if err != nil {
			return err
		}
		var out bytes.Buffer
		if err := json.Indent(&out, value, "", "  "); err != nil {
			return err
		}
		fmt.Fprintln(cmd.OutOrStdout(), out.String())
		return nil
	},
}

func init() {
	urlFlag(queryCmd, &queryUrl)
}
