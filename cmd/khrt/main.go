package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

var rootCmd = &cobra.Command{
	Use:   "khrt",
	Short: "KHRT is a collateral backed stablecoin chain",
}

func main() {
	rootCmd.AddCommand(
		initCmd,
		nodeCmd,
		versionCmd,
		keyCmd,
		queryCmd,
		txCmd,
		roleCmd,
		councilCmd,
		tokenCmd,
		collateralCmd,
	)
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
