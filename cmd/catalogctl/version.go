package main

import (
	"encoding/json"
	"fmt"

	"github.com/spf13/cobra"
)

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "print catalogctl's version",
	RunE: func(cmd *cobra.Command, args []string) error {
		if jsonOutput {
			enc := json.NewEncoder(cmd.OutOrStdout())
			return enc.Encode(map[string]string{"version": Version, "build": Build})
		}
		fmt.Fprintf(cmd.OutOrStdout(), "catalogctl version %s (%s)\n", Version, Build)
		return nil
	},
}

func init() {
	rootCmd.AddCommand(versionCmd)
}
