package main

import (
	"fmt"

	"github.com/spf13/cobra"
)

// Overridden at build time via -ldflags "-X main.version=...".
var version = "dev"

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print the build version",
	Run: func(cmd *cobra.Command, args []string) {
		fmt.Println("thermo-cli " + version)
	},
}

func init() {
	rootCmd.AddCommand(versionCmd)
}
