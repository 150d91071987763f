package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"cxlint/internal/rubyparse"
	"cxlint/internal/version"
)

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print version and build information",
	Args:  cobra.NoArgs,
	Run: func(cmd *cobra.Command, args []string) {
		fmt.Println(version.Full())
		parser := "tree-sitter (cgo)"
		if !rubyparse.IsAvailable() {
			parser = "unavailable (built without cgo)"
		}
		fmt.Printf("Ruby parser: %s\n", parser)
	},
}

func init() {
	rootCmd.AddCommand(versionCmd)
}
