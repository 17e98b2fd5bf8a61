package cmd

import (
	"fmt"

	"github.com/spf13/cobra"
)

const version = "0.1.0"

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print the version number",
	Long:  `Display the current version of the igfx CLI.`,
	Run: func(cmd *cobra.Command, args []string) {
		fmt.Printf("igfx version %s\n", version)
		fmt.Println("An automated FX trading bot for IG Markets")
		fmt.Println("https://github.com/rustyeddy/igfx")
	},
}

func init() {
	rootCmd.AddCommand(versionCmd)
}
