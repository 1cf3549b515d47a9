// Package cli contains the ceovirtual commands.
package cli

import (
	"fmt"

	"github.com/fatih/color"
	"github.com/spf13/cobra"
)

var (
	// version can be overridden at build time via:
	// go build -ldflags "-X github.com/ceovirtual/ceovirtual/internal/cli.version=1.2.3"
	version = "1.3.0"
	logo    = "\n" +
		"   ____ _____ _____     ___      _               _\n" +
		"  / ___| ____/ _ \\ \\   / (_)_ __| |_ _   _  __ _| |\n" +
		" | |   |  _|| | | \\ \\ / /| | '__| __| | | |/ _` | |\n" +
		" | |___| |__| |_| |\\ V / | | |  | |_| |_| | (_| | |\n" +
		"  \\____|_____\\___/  \\_/  |_|_|   \\__|\\__,_|\\__,_|_|\n"
)

var rootCmd = &cobra.Command{
	Use:   "ceovirtual",
	Short: "CEOVirtual - AI chief executive with durable company memory",
	Long:  color.CyanString(logo) + "\nA conversational assistant that accumulates durable, attributable company knowledge across chat turns.",
	Run: func(cmd *cobra.Command, args []string) {
		cmd.Help()
	},
}

// Execute runs the root command.
func Execute() error {
	return rootCmd.Execute()
}

func printHeader(title string) {
	fmt.Println(color.CyanString(logo))
	if title != "" {
		fmt.Println(title)
		fmt.Println("─────────────────────")
	}
}

func init() {
	rootCmd.AddCommand(versionCmd)
	rootCmd.AddCommand(statusCmd)
	rootCmd.AddCommand(serveCmd)
	rootCmd.AddCommand(onboardCmd)
	rootCmd.AddCommand(chatCmd)
	rootCmd.AddCommand(resetCmd)
	rootCmd.AddCommand(deleteCmd)
}
