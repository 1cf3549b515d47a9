package cli

import (
	"fmt"
	"os"

	"github.com/fatih/color"
	"github.com/spf13/cobra"
)

var onboardSiteURL string

var onboardCmd = &cobra.Command{
	Use:   "onboard <company-name>",
	Short: "Research a company and create it in the store",
	Args:  cobra.ExactArgs(1),
	Run:   runOnboard,
}

func init() {
	onboardCmd.Flags().StringVar(&onboardSiteURL, "site", "", "company website URL to research")
}

func runOnboard(cmd *cobra.Command, args []string) {
	printHeader("🚀 CEOVirtual Onboard")

	rt, err := buildRuntime()
	if err != nil {
		fmt.Printf("Config error: %v\n", err)
		os.Exit(1)
	}

	name := args[0]
	fmt.Printf("Researching %q", name)
	if onboardSiteURL != "" {
		fmt.Printf(" (%s)", onboardSiteURL)
	}
	fmt.Println("...")

	result, err := rt.researcher.Onboard(cmd.Context(), name, onboardSiteURL)
	if err != nil {
		fmt.Printf("Onboard failed: %v\n", err)
		os.Exit(1)
	}

	fmt.Println(color.GreenString("✓ Company created: %s", result.CompanyID))
	if result.Profile.Industry != "" {
		fmt.Printf("Industry: %s\n", result.Profile.Industry)
	}
	if len(result.Profile.Findings) > 0 {
		fmt.Printf("Initial facts: %d\n", len(result.Profile.Findings))
	}
	fmt.Println()
	fmt.Println(result.Greeting)
}
