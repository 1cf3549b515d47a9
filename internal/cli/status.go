package cli

import (
	"context"
	"fmt"
	"os"
	"time"

	"github.com/spf13/cobra"

	"github.com/ceovirtual/ceovirtual/internal/config"
	"github.com/ceovirtual/ceovirtual/internal/knowledge"
	"github.com/ceovirtual/ceovirtual/internal/store"
)

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print version information",
	Run: func(cmd *cobra.Command, args []string) {
		printHeader("🏷️ CEOVirtual Version")
		fmt.Printf("Version: %s\n", version)
	},
}

var statusCmd = &cobra.Command{
	Use:   "status",
	Short: "Show configuration and store connectivity",
	Run: func(cmd *cobra.Command, args []string) {
		printHeader("📊 CEOVirtual Status")
		fmt.Printf("Version: %s\n", version)

		path, err := config.ConfigPath()
		if err == nil {
			if _, statErr := os.Stat(path); statErr == nil {
				fmt.Println("Config:  ✓ Found (" + path + ")")
			} else {
				fmt.Println("Config:  ✗ Not found (" + path + ")")
			}
		}

		cfg, err := config.Load()
		if err != nil {
			fmt.Printf("Config:  ✗ Load failed: %v\n", err)
			return
		}
		if cfg.Provider.APIKey != "" {
			fmt.Println("API Key: ✓ Found")
		} else {
			fmt.Println("API Key: ✗ Not found")
		}
		if err := cfg.Validate(); err != nil {
			fmt.Printf("Store:   ✗ %v\n", err)
			return
		}

		ctx, cancel := context.WithTimeout(cmd.Context(), 10*time.Second)
		defer cancel()
		sess, err := store.NewClient(cfg.Store.URL).Authenticate(ctx, cfg.Store.AdminIdentity, cfg.Store.AdminPassword)
		if err != nil {
			fmt.Printf("Store:   ✗ Auth failed: %v\n", err)
			return
		}
		companies, err := knowledge.NewAccessor(sess).Companies(ctx)
		if err != nil {
			fmt.Printf("Store:   ✗ List failed: %v\n", err)
			return
		}
		fmt.Printf("Store:   ✓ Connected (%s), %d companies\n", cfg.Store.URL, len(companies))
		fmt.Println("Status:  Ready")
	},
}
