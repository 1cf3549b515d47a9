package cli

import (
	"context"
	"fmt"
	"os"

	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"github.com/ceovirtual/ceovirtual/internal/knowledge"
)

var resetCmd = &cobra.Command{
	Use:   "reset <company-id>",
	Short: "Clear a company's conversation (messages, summary, conversation facts)",
	Args:  cobra.ExactArgs(1),
	Run: func(cmd *cobra.Command, args []string) {
		runCompanyAction(cmd.Context(), args[0], "Conversation reset",
			func(ctx context.Context, acc *knowledge.Accessor, companyID string) error {
				return acc.ResetConversation(ctx, companyID)
			})
	},
}

var deleteCmd = &cobra.Command{
	Use:   "delete <company-id>",
	Short: "Delete a company and all its records",
	Args:  cobra.ExactArgs(1),
	Run: func(cmd *cobra.Command, args []string) {
		runCompanyAction(cmd.Context(), args[0], "Company deleted",
			func(ctx context.Context, acc *knowledge.Accessor, companyID string) error {
				return acc.DeleteCompany(ctx, companyID)
			})
	},
}

func runCompanyAction(ctx context.Context, companyID, doneMsg string, action func(context.Context, *knowledge.Accessor, string) error) {
	rt, err := buildRuntime()
	if err != nil {
		fmt.Printf("Config error: %v\n", err)
		os.Exit(1)
	}

	identity, password := rt.adminCreds()
	sess, err := rt.store.Authenticate(ctx, identity, password)
	if err != nil {
		fmt.Printf("Store auth failed: %v\n", err)
		os.Exit(1)
	}
	if err := action(ctx, knowledge.NewAccessor(sess), companyID); err != nil {
		fmt.Printf("Failed: %v\n", err)
		os.Exit(1)
	}
	fmt.Println(color.GreenString("✓ %s: %s", doneMsg, companyID))
}
