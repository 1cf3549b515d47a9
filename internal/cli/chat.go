package cli

import (
	"fmt"
	"os"

	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"github.com/ceovirtual/ceovirtual/internal/agent"
)

var chatCompanyID string

var chatCmd = &cobra.Command{
	Use:   "chat <message>",
	Short: "Send one message as the company owner",
	Args:  cobra.ExactArgs(1),
	Run:   runChat,
}

func init() {
	chatCmd.Flags().StringVar(&chatCompanyID, "company", "", "company record id")
	chatCmd.MarkFlagRequired("company")
}

func runChat(cmd *cobra.Command, args []string) {
	rt, err := buildRuntime()
	if err != nil {
		fmt.Printf("Config error: %v\n", err)
		os.Exit(1)
	}

	result, err := rt.orchestrator.Run(cmd.Context(), &agent.TurnRequest{
		CompanyID: chatCompanyID,
		Message:   args[0],
	})
	if err != nil {
		fmt.Printf("Turn failed: %v\n", err)
		os.Exit(1)
	}

	fmt.Println(result.Reply)

	stats := result.Stats
	if stats.FactsCreated+stats.MetricsCreated+stats.EntitiesCreated+stats.TopicsPatched > 0 {
		fmt.Println(color.HiBlackString("[learned: %d facts, %d metrics, %d entities, %d topics]",
			stats.FactsCreated, stats.MetricsCreated, stats.EntitiesCreated, stats.TopicsPatched))
	}
	if result.CompactionStarted {
		fmt.Println(color.HiBlackString("[compacting conversation history]"))
	}
}
