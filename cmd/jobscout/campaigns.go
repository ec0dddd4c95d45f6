package main

import (
	"fmt"
	"os"
	"strings"

	"github.com/spf13/cobra"
)

var campaignsCmd = &cobra.Command{
	Use:   "campaigns",
	Short: "List all configured campaigns",
	Long:  "Reads the config and prints a table of all configured search campaigns.",
	RunE:  runCampaigns,
}

func init() {
	rootCmd.AddCommand(campaignsCmd)
}

func runCampaigns(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig(cfgPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to load config: %v\n", err)
		os.Exit(1)
	}

	fmt.Printf("%-20s %-25s %-7s %-10s %-11s %s\n", "ID", "Name", "Roles", "Threshold", "Auto-apply", "Status")
	fmt.Println(strings.Repeat("─", 84))

	enabled, disabled := 0, 0
	for _, c := range cfg.Campaigns {
		state := "enabled"
		if !c.Enabled {
			state = "disabled"
			disabled++
		} else {
			enabled++
		}
		autoApply := "no"
		if c.AutoApply {
			autoApply = "yes"
		}
		fmt.Printf("%-20s %-25s %-7d %-10.2f %-11s %s\n",
			c.ID, c.Name, len(c.Roles), c.MatchThreshold, autoApply, state)
	}

	fmt.Printf("\nTotal: %d campaigns (%d enabled, %d disabled)\n", len(cfg.Campaigns), enabled, disabled)
	return nil
}
