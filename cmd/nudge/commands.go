package main

import (
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/nudge-sh/nudge/internal/config"
)

// --- refresh ---

var refreshCmd = &cobra.Command{
	Use:   "refresh",
	Short: "Re-read the note folder now",
	RunE: func(cmd *cobra.Command, args []string) error {
		client, err := newAPIClient()
		if err != nil {
			return err
		}

		resp, err := client.post(cmd.Context(), "/refresh", nil)
		if err != nil {
			return err
		}

		var result struct {
			TaskCount int `json:"task_count"`
		}
		if err := decodeJSON(resp, &result); err != nil {
			return err
		}

		printSuccess("Refreshed: %d open task(s)", result.TaskCount)
		return nil
	},
}

// --- trigger ---

var triggerCmd = &cobra.Command{
	Use:   "trigger",
	Short: "Fire a reminder for the most overdue task now",
	Long: `Fire a reminder immediately instead of waiting for the scheduler.

The global gap and per-task cooldown are skipped, but a task is still
only picked inside its category's active hours. Use --force to ignore
active hours as well.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		force, _ := cmd.Flags().GetBool("force")

		client, err := newAPIClient()
		if err != nil {
			return err
		}

		resp, err := client.post(cmd.Context(), "/trigger", map[string]any{"force": force})
		if err != nil {
			return err
		}

		var result struct {
			Fired  bool   `json:"fired"`
			TaskID string `json:"task_id"`
			Text   string `json:"text"`
			Reason string `json:"reason"`
		}
		if err := decodeJSON(resp, &result); err != nil {
			return err
		}

		if !result.Fired {
			printWarning("No reminder sent: %s", result.Reason)
			return nil
		}
		printSuccess("Reminded: %s", result.Text)
		return nil
	},
}

func init() {
	triggerCmd.Flags().Bool("force", false, "ignore active hours")
}

// --- test-notification ---

var testNotificationCmd = &cobra.Command{
	Use:   "test-notification",
	Short: "Send a test notification",
	RunE: func(cmd *cobra.Command, args []string) error {
		client, err := newAPIClient()
		if err != nil {
			return err
		}

		resp, err := client.post(cmd.Context(), "/test-notification", nil)
		if err != nil {
			return err
		}

		var result map[string]string
		if err := decodeJSON(resp, &result); err != nil {
			return err
		}

		printSuccess("Test notification sent")
		return nil
	},
}

// --- tasks ---

var tasksCmd = &cobra.Command{
	Use:   "tasks",
	Short: "List the open tasks the daemon knows about",
	RunE: func(cmd *cobra.Command, args []string) error {
		client, err := newAPIClient()
		if err != nil {
			return err
		}

		resp, err := client.get(cmd.Context(), "/tasks")
		if err != nil {
			return err
		}

		var tasks []struct {
			ID             string     `json:"id"`
			NoteTitle      string     `json:"note_title"`
			Text           string     `json:"text"`
			SectionHeader  string     `json:"section_header"`
			Category       string     `json:"category"`
			FireCount      int        `json:"fire_count"`
			LastRemindedAt *time.Time `json:"last_reminded_at"`
		}
		if err := decodeJSON(resp, &tasks); err != nil {
			return err
		}

		if len(tasks) == 0 {
			fmt.Println("No open tasks.")
			return nil
		}

		for _, task := range tasks {
			last := "never"
			if task.LastRemindedAt != nil {
				last = task.LastRemindedAt.Local().Format("Jan 2 15:04")
			}
			fmt.Printf("%s  %s  %s\n",
				colorize(colorCyan, task.ID[:8]),
				colorize(colorBold, fmt.Sprintf("[%s]", task.Category)),
				task.Text,
			)
			fmt.Printf("          %s / %s · reminded %dx · last %s\n",
				task.NoteTitle, task.SectionHeader, task.FireCount, last)
		}
		return nil
	},
}

// --- config ---

var configCmd = &cobra.Command{
	Use:   "config",
	Short: "Show or update configuration",
}

var configShowCmd = &cobra.Command{
	Use:   "show",
	Short: "Show current configuration",
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := config.Load()
		if err != nil {
			return err
		}

		keys := config.ShowAll(cfg)
		for _, k := range keys {
			fmt.Printf("  %s = %s\n", colorize(colorBold, k.Key), k.Value)
		}
		return nil
	},
}

var configSetCmd = &cobra.Command{
	Use:   "set <key> <value>",
	Short: "Set a configuration value",
	Args:  cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		key, value := args[0], args[1]

		if err := config.SetKey(key, value); err != nil {
			return err
		}

		printSuccess("Set %s = %s", key, value)
		return nil
	},
}

func init() {
	configCmd.AddCommand(configShowCmd)
	configCmd.AddCommand(configSetCmd)
}
