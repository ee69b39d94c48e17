package main

import (
	"encoding/json"
	"strings"

	"github.com/spf13/cobra"

	"eco-assistant/internal/intent"
)

var resolveCmd = &cobra.Command{
	Use:   "resolve <utterance>",
	Short: "Print the action and parameters resolved for an utterance",
	Args:  cobra.MinimumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		res := intent.NewResolver().Resolve(strings.Join(args, " "))
		enc := json.NewEncoder(cmd.OutOrStdout())
		enc.SetIndent("", "  ")
		enc.SetEscapeHTML(false)
		return enc.Encode(struct {
			Action     string         `json:"action"`
			Parameters map[string]any `json:"parameters"`
		}{Action: string(res.Action), Parameters: res.Parameters})
	},
}
