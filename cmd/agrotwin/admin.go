package main

import (
	"fmt"
	"sort"
	"time"

	"github.com/spf13/cobra"

	"github.com/Eblazecode/Agrolinkernew/internal/client"
)

var statusCmd = &cobra.Command{
	Use:   "status",
	Short: "Summarise a running twin",
	RunE: func(cmd *cobra.Command, _ []string) error {
		ac := client.New(adminURL)
		if ok, msg := ac.Health(cmd.Context()); !ok {
			return fmt.Errorf("twin at %s is unhealthy: %s", adminURL, msg)
		}
		s, err := ac.Status(cmd.Context())
		if err != nil {
			return err
		}
		out := cmd.OutOrStdout()
		fmt.Fprintf(out, "twin      %s\n", adminURL)
		fmt.Fprintf(out, "uptime    %v\n", s.Health["uptime"])
		fmt.Fprintf(out, "sessions  %d\n", s.Sessions)
		if sim, ok := s.Time["simulated"]; ok {
			fmt.Fprintf(out, "time      %v (offset %v)\n", sim, s.Time["offset"])
		}
		keys := make([]string, 0, len(s.Config))
		for k := range s.Config {
			keys = append(keys, k)
		}
		sort.Strings(keys)
		for _, k := range keys {
			fmt.Fprintf(out, "  %-16s %v\n", k, s.Config[k])
		}
		return nil
	},
}

var resetCmd = &cobra.Command{
	Use:   "reset",
	Short: "Drop every session on a running twin",
	RunE: func(cmd *cobra.Command, _ []string) error {
		resp, err := client.New(adminURL).Reset(cmd.Context())
		if err != nil {
			return err
		}
		fmt.Fprintf(cmd.OutOrStdout(), "reset %s: %s\n", adminURL, resp)
		return nil
	},
}

var seedCmd = &cobra.Command{
	Use:   "seed <file>",
	Short: "Replace session state from a JSON file",
	Long: `Posts a JSON object of session id to session state, as returned by
GET /admin/state, to a running twin. Existing sessions are dropped.`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		resp, err := client.New(adminURL).Seed(cmd.Context(), args[0])
		if err != nil {
			return fmt.Errorf("seeding %s: %w", adminURL, err)
		}
		fmt.Fprintf(cmd.OutOrStdout(), "seeded %s: %s\n", adminURL, resp)
		return nil
	},
}

var advanceCmd = &cobra.Command{
	Use:   "advance <duration>",
	Short: "Move a running twin's simulated clock forward",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		d, err := time.ParseDuration(args[0])
		if err != nil {
			return err
		}
		resp, err := client.New(adminURL).AdvanceTime(cmd.Context(), d)
		if err != nil {
			return err
		}
		fmt.Fprintln(cmd.OutOrStdout(), resp)
		return nil
	},
}
