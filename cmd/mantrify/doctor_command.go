package main

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"mantrify/internal/preflight"
	"mantrify/internal/queue"
)

func newDoctorCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "doctor",
		Short: "Check local state, backend reachability and credentials",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := ctx.ensureConfig()
			if err != nil {
				return err
			}
			out := cmd.OutOrStdout()
			colorize := shouldColorize(out)

			token, _ := ctx.sessionStore().Credential()
			results := preflight.RunAll(cmd.Context(), cfg, token)

			for _, line := range renderSectionHeader("Environment", colorize) {
				fmt.Fprintln(out, line)
			}
			for _, r := range results {
				kind := statusOK
				if !r.Passed {
					kind = statusError
				}
				fmt.Fprintln(out, renderStatusLine(r.Name, kind, r.Detail, colorize))
			}
			if token == "" {
				fmt.Fprintln(out, renderStatusLine("Credentials", statusInfo, "not logged in", colorize))
			}

			fmt.Fprintln(out)
			for _, line := range renderSectionHeader("Local jobs", colorize) {
				fmt.Fprintln(out, line)
			}
			err = ctx.withStore(func(store *queue.Store) error {
				health, err := store.CheckHealth(cmd.Context())
				if err != nil {
					return err
				}
				kind := statusOK
				if !health.Healthy() {
					kind = statusError
				}
				fmt.Fprintln(out, renderStatusLine("Database", kind, health.Summary(), colorize))
				stats, err := store.Stats(cmd.Context())
				if err != nil {
					return err
				}
				var parts []string
				for _, status := range queue.AllStatuses() {
					if n := stats[status]; n > 0 {
						parts = append(parts, fmt.Sprintf("%s %d", status, n))
					}
				}
				summary := "none"
				if len(parts) > 0 {
					summary = strings.Join(parts, ", ")
				}
				fmt.Fprintln(out, renderStatusLine("Tracked", statusInfo, summary, colorize))
				return nil
			})
			if err != nil {
				return err
			}

			if failed := preflight.Failed(results); len(failed) > 0 {
				return fmt.Errorf("%d check(s) failed", len(failed))
			}
			return nil
		},
	}
}
