package main

import (
	"fmt"
	"strconv"

	"github.com/spf13/cobra"

	"mantrify/internal/admin"
	"mantrify/internal/api"
	"mantrify/internal/queue"
)

func newAdminCommand(ctx *commandContext) *cobra.Command {
	adminCmd := &cobra.Command{
		Use:   "admin",
		Short: "Operator commands (requires an admin login)",
	}

	queueCmd := &cobra.Command{
		Use:   "queue",
		Short: "Inspect and prune the generation queue",
	}
	queueCmd.AddCommand(newAdminQueueListCommand(ctx))
	queueCmd.AddCommand(newAdminQueueDeleteCommand(ctx))

	medCmd := &cobra.Command{
		Use:   "meditations",
		Short: "Inspect and delete any meditation",
	}
	medCmd.AddCommand(newAdminMeditationsListCommand(ctx))
	medCmd.AddCommand(newAdminMeditationDeleteCommand(ctx))

	usersCmd := &cobra.Command{
		Use:   "users",
		Short: "Inspect and delete accounts",
	}
	usersCmd.AddCommand(newAdminUsersListCommand(ctx))
	usersCmd.AddCommand(newAdminUserDeleteCommand(ctx))

	adminCmd.AddCommand(queueCmd, medCmd, usersCmd, newAdminDatabaseCommand(ctx))
	return adminCmd
}

func newAdminQueueListCommand(ctx *commandContext) *cobra.Command {
	var jsonOutput bool
	var summaryOnly bool

	cmd := &cobra.Command{
		Use:   "list",
		Short: "List every queue record with a per-stage summary",
		RunE: func(cmd *cobra.Command, args []string) error {
			client, err := ctx.apiClient()
			if err != nil {
				return err
			}
			snap, err := admin.NewView(client, ctx.loggerValue()).List(cmd.Context())
			if err != nil {
				return err
			}
			if jsonOutput {
				return writeJSON(cmd, snap.Records)
			}

			out := cmd.OutOrStdout()
			colorize := shouldColorize(out)
			if !summaryOnly {
				if snap.Total() == 0 {
					fmt.Fprintln(out, "Queue is empty")
				} else {
					fmt.Fprint(out, renderTable([]tableColumn{
						{header: "ID", align: alignRight},
						{header: "User", align: alignRight},
						{header: "Stage"},
						{header: "Job File", maxWidth: 48},
						{header: "Created"},
						{header: "Updated"},
					}, buildQueueRecordRows(snap.Records, colorize)))
				}
			}

			rows := make([][]string, 0, len(snap.Summary))
			for _, sc := range snap.Summary {
				rows = append(rows, []string{stageLabel(sc.Status, colorize), strconv.Itoa(sc.Count)})
			}
			rows = append(rows, []string{"Total", strconv.Itoa(snap.Total())})
			fmt.Fprint(out, renderTable([]tableColumn{
				{header: "Stage"},
				{header: "Count", align: alignRight},
			}, rows))
			return nil
		},
	}

	cmd.Flags().BoolVar(&jsonOutput, "json", false, "Print records as JSON")
	cmd.Flags().BoolVar(&summaryOnly, "summary", false, "Print only the per-stage counts")
	return cmd
}

func newAdminQueueDeleteCommand(ctx *commandContext) *cobra.Command {
	var yes bool

	cmd := &cobra.Command{
		Use:   "delete <queue-id>",
		Short: "Delete a queue record",
		Long:  "Delete a queue record.\n\n" + admin.DeletionNotice,
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			queueID, err := strconv.ParseInt(args[0], 10, 64)
			if err != nil || queueID <= 0 {
				return fmt.Errorf("%w: %q", admin.ErrInvalidID, args[0])
			}
			out := cmd.OutOrStdout()
			fmt.Fprintln(out, admin.DeletionNotice)
			if err := confirm(cmd, fmt.Sprintf("Delete queue record #%d?", queueID), yes); err != nil {
				return err
			}
			client, err := ctx.apiClient()
			if err != nil {
				return err
			}
			res, err := admin.NewView(client, ctx.loggerValue()).Delete(cmd.Context(), queueID)
			if err != nil {
				return err
			}
			switch res.Outcome {
			case admin.AlreadyGone:
				fmt.Fprintf(out, "Queue record #%d was already gone\n", queueID)
			default:
				fmt.Fprintf(out, "Deleted queue record #%d\n", queueID)
			}
			return nil
		},
	}

	cmd.Flags().BoolVarP(&yes, "yes", "y", false, "Skip confirmation")
	return cmd
}

func newAdminMeditationsListCommand(ctx *commandContext) *cobra.Command {
	var jsonOutput bool

	cmd := &cobra.Command{
		Use:   "list",
		Short: "List every meditation",
		RunE: func(cmd *cobra.Command, args []string) error {
			client, err := ctx.apiClient()
			if err != nil {
				return err
			}
			meditations, err := client.AdminMeditations(cmd.Context())
			if err != nil {
				return err
			}
			if jsonOutput {
				return writeJSON(cmd, meditations)
			}
			out := cmd.OutOrStdout()
			if len(meditations) == 0 {
				fmt.Fprintln(out, "No meditations")
				return nil
			}
			fmt.Fprint(out, renderMeditationTable(meditations, true))
			return nil
		},
	}

	cmd.Flags().BoolVar(&jsonOutput, "json", false, "Print meditations as JSON")
	return cmd
}

func newAdminMeditationDeleteCommand(ctx *commandContext) *cobra.Command {
	var yes bool

	cmd := &cobra.Command{
		Use:   "delete <meditation-id>",
		Short: "Delete any meditation",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := parseQueueID(args[0])
			if err != nil {
				return err
			}
			if err := confirm(cmd, fmt.Sprintf("Delete meditation #%d?", id), yes); err != nil {
				return err
			}
			client, err := ctx.apiClient()
			if err != nil {
				return err
			}
			if _, err := client.AdminDeleteMeditation(cmd.Context(), id); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Deleted meditation #%d\n", id)
			return nil
		},
	}

	cmd.Flags().BoolVarP(&yes, "yes", "y", false, "Skip confirmation")
	return cmd
}

func newAdminUsersListCommand(ctx *commandContext) *cobra.Command {
	var jsonOutput bool

	cmd := &cobra.Command{
		Use:   "list",
		Short: "List every account",
		RunE: func(cmd *cobra.Command, args []string) error {
			client, err := ctx.apiClient()
			if err != nil {
				return err
			}
			users, err := client.Users(cmd.Context())
			if err != nil {
				return err
			}
			if jsonOutput {
				return writeJSON(cmd, users)
			}
			out := cmd.OutOrStdout()
			if len(users) == 0 {
				fmt.Fprintln(out, "No users")
				return nil
			}
			fmt.Fprint(out, renderTable([]tableColumn{
				{header: "ID", align: alignRight},
				{header: "Username"},
				{header: "Email"},
				{header: "Verified"},
				{header: "Admin"},
				{header: "Public Meditations"},
				{header: "Created"},
			}, buildUserRows(users)))
			return nil
		},
	}

	cmd.Flags().BoolVar(&jsonOutput, "json", false, "Print users as JSON")
	return cmd
}

func newAdminUserDeleteCommand(ctx *commandContext) *cobra.Command {
	var yes bool
	var savePublic bool

	cmd := &cobra.Command{
		Use:   "delete <user-id>",
		Short: "Delete an account",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := parseQueueID(args[0])
			if err != nil {
				return err
			}
			out := cmd.OutOrStdout()
			if savePublic {
				fmt.Fprintln(out, "Public meditations will be kept under the shared account.")
			} else {
				fmt.Fprintln(out, "All meditations of this user will be deleted.")
			}
			if err := confirm(cmd, fmt.Sprintf("Delete user #%d?", id), yes); err != nil {
				return err
			}
			client, err := ctx.apiClient()
			if err != nil {
				return err
			}
			if _, err := client.DeleteUser(cmd.Context(), id, api.DeleteUserOptions{SavePublicMeditations: savePublic}); err != nil {
				return err
			}
			fmt.Fprintf(out, "Deleted user #%d\n", id)
			return nil
		},
	}

	cmd.Flags().BoolVarP(&yes, "yes", "y", false, "Skip confirmation")
	cmd.Flags().BoolVar(&savePublic, "save-public", false, "Keep the user's public meditations")
	return cmd
}

func buildQueueRecordRows(records []queue.Record, colorize bool) [][]string {
	rows := make([][]string, 0, len(records))
	for _, rec := range records {
		rows = append(rows, []string{
			strconv.FormatInt(rec.ID, 10),
			strconv.FormatInt(rec.UserID, 10),
			stageLabel(rec.Status, colorize),
			rec.JobFilename,
			formatTime(rec.CreatedAt),
			formatTime(rec.UpdatedAt),
		})
	}
	return rows
}

func buildUserRows(users []api.AdminUser) [][]string {
	rows := make([][]string, 0, len(users))
	for _, u := range users {
		rows = append(rows, []string{
			strconv.FormatInt(u.ID, 10),
			u.Username,
			u.Email,
			yesNo(u.IsEmailVerified),
			yesNo(u.IsAdmin),
			yesNo(u.HasPublicMeditations),
			formatTime(u.CreatedAt),
		})
	}
	return rows
}
