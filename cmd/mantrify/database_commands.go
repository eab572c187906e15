package main

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"

	"github.com/dustin/go-humanize"
	"github.com/spf13/cobra"

	"mantrify/internal/api"
)

const restoreWarning = "Restoring replaces every table on the server with the contents of the dump."

func newAdminDatabaseCommand(ctx *commandContext) *cobra.Command {
	dbCmd := &cobra.Command{
		Use:   "database",
		Short: "Manage server database backups",
	}
	dbCmd.AddCommand(
		newAdminBackupListCommand(ctx),
		newAdminBackupCreateCommand(ctx),
		newAdminBackupDownloadCommand(ctx),
		newAdminBackupDeleteCommand(ctx),
		newAdminRestoreCommand(ctx),
	)
	return dbCmd
}

func newAdminBackupListCommand(ctx *commandContext) *cobra.Command {
	var jsonOutput bool

	cmd := &cobra.Command{
		Use:   "list",
		Short: "List stored backups",
		RunE: func(cmd *cobra.Command, args []string) error {
			client, err := ctx.apiClient()
			if err != nil {
				return err
			}
			backups, err := client.Backups(cmd.Context())
			if err != nil {
				return err
			}
			if jsonOutput {
				return writeJSON(cmd, backups)
			}
			out := cmd.OutOrStdout()
			if len(backups) == 0 {
				fmt.Fprintln(out, "No backups available")
				return nil
			}
			fmt.Fprint(out, renderTable([]tableColumn{
				{header: "Filename"},
				{header: "Size", align: alignRight},
				{header: "Created"},
			}, buildBackupRows(backups)))
			return nil
		},
	}

	cmd.Flags().BoolVar(&jsonOutput, "json", false, "Print backups as JSON")
	return cmd
}

func newAdminBackupCreateCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "create",
		Short: "Dump the server database to a new backup",
		RunE: func(cmd *cobra.Command, args []string) error {
			client, err := ctx.apiClient()
			if err != nil {
				return err
			}
			res, err := client.CreateBackup(cmd.Context())
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Created backup %s (%d tables)\n", res.Filename, res.TablesExported)
			return nil
		},
	}
}

func newAdminBackupDownloadCommand(ctx *commandContext) *cobra.Command {
	var output string
	var force bool

	cmd := &cobra.Command{
		Use:   "download <filename>",
		Short: "Download a backup file",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			name := args[0]
			target := output
			if target == "" {
				target = filepath.Base(name)
			}
			if !force {
				if _, err := os.Stat(target); err == nil {
					return fmt.Errorf("%s already exists (use --force to overwrite)", target)
				} else if !errors.Is(err, fs.ErrNotExist) {
					return err
				}
			}
			client, err := ctx.apiClient()
			if err != nil {
				return err
			}

			tmp, err := os.CreateTemp(filepath.Dir(target), ".mantrify-backup-*")
			if err != nil {
				return fmt.Errorf("create download file: %w", err)
			}
			defer os.Remove(tmp.Name())
			n, err := client.DownloadBackup(cmd.Context(), name, tmp)
			if closeErr := tmp.Close(); err == nil && closeErr != nil {
				err = fmt.Errorf("write download: %w", closeErr)
			}
			if err != nil {
				return err
			}
			if err := os.Rename(tmp.Name(), target); err != nil {
				return fmt.Errorf("save download: %w", err)
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Saved %s to %s (%s)\n", name, target, humanize.Bytes(uint64(n)))
			return nil
		},
	}

	cmd.Flags().StringVarP(&output, "output", "o", "", "Destination path (default: the backup name in the current directory)")
	cmd.Flags().BoolVar(&force, "force", false, "Overwrite an existing file")
	return cmd
}

func newAdminBackupDeleteCommand(ctx *commandContext) *cobra.Command {
	var yes bool

	cmd := &cobra.Command{
		Use:   "delete <filename>",
		Short: "Delete a stored backup",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			name := args[0]
			if err := confirm(cmd, fmt.Sprintf("Delete backup %s?", name), yes); err != nil {
				return err
			}
			client, err := ctx.apiClient()
			if err != nil {
				return err
			}
			if _, err := client.DeleteBackup(cmd.Context(), name); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Deleted backup %s\n", name)
			return nil
		},
	}

	cmd.Flags().BoolVarP(&yes, "yes", "y", false, "Skip confirmation")
	return cmd
}

func newAdminRestoreCommand(ctx *commandContext) *cobra.Command {
	var yes bool

	cmd := &cobra.Command{
		Use:   "restore <dump-file>",
		Short: "Replace the server database with a local dump",
		Long:  "Upload a local backup file and restore the server database from it.\n\n" + restoreWarning,
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			path := args[0]
			file, err := os.Open(path)
			if err != nil {
				return fmt.Errorf("open dump: %w", err)
			}
			defer file.Close()

			out := cmd.OutOrStdout()
			fmt.Fprintln(out, restoreWarning)
			if err := confirm(cmd, fmt.Sprintf("Restore the database from %s?", filepath.Base(path)), yes); err != nil {
				return err
			}
			client, err := ctx.apiClient()
			if err != nil {
				return err
			}
			res, err := client.RestoreDatabase(cmd.Context(), path, file)
			if err != nil {
				return err
			}
			fmt.Fprintf(out, "Restored %d tables (%d rows)\n", res.TablesImported, res.TotalRows)
			return nil
		},
	}

	cmd.Flags().BoolVarP(&yes, "yes", "y", false, "Skip confirmation")
	return cmd
}

func buildBackupRows(backups []api.Backup) [][]string {
	rows := make([][]string, 0, len(backups))
	for _, b := range backups {
		size := b.SizeFormatted
		if size == "" {
			size = humanize.Bytes(uint64(max(b.Size, 0)))
		}
		rows = append(rows, []string{b.Filename, size, formatTime(b.CreatedAt)})
	}
	return rows
}
