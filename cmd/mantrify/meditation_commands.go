package main

import (
	"errors"
	"fmt"
	"strconv"
	"strings"

	"github.com/spf13/cobra"

	"mantrify/internal/api"
	"mantrify/internal/meditation"
	"mantrify/internal/textutil"
)

func newMeditationsCommand(ctx *commandContext) *cobra.Command {
	medCmd := &cobra.Command{
		Use:     "meditations",
		Aliases: []string{"med"},
		Short:   "Browse and manage finished meditations",
	}

	medCmd.AddCommand(newMeditationsListCommand(ctx))
	medCmd.AddCommand(newStreamURLCommand(ctx))
	medCmd.AddCommand(newFavoriteCommand(ctx))
	medCmd.AddCommand(newMeditationUpdateCommand(ctx))
	medCmd.AddCommand(newMeditationDeleteCommand(ctx))

	return medCmd
}

func newMeditationsListCommand(ctx *commandContext) *cobra.Command {
	var favoritesOnly bool
	var jsonOutput bool

	cmd := &cobra.Command{
		Use:   "list",
		Short: "List public meditations and, when logged in, your private ones",
		RunE: func(cmd *cobra.Command, args []string) error {
			client, err := ctx.apiClient()
			if err != nil {
				return err
			}
			meditations, err := client.ListMeditations(cmd.Context())
			if err != nil {
				return err
			}
			if favoritesOnly {
				filtered := meditations[:0]
				for _, m := range meditations {
					if m.Favorite {
						filtered = append(filtered, m)
					}
				}
				meditations = filtered
			}
			if jsonOutput {
				return writeJSON(cmd, meditations)
			}
			out := cmd.OutOrStdout()
			if len(meditations) == 0 {
				fmt.Fprintln(out, "No meditations")
				return nil
			}
			fmt.Fprint(out, renderMeditationTable(meditations, false))
			return nil
		},
	}

	cmd.Flags().BoolVar(&favoritesOnly, "favorites", false, "Show only favorites")
	cmd.Flags().BoolVar(&jsonOutput, "json", false, "Print meditations as JSON")
	return cmd
}

func newStreamURLCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "stream-url <meditation-id>",
		Short: "Print the audio stream URL of a meditation",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := parseQueueID(args[0])
			if err != nil {
				return err
			}
			cfg, err := ctx.ensureConfig()
			if err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), api.StreamURL(cfg.API.BaseURL, id))
			return nil
		},
	}
}

func newFavoriteCommand(ctx *commandContext) *cobra.Command {
	var remove bool

	cmd := &cobra.Command{
		Use:   "favorite <meditation-id>",
		Short: "Mark a meditation as a favorite",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := parseQueueID(args[0])
			if err != nil {
				return err
			}
			client, err := ctx.apiClient()
			if err != nil {
				return err
			}
			res, err := client.SetFavorite(cmd.Context(), id, !remove)
			if err != nil {
				return err
			}
			verb := textutil.Ternary(res.Favorite, "Added", "Removed")
			fmt.Fprintf(cmd.OutOrStdout(), "%s meditation #%d %s favorites\n", verb, id, textutil.Ternary(res.Favorite, "to", "from"))
			return nil
		},
	}

	cmd.Flags().BoolVar(&remove, "remove", false, "Remove from favorites instead")
	return cmd
}

func newMeditationUpdateCommand(ctx *commandContext) *cobra.Command {
	var title, description, visibility string

	cmd := &cobra.Command{
		Use:   "update <meditation-id>",
		Short: "Change the title, description or visibility of a meditation",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := parseQueueID(args[0])
			if err != nil {
				return err
			}
			var update api.MeditationUpdate
			flags := cmd.Flags()
			if flags.Changed("title") {
				trimmed := strings.TrimSpace(title)
				if trimmed == "" {
					return errors.New("title must not be empty")
				}
				update.Title = &trimmed
			}
			if flags.Changed("description") {
				update.Description = &description
			}
			if flags.Changed("visibility") {
				v, err := meditation.ParseVisibility(visibility)
				if err != nil {
					return err
				}
				s := string(v)
				update.Visibility = &s
			}
			if update.Title == nil && update.Description == nil && update.Visibility == nil {
				return errors.New("nothing to update: pass --title, --description or --visibility")
			}

			client, err := ctx.apiClient()
			if err != nil {
				return err
			}
			m, err := client.UpdateMeditation(cmd.Context(), id, update)
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Updated meditation #%d: %q [%s]\n", m.ID, m.Title, m.Visibility)
			return nil
		},
	}

	cmd.Flags().StringVar(&title, "title", "", "New title")
	cmd.Flags().StringVar(&description, "description", "", "New description")
	cmd.Flags().StringVar(&visibility, "visibility", "", "public or private")
	return cmd
}

func newMeditationDeleteCommand(ctx *commandContext) *cobra.Command {
	var yes bool

	cmd := &cobra.Command{
		Use:   "delete <meditation-id>",
		Short: "Delete one of your meditations",
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
			if _, err := client.DeleteMeditation(cmd.Context(), id); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Deleted meditation #%d\n", id)
			return nil
		},
	}

	cmd.Flags().BoolVarP(&yes, "yes", "y", false, "Skip confirmation")
	return cmd
}

func newSoundsCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "sounds",
		Short: "List the sounds a sound segment may reference",
		RunE: func(cmd *cobra.Command, args []string) error {
			sounds := ctx.catalog().Sounds()
			rows := make([][]string, 0, len(sounds))
			for _, s := range sounds {
				rows = append(rows, []string{s.Name, s.Filename})
			}
			fmt.Fprint(cmd.OutOrStdout(), renderTable([]tableColumn{
				{header: "Name"},
				{header: "File"},
			}, rows))
			return nil
		},
	}
}

func renderMeditationTable(meditations []api.Meditation, withOwner bool) string {
	columns := []tableColumn{
		{header: "ID", align: alignRight},
		{header: "Title", maxWidth: 40},
		{header: "Visibility"},
		{header: "Listens", align: alignRight},
		{header: "Fav"},
		{header: "Created"},
	}
	if withOwner {
		columns = append(columns, tableColumn{header: "User", align: alignRight})
	}
	rows := make([][]string, 0, len(meditations))
	for _, m := range meditations {
		row := []string{
			strconv.FormatInt(m.ID, 10),
			m.Title,
			m.Visibility,
			textutil.FormatCount(m.ListenCount),
			textutil.Ternary(m.Favorite, "★", ""),
			formatTime(m.CreatedAt),
		}
		if withOwner {
			row = append(row, strconv.FormatInt(m.UserID, 10))
		}
		rows = append(rows, row)
	}
	return renderTable(columns, rows)
}
