package main

import (
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/gofrs/flock"
	"github.com/spf13/cobra"

	"mantrify/internal/api"
	"mantrify/internal/composition"
	"mantrify/internal/config"
	"mantrify/internal/logging"
	"mantrify/internal/meditation"
	"mantrify/internal/preflight"
	"mantrify/internal/queue"
	"mantrify/internal/textutil"
)

// errSubmissionLocked is returned when another process is submitting the
// same draft file.
var errSubmissionLocked = errors.New("another submission of this draft is in progress")

func newValidateCommand(ctx *commandContext) *cobra.Command {
	var draftPath string
	var jsonOutput bool

	cmd := &cobra.Command{
		Use:   "validate",
		Short: "Check a draft file without submitting it",
		RunE: func(cmd *cobra.Command, args []string) error {
			draft, err := loadDraft(draftPath)
			if err != nil {
				return err
			}
			result := ctx.validator().Validate(draft)
			if jsonOutput {
				if err := writeJSON(cmd, validationJSON(result)); err != nil {
					return err
				}
				if !result.Valid {
					return errFieldErrors
				}
				return nil
			}

			out := cmd.OutOrStdout()
			printDraftOverview(out, draft, ctx.catalog())
			if !result.Valid {
				printFieldErrors(out, result)
				return errFieldErrors
			}
			fmt.Fprintln(out, "Draft is valid")
			return nil
		},
	}

	cmd.Flags().StringVarP(&draftPath, "file", "f", "", "Draft file (TOML)")
	cmd.Flags().BoolVar(&jsonOutput, "json", false, "Print the validation result as JSON")
	_ = cmd.MarkFlagRequired("file")
	return cmd
}

func newCreateCommand(ctx *commandContext) *cobra.Command {
	var draftPath string
	var follow followOptions

	cmd := &cobra.Command{
		Use:   "create",
		Short: "Submit a draft for audio generation",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := ctx.ensureConfig()
			if err != nil {
				return err
			}
			out := cmd.OutOrStdout()
			logger := logging.NewComponentLogger(ctx.loggerValue(), "create")

			data, err := os.ReadFile(draftPath)
			if err != nil {
				return fmt.Errorf("read draft: %w", err)
			}
			draft, err := meditation.ParseDraft(data)
			if err != nil {
				return fmt.Errorf("draft %s: %w", draftPath, err)
			}

			validator := ctx.validator()
			local := validator.Validate(draft)
			if !local.Valid {
				printFieldErrors(out, local)
				return errFieldErrors
			}

			if check := preflight.CheckDirectoryAccess("State directory", cfg.Paths.StateDir); !check.Passed {
				return fmt.Errorf("state directory unusable: %s", check.Detail)
			}
			lock, err := acquireSubmissionLock(cfg, draft.Title, data)
			if err != nil {
				return err
			}
			defer lock.Unlock()

			client, err := ctx.apiClient()
			if err != nil {
				return err
			}
			submitter := api.NewSubmitter(client, validator, ctx.loggerValue())
			sub, err := submitter.Submit(cmd.Context(), draft)
			if err != nil {
				if merged := api.MergeRejection(local, err); len(merged.FieldErrors) > 0 {
					printFieldErrors(out, merged)
				}
				return err
			}

			err = ctx.withStore(func(store *queue.Store) error {
				_, err := store.Track(cmd.Context(), sub.QueueID, draft.Title, sub.FilePath)
				return err
			})
			if err != nil {
				logger.Warn("failed to record submission locally",
					logging.Int64(logging.FieldQueueID, sub.QueueID),
					logging.String(logging.FieldEventType, "track_failed"),
					logging.String(logging.FieldImpact, "job missing from `mantrify jobs`"),
					logging.Error(err),
				)
			}

			fmt.Fprintf(out, "Queued %q as job #%d\n", draft.Title, sub.QueueID)
			if sub.FilePath != "" {
				fmt.Fprintf(out, "Job file: %s\n", sub.FilePath)
			}
			if !follow.wait && !follow.tui {
				fmt.Fprintf(out, "Follow progress with: mantrify watch %d\n", sub.QueueID)
				return nil
			}
			_, err = followJob(cmd, ctx, sub.QueueID, draft.Title, queue.StatusQueued, follow)
			return err
		},
	}

	cmd.Flags().StringVarP(&draftPath, "file", "f", "", "Draft file (TOML)")
	cmd.Flags().BoolVarP(&follow.wait, "wait", "w", false, "Follow the job until it finishes")
	cmd.Flags().BoolVar(&follow.tui, "tui", false, "Follow the job in an interactive view (implies --wait)")
	cmd.Flags().DurationVar(&follow.interval, "poll-interval", 0, "Override the configured poll interval")
	_ = cmd.MarkFlagRequired("file")
	return cmd
}

func loadDraft(path string) (*meditation.Draft, error) {
	draft, err := meditation.LoadDraftFile(path)
	if err != nil {
		return nil, fmt.Errorf("draft %s: %w", path, err)
	}
	return draft, nil
}

// acquireSubmissionLock takes a non-blocking lock keyed by the draft title
// and content.
func acquireSubmissionLock(cfg *config.Config, title string, content []byte) (*flock.Flock, error) {
	dir := cfg.LockDir()
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("create lock directory: %w", err)
	}
	sum := sha256.Sum256(content)
	name := fmt.Sprintf("%s-%s.lock", textutil.SanitizeToken(title), hex.EncodeToString(sum[:])[:12])
	lock := flock.New(filepath.Join(dir, name))
	locked, err := lock.TryLock()
	if err != nil {
		return nil, fmt.Errorf("acquire submission lock: %w", err)
	}
	if !locked {
		return nil, errSubmissionLocked
	}
	return lock, nil
}

func printDraftOverview(out io.Writer, draft *meditation.Draft, catalog *meditation.Catalog) {
	title := strings.TrimSpace(draft.Title)
	if title == "" {
		title = "(untitled)"
	}
	fmt.Fprintf(out, "%s [%s]\n", title, draft.Visibility)
	if desc := strings.TrimSpace(draft.Description); desc != "" {
		fmt.Fprintf(out, "  %s\n", textutil.Truncate(desc, 72))
	}
	segments := draft.Ordered()
	var total time.Duration
	for _, seg := range segments {
		fmt.Fprintf(out, "  [%d] %s\n", seg.Position(), meditation.Summary(seg, catalog))
		if pause, ok := seg.(*meditation.PauseSegment); ok {
			if d, err := time.ParseDuration(strings.TrimSpace(pause.DurationSeconds) + "s"); err == nil {
				total += d
			}
		}
	}
	fmt.Fprintf(out, "  %d segments", len(segments))
	if total > 0 {
		fmt.Fprintf(out, ", %s of silence", total)
	}
	fmt.Fprintln(out)
}

func printFieldErrors(out io.Writer, result composition.Result) {
	fmt.Fprintln(out, "Field errors:")
	for _, field := range result.Fields() {
		fmt.Fprintf(out, "  %s: %s\n", field, result.FieldErrors[field])
	}
}

type validationOutput struct {
	Valid  bool              `json:"valid"`
	Errors map[string]string `json:"errors,omitempty"`
}

func validationJSON(result composition.Result) validationOutput {
	return validationOutput{Valid: result.Valid, Errors: result.FieldErrors}
}
