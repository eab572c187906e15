package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"strconv"
	"strings"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/spf13/cobra"

	"mantrify/internal/api"
	"mantrify/internal/logging"
	"mantrify/internal/pipeline"
	"mantrify/internal/queue"
	"mantrify/internal/textutil"
	"mantrify/internal/watchui"
)

var (
	errJobRemoved = errors.New("job was removed from the queue before finishing")
	errJobGaveUp  = errors.New("stopped waiting before the job finished")
)

const timeLayout = "2006-01-02 15:04"

type followOptions struct {
	wait     bool
	tui      bool
	interval time.Duration
}

func newStatusCommand(ctx *commandContext) *cobra.Command {
	var jsonOutput bool

	cmd := &cobra.Command{
		Use:   "status <queue-id>",
		Short: "Show the current pipeline stage of a job",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			queueID, err := parseQueueID(args[0])
			if err != nil {
				return err
			}
			client, err := ctx.apiClient()
			if err != nil {
				return err
			}
			rec, err := client.QueueRecord(cmd.Context(), queueID)
			if err != nil {
				return err
			}

			return ctx.withStore(func(store *queue.Store) error {
				sub, err := store.Get(cmd.Context(), queueID)
				if err != nil {
					return err
				}
				opts := []pipeline.TrackerOption{pipeline.WithLogger(ctx.loggerValue())}
				if sub != nil {
					opts = append(opts, pipeline.WithInitialStatus(sub.Status))
				}
				obs := pipeline.NewTracker(queueID, pipeline.PolicyFromConfig(ctx.configValue()), opts...).Observe(rec)
				if sub != nil {
					if err := pipeline.Persist(cmd.Context(), store, obs); err != nil {
						return err
					}
				}

				if jsonOutput {
					return writeJSON(cmd, statusJSON(obs))
				}
				out := cmd.OutOrStdout()
				if obs.Outcome == pipeline.OutcomeRemoved {
					fmt.Fprintf(out, "Job #%d is not in the queue (finished and cleared, deleted, or never existed)\n", queueID)
					return nil
				}
				colorize := shouldColorize(out)
				fmt.Fprintf(out, "Job #%d: %s\n", queueID, stageLabel(obs.Status, colorize))
				fmt.Fprintf(out, "  %s\n", obs.Status.Description())
				if obs.Record != nil {
					if obs.Record.JobFilename != "" {
						fmt.Fprintf(out, "  Job file: %s\n", obs.Record.JobFilename)
					}
					if !obs.Record.UpdatedAt.IsZero() {
						fmt.Fprintf(out, "  Updated:  %s\n", obs.Record.UpdatedAt.Local().Format(timeLayout))
					}
				}
				if obs.Regressed {
					fmt.Fprintf(out, "  Note: backend reported %s; last known stage kept\n", obs.Reported)
				}
				if sub != nil && sub.MeditationID > 0 && obs.Status.IsTerminal() {
					fmt.Fprintf(out, "  Stream: %s\n", client.StreamURL(sub.MeditationID))
				}
				return nil
			})
		},
	}

	cmd.Flags().BoolVar(&jsonOutput, "json", false, "Print the observation as JSON")
	return cmd
}

func newWatchCommand(ctx *commandContext) *cobra.Command {
	var follow followOptions

	cmd := &cobra.Command{
		Use:   "watch <queue-id>",
		Short: "Follow a job until it finishes",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			queueID, err := parseQueueID(args[0])
			if err != nil {
				return err
			}
			title := ""
			var initial queue.Status
			err = ctx.withStore(func(store *queue.Store) error {
				sub, err := store.Get(cmd.Context(), queueID)
				if err != nil || sub == nil {
					return err
				}
				title, initial = sub.Title, sub.Status
				return nil
			})
			if err != nil {
				return err
			}
			_, err = followJob(cmd, ctx, queueID, title, initial, follow)
			return err
		},
	}

	cmd.Flags().BoolVar(&follow.tui, "tui", false, "Show an interactive view")
	cmd.Flags().DurationVar(&follow.interval, "poll-interval", 0, "Override the configured poll interval")
	return cmd
}

func newJobsCommand(ctx *commandContext) *cobra.Command {
	var statuses []string
	var refresh bool
	var clearSettled bool
	var clearAll bool
	var jsonOutput bool

	cmd := &cobra.Command{
		Use:   "jobs",
		Short: "List jobs submitted from this machine",
		RunE: func(cmd *cobra.Command, args []string) error {
			if clearSettled && clearAll {
				return errors.New("specify only one of --clear or --clear-all")
			}
			filter := make([]queue.Status, 0, len(statuses))
			for _, raw := range statuses {
				status, ok := queue.ParseStatus(raw)
				if !ok {
					return fmt.Errorf("unknown status %q (valid: %s)", raw, joinStatuses(queue.AllStatuses()))
				}
				filter = append(filter, status)
			}

			return ctx.withStore(func(store *queue.Store) error {
				out := cmd.OutOrStdout()
				switch {
				case clearAll:
					removed, err := store.Clear(cmd.Context())
					if err != nil {
						return err
					}
					fmt.Fprintf(out, "Cleared %d jobs\n", removed)
					return nil
				case clearSettled:
					removed, err := store.ClearSettled(cmd.Context())
					if err != nil {
						return err
					}
					fmt.Fprintf(out, "Cleared %d finished jobs\n", removed)
					return nil
				}

				if refresh {
					client, err := ctx.apiClient()
					if err != nil {
						return err
					}
					observations, err := pipeline.Refresh(cmd.Context(), store, client,
						pipeline.PolicyFromConfig(ctx.configValue()),
						pipeline.WithLogger(ctx.loggerValue()))
					if err != nil {
						return err
					}
					logging.NewComponentLogger(ctx.loggerValue(), "jobs").Debug("refreshed submissions",
						logging.Int("count", len(observations)))
				}

				subs, err := store.List(cmd.Context(), filter...)
				if err != nil {
					return err
				}
				if jsonOutput {
					return writeJSON(cmd, jobsJSON(subs))
				}
				if len(subs) == 0 {
					fmt.Fprintln(out, "No tracked jobs")
					return nil
				}
				fmt.Fprint(out, renderTable([]tableColumn{
					{header: "ID", align: alignRight},
					{header: "Title", maxWidth: 40},
					{header: "Stage"},
					{header: "Submitted"},
					{header: "Last Seen"},
					{header: "Meditation", align: alignRight},
				}, buildJobRows(subs, shouldColorize(out))))
				return nil
			})
		},
	}

	cmd.Flags().StringSliceVarP(&statuses, "status", "s", nil, "Filter by stage (repeatable)")
	cmd.Flags().BoolVarP(&refresh, "refresh", "r", false, "Poll the backend for every unfinished job first")
	cmd.Flags().BoolVar(&clearSettled, "clear", false, "Forget finished and removed jobs")
	cmd.Flags().BoolVar(&clearAll, "clear-all", false, "Forget every tracked job")
	cmd.Flags().BoolVar(&jsonOutput, "json", false, "Print jobs as JSON")
	return cmd
}

// followJob polls queueID until it settles, printing progress lines or
// driving the interactive view, and records every observation locally.
func followJob(cmd *cobra.Command, ctx *commandContext, queueID int64, title string, initial queue.Status, opts followOptions) (pipeline.Observation, error) {
	out := cmd.OutOrStdout()
	logger := logging.NewComponentLogger(ctx.loggerValue(), "watch")
	policy := pipeline.PolicyFromConfig(ctx.configValue())
	if opts.interval > 0 {
		policy.PollInterval = opts.interval
	}
	client, err := ctx.apiClient()
	if err != nil {
		return pipeline.Observation{}, err
	}
	tracker := pipeline.NewTracker(queueID, policy,
		pipeline.WithLogger(ctx.loggerValue()),
		pipeline.WithInitialStatus(initial),
	)

	var final pipeline.Observation
	err = ctx.withStore(func(store *queue.Store) error {
		persist := func(obs pipeline.Observation) {
			if err := pipeline.Persist(cmd.Context(), store, obs); err != nil {
				logger.Warn("failed to record observation",
					logging.Int64(logging.FieldQueueID, queueID),
					logging.String(logging.FieldEventType, "persist_failed"),
					logging.String(logging.FieldImpact, "local job list may be stale"),
					logging.Error(err),
				)
			}
		}

		if opts.tui {
			runCtx, cancel := context.WithCancel(cmd.Context())
			defer cancel()
			model, err := watchui.Run(
				watchui.New(title, queueID, pipeline.Watch(runCtx, client, tracker), cancel),
				tea.WithOutput(out),
			)
			if err != nil {
				return err
			}
			last, observed := tracker.Last()
			if observed {
				persist(last)
			}
			final = last
			if model.Err() != nil {
				return model.Err()
			}
			if model.Interrupted() {
				fmt.Fprintf(out, "Stopped watching job #%d; generation continues on the server.\n", queueID)
				return nil
			}
			return concludeJob(cmd, out, client, store, artifactQueryFor(cmd, ctx, store, queueID, title), last)
		}

		printer := newProgressPrinter(out, queueID, shouldColorize(out))
		last, err := pipeline.Wait(cmd.Context(), client, tracker, func(u pipeline.Update) {
			if u.Err == nil {
				persist(u.Observation)
			}
			printer.print(u)
		})
		final = last
		if err != nil {
			if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
				fmt.Fprintf(out, "Stopped watching job #%d; generation continues on the server.\n", queueID)
			}
			return err
		}
		return concludeJob(cmd, out, client, store, artifactQueryFor(cmd, ctx, store, queueID, title), last)
	})
	return final, err
}

// concludeJob prints the verdict for a settled job. A finished job is matched
// to the meditation it produced so the stream URL can be shown.
func concludeJob(cmd *cobra.Command, out io.Writer, client *api.Client, store *queue.Store, query artifactQuery, obs pipeline.Observation) error {
	switch obs.Outcome {
	case pipeline.OutcomeDone:
		fmt.Fprintf(out, "Job #%d finished: audio is ready.\n", obs.QueueID)
		if strings.TrimSpace(query.title) == "" {
			return nil
		}
		meditations, err := client.ListMeditations(cmd.Context())
		if err != nil {
			fmt.Fprintf(out, "Could not look up the new meditation: %s\n", api.UserMessage(err))
			return nil
		}
		m, ok := findArtifact(meditations, query)
		if !ok {
			fmt.Fprintln(out, "Could not tell which meditation this job produced; see 'mantrify meditations list'.")
			return nil
		}
		if err := store.LinkMeditation(cmd.Context(), obs.QueueID, m.ID); err != nil {
			return err
		}
		fmt.Fprintf(out, "Meditation #%d: %s\n", m.ID, client.StreamURL(m.ID))
		return nil
	case pipeline.OutcomeRemoved:
		return fmt.Errorf("job #%d: %w", obs.QueueID, errJobRemoved)
	case pipeline.OutcomeGaveUp:
		return fmt.Errorf("job #%d at %s: %w", obs.QueueID, obs.Status, errJobGaveUp)
	default:
		return nil
	}
}

// artifactClockSkew tolerates drift between the local submission clock and
// the backend's createdAt stamps.
const artifactClockSkew = time.Minute

// artifactQuery describes the meditation a finished job should have produced.
type artifactQuery struct {
	title string
	// ownerID is the logged-in user; zero when only a static token is known.
	ownerID int64
	// since is when the job was submitted; zero when unknown.
	since time.Time
}

// artifactQueryFor builds the lookup for queueID from the session and the
// locally tracked submission.
func artifactQueryFor(cmd *cobra.Command, ctx *commandContext, store *queue.Store, queueID int64, title string) artifactQuery {
	query := artifactQuery{title: title}
	if sess, err := ctx.sessionStore().Load(); err == nil && sess != nil {
		query.ownerID = sess.UserID
	}
	if sub, err := store.Get(cmd.Context(), queueID); err == nil && sub != nil {
		query.since = sub.CreatedAt
	}
	return query
}

// findArtifact picks the newest meditation titled q.title that belongs to
// q.ownerID and was created after q.since. Without a known owner the match
// must be unique, since other users' public meditations are listed too.
func findArtifact(meditations []api.Meditation, q artifactQuery) (api.Meditation, bool) {
	title := strings.TrimSpace(q.title)
	var matches []api.Meditation
	for _, m := range meditations {
		if strings.TrimSpace(m.Title) != title {
			continue
		}
		if q.ownerID > 0 && m.UserID != q.ownerID {
			continue
		}
		if !q.since.IsZero() && !m.CreatedAt.IsZero() && m.CreatedAt.Before(q.since.Add(-artifactClockSkew)) {
			continue
		}
		matches = append(matches, m)
	}
	if len(matches) == 0 || (q.ownerID == 0 && len(matches) > 1) {
		return api.Meditation{}, false
	}
	best := matches[0]
	for _, m := range matches[1:] {
		if m.CreatedAt.After(best.CreatedAt) || (m.CreatedAt.Equal(best.CreatedAt) && m.ID > best.ID) {
			best = m
		}
	}
	return best, true
}

// progressPrinter writes one line per stage change, stall or fetch error.
type progressPrinter struct {
	out         io.Writer
	queueID     int64
	colorize    bool
	printed     bool
	lastStatus  queue.Status
	stallShown  bool
	regressSeen bool
}

func newProgressPrinter(out io.Writer, queueID int64, colorize bool) *progressPrinter {
	return &progressPrinter{out: out, queueID: queueID, colorize: colorize}
}

func (p *progressPrinter) print(u pipeline.Update) {
	if u.Err != nil {
		kind, suffix := statusWarn, " (retrying)"
		if pipeline.Fatal(u.Err) {
			kind, suffix = statusError, ""
		}
		fmt.Fprintln(p.out, renderStatusLine("Poll", kind, api.UserMessage(u.Err)+suffix, p.colorize))
		if pipeline.Fatal(u.Err) {
			return
		}
	}
	obs := u.Observation
	if obs.Outcome == pipeline.OutcomeRemoved {
		return
	}
	if u.Err == nil && (!p.printed || obs.Status != p.lastStatus) {
		line := fmt.Sprintf("[%s] Job #%d: %s - %s",
			obs.ObservedAt.Local().Format("15:04:05"), p.queueID,
			stageLabel(obs.Status, p.colorize), obs.Status.Description())
		if len(obs.Skipped) > 0 {
			line += " (passed " + joinStatuses(obs.Skipped) + ")"
		}
		fmt.Fprintln(p.out, line)
		p.printed = true
		p.lastStatus = obs.Status
		p.stallShown = false
	}
	if obs.Regressed && !p.regressSeen {
		fmt.Fprintln(p.out, renderStatusLine("Backend", statusWarn,
			fmt.Sprintf("reported %s after %s; keeping %s", obs.Reported, obs.Status, obs.Status), p.colorize))
		p.regressSeen = true
	}
	if obs.Stalled && !p.stallShown {
		fmt.Fprintln(p.out, renderStatusLine("Progress", statusWarn,
			fmt.Sprintf("taking longer than expected (no change for %s)", obs.SinceChange.Truncate(time.Second)), p.colorize))
		p.stallShown = true
	}
}

func buildJobRows(subs []*queue.Submission, colorize bool) [][]string {
	rows := make([][]string, 0, len(subs))
	for _, sub := range subs {
		stage := stageLabel(sub.Status, colorize)
		if sub.Removed {
			stage += " (removed)"
		}
		seen := "-"
		if sub.LastObservedAt != nil {
			seen = sub.LastObservedAt.Local().Format(timeLayout)
		}
		medID := "-"
		if sub.MeditationID > 0 {
			medID = strconv.FormatInt(sub.MeditationID, 10)
		}
		rows = append(rows, []string{
			strconv.FormatInt(sub.QueueID, 10),
			sub.Title,
			stage,
			sub.CreatedAt.Local().Format(timeLayout),
			seen,
			medID,
		})
	}
	return rows
}

type jobJSON struct {
	QueueID        int64      `json:"queueId"`
	Title          string     `json:"title"`
	FilePath       string     `json:"filePath,omitempty"`
	Status         string     `json:"status"`
	Removed        bool       `json:"removed"`
	MeditationID   int64      `json:"meditationId,omitempty"`
	CreatedAt      time.Time  `json:"createdAt"`
	UpdatedAt      time.Time  `json:"updatedAt"`
	LastObservedAt *time.Time `json:"lastObservedAt,omitempty"`
}

func jobsJSON(subs []*queue.Submission) []jobJSON {
	out := make([]jobJSON, 0, len(subs))
	for _, sub := range subs {
		out = append(out, jobJSON{
			QueueID:        sub.QueueID,
			Title:          sub.Title,
			FilePath:       sub.FilePath,
			Status:         string(sub.Status),
			Removed:        sub.Removed,
			MeditationID:   sub.MeditationID,
			CreatedAt:      sub.CreatedAt,
			UpdatedAt:      sub.UpdatedAt,
			LastObservedAt: sub.LastObservedAt,
		})
	}
	return out
}

type observationJSON struct {
	QueueID   int64    `json:"queueId"`
	Status    string   `json:"status,omitempty"`
	Reported  string   `json:"reported,omitempty"`
	Outcome   string   `json:"outcome"`
	Skipped   []string `json:"skipped,omitempty"`
	Regressed bool     `json:"regressed"`
	JobFile   string   `json:"jobFile,omitempty"`
}

func statusJSON(obs pipeline.Observation) observationJSON {
	out := observationJSON{
		QueueID:   obs.QueueID,
		Status:    string(obs.Status),
		Reported:  string(obs.Reported),
		Outcome:   obs.Outcome.String(),
		Regressed: obs.Regressed,
	}
	for _, s := range obs.Skipped {
		out.Skipped = append(out.Skipped, string(s))
	}
	if obs.Record != nil {
		out.JobFile = obs.Record.JobFilename
	}
	return out
}

func parseQueueID(raw string) (int64, error) {
	id, err := strconv.ParseInt(strings.TrimPrefix(strings.TrimSpace(raw), "#"), 10, 64)
	if err != nil || id <= 0 {
		return 0, fmt.Errorf("invalid id %q: must be a positive integer", raw)
	}
	return id, nil
}

func joinStatuses(statuses []queue.Status) string {
	names := make([]string, 0, len(statuses))
	for _, s := range statuses {
		names = append(names, textutil.TitleCase(string(s)))
	}
	return strings.Join(names, ", ")
}

func formatTime(t time.Time) string {
	if t.IsZero() {
		return "-"
	}
	return t.Local().Format(timeLayout)
}
