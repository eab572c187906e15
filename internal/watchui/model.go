package watchui

import (
	"fmt"
	"strings"
	"time"

	tea "github.com/charmbracelet/bubbletea"

	"mantrify/internal/pipeline"
	"mantrify/internal/queue"
	"mantrify/internal/textutil"
)

// Model is the bubbletea model for watching one job.
type Model struct {
	title   string
	queueID int64
	updates <-chan pipeline.Update
	cancel  func()

	last     pipeline.Observation
	observed bool
	fetchErr error
	fatal    error

	closed      bool
	interrupted bool
	width       int
}

// New creates a model that reads from updates. cancel stops the underlying
// watch when the user quits early and may be nil.
func New(title string, queueID int64, updates <-chan pipeline.Update, cancel func()) Model {
	return Model{
		title:   title,
		queueID: queueID,
		updates: updates,
		cancel:  cancel,
	}
}

// Init starts reading the watch channel.
func (m Model) Init() tea.Cmd {
	return waitForUpdate(m.updates)
}

func waitForUpdate(updates <-chan pipeline.Update) tea.Cmd {
	return func() tea.Msg {
		u, ok := <-updates
		if !ok {
			return WatchClosedMsg{}
		}
		return UpdateMsg{Update: u}
	}
}

// Update processes messages and returns the updated model and any commands.
func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		return m.handleKey(msg)

	case tea.WindowSizeMsg:
		m.width = msg.Width
		return m, nil

	case UpdateMsg:
		u := msg.Update
		if u.Err != nil {
			m.fetchErr = u.Err
			if pipeline.Fatal(u.Err) {
				m.fatal = u.Err
			} else if m.observed {
				m.last = u.Observation
			}
		} else {
			m.fetchErr = nil
			m.last = u.Observation
			m.observed = true
		}
		return m, waitForUpdate(m.updates)

	case WatchClosedMsg:
		m.closed = true
		return m, tea.Quit
	}
	return m, nil
}

func (m Model) handleKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch msg.String() {
	case KeyQuit, KeyQuitUpper, KeyCtrlC, KeyEsc:
		m.interrupted = true
		if m.cancel != nil {
			m.cancel()
		}
		return m, tea.Quit
	}
	return m, nil
}

// Last returns the most recent successful observation.
func (m Model) Last() (pipeline.Observation, bool) {
	return m.last, m.observed
}

// Err returns the fatal fetch error that ended the watch, if any.
func (m Model) Err() error {
	return m.fatal
}

// Interrupted reports whether the user quit before the job settled.
func (m Model) Interrupted() bool {
	return m.interrupted && !m.last.Outcome.Terminal()
}

// View renders the job card.
func (m Model) View() string {
	var b strings.Builder

	header := m.title
	if header == "" {
		header = "Meditation"
	}
	b.WriteString(TitleStyle.Render(fmt.Sprintf("%s  #%d", header, m.queueID)))
	b.WriteString("\n\n")
	b.WriteString(m.renderStages())
	b.WriteString("\n")
	b.WriteString(m.renderState())

	body := BoxStyle.Render(b.String())
	if m.closed || m.interrupted {
		return body + "\n"
	}
	return body + "\n" + FooterKeyStyle.Render("q") + DimStyle.Render(" stop watching") + "\n"
}

func (m Model) renderStages() string {
	current := m.last.Status
	var lines []string
	for _, status := range queue.AllStatuses() {
		label := textutil.TitleCase(string(status))
		switch {
		case !m.observed:
			lines = append(lines, PendingStageStyle.Render("○ "+label))
		case status == current && status.IsTerminal():
			lines = append(lines, DoneStageStyle.Render("✓ "+label))
		case status == current:
			lines = append(lines, CurrentStageStyle.Render("● "+label+"  "+status.Description()))
		case current.After(status):
			lines = append(lines, DoneStageStyle.Render("✓ "+label))
		default:
			lines = append(lines, PendingStageStyle.Render("○ "+label))
		}
	}
	return strings.Join(lines, "\n") + "\n"
}

func (m Model) renderState() string {
	var lines []string
	switch {
	case m.fatal != nil:
		lines = append(lines, ErrorStyle.Render("Stopped: "+m.fatal.Error()))
	case !m.observed:
		lines = append(lines, DimStyle.Render("Waiting for first status..."))
	default:
		switch m.last.Outcome {
		case pipeline.OutcomeDone:
			lines = append(lines, DoneStageStyle.Render("Audio is ready."))
		case pipeline.OutcomeRemoved:
			lines = append(lines, WarningStyle.Render("The job was removed from the queue before finishing."))
		case pipeline.OutcomeGaveUp:
			lines = append(lines, WarningStyle.Render("Stopped waiting. The job may still finish; check again later."))
		default:
			if m.last.Stalled {
				lines = append(lines, WarningStyle.Render("Taking longer than expected..."))
			}
			lines = append(lines, DimStyle.Render(fmt.Sprintf("Unchanged for %s", m.last.SinceChange.Truncate(time.Second))))
		}
		if m.last.Regressed {
			lines = append(lines, WarningStyle.Render(fmt.Sprintf("Backend reported %s after %s; keeping %s.", m.last.Reported, m.last.Status, m.last.Status)))
		}
	}
	if m.fetchErr != nil && m.fatal == nil {
		lines = append(lines, WarningStyle.Render("Retrying: "+m.fetchErr.Error()))
	}
	if m.interrupted && !m.last.Outcome.Terminal() {
		lines = append(lines, DimStyle.Render("Stopped watching. The job continues on the server."))
	}
	return strings.Join(lines, "\n")
}

// Run drives the model until the watch ends or the user quits, and returns
// the final model.
func Run(m Model, opts ...tea.ProgramOption) (Model, error) {
	final, err := tea.NewProgram(m, opts...).Run()
	if err != nil {
		return m, err
	}
	out, ok := final.(Model)
	if !ok {
		return m, fmt.Errorf("unexpected model type %T", final)
	}
	return out, nil
}
