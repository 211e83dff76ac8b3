// Package tui is the interactive terminal rendition of a client's payment
// page.
package tui

import (
	"context"
	"errors"
	"fmt"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/rs/zerolog"

	"paydesk/internal/clientpage"
	"paydesk/internal/history"
	"paydesk/internal/logger"
)

// pageMsg carries the result of a page refresh.
type pageMsg struct {
	state   clientpage.State
	history history.State
	err     error
}

// historyMsg carries the result of loading one job's history.
type historyMsg struct {
	state history.State
	err   error
}

// Model is the bubbletea model of the client payment page. Backend calls run
// as commands; their results are applied in Update, which drops any result
// older than the state already shown.
type Model struct {
	ctx  context.Context
	page *clientpage.Page
	log  zerolog.Logger

	state   clientpage.State
	history history.State
	cursor  int
	loading bool
	width   int
}

// New creates the model for page. ctx bounds every backend call the model
// issues.
func New(ctx context.Context, page *clientpage.Page) Model {
	return Model{
		ctx:     ctx,
		page:    page,
		log:     logger.WithComponent("tui"),
		state:   page.State(),
		history: page.History.State(),
		loading: true,
	}
}

// Run starts the interactive program and blocks until the user quits or ctx
// is cancelled.
func Run(ctx context.Context, page *clientpage.Page) error {
	const op = "tui.Run"

	program := tea.NewProgram(New(ctx, page), tea.WithAltScreen(), tea.WithContext(ctx))
	if _, err := program.Run(); err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}
	return nil
}

func (m Model) Init() tea.Cmd {
	return m.refreshCmd()
}

func (m Model) refreshCmd() tea.Cmd {
	page, ctx := m.page, m.ctx
	return func() tea.Msg {
		state, err := page.Refresh(ctx)
		return pageMsg{state: state, history: page.History.State(), err: err}
	}
}

func (m Model) selectCmd(jobID string) tea.Cmd {
	page, ctx := m.page, m.ctx
	return func() tea.Msg {
		state, err := page.SelectJob(ctx, jobID)
		return historyMsg{state: state, err: err}
	}
}

func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width = msg.Width
		return m, nil

	case tea.KeyMsg:
		return m.handleKey(msg)

	case pageMsg:
		if errors.Is(msg.err, clientpage.ErrStale) || msg.state.Generation < m.state.Generation {
			m.log.Debug().Uint64("generation", msg.state.Generation).Msg("Dropping stale page result")
			return m, nil
		}
		m.loading = false
		m.state = msg.state
		if msg.history.Generation >= m.history.Generation {
			m.history = msg.history
		}
		m.cursor = m.selectedIndex()
		return m, nil

	case historyMsg:
		if errors.Is(msg.err, history.ErrStale) || msg.state.Generation < m.history.Generation {
			m.log.Debug().Uint64("generation", msg.state.Generation).Msg("Dropping stale history result")
			return m, nil
		}
		if errors.Is(msg.err, clientpage.ErrUnknownJob) {
			return m, nil
		}
		m.history = msg.state
		m.state.SelectedJobID = msg.state.JobID
		return m, nil
	}
	return m, nil
}

func (m Model) handleKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch msg.String() {
	case "q", "ctrl+c":
		return m, tea.Quit
	case "up", "k":
		if m.cursor > 0 {
			m.cursor--
		}
	case "down", "j":
		if m.cursor < len(m.state.Jobs)-1 {
			m.cursor++
		}
	case "enter":
		if m.cursor < 0 || m.cursor >= len(m.state.Jobs) {
			return m, nil
		}
		jobID := m.state.Jobs[m.cursor].ID
		m.state.SelectedJobID = jobID
		m.history.Status = history.StatusLoading
		return m, m.selectCmd(jobID)
	case "r":
		m.loading = true
		return m, m.refreshCmd()
	}
	return m, nil
}

func (m Model) selectedIndex() int {
	for i, job := range m.state.Jobs {
		if job.ID == m.state.SelectedJobID {
			return i
		}
	}
	return 0
}
