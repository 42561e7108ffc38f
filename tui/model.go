// Package tui is a terminal client that plays one local engine.
package tui

import (
	"errors"
	"fmt"
	"strings"
	"time"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/wricardo/mcp-training/snakegrid/game/engine"
)

const maxEvents = 8

// Observer receives every turn the client plays, e.g. a recorder
type Observer func(kind string, report *engine.TurnReport, state *engine.State)

type Model struct {
	engine   *engine.GameEngine
	interval time.Duration
	snakeID  int
	observer Observer

	state   *engine.State
	paused  bool
	message string
	events  []string
}

// New creates a client steering snakeID on eng, ticking every interval
func New(eng *engine.GameEngine, snakeID int, interval time.Duration, observer Observer) Model {
	if interval <= 0 {
		interval = engine.DefaultTurnDuration
	}
	return Model{
		engine:   eng,
		interval: interval,
		snakeID:  snakeID,
		observer: observer,
		state:    eng.Snapshot(),
	}
}

type TickMsg time.Time

func tickCmd(d time.Duration) tea.Cmd {
	return tea.Tick(d, func(t time.Time) tea.Msg {
		return TickMsg(t)
	})
}

func (m Model) Init() tea.Cmd {
	return tickCmd(m.interval)
}

var keyDirections = map[string]engine.Direction{
	"up": engine.Up, "w": engine.Up,
	"down": engine.Down, "s": engine.Down,
	"left": engine.Left, "a": engine.Left,
	"right": engine.Right, "d": engine.Right,
}

func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		key := msg.String()
		switch key {
		case "q", "ctrl+c", "esc":
			return m, tea.Quit
		case "p", " ":
			m.paused = !m.paused
			return m, nil
		case "r":
			return m.reset(), nil
		}
		if dir, ok := keyDirections[key]; ok {
			m.message = ""
			if err := m.engine.Steer(m.snakeID, dir); err != nil {
				m.message = err.Error()
			}
		}
		return m, nil

	case TickMsg:
		if !m.paused && !m.state.GameOver {
			m = m.step()
		}
		return m, tickCmd(m.interval)
	}
	return m, nil
}

func (m Model) step() Model {
	report, err := m.engine.Tick()
	if err != nil {
		if !errors.Is(err, engine.ErrGameOver) {
			m.message = err.Error()
		}
		m.state = m.engine.Snapshot()
		return m
	}
	m.state = m.engine.Snapshot()
	if m.observer != nil {
		m.observer("turn", report, m.state)
	}

	for _, res := range report.Results {
		switch {
		case !res.Alive:
			m.pushEvent(fmt.Sprintf("turn %d: snake %d died (%s)", report.Turn, res.SnakeID, res.Cause))
		case res.Outcome == engine.OutcomeFood:
			m.pushEvent(fmt.Sprintf("turn %d: snake %d ate, length %d", report.Turn, res.SnakeID, res.Length))
		}
	}
	if report.GameOver {
		m.pushEvent(fmt.Sprintf("turn %d: game over", report.Turn))
	}
	return m
}

func (m Model) reset() Model {
	state, err := m.engine.Reset()
	if err != nil {
		m.message = err.Error()
		return m
	}
	m.state = state
	m.message = ""
	m.events = nil
	if m.observer != nil {
		m.observer("reset", nil, state)
	}
	return m
}

func (m *Model) pushEvent(e string) {
	m.events = append([]string{e}, m.events...)
	if len(m.events) > maxEvents {
		m.events = m.events[:maxEvents]
	}
}

// State returns the last snapshot the client rendered
func (m Model) State() *engine.State { return m.state }

func (m Model) View() string {
	st := m.state
	var sb strings.Builder

	fmt.Fprintf(&sb, "snakegrid  %s  turn %d  episode %d  best %d\n\n",
		st.ConfigName, st.Turn, st.Episodes, st.BestScore)

	border := "+" + strings.Repeat("-", st.Width) + "+\n"
	sb.WriteString(border)
	for _, row := range st.Grid {
		sb.WriteString("|" + row + "|\n")
	}
	sb.WriteString(border)

	sb.WriteString("\n")
	for _, s := range st.Snakes {
		marker := " "
		if s.ID == m.snakeID {
			marker = ">"
		}
		status := "alive"
		if !s.IsAlive {
			status = "dead"
		}
		fmt.Fprintf(&sb, "%s snake %d  %-5s  length %d  score %d  heading %s\n",
			marker, s.ID, status, s.Length, s.Score, s.Direction)
	}

	switch {
	case st.GameOver && st.BoardFull:
		sb.WriteString("\nBOARD FULL. Press r to play again.\n")
	case st.GameOver:
		sb.WriteString("\nGAME OVER. Press r to play again.\n")
	case m.paused:
		sb.WriteString("\nPAUSED\n")
	}
	if m.message != "" {
		sb.WriteString("\n! " + m.message + "\n")
	}

	if len(m.events) > 0 {
		sb.WriteString("\n")
		for _, e := range m.events {
			sb.WriteString("  " + e + "\n")
		}
	}

	sb.WriteString("\narrows/wasd steer  p pause  r reset  q quit\n")
	return sb.String()
}
