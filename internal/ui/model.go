// Package ui provides the Bubbletea progress display of an offline render.
package ui

import (
	"time"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/cwbudde/algo-onair/config"
	"github.com/cwbudde/algo-onair/internal/meter"
)

const maxNotes = 5

// Model is the Bubbletea model of a render.
type Model struct {
	DeckA, DeckB string
	Output       string
	SampleRate   int

	Frame, Total int
	Position     float64
	Outgoing     config.ChannelID
	State        string
	Level        meter.Reading
	ReductionDB  float64

	// Notes holds the latest notifications, oldest first.
	Notes []NotificationMsg

	StartTime time.Time
	Elapsed   time.Duration
	Done      bool
	Err       error

	Width, Height int
}

// NewModel creates a model waiting for the render to start.
func NewModel() Model {
	return Model{
		Position:  -1,
		Outgoing:  config.DeckA,
		State:     "idle",
		Level:     meter.Reading{PeakDB: meter.FloorDB, RMSDB: meter.FloorDB},
		StartTime: time.Now(),
	}
}

// Init initializes the model
func (m Model) Init() tea.Cmd { return nil }

// Update handles messages and updates the model
func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		switch msg.String() {
		case "q", "ctrl+c":
			return m, tea.Quit
		}

	case tea.WindowSizeMsg:
		m.Width = msg.Width
		m.Height = msg.Height

	case RenderStartMsg:
		m.DeckA, m.DeckB = msg.DeckA, msg.DeckB
		m.Output = msg.Output
		m.SampleRate = msg.SampleRate
		m.StartTime = time.Now()

	case ProgressMsg:
		m.Frame, m.Total = msg.Frame, msg.Total
		m.Position = msg.Position
		m.Outgoing = msg.Outgoing
		m.State = msg.State
		m.Level = msg.Level
		m.ReductionDB = msg.ReductionDB
		m.Elapsed = time.Since(m.StartTime)

	case NotificationMsg:
		m.Notes = append(m.Notes, msg)
		if len(m.Notes) > maxNotes {
			m.Notes = m.Notes[len(m.Notes)-maxNotes:]
		}

	case CompleteMsg:
		m.Done = true
		m.Err = msg.Err
		m.Frame = msg.Frames
		m.Level = msg.Level
		m.Elapsed = time.Since(m.StartTime)
		return m, tea.Quit
	}

	return m, nil
}

// View renders the UI
func (m Model) View() string {
	if m.Done {
		return renderSummary(m)
	}
	return renderProgress(m)
}

// Fraction returns the rendered share of the estimated total.
func (m Model) Fraction() float64 {
	if m.Total <= 0 {
		return 0
	}
	return min(float64(m.Frame)/float64(m.Total), 1)
}
