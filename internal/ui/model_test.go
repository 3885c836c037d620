package ui

import (
	"errors"
	"strings"
	"testing"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/cwbudde/algo-onair/config"
	"github.com/cwbudde/algo-onair/gateway"
	"github.com/cwbudde/algo-onair/internal/meter"
	"github.com/cwbudde/algo-onair/internal/render"
)

func update(t *testing.T, m Model, msg tea.Msg) (Model, tea.Cmd) {
	t.Helper()
	next, cmd := m.Update(msg)
	mm, ok := next.(Model)
	if !ok {
		t.Fatalf("Update returned %T", next)
	}
	return mm, cmd
}

func TestProgressUpdatesModel(t *testing.T) {
	m := NewModel()
	m, _ = update(t, m, RenderStartMsg{DeckA: "/music/a.wav", DeckB: "/music/b.wav", Output: "/tmp/mix.wav", SampleRate: 48000})
	m, cmd := update(t, m, ProgressMsg{render.Progress{
		Frame:       24000,
		Total:       96000,
		Position:    0,
		Outgoing:    config.DeckB,
		State:       "timed_fade",
		Level:       meter.Reading{PeakDB: -3, RMSDB: -12},
		ReductionDB: -4.3,
	}})
	if cmd != nil {
		t.Fatal("progress should not issue a command")
	}
	if m.Fraction() != 0.25 || m.Outgoing != config.DeckB || m.State != "timed_fade" {
		t.Fatalf("model = %+v", m)
	}

	view := m.View()
	for _, want := range []string{"mix.wav", "a.wav", "b.wav", "timed_fade", "25%", "500ms", "-4.3 dB"} {
		if !strings.Contains(view, want) {
			t.Errorf("view lacks %q:\n%s", want, view)
		}
	}
}

func TestNotificationsAreBounded(t *testing.T) {
	m := NewModel()
	for i := range 8 {
		m, _ = update(t, m, NotificationMsg{gateway.Notification{
			Kind:     gateway.KindCrossfadeProgress,
			Progress: float64(i) / 8,
		}})
	}
	if len(m.Notes) != maxNotes {
		t.Fatalf("kept %d notes", len(m.Notes))
	}
	if m.Notes[maxNotes-1].Progress != 7.0/8 {
		t.Fatalf("latest note = %+v", m.Notes[maxNotes-1])
	}
}

func TestCompleteQuits(t *testing.T) {
	tests := []struct {
		name string
		msg  CompleteMsg
		want string
	}{
		{"ok", CompleteMsg{Frames: 48000, Level: meter.Reading{PeakDB: -1, RMSDB: -14}}, "✓"},
		{"failed", CompleteMsg{Err: errors.New("disk full")}, "disk full"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			m, cmd := update(t, NewModel(), tt.msg)
			if cmd == nil || !m.Done {
				t.Fatal("complete should quit")
			}
			if !strings.Contains(m.View(), tt.want) {
				t.Fatalf("summary lacks %q:\n%s", tt.want, m.View())
			}
		})
	}
}

func TestQuitKey(t *testing.T) {
	_, cmd := update(t, NewModel(), tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune("q")})
	if cmd == nil {
		t.Fatal("q should quit")
	}
}

func TestRenderFader(t *testing.T) {
	tests := []struct {
		pos  float64
		slot int
	}{
		{-1, 0},
		{1, barWidth - 1},
		{0, (barWidth - 1) / 2},
		{5, barWidth - 1},
	}
	for _, tt := range tests {
		got := []rune(strings.TrimSuffix(strings.TrimPrefix(renderFader(tt.pos), "A "), " B"))
		// Strip any styling so only the track remains.
		track := []rune(strings.Map(func(r rune) rune {
			if r == '─' || r == '█' {
				return r
			}
			return -1
		}, string(got)))
		if len(track) != barWidth || track[tt.slot] != '█' {
			t.Errorf("renderFader(%g) = %q", tt.pos, string(track))
		}
	}
}
