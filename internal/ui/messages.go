package ui

import (
	"github.com/cwbudde/algo-onair/gateway"
	"github.com/cwbudde/algo-onair/internal/meter"
	"github.com/cwbudde/algo-onair/internal/render"
)

// RenderStartMsg announces the render about to run.
type RenderStartMsg struct {
	DeckA, DeckB string
	Output       string
	SampleRate   int
}

// ProgressMsg carries a periodic render update.
type ProgressMsg struct {
	render.Progress
}

// NotificationMsg forwards a crossfade notification.
type NotificationMsg struct {
	gateway.Notification
}

// CompleteMsg reports the end of the render.
type CompleteMsg struct {
	Frames int
	Level  meter.Reading
	Err    error
}
