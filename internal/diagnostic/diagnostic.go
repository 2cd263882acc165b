/*****************************************************************************************************************/

//	@package	github.com/thespacedoctor/soxs-pipeline

/*****************************************************************************************************************/

// Package diagnostic implements a typed event channel, replacing the
// reference implementation's per-call logger injection with a two-level
// split between debug traces and user-visible progress.
package diagnostic

/*****************************************************************************************************************/

import (
	"fmt"
	"log/slog"
	"os"
)

/*****************************************************************************************************************/

// Level distinguishes debug traces from user-visible progress events.
type Level int

/*****************************************************************************************************************/

const (
	Debug Level = iota
	Progress
)

/*****************************************************************************************************************/

// Event is one emitted diagnostic.
type Event struct {
	Level     Level
	Component string
	Message   string
	Fields    map[string]any
}

/*****************************************************************************************************************/

// Channel is the diagnostic sink passed explicitly to every component
// constructor, replacing the reference implementation's ambient logger.
type Channel struct {
	logger *slog.Logger
}

/*****************************************************************************************************************/

// New constructs a Channel over logger (a text handler on stdout if logger is nil).
func New(logger *slog.Logger) *Channel {
	if logger == nil {
		logger = slog.New(slog.NewTextHandler(os.Stdout, nil))
	}

	return &Channel{logger: logger}
}

/*****************************************************************************************************************/

// Emit records one Event at its configured level.
func (c *Channel) Emit(e Event) {
	attrs := make([]any, 0, len(e.Fields)*2+2)

	attrs = append(attrs, "component", e.Component)

	for k, v := range e.Fields {
		attrs = append(attrs, k, v)
	}

	switch e.Level {
	case Debug:
		c.logger.Debug(e.Message, attrs...)
	default:
		c.logger.Info(e.Message, attrs...)
	}
}

/*****************************************************************************************************************/

// Debugf emits a debug-level trace.
func (c *Channel) Debugf(component string, fields map[string]any, format string, args ...any) {
	c.Emit(Event{Level: Debug, Component: component, Message: fmt.Sprintf(format, args...), Fields: fields})
}

/*****************************************************************************************************************/

// Progressf emits a user-visible progress event.
func (c *Channel) Progressf(component string, fields map[string]any, format string, args ...any) {
	c.Emit(Event{Level: Progress, Component: component, Message: fmt.Sprintf(format, args...), Fields: fields})
}

/*****************************************************************************************************************/
