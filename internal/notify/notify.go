// Package notify surfaces upload results to the author. Sinks are fire and forget:
// nothing in the pipeline reads a value back from them.
package notify

import (
	"context"
	"log/slog"
	"time"
)

type Kind string

const (
	Success Kind = "success"
	Failure Kind = "failure"
)

type Notification struct {
	Kind   Kind      `json:"kind"`
	Title  string    `json:"title"`
	Detail string    `json:"detail"`
	At     time.Time `json:"at"`
}

type Sink interface {
	Notify(n Notification)
}

// SinkFunc adapts a plain function to a Sink.
type SinkFunc func(n Notification)

func (f SinkFunc) Notify(n Notification) {
	f(n)
}

// Multi fans a notification out to every sink, in order.
func Multi(sinks ...Sink) Sink {
	return SinkFunc(func(n Notification) {
		for _, s := range sinks {
			if s != nil {
				s.Notify(n)
			}
		}
	})
}

// LogSink writes notifications to a structured logger.
type LogSink struct {
	Logger *slog.Logger
}

func (l LogSink) Notify(n Notification) {
	level := slog.LevelInfo
	if n.Kind == Failure {
		level = slog.LevelWarn
	}
	l.Logger.Log(context.Background(), level, "notification", "kind", n.Kind, "title", n.Title, "detail", n.Detail)
}
