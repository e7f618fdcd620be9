package notify

import (
	"context"
	"errors"
	"io"
)

// Chime plays the one-shot audio cue accompanying a delivered notification.
// Playback is a side effect, never a correctness requirement: failures are
// swallowed by the caller.
type Chime interface {
	Play(ctx context.Context) error
}

// NopChime discards the cue.
type NopChime struct{}

func (NopChime) Play(context.Context) error { return nil }

// WriterChime rings the terminal bell on the given writer.
type WriterChime struct {
	W io.Writer
}

func (c WriterChime) Play(context.Context) error {
	if c.W == nil {
		return errors.New("notify: chime writer is nil")
	}
	_, err := c.W.Write([]byte{'\a'})
	return err
}
