package narration

import (
	"context"

	"github.com/pkg/errors"
)

// ErrCanceled is reported to a done callback when its utterance was cancelled.
var ErrCanceled = errors.New("utterance canceled")

type Voice struct {
	Name string
	Lang string
}

// Utterance is one request to speak. A nil Voice means the engine default.
type Utterance struct {
	Text  string
	Lang  string
	Rate  float64
	Voice *Voice
}

// Engine is a host speech synthesizer.
//
// Speak must not block until playback ends; done is invoked exactly once when
// the utterance finishes, fails or is cancelled.
type Engine interface {
	Voices() []Voice
	VoicesReady() <-chan struct{}
	Speak(ctx context.Context, u Utterance, done func(error))
	Cancel()
}

// NopEngine is used when narration is disabled in config. Every utterance
// completes immediately.
type NopEngine struct{}

var closedReady = func() chan struct{} {
	ch := make(chan struct{})
	close(ch)
	return ch
}()

func (NopEngine) Voices() []Voice { return []Voice{{Name: "default"}} }

func (NopEngine) VoicesReady() <-chan struct{} { return closedReady }

func (NopEngine) Speak(_ context.Context, _ Utterance, done func(error)) { done(nil) }

func (NopEngine) Cancel() {}
