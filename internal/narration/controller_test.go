package narration

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"legal-explainer/internal/config"
)

type fakeEngine struct {
	mu      sync.Mutex
	voices  []Voice
	ready   chan struct{}
	spoken  []Utterance
	dones   []func(error)
	cancels int
}

func newFakeEngine(voices ...Voice) *fakeEngine {
	e := &fakeEngine{voices: voices, ready: make(chan struct{})}
	if len(voices) > 0 {
		close(e.ready)
	}
	return e
}

func (f *fakeEngine) Voices() []Voice {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]Voice(nil), f.voices...)
}

func (f *fakeEngine) VoicesReady() <-chan struct{} { return f.ready }

func (f *fakeEngine) Speak(_ context.Context, u Utterance, done func(error)) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.spoken = append(f.spoken, u)
	f.dones = append(f.dones, done)
}

func (f *fakeEngine) Cancel() {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.cancels++
}

func (f *fakeEngine) publish(voices ...Voice) {
	f.mu.Lock()
	f.voices = voices
	f.mu.Unlock()
	close(f.ready)
}

func (f *fakeEngine) utterances() []Utterance {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]Utterance(nil), f.spoken...)
}

func (f *fakeEngine) finish(i int, err error) {
	f.mu.Lock()
	done := f.dones[i]
	f.mu.Unlock()
	done(err)
}

func (f *fakeEngine) cancelCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.cancels
}

func newController(engine Engine) *Controller {
	return NewController(engine, config.NarrationConfig{}, nil)
}

func TestSpeak_DisabledDoesNothing(t *testing.T) {
	engine := newFakeEngine(Voice{Name: "Portuguese", Lang: "pt-BR"})
	c := newController(engine)

	c.Speak("olá")

	assert.Empty(t, engine.utterances())
	assert.False(t, c.Active())
	assert.False(t, c.Enabled())
}

func TestSpeak_DispatchesWithDefaults(t *testing.T) {
	engine := newFakeEngine(
		Voice{Name: "English", Lang: "en-US"},
		Voice{Name: "Portuguese_(Portugal)", Lang: "pt-PT"},
		Voice{Name: "Portuguese_(Brazil)", Lang: "pt-BR"},
	)
	c := newController(engine)
	c.SetEnabled(true)

	c.Speak("Explicação simples.")

	spoken := engine.utterances()
	require.Len(t, spoken, 1)
	assert.Equal(t, "Explicação simples.", spoken[0].Text)
	assert.Equal(t, "pt-BR", spoken[0].Lang)
	assert.InDelta(t, 0.9, spoken[0].Rate, 1e-9)
	require.NotNil(t, spoken[0].Voice)
	assert.Equal(t, "pt-PT", spoken[0].Voice.Lang)
	assert.True(t, c.Active())

	engine.finish(0, nil)
	assert.False(t, c.Active())
}

func TestSpeak_NoMatchingVoiceUsesDefault(t *testing.T) {
	engine := newFakeEngine(Voice{Name: "English", Lang: "en-US"})
	c := NewController(engine, config.NarrationConfig{Lang: "pt-BR", Rate: 1.2}, nil)
	c.SetEnabled(true)

	c.Speak("texto")

	spoken := engine.utterances()
	require.Len(t, spoken, 1)
	assert.Nil(t, spoken[0].Voice)
	assert.InDelta(t, 1.2, spoken[0].Rate, 1e-9)
}

func TestSpeak_CancelsActiveUtterance(t *testing.T) {
	engine := newFakeEngine(Voice{Name: "pt", Lang: "pt"})
	c := newController(engine)
	c.SetEnabled(true)

	c.Speak("primeiro")
	require.True(t, c.Active())

	c.Speak("segundo")
	assert.Equal(t, 1, engine.cancelCount())
	require.Len(t, engine.utterances(), 2)
	assert.True(t, c.Active())

	// the cancelled utterance reports late and must not clear the new one
	engine.finish(0, ErrCanceled)
	assert.True(t, c.Active())

	engine.finish(1, nil)
	assert.False(t, c.Active())
}

func TestSpeak_CancelsEvenWhenDisabled(t *testing.T) {
	engine := newFakeEngine(Voice{Name: "pt", Lang: "pt"})
	c := newController(engine)
	c.SetEnabled(true)
	c.Speak("primeiro")

	c.SetEnabled(false)
	c.Speak("segundo")

	assert.Equal(t, 1, engine.cancelCount())
	assert.Len(t, engine.utterances(), 1)
	assert.False(t, c.Active())
}

func TestSpeak_ErrorClearsActive(t *testing.T) {
	engine := newFakeEngine(Voice{Name: "pt", Lang: "pt"})
	c := newController(engine)
	c.SetEnabled(true)

	c.Speak("texto")
	require.True(t, c.Active())

	engine.finish(0, errors.New("audio device busy"))
	assert.False(t, c.Active())
}

func TestSpeak_WaitsForVoices(t *testing.T) {
	engine := newFakeEngine()
	c := newController(engine)
	c.SetEnabled(true)

	c.Speak("texto")
	assert.Empty(t, engine.utterances())

	engine.publish(Voice{Name: "Portuguese", Lang: "pt-BR"})

	require.Eventually(t, func() bool { return len(engine.utterances()) == 1 }, time.Second, 5*time.Millisecond)
	spoken := engine.utterances()
	require.NotNil(t, spoken[0].Voice)
	assert.Equal(t, "Portuguese", spoken[0].Voice.Name)
	assert.True(t, c.Active())
}

func TestSpeak_StaleWaiterIsDropped(t *testing.T) {
	engine := newFakeEngine()
	c := newController(engine)
	c.SetEnabled(true)

	c.Speak("texto")
	c.Stop()
	engine.publish(Voice{Name: "Portuguese", Lang: "pt-BR"})

	time.Sleep(20 * time.Millisecond)
	assert.Empty(t, engine.utterances())
	assert.False(t, c.Active())
}

func TestStop(t *testing.T) {
	engine := newFakeEngine(Voice{Name: "pt", Lang: "pt"})
	c := newController(engine)
	c.SetEnabled(true)

	c.Stop()
	assert.Equal(t, 0, engine.cancelCount())

	c.Speak("texto")
	c.Stop()
	assert.Equal(t, 1, engine.cancelCount())
	assert.False(t, c.Active())

	engine.finish(0, ErrCanceled)
	assert.False(t, c.Active())
}

func TestNopEngine(t *testing.T) {
	c := NewController(nil, config.NarrationConfig{}, nil)
	c.SetEnabled(true)

	c.Speak("texto")
	assert.False(t, c.Active())
}

func TestPickVoice(t *testing.T) {
	voices := []Voice{{Name: "a", Lang: "en"}, {Name: "b", Lang: "PT-br"}}

	v := pickVoice(voices, "pt-BR")
	require.NotNil(t, v)
	assert.Equal(t, "b", v.Name)

	v = pickVoice(voices, "pt_PT")
	require.NotNil(t, v)
	assert.Equal(t, "b", v.Name)

	assert.Nil(t, pickVoice(voices, "es-ES"))
	assert.Nil(t, pickVoice(nil, "pt-BR"))
}
