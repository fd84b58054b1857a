package narration

import (
	"bufio"
	"bytes"
	"context"
	"fmt"
	"math"
	"os/exec"
	"strings"
	"sync"
	"time"

	"github.com/pkg/errors"
	"github.com/rs/zerolog/log"
)

const (
	DefaultBinary = "espeak-ng"
	// words per minute at rate 1.0
	baseWPM = 175
)

// ExecEngine speaks through a host TTS binary with an espeak-ng compatible CLI.
type ExecEngine struct {
	binary string

	ready chan struct{}

	mu     sync.Mutex
	voices []Voice
	cancel context.CancelFunc
}

// NewExecEngine starts listing the binary's voices in the background.
func NewExecEngine(binary string) *ExecEngine {
	if binary == "" {
		binary = DefaultBinary
	}
	e := &ExecEngine{binary: binary, ready: make(chan struct{})}
	go e.loadVoices()
	return e
}

func (e *ExecEngine) loadVoices() {
	defer close(e.ready)

	out, err := exec.Command(e.binary, "--voices").Output()
	if err != nil {
		log.Error().Err(err).Str("binary", e.binary).Msg("Failed to list TTS voices")
		return
	}
	voices := parseVoices(out)

	e.mu.Lock()
	e.voices = voices
	e.mu.Unlock()
	log.Info().Int("voices", len(voices)).Str("binary", e.binary).Msg("TTS voices loaded")
}

// parseVoices reads the table printed by `espeak-ng --voices`:
//
//	Pty Language       Age/Gender VoiceName          File                 Other Languages
//	 5  pt-BR           --/M      Portuguese_(Brazil) roa/pt-BR
func parseVoices(out []byte) []Voice {
	var voices []Voice
	scanner := bufio.NewScanner(bytes.NewReader(out))
	for scanner.Scan() {
		fields := strings.Fields(scanner.Text())
		if len(fields) < 4 || fields[0] == "Pty" {
			continue
		}
		voices = append(voices, Voice{Name: fields[3], Lang: fields[1]})
	}
	return voices
}

func (e *ExecEngine) Voices() []Voice {
	e.mu.Lock()
	defer e.mu.Unlock()
	return append([]Voice(nil), e.voices...)
}

func (e *ExecEngine) VoicesReady() <-chan struct{} { return e.ready }

func (e *ExecEngine) Speak(ctx context.Context, u Utterance, done func(error)) {
	ctx, cancel := context.WithCancel(ctx)

	cmd := exec.CommandContext(ctx, e.binary, speakArgs(u)...)
	cmd.Stdin = strings.NewReader(u.Text)
	var stderr bytes.Buffer
	cmd.Stderr = &stderr
	cmd.WaitDelay = time.Second

	if err := cmd.Start(); err != nil {
		cancel()
		done(errors.Wrapf(err, "start %s", e.binary))
		return
	}

	e.mu.Lock()
	e.cancel = cancel
	e.mu.Unlock()

	go func() {
		err := cmd.Wait()
		canceled := ctx.Err() != nil
		cancel()
		switch {
		case canceled:
			done(ErrCanceled)
		case err != nil:
			done(errors.Wrapf(err, "%s: %s", e.binary, strings.TrimSpace(stderr.String())))
		default:
			done(nil)
		}
	}()
}

// Cancel kills the most recently started utterance.
func (e *ExecEngine) Cancel() {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.cancel != nil {
		e.cancel()
		e.cancel = nil
	}
}

func speakArgs(u Utterance) []string {
	voice := u.Lang
	if u.Voice != nil && u.Voice.Lang != "" {
		voice = u.Voice.Lang
	}
	args := []string{"-s", wordsPerMinute(u.Rate), "--stdin"}
	if voice != "" {
		args = append([]string{"-v", voice}, args...)
	}
	return args
}

func wordsPerMinute(rate float64) string {
	if rate <= 0 {
		rate = 1
	}
	return fmt.Sprintf("%d", int(math.Round(baseWPM*rate)))
}
