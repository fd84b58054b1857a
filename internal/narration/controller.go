package narration

import (
	"context"
	"strings"
	"sync"

	"github.com/pkg/errors"
	"github.com/rs/zerolog/log"

	"legal-explainer/internal/config"
	"legal-explainer/internal/metrics"
	"legal-explainer/internal/models"
)

// Controller keeps at most one utterance active at a time.
type Controller struct {
	engine  Engine
	lang    string
	rate    float64
	metrics *metrics.Exporter

	mu      sync.Mutex
	enabled bool
	active  bool
	// gen is bumped on every Speak and Stop so a superseded utterance's
	// completion cannot clear its successor's active flag.
	gen uint64
}

func NewController(engine Engine, cfg config.NarrationConfig, m *metrics.Exporter) *Controller {
	if engine == nil {
		engine = NopEngine{}
	}
	lang := cfg.Lang
	if lang == "" {
		lang = models.DefaultNarrationLang
	}
	rate := cfg.Rate
	if rate <= 0 {
		rate = models.DefaultNarrationRate
	}
	return &Controller{
		engine:  engine,
		lang:    lang,
		rate:    rate,
		metrics: m,
	}
}

func (c *Controller) SetEnabled(on bool) {
	c.mu.Lock()
	c.enabled = on
	c.mu.Unlock()
}

func (c *Controller) Enabled() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.enabled
}

func (c *Controller) Active() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.active
}

// Speak reads text aloud without waiting for playback. Any active utterance
// is cancelled first, even when narration is turned off.
func (c *Controller) Speak(text string) {
	c.mu.Lock()
	c.cancelLocked()
	c.gen++
	gen := c.gen
	enabled := c.enabled
	c.mu.Unlock()

	if !enabled {
		return
	}

	u := Utterance{Text: text, Lang: c.lang, Rate: c.rate}
	voices := c.engine.Voices()
	if len(voices) > 0 {
		u.Voice = pickVoice(voices, c.lang)
		c.dispatch(gen, u)
		return
	}

	go func() {
		<-c.engine.VoicesReady()
		u.Voice = pickVoice(c.engine.Voices(), c.lang)
		c.dispatch(gen, u)
	}()
}

// Stop cancels the active utterance, if any.
func (c *Controller) Stop() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.cancelLocked()
	c.gen++
}

func (c *Controller) cancelLocked() {
	if c.active {
		c.engine.Cancel()
		c.active = false
	}
}

func (c *Controller) dispatch(gen uint64, u Utterance) {
	c.mu.Lock()
	if gen != c.gen || !c.enabled {
		c.mu.Unlock()
		return
	}
	c.active = true
	c.mu.Unlock()

	c.metrics.RecordNarration()
	log.Debug().Int("chars", len(u.Text)).Str("lang", u.Lang).Msg("Starting narration")

	c.engine.Speak(context.Background(), u, func(err error) {
		c.mu.Lock()
		if gen == c.gen {
			c.active = false
		}
		c.mu.Unlock()

		if err != nil && !errors.Is(err, ErrCanceled) {
			log.Error().Err(err).Msg("Narration failed")
		}
	})
}

// pickVoice returns the first voice whose language starts with the primary
// subtag of lang, or nil for the engine default.
func pickVoice(voices []Voice, lang string) *Voice {
	prefix := strings.ToLower(lang)
	if i := strings.IndexAny(prefix, "-_"); i > 0 {
		prefix = prefix[:i]
	}
	for i := range voices {
		if strings.HasPrefix(strings.ToLower(voices[i].Lang), prefix) {
			v := voices[i]
			return &v
		}
	}
	return nil
}
