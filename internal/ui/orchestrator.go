package ui

import (
	"context"
	"fmt"
	"mime/multipart"
	"strings"
	"sync"

	"github.com/pkg/errors"
	"github.com/rs/zerolog/log"
	"golang.org/x/sync/semaphore"

	"legal-explainer/internal/analysis"
	"legal-explainer/internal/config"
	"legal-explainer/internal/helper"
	"legal-explainer/internal/intake"
	"legal-explainer/internal/models"
)

var (
	// ErrBusy is returned by Analyze while another analysis is running.
	ErrBusy = errors.New("an analysis is already running")
	// ErrUnknownDragEvent is returned by Drag for an unrecognised event name.
	ErrUnknownDragEvent = errors.New("unknown drag event")
)

// Narrator is the part of the narration controller the page drives.
type Narrator interface {
	Speak(text string)
	Stop()
	SetEnabled(on bool)
	Enabled() bool
	Active() bool
}

// Snapshot is the page state plus the toggles, as served to the browser.
type Snapshot struct {
	State
	ReadAloud  bool `json:"read_aloud"`
	Narration  bool `json:"narration"`
	Speaking   bool `json:"speaking"`
	Busy       bool `json:"busy"`
	Configured bool `json:"configured"`
}

// Orchestrator wires intake, extraction, summarization and narration to a Display.
type Orchestrator struct {
	display  Display
	pipeline *analysis.Pipeline
	narrator Narrator
	running  *semaphore.Weighted

	mu        sync.Mutex
	doc       *models.Document
	shown     string
	readAloud bool
	busy      bool
	configErr error
}

// NewOrchestrator puts the display in its initial state. When the Gemini
// configuration is incomplete every later action is refused.
func NewOrchestrator(gemini config.GeminiConfig, display Display, pipeline *analysis.Pipeline, narrator Narrator) *Orchestrator {
	o := &Orchestrator{
		display:   display,
		pipeline:  pipeline,
		narrator:  narrator,
		running:   semaphore.NewWeighted(1),
		readAloud: true,
	}

	o.display.SetTrigger(false, models.TriggerLabel)
	if err := gemini.Validate(); err != nil {
		log.Error().Err(err).Msg("Gemini configuration is incomplete, analysis disabled")
		o.configErr = err
		o.showText(models.MsgConfigError)
		return o
	}
	o.showText(models.MsgWaiting)
	return o
}

// ConfigError is the start-up configuration failure, if any.
func (o *Orchestrator) ConfigError() error {
	return o.configErr
}

// SelectFile replaces the selected document if it passes intake.
func (o *Orchestrator) SelectFile(doc models.Document) error {
	if o.configErr != nil {
		return o.configErr
	}
	if err := o.pipeline.Validate(doc); err != nil {
		return o.reject(err)
	}
	o.accept(doc)
	return nil
}

// SelectUpload is SelectFile for a multipart form file.
func (o *Orchestrator) SelectUpload(header *multipart.FileHeader) error {
	if o.configErr != nil {
		return o.configErr
	}
	doc, err := o.pipeline.Load(header)
	if err != nil {
		return o.reject(err)
	}
	o.accept(doc)
	return nil
}

// Reject shows a rejection decided before a document could be built.
func (o *Orchestrator) Reject(reason intake.Reason, name string) error {
	if o.configErr != nil {
		return o.configErr
	}
	return o.reject(o.pipeline.Reject(reason, name))
}

func (o *Orchestrator) accept(doc models.Document) {
	o.mu.Lock()
	o.doc = &doc
	o.mu.Unlock()

	log.Info().Str("file", doc.Name).Int64("size", doc.Size).Msg("Document selected")
	o.display.SetFileName(doc.Name)
	o.display.SetTrigger(true, models.TriggerLabel)
}

func (o *Orchestrator) reject(err error) error {
	rej, ok := intake.AsRejection(err)
	if !ok {
		return err
	}

	o.mu.Lock()
	o.doc = nil
	o.mu.Unlock()

	log.Warn().Err(err).Msg("Document rejected")
	o.display.Alert(rej.Message())
	o.display.SetFileName("")
	o.display.SetTrigger(false, models.TriggerLabel)
	return err
}

// Analyze runs the pipeline on the selected document and reports every
// failure on the display. It does nothing when no document is selected.
func (o *Orchestrator) Analyze(ctx context.Context) error {
	doc, err := o.begin()
	if err != nil || doc == nil {
		return err
	}
	defer o.end()

	o.run(ctx, *doc)
	return nil
}

// Start is Analyze on a background goroutine. The orchestrator is already
// busy when Start returns; done is closed when the run ends.
func (o *Orchestrator) Start(ctx context.Context) (done <-chan struct{}, err error) {
	ch := make(chan struct{})
	doc, err := o.begin()
	if err != nil || doc == nil {
		close(ch)
		return ch, err
	}

	go func() {
		defer close(ch)
		defer o.end()
		o.run(ctx, *doc)
	}()
	return ch, nil
}

func (o *Orchestrator) begin() (*models.Document, error) {
	if o.configErr != nil {
		return nil, o.configErr
	}

	o.mu.Lock()
	doc := o.doc
	o.mu.Unlock()
	if doc == nil {
		return nil, nil
	}

	if !o.running.TryAcquire(1) {
		return nil, ErrBusy
	}
	o.setBusy(true)
	return doc, nil
}

func (o *Orchestrator) end() {
	o.setBusy(false)
	o.running.Release(1)
}

func (o *Orchestrator) run(ctx context.Context, doc models.Document) {
	logger := log.With().Str("run_id", helper.RunID()).Str("file", doc.Name).Logger()

	o.display.SetTrigger(false, models.TriggerBusyLabel)
	defer o.display.SetTrigger(true, models.TriggerLabel)

	defer func() {
		if r := recover(); r != nil {
			logger.Error().Interface("panic", r).Msg("Analysis aborted")
			o.showText(processFailed(fmt.Sprint(r)))
		}
	}()

	o.showText(models.MsgExtracting)

	text, err := o.pipeline.Extract(ctx, doc.Content)
	if errors.Is(err, analysis.ErrEmptyExtraction) {
		logger.Warn().Msg("No text extracted")
		o.showText(models.MsgEmptyExtraction)
		return
	}
	if err != nil {
		logger.Error().Err(err).Msg("Text extraction failed")
		o.showText(processFailed(err.Error()))
		return
	}

	input, tooLong := o.pipeline.Prepare(text)
	if tooLong {
		logger.Warn().Int("chars", helper.CharCount(text)).Msg("Extracted text is excessively long")
		o.display.Alert(models.MsgTooLong)
	}

	o.showText(models.MsgAnalyzing)
	logger.Info().Int("chars", helper.CharCount(input)).Msg("Summarizing document")
	result := o.pipeline.Summarize(ctx, input)
	logger.Info().Str("outcome", string(result.Outcome)).Msg("Analysis finished")

	o.showResult(result.Text)

	if o.narrator.Enabled() && o.ReadAloud() {
		o.narrator.Speak(result.Text)
	}
}

func processFailed(msg string) string {
	if strings.TrimSpace(msg) == "" {
		msg = models.MsgProcessFallback
	}
	return fmt.Sprintf(models.MsgProcessFailed, msg)
}

func (o *Orchestrator) SetReadAloud(on bool) {
	o.mu.Lock()
	o.readAloud = on
	o.mu.Unlock()
}

func (o *Orchestrator) ReadAloud() bool {
	o.mu.Lock()
	defer o.mu.Unlock()
	return o.readAloud
}

// SetNarration flips the narration toggle. Turning it on reads the current
// result aloud; placeholders and error texts are never read.
func (o *Orchestrator) SetNarration(on bool) {
	o.narrator.SetEnabled(on)

	o.mu.Lock()
	shown := strings.TrimSpace(o.shown)
	readAloud := o.readAloud
	o.mu.Unlock()

	if on && readAloud && narratable(shown) {
		o.narrator.Speak(shown)
		return
	}
	if o.narrator.Active() {
		o.narrator.Stop()
	}
}

func narratable(text string) bool {
	if text == "" {
		return false
	}
	for _, prefix := range models.NonNarratablePrefixes {
		if strings.HasPrefix(text, prefix) {
			return false
		}
	}
	return true
}

func (o *Orchestrator) DragEnter() { o.display.SetHighlight(true) }
func (o *Orchestrator) DragOver()  { o.display.SetHighlight(true) }
func (o *Orchestrator) DragLeave() { o.display.SetHighlight(false) }
func (o *Orchestrator) DragDrop()  { o.display.SetHighlight(false) }

// Drag dispatches a browser drag event by name.
func (o *Orchestrator) Drag(event string) error {
	switch event {
	case "enter":
		o.DragEnter()
	case "over":
		o.DragOver()
	case "leave":
		o.DragLeave()
	case "drop":
		o.DragDrop()
	default:
		return errors.Wrap(ErrUnknownDragEvent, event)
	}
	return nil
}

func (o *Orchestrator) Snapshot() Snapshot {
	o.mu.Lock()
	s := Snapshot{
		ReadAloud:  o.readAloud,
		Busy:       o.busy,
		Configured: o.configErr == nil,
	}
	o.mu.Unlock()

	s.State = o.display.State()
	s.Narration = o.narrator.Enabled()
	s.Speaking = o.narrator.Active()
	return s
}

// TakeAlerts drains the queued alerts for a single page render.
func (o *Orchestrator) TakeAlerts() []string {
	return o.display.TakeAlerts()
}

func (o *Orchestrator) showText(text string) {
	o.mu.Lock()
	o.shown = text
	o.mu.Unlock()
	o.display.ShowText(text)
}

func (o *Orchestrator) showResult(text string) {
	o.mu.Lock()
	o.shown = text
	o.mu.Unlock()
	o.display.ShowResult(text, RenderHTML(text))
}

func (o *Orchestrator) setBusy(busy bool) {
	o.mu.Lock()
	o.busy = busy
	o.mu.Unlock()
}
