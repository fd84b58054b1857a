// Package analysis runs the extract, truncate and summarize steps shared by
// the page, the JSON API and the CLI.
package analysis

import (
	"context"
	"mime/multipart"
	"strings"
	"time"

	"github.com/pkg/errors"
	"github.com/rs/zerolog/log"

	"legal-explainer/internal/config"
	"legal-explainer/internal/helper"
	"legal-explainer/internal/intake"
	"legal-explainer/internal/metrics"
	"legal-explainer/internal/models"
	"legal-explainer/internal/parser"
)

// ErrEmptyExtraction means the PDF parsed but yielded no visible text.
var ErrEmptyExtraction = errors.New(models.MsgEmptyExtraction)

type Extractor interface {
	ExtractText(ctx context.Context, data []byte) (string, error)
}

type Summarizer interface {
	Analyze(ctx context.Context, text string) models.Result
}

// Explanation is the outcome of one full run.
type Explanation struct {
	RunID   string         `json:"run_id"`
	Result  string         `json:"result"`
	Outcome models.Outcome `json:"outcome"`
	Warning string         `json:"warning,omitempty"`
}

type Pipeline struct {
	validator  *intake.Validator
	extractor  Extractor
	summarizer Summarizer
	metrics    *metrics.Exporter
	maxChars   int
	warnChars  int
}

func NewPipeline(cfg config.AnalysisConfig, validator *intake.Validator, extractor Extractor, summarizer Summarizer, m *metrics.Exporter) *Pipeline {
	if validator == nil {
		validator = intake.NewValidator(0)
	}
	maxChars := cfg.MaxChars
	if maxChars <= 0 {
		maxChars = models.DefaultMaxChars
	}
	warnChars := cfg.WarnChars
	if warnChars <= 0 {
		warnChars = models.DefaultWarnChars
	}
	return &Pipeline{
		validator:  validator,
		extractor:  extractor,
		summarizer: summarizer,
		metrics:    m,
		maxChars:   maxChars,
		warnChars:  warnChars,
	}
}

func (p *Pipeline) Validator() *intake.Validator {
	return p.validator
}

// Validate applies the intake rules and counts rejections.
func (p *Pipeline) Validate(doc models.Document) error {
	return p.countRejection(p.validator.Validate(doc))
}

// Load reads an uploaded form file, applying the intake rules.
func (p *Pipeline) Load(header *multipart.FileHeader) (models.Document, error) {
	doc, err := p.validator.FromMultipart(header)
	return doc, p.countRejection(err)
}

// Reject builds and counts a rejection decided outside the validator, such as
// a request body cut off by the transport limit.
func (p *Pipeline) Reject(reason intake.Reason, name string) error {
	return p.countRejection(&intake.RejectionError{Reason: reason, Name: name})
}

func (p *Pipeline) countRejection(err error) error {
	if rej, ok := intake.AsRejection(err); ok {
		p.metrics.RecordRejection(string(rej.Reason))
	}
	return err
}

// Extract returns the document text, or ErrEmptyExtraction when it holds
// nothing but whitespace.
func (p *Pipeline) Extract(ctx context.Context, data []byte) (string, error) {
	text, err := p.extractor.ExtractText(ctx, data)
	if err != nil {
		p.metrics.RecordExtractionFailure(parser.Kind(err))
		return "", err
	}
	if strings.TrimSpace(text) == "" {
		p.metrics.RecordExtractionFailure("empty")
		return "", ErrEmptyExtraction
	}
	p.metrics.RecordExtracted(helper.CharCount(text))
	return text, nil
}

// Prepare cuts text to the summarization limit. tooLong reports whether the
// text crossed the warning threshold.
func (p *Pipeline) Prepare(text string) (input string, tooLong bool) {
	return helper.Prefix(text, p.maxChars), helper.CharCount(text) > p.warnChars
}

func (p *Pipeline) Summarize(ctx context.Context, text string) models.Result {
	start := time.Now()
	result := p.summarizer.Analyze(ctx, text)
	p.metrics.RecordAnalysis(string(result.Outcome), time.Since(start))
	return result
}

// Run validates, extracts and summarizes doc in one go. Rejections and
// extraction failures are returned as errors; summarization never fails.
func (p *Pipeline) Run(ctx context.Context, doc models.Document) (Explanation, error) {
	runID := helper.RunID()
	logger := log.With().Str("run_id", runID).Str("file", doc.Name).Logger()

	if err := p.Validate(doc); err != nil {
		logger.Warn().Err(err).Msg("Document rejected")
		return Explanation{RunID: runID}, err
	}

	text, err := p.Extract(ctx, doc.Content)
	if err != nil {
		logger.Error().Err(err).Msg("Text extraction failed")
		return Explanation{RunID: runID}, err
	}

	input, tooLong := p.Prepare(text)
	exp := Explanation{RunID: runID}
	if tooLong {
		exp.Warning = models.MsgTooLong
		logger.Warn().Int("chars", helper.CharCount(text)).Msg("Extracted text is excessively long")
	}

	logger.Info().Int("chars", helper.CharCount(input)).Msg("Summarizing document")
	result := p.Summarize(ctx, input)
	exp.Result = result.Text
	exp.Outcome = result.Outcome
	logger.Info().Str("outcome", string(result.Outcome)).Msg("Analysis finished")
	return exp, nil
}
