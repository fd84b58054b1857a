package main

import (
	"legal-explainer/internal/analysis"
	"legal-explainer/internal/config"
	"legal-explainer/internal/intake"
	"legal-explainer/internal/llmservice"
	"legal-explainer/internal/metrics"
	"legal-explainer/internal/narration"
	"legal-explainer/internal/parser"
)

// app holds the components shared by every command.
type app struct {
	cfg      *config.Config
	metrics  *metrics.Exporter
	pipeline *analysis.Pipeline
	engine   narration.Engine
	narrator *narration.Controller
}

func newApp(cfg *config.Config, speak bool) *app {
	m := metrics.NewExporter(metrics.DefaultConfig())
	client := llmservice.NewClient(cfg.Gemini, nil)
	pipeline := analysis.NewPipeline(cfg.Analysis, intake.NewValidator(cfg.Upload.MaxBytes), parser.NewExtractor(), client, m)

	var engine narration.Engine = narration.NopEngine{}
	if cfg.Narration.Enabled || speak {
		engine = narration.NewExecEngine(cfg.Narration.Engine)
	}

	return &app{
		cfg:      cfg,
		metrics:  m,
		pipeline: pipeline,
		engine:   engine,
		narrator: narration.NewController(engine, cfg.Narration, m),
	}
}
