// Package ui holds the page state and the orchestration of one analysis.
package ui

import (
	"sync"

	"legal-explainer/internal/models"
)

// Display is the surface the orchestrator writes to.
type Display interface {
	// ShowText replaces the result area with plain text.
	ShowText(text string)
	// ShowResult replaces the result area with a summary and its HTML rendering.
	ShowResult(text, html string)
	SetTrigger(enabled bool, label string)
	SetFileName(name string)
	SetHighlight(on bool)
	// Alert queues a blocking notice for the user.
	Alert(msg string)

	State() State
	// TakeAlerts returns and clears the queued alerts.
	TakeAlerts() []string
}

// State is everything needed to draw the page.
type State struct {
	Text           string   `json:"text"`
	HTML           string   `json:"html,omitempty"`
	FileName       string   `json:"file_name"`
	TriggerEnabled bool     `json:"trigger_enabled"`
	TriggerLabel   string   `json:"trigger_label"`
	Highlight      bool     `json:"highlight"`
	Alerts         []string `json:"alerts,omitempty"`
}

// Page is the in-memory Display rendered by the HTTP server.
type Page struct {
	mu    sync.Mutex
	state State
}

func NewPage() *Page {
	return &Page{state: State{Text: models.MsgWaiting, TriggerLabel: models.TriggerLabel}}
}

func (p *Page) ShowText(text string) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.state.Text = text
	p.state.HTML = ""
}

func (p *Page) ShowResult(text, html string) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.state.Text = text
	p.state.HTML = html
}

func (p *Page) SetTrigger(enabled bool, label string) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.state.TriggerEnabled = enabled
	p.state.TriggerLabel = label
}

func (p *Page) SetFileName(name string) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.state.FileName = name
}

func (p *Page) SetHighlight(on bool) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.state.Highlight = on
}

func (p *Page) Alert(msg string) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.state.Alerts = append(p.state.Alerts, msg)
}

func (p *Page) State() State {
	p.mu.Lock()
	defer p.mu.Unlock()
	s := p.state
	s.Alerts = append([]string(nil), p.state.Alerts...)
	return s
}

func (p *Page) TakeAlerts() []string {
	p.mu.Lock()
	defer p.mu.Unlock()
	alerts := p.state.Alerts
	p.state.Alerts = nil
	return alerts
}
