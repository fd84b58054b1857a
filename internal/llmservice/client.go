package llmservice

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"

	"github.com/pkg/errors"
	"github.com/rs/zerolog/log"
	"github.com/tmc/langchaingo/prompts"

	"legal-explainer/internal/config"
	"legal-explainer/internal/helper"
	"legal-explainer/internal/models"
)

const promptInputKey = "text"

type part struct {
	Text string `json:"text"`
}

type content struct {
	Parts []part `json:"parts"`
}

type generateRequest struct {
	Contents []content `json:"contents"`
}

type apiError struct {
	Message string `json:"message"`
}

type candidate struct {
	Content       *content          `json:"content"`
	FinishReason  string            `json:"finishReason"`
	SafetyRatings []json.RawMessage `json:"safetyRatings"`
}

type generateResponse struct {
	Candidates []candidate `json:"candidates"`
	Error      *apiError   `json:"error"`
}

// Client calls the Gemini generateContent endpoint and always produces a displayable string.
type Client struct {
	endpoint   string
	template   prompts.PromptTemplate
	httpClient *http.Client
}

// NewClient builds a client from the Gemini configuration. A zero
// RequestTimeout leaves the transport without a deadline.
func NewClient(cfg config.GeminiConfig, httpClient *http.Client) *Client {
	if httpClient == nil {
		httpClient = &http.Client{Timeout: cfg.RequestTimeout}
	}
	tmpl := cfg.PromptTemplate
	if tmpl == "" {
		tmpl = models.ExplainPromptTemplate
	}
	return &Client{
		endpoint:   cfg.EndpointBase + cfg.Model + ":generateContent?key=" + cfg.APIKey,
		template:   prompts.NewPromptTemplate(tmpl, []string{promptInputKey}),
		httpClient: httpClient,
	}
}

// Summarize returns the explanation of text, or a message describing why there is none.
func (c *Client) Summarize(ctx context.Context, text string) string {
	return c.Analyze(ctx, text).Text
}

// Analyze is Summarize plus the terminal outcome of the call.
func (c *Client) Analyze(ctx context.Context, text string) models.Result {
	result, err := c.generate(ctx, text)
	if err != nil {
		log.Error().Err(err).Msg("Gemini analysis failed")
		msg := err.Error()
		if msg == "" {
			msg = models.MsgAnalyzeFallback
		}
		outcome := models.OutcomeException
		if _, ok := err.(*httpStatusError); ok {
			outcome = models.OutcomeHTTPError
		}
		return models.Result{Text: fmt.Sprintf(models.MsgAnalyzeFailed, msg), Outcome: outcome}
	}
	return result
}

// BuildPrompt renders the configured template around text.
func (c *Client) BuildPrompt(text string) (string, error) {
	return c.template.Format(map[string]any{promptInputKey: text})
}

func (c *Client) generate(ctx context.Context, text string) (models.Result, error) {
	prompt, err := c.BuildPrompt(text)
	if err != nil {
		return models.Result{}, errors.Wrap(err, "render prompt")
	}

	body, err := json.Marshal(generateRequest{
		Contents: []content{{Parts: []part{{Text: prompt}}}},
	})
	if err != nil {
		return models.Result{}, errors.Wrap(err, "marshal request")
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.endpoint, bytes.NewReader(body))
	if err != nil {
		return models.Result{}, errors.Wrap(err, "new request")
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return models.Result{}, redactURL(err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		raw, readErr := io.ReadAll(resp.Body)
		if readErr != nil {
			return models.Result{}, errors.Wrap(readErr, "read error body")
		}
		log.Error().Int("status", resp.StatusCode).Str("body", string(raw)).Msg("Gemini returned an HTTP error")
		return models.Result{}, newHTTPStatusError(resp.StatusCode, string(raw))
	}

	var data generateResponse
	if err := json.NewDecoder(resp.Body).Decode(&data); err != nil {
		return models.Result{}, errors.Wrap(err, "decode response")
	}

	if len(data.Candidates) > 0 && data.Candidates[0].Content != nil && len(data.Candidates[0].Content.Parts) > 0 {
		return models.Result{Text: data.Candidates[0].Content.Parts[0].Text, Outcome: models.OutcomeSuccess}, nil
	}

	return models.Result{Text: describeUnusable(data), Outcome: models.OutcomeMalformed}, nil
}

// describeUnusable explains a 2xx body that carries no generated text.
func describeUnusable(data generateResponse) string {
	if len(data.Candidates) > 0 && data.Candidates[0].FinishReason != "" {
		reason := data.Candidates[0].FinishReason
		log.Warn().Str("finish_reason", reason).
			Interface("safety_ratings", data.Candidates[0].SafetyRatings).
			Msg("Generation finished without content")
		switch reason {
		case "SAFETY":
			return models.MsgSafetyBlocked
		case "MAX_TOKENS":
			return models.MsgMaxTokens
		case "OTHER", "UNSPECIFIED", "FINISH_REASON_UNSPECIFIED", "RECITATION":
			return fmt.Sprintf(models.MsgPartialFinish, reason)
		}
		return models.MsgUnexpectedShape
	}
	if data.Error != nil && data.Error.Message != "" {
		return fmt.Sprintf(models.MsgAPIError, data.Error.Message)
	}
	log.Error().Interface("response", data).Msg("Unexpected Gemini response structure")
	return models.MsgUnexpectedShape
}

type httpStatusError struct {
	status  int
	message string
}

func (e *httpStatusError) Error() string { return e.message }

// newHTTPStatusError prefers the structured error message in body and falls
// back to a short excerpt of the raw body.
func newHTTPStatusError(status int, body string) *httpStatusError {
	msg := fmt.Sprintf(models.MsgRequestFailed, status)
	var parsed generateResponse
	if err := json.Unmarshal([]byte(body), &parsed); err == nil && parsed.Error != nil && parsed.Error.Message != "" {
		msg += fmt.Sprintf(models.MsgRequestDetails, parsed.Error.Message)
	} else {
		msg += fmt.Sprintf(models.MsgServerResponse, helper.Excerpt(body, models.ErrorBodyExcerptLen))
	}
	return &httpStatusError{status: status, message: strings.TrimSpace(msg)}
}

// redactURL drops the request URL from transport errors; it carries the API key.
func redactURL(err error) error {
	var urlErr *url.Error
	if errors.As(err, &urlErr) {
		return fmt.Errorf("%s: %w", urlErr.Op, urlErr.Err)
	}
	return err
}
