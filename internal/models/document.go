package models

// Document is the file a user picked or dropped on the page.
type Document struct {
	Name     string
	Size     int64
	MimeType string
	Content  []byte
}

// Outcome is the terminal state of one summarization call.
type Outcome string

const (
	OutcomeSuccess   Outcome = "success"
	OutcomeHTTPError Outcome = "http_error"
	OutcomeMalformed Outcome = "malformed_response"
	OutcomeException Outcome = "exception"
)

// Result is what the summarizer hands back for display.
type Result struct {
	Text    string
	Outcome Outcome
}
