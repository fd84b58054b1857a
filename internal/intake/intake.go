// Package intake decides whether a picked or dropped file may be analyzed.
package intake

import (
	"io"
	"mime/multipart"

	"github.com/pkg/errors"

	"legal-explainer/internal/models"
)

// Reason names the rule a rejected document broke.
type Reason string

const (
	ReasonWrongType Reason = "wrong_type"
	ReasonTooLarge  Reason = "too_large"
)

// RejectionError is returned by Validate for a document that must not be processed.
type RejectionError struct {
	Reason Reason
	Name   string
}

func (e *RejectionError) Error() string {
	return string(e.Reason) + ": " + e.Name
}

// Message is the text shown to the user for this rejection.
func (e *RejectionError) Message() string {
	if e.Reason == ReasonTooLarge {
		return models.MsgTooLarge
	}
	return models.MsgWrongType
}

// Validator checks documents against the PDF type and the size limit.
type Validator struct {
	maxBytes int64
}

func NewValidator(maxBytes int64) *Validator {
	if maxBytes <= 0 {
		maxBytes = models.DefaultMaxUploadBytes
	}
	return &Validator{maxBytes: maxBytes}
}

func (v *Validator) MaxBytes() int64 {
	return v.maxBytes
}

// Validate returns nil when doc is accepted. The type rule is checked before the size rule.
func (v *Validator) Validate(doc models.Document) error {
	if doc.MimeType != models.PDFMimeType {
		return &RejectionError{Reason: ReasonWrongType, Name: doc.Name}
	}
	if doc.Size > v.maxBytes {
		return &RejectionError{Reason: ReasonTooLarge, Name: doc.Name}
	}
	return nil
}

// AsRejection unwraps err into a RejectionError when it is one.
func AsRejection(err error) (*RejectionError, bool) {
	var rej *RejectionError
	if errors.As(err, &rej) {
		return rej, true
	}
	return nil, false
}

// FromMultipart builds a Document from an uploaded form file and validates it.
// The content is only read once the header passed validation.
func (v *Validator) FromMultipart(header *multipart.FileHeader) (models.Document, error) {
	doc := models.Document{
		Name:     header.Filename,
		Size:     header.Size,
		MimeType: header.Header.Get("Content-Type"),
	}
	if err := v.Validate(doc); err != nil {
		return models.Document{}, err
	}

	f, err := header.Open()
	if err != nil {
		return models.Document{}, errors.Wrap(err, "open upload")
	}
	defer f.Close()

	data, err := io.ReadAll(io.LimitReader(f, v.maxBytes+1))
	if err != nil {
		return models.Document{}, errors.Wrap(err, "read upload")
	}
	if int64(len(data)) > v.maxBytes {
		return models.Document{}, &RejectionError{Reason: ReasonTooLarge, Name: doc.Name}
	}
	doc.Content = data
	doc.Size = int64(len(data))
	return doc, nil
}
