package service

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"work-journal/internal/model"
)

// Form field names shared by every front-end.
const (
	FieldDate     = "date"
	FieldCategory = "category"
	FieldText     = "text"
)

// ErrMalformedInput is the class of every validation failure.
var ErrMalformedInput = errors.New("malformed input")

// ValidationError names the submitted field that was rejected.
type ValidationError struct {
	Field  string
	Reason string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("%s: %s", e.Field, e.Reason)
}

func (e *ValidationError) Unwrap() error {
	return ErrMalformedInput
}

// EntryForm is the raw submission as received from a client.
type EntryForm struct {
	Date           string
	Category       string
	Text           string
	IdempotencyKey string
}

// EntryInput is a validated entry payload.
type EntryInput struct {
	Date           time.Time
	Tag            model.Tag
	Text           string
	IdempotencyKey string
}

// ValidateEntry checks a raw submission. Fields are checked in form order
// and the first offending one is reported.
func ValidateEntry(form EntryForm) (EntryInput, error) {
	rawDate := strings.TrimSpace(form.Date)
	if rawDate == "" {
		return EntryInput{}, &ValidationError{Field: FieldDate, Reason: "is required"}
	}
	date, err := time.Parse(model.DateLayout, rawDate)
	if err != nil {
		return EntryInput{}, &ValidationError{Field: FieldDate, Reason: "must be a calendar date (YYYY-MM-DD)"}
	}

	if strings.TrimSpace(form.Category) == "" {
		return EntryInput{}, &ValidationError{Field: FieldCategory, Reason: "is required"}
	}
	tag, ok := model.ParseTag(form.Category)
	if !ok {
		return EntryInput{}, &ValidationError{Field: FieldCategory, Reason: "must be one of work, learning, interesting"}
	}

	text := strings.TrimSpace(form.Text)
	if text == "" {
		return EntryInput{}, &ValidationError{Field: FieldText, Reason: "is required"}
	}

	return EntryInput{
		Date:           date,
		Tag:            tag,
		Text:           text,
		IdempotencyKey: strings.TrimSpace(form.IdempotencyKey),
	}, nil
}
