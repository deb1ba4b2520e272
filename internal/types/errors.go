package types

import (
	"errors"
	"fmt"
)

// ErrNotFound is returned when no tweet element exists on the page
var ErrNotFound = errors.New("no tweet found on page")

// ErrSaveInProgress is returned when a save for the same post is already in flight
var ErrSaveInProgress = errors.New("save already in progress for this post")

// ValidationError reports missing or invalid credentials/settings
type ValidationError struct {
	Field   string
	Message string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("validation error on field '%s': %s", e.Field, e.Message)
}

// SubmissionError is a non-success response from the document API. Status and
// Body are reported verbatim.
type SubmissionError struct {
	Status int
	Body   string
}

func (e *SubmissionError) Error() string {
	return fmt.Sprintf("Notion API error: %d - %s", e.Status, e.Body)
}

// IsNotFound checks if an error is ErrNotFound
func IsNotFound(err error) bool {
	return errors.Is(err, ErrNotFound)
}

// IsValidation checks if an error is a ValidationError
func IsValidation(err error) bool {
	var v *ValidationError
	return errors.As(err, &v)
}

// IsSubmission checks if an error is a SubmissionError
func IsSubmission(err error) bool {
	var s *SubmissionError
	return errors.As(err, &s)
}

// Credentials are the Notion secrets required for every submission
type Credentials struct {
	APIKey     string `json:"api_key"`
	DatabaseID string `json:"database_id"`
}

// Validate returns a ValidationError for the first missing credential
func (c Credentials) Validate() error {
	if c.APIKey == "" {
		return &ValidationError{Field: "api_key", Message: "Notion API key not configured"}
	}
	if c.DatabaseID == "" {
		return &ValidationError{Field: "database_id", Message: "Notion database ID not configured"}
	}
	return nil
}
