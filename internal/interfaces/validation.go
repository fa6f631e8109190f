package interfaces

// ValidationError describes one rejected field.
type ValidationError struct {
	Field   string
	Message string
}

func (e ValidationError) Error() string { return e.Field + ": " + e.Message }

// SubmissionValidator checks a raw scan submission for scheme, length,
// SSRF-sensitive targets, and a well-formed notification email before
// Admission ever sees it.
type SubmissionValidator interface {
	ValidateURL(raw string) (normalized string, err *ValidationError)
	ValidateEmail(raw string) *ValidationError
}
