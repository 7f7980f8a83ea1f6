package errors

// DecodeError is a specialized error type for record codec failures. It embeds
// baseError to inherit chaining, code, and detail support, and adds the
// line-level context needed to locate a malformed record inside a segment or
// WAL file.
type DecodeError struct {
	*baseError

	// line holds the raw text that failed to decode, useful for diagnosing
	// exactly which byte sequence violated the codec's assumptions.
	line string

	// lineNumber records the 1-indexed position of the offending line within
	// the file being read, if known.
	lineNumber int
}

// NewDecodeError creates a new decode-specific error with the provided context.
func NewDecodeError(err error, code ErrorCode, msg string) *DecodeError {
	return &DecodeError{baseError: NewBaseError(err, code, msg)}
}

// WithMessage updates the error message while maintaining the DecodeError type.
func (de *DecodeError) WithMessage(msg string) *DecodeError {
	de.baseError.WithMessage(msg)
	return de
}

// WithCode sets the error code while preserving the DecodeError type.
func (de *DecodeError) WithCode(code ErrorCode) *DecodeError {
	de.baseError.WithCode(code)
	return de
}

// WithDetail adds contextual information while maintaining the DecodeError type.
func (de *DecodeError) WithDetail(key string, value any) *DecodeError {
	de.baseError.WithDetail(key, value)
	return de
}

// WithLine records the raw line that failed to decode.
func (de *DecodeError) WithLine(line string) *DecodeError {
	de.line = line
	return de
}

// WithLineNumber records the 1-indexed position of the offending line.
func (de *DecodeError) WithLineNumber(n int) *DecodeError {
	de.lineNumber = n
	return de
}

// Line returns the raw text that failed to decode.
func (de *DecodeError) Line() string {
	return de.line
}

// LineNumber returns the 1-indexed position of the offending line.
func (de *DecodeError) LineNumber() int {
	return de.lineNumber
}

// NewMalformedLineError creates a DecodeError for a line that could not be
// parsed as a valid record.
func NewMalformedLineError(cause error, line string, lineNumber int) *DecodeError {
	return NewDecodeError(cause, ErrorCodeDecodeFailure, "malformed record line").
		WithLine(line).
		WithLineNumber(lineNumber)
}
