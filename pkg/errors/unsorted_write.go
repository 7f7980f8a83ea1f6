package errors

// UnsortedWriteError signals that a write to a segment violated the
// non-decreasing key invariant. Per the error handling design, this is a bug
// in the caller (the engine or merger), never a user input error.
type UnsortedWriteError struct {
	*baseError

	// previous is the last key successfully written to the segment.
	previous string

	// current is the key that was rejected for sorting below previous.
	current string
}

// NewUnsortedWriteError creates an UnsortedWriteError recording the key that
// violated the segment's sort invariant and the key it violated it against.
func NewUnsortedWriteError(previous, current string) *UnsortedWriteError {
	return &UnsortedWriteError{
		baseError: NewBaseError(nil, ErrorCodeUnsortedWrite, "write violates segment sort order"),
		previous:  previous,
		current:   current,
	}
}

// WithMessage updates the error message while maintaining the UnsortedWriteError type.
func (ue *UnsortedWriteError) WithMessage(msg string) *UnsortedWriteError {
	ue.baseError.WithMessage(msg)
	return ue
}

// WithDetail adds contextual information while maintaining the UnsortedWriteError type.
func (ue *UnsortedWriteError) WithDetail(key string, value any) *UnsortedWriteError {
	ue.baseError.WithDetail(key, value)
	return ue
}

// Previous returns the last key successfully written to the segment.
func (ue *UnsortedWriteError) Previous() string {
	return ue.previous
}

// Current returns the key that was rejected.
func (ue *UnsortedWriteError) Current() string {
	return ue.current
}
