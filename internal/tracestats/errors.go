package tracestats

import (
	"errors"
	"fmt"
)

// ErrInvalidSize is matched by every error caused by a size value that is not
// an unsigned hexadecimal integer.
var ErrInvalidSize = errors.New("invalid size value")

// ParseError reports a size token that could not be decoded.
type ParseError struct {
	Line  int // 1-based
	Token string
	Err   error
}

func (e *ParseError) Error() string {
	return fmt.Sprintf("line %d: %v %q: %v", e.Line, ErrInvalidSize, e.Token, e.Err)
}

func (e *ParseError) Unwrap() error { return e.Err }

// Is makes errors.Is(err, ErrInvalidSize) hold for any *ParseError.
func (e *ParseError) Is(target error) bool { return target == ErrInvalidSize }
