package classify

import (
	"errors"
	"fmt"
)

// TimestampError reports a line whose leading token is not a valid timestamp.
// It is a diagnostic, not a failure: the line is skipped and processing continues.
type TimestampError struct {
	Token string
	Err   error
}

func (e *TimestampError) Error() string {
	return fmt.Sprintf("malformed timestamp %q: %v", e.Token, e.Err)
}

func (e *TimestampError) Unwrap() error {
	return e.Err
}

// IsMalformedTimestamp returns true if err is or wraps a *TimestampError.
func IsMalformedTimestamp(err error) bool {
	var te *TimestampError
	return errors.As(err, &te)
}
