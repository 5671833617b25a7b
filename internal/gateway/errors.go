package gateway

import (
	"errors"
	"fmt"
)

// RemoteError is returned for every failed remote call: a non-2xx response,
// a transport failure (Status 0), or an undecodable success body.
type RemoteError struct {
	Op      string
	Status  int
	Message string
	Err     error
}

func (e *RemoteError) Error() string {
	if e.Status == 0 {
		return fmt.Sprintf("%s: %s", e.Op, e.Message)
	}
	return fmt.Sprintf("%s: HTTP %d: %s", e.Op, e.Status, e.Message)
}

func (e *RemoteError) Unwrap() error {
	return e.Err
}

// IsRemote reports whether err is (or wraps) a RemoteError.
func IsRemote(err error) bool {
	var re *RemoteError
	return errors.As(err, &re)
}

// StatusOf returns the HTTP status carried by a RemoteError in err's chain,
// or 0 when there is none.
func StatusOf(err error) int {
	var re *RemoteError
	if errors.As(err, &re) {
		return re.Status
	}
	return 0
}

// OpOf returns the operation name carried by a RemoteError in err's chain.
func OpOf(err error) string {
	var re *RemoteError
	if errors.As(err, &re) {
		return re.Op
	}
	return ""
}
