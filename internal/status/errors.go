// internal/status/errors.go
package status

import (
	"errors"

	"github.com/gopcua/opcua/ua"
)

// ErrorCode extracts a best-effort OPC UA status code from an error
// without assuming concrete types.
// If the error does not expose a code, returns BadUnexpectedError.
func ErrorCode(err error) uint32 {
	if err == nil {
		return 0
	}

	type coder interface{ StatusCode() uint32 }

	var c coder
	if errors.As(err, &c) {
		return c.StatusCode()
	}
	var sc ua.StatusCode
	if errors.As(err, &sc) {
		return uint32(sc)
	}

	return uint32(ua.StatusBadUnexpectedError)
}
