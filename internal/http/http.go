package http

import (
	"fmt"
	"io"
	"net/http"
)

// LimitRead reads the whole of r and closes it. Bodies larger than limit
// bytes fail with a 413 *Error.
func LimitRead(r io.ReadCloser, limit int64) ([]byte, error) {
	defer r.Close()
	// One byte past the limit tells an exact fit from an oversized body.
	data, err := io.ReadAll(io.LimitReader(r, limit+1))
	if err != nil {
		return nil, fmt.Errorf("error reading body: %w", err)
	}
	if int64(len(data)) > limit {
		return nil, NewError(
			http.StatusRequestEntityTooLarge,
			fmt.Sprintf("body exceeds limit of %d bytes", limit),
		)
	}
	return data, nil
}
