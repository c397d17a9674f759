package main

import (
	"errors"
	"fmt"
)

var errStreamClosed = errors.New("stream closed by server")

type statusError struct {
	code int
}

func (e *statusError) Error() string {
	return fmt.Sprintf("unexpected status %d", e.code)
}
