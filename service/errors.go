package service

import (
	"errors"
	"fmt"
)

var (
	ErrInvalidCredential = errors.New("invalid credential")
	ErrMissingCredential = fmt.Errorf("%w: token not provided", ErrInvalidCredential)
	ErrCanvasNotFound    = errors.New("canvas not found")
	ErrNotAuthorized     = errors.New("not authorized for canvas")
	ErrMalformedEvent    = errors.New("malformed event")
	ErrTransport         = errors.New("transport failure")
	ErrUnavailable       = errors.New("service shutting down")
)
