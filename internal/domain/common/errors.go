package common

import "errors"

var (
	ErrNotFound    = errors.New("requested item not found")
	ErrBadRequest  = errors.New("bad request")
	ErrUnavailable = errors.New("upstream store unavailable")
)
