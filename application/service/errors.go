package service

import "errors"

// ErrClientClosed indicates the client has been closed.
var ErrClientClosed = errors.New("embedsync: client is closed")

// ErrInvalidRef indicates a request named no usable content entity.
var ErrInvalidRef = errors.New("invalid content reference")
