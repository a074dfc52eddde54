package mbean

import "errors"

var (
	ErrNilObject         = errors.New("mbean: object is nil")
	ErrInvalidName       = errors.New("mbean: invalid name")
	ErrAlreadyRegistered = errors.New("mbean: name already registered")
	ErrNotFound          = errors.New("mbean: name not registered")
	ErrUnknownMember     = errors.New("mbean: unknown attribute or operation")
	ErrParentNotFound    = errors.New("mbean: parent not registered")
)
