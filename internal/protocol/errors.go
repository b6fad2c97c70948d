package protocol

import "errors"

var (
	ErrEmptyPayload   = errors.New("protocol: empty payload")
	ErrUnknownMessage = errors.New("protocol: unknown message type")
	ErrInvalidLength  = errors.New("protocol: invalid length")
	ErrInvalidBool    = errors.New("protocol: invalid bool value")
	ErrInvalidMaster  = errors.New("protocol: invalid master status")
	ErrInvalidString  = errors.New("protocol: invalid utf-8 string")
	ErrStringTooLong  = errors.New("protocol: string too long")
)
