package protocol

import "errors"

const (
	// Protocol/transport validation.
	ErrProtoBadRequest = "E_PROTO_BAD_REQUEST"

	// Frame content could not be turned into engine input.
	ErrCodeBadFrame = "E_BAD_FRAME"
	// The control loop inbox is full; the frame was dropped.
	ErrBusy     = "E_BUSY"
	ErrInternal = "E_INTERNAL"
)

var knownCodes = map[string]struct{}{
	ErrProtoBadRequest: {},
	ErrCodeBadFrame:    {},
	ErrBusy:            {},
	ErrInternal:        {},
}

func IsKnownCode(code string) bool {
	if code == "" {
		return true
	}
	_, ok := knownCodes[code]
	return ok
}

var (
	ErrMalformedIntent = errors.New("malformed intent")
	ErrBadFrame        = errors.New("bad frame")
)

// CodeFor maps a decode error to its wire code.
func CodeFor(err error) string {
	switch {
	case err == nil:
		return ""
	case errors.Is(err, ErrBadFrame), errors.Is(err, ErrMalformedIntent):
		return ErrCodeBadFrame
	}
	return ErrInternal
}
