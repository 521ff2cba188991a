package protocol

const (
	// Protocol/transport validation.
	ErrProtoBadRequest = "E_PROTO_BAD_REQUEST"

	// Game layer.
	ErrBadRequest    = "E_BAD_REQUEST"
	ErrUnknownTarget = "E_UNKNOWN_TARGET"
	// The action was refused: allowance spent, crew bounds, or nothing to do.
	ErrUnavailable = "E_UNAVAILABLE"
	// The previous line-up is still being persisted.
	ErrBusy     = "E_BUSY"
	ErrInternal = "E_INTERNAL"
)

var knownCodes = map[string]struct{}{
	ErrProtoBadRequest: {},
	ErrBadRequest:      {},
	ErrUnknownTarget:   {},
	ErrUnavailable:     {},
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
