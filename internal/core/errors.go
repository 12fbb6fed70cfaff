package core

import "errors"

// Validation errors are surfaced to the submitter; the engine keeps running.
var (
	ErrInsufficientFunds = errors.New("insufficient funds for order")
	ErrOrderNotFound     = errors.New("order not found")
	ErrUnknownPayload    = errors.New("unknown message payload")
	ErrZeroSizeOrder     = errors.New("order size must be nonzero")
)

// Fatal errors abort the engine (live path) or startup (replay path). The
// invariant "journal and state agree" cannot be preserved by local recovery
// from any of these, so none of them are handled — they propagate up and
// the process must stop.
var (
	ErrSequenceGap   = errors.New("sequence gap in journal")
	ErrJournalIo     = errors.New("journal io error")
	ErrJournalDecode = errors.New("journal decode error")
	ErrUnknownPayload = errors.New("unknown message payload")
)
