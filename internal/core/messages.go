package core

// MessagePayload is a tagged union over the three commands the core
// accepts. The apply function dispatches on the concrete type via a type
// switch — no dynamic dispatch or registry required.
type MessagePayload interface {
	isMessagePayload()
}

// CreateOrderPayload places a new order. The sequencer/engine path trusts
// Remaining == Size on the way in (a submitter doesn't get to pre-fill its
// own order); both fields are still carried because a replayed journal
// record must reconstruct the order as it was applied, and because some
// wire submitters (replay, tests) build the struct directly.
type CreateOrderPayload struct {
	Order Order
}

func (CreateOrderPayload) isMessagePayload() {}

// CancelOrderPayload removes a resting order and refunds its remainder.
type CancelOrderPayload struct {
	OrderId OrderId
}

func (CancelOrderPayload) isMessagePayload() {}

// AdjustBalancePayload is an unconditional, administrative balance mutation
// (deposits, withdrawals, corrections). Change may be negative.
type AdjustBalancePayload struct {
	UserId  UserId
	AssetId AssetId
	Change  Amount
}

func (AdjustBalancePayload) isMessagePayload() {}

// Message is one journal/queue record. Sequence is 0 until the Sequencer
// stamps it; a stamped Message's Sequence is never rewritten.
type Message struct {
	Sequence SequenceNumber
	Payload  MessagePayload
}
