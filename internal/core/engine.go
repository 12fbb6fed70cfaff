package core

import (
	"fmt"
	"time"

	"bastion/internal/metrics"
)

// Engine is the deterministic orchestrator: every inbound command passes
// through validate, Sequencer.Apply, Journal.Write, then apply, in that
// order, on a single goroutine. Book, Sequencer, and the Journal writer are
// exclusively owned by the Engine; Balances is shared ownership but only the
// engine task ever calls its mutating methods. Nothing in Engine itself
// arranges for that single-goroutine property — callers serialize access to
// ProcessMessage through an Inbox.
type Engine struct {
	sequencer *Sequencer
	journal   JournalWriter
	book      *Book
	balances  *Balances
	metrics   *metrics.Collector

	// onTrades, when set, is called with the trades produced by an applied
	// CreateOrder after apply has already mutated Book and Balances. It is
	// strictly an observer hook (A5's event bus) — never consulted for any
	// decision on the apply path.
	onTrades func(trades []Trade)
}

func NewEngine(journal JournalWriter, book *Book, balances *Balances) *Engine {
	return &Engine{
		sequencer: NewSequencer(),
		journal:   journal,
		book:      book,
		balances:  balances,
	}
}

// NewEngineAt builds an Engine whose sequencer already considers `at`
// applied, for handing a freshly opened live journal writer to an engine
// that continues right where a startup replay left off.
func NewEngineAt(journal JournalWriter, book *Book, balances *Balances, at SequenceNumber) *Engine {
	return &Engine{
		sequencer: NewSequencerAt(at),
		journal:   journal,
		book:      book,
		balances:  balances,
	}
}

// OnTrades registers the event-bus hook. Not safe to call concurrently with
// ProcessMessage.
func (e *Engine) OnTrades(fn func(trades []Trade)) {
	e.onTrades = fn
}

// SetMetrics attaches the Collector the Engine reports sequence number,
// trade count, and journal write latency into after every live apply. A nil
// Collector (the zero value, never set) is a no-op, so tests that build an
// Engine via NewEngine need not care about metrics at all.
func (e *Engine) SetMetrics(c *metrics.Collector) {
	e.metrics = c
}

// validate is a read-only probe: a CreateOrder fails it for a zero size or
// for insufficient funds. Every other payload always passes.
func (e *Engine) validate(msg *Message) error {
	payload, ok := msg.Payload.(CreateOrderPayload)
	if !ok {
		return nil
	}
	if payload.Order.Size == 0 {
		return ErrZeroSizeOrder
	}
	ok, err := e.balances.UserCanAffordOrder(&payload.Order)
	if err != nil {
		return err
	}
	if !ok {
		return ErrInsufficientFunds
	}
	return nil
}

// ProcessMessage is the live-traffic path: validate, then sequence, then
// journal, then apply — always the same dequeued message at every step.
// This is the intended behavior original_source/src/engine.rs's queue loop
// describes but its own implementation fails to honor (it re-receives a
// second message between validate and apply, silently dropping the
// validated one); this path deliberately does not reproduce that.
//
// A validation failure returns the error without sequencing, journaling, or
// applying anything — the caller's command never happened. Past that point
// the command is already sequenced and journaled; apply's only recoverable
// rejection is ErrOrderNotFound on a CancelOrder for an order that is not
// resident in the book — that is treated as a user-reportable business
// outcome rather than a corruption signal, and both live and replay
// deterministically see the same miss and do the same no-op. Every other
// error returned here (sequencer gap, journal I/O, unknown payload) means
// the journal and the applied state may have diverged, and the caller must
// treat the engine as unusable.
func (e *Engine) ProcessMessage(msg Message) error {
	if err := e.validate(&msg); err != nil {
		return err
	}
	if err := e.sequencer.Apply(&msg); err != nil {
		return err
	}

	start := time.Now()
	writeErr := e.journal.Write(msg)
	if e.metrics != nil {
		e.metrics.JournalWriteSeconds.Observe(time.Since(start).Seconds())
	}
	if writeErr != nil {
		return writeErr
	}

	trades, err := e.apply(msg)
	if err != nil {
		return err
	}
	if e.metrics != nil {
		e.metrics.RecordApply(uint64(e.sequencer.Sequence()), len(trades))
	}
	if e.onTrades != nil && len(trades) > 0 {
		e.onTrades(trades)
	}
	return nil
}

// Replay re-applies a previously-journaled message during startup recovery.
// It skips validate and re-journaling, and asserts sequence contiguity
// instead of stamping a fresh sequence — a gap or duplicate here means the
// journal itself is corrupt, which is fatal.
func (e *Engine) Replay(msg Message) error {
	expected := e.sequencer.sequence + 1
	if msg.Sequence != expected {
		return fmt.Errorf("%w: expected %d, got %d", ErrSequenceGap, expected, msg.Sequence)
	}
	e.sequencer.sequence++
	_, err := e.apply(msg)
	return err
}

// apply mutates Book and Balances per msg.Payload and returns any trades a
// CreateOrder produced. Every branch runs to completion once entered: apply
// never rolls back a partial mutation.
func (e *Engine) apply(msg Message) ([]Trade, error) {
	switch payload := msg.Payload.(type) {
	case CreateOrderPayload:
		order := payload.Order
		if err := e.balances.DebitForOrder(&order); err != nil {
			return nil, err
		}
		trades := e.book.ExecuteOrder(&order)
		for i := range trades {
			if err := e.balances.Settle(&trades[i]); err != nil {
				return nil, err
			}
		}
		return trades, nil

	case CancelOrderPayload:
		order, err := e.book.CancelOrder(payload.OrderId)
		if err != nil {
			return nil, err
		}
		if err := e.balances.CreditForCanceledOrder(order); err != nil {
			return nil, err
		}
		return nil, nil

	case AdjustBalancePayload:
		e.balances.AdjustBalance(payload.UserId, payload.AssetId, payload.Change)
		return nil, nil

	default:
		return nil, fmt.Errorf("%w: %T", ErrUnknownPayload, msg.Payload)
	}
}

// Sequence reports the last applied sequence number.
func (e *Engine) Sequence() SequenceNumber {
	return e.sequencer.Sequence()
}
