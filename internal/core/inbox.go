package core

import (
	"context"

	"bastion/internal/metrics"
)

// submission is one command in flight through the Inbox: the message to
// apply plus a channel its submitter blocks on for the outcome.
type submission struct {
	msg    Message
	result chan error
}

// Inbox is the engine's multi-producer, single-consumer queue. Any number of
// goroutines may call Submit concurrently — typically one per connected
// front-end session — but Run's loop is the only goroutine that ever calls
// Engine.ProcessMessage, which is what lets Book, Sequencer, and the journal
// writer go without their own locking. Grounded on
// original_source/src/engine.rs's dedicated thread draining an
// mpsc::Receiver<EngineMessage>.
type Inbox struct {
	engine  *Engine
	ch      chan submission
	metrics *metrics.Collector
}

// NewInbox builds an Inbox bound to engine with the given channel capacity.
func NewInbox(engine *Engine, capacity int) *Inbox {
	return &Inbox{
		engine: engine,
		ch:     make(chan submission, capacity),
	}
}

// SetMetrics attaches a Collector whose QueueDepth gauge is kept in sync
// with the channel's buffered length. Optional, same as Engine.SetMetrics.
func (b *Inbox) SetMetrics(c *metrics.Collector) {
	b.metrics = c
}

// Submit enqueues msg and blocks until Run's consumer goroutine has applied
// it, returning whatever error ProcessMessage returned. Safe to call from
// any number of goroutines concurrently; this is the only way a caller
// outside Run is allowed to get a message to the Engine.
func (b *Inbox) Submit(msg Message) error {
	sub := submission{msg: msg, result: make(chan error, 1)}
	b.ch <- sub
	b.reportDepth()
	return <-sub.result
}

// Run drains the Inbox until ctx is canceled, applying each submission in
// the order it was received. It is the sole caller of Engine.ProcessMessage
// — the one goroutine spec's single-threaded cooperative apply loop actually
// runs on. On cancellation it drains whatever is already buffered before
// returning, so a submitter blocked in Submit during shutdown still gets an
// answer instead of hanging forever.
func (b *Inbox) Run(ctx context.Context) {
	for {
		select {
		case <-ctx.Done():
			b.drainBuffered()
			return
		case sub := <-b.ch:
			b.reportDepth()
			sub.result <- b.engine.ProcessMessage(sub.msg)
		}
	}
}

func (b *Inbox) drainBuffered() {
	for {
		select {
		case sub := <-b.ch:
			b.reportDepth()
			sub.result <- b.engine.ProcessMessage(sub.msg)
		default:
			return
		}
	}
}

func (b *Inbox) reportDepth() {
	if b.metrics != nil {
		b.metrics.QueueDepth.Set(float64(len(b.ch)))
	}
}
