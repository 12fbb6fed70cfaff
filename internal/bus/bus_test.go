package bus

import (
	"testing"

	"bastion/internal/core"
)

// TestNilPublisherIsANoop confirms a Publisher that failed to connect (and
// so is left nil by the caller) can still be used across the engine's
// OnTrades hook and Close without a nil pointer panic.
func TestNilPublisherIsANoop(t *testing.T) {
	var p *Publisher
	p.Publish([]core.Trade{{MarketId: 1, Price: 10, Size: 5}})
	p.Close()
}
