package core

import (
	"fmt"

	"github.com/tidwall/btree"
)

// PriceLevel is every resting order at one price, FIFO by arrival (orders
// are appended on insert, consumed from the front on a fill — price-time
// priority falls out of slice order within a level).
type PriceLevel struct {
	Price  Price
	Orders []*Order
}

type priceLevels = btree.BTreeG[*PriceLevel]

// Book is one market's pair of price-time-sorted order queues. Bids and
// asks are disjoint; an order belongs to exactly one side of exactly one
// book. The resting book never crosses itself: ExecuteOrder always drains
// every crossing level before letting a remainder rest, so best bid price <
// best ask price holds at every stable state.
type Book struct {
	bids *priceLevels // sorted highest price first
	asks *priceLevels // sorted lowest price first
}

func NewBook() *Book {
	bids := btree.NewBTreeG(func(a, b *PriceLevel) bool {
		return a.Price > b.Price
	})
	asks := btree.NewBTreeG(func(a, b *PriceLevel) bool {
		return a.Price < b.Price
	})
	return &Book{bids: bids, asks: asks}
}

func (b *Book) side(s Side) *priceLevels {
	if s == Buy {
		return b.bids
	}
	return b.asks
}

func (b *Book) opposite(s Side) *priceLevels {
	if s == Buy {
		return b.asks
	}
	return b.bids
}

func crosses(taker *Order, maker *Order) bool {
	if taker.Side == Buy {
		return taker.Price >= maker.Price
	}
	return taker.Price <= maker.Price
}

// ExecuteOrder makes order the taker: it repeatedly inspects the best
// resting order on the opposite side and, while it crosses, fills against
// it, in price-time priority (best price first, earliest arrival within a
// price). Each iteration strictly decreases total remaining quantity across
// taker and maker, so the loop always terminates. Any unfilled remainder is
// inserted to rest on order's own side. Returns the trades produced, in the
// order they were matched.
func (b *Book) ExecuteOrder(order *Order) []Trade {
	var trades []Trade
	opp := b.opposite(order.Side)

	for order.Remaining > 0 {
		level, ok := opp.MinMut()
		if !ok {
			break
		}
		maker := level.Orders[0]
		if !crosses(order, maker) {
			break
		}

		size := min(order.Remaining, maker.Remaining)
		trades = append(trades, newTrade(maker, order, size))
		order.Remaining -= size
		maker.Remaining -= size

		if maker.Remaining == 0 {
			level.Orders = level.Orders[1:]
			if len(level.Orders) == 0 {
				opp.Delete(level)
			}
		}
	}

	if order.Remaining > 0 {
		b.insert(order)
	}

	return trades
}

func (b *Book) insert(order *Order) {
	levels := b.side(order.Side)
	level, ok := levels.GetMut(&PriceLevel{Price: order.Price})
	if ok {
		level.Orders = append(level.Orders, order)
	} else {
		levels.Set(&PriceLevel{Price: order.Price, Orders: []*Order{order}})
	}
}

// CancelOrder scans bids first, then asks, removing the first order whose
// id matches. Returns the removed order (with whatever Remaining it had at
// the moment of cancellation) or ErrOrderNotFound if it is resident on
// neither side.
func (b *Book) CancelOrder(id OrderId) (*Order, error) {
	if order, ok := removeFromLevels(b.bids, id); ok {
		return order, nil
	}
	if order, ok := removeFromLevels(b.asks, id); ok {
		return order, nil
	}
	return nil, fmt.Errorf("%w: order %d", ErrOrderNotFound, id)
}

func removeFromLevels(levels *priceLevels, id OrderId) (*Order, bool) {
	var found *Order
	var foundLevel *PriceLevel
	levels.ScanMut(func(level *PriceLevel) bool {
		for i, o := range level.Orders {
			if o.Id == id {
				found = o
				foundLevel = level
				level.Orders = append(level.Orders[:i:i], level.Orders[i+1:]...)
				return false
			}
		}
		return true
	})
	if found == nil {
		return nil, false
	}
	if len(foundLevel.Orders) == 0 {
		levels.Delete(foundLevel)
	}
	return found, true
}

// BestBid/BestAsk return the best resting price on each side, for the
// no-cross invariant check (best bid < best ask, or a side is empty).
func (b *Book) BestBid() (Price, bool) {
	level, ok := b.bids.Min()
	if !ok {
		return 0, false
	}
	return level.Price, true
}

func (b *Book) BestAsk() (Price, bool) {
	level, ok := b.asks.Min()
	if !ok {
		return 0, false
	}
	return level.Price, true
}

// Bids/Asks expose the resting levels in priority order, for tests and for
// the operator-facing book snapshot.
func (b *Book) Bids() []*PriceLevel { return b.bids.Items() }
func (b *Book) Asks() []*PriceLevel { return b.asks.Items() }
