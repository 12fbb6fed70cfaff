package core

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newOrder(id OrderId, userId UserId, side Side, price Price, size uint64) *Order {
	return &Order{Id: id, UserId: userId, MarketId: 1, Side: side, Price: price, Size: size, Remaining: size}
}

func TestBook_AddsBidsInPriceOrder(t *testing.T) {
	book := NewBook()

	book.ExecuteOrder(newOrder(1, 1, Buy, 1001, 1))
	book.ExecuteOrder(newOrder(2, 1, Buy, 1000, 1))
	book.ExecuteOrder(newOrder(3, 1, Buy, 998, 1))
	book.ExecuteOrder(newOrder(4, 1, Buy, 1002, 1))
	book.ExecuteOrder(newOrder(5, 1, Buy, 1004, 1))

	bids := book.Bids()
	require.Len(t, bids, 5)
	assert.Equal(t, Price(1004), bids[0].Price)
	assert.Equal(t, Price(1002), bids[1].Price)
	assert.Equal(t, Price(1001), bids[2].Price)
	assert.Equal(t, Price(1000), bids[3].Price)
	assert.Equal(t, Price(998), bids[4].Price)
}

func TestBook_AddsAsksInPriceOrder(t *testing.T) {
	book := NewBook()

	book.ExecuteOrder(newOrder(1, 1, Sell, 1001, 1))
	book.ExecuteOrder(newOrder(2, 1, Sell, 1000, 1))
	book.ExecuteOrder(newOrder(3, 1, Sell, 998, 1))
	book.ExecuteOrder(newOrder(4, 1, Sell, 1002, 1))
	book.ExecuteOrder(newOrder(5, 1, Sell, 1004, 1))

	asks := book.Asks()
	require.Len(t, asks, 5)
	assert.Equal(t, Price(998), asks[0].Price)
	assert.Equal(t, Price(1000), asks[1].Price)
	assert.Equal(t, Price(1001), asks[2].Price)
	assert.Equal(t, Price(1002), asks[3].Price)
	assert.Equal(t, Price(1004), asks[4].Price)
}

func TestBook_MatchesBestPriceFirst(t *testing.T) {
	book := NewBook()

	book.ExecuteOrder(newOrder(1, 1, Buy, 1001, 10))
	book.ExecuteOrder(newOrder(2, 1, Buy, 1002, 10))
	book.ExecuteOrder(newOrder(3, 1, Buy, 1000, 10))

	// Sell 15 @ 990 should take 10 @ 1002 from #2, then 5 @ 1001 from #1.
	trades := book.ExecuteOrder(newOrder(4, 1, Sell, 990, 15))

	require.Len(t, trades, 2)
	assert.Equal(t, Price(1002), trades[0].Price)
	assert.Equal(t, uint64(10), trades[0].Size)
	assert.Equal(t, OrderId(2), trades[0].MakerOrderId)
	assert.Equal(t, OrderId(4), trades[0].TakerOrderId)

	assert.Equal(t, Price(1001), trades[1].Price)
	assert.Equal(t, uint64(5), trades[1].Size)
	assert.Equal(t, OrderId(1), trades[1].MakerOrderId)
	assert.Equal(t, OrderId(4), trades[1].TakerOrderId)
}

func TestBook_AnnihilatesCrossingOrders(t *testing.T) {
	book := NewBook()

	book.ExecuteOrder(newOrder(1, 1, Sell, 1000, 10))
	trades := book.ExecuteOrder(newOrder(2, 1, Buy, 1010, 10))

	assert.Empty(t, book.Bids())
	assert.Empty(t, book.Asks())
	require.Len(t, trades, 1)
	assert.Equal(t, Price(1000), trades[0].Price)
	assert.Equal(t, uint64(10), trades[0].Size)
}

func TestBook_MatchesSamePriceInArrivalOrder(t *testing.T) {
	book := NewBook()

	book.ExecuteOrder(newOrder(1, 1, Buy, 1000, 10))
	book.ExecuteOrder(newOrder(2, 1, Buy, 1000, 10))
	book.ExecuteOrder(newOrder(3, 1, Buy, 1001, 10))
	book.ExecuteOrder(newOrder(4, 1, Buy, 1001, 10))

	// Sell 40 @ 990 should drain in order 3, 4, 1, 2.
	trades := book.ExecuteOrder(newOrder(5, 1, Sell, 990, 40))

	require.Len(t, trades, 4)
	assert.Equal(t, OrderId(3), trades[0].MakerOrderId)
	assert.Equal(t, OrderId(4), trades[1].MakerOrderId)
	assert.Equal(t, OrderId(1), trades[2].MakerOrderId)
	assert.Equal(t, OrderId(2), trades[3].MakerOrderId)
}

func TestBook_NonCrossingOrderRests(t *testing.T) {
	book := NewBook()

	book.ExecuteOrder(newOrder(1, 1, Sell, 1010, 10))
	trades := book.ExecuteOrder(newOrder(2, 1, Buy, 1000, 10))

	assert.Empty(t, trades)
	bestBid, ok := book.BestBid()
	require.True(t, ok)
	assert.Equal(t, Price(1000), bestBid)
	bestAsk, ok := book.BestAsk()
	require.True(t, ok)
	assert.Equal(t, Price(1010), bestAsk)
}

func TestBook_EqualPriceCrosses(t *testing.T) {
	book := NewBook()

	book.ExecuteOrder(newOrder(1, 1, Sell, 1000, 10))
	trades := book.ExecuteOrder(newOrder(2, 1, Buy, 1000, 10))

	require.Len(t, trades, 1)
	assert.Equal(t, Price(1000), trades[0].Price)
}

func TestBook_PartialFillLeavesRemainderResting(t *testing.T) {
	book := NewBook()

	book.ExecuteOrder(newOrder(1, 1, Sell, 1000, 10))
	trades := book.ExecuteOrder(newOrder(2, 1, Buy, 1000, 15))

	require.Len(t, trades, 1)
	asks := book.Asks()
	assert.Empty(t, asks)
	bids := book.Bids()
	require.Len(t, bids, 1)
	assert.Equal(t, uint64(5), bids[0].Orders[0].Remaining)
}

func TestBook_CancelOrder(t *testing.T) {
	book := NewBook()
	book.ExecuteOrder(newOrder(1, 1, Buy, 1001, 10))

	canceled, err := book.CancelOrder(1)
	require.NoError(t, err)
	assert.Equal(t, uint64(10), canceled.Remaining)
	assert.Empty(t, book.Bids())
}

func TestBook_CancelUnknownOrderFails(t *testing.T) {
	book := NewBook()
	book.ExecuteOrder(newOrder(1, 1, Buy, 1001, 10))

	_, err := book.CancelOrder(2)
	assert.ErrorIs(t, err, ErrOrderNotFound)
}

func TestBook_CannotCancelSameOrderTwice(t *testing.T) {
	book := NewBook()
	book.ExecuteOrder(newOrder(1, 1, Buy, 1001, 10))

	_, err := book.CancelOrder(1)
	require.NoError(t, err)

	_, err = book.CancelOrder(1)
	assert.ErrorIs(t, err, ErrOrderNotFound)
}
