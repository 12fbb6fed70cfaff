package core

// Order is a resting or incoming limit order. Remaining is the currently
// unfilled quantity; it only ever decreases (via matching) until the order
// is removed from the book (fully filled or canceled). Invariant: 0 <=
// Remaining <= Size.
type Order struct {
	Id        OrderId
	UserId    UserId
	MarketId  MarketId
	Side      Side
	Price     Price
	Size      uint64
	Remaining uint64
}

// reserveRequirement returns the asset and amount a user must have reserved
// to place this order, per its current Remaining (not its original Size —
// that distinction is what makes cancel refunds exact on a partial fill).
func (o Order) reserveRequirement(market Market) (AssetId, Amount) {
	switch o.Side {
	case Buy:
		return market.QuoteAssetId, Amount(o.Remaining) * Amount(o.Price)
	default:
		return market.BaseAssetId, Amount(o.Remaining)
	}
}
