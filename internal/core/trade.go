package core

// Trade is the derived, non-persistent record of one fill. Price is always
// the maker's price (price improvement accrues to the taker); Size is
// min(maker.Remaining, taker.Remaining) as it stood immediately before the
// fill. Side is the maker's side — settle uses it to figure out which party
// was buying and which was selling.
type Trade struct {
	MarketId     MarketId
	Price        Price
	Size         uint64
	MakerOrderId OrderId
	TakerOrderId OrderId
	MakerUserId  UserId
	TakerUserId  UserId
	Side         Side
}

func newTrade(maker, taker *Order, size uint64) Trade {
	return Trade{
		MarketId:     maker.MarketId,
		Price:        maker.Price,
		Size:         size,
		MakerOrderId: maker.Id,
		TakerOrderId: taker.Id,
		MakerUserId:  maker.UserId,
		TakerUserId:  taker.UserId,
		Side:         maker.Side,
	}
}
