package core

import "sync"

// balanceKey identifies one (user, asset) ledger entry. A missing key is
// semantically equivalent to a balance of 0.
type balanceKey struct {
	user  UserId
	asset AssetId
}

// Balances maps (user, asset) to a signed Amount. It is shared ownership: a
// read-only Snapshot is cloned out to front-end code for best-effort
// display, but only the engine task ever calls the mutating methods. The
// mutex makes that sharing safe: mutations take the write lock, GetBalance
// and Snapshot take the read lock, so an engine mutation waits for any read
// in progress.
//
// Amounts may go negative — that's intentional, for administrative
// corrections via AdjustBalance. Balances itself never rejects a mutation;
// Engine.validate is the sole authority on insufficiency, and it runs
// before any debit.
type Balances struct {
	mu     sync.RWMutex
	config *Config
	byKey  map[balanceKey]Amount
}

func NewBalances(config *Config) *Balances {
	return &Balances{
		config: config,
		byKey:  make(map[balanceKey]Amount),
	}
}

func (b *Balances) GetBalance(user UserId, asset AssetId) Amount {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return b.byKey[balanceKey{user, asset}]
}

// AdjustBalance unconditionally applies change and returns the new balance.
func (b *Balances) AdjustBalance(user UserId, asset AssetId, change Amount) Amount {
	b.mu.Lock()
	defer b.mu.Unlock()
	key := balanceKey{user, asset}
	next := b.byKey[key] + change
	b.byKey[key] = next
	return next
}

func (b *Balances) reserveRequirement(order *Order) (AssetId, Amount, error) {
	market, err := b.config.Market(order.MarketId)
	if err != nil {
		return 0, 0, err
	}
	asset, amount := order.reserveRequirement(market)
	return asset, amount, nil
}

// UserCanAffordOrder computes the reserve requirement for order and reports
// whether the user's current balance in the required asset covers it. This
// is the only place in Balances that makes a yes/no call — everywhere else
// is unconditional mutation.
func (b *Balances) UserCanAffordOrder(order *Order) (bool, error) {
	asset, requirement, err := b.reserveRequirement(order)
	if err != nil {
		return false, err
	}
	return b.GetBalance(order.UserId, asset) >= requirement, nil
}

// DebitForOrder subtracts the full reserve requirement, computed from
// order.Remaining, from the order owner's balance.
func (b *Balances) DebitForOrder(order *Order) error {
	asset, requirement, err := b.reserveRequirement(order)
	if err != nil {
		return err
	}
	b.AdjustBalance(order.UserId, asset, -requirement)
	return nil
}

// CreditForCanceledOrder adds back the reserve requirement computed from
// order's Remaining at the moment it left the book — not its original Size
// — so a partial fill refunds only the unfilled portion.
func (b *Balances) CreditForCanceledOrder(order *Order) error {
	asset, requirement, err := b.reserveRequirement(order)
	if err != nil {
		return err
	}
	b.AdjustBalance(order.UserId, asset, requirement)
	return nil
}

// Settle credits the buyer's base balance by trade.Size and the seller's
// quote balance by trade.Size*trade.Price. trade.Side is the maker's side:
// if the maker bought, the maker is the buyer and the taker is the seller,
// and vice versa.
func (b *Balances) Settle(trade *Trade) error {
	market, err := b.config.Market(trade.MarketId)
	if err != nil {
		return err
	}

	var buyUser, sellUser UserId
	if trade.Side == Buy {
		buyUser, sellUser = trade.MakerUserId, trade.TakerUserId
	} else {
		buyUser, sellUser = trade.TakerUserId, trade.MakerUserId
	}

	total := Amount(trade.Size) * Amount(trade.Price)
	b.AdjustBalance(buyUser, market.BaseAssetId, Amount(trade.Size))
	b.AdjustBalance(sellUser, market.QuoteAssetId, total)
	return nil
}

// Snapshot is a read-only point-in-time copy for front-end display. Callers
// must not mutate the returned map's backing semantics through Balances —
// there is no write path exposed on a snapshot, only plain map reads.
type Snapshot map[balanceKey]Amount

func (b *Balances) Snapshot() Snapshot {
	b.mu.RLock()
	defer b.mu.RUnlock()
	snap := make(Snapshot, len(b.byKey))
	for k, v := range b.byKey {
		snap[k] = v
	}
	return snap
}

func (s Snapshot) Get(user UserId, asset AssetId) Amount {
	return s[balanceKey{user, asset}]
}
