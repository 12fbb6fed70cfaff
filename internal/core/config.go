package core

import (
	"fmt"

	"github.com/emirpasic/gods/v2/trees/redblacktree"
)

// Asset is a registered currency/security with a minor-unit precision.
type Asset struct {
	Id        AssetId
	Name      string
	Precision uint32
}

// Market pairs a base asset (what's bought/sold) with a quote asset (what's
// paid), plus the precisions used to scale human prices/sizes into minor
// units.
type Market struct {
	Id             MarketId
	Name           string
	BaseAssetId    AssetId
	QuoteAssetId   AssetId
	PricePrecision uint32
	SizePrecision  uint32
}

// Config is the immutable registry of assets and markets, loaded once before
// engine start and never mutated afterwards. Registries are ordered maps
// rather than Go's builtin map: every walk over Config (logging, a markets
// listing RPC) is then reproducible instead of depending on map iteration
// order, closing off one more source of apply-path nondeterminism even
// though Config itself never sits on the apply path.
type Config struct {
	assets  *redblacktree.Tree[AssetId, Asset]
	markets *redblacktree.Tree[MarketId, Market]
}

func assetIdCmp(a, b AssetId) int {
	switch {
	case a < b:
		return -1
	case a > b:
		return 1
	default:
		return 0
	}
}

func marketIdCmp(a, b MarketId) int {
	switch {
	case a < b:
		return -1
	case a > b:
		return 1
	default:
		return 0
	}
}

// NewConfig builds an empty registry. Use AddAsset/AddMarket to populate it.
func NewConfig() *Config {
	return &Config{
		assets:  redblacktree.NewWith[AssetId, Asset](assetIdCmp),
		markets: redblacktree.NewWith[MarketId, Market](marketIdCmp),
	}
}

// ErrDuplicateAsset/ErrDuplicateMarket are config validation errors: the
// loader should reject a config that declares the same id twice rather than
// let the second silently clobber the first.
var (
	ErrDuplicateAsset  = fmt.Errorf("duplicate asset id")
	ErrDuplicateMarket = fmt.Errorf("duplicate market id")
	ErrUnknownAsset    = fmt.Errorf("unknown asset id")
	ErrUnknownMarket   = fmt.Errorf("unknown market id")
)

func (c *Config) AddAsset(asset Asset) error {
	if _, exists := c.assets.Get(asset.Id); exists {
		return fmt.Errorf("%w: %d", ErrDuplicateAsset, asset.Id)
	}
	c.assets.Put(asset.Id, asset)
	return nil
}

func (c *Config) AddMarket(market Market) error {
	if _, exists := c.markets.Get(market.Id); exists {
		return fmt.Errorf("%w: %d", ErrDuplicateMarket, market.Id)
	}
	c.markets.Put(market.Id, market)
	return nil
}

func (c *Config) Asset(id AssetId) (Asset, error) {
	asset, ok := c.assets.Get(id)
	if !ok {
		return Asset{}, fmt.Errorf("%w: %d", ErrUnknownAsset, id)
	}
	return asset, nil
}

func (c *Config) Market(id MarketId) (Market, error) {
	market, ok := c.markets.Get(id)
	if !ok {
		return Market{}, fmt.Errorf("%w: %d", ErrUnknownMarket, id)
	}
	return market, nil
}

// Assets returns the registered assets in ascending id order.
func (c *Config) Assets() []Asset {
	return c.assets.Values()
}

// Markets returns the registered markets in ascending id order.
func (c *Config) Markets() []Market {
	return c.markets.Values()
}
