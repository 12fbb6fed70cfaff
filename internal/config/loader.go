// Package config loads the asset/market registry (core.Config) from a
// YAML/JSON/env-overridable file, grounded on the viper Load pattern used
// across the retrieval pack (spf13/viper, mapstructure tags, SetEnvPrefix).
package config

import (
	"fmt"
	"strings"

	"github.com/spf13/viper"

	"bastion/internal/core"
)

type assetSpec struct {
	Id        uint32 `mapstructure:"id"`
	Name      string `mapstructure:"name"`
	Precision uint32 `mapstructure:"precision"`
}

type marketSpec struct {
	Id              uint32 `mapstructure:"id"`
	Name            string `mapstructure:"name"`
	BaseAssetId     uint32 `mapstructure:"base_asset_id"`
	QuoteAssetId    uint32 `mapstructure:"quote_asset_id"`
	PricePrecision  uint32 `mapstructure:"price_precision"`
	SizePrecision   uint32 `mapstructure:"size_precision"`
}

type fileSpec struct {
	NatsUrl     string       `mapstructure:"nats_url"`
	JournalDir  string       `mapstructure:"journal_dir"`
	ListenAddr  string       `mapstructure:"listen_addr"`
	MetricsAddr string       `mapstructure:"metrics_addr"`
	Assets      []assetSpec  `mapstructure:"assets"`
	Markets     []marketSpec `mapstructure:"markets"`
}

// Settings bundles core.Config with the ambient deployment knobs (where the
// journal lives, what to listen on) that sit outside the matching engine's
// own concerns but still come from the same file.
type Settings struct {
	Core        *core.Config
	NatsUrl     string
	JournalDir  string
	ListenAddr  string
	MetricsAddr string
}

// Load reads path (YAML by default; viper also accepts JSON/TOML by
// extension) with BASTION_-prefixed environment variable overrides, then
// builds the core.Config registry from its assets/markets sections.
func Load(path string) (*Settings, error) {
	v := viper.New()
	v.SetConfigFile(path)
	v.SetEnvPrefix("BASTION")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	v.SetDefault("listen_addr", "0.0.0.0:9001")
	v.SetDefault("metrics_addr", "0.0.0.0:9090")
	v.SetDefault("journal_dir", "./data/journal")
	v.SetDefault("nats_url", "nats://localhost:4222")

	if err := v.ReadInConfig(); err != nil {
		return nil, fmt.Errorf("read config: %w", err)
	}

	var spec fileSpec
	if err := v.Unmarshal(&spec); err != nil {
		return nil, fmt.Errorf("unmarshal config: %w", err)
	}

	cfg := core.NewConfig()
	for _, a := range spec.Assets {
		if err := cfg.AddAsset(core.Asset{Id: core.AssetId(a.Id), Name: a.Name, Precision: a.Precision}); err != nil {
			return nil, err
		}
	}
	for _, m := range spec.Markets {
		market := core.Market{
			Id:             core.MarketId(m.Id),
			Name:           m.Name,
			BaseAssetId:    core.AssetId(m.BaseAssetId),
			QuoteAssetId:   core.AssetId(m.QuoteAssetId),
			PricePrecision: m.PricePrecision,
			SizePrecision:  m.SizePrecision,
		}
		if err := cfg.AddMarket(market); err != nil {
			return nil, err
		}
	}

	return &Settings{
		Core:        cfg,
		NatsUrl:     spec.NatsUrl,
		JournalDir:  spec.JournalDir,
		ListenAddr:  spec.ListenAddr,
		MetricsAddr: spec.MetricsAddr,
	}, nil
}
