package frontend

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"bastion/internal/core"
)

func testCfg(t *testing.T) *core.Config {
	t.Helper()
	cfg := core.NewConfig()
	require.NoError(t, cfg.AddAsset(core.Asset{Id: 1, Name: "BASE", Precision: 8}))
	require.NoError(t, cfg.AddAsset(core.Asset{Id: 2, Name: "QUOTE", Precision: 2}))
	require.NoError(t, cfg.AddMarket(core.Market{Id: 1, Name: "BASE/QUOTE", BaseAssetId: 1, QuoteAssetId: 2, PricePrecision: 2, SizePrecision: 8}))
	return cfg
}

func TestDecodeMessage_NewOrder(t *testing.T) {
	cfg := testCfg(t)
	raw := []byte(`{"type":"new_order","request_id":"r1","body":{"order_id":7,"market_id":1,"side":"buy","price":"10.00","size":"2.5"}}`)

	msg, requestId, err := decodeMessage(42, raw, cfg)
	require.NoError(t, err)
	assert.Equal(t, "r1", requestId)

	payload, ok := msg.Payload.(core.CreateOrderPayload)
	require.True(t, ok)
	assert.Equal(t, core.OrderId(7), payload.Order.Id)
	assert.Equal(t, core.UserId(42), payload.Order.UserId)
	assert.Equal(t, core.Buy, payload.Order.Side)
	assert.Equal(t, core.Price(1000), payload.Order.Price)
	assert.Equal(t, uint64(250000000), payload.Order.Size)
	assert.Equal(t, payload.Order.Size, payload.Order.Remaining)
}

func TestDecodeMessage_CancelOrder(t *testing.T) {
	cfg := testCfg(t)
	raw := []byte(`{"type":"cancel_order","request_id":"r2","body":{"order_id":9}}`)

	msg, requestId, err := decodeMessage(1, raw, cfg)
	require.NoError(t, err)
	assert.Equal(t, "r2", requestId)

	payload, ok := msg.Payload.(core.CancelOrderPayload)
	require.True(t, ok)
	assert.Equal(t, core.OrderId(9), payload.OrderId)
}

func TestDecodeMessage_AdjustBalanceAllowsNegativeChange(t *testing.T) {
	cfg := testCfg(t)
	raw := []byte(`{"type":"adjust_balance","request_id":"r3","body":{"asset_id":2,"change":"-5.25"}}`)

	msg, _, err := decodeMessage(1, raw, cfg)
	require.NoError(t, err)

	payload, ok := msg.Payload.(core.AdjustBalancePayload)
	require.True(t, ok)
	assert.Equal(t, core.UserId(1), payload.UserId)
	assert.EqualValues(t, -525, payload.Change)
}

func TestDecodeMessage_UnknownTypeIsRejected(t *testing.T) {
	cfg := testCfg(t)
	raw := []byte(`{"type":"bogus","request_id":"r4","body":{}}`)

	_, requestId, err := decodeMessage(1, raw, cfg)
	assert.ErrorIs(t, err, ErrInvalidMessageType)
	assert.Equal(t, "r4", requestId)
}

func TestDecodeMessage_UnknownMarketIsRejected(t *testing.T) {
	cfg := testCfg(t)
	raw := []byte(`{"type":"new_order","request_id":"r5","body":{"order_id":1,"market_id":99,"side":"buy","price":"1","size":"1"}}`)

	_, _, err := decodeMessage(1, raw, cfg)
	assert.ErrorIs(t, err, core.ErrUnknownMarket)
}

func TestDecodeMessage_UnknownSideIsRejected(t *testing.T) {
	cfg := testCfg(t)
	raw := []byte(`{"type":"new_order","request_id":"r6","body":{"order_id":1,"market_id":1,"side":"sideways","price":"1","size":"1"}}`)

	_, _, err := decodeMessage(1, raw, cfg)
	assert.ErrorIs(t, err, ErrUnknownSide)
}
