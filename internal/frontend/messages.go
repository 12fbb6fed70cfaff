package frontend

import (
	"encoding/json"
	"errors"
	"fmt"

	"github.com/google/uuid"

	"bastion/internal/core"
)

var (
	ErrInvalidAmount      = errors.New("invalid amount")
	ErrInvalidMessageType = errors.New("invalid message type")
	ErrUnknownSide        = errors.New("unknown side")
)

// MessageType is the wire discriminant carried in every envelope, adapted
// from the teacher's internal/net.MessageType enum (which only had
// Heartbeat/NewOrder/CancelOrder) with AdjustBalance added as a supplemented
// command.
type MessageType string

const (
	NewOrder      MessageType = "new_order"
	CancelOrder   MessageType = "cancel_order"
	AdjustBalance MessageType = "adjust_balance"
)

// envelope is the outer shape of every client->server websocket frame.
// RequestId is a client-supplied, front-end-only request-correlation token,
// distinct from core.OrderId (the teacher conflated the two by minting the
// order's own id from uuid.New() in NewOrderMessage.Order()); the order id
// comes from the new_order body instead. Nothing here or in the engine
// deduplicates a retried request: resubmitting a new_order creates a second
// order.
type envelope struct {
	Type      MessageType     `json:"type"`
	RequestId string          `json:"request_id"`
	Body      json.RawMessage `json:"body"`
}

type newOrderBody struct {
	OrderId  core.OrderId `json:"order_id"`
	MarketId core.MarketId `json:"market_id"`
	Side     string        `json:"side"`
	Price    string        `json:"price"`
	Size     string        `json:"size"`
}

type cancelOrderBody struct {
	OrderId core.OrderId `json:"order_id"`
}

type adjustBalanceBody struct {
	AssetId core.AssetId `json:"asset_id"`
	Change  string       `json:"change"`
}

// Report is the server->client envelope: either an execution report for a
// settled trade or an error report for a rejected command, mirroring the
// teacher's Report/ExecutionReport/ErrorReport split in internal/net.
type Report struct {
	Type      string `json:"type"`
	RequestId string `json:"request_id,omitempty"`
	Error     string `json:"error,omitempty"`
	Trade     *TradeReport `json:"trade,omitempty"`
}

type TradeReport struct {
	MarketId core.MarketId `json:"market_id"`
	Price    core.Price    `json:"price"`
	Size     uint64        `json:"size"`
	Side     string        `json:"side"`
	OrderId  core.OrderId  `json:"order_id"`
}

// decodeOrder turns a NewOrder envelope's body into a core.Order, resolving
// the market's price/size precision from cfg to parse the wire decimal
// strings via ParseAmount/ParsePrice.
func decodeOrder(userId core.UserId, body json.RawMessage, cfg *core.Config) (core.Order, error) {
	var b newOrderBody
	if err := json.Unmarshal(body, &b); err != nil {
		return core.Order{}, fmt.Errorf("%w: %v", ErrInvalidMessageType, err)
	}

	market, err := cfg.Market(b.MarketId)
	if err != nil {
		return core.Order{}, err
	}

	var side core.Side
	switch b.Side {
	case "buy":
		side = core.Buy
	case "sell":
		side = core.Sell
	default:
		return core.Order{}, fmt.Errorf("%w: %q", ErrUnknownSide, b.Side)
	}

	price, err := ParsePrice(b.Price, market.PricePrecision)
	if err != nil {
		return core.Order{}, err
	}
	size, err := ParseAmount(b.Size, market.SizePrecision)
	if err != nil {
		return core.Order{}, err
	}

	return core.Order{
		Id:        b.OrderId,
		UserId:    userId,
		MarketId:  b.MarketId,
		Side:      side,
		Price:     price,
		Size:      size,
		Remaining: size,
	}, nil
}

// decodeMessage parses one websocket frame into a core.Message ready for
// the engine's inbound queue, plus the client-supplied request id the
// caller uses to correlate a later Report back to this frame.
func decodeMessage(userId core.UserId, raw []byte, cfg *core.Config) (core.Message, string, error) {
	var env envelope
	if err := json.Unmarshal(raw, &env); err != nil {
		return core.Message{}, "", fmt.Errorf("%w: %v", ErrInvalidMessageType, err)
	}

	switch env.Type {
	case NewOrder:
		order, err := decodeOrder(userId, env.Body, cfg)
		if err != nil {
			return core.Message{}, env.RequestId, err
		}
		return core.Message{Payload: core.CreateOrderPayload{Order: order}}, env.RequestId, nil

	case CancelOrder:
		var b cancelOrderBody
		if err := json.Unmarshal(env.Body, &b); err != nil {
			return core.Message{}, env.RequestId, fmt.Errorf("%w: %v", ErrInvalidMessageType, err)
		}
		return core.Message{Payload: core.CancelOrderPayload{OrderId: b.OrderId}}, env.RequestId, nil

	case AdjustBalance:
		var b adjustBalanceBody
		if err := json.Unmarshal(env.Body, &b); err != nil {
			return core.Message{}, env.RequestId, fmt.Errorf("%w: %v", ErrInvalidMessageType, err)
		}
		asset, err := findAsset(cfg, b.AssetId)
		if err != nil {
			return core.Message{}, env.RequestId, err
		}
		change, err := ParseSignedAmount(b.Change, asset.Precision)
		if err != nil {
			return core.Message{}, env.RequestId, err
		}
		return core.Message{Payload: core.AdjustBalancePayload{UserId: userId, AssetId: b.AssetId, Change: change}}, env.RequestId, nil

	default:
		return core.Message{}, env.RequestId, fmt.Errorf("%w: %q", ErrInvalidMessageType, env.Type)
	}
}

func findAsset(cfg *core.Config, id core.AssetId) (core.Asset, error) {
	return cfg.Asset(id)
}

// newRequestId mints a front-end-only correlation id for a client that
// didn't supply its own — never used as a core.OrderId.
func newRequestId() string {
	return uuid.New().String()
}
