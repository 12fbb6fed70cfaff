// Package bus broadcasts applied trades to read-only observers (market
// data, UI) over NATS. Nothing here ever sits on the apply path's critical
// section: the Engine hands a Publisher an already-computed, already-applied
// trade list after the fact, and a publish failure is logged, not returned.
package bus

import (
	"encoding/json"
	"time"

	"github.com/nats-io/nats.go"
	"github.com/rs/zerolog/log"

	"bastion/internal/core"
)

const (
	defaultSubject    = "bastion.trades"
	publishRetries    = 3
	publishRetryDelay = 50 * time.Millisecond
)

// tradeEvent is the wire shape published to subscribers — core.Trade plus
// nothing the core itself doesn't already know, kept separate from
// core.Trade so a wire format change never forces a core change.
type tradeEvent struct {
	MarketId     core.MarketId `json:"market_id"`
	Price        core.Price    `json:"price"`
	Size         uint64        `json:"size"`
	MakerOrderId core.OrderId  `json:"maker_order_id"`
	TakerOrderId core.OrderId  `json:"taker_order_id"`
	MakerUserId  core.UserId   `json:"maker_user_id"`
	TakerUserId  core.UserId   `json:"taker_user_id"`
	Side         string        `json:"side"`
}

// Publisher wraps a NATS connection. A nil Publisher is valid and publishes
// nothing — the event bus is optional per spec.
type Publisher struct {
	conn    *nats.Conn
	subject string
}

// Connect dials the given NATS URL and returns a Publisher bound to
// subject. If subject is empty, defaultSubject is used.
func Connect(url, subject string) (*Publisher, error) {
	conn, err := nats.Connect(url)
	if err != nil {
		return nil, err
	}
	if subject == "" {
		subject = defaultSubject
	}
	return &Publisher{conn: conn, subject: subject}, nil
}

// Close closes the underlying NATS connection without draining it first.
func (p *Publisher) Close() {
	if p == nil || p.conn == nil {
		return
	}
	p.conn.Close()
}

// Publish broadcasts trades on a best-effort basis: it retries a bounded
// number of times on a transport error, logs and gives up past that, and
// never returns an error for the Engine to act on — a lost trade report
// never unwinds the fill it describes.
func (p *Publisher) Publish(trades []core.Trade) {
	if p == nil || p.conn == nil || len(trades) == 0 {
		return
	}

	events := make([]tradeEvent, len(trades))
	for i, t := range trades {
		events[i] = tradeEvent{
			MarketId:     t.MarketId,
			Price:        t.Price,
			Size:         t.Size,
			MakerOrderId: t.MakerOrderId,
			TakerOrderId: t.TakerOrderId,
			MakerUserId:  t.MakerUserId,
			TakerUserId:  t.TakerUserId,
			Side:         t.Side.String(),
		}
	}

	payload, err := json.Marshal(events)
	if err != nil {
		log.Error().Err(err).Msg("failed to encode trade event")
		return
	}

	var publishErr error
	for attempt := 0; attempt < publishRetries; attempt++ {
		if publishErr = p.conn.Publish(p.subject, payload); publishErr == nil {
			return
		}
		time.Sleep(publishRetryDelay)
	}
	log.Error().Err(publishErr).Int("trades", len(trades)).Msg("giving up publishing trade event")
}
