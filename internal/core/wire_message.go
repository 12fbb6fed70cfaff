package core

import "fmt"

// wireKind tags which of the three payload shapes a wireMessage carries.
// This is the "tagged union" both journal encodings serialize;
// Go has no sum type, so the dispatch byte plus a flat struct stands in for
// one (per spec.md §9's "Command variants" redesign guidance).
type wireKind uint8

const (
	wireCreateOrder wireKind = iota
	wireCancelOrder
	wireAdjustBalance
)

// wireMessage is the on-disk shape of a journaled Message: one flat,
// concrete struct regardless of which payload it carries. Using a flat
// struct instead of encoding the MessagePayload interface directly means
// neither journal encoding needs interface-aware (de)serialization support.
type wireMessage struct {
	Sequence SequenceNumber
	Kind     wireKind

	// Populated when Kind == wireCreateOrder.
	Order Order

	// Populated when Kind == wireCancelOrder.
	CancelOrderId OrderId

	// Populated when Kind == wireAdjustBalance.
	AdjustUserId  UserId
	AdjustAssetId AssetId
	AdjustChange  Amount
}

func toWire(msg Message) (wireMessage, error) {
	w := wireMessage{Sequence: msg.Sequence}
	switch p := msg.Payload.(type) {
	case CreateOrderPayload:
		w.Kind = wireCreateOrder
		w.Order = p.Order
	case CancelOrderPayload:
		w.Kind = wireCancelOrder
		w.CancelOrderId = p.OrderId
	case AdjustBalancePayload:
		w.Kind = wireAdjustBalance
		w.AdjustUserId = p.UserId
		w.AdjustAssetId = p.AssetId
		w.AdjustChange = p.Change
	default:
		return wireMessage{}, fmt.Errorf("%w: %T", ErrUnknownPayload, msg.Payload)
	}
	return w, nil
}

func fromWire(w wireMessage) (Message, error) {
	var payload MessagePayload
	switch w.Kind {
	case wireCreateOrder:
		payload = CreateOrderPayload{Order: w.Order}
	case wireCancelOrder:
		payload = CancelOrderPayload{OrderId: w.CancelOrderId}
	case wireAdjustBalance:
		payload = AdjustBalancePayload{
			UserId:  w.AdjustUserId,
			AssetId: w.AdjustAssetId,
			Change:  w.AdjustChange,
		}
	default:
		return Message{}, fmt.Errorf("%w: kind %d", ErrUnknownPayload, w.Kind)
	}
	return Message{Sequence: w.Sequence, Payload: payload}, nil
}
