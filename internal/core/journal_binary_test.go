package core

import (
	"io"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestBinaryJournal_AppendsAcrossReopens(t *testing.T) {
	path := filepath.Join(t.TempDir(), "journal.bin")

	w, err := NewBinaryJournalWriter(path)
	require.NoError(t, err)
	require.NoError(t, w.Write(Message{Sequence: 1, Payload: CreateOrderPayload{Order: Order{Id: 1, MarketId: 3, Side: Buy, Price: 100, Size: 50, Remaining: 50, UserId: 2}}}))
	require.NoError(t, w.Close())

	w2, err := NewBinaryJournalWriter(path)
	require.NoError(t, err)
	require.NoError(t, w2.Write(Message{Sequence: 2, Payload: CreateOrderPayload{Order: Order{Id: 2, MarketId: 3, Side: Buy, Price: 100, Size: 50, Remaining: 50, UserId: 2}}}))
	require.NoError(t, w2.Close())

	r, err := NewBinaryJournalReader(path)
	require.NoError(t, err)
	defer r.Close()

	msg1, err := r.Next()
	require.NoError(t, err)
	assert.Equal(t, SequenceNumber(1), msg1.Sequence)

	msg2, err := r.Next()
	require.NoError(t, err)
	assert.Equal(t, SequenceNumber(2), msg2.Sequence)
	payload, ok := msg2.Payload.(CreateOrderPayload)
	require.True(t, ok)
	assert.Equal(t, Price(100), payload.Order.Price)
}

func TestBinaryJournal_CleanEOF(t *testing.T) {
	path := filepath.Join(t.TempDir(), "journal.bin")

	w, err := NewBinaryJournalWriter(path)
	require.NoError(t, err)
	require.NoError(t, w.Write(Message{Sequence: 1, Payload: CreateOrderPayload{Order: Order{Id: 1, MarketId: 3, Side: Buy, Price: 100, Size: 50, Remaining: 50}}}))
	require.NoError(t, w.Write(Message{Sequence: 2, Payload: CreateOrderPayload{Order: Order{Id: 2, MarketId: 3, Side: Buy, Price: 100, Size: 50, Remaining: 50}}}))
	require.NoError(t, w.Close())

	r, err := NewBinaryJournalReader(path)
	require.NoError(t, err)
	defer r.Close()

	_, err = r.Next()
	require.NoError(t, err)
	_, err = r.Next()
	require.NoError(t, err)

	_, err = r.Next()
	assert.ErrorIs(t, err, io.EOF)
}

func TestBinaryJournal_TruncatedBodyIsDecodeError(t *testing.T) {
	path := filepath.Join(t.TempDir(), "journal.bin")

	w, err := NewBinaryJournalWriter(path)
	require.NoError(t, err)
	require.NoError(t, w.Write(Message{Sequence: 1, Payload: CreateOrderPayload{Order: Order{Id: 1, MarketId: 3, Side: Buy, Price: 100, Size: 50, Remaining: 50}}}))
	require.NoError(t, w.Close())

	// Keep the 4-byte length prefix and only 2 bytes of the body it announces.
	truncateFile(t, path, 6)

	r, err := NewBinaryJournalReader(path)
	require.NoError(t, err)
	defer r.Close()

	_, err = r.Next()
	assert.ErrorIs(t, err, ErrJournalDecode)
}
