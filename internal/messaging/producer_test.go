package messaging

import (
	"context"
	"errors"
	"testing"

	"github.com/segmentio/kafka-go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeWriter struct {
	msgs   []kafka.Message
	err    error
	closed bool
}

func (w *fakeWriter) WriteMessages(_ context.Context, msgs ...kafka.Message) error {
	if w.err != nil {
		return w.err
	}
	w.msgs = append(w.msgs, msgs...)
	return nil
}

func (w *fakeWriter) Close() error {
	w.closed = true
	return nil
}

type typedEvent struct {
	Name string `json:"name"`
}

func (typedEvent) EventType() string { return "order.placed" }

func TestProducer_Publish(t *testing.T) {
	ctx := context.Background()

	t.Run("Success", func(t *testing.T) {
		w := &fakeWriter{}
		p := newProducer(w)

		require.NoError(t, p.Publish(ctx, "order-1", typedEvent{Name: "x"}))
		require.Len(t, w.msgs, 1)
		assert.Equal(t, "order-1", string(w.msgs[0].Key))
		assert.JSONEq(t, `{"name":"x"}`, string(w.msgs[0].Value))
		require.Len(t, w.msgs[0].Headers, 1)
		assert.Equal(t, "order.placed", string(w.msgs[0].Headers[0].Value))
	})

	t.Run("WriteError", func(t *testing.T) {
		w := &fakeWriter{err: errors.New("broker down")}
		p := newProducer(w)

		assert.EqualError(t, p.Publish(ctx, "k", map[string]int{"a": 1}), "broker down")
	})

	t.Run("EncodeError", func(t *testing.T) {
		p := newProducer(&fakeWriter{})

		err := p.Publish(ctx, "k", make(chan int))
		assert.ErrorContains(t, err, "encode event")
	})

	t.Run("Close", func(t *testing.T) {
		w := &fakeWriter{}
		require.NoError(t, newProducer(w).Close())
		assert.True(t, w.closed)
	})
}

func TestNoop(t *testing.T) {
	var n Noop
	assert.NoError(t, n.Publish(context.Background(), "k", 1))
	assert.NoError(t, n.Close())
}
