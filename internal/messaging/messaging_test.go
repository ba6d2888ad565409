package messaging

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"testing"

	"github.com/segmentio/kafka-go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/propagation"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
)

func TestMessageCarrier(t *testing.T) {
	msg := kafka.Message{Headers: []kafka.Header{{Key: "a", Value: []byte("1")}}}
	c := NewMessageCarrier(&msg)

	c.Set("a", "2")
	c.Set("b", "3")

	assert.Equal(t, "2", c.Get("a"))
	assert.Equal(t, "3", c.Get("b"))
	assert.Equal(t, "", c.Get("missing"))
	assert.Equal(t, []string{"a", "b"}, c.Keys())
	assert.Len(t, msg.Headers, 2)
}

type fakeWriter struct {
	msgs []kafka.Message
	err  error
}

func (w *fakeWriter) WriteMessages(_ context.Context, msgs ...kafka.Message) error {
	if w.err != nil {
		return w.err
	}
	w.msgs = append(w.msgs, msgs...)
	return nil
}

func (w *fakeWriter) Close() error { return nil }

func withTracing(t *testing.T) {
	t.Helper()

	prevTP, prevProp := otel.GetTracerProvider(), otel.GetTextMapPropagator()
	otel.SetTracerProvider(sdktrace.NewTracerProvider())
	otel.SetTextMapPropagator(propagation.TraceContext{})
	t.Cleanup(func() {
		otel.SetTracerProvider(prevTP)
		otel.SetTextMapPropagator(prevProp)
	})
}

func TestProducer_Publish(t *testing.T) {
	withTracing(t)

	w := &fakeWriter{}
	p := &Producer{writer: w, topic: TopicOrderConfirmed}

	err := p.Publish(context.Background(), "o1", map[string]string{"order_id": "o1"})
	require.NoError(t, err)

	require.Len(t, w.msgs, 1)
	msg := w.msgs[0]
	assert.Equal(t, "o1", string(msg.Key))
	assert.JSONEq(t, `{"order_id":"o1"}`, string(msg.Value))
	assert.NotEmpty(t, NewMessageCarrier(&msg).Get("traceparent"))
}

func TestProducer_PublishError(t *testing.T) {
	p := &Producer{writer: &fakeWriter{err: errors.New("broker down")}, topic: TopicOrderConfirmed}

	err := p.Publish(context.Background(), "o1", struct{}{})
	assert.EqualError(t, err, "write order.confirmed message: broker down")
}

type fakeReader struct {
	msgs      []kafka.Message
	committed []int64
}

func (r *fakeReader) FetchMessage(ctx context.Context) (kafka.Message, error) {
	if len(r.msgs) == 0 {
		return kafka.Message{}, io.EOF
	}
	msg := r.msgs[0]
	r.msgs = r.msgs[1:]
	return msg, nil
}

func (r *fakeReader) CommitMessages(_ context.Context, msgs ...kafka.Message) error {
	for _, m := range msgs {
		r.committed = append(r.committed, m.Offset)
	}
	return nil
}

func (r *fakeReader) Close() error { return nil }

func newTestConsumer(r *fakeReader) *Consumer {
	return &Consumer{
		reader:  r,
		topic:   TopicOrderConfirmed,
		groupID: ReceiptsGroup,
		logger:  slog.New(slog.NewTextHandler(io.Discard, nil)),
	}
}

func TestConsumer_Consume(t *testing.T) {
	t.Run("commits processed and permanently failed messages", func(t *testing.T) {
		r := &fakeReader{msgs: []kafka.Message{
			{Offset: 1, Value: []byte(`{"n":1}`)},
			{Offset: 2, Value: []byte(`not json`)},
			{Offset: 3, Value: []byte(`{"n":3}`)},
		}}

		var seen []int
		err := newTestConsumer(r).Consume(context.Background(), func(_ context.Context, payload []byte) error {
			var v struct{ N int }
			if err := json.Unmarshal(payload, &v); err != nil {
				return Permanent(err)
			}
			seen = append(seen, v.N)
			return nil
		})

		assert.ErrorIs(t, err, io.EOF)
		assert.Equal(t, []int{1, 3}, seen)
		assert.Equal(t, []int64{1, 2, 3}, r.committed)
	})

	t.Run("stops on retryable failure without committing", func(t *testing.T) {
		r := &fakeReader{msgs: []kafka.Message{{Offset: 7}, {Offset: 8}}}
		boom := errors.New("mail service down")

		err := newTestConsumer(r).Consume(context.Background(), func(context.Context, []byte) error {
			return boom
		})

		assert.ErrorIs(t, err, boom)
		assert.Empty(t, r.committed)
	})
}
