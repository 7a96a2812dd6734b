package kafka

import (
	"context"
	"errors"
	"testing"

	"github.com/segmentio/kafka-go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type recordingWriter struct {
	msgs []kafka.Message
	err  error
}

func (w *recordingWriter) WriteMessages(_ context.Context, msgs ...kafka.Message) error {
	if w.err != nil {
		return w.err
	}
	w.msgs = append(w.msgs, msgs...)
	return nil
}

func (w *recordingWriter) Close() error { return nil }

func TestProducerPublishJSON(t *testing.T) {
	w := &recordingWriter{}
	p := NewProducerWithWriter(w, "fincast.forecasts", "snappy")

	require.NoError(t, p.Publish(context.Background(), "20240105", map[string]float64{"AAPL": 1.5}))
	require.Len(t, w.msgs, 1)
	assert.Equal(t, "20240105", string(w.msgs[0].Key))
	assert.JSONEq(t, `{"AAPL":1.5}`, string(w.msgs[0].Value))
}

func TestProducerPublishError(t *testing.T) {
	w := &recordingWriter{err: errors.New("broker down")}
	p := NewProducerWithWriter(w, "t", "gzip")

	err := p.Publish(context.Background(), "k", "v")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "broker down")
}

func TestNewProducerRequiresBrokersAndTopic(t *testing.T) {
	_, err := NewProducer(WithTopic("t"))
	assert.Error(t, err)
	_, err = NewProducer(WithBrokers([]string{"localhost:9092"}))
	assert.Error(t, err)
}

func TestProducerHeaders(t *testing.T) {
	w := &recordingWriter{}
	p := NewProducerWithWriter(w, "fincast.forecasts", "snappy")
	p.headers = []kafka.Header{{Key: "source", Value: []byte("fincast")}}

	require.NoError(t, p.Publish(context.Background(), "20240105", map[string]float64{"AAPL": 1.5}))
	require.NoError(t, p.Publish(context.Background(), "raw", []byte("x")))

	require.Len(t, w.msgs, 2)
	assert.Len(t, w.msgs[0].Headers, 2)
	assert.Equal(t, "content-type", w.msgs[0].Headers[1].Key)
	assert.Len(t, w.msgs[1].Headers, 1, "raw payloads carry only the static headers")
	assert.Len(t, p.headers, 1)
}

func TestProducerConfigValidate(t *testing.T) {
	_, err := NewProducer(WithBrokers([]string{"localhost:9092"}), WithTopic("t"), WithCompression("brotli"))
	assert.ErrorContains(t, err, "unknown compression")

	_, err = NewProducer(WithBrokers([]string{"localhost:9092"}), WithTopic("t"), WithRequiredAcks(3))
	assert.ErrorContains(t, err, "required acks")
}
