package notify

import (
	"context"
	"encoding/json"
	"errors"
	"testing"
	"time"

	"github.com/rabbitmq/amqp091-go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/theirongolddev/spendburn/internal/config"
	"github.com/theirongolddev/spendburn/internal/model"
)

type published struct {
	exchange string
	key      string
	msg      amqp091.Publishing
}

type fakeChannel struct {
	declared   []string
	kind       string
	durable    bool
	declareErr error
	publishErr error
	sent       []published
	closed     bool
}

func (f *fakeChannel) ExchangeDeclare(name, kind string, durable, _, _, _ bool, _ amqp091.Table) error {
	f.declared = append(f.declared, name)
	f.kind = kind
	f.durable = durable
	return f.declareErr
}

func (f *fakeChannel) PublishWithContext(_ context.Context, exchange, key string, _, _ bool, msg amqp091.Publishing) error {
	if f.publishErr != nil {
		return f.publishErr
	}
	f.sent = append(f.sent, published{exchange: exchange, key: key, msg: msg})
	return nil
}

func (f *fakeChannel) Close() error {
	f.closed = true
	return nil
}

func event() AlertEvent {
	v := model.AlertVerdict{Rule: "large_transaction", Triggered: true, Message: "big", Severity: model.SeverityWarn}
	return NewAlertEvent(v, model.MonthKey{Year: 2024, Month: time.June}, time.Date(2024, 6, 2, 10, 0, 0, 0, time.UTC))
}

func TestNewWithoutURLIsNop(t *testing.T) {
	p, err := New(config.NotifyConfig{}, nil)
	require.NoError(t, err)
	assert.IsType(t, Nop{}, p)
	assert.NoError(t, p.Publish(context.Background(), event()))
	assert.NoError(t, p.Close())
}

func TestPublisherDeclaresDurableTopic(t *testing.T) {
	ch := &fakeChannel{}
	_, err := newPublisher(ch, "spendburn", "alerts", nil)
	require.NoError(t, err)
	assert.Equal(t, []string{"spendburn"}, ch.declared)
	assert.Equal(t, "topic", ch.kind)
	assert.True(t, ch.durable)

	_, err = newPublisher(&fakeChannel{declareErr: errors.New("denied")}, "x", "y", nil)
	assert.ErrorContains(t, err, "declare exchange")
}

func TestPublish(t *testing.T) {
	ch := &fakeChannel{}
	p, err := newPublisher(ch, "spendburn", "alerts", nil)
	require.NoError(t, err)

	require.NoError(t, p.Publish(context.Background(), event()))
	require.Len(t, ch.sent, 1)

	sent := ch.sent[0]
	assert.Equal(t, "spendburn", sent.exchange)
	assert.Equal(t, "alerts.large_transaction", sent.key)
	assert.Equal(t, "application/json", sent.msg.ContentType)
	assert.Equal(t, amqp091.Persistent, sent.msg.DeliveryMode)

	var got AlertEvent
	require.NoError(t, json.Unmarshal(sent.msg.Body, &got))
	assert.Equal(t, event(), got)

	require.NoError(t, p.Close())
	assert.True(t, ch.closed)
}

func TestPublishError(t *testing.T) {
	p, err := newPublisher(&fakeChannel{publishErr: amqp091.ErrClosed}, "spendburn", "alerts", nil)
	require.NoError(t, err)
	err = p.Publish(context.Background(), event())
	assert.ErrorIs(t, err, amqp091.ErrClosed)
}
