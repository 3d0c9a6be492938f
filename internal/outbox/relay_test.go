package outbox_test

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"testing"
	"time"

	"github.com/SscSPs/procureflow/internal/core/domain"
	"github.com/SscSPs/procureflow/internal/outbox"
	"github.com/SscSPs/procureflow/internal/repositories/memory"
	"github.com/SscSPs/procureflow/internal/utils"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	metricnoop "go.opentelemetry.io/otel/metric/noop"
)

type MockDeliverer struct {
	mock.Mock
}

func (m *MockDeliverer) Deliver(ctx context.Context, msg domain.OutboxMessage) error {
	args := m.Called(ctx, msg)
	return args.Error(0)
}

func (m *MockDeliverer) Close() error {
	return m.Called().Error(0)
}

var t0 = time.Date(2025, 3, 1, 9, 0, 0, 0, time.UTC)

func seedOutbox(t *testing.T, store *memory.Store, ids ...string) {
	t.Helper()
	msgs := make([]domain.OutboxMessage, 0, len(ids))
	for i, id := range ids {
		e := domain.PurchaseRequestCreated{
			EventMeta:   domain.EventMeta{EntityID: "pr-" + id, At: t0.Add(time.Duration(i) * time.Second)},
			TenantID:    "t-1",
			RequesterID: "u-req",
			Title:       "Laptops",
			TotalAmount: decimal.NewFromInt(1200),
		}
		msg, err := domain.NewOutboxMessage(id, e)
		require.NoError(t, err)
		msgs = append(msgs, msg)
	}
	require.NoError(t, store.AppendOutboxMessages(context.Background(), msgs))
}

func newRelay(t *testing.T, store *memory.Store, d outbox.Deliverer, cfg outbox.Config) *outbox.Relay {
	t.Helper()
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	r, err := outbox.NewRelay(store.OutboxStoreFactory(), d, utils.NewFixedClock(t0.Add(time.Hour)), cfg, logger, metricnoop.NewMeterProvider())
	require.NoError(t, err)
	return r
}

func messageID(id string) any {
	return mock.MatchedBy(func(m domain.OutboxMessage) bool { return m.ID == id })
}

func TestRelay_DeliversInOccurrenceOrderAndMarksProcessed(t *testing.T) {
	ctx := context.Background()
	store := memory.NewStore()
	seedOutbox(t, store, "m-1", "m-2", "m-3")

	d := new(MockDeliverer)
	var order []string
	d.On("Deliver", mock.Anything, mock.Anything).Run(func(args mock.Arguments) {
		order = append(order, args.Get(1).(domain.OutboxMessage).ID)
	}).Return(nil)

	stats, err := newRelay(t, store, d, outbox.Config{BatchSize: 10}).RunOnce(ctx)
	require.NoError(t, err)

	assert.Equal(t, outbox.Stats{Selected: 3, Delivered: 3}, stats)
	assert.Equal(t, []string{"m-1", "m-2", "m-3"}, order)

	all, err := store.ListOutboxMessages(ctx, domain.EventPurchaseRequestCreated)
	require.NoError(t, err)
	for _, m := range all {
		require.NotNil(t, m.ProcessedAtUTC)
		assert.Equal(t, t0.Add(time.Hour), *m.ProcessedAtUTC)
	}

	// Processed rows are not selected again.
	stats, err = newRelay(t, store, d, outbox.Config{BatchSize: 10}).RunOnce(ctx)
	require.NoError(t, err)
	assert.Equal(t, 0, stats.Selected)
	d.AssertNumberOfCalls(t, "Deliver", 3)
}

func TestRelay_BatchSizeCapsSelection(t *testing.T) {
	store := memory.NewStore()
	seedOutbox(t, store, "m-1", "m-2", "m-3")

	d := new(MockDeliverer)
	d.On("Deliver", mock.Anything, mock.Anything).Return(nil)

	stats, err := newRelay(t, store, d, outbox.Config{BatchSize: 2}).RunOnce(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 2, stats.Selected)
	d.AssertNotCalled(t, "Deliver", mock.Anything, messageID("m-3"))
}

func TestRelay_FailureIsRecordedAndRetriedUntilMaxRetries(t *testing.T) {
	ctx := context.Background()
	store := memory.NewStore()
	seedOutbox(t, store, "m-1", "m-2")

	d := new(MockDeliverer)
	d.On("Deliver", mock.Anything, messageID("m-1")).Return(errors.New("broker unavailable"))
	d.On("Deliver", mock.Anything, messageID("m-2")).Return(nil)
	relay := newRelay(t, store, d, outbox.Config{BatchSize: 10, MaxRetries: 2})

	stats, err := relay.RunOnce(ctx)
	require.NoError(t, err)
	assert.Equal(t, outbox.Stats{Selected: 2, Delivered: 1, Failed: 1}, stats)

	stats, err = relay.RunOnce(ctx)
	require.NoError(t, err)
	assert.Equal(t, outbox.Stats{Selected: 1, Failed: 1}, stats)

	// retryCount reached MaxRetries: the row stays but is no longer selected.
	stats, err = relay.RunOnce(ctx)
	require.NoError(t, err)
	assert.Equal(t, 0, stats.Selected)

	all, err := store.ListOutboxMessages(ctx, domain.EventPurchaseRequestCreated)
	require.NoError(t, err)
	require.Len(t, all, 2)
	for _, m := range all {
		if m.ID != "m-1" {
			continue
		}
		assert.Nil(t, m.ProcessedAtUTC)
		assert.Equal(t, 2, m.RetryCount)
		require.NotNil(t, m.Error)
		assert.Equal(t, "broker unavailable", *m.Error)
	}
	d.AssertNumberOfCalls(t, "Deliver", 3)
}

func TestRelay_RunStopsOnCancel(t *testing.T) {
	store := memory.NewStore()
	seedOutbox(t, store, "m-1")

	d := new(MockDeliverer)
	delivered := make(chan struct{}, 1)
	d.On("Deliver", mock.Anything, mock.Anything).Run(func(mock.Arguments) {
		delivered <- struct{}{}
	}).Return(nil)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() {
		done <- newRelay(t, store, d, outbox.Config{PollInterval: time.Hour, BatchSize: 10}).Run(ctx)
	}()

	select {
	case <-delivered:
	case <-time.After(5 * time.Second):
		t.Fatal("first cycle did not run")
	}
	cancel()
	select {
	case err := <-done:
		assert.NoError(t, err)
	case <-time.After(5 * time.Second):
		t.Fatal("relay did not stop")
	}
}

func TestLogDeliverer_RejectsUnknownEventType(t *testing.T) {
	d := outbox.NewLogDeliverer(slog.New(slog.NewTextHandler(io.Discard, nil)))
	err := d.Deliver(context.Background(), domain.OutboxMessage{ID: "m-x", Type: "NoSuchEvent", Content: []byte(`{}`)})
	assert.Error(t, err)

	seed := memory.NewStore()
	seedOutbox(t, seed, "m-1")
	msgs, err := seed.FindUnprocessedOutboxMessages(context.Background(), 1, 0)
	require.NoError(t, err)
	assert.NoError(t, d.Deliver(context.Background(), msgs[0]))
}

func TestDeliverer_Naming(t *testing.T) {
	k := outbox.NewKafkaDeliverer([]string{"localhost:9092"}, "procureflow.")
	assert.Equal(t, "procureflow.PurchaseRequestApprovedEvent", k.Topic(domain.EventPurchaseRequestApproved))
	assert.NoError(t, k.Close())
}
