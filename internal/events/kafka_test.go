package events

import (
	"context"
	"encoding/json"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/twmb/franz-go/pkg/kgo"

	"daybook/internal/models"
)

// mockClient mocks kgo.Client for testing
type mockClient struct {
	produceErr   error
	lastRecord   *kgo.Record
	produceCalls int
}

func (m *mockClient) ProduceSync(_ context.Context, rs ...*kgo.Record) kgo.ProduceResults {
	m.produceCalls++
	if len(rs) > 0 {
		m.lastRecord = rs[0]
	}
	if m.produceErr != nil {
		return kgo.ProduceResults{{Err: m.produceErr}}
	}
	return kgo.ProduceResults{}
}

func TestPublish_Success(t *testing.T) {
	mock := &mockClient{}
	pub := &KafkaPublisher{client: mock, topic: "daybook.tasks"}

	ev := Event{
		Type: TaskUpdated,
		Task: models.Task{ID: "t1", OwnerID: "owner-1", Title: "Buy milk", DueDate: "2025-01-10"},
		At:   time.Date(2025, 1, 10, 8, 0, 0, 0, time.UTC),
	}
	require.NoError(t, pub.Publish(context.Background(), ev))
	assert.Equal(t, 1, mock.produceCalls)

	rec := mock.lastRecord
	assert.Equal(t, "daybook.tasks", rec.Topic)
	assert.Equal(t, "owner-1", string(rec.Key))
	require.Len(t, rec.Headers, 1)
	assert.Equal(t, headerType, rec.Headers[0].Key)
	assert.Equal(t, "task.updated", string(rec.Headers[0].Value))

	var decoded Event
	require.NoError(t, json.Unmarshal(rec.Value, &decoded))
	assert.Equal(t, TaskUpdated, decoded.Type)
	assert.Equal(t, "t1", decoded.Task.ID)
	assert.Equal(t, "owner-1", decoded.Task.OwnerID)
}

func TestPublish_Error(t *testing.T) {
	expectedErr := errors.New("kafka connection failed")
	mock := &mockClient{produceErr: expectedErr}
	pub := &KafkaPublisher{client: mock, topic: "daybook.tasks"}

	err := pub.Publish(context.Background(), Event{Type: TaskDeleted})
	require.Error(t, err)
	assert.ErrorIs(t, err, expectedErr)
	assert.Contains(t, err.Error(), "task.deleted")
}

func TestNoop(t *testing.T) {
	var p Publisher = Noop{}
	assert.NoError(t, p.Publish(context.Background(), Event{Type: TaskCreated}))
	p.Close()
}
