package messaging

import (
	"context"
	"testing"

	"github.com/goccy/go-json"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

type mockPublisher struct {
	mock.Mock
}

func (m *mockPublisher) Publish(ctx context.Context, subject string, data []byte) error {
	return m.Called(ctx, subject, data).Error(0)
}

func (m *mockPublisher) PublishMsg(ctx context.Context, msg *Message) error {
	return m.Called(ctx, msg).Error(0)
}

func (m *mockPublisher) Close() error {
	return m.Called().Error(0)
}

func TestSubject(t *testing.T) {
	assert.Equal(t, "breachsim.runs.completed", Subject("", ResourceRuns, ActionCompleted))
	assert.Equal(t, "lab.rules.matched", Subject("lab", ResourceRules, ActionMatched))
}

func TestPublishJSON(t *testing.T) {
	p := &mockPublisher{}
	ctx := context.Background()

	p.On("Publish", ctx, "breachsim.runs.completed", mock.MatchedBy(func(data []byte) bool {
		var body map[string]string
		if err := json.Unmarshal(data, &body); err != nil {
			return false
		}
		return body["outcome"] == "Detected"
	})).Return(nil)

	err := PublishJSON(ctx, p, "breachsim.runs.completed", map[string]string{"outcome": "Detected"})
	require.NoError(t, err)
	p.AssertExpectations(t)
}

func TestPublishJSON_MarshalError(t *testing.T) {
	p := &mockPublisher{}
	err := PublishJSON(context.Background(), p, "x", make(chan int))
	assert.Error(t, err)
	p.AssertNotCalled(t, "Publish", mock.Anything, mock.Anything, mock.Anything)
}

func TestNopPublisher(t *testing.T) {
	var p Publisher = NopPublisher{}
	assert.NoError(t, p.Publish(context.Background(), "s", nil))
	assert.NoError(t, p.PublishMsg(context.Background(), &Message{Subject: "s"}))
	assert.NoError(t, p.Close())
}
