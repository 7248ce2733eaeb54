package mocks

import (
	"context"

	"github.com/stretchr/testify/mock"

	"connect-service/internal/models"
)

type PublisherMock struct {
	mock.Mock
}

func (m *PublisherMock) Publish(ctx context.Context, routingKey string, event any) error {
	args := m.Called(ctx, routingKey, event)
	return args.Error(0)
}

func (m *PublisherMock) PublishJSON(ctx context.Context, routingKey string, event interface{}, headers map[string]string) error {
	args := m.Called(ctx, routingKey, event, headers)
	return args.Error(0)
}

func (m *PublisherMock) Close() error {
	args := m.Called()
	return args.Error(0)
}

// BroadcasterMock records conversation fan-out calls.
type BroadcasterMock struct {
	mock.Mock
}

func (m *BroadcasterMock) BroadcastNewMessage(conversationID int, msg models.MessageView) {
	m.Called(conversationID, msg)
}

func (m *BroadcasterMock) BroadcastDeletion(conversationID int, messageID int) {
	m.Called(conversationID, messageID)
}

// FileStoreMock is a testify mock for storage.FileStore.
type FileStoreMock struct {
	mock.Mock
}

func (m *FileStoreMock) Save(ctx context.Context, kind, name, srcPath, contentType string) (string, error) {
	args := m.Called(ctx, kind, name, srcPath, contentType)
	return args.String(0), args.Error(1)
}

func (m *FileStoreMock) Remove(ctx context.Context, url string) error {
	args := m.Called(ctx, url)
	return args.Error(0)
}
