package mocks

import (
	"context"

	"github.com/stretchr/testify/mock"

	"connect-service/internal/models"
	"connect-service/internal/repositories"
)

type UserRepositoryMock struct {
	mock.Mock
}

func (m *UserRepositoryMock) Create(ctx context.Context, user models.User) (models.User, error) {
	args := m.Called(ctx, user)
	return userArg(args, 0), args.Error(1)
}

func (m *UserRepositoryMock) GetByID(ctx context.Context, userID int) (models.User, error) {
	args := m.Called(ctx, userID)
	return userArg(args, 0), args.Error(1)
}

func (m *UserRepositoryMock) GetByEmail(ctx context.Context, email string) (models.User, error) {
	args := m.Called(ctx, email)
	return userArg(args, 0), args.Error(1)
}

func (m *UserRepositoryMock) GetByUsername(ctx context.Context, username string) (models.User, error) {
	args := m.Called(ctx, username)
	return userArg(args, 0), args.Error(1)
}

func (m *UserRepositoryMock) UsernameExists(ctx context.Context, username string) (bool, error) {
	args := m.Called(ctx, username)
	return args.Bool(0), args.Error(1)
}

func (m *UserRepositoryMock) UpdateProfile(ctx context.Context, userID int, update models.ProfileUpdate) (models.User, error) {
	args := m.Called(ctx, userID, update)
	return userArg(args, 0), args.Error(1)
}

func (m *UserRepositoryMock) UpdatePassword(ctx context.Context, userID int, passwordHash string) error {
	args := m.Called(ctx, userID, passwordHash)
	return args.Error(0)
}

func (m *UserRepositoryMock) UpdatePhoto(ctx context.Context, userID int, photoURL string) error {
	args := m.Called(ctx, userID, photoURL)
	return args.Error(0)
}

func (m *UserRepositoryMock) Delete(ctx context.Context, userID int) error {
	args := m.Called(ctx, userID)
	return args.Error(0)
}

func (m *UserRepositoryMock) Block(ctx context.Context, userID int, targetID int) error {
	args := m.Called(ctx, userID, targetID)
	return args.Error(0)
}

func (m *UserRepositoryMock) Unblock(ctx context.Context, userID int, targetID int) error {
	args := m.Called(ctx, userID, targetID)
	return args.Error(0)
}

func (m *UserRepositoryMock) Summaries(ctx context.Context, ids []int) (map[int]models.UserSummary, error) {
	args := m.Called(ctx, ids)
	var out map[int]models.UserSummary
	if val := args.Get(0); val != nil {
		out = val.(map[int]models.UserSummary)
	}
	return out, args.Error(1)
}

func userArg(args mock.Arguments, i int) models.User {
	var user models.User
	if val := args.Get(i); val != nil {
		user = val.(models.User)
	}
	return user
}

type ConversationRepositoryMock struct {
	mock.Mock
}

func (m *ConversationRepositoryMock) FindDirect(ctx context.Context, userA int, userB int) (models.Conversation, error) {
	args := m.Called(ctx, userA, userB)
	return conversationArg(args, 0), args.Error(1)
}

func (m *ConversationRepositoryMock) CreateDirect(ctx context.Context, userA int, userB int) (models.Conversation, error) {
	args := m.Called(ctx, userA, userB)
	return conversationArg(args, 0), args.Error(1)
}

func (m *ConversationRepositoryMock) CreateGroup(ctx context.Context, name string, participants []int) (models.Conversation, error) {
	args := m.Called(ctx, name, participants)
	return conversationArg(args, 0), args.Error(1)
}

func (m *ConversationRepositoryMock) GetConversation(ctx context.Context, conversationID int) (models.Conversation, error) {
	args := m.Called(ctx, conversationID)
	return conversationArg(args, 0), args.Error(1)
}

func (m *ConversationRepositoryMock) ListForUser(ctx context.Context, userID int) ([]models.Conversation, error) {
	args := m.Called(ctx, userID)
	var list []models.Conversation
	if val := args.Get(0); val != nil {
		list = val.([]models.Conversation)
	}
	return list, args.Error(1)
}

func (m *ConversationRepositoryMock) SetLastMessage(ctx context.Context, conversationID int, messageID int) error {
	args := m.Called(ctx, conversationID, messageID)
	return args.Error(0)
}

func conversationArg(args mock.Arguments, i int) models.Conversation {
	var conv models.Conversation
	if val := args.Get(i); val != nil {
		conv = val.(models.Conversation)
	}
	return conv
}

type MessageRepositoryMock struct {
	mock.Mock
}

func (m *MessageRepositoryMock) CreateMessage(ctx context.Context, msg models.NewMessage) (models.Message, error) {
	args := m.Called(ctx, msg)
	var out models.Message
	if val := args.Get(0); val != nil {
		out = val.(models.Message)
	}
	return out, args.Error(1)
}

func (m *MessageRepositoryMock) GetMessage(ctx context.Context, messageID int) (models.Message, error) {
	args := m.Called(ctx, messageID)
	var out models.Message
	if val := args.Get(0); val != nil {
		out = val.(models.Message)
	}
	return out, args.Error(1)
}

func (m *MessageRepositoryMock) GetView(ctx context.Context, messageID int) (models.MessageView, error) {
	args := m.Called(ctx, messageID)
	var out models.MessageView
	if val := args.Get(0); val != nil {
		out = val.(models.MessageView)
	}
	return out, args.Error(1)
}

func (m *MessageRepositoryMock) ViewsByIDs(ctx context.Context, messageIDs []int) (map[int]models.MessageView, error) {
	args := m.Called(ctx, messageIDs)
	var out map[int]models.MessageView
	if val := args.Get(0); val != nil {
		out = val.(map[int]models.MessageView)
	}
	return out, args.Error(1)
}

func (m *MessageRepositoryMock) ListForViewer(ctx context.Context, q models.ListQuery) ([]models.MessageView, error) {
	args := m.Called(ctx, q)
	var out []models.MessageView
	if val := args.Get(0); val != nil {
		out = val.([]models.MessageView)
	}
	return out, args.Error(1)
}

func (m *MessageRepositoryMock) HideForUser(ctx context.Context, messageID int, userID int) error {
	args := m.Called(ctx, messageID, userID)
	return args.Error(0)
}

func (m *MessageRepositoryMock) DeleteForEveryone(ctx context.Context, messageID int, senderID int) error {
	args := m.Called(ctx, messageID, senderID)
	return args.Error(0)
}

var (
	_ repositories.UserRepository         = (*UserRepositoryMock)(nil)
	_ repositories.ConversationRepository = (*ConversationRepositoryMock)(nil)
	_ repositories.MessageRepository      = (*MessageRepositoryMock)(nil)
)
