package mocks

import (
	"context"
	"sort"
	"strings"
	"sync"
	"time"

	"connect-service/internal/models"
	"connect-service/internal/repositories"
)

// MemoryStore is an in-memory implementation of the user, conversation and
// message repositories for behavioural tests.
type MemoryStore struct {
	mu            sync.Mutex
	clock         time.Time
	users         map[int]models.User
	conversations map[int]models.Conversation
	messages      map[int]models.Message
	nextID        int

	// FailSetLastMessage makes SetLastMessage return an error.
	FailSetLastMessage bool
}

// NewMemoryStore builds an empty store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		clock:         time.Date(2024, 1, 1, 12, 0, 0, 0, time.UTC),
		users:         map[int]models.User{},
		conversations: map[int]models.Conversation{},
		messages:      map[int]models.Message{},
	}
}

// tick returns a strictly increasing timestamp.
func (s *MemoryStore) tick() time.Time {
	s.clock = s.clock.Add(time.Second)
	return s.clock
}

func (s *MemoryStore) id() int {
	s.nextID++
	return s.nextID
}

// AddUser inserts a user and returns it with id and timestamps set.
func (s *MemoryStore) AddUser(username string) models.User {
	s.mu.Lock()
	defer s.mu.Unlock()
	now := s.tick()
	u := models.User{ID: s.id(), Username: username, Email: username + "@example.com", CreatedAt: now, UpdatedAt: now}
	s.users[u.ID] = u
	return u
}

// Conversation returns the stored conversation.
func (s *MemoryStore) Conversation(id int) models.Conversation {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.conversations[id]
}

// Message returns the stored message.
func (s *MemoryStore) Message(id int) models.Message {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.messages[id]
}

// MessageCount returns the number of stored messages.
func (s *MemoryStore) MessageCount() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.messages)
}

// ConversationCount returns the number of stored conversations.
func (s *MemoryStore) ConversationCount() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.conversations)
}

// Users returns a UserRepository view of the store.
func (s *MemoryStore) Users() repositories.UserRepository { return memUsers{s} }

// Conversations returns a ConversationRepository view of the store.
func (s *MemoryStore) Conversations() repositories.ConversationRepository { return memConversations{s} }

// Messages returns a MessageRepository view of the store.
func (s *MemoryStore) Messages() repositories.MessageRepository { return memMessages{s} }

type memUsers struct{ s *MemoryStore }

func (r memUsers) Create(ctx context.Context, user models.User) (models.User, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	for _, u := range r.s.users {
		if u.Email == user.Email {
			return models.User{}, repositories.ErrDuplicate
		}
		if strings.EqualFold(u.Username, user.Username) {
			return models.User{}, repositories.ErrUsernameTaken
		}
	}
	now := r.s.tick()
	user.ID = r.s.id()
	user.ShowLastSeen, user.ShowPhoto = true, true
	user.CreatedAt, user.UpdatedAt = now, now
	r.s.users[user.ID] = user
	return user, nil
}

func (r memUsers) GetByID(ctx context.Context, userID int) (models.User, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	u, ok := r.s.users[userID]
	if !ok {
		return models.User{}, repositories.ErrUserNotFound
	}
	return u, nil
}

func (r memUsers) find(match func(models.User) bool) (models.User, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	for _, u := range r.s.users {
		if match(u) {
			return u, nil
		}
	}
	return models.User{}, repositories.ErrUserNotFound
}

func (r memUsers) GetByEmail(ctx context.Context, email string) (models.User, error) {
	return r.find(func(u models.User) bool { return u.Email == email })
}

func (r memUsers) GetByUsername(ctx context.Context, username string) (models.User, error) {
	return r.find(func(u models.User) bool { return strings.EqualFold(u.Username, username) })
}

func (r memUsers) UsernameExists(ctx context.Context, username string) (bool, error) {
	_, err := r.find(func(u models.User) bool { return strings.EqualFold(u.Username, username) })
	return err == nil, nil
}

func (r memUsers) UpdateProfile(ctx context.Context, userID int, update models.ProfileUpdate) (models.User, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	u, ok := r.s.users[userID]
	if !ok {
		return models.User{}, repositories.ErrUserNotFound
	}
	if update.Username != nil {
		for id, other := range r.s.users {
			if id != userID && strings.EqualFold(other.Username, *update.Username) {
				return models.User{}, repositories.ErrUsernameTaken
			}
		}
		u.Username = *update.Username
	}
	if update.Bio != nil {
		u.Bio = *update.Bio
	}
	if update.Status != nil {
		u.Status = *update.Status
	}
	if update.Phone != nil {
		u.Phone = *update.Phone
	}
	if update.ShowLastSeen != nil {
		u.ShowLastSeen = *update.ShowLastSeen
	}
	if update.ShowPhoto != nil {
		u.ShowPhoto = *update.ShowPhoto
	}
	u.UpdatedAt = r.s.tick()
	r.s.users[userID] = u
	return u, nil
}

func (r memUsers) mutate(userID int, fn func(*models.User)) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	u, ok := r.s.users[userID]
	if !ok {
		return repositories.ErrUserNotFound
	}
	fn(&u)
	u.UpdatedAt = r.s.tick()
	r.s.users[userID] = u
	return nil
}

func (r memUsers) UpdatePassword(ctx context.Context, userID int, passwordHash string) error {
	return r.mutate(userID, func(u *models.User) { u.PasswordHash = passwordHash })
}

func (r memUsers) UpdatePhoto(ctx context.Context, userID int, photoURL string) error {
	return r.mutate(userID, func(u *models.User) { u.PhotoURL = photoURL })
}

func (r memUsers) Delete(ctx context.Context, userID int) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	if _, ok := r.s.users[userID]; !ok {
		return repositories.ErrUserNotFound
	}
	delete(r.s.users, userID)
	return nil
}

func (r memUsers) Block(ctx context.Context, userID int, targetID int) error {
	err := r.mutate(userID, func(u *models.User) {
		if !u.BlockedUsers.Contains(targetID) {
			u.BlockedUsers = append(u.BlockedUsers, targetID)
		}
	})
	if err == repositories.ErrUserNotFound {
		return nil
	}
	return err
}

func (r memUsers) Unblock(ctx context.Context, userID int, targetID int) error {
	err := r.mutate(userID, func(u *models.User) {
		kept := models.IDList{}
		for _, id := range u.BlockedUsers {
			if id != targetID {
				kept = append(kept, id)
			}
		}
		u.BlockedUsers = kept
	})
	if err == repositories.ErrUserNotFound {
		return nil
	}
	return err
}

func (r memUsers) Summaries(ctx context.Context, ids []int) (map[int]models.UserSummary, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	out := map[int]models.UserSummary{}
	for _, id := range ids {
		if u, ok := r.s.users[id]; ok {
			out[id] = u.Summary()
		}
	}
	return out, nil
}

type memConversations struct{ s *MemoryStore }

func (r memConversations) FindDirect(ctx context.Context, userA int, userB int) (models.Conversation, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	return r.findDirectLocked(userA, userB)
}

func (r memConversations) findDirectLocked(userA, userB int) (models.Conversation, error) {
	key := repositories.DirectKey(userA, userB)
	for _, c := range r.s.conversations {
		if !c.IsGroup && c.DirectKey.String == key {
			return c, nil
		}
	}
	return models.Conversation{}, repositories.ErrConversationNotFound
}

func (r memConversations) CreateDirect(ctx context.Context, userA int, userB int) (models.Conversation, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	if c, err := r.findDirectLocked(userA, userB); err == nil {
		return c, nil
	}
	now := r.s.tick()
	c := models.Conversation{
		ID:           r.s.id(),
		Participants: models.IDList{userA, userB},
		CreatedAt:    now,
		UpdatedAt:    now,
	}
	c.DirectKey.String, c.DirectKey.Valid = repositories.DirectKey(userA, userB), true
	r.s.conversations[c.ID] = c
	return c, nil
}

func (r memConversations) CreateGroup(ctx context.Context, name string, participants []int) (models.Conversation, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	now := r.s.tick()
	c := models.Conversation{
		ID:           r.s.id(),
		Participants: append(models.IDList{}, participants...),
		IsGroup:      true,
		GroupName:    name,
		CreatedAt:    now,
		UpdatedAt:    now,
	}
	r.s.conversations[c.ID] = c
	return c, nil
}

func (r memConversations) GetConversation(ctx context.Context, conversationID int) (models.Conversation, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	c, ok := r.s.conversations[conversationID]
	if !ok {
		return models.Conversation{}, repositories.ErrConversationNotFound
	}
	return c, nil
}

func (r memConversations) ListForUser(ctx context.Context, userID int) ([]models.Conversation, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	var out []models.Conversation
	for _, c := range r.s.conversations {
		if c.HasParticipant(userID) {
			out = append(out, c)
		}
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].UpdatedAt.Equal(out[j].UpdatedAt) {
			return out[i].ID > out[j].ID
		}
		return out[i].UpdatedAt.After(out[j].UpdatedAt)
	})
	return out, nil
}

func (r memConversations) SetLastMessage(ctx context.Context, conversationID int, messageID int) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	if r.s.FailSetLastMessage {
		return context.DeadlineExceeded
	}
	c, ok := r.s.conversations[conversationID]
	if !ok {
		return repositories.ErrConversationNotFound
	}
	id := messageID
	c.LastMessageID = &id
	c.UpdatedAt = r.s.tick()
	r.s.conversations[conversationID] = c
	return nil
}

type memMessages struct{ s *MemoryStore }

func (r memMessages) CreateMessage(ctx context.Context, msg models.NewMessage) (models.Message, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	now := r.s.tick()
	m := models.Message{
		ID:             r.s.id(),
		ConversationID: msg.ConversationID,
		SenderID:       msg.SenderID,
		Type:           msg.Type,
		Text:           msg.Text,
		MediaURL:       msg.MediaURL,
		FileName:       msg.FileName,
		FileSize:       msg.FileSize,
		MimeType:       msg.MimeType,
		Status:         models.MessageStatusSent,
		ReplyToID:      msg.ReplyToID,
		DeletedFor:     models.IDList{},
		CreatedAt:      now,
		UpdatedAt:      now,
	}
	r.s.messages[m.ID] = m
	return m, nil
}

func (r memMessages) GetMessage(ctx context.Context, messageID int) (models.Message, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	m, ok := r.s.messages[messageID]
	if !ok {
		return models.Message{}, repositories.ErrMessageNotFound
	}
	return m, nil
}

func (r memMessages) summaryLocked(id int) *models.UserSummary {
	if u, ok := r.s.users[id]; ok {
		s := u.Summary()
		return &s
	}
	return &models.UserSummary{ID: id}
}

func (r memMessages) viewLocked(m models.Message) models.MessageView {
	v := models.MessageView{Message: m, Sender: r.summaryLocked(m.SenderID)}
	if m.ReplyToID != nil {
		if target, ok := r.s.messages[*m.ReplyToID]; ok {
			v.ReplyTo = &models.ReplyPreview{
				ID:                 target.ID,
				SenderID:           target.SenderID,
				Sender:             r.summaryLocked(target.SenderID),
				Type:               target.Type,
				Text:               target.Text,
				MediaURL:           target.MediaURL,
				FileName:           target.FileName,
				DeletedForEveryone: target.DeletedForEveryone,
			}
		}
	}
	return v
}

func (r memMessages) GetView(ctx context.Context, messageID int) (models.MessageView, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	m, ok := r.s.messages[messageID]
	if !ok {
		return models.MessageView{}, repositories.ErrMessageNotFound
	}
	return r.viewLocked(m), nil
}

func (r memMessages) ViewsByIDs(ctx context.Context, messageIDs []int) (map[int]models.MessageView, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	out := map[int]models.MessageView{}
	for _, id := range messageIDs {
		if m, ok := r.s.messages[id]; ok {
			out[id] = r.viewLocked(m)
		}
	}
	return out, nil
}

func (r memMessages) ListForViewer(ctx context.Context, q models.ListQuery) ([]models.MessageView, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	var matched []models.Message
	for _, m := range r.s.messages {
		if m.ConversationID != q.ConversationID || m.HiddenFor(q.ViewerID) {
			continue
		}
		if q.Before != nil && !m.CreatedAt.Before(*q.Before) {
			continue
		}
		matched = append(matched, m)
	}
	sort.Slice(matched, func(i, j int) bool {
		if matched[i].CreatedAt.Equal(matched[j].CreatedAt) {
			return matched[i].ID > matched[j].ID
		}
		return matched[i].CreatedAt.After(matched[j].CreatedAt)
	})
	if q.Limit > 0 && len(matched) > q.Limit {
		matched = matched[:q.Limit]
	}
	out := make([]models.MessageView, 0, len(matched))
	for _, m := range matched {
		out = append(out, r.viewLocked(m))
	}
	return out, nil
}

func (r memMessages) HideForUser(ctx context.Context, messageID int, userID int) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	m, ok := r.s.messages[messageID]
	if !ok {
		return repositories.ErrMessageNotFound
	}
	if !m.DeletedFor.Contains(userID) {
		m.DeletedFor = append(append(models.IDList{}, m.DeletedFor...), userID)
	}
	r.s.messages[messageID] = m
	return nil
}

func (r memMessages) DeleteForEveryone(ctx context.Context, messageID int, senderID int) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	m, ok := r.s.messages[messageID]
	if !ok || m.SenderID != senderID {
		return repositories.ErrMessageNotFound
	}
	m.DeletedForEveryone = true
	m.Text = ""
	m.MediaURL, m.FileName, m.FileSize, m.MimeType = nil, nil, nil, nil
	m.UpdatedAt = r.s.tick()
	r.s.messages[messageID] = m
	return nil
}
