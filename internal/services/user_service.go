package services

import (
	"context"
	"errors"
	"fmt"
	"net/mail"
	"os"
	"strings"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"

	"connect-service/internal/auth"
	"connect-service/internal/models"
	"connect-service/internal/repositories"
	"connect-service/internal/storage"
)

const (
	minPasswordLength = 6
	photoKind         = "profile_photos"
)

// TokenIssuer signs access tokens.
type TokenIssuer interface {
	Issue(userID int) (string, error)
}

// Session is the result of a successful register or login.
type Session struct {
	User  models.User `json:"user"`
	Token string      `json:"token"`
}

// UserService handles accounts, profiles and block lists.
type UserService struct {
	users  repositories.UserRepository
	tokens TokenIssuer
	files  storage.FileStore
}

// NewUserService builds a UserService.
func NewUserService(users repositories.UserRepository, tokens TokenIssuer, files storage.FileStore) *UserService {
	return &UserService{users: users, tokens: tokens, files: files}
}

// Register creates an account. A missing username is generated.
func (s *UserService) Register(ctx context.Context, username, email, password string) (Session, error) {
	email = normalizeEmail(email)
	if email == "" || password == "" {
		return Session{}, validation("email and password are required")
	}
	if _, err := mail.ParseAddress(email); err != nil {
		return Session{}, validation("email is invalid")
	}
	if len(password) < minPasswordLength {
		return Session{}, validation("password must be at least %d characters", minPasswordLength)
	}

	if _, err := s.users.GetByEmail(ctx, email); err == nil {
		return Session{}, conflict("email already in use")
	} else if !errors.Is(err, repositories.ErrUserNotFound) {
		return Session{}, fmt.Errorf("check email: %w", err)
	}

	username = strings.TrimSpace(username)
	generated := username == ""
	if generated {
		username = generateUsername()
	}
	exists, err := s.users.UsernameExists(ctx, username)
	if err != nil {
		return Session{}, fmt.Errorf("check username: %w", err)
	}
	if exists {
		if !generated {
			return Session{}, conflict("username already in use")
		}
		username = generateUsername()
	}

	hash, err := auth.HashPassword(password)
	if err != nil {
		return Session{}, fmt.Errorf("hash password: %w", err)
	}

	user, err := s.users.Create(ctx, models.User{Username: username, Email: email, PasswordHash: hash})
	if errors.Is(err, repositories.ErrDuplicate) {
		return Session{}, conflict("email already in use")
	}
	if errors.Is(err, repositories.ErrUsernameTaken) {
		return Session{}, conflict("username already in use")
	}
	if err != nil {
		return Session{}, fmt.Errorf("create user: %w", err)
	}
	return s.session(user)
}

// Login authenticates by email or username.
func (s *UserService) Login(ctx context.Context, email, username, password string) (Session, error) {
	email = normalizeEmail(email)
	username = strings.TrimSpace(username)
	if (email == "" && username == "") || password == "" {
		return Session{}, validation("provide email or username, and password")
	}

	var (
		user models.User
		err  error
	)
	if email != "" {
		user, err = s.users.GetByEmail(ctx, email)
	} else {
		user, err = s.users.GetByUsername(ctx, username)
	}
	if errors.Is(err, repositories.ErrUserNotFound) {
		return Session{}, newError(ErrUnauthenticated, "invalid credentials")
	}
	if err != nil {
		return Session{}, fmt.Errorf("load user: %w", err)
	}
	if !auth.CheckPassword(user.PasswordHash, password) {
		return Session{}, newError(ErrUnauthenticated, "invalid credentials")
	}
	return s.session(user)
}

// Get returns the full profile of userID.
func (s *UserService) Get(ctx context.Context, userID int) (models.User, error) {
	user, err := s.users.GetByID(ctx, userID)
	if errors.Is(err, repositories.ErrUserNotFound) {
		return models.User{}, notFound("user")
	}
	if err != nil {
		return models.User{}, fmt.Errorf("load user: %w", err)
	}
	return user, nil
}

// FindByEmail looks up a public profile by email.
func (s *UserService) FindByEmail(ctx context.Context, email string) (models.UserSummary, error) {
	email = normalizeEmail(email)
	if email == "" {
		return models.UserSummary{}, validation("email is required")
	}
	return s.summary(s.users.GetByEmail(ctx, email))
}

// FindByUsername looks up a public profile by username, ignoring case.
func (s *UserService) FindByUsername(ctx context.Context, username string) (models.UserSummary, error) {
	username = strings.TrimSpace(username)
	if username == "" {
		return models.UserSummary{}, validation("username is required")
	}
	return s.summary(s.users.GetByUsername(ctx, username))
}

// UpdateProfile applies the provided profile fields.
func (s *UserService) UpdateProfile(ctx context.Context, userID int, update models.ProfileUpdate) (models.User, error) {
	if update.Username != nil {
		name := strings.TrimSpace(*update.Username)
		if name == "" {
			return models.User{}, validation("username cannot be empty")
		}
		current, err := s.Get(ctx, userID)
		if err != nil {
			return models.User{}, err
		}
		if !strings.EqualFold(name, current.Username) {
			exists, err := s.users.UsernameExists(ctx, name)
			if err != nil {
				return models.User{}, fmt.Errorf("check username: %w", err)
			}
			if exists {
				return models.User{}, conflict("username already in use")
			}
		}
		update.Username = &name
	}

	user, err := s.users.UpdateProfile(ctx, userID, update)
	if errors.Is(err, repositories.ErrUserNotFound) {
		return models.User{}, notFound("user")
	}
	if errors.Is(err, repositories.ErrUsernameTaken) {
		return models.User{}, conflict("username already in use")
	}
	if err != nil {
		return models.User{}, fmt.Errorf("update profile: %w", err)
	}
	return user, nil
}

// ChangePassword replaces the password after verifying the current one.
func (s *UserService) ChangePassword(ctx context.Context, userID int, current, next string) error {
	if current == "" || next == "" {
		return validation("currentPassword and newPassword are required")
	}
	if len(next) < minPasswordLength {
		return validation("password must be at least %d characters", minPasswordLength)
	}

	user, err := s.Get(ctx, userID)
	if err != nil {
		return err
	}
	if !auth.CheckPassword(user.PasswordHash, current) {
		return validation("current password is incorrect")
	}

	hash, err := auth.HashPassword(next)
	if err != nil {
		return fmt.Errorf("hash password: %w", err)
	}
	if err := s.users.UpdatePassword(ctx, userID, hash); err != nil {
		return fmt.Errorf("update password: %w", err)
	}
	return nil
}

// SetPhoto stores an uploaded image as the profile photo, replacing any previous one.
func (s *UserService) SetPhoto(ctx context.Context, userID int, upload Upload) (string, error) {
	committed := false
	defer func() {
		if !committed && upload.TempPath != "" {
			_ = os.Remove(upload.TempPath)
		}
	}()

	if upload.TempPath == "" {
		return "", validation("no file uploaded")
	}
	if ClassifyMIME(upload.MimeType) != models.MessageTypeImage || !MIMEAllowed(upload.MimeType) {
		return "", validation("photo must be an image")
	}
	if upload.Size > ProfilePhotoLimit {
		return "", validation("photo exceeds the %dMB limit", ProfilePhotoLimit/mb)
	}

	user, err := s.Get(ctx, userID)
	if err != nil {
		return "", err
	}

	name := storedName(fmt.Sprintf("%d-%s", userID, uuid.NewString()), upload.FileName)
	url, err := s.files.Save(ctx, photoKind, name, upload.TempPath, normalizeMIME(upload.MimeType))
	if err != nil {
		return "", fmt.Errorf("store photo: %w", err)
	}
	committed = true

	if err := s.users.UpdatePhoto(ctx, userID, url); err != nil {
		s.removeFile(ctx, url)
		return "", fmt.Errorf("update photo: %w", err)
	}
	if user.PhotoURL != "" {
		s.removeFile(ctx, user.PhotoURL)
	}
	return url, nil
}

// RemovePhoto clears the profile photo.
func (s *UserService) RemovePhoto(ctx context.Context, userID int) error {
	user, err := s.Get(ctx, userID)
	if err != nil {
		return err
	}
	if err := s.users.UpdatePhoto(ctx, userID, ""); err != nil {
		return fmt.Errorf("clear photo: %w", err)
	}
	if user.PhotoURL != "" {
		s.removeFile(ctx, user.PhotoURL)
	}
	return nil
}

// DeleteAccount removes the account after re-checking the password. Messages and
// conversations keep the id and resolve it to a placeholder.
func (s *UserService) DeleteAccount(ctx context.Context, userID int, password string) error {
	if password == "" {
		return validation("password is required")
	}
	user, err := s.Get(ctx, userID)
	if err != nil {
		return err
	}
	if !auth.CheckPassword(user.PasswordHash, password) {
		return validation("password is incorrect")
	}
	if err := s.users.Delete(ctx, userID); err != nil {
		return fmt.Errorf("delete user: %w", err)
	}
	if user.PhotoURL != "" {
		s.removeFile(ctx, user.PhotoURL)
	}
	return nil
}

// Block adds targetID to userID's block list.
func (s *UserService) Block(ctx context.Context, userID, targetID int) error {
	if userID == targetID {
		return validation("cannot block yourself")
	}
	if _, err := s.Get(ctx, targetID); err != nil {
		return err
	}
	if err := s.users.Block(ctx, userID, targetID); err != nil {
		return fmt.Errorf("block user: %w", err)
	}
	return nil
}

// Unblock removes targetID from userID's block list.
func (s *UserService) Unblock(ctx context.Context, userID, targetID int) error {
	if err := s.users.Unblock(ctx, userID, targetID); err != nil {
		return fmt.Errorf("unblock user: %w", err)
	}
	return nil
}

// ListBlocked returns the public profiles userID has blocked.
func (s *UserService) ListBlocked(ctx context.Context, userID int) ([]models.UserSummary, error) {
	user, err := s.Get(ctx, userID)
	if err != nil {
		return nil, err
	}
	summaries, err := s.users.Summaries(ctx, user.BlockedUsers)
	if err != nil {
		return nil, fmt.Errorf("load blocked users: %w", err)
	}

	out := make([]models.UserSummary, 0, len(user.BlockedUsers))
	for _, id := range user.BlockedUsers {
		summary, ok := summaries[id]
		if !ok {
			summary = models.UserSummary{ID: id}
		}
		out = append(out, summary)
	}
	return out, nil
}

func (s *UserService) session(user models.User) (Session, error) {
	token, err := s.tokens.Issue(user.ID)
	if err != nil {
		return Session{}, fmt.Errorf("issue token: %w", err)
	}
	return Session{User: user, Token: token}, nil
}

func (s *UserService) summary(user models.User, err error) (models.UserSummary, error) {
	if errors.Is(err, repositories.ErrUserNotFound) {
		return models.UserSummary{}, notFound("user")
	}
	if err != nil {
		return models.UserSummary{}, fmt.Errorf("load user: %w", err)
	}
	return user.Summary(), nil
}

func (s *UserService) removeFile(ctx context.Context, url string) {
	if err := s.files.Remove(ctx, url); err != nil && !errors.Is(err, storage.ErrForeignURL) {
		log.Warn().Err(err).Str("url", url).Msg("failed to remove stored photo")
	}
}

func normalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}

func generateUsername() string {
	return "user_" + uuid.NewString()[:8]
}
