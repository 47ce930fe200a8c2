package auth

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"errors"
	"fmt"
	"io"
	"log"
	"net/url"
	"path"
	"strings"
	"time"

	"github.com/google/uuid"
	"golang.org/x/crypto/bcrypt"

	"ebook-storefront/internal/domain"
	tokenrepo "ebook-storefront/internal/repository/token"
	userrepo "ebook-storefront/internal/repository/user"
)

var (
	// ErrInvalidToken indicates a session or verification token could not be validated.
	ErrInvalidToken = errors.New("invalid token")
)

type userRepo interface {
	GetOrCreateByEmail(ctx context.Context, email string) (*domain.User, error)
	GetByID(ctx context.Context, id string) (*domain.User, error)
	UpdateProfile(ctx context.Context, id string, in userrepo.ProfileUpdate) (*domain.User, error)
}

// Mailer delivers the magic link to the user.
type Mailer interface {
	SendVerificationLink(ctx context.Context, to, link string) error
}

type avatarStore interface {
	UploadPublic(ctx context.Context, key, contentType string, body io.Reader) (string, error)
	DeletePublic(ctx context.Context, key string) error
}

type Options struct {
	JWTSecret        string
	SessionTTL       time.Duration
	VerificationTTL  time.Duration
	VerificationLink string
}

// Service implements passwordless sign-in with emailed magic links.
type Service struct {
	users           userRepo
	tokens          tokenrepo.Repository
	mailer          Mailer
	avatars         avatarStore
	sessions        *sessionManager
	verificationTTL time.Duration
	link            string
	logger          *log.Logger
}

func New(users userRepo, tokens tokenrepo.Repository, mailer Mailer, avatars avatarStore, opts Options, logger *log.Logger) *Service {
	if logger == nil {
		logger = log.New(io.Discard, "", 0)
	}
	if opts.SessionTTL <= 0 {
		opts.SessionTTL = 15 * 24 * time.Hour
	}
	if opts.VerificationTTL <= 0 {
		opts.VerificationTTL = time.Hour
	}
	return &Service{
		users:           users,
		tokens:          tokens,
		mailer:          mailer,
		avatars:         avatars,
		sessions:        newSessionManager(opts.JWTSecret, opts.SessionTTL),
		verificationTTL: opts.VerificationTTL,
		link:            opts.VerificationLink,
		logger:          logger,
	}
}

// GenerateLink finds or creates the user for email, replaces any pending
// verification token and mails a fresh magic link.
func (s *Service) GenerateLink(ctx context.Context, email string) error {
	email = strings.ToLower(strings.TrimSpace(email))
	if email == "" {
		return domain.Invalid("email", "email is required")
	}

	user, err := s.users.GetOrCreateByEmail(ctx, email)
	if err != nil {
		return err
	}

	secret, err := randomToken()
	if err != nil {
		return err
	}
	hash, err := bcrypt.GenerateFromPassword([]byte(secret), bcrypt.DefaultCost)
	if err != nil {
		return err
	}

	now := time.Now()
	if err := s.tokens.Create(ctx, tokenrepo.Token{
		UserID:    user.ID,
		Hash:      string(hash),
		ExpiresAt: now.Add(s.verificationTTL),
		CreatedAt: now,
	}); err != nil {
		return fmt.Errorf("store verification token: %w", err)
	}

	link, err := s.verificationURL(secret, user.ID)
	if err != nil {
		return err
	}
	if err := s.mailer.SendVerificationLink(ctx, user.Email, link); err != nil {
		return fmt.Errorf("send verification link: %w", err)
	}
	s.logger.Printf("auth: verification link issued user_id=%s", user.ID)
	return nil
}

// Verify consumes a magic-link token and starts a session. The returned
// string is the signed session token.
func (s *Service) Verify(ctx context.Context, userID, token string) (*domain.User, string, error) {
	if userID == "" || token == "" {
		return nil, "", domain.Invalid("token", "invalid request")
	}
	if _, err := uuid.Parse(userID); err != nil {
		return nil, "", domain.Invalid("userId", "invalid request")
	}

	stored, err := s.tokens.Get(ctx, userID)
	if err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			return nil, "", fmt.Errorf("%w: unauthorized request", domain.ErrForbidden)
		}
		return nil, "", err
	}
	if err := bcrypt.CompareHashAndPassword([]byte(stored.Hash), []byte(token)); err != nil {
		return nil, "", fmt.Errorf("%w: unauthorized request", domain.ErrForbidden)
	}
	consumed, err := s.tokens.Consume(ctx, userID, stored.Hash)
	if err != nil {
		return nil, "", err
	}
	if !consumed {
		return nil, "", fmt.Errorf("%w: unauthorized request", domain.ErrForbidden)
	}

	user, err := s.users.GetByID(ctx, userID)
	if err != nil {
		return nil, "", err
	}
	session, err := s.sessions.Issue(user.ID)
	if err != nil {
		return nil, "", err
	}
	return user, session, nil
}

// Authenticate resolves a session token to its user.
func (s *Service) Authenticate(ctx context.Context, session string) (*domain.User, error) {
	if session == "" {
		return nil, domain.ErrUnauthorized
	}
	userID, err := s.sessions.Validate(session)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", domain.ErrUnauthorized, err)
	}
	user, err := s.users.GetByID(ctx, userID)
	if err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			return nil, domain.ErrUnauthorized
		}
		return nil, err
	}
	return user, nil
}

func (s *Service) Profile(ctx context.Context, userID string) (*domain.User, error) {
	return s.users.GetByID(ctx, userID)
}

// Avatar is an uploaded image.
type Avatar struct {
	Filename    string
	ContentType string
	Body        io.Reader
}

type UpdateProfileInput struct {
	Name   string
	Avatar *Avatar
}

// UpdateProfile sets the display name, marks the user as signed up and
// optionally replaces the avatar.
func (s *Service) UpdateProfile(ctx context.Context, user domain.User, in UpdateProfileInput) (*domain.User, error) {
	name := strings.TrimSpace(in.Name)
	if len(name) < 3 {
		return nil, domain.Invalid("name", "invalid name")
	}

	update := userrepo.ProfileUpdate{Name: name}
	if in.Avatar != nil {
		if !strings.HasPrefix(in.Avatar.ContentType, "image/") {
			return nil, domain.Invalid("avatar", "avatar must be an image")
		}
		key := "avatars/" + user.ID + "-" + uuid.NewString() + path.Ext(in.Avatar.Filename)
		avatarURL, err := s.avatars.UploadPublic(ctx, key, in.Avatar.ContentType, in.Avatar.Body)
		if err != nil {
			return nil, err
		}
		update.AvatarKey = &key
		update.AvatarURL = &avatarURL
	}

	updated, err := s.users.UpdateProfile(ctx, user.ID, update)
	if err != nil {
		return nil, err
	}
	if in.Avatar != nil && user.AvatarKey != "" {
		if err := s.avatars.DeletePublic(ctx, user.AvatarKey); err != nil {
			s.logger.Printf("auth: delete old avatar user_id=%s key=%s error=%v", user.ID, user.AvatarKey, err)
		}
	}
	return updated, nil
}

// SessionTTL is the lifetime of issued session tokens.
func (s *Service) SessionTTL() time.Duration {
	return s.sessions.ttl
}

func (s *Service) verificationURL(token, userID string) (string, error) {
	u, err := url.Parse(s.link)
	if err != nil {
		return "", fmt.Errorf("parse verification link: %w", err)
	}
	q := u.Query()
	q.Set("token", token)
	q.Set("userId", userID)
	u.RawQuery = q.Encode()
	return u.String(), nil
}

func randomToken() (string, error) {
	b := make([]byte, 36)
	if _, err := rand.Read(b); err != nil {
		return "", err
	}
	return hex.EncodeToString(b), nil
}
