// Package auth creates accounts and signs users in and out.
package auth

import (
	"context"
	"errors"
	"fmt"
	"log"
	"net/mail"
	"strings"
	"time"

	"github.com/google/uuid"
	"golang.org/x/crypto/bcrypt"

	"food-ordering/api/models"
	"food-ordering/api/session"
	"food-ordering/api/store"
)

const minPasswordLength = 6

var (
	ErrInvalidEmail        = errors.New("please enter a valid email address")
	ErrWeakPassword        = fmt.Errorf("password must be at least %d characters", minPasswordLength)
	ErrInvalidRole         = errors.New("role must be customer or owner")
	ErrEmailTaken          = errors.New("an account with this email already exists")
	ErrInvalidCredentials  = errors.New("invalid email or password")
	ErrEmailNotConfirmed   = errors.New("please confirm your email before signing in")
	ErrInvalidConfirmation = errors.New("confirmation link is invalid or has expired")
)

type Options struct {
	RequireEmailConfirmation bool
	ConfirmationTTL          time.Duration
	// HashCost is the bcrypt cost; zero uses bcrypt.DefaultCost.
	HashCost int
}

type Service struct {
	users         store.UserRepository
	owners        store.OwnerRepository
	sessions      *session.Manager
	confirmations ConfirmationStore
	opts          Options

	hashCost int
}

func NewService(users store.UserRepository, owners store.OwnerRepository, sessions *session.Manager, confirmations ConfirmationStore, opts Options) *Service {
	s := &Service{
		users:         users,
		owners:        owners,
		sessions:      sessions,
		confirmations: confirmations,
		opts:          opts,
		hashCost:      opts.HashCost,
	}
	if s.hashCost == 0 {
		s.hashCost = bcrypt.DefaultCost
	}
	return s
}

// SignUpResult carries a signed-in session, or a confirmation token when
// the account has to be confirmed first.
type SignUpResult struct {
	User              *models.User     `json:"user"`
	Token             string           `json:"token,omitempty"`
	Session           *session.Session `json:"session,omitempty"`
	ConfirmationToken string           `json:"-"`
	Pending           bool             `json:"pending_confirmation"`
}

func (s *Service) SignUp(ctx context.Context, email, password string, role models.Role, fullName string) (*SignUpResult, error) {
	email = strings.ToLower(strings.TrimSpace(email))
	fullName = strings.TrimSpace(fullName)
	if _, err := mail.ParseAddress(email); err != nil {
		return nil, ErrInvalidEmail
	}
	if len(password) < minPasswordLength {
		return nil, ErrWeakPassword
	}
	if role == "" {
		role = models.RoleCustomer
	}
	if !role.Valid() {
		return nil, ErrInvalidRole
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(password), s.hashCost)
	if err != nil {
		return nil, fmt.Errorf("hash password: %w", err)
	}

	user := &models.User{
		ID:             uuid.NewString(),
		Email:          email,
		PasswordHash:   string(hash),
		FullName:       fullName,
		Role:           role,
		EmailConfirmed: !s.opts.RequireEmailConfirmation,
	}
	if err := s.users.Create(ctx, user); err != nil {
		if errors.Is(err, store.ErrDuplicate) {
			return nil, ErrEmailTaken
		}
		return nil, fmt.Errorf("create user: %w", err)
	}

	if role == models.RoleOwner {
		owner := &models.RestaurantOwner{
			ID:           uuid.NewString(),
			UserID:       user.ID,
			BusinessName: fullName,
			Email:        email,
		}
		if err := s.owners.Create(ctx, owner); err != nil {
			// An account without its owner profile would sign in as a
			// customer and block a retry with the same email.
			if delErr := s.users.Delete(ctx, user.ID); delErr != nil {
				log.Printf("Failed to remove user %s after owner profile error: %v", user.ID, delErr)
			}
			return nil, fmt.Errorf("create owner profile: %w", err)
		}
	}

	if s.opts.RequireEmailConfirmation {
		token := uuid.NewString()
		if err := s.confirmations.Put(ctx, token, user.ID, s.opts.ConfirmationTTL); err != nil {
			return nil, fmt.Errorf("store confirmation: %w", err)
		}
		log.Printf("Confirmation token for %s: %s", email, token)
		return &SignUpResult{User: user, ConfirmationToken: token, Pending: true}, nil
	}

	token, sess, err := s.sessions.Issue(user, role)
	if err != nil {
		return nil, err
	}
	return &SignUpResult{User: user, Token: token, Session: sess}, nil
}

func (s *Service) ConfirmEmail(ctx context.Context, token string) error {
	userID, err := s.confirmations.Take(ctx, token)
	if err != nil {
		return err
	}
	if err := s.users.ConfirmEmail(ctx, userID); err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return ErrInvalidConfirmation
		}
		return fmt.Errorf("confirm email: %w", err)
	}
	return nil
}

// SignIn checks the credentials and issues a session in the role the user
// acts in.
func (s *Service) SignIn(ctx context.Context, email, password string) (string, *session.Session, error) {
	email = strings.ToLower(strings.TrimSpace(email))

	user, err := s.users.GetByEmail(ctx, email)
	if errors.Is(err, store.ErrNotFound) {
		return "", nil, ErrInvalidCredentials
	}
	if err != nil {
		return "", nil, fmt.Errorf("load user: %w", err)
	}
	if err := bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte(password)); err != nil {
		return "", nil, ErrInvalidCredentials
	}
	if !user.EmailConfirmed {
		return "", nil, ErrEmailNotConfirmed
	}

	return s.sessions.Issue(user, s.ResolveRole(ctx, user.ID))
}

func (s *Service) SignOut(ctx context.Context, token string) error {
	return s.sessions.Revoke(ctx, token)
}

// ResolveRole is owner when the user has an owner profile. Lookup failures
// fall back to customer.
func (s *Service) ResolveRole(ctx context.Context, userID string) models.Role {
	_, err := s.owners.GetByUserID(ctx, userID)
	switch {
	case err == nil:
		return models.RoleOwner
	case errors.Is(err, store.ErrNotFound):
		return models.RoleCustomer
	default:
		log.Printf("Error checking owner status for %s: %v", userID, err)
		return models.RoleCustomer
	}
}
