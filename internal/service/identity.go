package service

import (
	"context" // Request context
	"fmt"     // Error wrapping
	"net/url" // Confirm link building
	"strings" // String manipulation

	"survivor_pool/internal/access" // Role checks
	"survivor_pool/internal/auth"   // Tokens and passwords
	"survivor_pool/internal/cache"  // Listing cache
	"survivor_pool/internal/db"     // Constraint detection
	"survivor_pool/internal/domain" // Domain models
	apperrors "survivor_pool/internal/errors"
	"survivor_pool/internal/mail" // Confirmation mail

	"github.com/go-playground/validator/v10" // Input validation
	"github.com/sirupsen/logrus"             // Logging library
	"gorm.io/gorm"                           // GORM ORM library
)

// Mailer queues a message without waiting for delivery
type Mailer interface {
	Dispatch(to, subject, htmlBody string)
}

// TokenIssuer signs and checks session and confirmation tokens
type TokenIssuer interface {
	IssueSession(userID uint, email string) (string, error)
	IssueConfirmation(email string) (string, error)
	Verify(tokenStr string, want auth.Purpose) (*auth.Claims, error)
}

// IdentityService registers, confirms and authenticates users and manages roles
type IdentityService struct {
	db        *gorm.DB
	tokens    TokenIssuer
	mailer    Mailer
	cache     *cache.Cache
	validate  *validator.Validate
	publicURL string
}

// NewIdentityService creates an identity service. publicURL is the base of confirm links.
func NewIdentityService(db *gorm.DB, tokens TokenIssuer, mailer Mailer, c *cache.Cache, validate *validator.Validate, publicURL string) *IdentityService {
	return &IdentityService{
		db:        db,
		tokens:    tokens,
		mailer:    mailer,
		cache:     c,
		validate:  validate,
		publicURL: strings.TrimRight(publicURL, "/"),
	}
}

// RegisterResult is returned by Register
type RegisterResult struct {
	User       *domain.User
	ConfirmURL string
}

// LoginResult is returned by Login. It never carries the password hash.
type LoginResult struct {
	Email string      `json:"email"`
	Role  domain.Role `json:"role"`
	Token string      `json:"token"`
}

// UserSummary is one row of the admin user list
type UserSummary struct {
	ID       uint        `json:"id"`
	Email    string      `json:"email"`
	Role     domain.Role `json:"role"`
	Verified bool        `json:"verified"`
	Entries  int64       `json:"entries"`
}

// Register creates an unverified player and mails a confirmation link. The
// link is signed before the row is written, so a signing failure leaves the
// address free to register again.
func (s *IdentityService) Register(ctx context.Context, email, password string) (*RegisterResult, error) {
	email = strings.TrimSpace(email)
	if err := s.validate.Var(email, "required,email,max=255"); err != nil {
		return nil, apperrors.ErrInvalidEmail
	}
	if len(password) < 8 || len(password) > 72 {
		return nil, apperrors.ErrWeakPassword
	}

	hash, err := auth.HashPassword(password)
	if err != nil {
		return nil, err
	}
	confirmURL, err := s.confirmLink(email)
	if err != nil {
		return nil, err
	}
	user := &domain.User{
		Email:        email,
		EmailKey:     domain.NormalizeEmail(email),
		PasswordHash: hash,
		Role:         domain.RolePlayer,
	}
	// The unique index on email_key decides races between concurrent registrations
	if err := s.db.WithContext(ctx).Create(user).Error; err != nil {
		if db.IsDuplicateKey(err) {
			return nil, apperrors.ErrUserExists
		}
		return nil, fmt.Errorf("failed to create user: %w", err)
	}

	s.mailer.Dispatch(user.Email, mail.ConfirmationSubject, mail.ConfirmationBody(confirmURL))
	s.cache.Invalidate(ctx, cache.KeyDashboard)

	logrus.WithFields(logrus.Fields{
		"user_id": user.ID,    // New user ID
		"email":   user.Email, // Registered email
	}).Info("User registered")
	return &RegisterResult{User: user, ConfirmURL: confirmURL}, nil
}

// confirmLink signs a confirmation token for email and builds the link
func (s *IdentityService) confirmLink(email string) (string, error) {
	token, err := s.tokens.IssueConfirmation(email)
	if err != nil {
		return "", fmt.Errorf("failed to issue confirmation token: %w", err)
	}
	return s.publicURL + "/confirm?token=" + url.QueryEscape(token), nil
}

// Confirm redeems a confirmation token. Confirming an already verified user is a no-op.
func (s *IdentityService) Confirm(ctx context.Context, token string) (*domain.User, error) {
	claims, err := s.tokens.Verify(token, auth.PurposeConfirm)
	if err != nil {
		return nil, apperrors.NewTokenError(err.Error())
	}

	var user *domain.User
	err = inTx(ctx, s.db, func(tx *gorm.DB) error {
		u, err := findUserByEmail(tx, claims.Email)
		if err != nil {
			return err
		}
		user = u
		if u.Verified {
			return nil // Idempotent
		}
		if err := tx.Model(u).Update("verified", true).Error; err != nil {
			return fmt.Errorf("failed to verify user: %w", err)
		}
		u.Verified = true
		logrus.WithField("user_id", u.ID).Info("Email confirmed")
		return nil
	})
	if err != nil {
		return nil, err
	}
	s.cache.Invalidate(ctx, cache.KeyDashboard)
	return user, nil
}

// ResendConfirmation mails a fresh link to an unverified user. Unknown and
// verified addresses are ignored so the call reveals nothing.
func (s *IdentityService) ResendConfirmation(ctx context.Context, email string) error {
	user, err := findUserByEmail(s.db.WithContext(ctx), email)
	if err != nil {
		if apperrors.IsNotFound(err) {
			return nil
		}
		return err
	}
	if user.Verified {
		return nil
	}
	confirmURL, err := s.confirmLink(user.Email)
	if err != nil {
		return err
	}
	s.mailer.Dispatch(user.Email, mail.ConfirmationSubject, mail.ConfirmationBody(confirmURL))
	return nil
}

// Login checks credentials and issues a session token
func (s *IdentityService) Login(ctx context.Context, email, password string) (*LoginResult, error) {
	user, err := findUserByEmail(s.db.WithContext(ctx), email)
	if err != nil {
		if apperrors.IsNotFound(err) {
			return nil, apperrors.ErrInvalidCredential
		}
		return nil, err
	}
	ok, err := auth.CheckPassword(user.PasswordHash, password)
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, apperrors.ErrInvalidCredential
	}
	if !user.Verified {
		return nil, apperrors.ErrUserUnverified
	}

	token, err := s.tokens.IssueSession(user.ID, user.Email)
	if err != nil {
		return nil, fmt.Errorf("failed to issue session: %w", err)
	}
	return &LoginResult{Email: user.Email, Role: user.Role, Token: token}, nil
}

// UpdateRole sets the role of the user with targetEmail. Only admins may call it,
// and that check runs before the role is validated.
func (s *IdentityService) UpdateRole(ctx context.Context, actor *domain.User, targetEmail, newRole string) (*domain.User, error) {
	if err := access.Require(actor, domain.RoleAdmin); err != nil {
		return nil, err
	}
	role, ok := domain.ParseRole(newRole)
	if !ok {
		return nil, apperrors.ErrInvalidRole
	}

	var target *domain.User
	err := inTx(ctx, s.db, func(tx *gorm.DB) error {
		u, err := findUserByEmail(tx, targetEmail)
		if err != nil {
			return err
		}
		if err := tx.Model(u).Update("role", role).Error; err != nil {
			return fmt.Errorf("failed to update role: %w", err)
		}
		u.Role = role
		target = u
		return nil
	})
	if err != nil {
		return nil, err
	}
	s.cache.Invalidate(ctx, cache.KeyDashboard)

	logrus.WithFields(logrus.Fields{
		"actor_id":  actor.ID,  // Admin making the change
		"target_id": target.ID, // User whose role changed
		"role":      role,      // New role
	}).Info("Role updated")
	return target, nil
}

// ListUsers returns every user with role, verification and entry count. Admin only.
func (s *IdentityService) ListUsers(ctx context.Context, actor *domain.User) ([]UserSummary, error) {
	if err := access.Require(actor, domain.RoleAdmin); err != nil {
		return nil, err
	}
	summaries := []UserSummary{}
	err := s.db.WithContext(ctx).
		Model(&domain.User{}).
		Select("users.id, users.email, users.role, users.verified, COUNT(entries.id) AS entries").
		Joins("LEFT JOIN entries ON entries.user_id = users.id").
		Group("users.id, users.email, users.role, users.verified").
		Order("users.id").
		Scan(&summaries).Error
	if err != nil {
		return nil, fmt.Errorf("failed to list users: %w", err)
	}
	return summaries, nil
}
