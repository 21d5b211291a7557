package auth

import (
	"errors" // Error inspection
	"fmt"    // Error wrapping
	"time"   // Token expiration

	"github.com/golang-jwt/jwt/v5" // JWT library
	"github.com/google/uuid"       // Token IDs
)

// Purpose separates session tokens from confirmation tokens signed with the same key
type Purpose string

// Token purposes
const (
	PurposeSession Purpose = "session" // Bearer credential for API calls
	PurposeConfirm Purpose = "confirm" // Emailed link that verifies an address
)

const issuer = "survivor-pool" // Issuer claim

// Errors returned by Verify
var (
	ErrTokenExpired = errors.New("token expired")
	ErrTokenInvalid = errors.New("token invalid")
	ErrWrongPurpose = errors.New("token issued for another purpose")
)

// Claims carried by every token
type Claims struct {
	UserID  uint    `json:"uid,omitempty"` // Set on session tokens
	Email   string  `json:"email"`         // Subject email address
	Purpose Purpose `json:"purpose"`       // session or confirm

	jwt.RegisteredClaims // Standard JWT claims
}

// Tokens signs and verifies HS256 tokens
type Tokens struct {
	secret     []byte           // HMAC key
	sessionTTL time.Duration    // Lifetime of session tokens
	confirmTTL time.Duration    // Lifetime of confirmation tokens, 0 means no expiry
	now        func() time.Time // Clock
}

// NewTokens creates a signer. A zero confirmTTL issues confirmation tokens without an exp claim.
func NewTokens(secret string, sessionTTL, confirmTTL time.Duration) *Tokens {
	return &Tokens{secret: []byte(secret), sessionTTL: sessionTTL, confirmTTL: confirmTTL, now: time.Now}
}

// WithClock returns a copy of t that reads time from now
func (t *Tokens) WithClock(now func() time.Time) *Tokens {
	c := *t
	c.now = now
	return &c
}

// IssueSession creates a session token for a user
func (t *Tokens) IssueSession(userID uint, email string) (string, error) {
	return t.sign(Claims{UserID: userID, Email: email, Purpose: PurposeSession}, t.sessionTTL)
}

// IssueConfirmation creates a token that confirms ownership of email
func (t *Tokens) IssueConfirmation(email string) (string, error) {
	return t.sign(Claims{Email: email, Purpose: PurposeConfirm}, t.confirmTTL)
}

func (t *Tokens) sign(claims Claims, ttl time.Duration) (string, error) {
	now := t.now()
	claims.RegisteredClaims = jwt.RegisteredClaims{
		Issuer:   issuer,                  // Issuer
		Subject:  claims.Email,            // Subject email
		ID:       uuid.NewString(),        // Unique token ID
		IssuedAt: jwt.NewNumericDate(now), // Issued at current time
	}
	if ttl > 0 {
		claims.ExpiresAt = jwt.NewNumericDate(now.Add(ttl)) // Expiry when configured
	}
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims) // Create token with claims
	signed, err := token.SignedString(t.secret)                // Sign the token with the secret
	if err != nil {
		return "", fmt.Errorf("sign token: %w", err)
	}
	return signed, nil
}

// Verify parses tokenStr, checks signature, expiry and purpose, and returns its claims
func (t *Tokens) Verify(tokenStr string, want Purpose) (*Claims, error) {
	claims := &Claims{}
	token, err := jwt.ParseWithClaims(tokenStr, claims, func(token *jwt.Token) (any, error) {
		return t.secret, nil // Return the secret key for validation
	},
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithIssuer(issuer),
		jwt.WithTimeFunc(t.now),
	)
	if err != nil {
		if errors.Is(err, jwt.ErrTokenExpired) {
			return nil, ErrTokenExpired
		}
		return nil, fmt.Errorf("%w: %v", ErrTokenInvalid, err)
	}
	if !token.Valid {
		return nil, ErrTokenInvalid
	}
	if claims.Purpose != want {
		return nil, ErrWrongPurpose
	}
	return claims, nil
}
