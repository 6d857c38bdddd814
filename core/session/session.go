// Package session holds the explicit request context (token, tenant, academic year)
// passed to every layer that loads school data.
package session

import (
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/dgrijalva/jwt-go"
	"github.com/google/uuid"
)

var (
	// errors
	ErrInvalidToken = errors.New("invalid token")
	ErrExpired      = errors.New("session expired")
	ErrNoScope      = errors.New("session has no tenant or academic year")
	ErrNotFound     = errors.New("session not found")
	ErrClosed       = errors.New("session closed")

	NowFunc = time.Now // mockable
)

// Scope identifies one tenant's academic year; grade records never cross scopes.
type Scope struct {
	TenantID       int `json:"tenant_id"`
	AcademicYearID int `json:"academic_year_id"`
}

func (s Scope) IsZero() bool { return s.TenantID == 0 || s.AcademicYearID == 0 }

func (s Scope) String() string {
	return fmt.Sprintf("tenant=%d year=%d", s.TenantID, s.AcademicYearID)
}

// Claims represents the authorization claims transmitted via a JWT.
type Claims struct {
	jwt.StandardClaims
	TenantID       int      `json:"tenant_id,omitempty"`
	AcademicYearID int      `json:"academic_year_id,omitempty"`
	Username       string   `json:"username,omitempty"`
	Email          string   `json:"email,omitempty"`
	Roles          []string `json:"roles,omitempty"`
}

type Session struct {
	ID        string    `json:"id"`
	Token     string    `json:"-"`
	UserID    string    `json:"user_id"`
	Username  string    `json:"username"`
	Email     string    `json:"email"`
	Roles     []string  `json:"roles"`
	Scope     Scope     `json:"scope"`
	ExpiresAt time.Time `json:"expires_at"` // UTC; zero for System sessions
}

// FromClaims builds the Session carried by an already verified token.
func FromClaims(token string, claims *Claims) Session {
	sess := Session{
		ID:       tokenID(token, claims),
		Token:    token,
		UserID:   claims.Subject,
		Username: claims.Username,
		Email:    claims.Email,
		Roles:    claims.Roles,
		Scope: Scope{
			TenantID:       claims.TenantID,
			AcademicYearID: claims.AcademicYearID,
		},
	}
	if claims.ExpiresAt != 0 {
		sess.ExpiresAt = time.Unix(claims.ExpiresAt, 0).UTC()
	}
	return sess
}

// System returns a token-less Session for jobs that read a scope directly (CLI, cron).
func System(scope Scope) Session {
	return Session{
		ID:       uuid.New().String(),
		Username: "system",
		Scope:    scope,
	}
}

// Parse verifies an HS256 signed token and returns its Session.
func Parse(token string, key []byte) (Session, error) {
	claims := new(Claims)
	tkn, err := jwt.ParseWithClaims(token, claims, func(t *jwt.Token) (interface{}, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, ErrInvalidToken
		}
		return key, nil
	})
	if err != nil {
		if vErr, ok := err.(*jwt.ValidationError); ok && vErr.Errors&jwt.ValidationErrorExpired != 0 {
			return Session{}, ErrExpired
		}
		return Session{}, ErrInvalidToken
	}
	if !tkn.Valid {
		return Session{}, ErrInvalidToken
	}
	sess := FromClaims(token, claims)
	return sess, sess.Valid()
}

// Valid checks that the session can still be used to load data.
func (s Session) Valid() error {
	if s.Scope.IsZero() {
		return ErrNoScope
	}
	if !s.ExpiresAt.IsZero() && NowFunc().After(s.ExpiresAt) {
		return ErrExpired
	}
	return nil
}

func (s Session) IsSystem() bool { return s.Token == "" }

// tokenID prefers the token's jti, and falls back to a digest of the raw token.
func tokenID(token string, claims *Claims) string {
	if claims.Id != "" {
		return claims.Id
	}
	sum := sha256.Sum256([]byte(token))
	return hex.EncodeToString(sum[:16])
}

// NewToken signs a token for the given claims. Used by tests and the admin CLI.
func NewToken(claims *Claims, key []byte) (string, error) {
	if claims.Id == "" {
		claims.Id = uuid.New().String()
	}
	if claims.IssuedAt == 0 {
		claims.IssuedAt = NowFunc().Unix()
	}
	return jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(key)
}

// UserClaims is a helper building the claims of a user acting on a scope.
func UserClaims(userID int, username string, scope Scope, ttl time.Duration, roles ...string) *Claims {
	now := NowFunc()
	return &Claims{
		StandardClaims: jwt.StandardClaims{
			Subject:   strconv.Itoa(userID),
			IssuedAt:  now.Unix(),
			ExpiresAt: now.Add(ttl).Unix(),
		},
		TenantID:       scope.TenantID,
		AcademicYearID: scope.AcademicYearID,
		Username:       username,
		Roles:          roles,
	}
}
