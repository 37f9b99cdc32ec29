// internal/auth/auth.go
package auth

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"golang.org/x/crypto/bcrypt"

	"github.com/Oxymoron290/Klennedy-May-I/internal/models"
)

// TokenTTL is how long a guest token stays valid.
const TokenTTL = 24 * time.Hour

// MaxNameLength caps display names.
const MaxNameLength = 24

var (
	ErrInvalidToken = errors.New("auth: invalid token")
	ErrInvalidName  = errors.New("auth: name must be 1-24 characters")
)

// Issuer signs and verifies guest tokens.
type Issuer struct {
	secret []byte
	now    func() time.Time
}

// NewIssuer returns an issuer for the HMAC secret.
func NewIssuer(secret string) *Issuer {
	return &Issuer{secret: []byte(secret), now: time.Now}
}

type guestClaims struct {
	Name string `json:"name"`
	jwt.RegisteredClaims
}

// IssueGuest creates a fresh guest identity and its token.
func (i *Issuer) IssueGuest(name string) (*models.User, string, error) {
	name = strings.TrimSpace(name)
	if name == "" || len([]rune(name)) > MaxNameLength {
		return nil, "", ErrInvalidName
	}
	user := &models.User{ID: uuid.New(), Username: name}
	now := i.now()
	claims := guestClaims{
		Name: name,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   user.ID.String(),
			IssuedAt:  jwt.NewNumericDate(now),
			NotBefore: jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(TokenTTL)),
		},
	}
	token, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(i.secret)
	if err != nil {
		return nil, "", fmt.Errorf("auth: sign token: %w", err)
	}
	return user, token, nil
}

// Parse verifies a token and returns the identity it carries.
func (i *Issuer) Parse(token string) (*models.User, error) {
	var claims guestClaims
	_, err := jwt.ParseWithClaims(token, &claims, func(t *jwt.Token) (interface{}, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method %v", t.Header["alg"])
		}
		return i.secret, nil
	}, jwt.WithTimeFunc(i.now))
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidToken, err)
	}
	id, err := uuid.Parse(claims.Subject)
	if err != nil {
		return nil, fmt.Errorf("%w: bad subject", ErrInvalidToken)
	}
	return &models.User{ID: id, Username: claims.Name}, nil
}

// HashPassword hashes a room password.
func HashPassword(password string) ([]byte, error) {
	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return nil, fmt.Errorf("auth: hash password: %w", err)
	}
	return hash, nil
}

// CheckPassword reports whether password matches hash. An empty hash means
// the room is open.
func CheckPassword(hash []byte, password string) bool {
	if len(hash) == 0 {
		return true
	}
	return bcrypt.CompareHashAndPassword(hash, []byte(password)) == nil
}
