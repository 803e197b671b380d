package auth

import (
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"

	"github.com/mesbahtanvir/docuchan/backend/internal/apperr"
)

// TokenType distinguishes access from refresh tokens within the same
// claims shape (spec.md §4.3, "Token payload").
type TokenType string

const (
	AccessToken  TokenType = "access"
	RefreshToken TokenType = "refresh"
)

// Claims is the token payload spec.md §4.3 defines: {sub, email,
// displayName?, customClaims?, type, iat, exp}.
type Claims struct {
	jwt.RegisteredClaims
	Email        string                 `json:"email"`
	DisplayName  string                 `json:"displayName,omitempty"`
	CustomClaims map[string]interface{} `json:"customClaims,omitempty"`
	Type         TokenType              `json:"type"`
}

// TokenPair is the bundle spec.md §4.3 returns from sign-in and refresh.
type TokenPair struct {
	AccessToken  string `json:"accessToken"`
	RefreshToken string `json:"refreshToken"`
	ExpiresIn    int64  `json:"expiresIn"`
}

// TokenIssuer signs and verifies HS256 access/refresh token pairs with a
// process-wide secret.
type TokenIssuer struct {
	secret     []byte
	accessTTL  time.Duration
	refreshTTL time.Duration
}

// NewTokenIssuer builds a TokenIssuer. secret must be non-empty; callers
// validate that at configuration-load time.
func NewTokenIssuer(secret string, accessTTL, refreshTTL time.Duration) *TokenIssuer {
	return &TokenIssuer{secret: []byte(secret), accessTTL: accessTTL, refreshTTL: refreshTTL}
}

// Issue mints a fresh access/refresh pair for a user.
func (t *TokenIssuer) Issue(userID, email, displayName string, customClaims map[string]interface{}) (TokenPair, error) {
	now := time.Now()

	access, err := t.sign(userID, email, displayName, customClaims, AccessToken, now, now.Add(t.accessTTL))
	if err != nil {
		return TokenPair{}, apperr.Wrap(apperr.Internal, "failed to sign access token", err)
	}
	refresh, err := t.sign(userID, email, displayName, customClaims, RefreshToken, now, now.Add(t.refreshTTL))
	if err != nil {
		return TokenPair{}, apperr.Wrap(apperr.Internal, "failed to sign refresh token", err)
	}

	return TokenPair{
		AccessToken:  access,
		RefreshToken: refresh,
		ExpiresIn:    t.accessTTL.Milliseconds(),
	}, nil
}

func (t *TokenIssuer) sign(userID, email, displayName string, customClaims map[string]interface{}, typ TokenType, issuedAt, expiresAt time.Time) (string, error) {
	claims := Claims{
		RegisteredClaims: jwt.RegisteredClaims{
			ID:        uuid.NewString(),
			Subject:   userID,
			IssuedAt:  jwt.NewNumericDate(issuedAt),
			ExpiresAt: jwt.NewNumericDate(expiresAt),
		},
		Email:        email,
		DisplayName:  displayName,
		CustomClaims: customClaims,
		Type:         typ,
	}
	return jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(t.secret)
}

// Parse verifies the signature and expiry of tokenString and returns its
// claims. Expired tokens map to apperr.TokenExpired; any other
// verification failure maps to apperr.InvalidToken.
func (t *TokenIssuer) Parse(tokenString string) (*Claims, error) {
	claims := &Claims{}
	_, err := jwt.ParseWithClaims(tokenString, claims, func(token *jwt.Token) (interface{}, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, apperr.New(apperr.InvalidToken, "unexpected signing method")
		}
		return t.secret, nil
	})
	if err != nil {
		if errors.Is(err, jwt.ErrTokenExpired) {
			return nil, apperr.New(apperr.TokenExpired, "token has expired")
		}
		return nil, apperr.New(apperr.InvalidToken, "token is invalid")
	}
	return claims, nil
}

// RequireType verifies claims.Type matches want, returning
// apperr.InvalidToken otherwise.
func RequireType(claims *Claims, want TokenType) error {
	if claims.Type != want {
		return apperr.New(apperr.InvalidToken, "unexpected token type")
	}
	return nil
}

// Fingerprint returns the SHA-256 hex digest of a raw token string, the
// opaque key under which revocation is tracked (spec.md §4.3,
// "Revocation").
func Fingerprint(tokenString string) string {
	sum := sha256.Sum256([]byte(tokenString))
	return hex.EncodeToString(sum[:])
}
