// Package auth implements the Auth Core (spec.md §4.3): email/password
// policy, user records, bcrypt hashing, progressive lockout, and HS256
// access/refresh token issuance with a revocation blocklist.
package auth

import (
	"context"
	"time"

	"github.com/mesbahtanvir/docuchan/backend/internal/apperr"
	"github.com/mesbahtanvir/docuchan/backend/internal/query"
	"github.com/mesbahtanvir/docuchan/backend/internal/store"
)

const usersCollection = "users"

const (
	defaultLockoutThreshold = 5
	defaultLockoutWindow    = 15 * time.Minute
	minBcryptCost           = 10
)

// User is the user record shape spec.md §3 defines.
type User struct {
	ID                  string                 `json:"id"`
	Email               string                 `json:"email"`
	EmailVerified       bool                   `json:"emailVerified"`
	DisplayName         string                 `json:"displayName,omitempty"`
	PhotoURL            string                 `json:"photoURL,omitempty"`
	Disabled            bool                   `json:"disabled"`
	FailedLoginAttempts int                    `json:"failedLoginAttempts"`
	CustomClaims        map[string]interface{} `json:"customClaims,omitempty"`
}

// Core wires the Auth Core's policy, storage, and token machinery
// together over a single store.Adapter collection of user records.
type Core struct {
	store            store.Adapter
	tokens           *TokenIssuer
	blocklist        *Blocklist
	hasher           Hasher
	bcryptCost       int
	lockoutThreshold int
	lockoutWindow    time.Duration
}

// NewCore builds a Core. bcryptCost is clamped up to the minimum of 10
// spec.md §4.3 requires if a caller passes something lower. By default
// password hashing runs inline; pass WithHasher to dispatch it to a
// bounded worker pool instead.
func NewCore(s store.Adapter, jwtSecret string, accessTTL, refreshTTL time.Duration, bcryptCost int, lockoutThreshold int, lockoutWindow time.Duration, blocklistLookupTimeout time.Duration, opts ...Option) *Core {
	if bcryptCost < minBcryptCost {
		bcryptCost = minBcryptCost
	}
	if lockoutThreshold <= 0 {
		lockoutThreshold = defaultLockoutThreshold
	}
	if lockoutWindow <= 0 {
		lockoutWindow = defaultLockoutWindow
	}
	c := &Core{
		store:            s,
		tokens:           NewTokenIssuer(jwtSecret, accessTTL, refreshTTL),
		blocklist:        NewBlocklist(s, blocklistLookupTimeout),
		hasher:           syncHasher{},
		bcryptCost:       bcryptCost,
		lockoutThreshold: lockoutThreshold,
		lockoutWindow:    lockoutWindow,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Blocklist exposes the revocation blocklist so the workers package can
// schedule its sweep.
func (c *Core) Blocklist() *Blocklist { return c.blocklist }

// CreateUser validates email and password, rejects duplicate emails, and
// inserts a fresh user record (spec.md §4.3, "Create user").
func (c *Core) CreateUser(ctx context.Context, email, password, displayName, photoURL string) (User, error) {
	if err := ValidateEmail(email); err != nil {
		return User{}, err
	}
	if err := ValidatePassword(password); err != nil {
		return User{}, err
	}
	normalized := NormalizeEmail(email)

	existing, err := c.findByEmail(ctx, normalized)
	if err != nil {
		return User{}, err
	}
	if existing != nil {
		return User{}, apperr.New(apperr.EmailExists, "an account with this email already exists")
	}

	hash, err := c.hasher.Hash(password, c.bcryptCost)
	if err != nil {
		return User{}, apperr.Wrap(apperr.Internal, "failed to hash password", err)
	}

	now := time.Now()
	doc := map[string]interface{}{
		"email":               normalized,
		"emailVerified":       false,
		"passwordHash":        hash,
		"displayName":         displayName,
		"photoURL":            photoURL,
		"disabled":            false,
		"failedLoginAttempts": 0,
		"metadata": map[string]interface{}{
			"creationTime":   now,
			"lastSignInTime": nil,
		},
	}

	id, err := c.store.Add(ctx, usersCollection, doc)
	if err != nil {
		return User{}, apperr.Wrap(apperr.Internal, "failed to create user", err)
	}

	return User{
		ID:            id,
		Email:         normalized,
		EmailVerified: false,
		DisplayName:   displayName,
		PhotoURL:      photoURL,
	}, nil
}

// SignIn validates credentials, enforces lockout, and on success issues
// a fresh token pair (spec.md §4.3, "Sign in").
func (c *Core) SignIn(ctx context.Context, email, password string) (TokenPair, error) {
	if err := ValidateEmail(email); err != nil {
		return TokenPair{}, err
	}
	normalized := NormalizeEmail(email)

	doc, err := c.findByEmail(ctx, normalized)
	if err != nil {
		return TokenPair{}, err
	}
	if doc == nil {
		return TokenPair{}, apperr.New(apperr.UserNotFound, "no account with this email")
	}
	id, _ := doc["id"].(string)

	if disabled, _ := doc["disabled"].(bool); disabled {
		return TokenPair{}, apperr.New(apperr.UserDisabled, "this account has been disabled")
	}

	attempts := toInt(doc["failedLoginAttempts"])
	lastFailed, hasLastFailed := doc["lastFailedLogin"].(time.Time)
	if attempts >= c.lockoutThreshold && hasLastFailed && time.Now().Before(lastFailed.Add(c.lockoutWindow)) {
		return TokenPair{}, apperr.New(apperr.AccountLocked, "too many failed attempts, try again later")
	}

	passwordHash, _ := doc["passwordHash"].(string)
	if c.hasher.Compare(passwordHash, password) != nil {
		return TokenPair{}, c.recordFailedAttempt(ctx, id, attempts)
	}

	displayName, _ := doc["displayName"].(string)
	customClaims, _ := doc["customClaims"].(map[string]interface{})

	// Update replaces nested maps wholesale rather than deep-merging, so
	// the existing metadata is read back and merged here rather than
	// overwriting creationTime with a bare lastSignInTime patch.
	metadata, _ := doc["metadata"].(map[string]interface{})
	if metadata == nil {
		metadata = map[string]interface{}{}
	}
	now := time.Now()
	metadata["lastSignInTime"] = now

	if _, err := c.store.Update(ctx, usersCollection, id, map[string]interface{}{
		"failedLoginAttempts": 0,
		"lastFailedLogin":     nil,
		"metadata":            metadata,
	}); err != nil {
		return TokenPair{}, apperr.Wrap(apperr.Internal, "failed to record sign-in", err)
	}

	return c.tokens.Issue(id, normalized, displayName, customClaims)
}

// toInt coerces the numeric types a store.Adapter might hand back for a
// counter field. memstore round-trips a Go int verbatim, but the
// official Firestore client decodes integers as int64 (and float64 for
// values that passed through JSON), so a bare type assertion against
// int silently reads back zero from firestorestore.
func toInt(v interface{}) int {
	switch n := v.(type) {
	case int:
		return n
	case int32:
		return int(n)
	case int64:
		return int(n)
	case float64:
		return int(n)
	default:
		return 0
	}
}

// recordFailedAttempt increments the failure counter and returns the
// error the caller should surface: ACCOUNT_LOCKED if this attempt
// crossed the lockout threshold, INVALID_PASSWORD otherwise.
func (c *Core) recordFailedAttempt(ctx context.Context, id string, priorAttempts int) error {
	attempts := priorAttempts + 1
	now := time.Now()
	_, err := c.store.Update(ctx, usersCollection, id, map[string]interface{}{
		"failedLoginAttempts": attempts,
		"lastFailedLogin":     now,
	})
	if err != nil {
		return apperr.Wrap(apperr.Internal, "failed to record failed login", err)
	}
	if attempts >= c.lockoutThreshold {
		return apperr.New(apperr.AccountLocked, "too many failed attempts, try again later")
	}
	return apperr.New(apperr.InvalidPassword, "incorrect password")
}

// Refresh verifies a refresh token, rejects revoked/disabled/missing
// users, rotates the blocklist entry, and issues a new pair (spec.md
// §4.3, "Refresh").
func (c *Core) Refresh(ctx context.Context, refreshToken string) (TokenPair, error) {
	claims, err := c.tokens.Parse(refreshToken)
	if err != nil {
		return TokenPair{}, err
	}
	if err := RequireType(claims, RefreshToken); err != nil {
		return TokenPair{}, err
	}

	revoked, err := c.blocklist.IsRevoked(ctx, refreshToken)
	if err != nil {
		return TokenPair{}, apperr.Wrap(apperr.Internal, "failed to check revocation", err)
	}
	if revoked {
		return TokenPair{}, apperr.New(apperr.TokenRevoked, "refresh token has been revoked")
	}

	doc, err := c.store.Get(ctx, usersCollection, claims.Subject)
	if err != nil {
		return TokenPair{}, apperr.Wrap(apperr.Internal, "failed to look up user", err)
	}
	if doc == nil {
		return TokenPair{}, apperr.New(apperr.UserNotFound, "user no longer exists")
	}
	if disabled, _ := doc["disabled"].(bool); disabled {
		return TokenPair{}, apperr.New(apperr.UserDisabled, "this account has been disabled")
	}

	if claims.ExpiresAt != nil {
		if err := c.blocklist.Revoke(ctx, refreshToken, claims.ExpiresAt.Time); err != nil {
			return TokenPair{}, apperr.Wrap(apperr.Internal, "failed to revoke refresh token", err)
		}
	}

	email, _ := doc["email"].(string)
	displayName, _ := doc["displayName"].(string)
	customClaims, _ := doc["customClaims"].(map[string]interface{})
	return c.tokens.Issue(claims.Subject, email, displayName, customClaims)
}

// VerifyAccessToken checks a bearer access token: blocklist lookup
// first (so revocation is honored even for still-valid tokens), then
// cryptographic verification (spec.md §4.3, "Verification").
func (c *Core) VerifyAccessToken(ctx context.Context, tokenString string) (*Claims, error) {
	revoked, err := c.blocklist.IsRevoked(ctx, tokenString)
	if err != nil {
		return nil, apperr.Wrap(apperr.Internal, "failed to check revocation", err)
	}
	if revoked {
		return nil, apperr.New(apperr.TokenRevoked, "token has been revoked")
	}

	claims, err := c.tokens.Parse(tokenString)
	if err != nil {
		return nil, err
	}
	if err := RequireType(claims, AccessToken); err != nil {
		return nil, err
	}
	return claims, nil
}

func (c *Core) findByEmail(ctx context.Context, normalizedEmail string) (map[string]interface{}, error) {
	q, err := query.New().Where("email", query.Eq, normalizedEmail)
	if err != nil {
		return nil, err
	}
	tr := query.Translate(q)

	docs, err := c.store.Query(ctx, usersCollection, tr.Filter, tr.Sort, tr.Skip, 1)
	if err != nil {
		return nil, apperr.Wrap(apperr.Internal, "failed to look up user by email", err)
	}
	if len(docs) == 0 {
		return nil, nil
	}
	return docs[0], nil
}
