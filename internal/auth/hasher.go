package auth

import "golang.org/x/crypto/bcrypt"

// Hasher abstracts password hashing so Core's bcrypt work can be
// dispatched to a bounded worker pool (spec.md §5: "Password hashing
// must not block the shared scheduler") without Core depending on the
// workers package directly. The default is a synchronous bcrypt call;
// WithHasher swaps in a pooled implementation.
type Hasher interface {
	Hash(password string, cost int) (string, error)
	Compare(hash, password string) error
}

// syncHasher calls bcrypt inline on the caller's goroutine. It is the
// zero-dependency default so Core works standalone in tests.
type syncHasher struct{}

func (syncHasher) Hash(password string, cost int) (string, error) {
	hash, err := bcrypt.GenerateFromPassword([]byte(password), cost)
	if err != nil {
		return "", err
	}
	return string(hash), nil
}

func (syncHasher) Compare(hash, password string) error {
	return bcrypt.CompareHashAndPassword([]byte(hash), []byte(password))
}

// Option configures a Core at construction time.
type Option func(*Core)

// WithHasher overrides the default synchronous bcrypt hasher, typically
// with a bounded worker pool (see internal/workers.PasswordHasherPool).
func WithHasher(h Hasher) Option {
	return func(c *Core) { c.hasher = h }
}
