package password

import (
	"errors"
	"fmt"
	"strings"
)

var (
	ErrEmptyPassword   = errors.New("password is empty")
	ErrMalformedHash   = errors.New("malformed password hash")
	ErrUnsupportedHash = errors.New("unsupported password hash algorithm")
)

// Algorithm selects the scheme used for new hashes.
type Algorithm string

const (
	AlgorithmArgon2id Algorithm = "argon2id"
	AlgorithmBcrypt   Algorithm = "bcrypt"
)

// Config selects the hashing scheme and its parameters.
type Config struct {
	Algorithm  Algorithm
	BcryptCost int
	Argon2     Argon2Config
}

// DefaultConfig returns argon2id with DefaultArgon2Config.
func DefaultConfig() Config {
	return Config{
		Algorithm:  AlgorithmArgon2id,
		BcryptCost: DefaultBcryptCost,
		Argon2:     DefaultArgon2Config(),
	}
}

// Hasher hashes with the configured algorithm and verifies hashes of either
// algorithm, so stored bcrypt hashes keep working after a switch to argon2id.
type Hasher struct {
	algorithm Algorithm
	argon     *Argon2
	bcrypt    *Bcrypt
}

// New builds a Hasher from cfg. Zero-valued sections fall back to defaults.
func New(cfg Config) (*Hasher, error) {
	def := DefaultConfig()
	if cfg.Algorithm == "" {
		cfg.Algorithm = def.Algorithm
	}
	if cfg.BcryptCost == 0 {
		cfg.BcryptCost = def.BcryptCost
	}
	if cfg.Argon2 == (Argon2Config{}) {
		cfg.Argon2 = def.Argon2
	}

	argon, err := NewArgon2(cfg.Argon2)
	if err != nil {
		return nil, err
	}
	bc, err := NewBcrypt(cfg.BcryptCost)
	if err != nil {
		return nil, err
	}

	switch cfg.Algorithm {
	case AlgorithmArgon2id, AlgorithmBcrypt:
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnsupportedHash, cfg.Algorithm)
	}

	return &Hasher{algorithm: cfg.Algorithm, argon: argon, bcrypt: bc}, nil
}

// Algorithm reports the scheme used for new hashes.
func (h *Hasher) Algorithm() Algorithm { return h.algorithm }

func (h *Hasher) Hash(plaintext string) (string, error) {
	if h.algorithm == AlgorithmBcrypt {
		return h.bcrypt.Hash(plaintext)
	}
	return h.argon.Hash(plaintext)
}

// MaxPasswordBytes is the input bound of the scheme used for new hashes, or
// 0 when it has none.
func (h *Hasher) MaxPasswordBytes() int {
	if h.algorithm == AlgorithmBcrypt {
		return h.bcrypt.MaxPasswordBytes()
	}
	return 0
}

// Verify dispatches on the hash prefix.
func (h *Hasher) Verify(plaintext, encodedHash string) (bool, error) {
	switch {
	case strings.HasPrefix(encodedHash, "$"+argon2ID+"$"):
		return h.argon.Verify(plaintext, encodedHash)
	case isBcrypt(encodedHash):
		return h.bcrypt.Verify(plaintext, encodedHash)
	default:
		return false, ErrUnsupportedHash
	}
}

// NeedsRehash reports whether encodedHash should be replaced on the next
// successful login, either because it uses another algorithm or weaker
// parameters.
func (h *Hasher) NeedsRehash(encodedHash string) (bool, error) {
	switch {
	case strings.HasPrefix(encodedHash, "$"+argon2ID+"$"):
		if h.algorithm != AlgorithmArgon2id {
			return true, nil
		}
		return h.argon.NeedsUpgrade(encodedHash)
	case isBcrypt(encodedHash):
		if h.algorithm != AlgorithmBcrypt {
			return true, nil
		}
		return h.bcrypt.NeedsUpgrade(encodedHash)
	default:
		return false, ErrUnsupportedHash
	}
}
