package securestore

import (
	"crypto/aes"
	"crypto/cipher"
	"crypto/rand"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"time"

	bolt "go.etcd.io/bbolt"
	"golang.org/x/crypto/scrypt"
	"golang.org/x/text/unicode/norm"
)

const (
	// storeDirPerm is the permission mode for the store directory.
	storeDirPerm = fs.FileMode(0o700)

	// storeFilePerm is the permission mode for the store database file.
	storeFilePerm = fs.FileMode(0o600)

	// storeOpenTimeout is the maximum time to wait for the bolt database lock.
	storeOpenTimeout = 5 * time.Second

	// scrypt parameters for deriving the sealing key from the passphrase.
	scryptN      = 32768
	scryptR      = 8
	scryptP      = 1
	scryptKeyLen = 32

	// saltLen is the length of the per-store random salt in bytes.
	saltLen = 16

	// checkPlaintext is sealed and stored on first open so later opens can
	// detect a wrong passphrase before any real value is touched.
	checkPlaintext = "securestore-check"
)

var (
	secretsBucket = []byte("secrets")
	metaBucket    = []byte("meta")
	saltKey       = []byte("salt")
	checkKey      = []byte("check")
)

// ErrBadPassphrase is returned by Open when the store exists but the derived
// key fails to unseal the stored check value.
var ErrBadPassphrase = fmt.Errorf("securestore: passphrase does not match existing store")

// BoltStore is a Store backed by a bbolt database. Every value is sealed
// with AES-256-GCM under a key derived from the passphrase via scrypt, so
// tokens and PKCE material are encrypted at rest. The random salt lives in
// the database alongside the sealed values; the passphrase does not.
type BoltStore struct {
	db  *bolt.DB
	gcm cipher.AEAD
}

// Open opens (or creates) the store database at path and derives the sealing
// key from passphrase. The passphrase is NFKC-normalized before key
// derivation so visually identical input encodes identically.
func Open(path, passphrase string) (*BoltStore, error) {
	if passphrase == "" {
		return nil, fmt.Errorf("securestore: passphrase is required")
	}

	if err := os.MkdirAll(filepath.Dir(path), storeDirPerm); err != nil {
		return nil, fmt.Errorf("securestore: creating store directory: %w", err)
	}

	db, err := bolt.Open(path, storeFilePerm, &bolt.Options{Timeout: storeOpenTimeout})
	if err != nil {
		return nil, fmt.Errorf("securestore: opening store db: %w", err)
	}

	var salt []byte
	err = db.Update(func(tx *bolt.Tx) error {
		if _, errBucket := tx.CreateBucketIfNotExists(secretsBucket); errBucket != nil {
			return errBucket
		}
		meta, errBucket := tx.CreateBucketIfNotExists(metaBucket)
		if errBucket != nil {
			return errBucket
		}
		if existing := meta.Get(saltKey); existing != nil {
			salt = append([]byte(nil), existing...)
			return nil
		}
		salt = make([]byte, saltLen)
		if _, errRand := rand.Read(salt); errRand != nil {
			return errRand
		}
		return meta.Put(saltKey, salt)
	})
	if err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("securestore: initializing store db: %w", err)
	}

	key, err := deriveKey(passphrase, salt)
	if err != nil {
		_ = db.Close()
		return nil, err
	}

	block, err := aes.NewCipher(key)
	if err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("securestore: creating AES cipher: %w", err)
	}
	zeroKey(key)

	gcm, err := cipher.NewGCM(block)
	if err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("securestore: creating GCM: %w", err)
	}

	s := &BoltStore{db: db, gcm: gcm}
	if err = s.verifyOrWriteCheck(); err != nil {
		_ = db.Close()
		return nil, err
	}

	return s, nil
}

// Close closes the underlying database.
func (s *BoltStore) Close() error {
	return s.db.Close()
}

// Get returns the unsealed value for key, or false when absent.
func (s *BoltStore) Get(key string) (string, bool, error) {
	var sealed []byte
	err := s.db.View(func(tx *bolt.Tx) error {
		if v := tx.Bucket(secretsBucket).Get([]byte(key)); v != nil {
			sealed = append([]byte(nil), v...)
		}
		return nil
	})
	if err != nil {
		return "", false, fmt.Errorf("securestore: reading %q: %w", key, err)
	}
	if sealed == nil {
		return "", false, nil
	}

	plain, err := s.unseal(sealed)
	if err != nil {
		return "", false, fmt.Errorf("securestore: unsealing %q: %w", key, err)
	}
	return string(plain), true, nil
}

// Set seals value and persists it under key, overwriting any prior value.
func (s *BoltStore) Set(key, value string) error {
	sealed, err := s.seal([]byte(value))
	if err != nil {
		return fmt.Errorf("securestore: sealing %q: %w", key, err)
	}
	err = s.db.Update(func(tx *bolt.Tx) error {
		return tx.Bucket(secretsBucket).Put([]byte(key), sealed)
	})
	if err != nil {
		return fmt.Errorf("securestore: writing %q: %w", key, err)
	}
	return nil
}

// Delete removes key. Absent keys are a no-op.
func (s *BoltStore) Delete(key string) error {
	err := s.db.Update(func(tx *bolt.Tx) error {
		return tx.Bucket(secretsBucket).Delete([]byte(key))
	})
	if err != nil {
		return fmt.Errorf("securestore: deleting %q: %w", key, err)
	}
	return nil
}

// seal encrypts plaintext as [12-byte nonce][ciphertext+GCM tag].
func (s *BoltStore) seal(plain []byte) ([]byte, error) {
	nonce := make([]byte, s.gcm.NonceSize())
	if _, err := rand.Read(nonce); err != nil {
		return nil, err
	}
	ct := s.gcm.Seal(nil, nonce, plain, nil)
	out := make([]byte, len(nonce)+len(ct))
	copy(out, nonce)
	copy(out[len(nonce):], ct)
	return out, nil
}

func (s *BoltStore) unseal(data []byte) ([]byte, error) {
	nonceSize := s.gcm.NonceSize()
	if len(data) < nonceSize {
		return nil, fmt.Errorf("sealed value too short: %d bytes", len(data))
	}
	return s.gcm.Open(nil, data[:nonceSize], data[nonceSize:], nil)
}

// verifyOrWriteCheck unseals the stored check value when present, or seals
// and stores it on a fresh database. A failed unseal means the passphrase
// does not match the one the store was created with.
func (s *BoltStore) verifyOrWriteCheck() error {
	var sealed []byte
	_ = s.db.View(func(tx *bolt.Tx) error {
		if v := tx.Bucket(metaBucket).Get(checkKey); v != nil {
			sealed = append([]byte(nil), v...)
		}
		return nil
	})

	if sealed != nil {
		plain, err := s.unseal(sealed)
		if err != nil || string(plain) != checkPlaintext {
			return ErrBadPassphrase
		}
		return nil
	}

	sealed, err := s.seal([]byte(checkPlaintext))
	if err != nil {
		return fmt.Errorf("securestore: sealing check value: %w", err)
	}
	return s.db.Update(func(tx *bolt.Tx) error {
		return tx.Bucket(metaBucket).Put(checkKey, sealed)
	})
}

// deriveKey derives the 32-byte sealing key from passphrase and salt using
// scrypt. The passphrase is normalized to NFKC before hashing.
func deriveKey(passphrase string, salt []byte) ([]byte, error) {
	passphrase = norm.NFKC.String(passphrase)

	key, err := scrypt.Key([]byte(passphrase), salt, scryptN, scryptR, scryptP, scryptKeyLen)
	if err != nil {
		return nil, fmt.Errorf("securestore: deriving key: %w", err)
	}
	return key, nil
}

func zeroKey(key []byte) {
	for i := range key {
		key[i] = 0
	}
}
