// Package crypter implements the password based codec for the secret
// fields of the store.
//
// Every ciphertext is self-describing text of the form
//
//	hex(box)/hex(nonce)/hex(salt)/N,r,p
//
// where box is a NaCl secretbox sealed under a key derived from the
// password with scrypt. Each value carries its own salt, so re-encrypting
// under a new password needs no store wide state.
package crypter

import (
	"crypto/rand"
	"encoding/hex"
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/pkg/errors"
	"golang.org/x/crypto/nacl/secretbox"
	"golang.org/x/crypto/scrypt"
)

const (
	keySize   = 32
	NonceSize = 24
	SaltSize  = 16

	DefaultN = 16384 // 2^14
	DefaultR = 8
	DefaultP = 1

	// Upper bounds on the cost parameters. They apply to parameters read
	// back from stored ciphertexts as well, so a damaged value fails to
	// parse instead of exhausting memory.
	MaxN = 1 << 20
	MaxR = 32
	MaxP = 16

	partSep  = "/"
	paramSep = ","
)

var (
	prng io.Reader = rand.Reader

	ErrInvalidPassword = errors.New("invalid password")
	ErrMalformed       = errors.New("malformed ciphertext")
	ErrInvalidParams   = errors.New("invalid scrypt parameters")
)

// ScryptOptions is used to hold the scrypt parameters needed when deriving
// keys from a password.
type ScryptOptions struct {
	N, R, P int
}

// DefaultScryptOptions is the default options used with scrypt.
var DefaultScryptOptions = ScryptOptions{
	N: DefaultN,
	R: DefaultR,
	P: DefaultP,
}

func (o *ScryptOptions) validate() error {
	if o.N <= 1 || o.N > MaxN || o.N&(o.N-1) != 0 {
		return ErrInvalidParams
	}
	if o.R <= 0 || o.R > MaxR || o.P <= 0 || o.P > MaxP {
		return ErrInvalidParams
	}
	return nil
}

// Crypter encrypts and decrypts secrets with a password.
type Crypter struct {
	options ScryptOptions
}

// New returns a Crypter that derives keys for new ciphertexts with opts.
// Existing ciphertexts are always decrypted with the parameters they carry.
func New(opts *ScryptOptions) (*Crypter, error) {
	if opts == nil {
		opts = &DefaultScryptOptions
	}
	if err := opts.validate(); err != nil {
		return nil, err
	}
	return &Crypter{options: *opts}, nil
}

type ciphertext struct {
	box     []byte
	nonce   [NonceSize]byte
	salt    []byte
	options ScryptOptions
}

func (c *ciphertext) String() string {
	return strings.Join([]string{
		hex.EncodeToString(c.box),
		hex.EncodeToString(c.nonce[:]),
		hex.EncodeToString(c.salt),
		fmt.Sprintf("%d,%d,%d", c.options.N, c.options.R, c.options.P),
	}, partSep)
}

func parseCiphertext(s string) (*ciphertext, error) {
	parts := strings.Split(s, partSep)
	if len(parts) != 4 {
		return nil, ErrMalformed
	}

	box, err := hex.DecodeString(parts[0])
	if err != nil || len(box) < secretbox.Overhead {
		return nil, ErrMalformed
	}
	nonce, err := hex.DecodeString(parts[1])
	if err != nil || len(nonce) != NonceSize {
		return nil, ErrMalformed
	}
	salt, err := hex.DecodeString(parts[2])
	if err != nil || len(salt) == 0 {
		return nil, ErrMalformed
	}

	params := strings.Split(parts[3], paramSep)
	if len(params) != 3 {
		return nil, ErrMalformed
	}
	var values [3]int
	for i, p := range params {
		v, err := strconv.ParseInt(p, 10, 32)
		if err != nil {
			return nil, ErrMalformed
		}
		values[i] = int(v)
	}
	opts := ScryptOptions{N: values[0], R: values[1], P: values[2]}
	if err := opts.validate(); err != nil {
		return nil, errors.Wrap(ErrMalformed, err.Error())
	}

	c := &ciphertext{box: box, salt: salt, options: opts}
	copy(c.nonce[:], nonce)
	return c, nil
}

func deriveKey(password, salt []byte, opts *ScryptOptions) (*[keySize]byte, error) {
	key, err := scrypt.Key(password, salt, opts.N, opts.R, opts.P, keySize)
	if err != nil {
		return nil, err
	}
	var k [keySize]byte
	copy(k[:], key)
	zero(key)
	return &k, nil
}

// Encrypt seals plaintext under password.
func (c *Crypter) Encrypt(plaintext, password []byte) (string, error) {
	ct := &ciphertext{
		salt:    make([]byte, SaltSize),
		options: c.options,
	}
	if _, err := io.ReadFull(prng, ct.salt); err != nil {
		return "", err
	}
	if _, err := io.ReadFull(prng, ct.nonce[:]); err != nil {
		return "", err
	}

	key, err := deriveKey(password, ct.salt, &ct.options)
	if err != nil {
		return "", err
	}
	defer zero(key[:])

	ct.box = secretbox.Seal(nil, plaintext, &ct.nonce, key)
	return ct.String(), nil
}

// Decrypt opens a ciphertext produced by Encrypt. A wrong password is
// reported as ErrInvalidPassword.
func (c *Crypter) Decrypt(encrypted string, password []byte) ([]byte, error) {
	ct, err := parseCiphertext(encrypted)
	if err != nil {
		return nil, err
	}

	key, err := deriveKey(password, ct.salt, &ct.options)
	if err != nil {
		return nil, err
	}
	defer zero(key[:])

	opened, ok := secretbox.Open(nil, ct.box, &ct.nonce, key)
	if !ok {
		return nil, ErrInvalidPassword
	}
	return opened, nil
}

// ReEncrypt decrypts with oldPassword and encrypts the result with
// newPassword. The plaintext is zeroed before returning.
func (c *Crypter) ReEncrypt(encrypted string, oldPassword, newPassword []byte) (string, error) {
	plaintext, err := c.Decrypt(encrypted, oldPassword)
	if err != nil {
		return "", err
	}
	defer zero(plaintext)
	return c.Encrypt(plaintext, newPassword)
}

func zero(b []byte) {
	for i := range b {
		b[i] = 0
	}
}
