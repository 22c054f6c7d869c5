package crypter

import (
	"bytes"
	"errors"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var fastScrypt = &ScryptOptions{N: 16, R: 8, P: 1}

func newTestCrypter(t *testing.T) *Crypter {
	c, err := New(fastScrypt)
	require.NoError(t, err)
	return c
}

func TestNew(t *testing.T) {
	tests := []struct {
		name string
		opts *ScryptOptions
		err  error
	}{
		{"default", nil, nil},
		{"fast", fastScrypt, nil},
		{"N not power of two", &ScryptOptions{N: 1000, R: 8, P: 1}, ErrInvalidParams},
		{"N one", &ScryptOptions{N: 1, R: 8, P: 1}, ErrInvalidParams},
		{"r zero", &ScryptOptions{N: 16, R: 0, P: 1}, ErrInvalidParams},
		{"p zero", &ScryptOptions{N: 16, R: 8, P: 0}, ErrInvalidParams},
		{"largest", &ScryptOptions{N: MaxN, R: MaxR, P: MaxP}, nil},
		{"N too large", &ScryptOptions{N: MaxN << 1, R: 8, P: 1}, ErrInvalidParams},
		{"r too large", &ScryptOptions{N: 16, R: MaxR + 1, P: 1}, ErrInvalidParams},
		{"p too large", &ScryptOptions{N: 16, R: 8, P: MaxP + 1}, ErrInvalidParams},
	}
	for _, test := range tests {
		t.Run(test.name, func(t *testing.T) {
			c, err := New(test.opts)
			assert.Equal(t, test.err, err)
			if test.err == nil {
				assert.NotNil(t, c)
			}
		})
	}
}

func TestEncryptDecrypt(t *testing.T) {
	c := newTestCrypter(t)
	tests := []struct {
		name      string
		plaintext []byte
		password  []byte
	}{
		{"private key", bytes.Repeat([]byte{0x01}, 32), []byte("123456")},
		{"empty plaintext", []byte{}, []byte("password")},
		{"long password", []byte("seed"), bytes.Repeat([]byte("p"), 200)},
	}
	for _, test := range tests {
		t.Run(test.name, func(t *testing.T) {
			enc, err := c.Encrypt(test.plaintext, test.password)
			require.NoError(t, err)
			assert.Len(t, strings.Split(enc, partSep), 4)

			dec, err := c.Decrypt(enc, test.password)
			require.NoError(t, err)
			assert.True(t, bytes.Equal(test.plaintext, dec))

			_, err = c.Decrypt(enc, []byte("wrong password"))
			assert.Equal(t, ErrInvalidPassword, err)
		})
	}
}

func TestEncryptIsSalted(t *testing.T) {
	c := newTestCrypter(t)
	a, err := c.Encrypt([]byte("secret"), []byte("123456"))
	require.NoError(t, err)
	b, err := c.Encrypt([]byte("secret"), []byte("123456"))
	require.NoError(t, err)
	assert.NotEqual(t, a, b)
}

func TestDecryptUsesEmbeddedParams(t *testing.T) {
	enc, err := newTestCrypter(t).Encrypt([]byte("secret"), []byte("123456"))
	require.NoError(t, err)

	other, err := New(&ScryptOptions{N: 32, R: 4, P: 1})
	require.NoError(t, err)
	dec, err := other.Decrypt(enc, []byte("123456"))
	require.NoError(t, err)
	assert.Equal(t, []byte("secret"), dec)
}

func TestDecryptMalformed(t *testing.T) {
	c := newTestCrypter(t)
	good, err := c.Encrypt([]byte("secret"), []byte("123456"))
	require.NoError(t, err)
	parts := strings.Split(good, partSep)

	tests := []struct {
		name string
		enc  string
	}{
		{"empty", ""},
		{"recover sentinel", "RECOVER"},
		{"missing params", strings.Join(parts[:3], partSep)},
		{"bad box hex", strings.Join([]string{"zz", parts[1], parts[2], parts[3]}, partSep)},
		{"short nonce", strings.Join([]string{parts[0], "00", parts[2], parts[3]}, partSep)},
		{"empty salt", strings.Join([]string{parts[0], parts[1], "", parts[3]}, partSep)},
		{"bad params", strings.Join([]string{parts[0], parts[1], parts[2], "16,8"}, partSep)},
		{"invalid params", strings.Join([]string{parts[0], parts[1], parts[2], "15,8,1"}, partSep)},
		{"huge N", strings.Join([]string{parts[0], parts[1], parts[2], "17179869184,8,1"}, partSep)},
		{"N over limit", strings.Join([]string{parts[0], parts[1], parts[2], "2097152,8,1"}, partSep)},
		{"huge r", strings.Join([]string{parts[0], parts[1], parts[2], "16,1073741824,1"}, partSep)},
		{"huge p", strings.Join([]string{parts[0], parts[1], parts[2], "16,8,1073741824"}, partSep)},
	}
	for _, test := range tests {
		t.Run(test.name, func(t *testing.T) {
			_, err := c.Decrypt(test.enc, []byte("123456"))
			assert.True(t, errors.Is(err, ErrMalformed), "got %v", err)
		})
	}
}

func TestReEncrypt(t *testing.T) {
	c := newTestCrypter(t)
	enc, err := c.Encrypt([]byte("secret"), []byte("old password"))
	require.NoError(t, err)

	reenc, err := c.ReEncrypt(enc, []byte("old password"), []byte("new password"))
	require.NoError(t, err)
	assert.NotEqual(t, enc, reenc)

	dec, err := c.Decrypt(reenc, []byte("new password"))
	require.NoError(t, err)
	assert.Equal(t, []byte("secret"), dec)

	_, err = c.Decrypt(reenc, []byte("old password"))
	assert.Equal(t, ErrInvalidPassword, err)

	_, err = c.ReEncrypt(enc, []byte("wrong"), []byte("new password"))
	assert.Equal(t, ErrInvalidPassword, err)
}
