package secretstore

import (
	"strings"
	"time"
)

// RecoverSeed marks an HD seed restored without its secret. Such seeds are
// never re-keyed.
const RecoverSeed = "RECOVER"

const passwordSeedSep = ":"

// Address is a wallet address with its optional encrypted private key. An
// empty EncryptedPrivKey means the address is watch-only.
type Address struct {
	Address          string
	PubKey           []byte
	EncryptedPrivKey string
	IsXRandom        bool
	IsTrashed        bool
	IsSynced         bool
	SortTime         time.Time
}

func (a *Address) HasPrivKey() bool {
	return a.EncryptedPrivKey != ""
}

// HDSeed is an encrypted hierarchical deterministic seed. ID is assigned by
// the store.
type HDSeed struct {
	ID              int
	EncryptedSeed   string
	EncryptedHDSeed string
	IsXRandom       bool
	FirstAddress    string
}

// IsRecovered reports whether the seed was restored without its secret.
func (s *HDSeed) IsRecovered() bool {
	return s.EncryptedSeed == RecoverSeed
}

// PasswordSeed is a known ciphertext used to verify a password without
// touching any real secret. At most one exists per store.
type PasswordSeed struct {
	Address         string
	EncryptedSecret string
}

func NewPasswordSeed(address, encryptedSecret string) *PasswordSeed {
	return &PasswordSeed{
		Address:         address,
		EncryptedSecret: encryptedSecret,
	}
}

// ParsePasswordSeed decodes the persisted address:ciphertext form.
func ParsePasswordSeed(s string) (*PasswordSeed, error) {
	i := strings.Index(s, passwordSeedSep)
	if i <= 0 || i == len(s)-1 {
		return nil, ErrMalformedPasswordSeed
	}
	return NewPasswordSeed(s[:i], s[i+1:]), nil
}

func (ps *PasswordSeed) String() string {
	return ps.Address + passwordSeedSep + ps.EncryptedSecret
}

// CheckPassword reports whether password opens the seed ciphertext.
func (ps *PasswordSeed) CheckPassword(codec SecretCodec, password []byte) bool {
	plain, err := codec.Decrypt(ps.EncryptedSecret, password)
	if err != nil {
		return false
	}
	zero(plain)
	return true
}

// ChangePassword re-keys the seed ciphertext in place.
func (ps *PasswordSeed) ChangePassword(codec SecretCodec, oldPassword, newPassword []byte) error {
	enc, err := codec.ReEncrypt(ps.EncryptedSecret, oldPassword, newPassword)
	if err != nil {
		return err
	}
	ps.EncryptedSecret = enc
	return nil
}

// HDMBId is the identity of the wallet at the remote co-signing party
// together with the encrypted password shared with it.
type HDMBId struct {
	Address           string
	EncryptedPassword string
}

// HDMPubs holds the public keys of one HDM address. Remote is nil until the
// remote party has answered.
type HDMPubs struct {
	Index  int
	Hot    []byte
	Cold   []byte
	Remote []byte
}

// IsCompleted reports whether the remote key is known. Staged pubs never
// carry one.
func (p *HDMPubs) IsCompleted() bool {
	return len(p.Remote) > 0
}

// HDMAddress is a completed HDM address.
type HDMAddress struct {
	HDMPubs
	Address  string
	IsSynced bool
}

func zero(b []byte) {
	for i := range b {
		b[i] = 0
	}
}
