// Package account implements the Lockbook identity (§3.1): the
// username/keypair/api_url triple every client is instantiated around, and
// the key/phrase/QR export-import surface described in §6.3.
package account

import (
	"encoding/json"
	"net/url"
	"regexp"
	"strings"

	"github.com/lockbookapp/lockbook-core/pkg/crypto"
)

var usernamePattern = regexp.MustCompile(`^[a-z0-9]+$`)

// Account is the local identity a Core is instantiated around: a username,
// the keypair that authenticates every signed envelope and request, and the
// server this account is registered with.
type Account struct {
	Username string
	KeyPair  crypto.KeyPair
	APIURL   string
}

// ValidateUsername reports whether username is lowercase alphanumeric and
// non-empty, the only shape the server's username directory accepts.
func ValidateUsername(username string) error {
	if username == "" || !usernamePattern.MatchString(username) {
		return ErrInvalidUsername
	}
	return nil
}

// ValidateAPIURL reports whether apiURL parses as an absolute URL.
func ValidateAPIURL(apiURL string) error {
	u, err := url.Parse(apiURL)
	if err != nil || u.Scheme == "" || u.Host == "" {
		return ErrInvalidAPIURL
	}
	return nil
}

// New creates a fresh account with a newly generated keypair. username is
// lowercased before validation, matching the server's case-insensitive
// directory.
func New(username, apiURL string) (Account, error) {
	username = strings.ToLower(username)
	if err := ValidateUsername(username); err != nil {
		return Account{}, err
	}
	if err := ValidateAPIURL(apiURL); err != nil {
		return Account{}, err
	}

	kp, err := crypto.GenerateKeyPair()
	if err != nil {
		return Account{}, err
	}

	return Account{Username: username, KeyPair: kp, APIURL: apiURL}, nil
}

// PublicKey returns the compressed-SEC1 encoding of the account's public
// key, the identifier the server's username directory keys on.
func (a Account) PublicKey() []byte {
	return crypto.EncodePublicKey(a.KeyPair.Public)
}

// accountJSON is the on-the-wire shape of an Account. KeyPair's secp256k1
// types carry no exported fields, so encoding/json's default struct
// marshaling silently round-trips them to an empty object; every Account
// persisted to disk (clientdb's account record) or sent over the wire goes
// through this shape instead, the same private-key encoding ExportKey uses.
type accountJSON struct {
	Username   string `json:"username"`
	PrivateKey []byte `json:"private_key"`
	APIURL     string `json:"api_url"`
}

// MarshalJSON implements json.Marshaler.
func (a Account) MarshalJSON() ([]byte, error) {
	return json.Marshal(accountJSON{
		Username:   a.Username,
		PrivateKey: crypto.EncodePrivateKey(a.KeyPair.Private),
		APIURL:     a.APIURL,
	})
}

// UnmarshalJSON implements json.Unmarshaler.
func (a *Account) UnmarshalJSON(data []byte) error {
	var payload accountJSON
	if err := json.Unmarshal(data, &payload); err != nil {
		return err
	}
	sk, err := crypto.DecodePrivateKey(payload.PrivateKey)
	if err != nil {
		return err
	}
	a.Username = payload.Username
	a.KeyPair = crypto.KeyPair{Private: sk, Public: sk.PubKey()}
	a.APIURL = payload.APIURL
	return nil
}
