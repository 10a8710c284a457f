package account

import (
	"encoding/json"
	"fmt"

	"github.com/lockbookapp/lockbook-core/pkg/crypto"
	"github.com/mr-tron/base58"
	"github.com/tyler-smith/go-bip39"
)

// keyPayload is the JSON shape base58-encoded into an exportable key
// string. It carries everything import needs to reconstruct an Account
// without contacting the server.
type keyPayload struct {
	Username   string `json:"username"`
	PrivateKey []byte `json:"private_key"`
	APIURL     string `json:"api_url"`
}

// ExportKey renders an account as a base58-encoded key string, the form
// `create_account`/`import_account{key}` pass around (§6.3).
func ExportKey(a Account) (string, error) {
	payload := keyPayload{
		Username:   a.Username,
		PrivateKey: crypto.EncodePrivateKey(a.KeyPair.Private),
		APIURL:     a.APIURL,
	}
	b, err := json.Marshal(payload)
	if err != nil {
		return "", fmt.Errorf("account: encode key: %w", err)
	}
	return base58.Encode(b), nil
}

// ImportKey reconstructs an Account from a string produced by ExportKey. If
// apiURL is non-empty it overrides the URL embedded in the key, allowing an
// account to be pointed at a different server instance on import.
func ImportKey(key string, apiURL string) (Account, error) {
	b, err := base58.Decode(key)
	if err != nil {
		return Account{}, ErrMalformedKey
	}

	var payload keyPayload
	if err := json.Unmarshal(b, &payload); err != nil {
		return Account{}, ErrMalformedKey
	}

	sk, err := crypto.DecodePrivateKey(payload.PrivateKey)
	if err != nil {
		return Account{}, ErrMalformedKey
	}

	url := payload.APIURL
	if apiURL != "" {
		url = apiURL
	}
	if err := ValidateAPIURL(url); err != nil {
		return Account{}, err
	}

	return Account{
		Username: payload.Username,
		KeyPair:  crypto.KeyPair{Private: sk, Public: sk.PubKey()},
		APIURL:   url,
	}, nil
}

// ExportPhrase renders an account's private key as a 24-word BIP-39 mnemonic
// (256 bits of entropy, exactly a secp256k1 scalar's width). The username
// and api_url are not recoverable from the phrase alone — ImportPhrase
// requires both to be supplied out of band, same as the real client does
// when a user re-types a recovery phrase.
func ExportPhrase(a Account) (string, error) {
	return bip39.NewMnemonic(crypto.EncodePrivateKey(a.KeyPair.Private))
}

// ImportPhrase reconstructs an Account from a 24-word mnemonic produced by
// ExportPhrase, plus the username and api_url the caller already knows.
func ImportPhrase(phrase []string, username, apiURL string) (Account, error) {
	if len(phrase) != 24 {
		return Account{}, ErrMalformedPhrase
	}
	entropy, err := bip39.EntropyFromMnemonic(joinPhrase(phrase))
	if err != nil {
		return Account{}, ErrMalformedPhrase
	}

	sk, err := crypto.DecodePrivateKey(entropy)
	if err != nil {
		return Account{}, ErrMalformedPhrase
	}

	username = lowercase(username)
	if err := ValidateUsername(username); err != nil {
		return Account{}, err
	}
	if err := ValidateAPIURL(apiURL); err != nil {
		return Account{}, err
	}

	return Account{
		Username: username,
		KeyPair:  crypto.KeyPair{Private: sk, Public: sk.PubKey()},
		APIURL:   apiURL,
	}, nil
}

func joinPhrase(words []string) string {
	out := words[0]
	for _, w := range words[1:] {
		out += " " + w
	}
	return out
}

func lowercase(s string) string {
	b := []byte(s)
	for i, c := range b {
		if c >= 'A' && c <= 'Z' {
			b[i] = c + ('a' - 'A')
		}
	}
	return string(b)
}
