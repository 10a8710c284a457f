package account

import (
	"rsc.io/qr"
)

// ExportQR renders an account's key string (see ExportKey) as a PNG-encoded
// QR code, for display on a screen a second device can scan (§6.3
// export_account_qr).
func ExportQR(a Account) ([]byte, error) {
	key, err := ExportKey(a)
	if err != nil {
		return nil, err
	}

	code, err := qr.Encode(key, qr.M)
	if err != nil {
		return nil, err
	}
	return code.PNG(), nil
}

// ImportQR reconstructs an Account from a key string already decoded off a
// scanned QR code. Decoding the image itself is a scanning-device concern,
// not this package's.
func ImportQR(decoded string, apiURL string) (Account, error) {
	return ImportKey(decoded, apiURL)
}
