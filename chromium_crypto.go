package snoosession

import (
	"bytes"
	"crypto/aes"
	"crypto/cipher"
	"crypto/sha1" //nolint:gosec // Chromium's legacy cookie encryption is PBKDF2("saltysalt", SHA1).
	"errors"
	"fmt"
	"unicode/utf8"

	"golang.org/x/crypto/pbkdf2"
)

const (
	chromiumKDFSalt         = "saltysalt"
	chromiumCBCIV           = "                " // 16 spaces
	chromiumKDFItersLinux   = 1
	chromiumKDFItersMacOS   = 1003
	chromiumCBCKeyLen       = 16
	chromiumGCMNonceLen     = 12
	chromiumGCMOverheadLen  = 16
	chromiumHashPrefixLen   = 32
	chromiumHashMetaVersion = 24
)

// chromiumDecryptFunc turns an encrypted_value blob into plaintext bytes.
// The meta version decides whether a SHA256(host) prefix precedes the value.
type chromiumDecryptFunc func(encrypted []byte, metaVersion int64) ([]byte, bool)

func chromiumDeriveKey(password string, iterations int) []byte {
	return pbkdf2.Key([]byte(password), []byte(chromiumKDFSalt), iterations, chromiumCBCKeyLen, sha1.New)
}

// chromiumDecryptCBC handles v10/v11 AES-128-CBC values. On macOS a value
// without the v## prefix is stored plaintext; lenientPrefix passes it
// through.
func chromiumDecryptCBC(encrypted, key []byte, metaVersion int64, lenientPrefix bool) ([]byte, error) {
	if len(encrypted) <= 3 {
		return nil, fmt.Errorf("encrypted value too short (%d bytes)", len(encrypted))
	}
	if !chromiumVersionPrefixed(encrypted) {
		if !lenientPrefix {
			return nil, errors.New("missing v## prefix")
		}
		return bytes.Clone(encrypted), nil
	}

	ciphertext := encrypted[3:]
	if len(ciphertext)%aes.BlockSize != 0 {
		return nil, errors.New("cipher input not full blocks")
	}
	block, err := aes.NewCipher(key)
	if err != nil {
		return nil, err
	}

	out := make([]byte, len(ciphertext))
	cipher.NewCBCDecrypter(block, []byte(chromiumCBCIV)).CryptBlocks(out, ciphertext)

	out, err = stripPKCS7(out)
	if err != nil {
		return nil, err
	}
	return chromiumStripHashPrefix(out, metaVersion), nil
}

// chromiumDecryptGCM handles v10 AES-256-GCM values (Windows master-key
// scheme).
func chromiumDecryptGCM(encrypted, key []byte, metaVersion int64) ([]byte, error) {
	if len(encrypted) < 3+chromiumGCMNonceLen+chromiumGCMOverheadLen {
		return nil, errors.New("encrypted value too short")
	}
	if !chromiumVersionPrefixed(encrypted) {
		return nil, errors.New("missing v## prefix")
	}

	payload := encrypted[3:]
	nonce := payload[:chromiumGCMNonceLen]

	block, err := aes.NewCipher(key)
	if err != nil {
		return nil, err
	}
	aesgcm, err := cipher.NewGCM(block)
	if err != nil {
		return nil, err
	}
	plain, err := aesgcm.Open(nil, nonce, payload[chromiumGCMNonceLen:], nil)
	if err != nil {
		return nil, err
	}
	return chromiumStripHashPrefix(plain, metaVersion), nil
}

// Meta version 24 and later prepend SHA256(host_key) to the plaintext.
func chromiumStripHashPrefix(plain []byte, metaVersion int64) []byte {
	if metaVersion >= chromiumHashMetaVersion && len(plain) >= chromiumHashPrefixLen {
		return plain[chromiumHashPrefixLen:]
	}
	return plain
}

func chromiumVersionPrefixed(b []byte) bool {
	return len(b) >= 3 && b[0] == 'v' &&
		b[1] >= '0' && b[1] <= '9' && b[2] >= '0' && b[2] <= '9'
}

func stripPKCS7(b []byte) ([]byte, error) {
	if len(b) == 0 {
		return b, nil
	}
	n := int(b[len(b)-1])
	if n <= 0 || n > aes.BlockSize || n > len(b) {
		return nil, fmt.Errorf("invalid padding length %d", n)
	}
	for _, p := range b[len(b)-n:] {
		if int(p) != n {
			return nil, errors.New("invalid padding bytes")
		}
	}
	return b[:len(b)-n], nil
}

func chromiumDecodeValue(b []byte) (string, bool) {
	i := 0
	for i < len(b) && b[i] < 0x20 {
		i++
	}
	b = b[i:]
	if !utf8.Valid(b) {
		return "", false
	}
	return string(b), true
}
