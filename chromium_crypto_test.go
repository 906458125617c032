package snoosession

import (
	"bytes"
	"crypto/rand"
	"crypto/sha256"
	"testing"
)

func TestChromiumDecryptCBC_RoundTrip(t *testing.T) {
	key := chromiumDeriveKey("peanuts", chromiumKDFItersLinux)
	encrypted := encryptAESCBCForTest(t, "v10", key, []byte("cookie-value"))

	plain, err := chromiumDecryptCBC(encrypted, key, 0, false)
	if err != nil {
		t.Fatal(err)
	}
	if string(plain) != "cookie-value" {
		t.Fatalf("plaintext %q", plain)
	}
}

func TestChromiumDecryptCBC_HashPrefixStripped(t *testing.T) {
	key := chromiumDeriveKey("peanuts", chromiumKDFItersLinux)
	hash := sha256.Sum256([]byte("reddit.com"))
	plaintext := append(hash[:], []byte("cookie-value")...)
	encrypted := encryptAESCBCForTest(t, "v10", key, plaintext)

	plain, err := chromiumDecryptCBC(encrypted, key, chromiumHashMetaVersion, false)
	if err != nil {
		t.Fatal(err)
	}
	if string(plain) != "cookie-value" {
		t.Fatalf("plaintext %q", plain)
	}

	// Below the cutover version the prefix must survive untouched.
	plain, err = chromiumDecryptCBC(encrypted, key, chromiumHashMetaVersion-1, false)
	if err != nil {
		t.Fatal(err)
	}
	if !bytes.Equal(plain, plaintext) {
		t.Fatal("prefix stripped below meta version 24")
	}
}

func TestChromiumDecryptCBC_LenientPassthrough(t *testing.T) {
	key := chromiumDeriveKey("x", chromiumKDFItersMacOS)
	raw := []byte("plaintext stored without prefix")

	if _, err := chromiumDecryptCBC(raw, key, 0, false); err == nil {
		t.Fatal("strict mode accepted an unprefixed value")
	}
	plain, err := chromiumDecryptCBC(raw, key, 0, true)
	if err != nil {
		t.Fatal(err)
	}
	if string(plain) != string(raw) {
		t.Fatalf("lenient passthrough mangled value: %q", plain)
	}
}

func TestChromiumDecryptCBC_WrongKey(t *testing.T) {
	key := chromiumDeriveKey("peanuts", chromiumKDFItersLinux)
	wrong := chromiumDeriveKey("walnuts", chromiumKDFItersLinux)
	encrypted := encryptAESCBCForTest(t, "v10", key, []byte("cookie-value"))

	// Wrong key almost surely yields invalid padding.
	if plain, err := chromiumDecryptCBC(encrypted, wrong, 0, false); err == nil && string(plain) == "cookie-value" {
		t.Fatal("wrong key decrypted to the original plaintext")
	}
}

func TestChromiumDecryptGCM_RoundTrip(t *testing.T) {
	key := make([]byte, 32)
	nonce := make([]byte, chromiumGCMNonceLen)
	if _, err := rand.Read(key); err != nil {
		t.Fatal(err)
	}
	if _, err := rand.Read(nonce); err != nil {
		t.Fatal(err)
	}
	encrypted := encryptAESGCMForTest(t, "v10", key, nonce, []byte("gcm-cookie"))

	plain, err := chromiumDecryptGCM(encrypted, key, 0)
	if err != nil {
		t.Fatal(err)
	}
	if string(plain) != "gcm-cookie" {
		t.Fatalf("plaintext %q", plain)
	}

	encrypted[len(encrypted)-1] ^= 0xff
	if _, err := chromiumDecryptGCM(encrypted, key, 0); err == nil {
		t.Fatal("tampered ciphertext authenticated")
	}
}

func TestChromiumVersionPrefixed(t *testing.T) {
	for in, want := range map[string]bool{
		"v10abc": true,
		"v11":    true,
		"v99x":   true,
		"vxx":    false,
		"w10":    false,
		"v1":     false,
		"":       false,
	} {
		if got := chromiumVersionPrefixed([]byte(in)); got != want {
			t.Errorf("chromiumVersionPrefixed(%q) = %v", in, got)
		}
	}
}

func TestStripPKCS7(t *testing.T) {
	padded := pkcs7Pad(t, []byte("hello"))
	out, err := stripPKCS7(padded)
	if err != nil {
		t.Fatal(err)
	}
	if string(out) != "hello" {
		t.Fatalf("unpadded %q", out)
	}

	for _, bad := range [][]byte{
		{1, 2, 3, 0},  // zero padding length
		{1, 2, 3, 17}, // longer than a block
		{1, 2, 3, 2},  // inconsistent padding bytes
	} {
		if _, err := stripPKCS7(bad); err == nil {
			t.Errorf("stripPKCS7(%v) accepted invalid padding", bad)
		}
	}
}

func TestChromiumDecodeValue(t *testing.T) {
	if v, ok := chromiumDecodeValue([]byte{0x01, 0x02, 'a', 'b', 'c'}); !ok || v != "abc" {
		t.Fatalf("got %q ok=%v", v, ok)
	}
	if _, ok := chromiumDecodeValue([]byte{0xff, 0xfe, 0xfd}); ok {
		t.Fatal("invalid UTF-8 accepted")
	}
}
