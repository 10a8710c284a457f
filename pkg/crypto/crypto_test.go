package crypto

import (
	"testing"
	"time"
)

func TestSignVerifyRoundTrip(t *testing.T) {
	kp, err := GenerateKeyPair()
	if err != nil {
		t.Fatalf("GenerateKeyPair() error = %v", err)
	}

	now := time.UnixMilli(500)
	env, err := Sign(kp, "hello", now)
	if err != nil {
		t.Fatalf("Sign() error = %v", err)
	}

	if err := Verify(kp.Public, env, 20*time.Millisecond, 20*time.Millisecond, now.Add(20*time.Millisecond)); err != nil {
		t.Errorf("Verify() error = %v, want nil", err)
	}
}

func TestVerifyRejectsLateSignature(t *testing.T) {
	kp, err := GenerateKeyPair()
	if err != nil {
		t.Fatalf("GenerateKeyPair() error = %v", err)
	}

	now := time.UnixMilli(500)
	env, err := Sign(kp, "hello", now)
	if err != nil {
		t.Fatalf("Sign() error = %v", err)
	}

	late := now.Add(time.Hour)
	if err := Verify(kp.Public, env, 10*time.Millisecond, 10*time.Millisecond, late); err == nil {
		t.Error("Verify() error = nil, want ErrSignatureExpired")
	}
}

func TestVerifyRejectsWrongPublicKey(t *testing.T) {
	kp, err := GenerateKeyPair()
	if err != nil {
		t.Fatalf("GenerateKeyPair() error = %v", err)
	}
	other, err := GenerateKeyPair()
	if err != nil {
		t.Fatalf("GenerateKeyPair() error = %v", err)
	}

	now := time.UnixMilli(500)
	env, err := Sign(kp, "hello", now)
	if err != nil {
		t.Fatalf("Sign() error = %v", err)
	}

	if err := Verify(other.Public, env, time.Hour, time.Hour, now); err != ErrWrongPublicKey {
		t.Errorf("Verify() error = %v, want ErrWrongPublicKey", err)
	}
}

func TestSharedSecretIsSymmetric(t *testing.T) {
	a, err := GenerateKeyPair()
	if err != nil {
		t.Fatalf("GenerateKeyPair() error = %v", err)
	}
	b, err := GenerateKeyPair()
	if err != nil {
		t.Fatalf("GenerateKeyPair() error = %v", err)
	}

	s1 := SharedSecret(a.Private, b.Public)
	s2 := SharedSecret(b.Private, a.Public)

	if s1 != s2 {
		t.Error("SharedSecret() not symmetric between parties")
	}
}

func TestAESEncryptDecryptRoundTrip(t *testing.T) {
	key, err := GenerateAESKey()
	if err != nil {
		t.Fatalf("GenerateAESKey() error = %v", err)
	}

	plaintext := []byte("buy milk")
	ct, err := AESEncrypt(key, plaintext)
	if err != nil {
		t.Fatalf("AESEncrypt() error = %v", err)
	}

	got, err := AESDecrypt(key, ct)
	if err != nil {
		t.Fatalf("AESDecrypt() error = %v", err)
	}
	if string(got) != string(plaintext) {
		t.Errorf("AESDecrypt() = %q, want %q", got, plaintext)
	}
}

func TestAESDecryptWrongKeyFails(t *testing.T) {
	key, _ := GenerateAESKey()
	wrongKey, _ := GenerateAESKey()

	ct, err := AESEncrypt(key, []byte("secret"))
	if err != nil {
		t.Fatalf("AESEncrypt() error = %v", err)
	}

	if _, err := AESDecrypt(wrongKey, ct); err != ErrDecryption {
		t.Errorf("AESDecrypt() error = %v, want ErrDecryption", err)
	}
}

func TestHMACConstantTimeEquality(t *testing.T) {
	key, _ := GenerateAESKey()

	h1 := HMAC(key, []byte("todo.md"))
	h2 := HMAC(key, []byte("todo.md"))
	h3 := HMAC(key, []byte("other.md"))

	if h1 != h2 {
		t.Error("HMAC() not deterministic for identical inputs")
	}
	if h1 == h3 {
		t.Error("HMAC() collided for different inputs")
	}
	if !VerifyHMAC(key, []byte("todo.md"), h1) {
		t.Error("VerifyHMAC() = false, want true")
	}
	if VerifyHMAC(key, []byte("todo.md"), h3) {
		t.Error("VerifyHMAC() = true, want false")
	}
}
