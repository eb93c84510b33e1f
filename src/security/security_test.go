package security

import "testing"

func TestEncryptDecryptRoundTrips(t *testing.T) {
	cfg := GetConfig()

	encrypted, err := EncryptString(cfg, `{"temperature": 0.5}`)
	if err != nil {
		t.Fatalf("unexpected err: %v", err)
	}
	if encrypted == "" {
		t.Fatal("expected non-empty ciphertext")
	}

	decrypted, err := DecryptString(cfg, encrypted)
	if err != nil {
		t.Fatalf("unexpected err: %v", err)
	}
	if decrypted != `{"temperature": 0.5}` {
		t.Fatalf("decrypted = %q", decrypted)
	}
}

func TestDecryptEmptyStringIsEmpty(t *testing.T) {
	cfg := GetConfig()
	decrypted, err := DecryptString(cfg, "")
	if err != nil {
		t.Fatalf("unexpected err: %v", err)
	}
	if decrypted != "" {
		t.Fatalf("decrypted = %q, want empty", decrypted)
	}
}

func TestDecryptRejectsTamperedCiphertext(t *testing.T) {
	cfg := GetConfig()
	encrypted, err := EncryptString(cfg, "secret")
	if err != nil {
		t.Fatalf("unexpected err: %v", err)
	}

	first := "A"
	if encrypted[0] == 'A' {
		first = "B"
	}
	tampered := first + encrypted[1:]
	if _, err := DecryptString(cfg, tampered); err == nil {
		t.Fatal("expected tampered ciphertext to fail authentication")
	}
}
