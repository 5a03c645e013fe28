package phi

import (
	"crypto/rand"
	"encoding/hex"
	"strings"
	"testing"

	"github.com/rs/zerolog"
)

func generateTestKey(t *testing.T) []byte {
	t.Helper()
	key := make([]byte, 32)
	if _, err := rand.Read(key); err != nil {
		t.Fatalf("generate test key: %v", err)
	}
	return key
}

func newTestEncryptor(t *testing.T) *Encryptor {
	t.Helper()
	enc, err := NewEncryptor(generateTestKey(t))
	if err != nil {
		t.Fatalf("create encryptor: %v", err)
	}
	return enc
}

func TestNewEncryptor_KeyLength(t *testing.T) {
	tests := []struct {
		name    string
		size    int
		wantErr bool
	}{
		{"32 bytes", 32, false},
		{"too short", 16, true},
		{"too long", 64, true},
		{"empty", 0, true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := NewEncryptor(make([]byte, tt.size))
			if (err != nil) != tt.wantErr {
				t.Errorf("NewEncryptor(%d bytes) error = %v, wantErr %v", tt.size, err, tt.wantErr)
			}
		})
	}
}

func TestEncryptDecrypt(t *testing.T) {
	enc := newTestEncryptor(t)

	cases := []string{
		"9876543210",
		"12 MG Road, Bengaluru 560001",
		"Dr. Anil Sharma\nPatient: Ravi Kumar\n1. Crocin Tab 650 mg bd",
		"",
	}
	for _, plaintext := range cases {
		t.Run(plaintext, func(t *testing.T) {
			ciphertext, err := enc.Encrypt(plaintext)
			if err != nil {
				t.Fatalf("encrypt: %v", err)
			}
			if ciphertext == "" || ciphertext == plaintext {
				t.Fatalf("unexpected ciphertext %q", ciphertext)
			}
			decrypted, err := enc.Decrypt(ciphertext)
			if err != nil {
				t.Fatalf("decrypt: %v", err)
			}
			if decrypted != plaintext {
				t.Errorf("roundtrip failed: got %q, want %q", decrypted, plaintext)
			}
		})
	}
}

func TestEncryptProducesDifferentCiphertexts(t *testing.T) {
	enc := newTestEncryptor(t)

	ct1, _ := enc.Encrypt("9876543210")
	ct2, _ := enc.Encrypt("9876543210")
	if ct1 == ct2 {
		t.Error("expected unique nonces to give different ciphertexts")
	}
}

func TestDecryptInvalidInput(t *testing.T) {
	enc := newTestEncryptor(t)

	t.Run("not base64", func(t *testing.T) {
		if _, err := enc.Decrypt("not-valid-base64!!!"); err == nil {
			t.Fatal("expected error for invalid base64")
		}
	})

	t.Run("too short", func(t *testing.T) {
		if _, err := enc.Decrypt("AQID"); err == nil {
			t.Fatal("expected error for short ciphertext")
		}
	})

	t.Run("wrong key", func(t *testing.T) {
		ciphertext, err := enc.Encrypt("12 MG Road")
		if err != nil {
			t.Fatalf("encrypt: %v", err)
		}
		if _, err := newTestEncryptor(t).Decrypt(ciphertext); err == nil {
			t.Fatal("expected error when decrypting with wrong key")
		}
	})
}

func TestNewService_Disabled(t *testing.T) {
	svc, err := NewService("", zerolog.Nop())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if svc.Enabled() {
		t.Fatal("expected encryption disabled")
	}

	got, err := svc.EncryptField("9876543210")
	if err != nil || got != "9876543210" {
		t.Errorf("expected passthrough, got %q, %v", got, err)
	}
	got, err = svc.DecryptField("9876543210")
	if err != nil || got != "9876543210" {
		t.Errorf("expected passthrough, got %q, %v", got, err)
	}
}

func TestNewService_Enabled(t *testing.T) {
	svc, err := NewService(hex.EncodeToString(generateTestKey(t)), zerolog.Nop())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !svc.Enabled() {
		t.Fatal("expected encryption enabled")
	}

	ct, err := svc.EncryptField("12 MG Road")
	if err != nil {
		t.Fatalf("encrypt: %v", err)
	}
	if ct == "12 MG Road" {
		t.Fatal("expected the value to be encrypted")
	}
	pt, err := svc.DecryptField(ct)
	if err != nil || pt != "12 MG Road" {
		t.Errorf("expected roundtrip, got %q, %v", pt, err)
	}
}

func TestNewService_InvalidKey(t *testing.T) {
	tests := []struct {
		name string
		key  string
		want string
	}{
		{"not hex", "zz" + strings.Repeat("0", 62), "not valid hex"},
		{"short", hex.EncodeToString(make([]byte, 16)), "must be 32 bytes"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := NewService(tt.key, zerolog.Nop())
			if err == nil || !strings.Contains(err.Error(), tt.want) {
				t.Errorf("expected error containing %q, got %v", tt.want, err)
			}
		})
	}
}
