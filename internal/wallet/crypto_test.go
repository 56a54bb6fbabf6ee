package wallet

import (
	"path/filepath"
	"testing"
)

func testMnemonic(t *testing.T) string {
	t.Helper()
	m, err := GenerateMnemonic()
	if err != nil {
		t.Fatalf("GenerateMnemonic() error = %v", err)
	}
	return m
}

func TestEncryptDecryptMnemonicRoundTrip(t *testing.T) {
	mnemonic := testMnemonic(t)

	enc, err := EncryptMnemonic(mnemonic, "correct horse battery staple")
	if err != nil {
		t.Fatalf("EncryptMnemonic() error = %v", err)
	}
	if len(enc.Ciphertext) == 0 || len(enc.Salt) == 0 || len(enc.Nonce) == 0 {
		t.Fatal("EncryptMnemonic() produced an empty field")
	}

	decrypted, err := DecryptMnemonic(enc, "correct horse battery staple")
	if err != nil {
		t.Fatalf("DecryptMnemonic() error = %v", err)
	}
	if decrypted != mnemonic {
		t.Errorf("DecryptMnemonic() = %q, want %q", decrypted, mnemonic)
	}
}

func TestDecryptMnemonicWrongPassword(t *testing.T) {
	mnemonic := testMnemonic(t)
	enc, err := EncryptMnemonic(mnemonic, "correct horse battery staple")
	if err != nil {
		t.Fatalf("EncryptMnemonic() error = %v", err)
	}

	if _, err := DecryptMnemonic(enc, "wrong password"); err == nil {
		t.Error("DecryptMnemonic() with wrong password: want error, got nil")
	}
}

func TestEncryptMnemonicRejectsInvalidMnemonic(t *testing.T) {
	if _, err := EncryptMnemonic("not a valid bip39 mnemonic", "password"); err == nil {
		t.Error("EncryptMnemonic() with invalid mnemonic: want error, got nil")
	}
}

func TestSaveAndLoadEncryptedSeed(t *testing.T) {
	mnemonic := testMnemonic(t)
	enc, err := EncryptMnemonic(mnemonic, "password123")
	if err != nil {
		t.Fatalf("EncryptMnemonic() error = %v", err)
	}

	path := filepath.Join(t.TempDir(), "seed.json")
	if err := SaveEncryptedSeed(enc, path); err != nil {
		t.Fatalf("SaveEncryptedSeed() error = %v", err)
	}

	loaded, err := LoadEncryptedSeed(path)
	if err != nil {
		t.Fatalf("LoadEncryptedSeed() error = %v", err)
	}

	decrypted, err := DecryptMnemonic(loaded, "password123")
	if err != nil {
		t.Fatalf("DecryptMnemonic() on loaded seed error = %v", err)
	}
	if decrypted != mnemonic {
		t.Errorf("round-tripped mnemonic = %q, want %q", decrypted, mnemonic)
	}
}
