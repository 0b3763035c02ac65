package utils

import "testing"

func TestHashPassword(t *testing.T) {
	password := "s3cret!pass"

	hash, err := HashPassword(password)
	if err != nil {
		t.Fatalf("HashPassword() error = %v", err)
	}
	if hash == "" || hash == password {
		t.Errorf("HashPassword() returned unusable hash %q", hash)
	}

	other, _ := HashPassword(password)
	if hash == other {
		t.Error("same password should produce different hashes (salt)")
	}
}

func TestCheckPassword(t *testing.T) {
	hash, _ := HashPassword("correct#1")

	tests := []struct {
		name     string
		password string
		hash     string
		expected bool
	}{
		{"correct password", "correct#1", hash, true},
		{"wrong password", "wrong#1", hash, false},
		{"empty password", "", hash, false},
		{"case sensitive", "CORRECT#1", hash, false},
		{"invalid hash", "correct#1", "invalid_hash", false},
		{"empty hash", "correct#1", "", false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := CheckPassword(tt.password, tt.hash); got != tt.expected {
				t.Errorf("CheckPassword(%q) = %v, expected %v", tt.password, got, tt.expected)
			}
		})
	}
}
