package store

import (
	"errors"
	"strings"
	"testing"
)

func TestValidateKey(t *testing.T) {
	tests := []struct {
		name    string
		key     string
		wantErr bool
	}{
		{"simple", "accounts", false},
		{"with separators", "offline_queue", false},
		{"max length", strings.Repeat("a", 250), false},
		{"empty", "", true},
		{"too long", strings.Repeat("a", 251), true},
		{"control character", "key\x00", true},
		{"newline", "key\n", true},
		{"leading whitespace", " key", true},
		{"trailing whitespace", "key ", true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := ValidateKey(tt.key)
			if tt.wantErr {
				if !errors.Is(err, ErrInvalidKey) {
					t.Errorf("Expected ErrInvalidKey, got %v", err)
				}
				return
			}
			if err != nil {
				t.Errorf("Expected valid key, got %v", err)
			}
		})
	}
}
