// Copyright (c) 2025-2026 Oleg Ivanchenko
// SPDX-License-Identifier: GPL-3.0-or-later

package util

import (
	"path/filepath"
	"testing"
)

func TestSafeJoinPath(t *testing.T) {
	base := t.TempDir()

	tests := []struct {
		name       string
		components []string
		want       string
		wantErr    bool
	}{
		{"simple file", []string{"qr-1-promo.png"}, filepath.Join(base, "qr-1-promo.png"), false},
		{"subdirectory", []string{"png", "a.png"}, filepath.Join(base, "png", "a.png"), false},
		{"traversal", []string{"..", "etc", "passwd"}, "", true},
		{"sneaky traversal", []string{"png", "..", "..", "x"}, "", true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := SafeJoinPath(base, tt.components...)
			if (err != nil) != tt.wantErr {
				t.Fatalf("SafeJoinPath() error = %v, wantErr %v", err, tt.wantErr)
			}
			if !tt.wantErr && got != tt.want {
				t.Errorf("SafeJoinPath() = %q, want %q", got, tt.want)
			}
		})
	}
}

func TestValidatePathWithinBase_PrefixSibling(t *testing.T) {
	base := filepath.Join(t.TempDir(), "qr-codes")
	if err := ValidatePathWithinBase(base, base+"-evil/x.png"); err == nil {
		t.Error("sibling directory sharing a prefix must be rejected")
	}
	if err := ValidatePathWithinBase(base, base); err != nil {
		t.Errorf("base itself should be allowed: %v", err)
	}
}
