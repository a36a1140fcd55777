package util

import "testing"

func TestSlugify(t *testing.T) {
	tests := []struct {
		name     string
		input    string
		expected string
	}{
		{"simple path", "promo", "promo"},
		{"nested path", "blog/2024/launch", "blog-2024-launch"},
		{"query kept as text", "go?utm=mail", "go-utm-mail"},
		{"accents", "café-résumé", "cafe-resume"},
		{"cyrillic", "привет", "privet"},
		{"leading and trailing", "/Contact-Us/", "contact-us"},
		{"only symbols", "???", ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := Slugify(tt.input); got != tt.expected {
				t.Errorf("Slugify(%q) = %q, want %q", tt.input, got, tt.expected)
			}
		})
	}
}
