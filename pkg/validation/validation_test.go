package validation

import (
	"strings"
	"testing"
)

func TestValidateURL(t *testing.T) {
	tests := []struct {
		name    string
		url     string
		wantErr bool
	}{
		{"valid https", "https://hooks.example.com/backup", false},
		{"valid http with port", "http://localhost:8080/hook", false},
		{"empty", "", true},
		{"no scheme", "hooks.example.com", true},
		{"ftp scheme", "ftp://example.com", true},
		{"no host", "https://", true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := ValidateURL(tt.url)
			if (err != nil) != tt.wantErr {
				t.Errorf("ValidateURL() error = %v, wantErr %v", err, tt.wantErr)
			}
		})
	}
}

func TestValidatePathPrefix(t *testing.T) {
	tests := []struct {
		name    string
		value   string
		wantErr bool
	}{
		{"inside upload area", "/uploads/chat/1700000000000_cat.png", false},
		{"empty", "", true},
		{"prefix only", "/uploads/chat/", true},
		{"other directory", "/reports/1/evidence.png", true},
		{"external url", "https://evil.example.com/uploads/chat/x.png", true},
		{"traversal", "/uploads/chat/../../etc/passwd", true},
		{"query string", "/uploads/chat/a.png?x=1", true},
		{"sibling prefix", "/uploads/chatty/a.png", true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := ValidatePathPrefix(tt.value, "/uploads/chat", "url")
			if (err != nil) != tt.wantErr {
				t.Errorf("ValidatePathPrefix(%q) error = %v, wantErr %v", tt.value, err, tt.wantErr)
			}
		})
	}
}

func TestValidateHost(t *testing.T) {
	tests := []struct {
		name    string
		host    string
		wantErr bool
	}{
		{"dns name", "flash.ateex.cloud", false},
		{"ipv4", "10.0.0.1", false},
		{"ipv6", "::1", false},
		{"empty", "", true},
		{"with path", "example.com/evil", true},
		{"with space", "exa mple.com", true},
		{"too long", strings.Repeat("a", 254), true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := ValidateHost(tt.host)
			if (err != nil) != tt.wantErr {
				t.Errorf("ValidateHost(%q) error = %v, wantErr %v", tt.host, err, tt.wantErr)
			}
		})
	}
}

func TestValidatePort(t *testing.T) {
	tests := []struct {
		port    string
		wantErr bool
	}{
		{"25565", false},
		{"1", false},
		{"65535", false},
		{"0", true},
		{"65536", true},
		{"abc", true},
		{"", true},
	}

	for _, tt := range tests {
		t.Run(tt.port, func(t *testing.T) {
			err := ValidatePort(tt.port)
			if (err != nil) != tt.wantErr {
				t.Errorf("ValidatePort(%q) error = %v, wantErr %v", tt.port, err, tt.wantErr)
			}
		})
	}
}

func TestValidateCategory(t *testing.T) {
	if err := ValidateCategory("updates"); err != nil {
		t.Errorf("expected valid category, got %v", err)
	}
	for _, bad := range []string{"", "Updates", "../etc", "a b", strings.Repeat("x", 33)} {
		if err := ValidateCategory(bad); err == nil {
			t.Errorf("expected error for %q", bad)
		}
	}
}

func TestValidateStringLength(t *testing.T) {
	tests := []struct {
		name    string
		s       string
		min     int
		max     int
		wantErr bool
	}{
		{"valid", "hello", 1, 10, false},
		{"too short", "hi", 3, 10, true},
		{"too long", strings.Repeat("a", 11), 1, 10, true},
		{"exact max", strings.Repeat("a", 10), 1, 10, false},
		{"runes not bytes", strings.Repeat("é", 10), 1, 10, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := ValidateStringLength(tt.s, tt.min, tt.max, "field")
			if (err != nil) != tt.wantErr {
				t.Errorf("ValidateStringLength() error = %v, wantErr %v", err, tt.wantErr)
			}
		})
	}
}

func TestValidateNonEmptyString(t *testing.T) {
	if err := ValidateNonEmptyString("  \t ", "reason"); err == nil {
		t.Error("expected error for whitespace-only string")
	}
	if err := ValidateNonEmptyString(" x ", "reason"); err != nil {
		t.Errorf("unexpected error: %v", err)
	}
}
