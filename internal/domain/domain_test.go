package domain

import (
	"strings"
	"testing"
)

func TestParseEmail(t *testing.T) {
	tests := []struct {
		name    string
		input   string
		wantErr bool
	}{
		{"valid address", "ursula@example.com", false},
		{"valid with plus tag", "ursula+news@example.com", false},
		{"empty string", "", true},
		{"whitespace only", "   ", true},
		{"missing at symbol", "ursuladomain.com", true},
		{"missing local part", "@example.com", true},
		{"display name form rejected", "Ursula <ursula@example.com>", true},
		{"embedded whitespace", "ursula le@example.com", true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := ParseEmail(tt.input)
			if tt.wantErr {
				if err == nil {
					t.Errorf("ParseEmail(%q) expected error, got %q", tt.input, got)
				}
				return
			}
			if err != nil {
				t.Fatalf("ParseEmail(%q) unexpected error: %v", tt.input, err)
			}
			if got.String() != strings.TrimSpace(tt.input) {
				t.Errorf("ParseEmail(%q) = %q", tt.input, got)
			}
		})
	}
}

func TestParseSubscriberName(t *testing.T) {
	tests := []struct {
		name    string
		input   string
		wantErr bool
	}{
		{"simple name", "Francisco", false},
		{"name at max length", strings.Repeat("ë", 256), false},
		{"name over max length", strings.Repeat("a", 257), true},
		{"empty string", "", true},
		{"whitespace only", " ", true},
		{"forward slash", "a/b", true},
		{"angle brackets", "<script>", true},
		{"braces", "{name}", true},
		{"backslash", `a\b`, true},
		{"double quote", `"name"`, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := ParseSubscriberName(tt.input)
			if (err != nil) != tt.wantErr {
				t.Errorf("ParseSubscriberName(%q) error = %v, wantErr %v", tt.input, err, tt.wantErr)
			}
		})
	}
}

func TestParseSubscriptionToken(t *testing.T) {
	tests := []struct {
		name    string
		input   string
		wantErr bool
	}{
		{"valid token", "da39a3ee5e6b4b0d3255bfef956018", false},
		{"too short", strings.Repeat("a", 20), true},
		{"too long", strings.Repeat("a", 40), true},
		{"empty string", "", true},
		{"forbidden characters", `"@#$$&/\` + strings.Repeat("a", 22), true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := ParseSubscriptionToken(tt.input)
			if (err != nil) != tt.wantErr {
				t.Errorf("ParseSubscriptionToken(%q) error = %v, wantErr %v", tt.input, err, tt.wantErr)
			}
		})
	}
}

func TestGenerateSubscriptionToken(t *testing.T) {
	tok, err := GenerateSubscriptionToken()
	if err != nil {
		t.Fatalf("GenerateSubscriptionToken() error: %v", err)
	}

	// Generated tokens must round-trip through the parser.
	if _, err := ParseSubscriptionToken(tok.String()); err != nil {
		t.Errorf("generated token %q failed to parse: %v", tok, err)
	}

	other, err := GenerateSubscriptionToken()
	if err != nil {
		t.Fatalf("GenerateSubscriptionToken() error: %v", err)
	}
	if tok.String() == other.String() {
		t.Error("expected two generated tokens to differ")
	}
}
