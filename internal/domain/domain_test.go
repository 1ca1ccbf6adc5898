package domain

import (
	"errors"
	"strings"
	"testing"
)

func strPtr(s string) *string { return &s }

func TestFingerprint(t *testing.T) {
	body := "Hi, I need a refund for order #123, please help urgently."
	base := Fingerprint(body, strPtr("a@b.com"), strPtr("Refund"))

	if len(base) != 64 {
		t.Fatalf("expected 64 hex chars, got %d", len(base))
	}
	if again := Fingerprint(body, strPtr("a@b.com"), strPtr("Refund")); again != base {
		t.Errorf("fingerprint not deterministic: %s != %s", again, base)
	}
	if other := Fingerprint(body, strPtr("a@b.com"), strPtr("Refund please")); other == base {
		t.Error("different subject produced the same fingerprint")
	}
	if other := Fingerprint(body, strPtr("c@d.com"), strPtr("Refund")); other == base {
		t.Error("different sender produced the same fingerprint")
	}
	if Fingerprint(body, nil, nil) != Fingerprint(body, strPtr(""), strPtr("")) {
		t.Error("absent sender/subject should hash like empty strings")
	}
}

func TestFingerprintOnlyUsesBodyPrefix(t *testing.T) {
	prefix := strings.Repeat("x", FingerprintPrefixLen)
	a := Fingerprint(prefix+" tail one", strPtr("s"), strPtr("t"))
	b := Fingerprint(prefix+" a completely different tail", strPtr("s"), strPtr("t"))
	if a != b {
		t.Error("bodies sharing the first 500 characters must collide")
	}

	c := Fingerprint(strings.Repeat("x", FingerprintPrefixLen-1)+"y", strPtr("s"), strPtr("t"))
	if c == a {
		t.Error("difference inside the prefix must change the fingerprint")
	}
}

func TestNextTicketNumber(t *testing.T) {
	tests := []struct {
		name    string
		latest  string
		want    string
		wantErr bool
	}{
		{"first ticket", "", "TKT-000001", false},
		{"increment", "TKT-000001", "TKT-000002", false},
		{"carry", "TKT-000999", "TKT-001000", false},
		{"beyond six digits", "TKT-999999", "TKT-1000000", false},
		{"missing prefix", "000005", "", true},
		{"garbage suffix", "TKT-00a1", "", true},
		{"empty digits", "TKT-", "", true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := NextTicketNumber(tt.latest)
			if (err != nil) != tt.wantErr {
				t.Fatalf("NextTicketNumber(%q) error = %v, wantErr %v", tt.latest, err, tt.wantErr)
			}
			if tt.wantErr {
				var perr *PersistenceError
				if !errors.As(err, &perr) {
					t.Errorf("expected PersistenceError, got %T", err)
				}
				if !errors.Is(err, ErrMalformedTicketNumber) {
					t.Errorf("expected ErrMalformedTicketNumber in chain, got %v", err)
				}
				return
			}
			if got != tt.want {
				t.Errorf("NextTicketNumber(%q) = %q, want %q", tt.latest, got, tt.want)
			}
		})
	}
}

func TestParseTicketStatus(t *testing.T) {
	for _, raw := range []string{"open", "in-progress", "closed"} {
		if _, err := ParseTicketStatus(raw); err != nil {
			t.Errorf("ParseTicketStatus(%q) unexpected error: %v", raw, err)
		}
	}
	for _, raw := range []string{"archived", "Open", "", "in_progress"} {
		_, err := ParseTicketStatus(raw)
		var invalid *InvalidStatusError
		if !errors.As(err, &invalid) {
			t.Errorf("ParseTicketStatus(%q) expected InvalidStatusError, got %v", raw, err)
		}
	}
}

func TestSnippetAndWordCount(t *testing.T) {
	short := "hello world"
	if got := Snippet(short, 200); got != short {
		t.Errorf("Snippet(short) = %q", got)
	}
	long := strings.Repeat("a", 250)
	got := Snippet(long, 200)
	if got != strings.Repeat("a", 200)+"..." {
		t.Errorf("Snippet(long) has length %d", len(got))
	}
	if n := WordCount("  one two\tthree\nfour "); n != 4 {
		t.Errorf("WordCount = %d, want 4", n)
	}
}
