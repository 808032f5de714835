package internal

import "testing"

func TestNewNumericCodeLengthAndCharset(t *testing.T) {
	for i := 0; i < 50; i++ {
		code, err := NewNumericCode(6)
		if err != nil {
			t.Fatalf("NewNumericCode failed: %v", err)
		}
		if len(code) != 6 {
			t.Fatalf("expected 6 digits, got %q", code)
		}
		for j := 0; j < len(code); j++ {
			if code[j] < '0' || code[j] > '9' {
				t.Fatalf("non-digit character in code %q", code)
			}
		}
	}
}

func TestNewNumericCodeRejectsBadLength(t *testing.T) {
	if _, err := NewNumericCode(3); err == nil {
		t.Fatal("expected error for 3-digit request")
	}
	if _, err := NewNumericCode(11); err == nil {
		t.Fatal("expected error for 11-digit request")
	}
}

func TestNewResetCodeShape(t *testing.T) {
	seen := map[string]bool{}
	for i := 0; i < 50; i++ {
		code := NewResetCode()
		if len(code) != 6 {
			t.Fatalf("expected 6 characters, got %q", code)
		}
		for j := 0; j < len(code); j++ {
			c := code[j]
			if !(c >= '0' && c <= '9') && !(c >= 'A' && c <= 'Z') {
				t.Fatalf("unexpected character in reset code %q", code)
			}
		}
		seen[code] = true
	}
	if len(seen) < 2 {
		t.Fatal("reset codes do not vary")
	}
}

func TestCodeMatches(t *testing.T) {
	digest := HashCode("483921")
	if !CodeMatches("483921", digest) {
		t.Fatal("expected matching code to verify")
	}
	if CodeMatches("483922", digest) {
		t.Fatal("expected mismatched code to fail")
	}
}
