package cryptoutil

import (
	"bytes"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"strings"
	"testing"
)

func TestSHA256Hex_KnownVector(t *testing.T) {
	want := "e3b0c44298fc1c149afbf4c8996fb92427ae41e4649b934ca495991b7852b855"
	if got := SHA256Hex([]byte{}); got != want {
		t.Fatalf("SHA256Hex(empty) = %q, want %q", got, want)
	}
}

func TestSHA256Hex_MatchesStdlib(t *testing.T) {
	data := []byte("<html></html>")
	h := sha256.Sum256(data)
	if got, want := SHA256Hex(data), hex.EncodeToString(h[:]); got != want {
		t.Fatalf("SHA256Hex = %q, want %q", got, want)
	}
}

func TestSHA256Reader(t *testing.T) {
	data := bytes.Repeat([]byte("abc"), 10000)

	hash, n, err := SHA256Reader(bytes.NewReader(data))
	if err != nil {
		t.Fatalf("SHA256Reader: %v", err)
	}
	if n != int64(len(data)) {
		t.Fatalf("n = %d, want %d", n, len(data))
	}
	if hash != SHA256Hex(data) {
		t.Fatalf("hash = %q, want %q", hash, SHA256Hex(data))
	}
}

type failingReader struct{}

func (failingReader) Read([]byte) (int, error) { return 0, errors.New("connection reset") }

func TestSHA256Reader_Error(t *testing.T) {
	hash, _, err := SHA256Reader(failingReader{})
	if err == nil {
		t.Fatal("expected error")
	}
	if hash != "" {
		t.Fatalf("hash should be empty on error, got %q", hash)
	}
}

func TestHashEqual(t *testing.T) {
	h := SHA256Hex([]byte("x"))
	tests := []struct {
		name string
		a, b string
		want bool
	}{
		{"identical", h, h, true},
		{"case insensitive", h, strings.ToUpper(h), true},
		{"different", h, SHA256Hex([]byte("y")), false},
		{"prefix", h, h[:12], false},
		{"both empty", "", "", true},
		{"one empty", h, "", false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := HashEqual(tt.a, tt.b); got != tt.want {
				t.Fatalf("HashEqual = %v, want %v", got, tt.want)
			}
		})
	}
}

func FuzzHashEqual(f *testing.F) {
	f.Add("abc", "abc")
	f.Add("abc", "ABC")
	f.Add("abc", "abd")

	f.Fuzz(func(t *testing.T, a, b string) {
		// INVARIANT: agrees with a case-folded equality check
		want := strings.ToLower(a) == strings.ToLower(b)
		if got := HashEqual(a, b); got != want {
			t.Fatalf("HashEqual(%q, %q) = %v, want %v", a, b, got, want)
		}
	})
}
