package horosafe

import (
	"bytes"
	"strings"
	"testing"
)

func TestValidateSecret(t *testing.T) {
	if err := ValidateSecret([]byte("short")); err == nil {
		t.Fatal("expected error for short secret")
	}
	if err := ValidateSecret(bytes.Repeat([]byte("a"), MinSecretLen)); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
}

func TestSecretEqual(t *testing.T) {
	if !SecretEqual("s3cret", "s3cret") {
		t.Fatal("equal secrets must match")
	}
	if SecretEqual("s3cret", "other") {
		t.Fatal("different secrets must not match")
	}
	if SecretEqual("", "") {
		t.Fatal("empty configured secret must never match")
	}
}

func TestValidateURL(t *testing.T) {
	cases := []struct {
		url string
		ok  bool
	}{
		{"https://api.worldbank.org/v2/country", true},
		{"http://example.com/data.csv", true},
		{"ftp://example.com/x", false},
		{"https://127.0.0.1/admin", false},
		{"https://192.168.1.10/", false},
		{"https://[::1]/", false},
		{"", false},
	}
	for _, c := range cases {
		err := ValidateURL(c.url)
		if c.ok && err != nil {
			t.Errorf("ValidateURL(%q): unexpected error %v", c.url, err)
		}
		if !c.ok && err == nil {
			t.Errorf("ValidateURL(%q): expected error", c.url)
		}
	}
}

func TestValidateSlug(t *testing.T) {
	for _, good := range []string{"co2-emissions", "bitcoin-price", "x"} {
		if err := ValidateSlug(good); err != nil {
			t.Errorf("ValidateSlug(%q): %v", good, err)
		}
	}
	for _, bad := range []string{"", "UPPER", "has space", "semi;colon", strings.Repeat("a", 65)} {
		if err := ValidateSlug(bad); err == nil {
			t.Errorf("ValidateSlug(%q): expected error", bad)
		}
	}
}

func TestLimitedReadAll(t *testing.T) {
	data, err := LimitedReadAll(strings.NewReader("hello"), 10)
	if err != nil || string(data) != "hello" {
		t.Fatalf("got %q, %v", data, err)
	}
	if _, err := LimitedReadAll(strings.NewReader("0123456789AB"), 10); err == nil {
		t.Fatal("expected error for oversized body")
	}
}
