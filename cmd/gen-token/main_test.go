package main

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/HankJediAssistant/hank-board/internal/api"
)

func TestGeneratedTokensPassBoardAuth(t *testing.T) {
	opts := tokenOptions{secret: "s3cret", audience: "hank-board", issuer: "family-idp", ttl: time.Hour}
	tokens, err := generateTokens(opts, subjects(2, "kid", nil), time.Now())
	if err != nil {
		t.Fatalf("generate: %v", err)
	}
	auth := api.NewSecretAuth("s3cret", "hank-board", "family-idp")
	for i, tok := range tokens {
		sub, err := auth.SubjectFromAuthHeader("Bearer " + tok)
		if err != nil {
			t.Fatalf("token %d rejected: %v", i, err)
		}
		if want := []string{"kid-1", "kid-2"}[i]; sub != want {
			t.Fatalf("expected %s, got %s", want, sub)
		}
	}
}

func TestGenerateTokensRequiresSecret(t *testing.T) {
	if _, err := generateTokens(tokenOptions{ttl: time.Hour}, []string{"alice"}, time.Now()); err == nil {
		t.Fatal("expected error without secret")
	}
	if _, err := generateTokens(tokenOptions{secret: "x"}, []string{"alice"}, time.Now()); err == nil {
		t.Fatal("expected error without ttl")
	}
}

func TestSubjects(t *testing.T) {
	if got := subjects(3, "ignored", []string{"alice"}); len(got) != 1 || got[0] != "alice" {
		t.Fatalf("explicit subject not used: %v", got)
	}
	if got := subjects(1, "member", nil); len(got) != 1 || got[0] != "member" {
		t.Fatalf("single subject should be the prefix: %v", got)
	}
	if got := strings.Join(subjects(3, "m", nil), ","); got != "m-1,m-2,m-3" {
		t.Fatalf("unexpected subjects %s", got)
	}
}

func TestWriteTokens(t *testing.T) {
	path := filepath.Join(t.TempDir(), "out", "tokens.json")
	if err := writeTokens(path, []string{"a", "b"}); err != nil {
		t.Fatalf("write: %v", err)
	}
	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("read: %v", err)
	}
	if string(data) != "[\"a\",\"b\"]\n" {
		t.Fatalf("unexpected file %q", data)
	}
}
