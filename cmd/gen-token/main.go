// Command gen-token mints HS256 bearer tokens for the board write routes.
package main

import (
	"errors"
	"flag"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/bytedance/sonic"
	"github.com/golang-jwt/jwt/v4"
	"github.com/joho/godotenv"
	log "github.com/sirupsen/logrus"
)

type tokenOptions struct {
	secret   string
	audience string
	issuer   string
	ttl      time.Duration
}

func main() {
	_ = godotenv.Load()

	var (
		count    = flag.Int("count", 1, "number of tokens to generate")
		prefix   = flag.String("prefix", "member", "prefix for generated subjects when count > 1")
		ttl      = flag.Duration("ttl", 24*time.Hour, "token lifetime")
		audience = flag.String("audience", os.Getenv("AUTH_AUDIENCE"), "aud claim")
		issuer   = flag.String("issuer", os.Getenv("AUTH_ISSUER"), "iss claim")
		output   = flag.String("output", "", "file to write generated tokens as a JSON array")
	)
	flag.Parse()

	if *count < 1 {
		log.Fatal("count must be at least 1")
	}
	args := flag.Args()
	if len(args) > 0 && *count > 1 {
		log.Fatal("explicit subject cannot be provided when generating multiple tokens")
	}

	opts := tokenOptions{
		secret:   os.Getenv("AUTH_SECRET"),
		audience: *audience,
		issuer:   *issuer,
		ttl:      *ttl,
	}
	tokens, err := generateTokens(opts, subjects(*count, *prefix, args), time.Now())
	if err != nil {
		log.Fatalf("generate token: %v", err)
	}

	if *output != "" {
		if err := writeTokens(*output, tokens); err != nil {
			log.Fatalf("write tokens: %v", err)
		}
	}
	fmt.Print(tokens[0])
}

func subjects(count int, prefix string, args []string) []string {
	if len(args) > 0 {
		return []string{args[0]}
	}
	if count == 1 {
		return []string{prefix}
	}
	out := make([]string, count)
	for i := range out {
		out[i] = fmt.Sprintf("%s-%d", prefix, i+1)
	}
	return out
}

func generateTokens(opts tokenOptions, subs []string, now time.Time) ([]string, error) {
	if opts.secret == "" {
		return nil, errors.New("AUTH_SECRET must be set")
	}
	if opts.ttl <= 0 {
		return nil, errors.New("ttl must be positive")
	}
	tokens := make([]string, len(subs))
	for i, sub := range subs {
		claims := jwt.MapClaims{
			"sub": sub,
			"iat": now.Unix(),
			"exp": now.Add(opts.ttl).Unix(),
		}
		if opts.audience != "" {
			claims["aud"] = opts.audience
		}
		if opts.issuer != "" {
			claims["iss"] = opts.issuer
		}
		tok, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte(opts.secret))
		if err != nil {
			return nil, err
		}
		tokens[i] = tok
	}
	return tokens, nil
}

func writeTokens(path string, tokens []string) error {
	if dir := filepath.Dir(path); dir != "." && dir != "" {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return err
		}
	}
	data, err := sonic.Marshal(tokens)
	if err != nil {
		return err
	}
	return os.WriteFile(path, append(data, '\n'), 0o600)
}
