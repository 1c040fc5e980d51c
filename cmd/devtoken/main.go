// Command devtoken prints an access token for local testing.
package main

import (
	"flag"
	"fmt"
	"os"
	"time"

	"portal/internal/auth"
	"portal/internal/config"
)

func main() {
	userID := flag.Int64("user", 1, "user id to put in the token subject")
	ttl := flag.Duration("ttl", 0, "token lifetime, defaults to ACCESS_TTL")
	flag.Parse()

	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
	if cfg.Production() {
		fmt.Fprintln(os.Stderr, "refusing to mint tokens with APP_ENV=production")
		os.Exit(1)
	}
	if *ttl <= 0 {
		*ttl = cfg.AccessTTL
	}

	token, exp, err := auth.NewIssuer(cfg.JWTIssuer, cfg.JWTSigningKey, *ttl).Issue(*userID)
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
	fmt.Println(token)
	fmt.Fprintf(os.Stderr, "expires %s\n", exp.Format(time.RFC3339))
}
