// Command token mints operator bearer tokens and admin token hashes for the
// licensecheck API.
//
//	token -subject ops@example.com -ttl 24h
//	token -hash-admin "$ADMIN_TOKEN"
package main

import (
	"flag"
	"fmt"
	"os"
	"time"

	"licensecheck/internal/platform/config"
	"licensecheck/internal/platform/middleware"
	"licensecheck/internal/platform/token"
)

func main() {
	subject := flag.String("subject", "", "operator identity to embed in the token")
	ttl := flag.Duration("ttl", 24*time.Hour, "token lifetime")
	adminToken := flag.String("hash-admin", "", "print the ADMIN_TOKEN_HASH for this admin token and exit")
	flag.Parse()

	if *adminToken != "" {
		hash, err := middleware.HashAdminToken(*adminToken)
		if err != nil {
			fail(err)
		}
		fmt.Println(hash)
		return
	}

	cfg, err := config.Load()
	if err != nil {
		fail(err)
	}
	if cfg.JWTSigningKey == "" {
		fail(fmt.Errorf("JWT_SIGNING_KEY is not set"))
	}
	if *subject == "" {
		fail(fmt.Errorf("-subject is required"))
	}

	signed, err := token.NewService(cfg.JWTSigningKey, cfg.JWTIssuer, cfg.JWTAudience).Issue(*subject, *ttl)
	if err != nil {
		fail(err)
	}
	fmt.Println(signed)
}

func fail(err error) {
	fmt.Fprintf(os.Stderr, "token: %v\n", err)
	os.Exit(1)
}
