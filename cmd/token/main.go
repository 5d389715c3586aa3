// Command token signs an access token for local development against the
// rating API. Production tokens are issued by the gateway.
package main

import (
	"flag"
	"fmt"
	"os"
	"strings"
	"time"

	"telecom-rating/internal/auth"
	"telecom-rating/internal/config"

	"github.com/joho/godotenv"
)

func main() {
	user := flag.String("user", "local-admin", "user id placed in the token")
	roles := flag.String("roles", "rating_admin", "comma separated roles")
	ttl := flag.Duration("ttl", time.Hour, "token lifetime")
	flag.Parse()

	_ = godotenv.Load()

	m, err := auth.NewManager(config.AuthConfig{
		JWTSecret:      os.Getenv("JWT_SECRET"),
		JWTIssuer:      os.Getenv("JWT_ISSUER"),
		JWTAudience:    os.Getenv("JWT_AUDIENCE"),
		AccessTokenTTL: *ttl,
	})
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}

	var rs []string
	for _, r := range strings.Split(*roles, ",") {
		if r = strings.TrimSpace(r); r != "" {
			rs = append(rs, r)
		}
	}
	tok, err := m.Issue(time.Now(), auth.Info{UserID: *user, Roles: rs})
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
	fmt.Println(tok)
}
