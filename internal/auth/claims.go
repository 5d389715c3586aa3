package auth

import "github.com/golang-jwt/jwt/v5"

type TokenType string

const (
	TokenTypeAccess TokenType = "access"
)

// Claims is the token shape issued by the API gateway. The rating engine only
// verifies tokens; it never decides who a caller is beyond these claims.
type Claims struct {
	jwt.RegisteredClaims

	UserID    string    `json:"user_id"`
	Roles     []string  `json:"roles"`
	TokenType TokenType `json:"token_type"`
}

func (c Claims) Info() Info {
	roles := make([]string, len(c.Roles))
	copy(roles, c.Roles)
	return Info{UserID: c.UserID, Roles: roles}
}
