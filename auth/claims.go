package auth

import "github.com/golang-jwt/jwt/v5"

// Claims is the JWT claims structure issued by the identity collaborator.
// It embeds jwt.RegisteredClaims for standard fields (exp, iat, etc.) and
// adds the fields embel needs to scope notes per user.
type Claims struct {
	jwt.RegisteredClaims
	UserID      string `json:"user_id"`
	Email       string `json:"email,omitempty"`
	DisplayName string `json:"display_name,omitempty"`
}
