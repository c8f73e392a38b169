package tokenizer

import "github.com/golang-jwt/jwt/v5"

// AccessClaims are the claims of an access token. The subject is the wallet address.
type AccessClaims struct {
	jwt.RegisteredClaims
}
