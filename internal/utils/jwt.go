package utils

import (
	"errors"

	"github.com/golang-jwt/jwt/v5"
)

// ProjectTokenClaims carries the identity upstream auth minted for a
// project session. The sync service uses it for identity only; ACL
// enforcement stays upstream.
type ProjectTokenClaims struct {
	ProjectID   string `json:"projectId"`
	UserID      string `json:"userId"`
	DisplayName string `json:"displayName,omitempty"`
	jwt.RegisteredClaims
}

// ValidateProjectToken validates a JWT token and returns the claims.
func ValidateProjectToken(tokenString string, secret []byte) (*ProjectTokenClaims, error) {
	token, err := jwt.ParseWithClaims(tokenString, &ProjectTokenClaims{}, func(token *jwt.Token) (interface{}, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, errors.New("unexpected signing method")
		}
		return secret, nil
	})
	if err != nil {
		return nil, err
	}
	return token.Claims.(*ProjectTokenClaims), nil
}
