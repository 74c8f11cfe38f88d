package store

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/golang-jwt/jwt/v5"

	"oversee-cli/internal/model"
)

// UserFromToken reads the user out of a JWT without verifying it; the server
// does that on every request. It looks at cd_usu/nome first and sub/name next.
func UserFromToken(token string) (model.User, error) {
	claims := jwt.MapClaims{}
	if _, _, err := jwt.NewParser().ParseUnverified(strings.TrimSpace(token), claims); err != nil {
		return model.User{}, fmt.Errorf("parse token: %w", err)
	}
	u := model.User{
		ID:   firstClaim(claims, "cd_usu", "sub"),
		Name: firstClaim(claims, "nome", "name"),
	}
	if u.ID == "" {
		return model.User{}, fmt.Errorf("token has no user id (cd_usu or sub)")
	}
	return u, nil
}

func firstClaim(claims jwt.MapClaims, keys ...string) string {
	for _, k := range keys {
		switch v := claims[k].(type) {
		case string:
			if s := strings.TrimSpace(v); s != "" {
				return s
			}
		case float64:
			return strconv.FormatFloat(v, 'f', -1, 64)
		}
	}
	return ""
}
