package security

import (
	"errors"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/username/bankfolio/src/config"
)

// AuthService validates the bearer tokens issued by the account subsystem.
// This service only needs the organization context they carry; user
// registration and session management live outside this backend.
type AuthService struct {
	JWTSecret string
}

func NewAuthService(secret string) *AuthService {
	return &AuthService{
		JWTSecret: secret,
	}
}

// GenerateToken mints an access token carrying the user and organization
// claims.
func (a *AuthService) GenerateToken(userID string, organizationID int64) (string, error) {
	if config.Cfg == nil {
		return "", errors.New("configuration not loaded, cannot determine token expiry")
	}
	claims := jwt.MapClaims{
		"sub": userID,
		"org": organizationID,
		"exp": time.Now().Add(config.Cfg.AccessTokenExpiry).Unix(),
		"iat": time.Now().Unix(),
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	return token.SignedString([]byte(a.JWTSecret))
}

// ValidateToken verifies the token signature and returns the user id and
// organization id claims.
func (a *AuthService) ValidateToken(tokenString string) (string, int64, error) {
	token, err := jwt.Parse(tokenString, func(token *jwt.Token) (interface{}, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, errors.New("unexpected signing method")
		}
		return []byte(a.JWTSecret), nil
	})
	if err != nil {
		return "", 0, err
	}

	claims, ok := token.Claims.(jwt.MapClaims)
	if !ok || !token.Valid {
		return "", 0, errors.New("invalid token")
	}

	sub, ok := claims["sub"].(string)
	if !ok {
		return "", 0, errors.New("invalid token: 'sub' claim missing or not a string")
	}
	org, ok := claims["org"].(float64)
	if !ok {
		return "", 0, errors.New("invalid token: 'org' claim missing or not a number")
	}
	return sub, int64(org), nil
}
