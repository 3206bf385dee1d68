package jwt

import (
	"context"
	"errors"
	"time"

	"github.com/go-chi/jwtauth/v5"
	"github.com/lestrrat-go/jwx/v2/jwt"
)

var ErrInvalidToken = errors.New("invalid or missing token")

// Claims is the identity carried by an access token issued by the planning
// backend.
type Claims struct {
	UserID   string
	AgencyID string
	IsAdmin  bool
}

type Service interface {
	GenerateAccessToken(c Claims, ttl time.Duration) (token string, expiresAt int64, err error)
	JWTAuth() *jwtauth.JWTAuth
}

type JWTService struct {
	tokenAuth *jwtauth.JWTAuth
}

func (j *JWTService) JWTAuth() *jwtauth.JWTAuth {
	return j.tokenAuth
}

func NewJWTService(secretKey string) Service {
	return &JWTService{
		tokenAuth: jwtauth.New("HS256", []byte(secretKey), nil, jwt.WithAcceptableSkew(30*time.Second)),
	}
}

func (j *JWTService) GenerateAccessToken(c Claims, ttl time.Duration) (token string, expiresAt int64, err error) {
	expiresAt = time.Now().Add(ttl).Unix()

	claims := map[string]interface{}{
		"user_id":   c.UserID,
		"agency_id": c.AgencyID,
		"is_admin":  c.IsAdmin,
		"type":      "access",
		"exp":       expiresAt,
	}

	_, tokenString, err := j.tokenAuth.Encode(claims)
	return tokenString, expiresAt, err
}

// FromContext reads the claims verified by jwtauth.Verifier.
func FromContext(ctx context.Context) (Claims, error) {
	_, raw, err := jwtauth.FromContext(ctx)
	if err != nil {
		return Claims{}, ErrInvalidToken
	}

	userID, ok := raw["user_id"].(string)
	if !ok || userID == "" {
		return Claims{}, ErrInvalidToken
	}

	c := Claims{UserID: userID}
	c.AgencyID, _ = raw["agency_id"].(string)
	c.IsAdmin, _ = raw["is_admin"].(bool)
	return c, nil
}
