// internal/utils/jwt.go
package utils

import (
	"errors"
	"time"

	"github.com/golang-jwt/jwt/v4"
	"github.com/google/uuid"
)

// JWTClaims are issued by the municipal identity provider. The service only
// verifies them; GenerateJWT exists for tooling and tests.
type JWTClaims struct {
	UserID       string `json:"user_id"`
	DepartmentID string `json:"department_id"`
	Role         string `json:"role"`
	jwt.RegisteredClaims
}

// User and Department parse the identity ids; ValidateJWT guarantees both
// are UUIDs.
func (c *JWTClaims) User() (uuid.UUID, error) {
	return uuid.Parse(c.UserID)
}

func (c *JWTClaims) Department() (uuid.UUID, error) {
	return uuid.Parse(c.DepartmentID)
}

// Roles recognised by the admin routes.
const (
	RoleAdmin = "admin"
)

var (
	jwtSecret = []byte("your-secret-key-change-in-production")
	jwtIssuer = "municipal-idp"
)

func SetJWTSecret(secret string) {
	jwtSecret = []byte(secret)
}

func SetJWTIssuer(issuer string) {
	jwtIssuer = issuer
}

func GenerateJWT(userID, departmentID uuid.UUID, role string, ttlHours int) (string, error) {
	claims := JWTClaims{
		UserID:       userID.String(),
		DepartmentID: departmentID.String(),
		Role:         role,
		RegisteredClaims: jwt.RegisteredClaims{
			ExpiresAt: jwt.NewNumericDate(time.Now().Add(time.Duration(ttlHours) * time.Hour)),
			IssuedAt:  jwt.NewNumericDate(time.Now()),
			NotBefore: jwt.NewNumericDate(time.Now()),
			Issuer:    jwtIssuer,
			Subject:   userID.String(),
		},
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	return token.SignedString(jwtSecret)
}

func ValidateJWT(tokenString string) (*JWTClaims, error) {
	token, err := jwt.ParseWithClaims(tokenString, &JWTClaims{}, func(token *jwt.Token) (interface{}, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, errors.New("unexpected signing method")
		}
		return jwtSecret, nil
	})

	if err != nil {
		return nil, err
	}

	claims, ok := token.Claims.(*JWTClaims)
	if !ok || !token.Valid {
		return nil, errors.New("invalid token")
	}
	if !claims.VerifyIssuer(jwtIssuer, true) {
		return nil, errors.New("unexpected token issuer")
	}
	if _, err := uuid.Parse(claims.UserID); err != nil {
		return nil, errors.New("token user_id is not a UUID")
	}
	if _, err := uuid.Parse(claims.DepartmentID); err != nil {
		return nil, errors.New("token department_id is not a UUID")
	}
	return claims, nil
}
