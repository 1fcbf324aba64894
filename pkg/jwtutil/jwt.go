package jwtutil

import (
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v4"
)

// Credential resolution errors. All of them map to "unauthenticated" at the
// HTTP boundary; the distinction is kept for logging and metrics.
var (
	ErrInvalidCredential = errors.New("invalid credential")
	ErrExpiredCredential = errors.New("expired credential")
)

// JWTConfig holds the signing configuration for both token kinds.
type JWTConfig struct {
	AccessSigningKey  string
	AccessExpiration  time.Duration
	RefreshSigningKey string
	RefreshExpiration time.Duration
}

// AccessClaims represents the JWT claims carried by a short-lived access token.
// Roles are embedded so the resolver knows which roles to expand; the
// permission set itself is re-fetched from the store on every request and is
// deliberately NOT part of the token.
type AccessClaims struct {
	Email    string   `json:"email"`
	UserID   uint     `json:"user_id"`
	TenantID *uint    `json:"tenant_id,omitempty"` // nil for the super administrator
	Roles    []string `json:"roles,omitempty"`
	jwt.RegisteredClaims
}

// RefreshClaims represents the JWT claims carried by a long-lived refresh
// token. It identifies the user only; tenant and roles are re-resolved when a
// new access token is issued.
type RefreshClaims struct {
	UserID uint `json:"user_id"`
	jwt.RegisteredClaims
}

// JWTUtil is a utility for JWT token operations
type JWTUtil struct {
	config *JWTConfig
}

// NewJWTUtil creates a new JWT utility with the given configuration
func NewJWTUtil(config *JWTConfig) *JWTUtil {
	return &JWTUtil{
		config: config,
	}
}

// GenerateAccessToken creates a short-lived access token carrying the user's
// identity, tenant and role claims.
func (j *JWTUtil) GenerateAccessToken(email string, userID uint, tenantID *uint, roles []string) (string, error) {
	if j.config == nil {
		return "", errors.New("JWT configuration not provided")
	}

	claims := AccessClaims{
		Email:    email,
		UserID:   userID,
		TenantID: tenantID,
		Roles:    roles,
		RegisteredClaims: jwt.RegisteredClaims{
			ExpiresAt: jwt.NewNumericDate(time.Now().Add(j.config.AccessExpiration)),
			IssuedAt:  jwt.NewNumericDate(time.Now()),
		},
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	return token.SignedString([]byte(j.config.AccessSigningKey))
}

// GenerateRefreshToken creates a long-lived refresh token for the user.
func (j *JWTUtil) GenerateRefreshToken(userID uint) (string, error) {
	if j.config == nil {
		return "", errors.New("JWT configuration not provided")
	}

	claims := RefreshClaims{
		UserID: userID,
		RegisteredClaims: jwt.RegisteredClaims{
			ExpiresAt: jwt.NewNumericDate(time.Now().Add(j.config.RefreshExpiration)),
			IssuedAt:  jwt.NewNumericDate(time.Now()),
		},
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	return token.SignedString([]byte(j.config.RefreshSigningKey))
}

// ValidateAccessToken validates and parses an access token.
func (j *JWTUtil) ValidateAccessToken(tokenString string) (*AccessClaims, error) {
	if j.config == nil {
		return nil, errors.New("JWT configuration not provided")
	}

	claims := &AccessClaims{}
	if err := j.parse(tokenString, claims, j.config.AccessSigningKey); err != nil {
		return nil, err
	}
	return claims, nil
}

// ValidateRefreshToken validates and parses a refresh token.
func (j *JWTUtil) ValidateRefreshToken(tokenString string) (*RefreshClaims, error) {
	if j.config == nil {
		return nil, errors.New("JWT configuration not provided")
	}

	claims := &RefreshClaims{}
	if err := j.parse(tokenString, claims, j.config.RefreshSigningKey); err != nil {
		return nil, err
	}
	return claims, nil
}

func (j *JWTUtil) parse(tokenString string, claims jwt.Claims, signingKey string) error {
	token, err := jwt.ParseWithClaims(
		tokenString,
		claims,
		func(token *jwt.Token) (interface{}, error) {
			// Validate the signing method
			if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
				return nil, fmt.Errorf("unexpected signing method: %v", token.Header["alg"])
			}
			return []byte(signingKey), nil
		},
	)

	if err != nil {
		if errors.Is(err, jwt.ErrTokenExpired) {
			return ErrExpiredCredential
		}
		return fmt.Errorf("%w: %v", ErrInvalidCredential, err)
	}

	if !token.Valid {
		return ErrInvalidCredential
	}

	return nil
}
