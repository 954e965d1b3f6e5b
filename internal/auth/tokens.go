package auth

import (
	"errors"
	"fmt"
	"time"

	"shop-api/internal/models"

	"github.com/golang-jwt/jwt/v5"
)

const (
	TokenTypeAccess  = "access"
	TokenTypeRefresh = "refresh"
)

// ErrInvalidToken covers malformed, expired, wrongly signed and wrong-type tokens
var ErrInvalidToken = errors.New("invalid token")

// Claims carried by both access and refresh tokens
type Claims struct {
	UserID    int64  `json:"user_id"`
	Username  string `json:"username"`
	TokenType string `json:"token_type"`
	jwt.RegisteredClaims
}

// TokenPair is returned on register and login
type TokenPair struct {
	Access  string
	Refresh string
}

type TokenIssuer struct {
	secret     []byte
	accessTTL  time.Duration
	refreshTTL time.Duration
	now        func() time.Time
}

func NewTokenIssuer(secret string, accessTTL, refreshTTL time.Duration) *TokenIssuer {
	return &TokenIssuer{
		secret:     []byte(secret),
		accessTTL:  accessTTL,
		refreshTTL: refreshTTL,
		now:        time.Now,
	}
}

// IssuePair signs a fresh access and refresh token for the user
func (ti *TokenIssuer) IssuePair(u *models.User) (TokenPair, error) {
	access, err := ti.sign(u.ID, u.Username, TokenTypeAccess, ti.accessTTL)
	if err != nil {
		return TokenPair{}, err
	}
	refresh, err := ti.sign(u.ID, u.Username, TokenTypeRefresh, ti.refreshTTL)
	if err != nil {
		return TokenPair{}, err
	}
	return TokenPair{Access: access, Refresh: refresh}, nil
}

// Refresh exchanges a valid refresh token for a new access token
func (ti *TokenIssuer) Refresh(refreshToken string) (string, error) {
	claims, err := ti.parse(refreshToken, TokenTypeRefresh)
	if err != nil {
		return "", err
	}
	return ti.sign(claims.UserID, claims.Username, TokenTypeAccess, ti.accessTTL)
}

// ParseAccess validates an access token and returns the caller identity
func (ti *TokenIssuer) ParseAccess(token string) (models.Identity, error) {
	claims, err := ti.parse(token, TokenTypeAccess)
	if err != nil {
		return models.Identity{}, err
	}
	return models.Identity{UserID: claims.UserID, Username: claims.Username}, nil
}

func (ti *TokenIssuer) sign(userID int64, username, tokenType string, ttl time.Duration) (string, error) {
	issuedAt := ti.now()
	claims := &Claims{
		UserID:    userID,
		Username:  username,
		TokenType: tokenType,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   fmt.Sprint(userID),
			IssuedAt:  jwt.NewNumericDate(issuedAt),
			ExpiresAt: jwt.NewNumericDate(issuedAt.Add(ttl)),
		},
	}

	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(ti.secret)
	if err != nil {
		return "", fmt.Errorf("failed to sign token: %w", err)
	}
	return signed, nil
}

func (ti *TokenIssuer) parse(raw, wantType string) (*Claims, error) {
	claims := &Claims{}
	token, err := jwt.ParseWithClaims(raw, claims,
		func(t *jwt.Token) (interface{}, error) {
			return ti.secret, nil
		},
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithTimeFunc(ti.now),
	)
	if err != nil || !token.Valid {
		return nil, ErrInvalidToken
	}
	if claims.TokenType != wantType || claims.UserID == 0 {
		return nil, ErrInvalidToken
	}
	return claims, nil
}
