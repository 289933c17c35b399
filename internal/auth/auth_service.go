// Package auth 签发与校验 Portify 的 RS256 令牌，并配置 Google 登录。
package auth

import (
	"crypto/rsa"
	"errors"
	"fmt"
	"os"
	"strconv"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"

	"portify/internal/config"
)

const (
	TokenTypeAccess  = "access"
	TokenTypeRefresh = "refresh"

	issuer = "portify"
)

// ErrInvalidToken 包装所有校验失败的原因；调用方只需区分有效与无效。
var ErrInvalidToken = errors.New("invalid token")

// AuthService 只负责令牌，账号身份由 Google OAuth 建立。
type AuthService struct {
	signKey    *rsa.PrivateKey
	verifyKey  *rsa.PublicKey
	parser     *jwt.Parser
	accessTTL  time.Duration
	refreshTTL time.Duration
}

type TokenPair struct {
	AccessToken  string
	RefreshToken string
}

// TokenClaims 是中间件与刷新流程读取的载荷；刷新令牌的 jti 用于拉黑。
type TokenClaims struct {
	AccountID uint   `json:"account_id"`
	Email     string `json:"email,omitempty"`
	TokenType string `json:"token_type"`
	jwt.RegisteredClaims
}

func NewAuthService(privateKeyPEM, publicKeyPEM []byte, accessTTL, refreshTTL time.Duration) (*AuthService, error) {
	if len(privateKeyPEM) == 0 || len(publicKeyPEM) == 0 {
		return nil, errors.New("both rsa private and public key pem are required")
	}
	signKey, err := jwt.ParseRSAPrivateKeyFromPEM(privateKeyPEM)
	if err != nil {
		return nil, fmt.Errorf("parse rsa private key: %w", err)
	}
	verifyKey, err := jwt.ParseRSAPublicKeyFromPEM(publicKeyPEM)
	if err != nil {
		return nil, fmt.Errorf("parse rsa public key: %w", err)
	}

	return &AuthService{
		signKey:   signKey,
		verifyKey: verifyKey,
		parser: jwt.NewParser(
			jwt.WithValidMethods([]string{jwt.SigningMethodRS256.Alg()}),
			jwt.WithIssuer(issuer),
			jwt.WithExpirationRequired(),
		),
		accessTTL:  accessTTL,
		refreshTTL: refreshTTL,
	}, nil
}

// NewAuthServiceFromConfig 从 JWT_PRIVATE_KEY_PATH / JWT_PUBLIC_KEY_PATH 读取密钥。
func NewAuthServiceFromConfig(cfg config.JWTConfig) (*AuthService, error) {
	privatePEM, err := os.ReadFile(cfg.PrivateKeyPath)
	if err != nil {
		return nil, fmt.Errorf("read jwt private key: %w", err)
	}
	publicPEM, err := os.ReadFile(cfg.PublicKeyPath)
	if err != nil {
		return nil, fmt.Errorf("read jwt public key: %w", err)
	}
	return NewAuthService(privatePEM, publicPEM, cfg.AccessTokenTTL, cfg.RefreshTokenTTL)
}

// GenerateTokenPair 为账号签发一对令牌。
func (s *AuthService) GenerateTokenPair(accountID uint, email string) (TokenPair, error) {
	now := time.Now()
	access, err := s.sign(s.claims(accountID, email, TokenTypeAccess, now))
	if err != nil {
		return TokenPair{}, err
	}
	refresh, err := s.sign(s.claims(accountID, email, TokenTypeRefresh, now))
	if err != nil {
		return TokenPair{}, err
	}
	return TokenPair{AccessToken: access, RefreshToken: refresh}, nil
}

func (s *AuthService) claims(accountID uint, email, tokenType string, now time.Time) TokenClaims {
	ttl := s.accessTTL
	var jti string
	if tokenType == TokenTypeRefresh {
		ttl = s.refreshTTL
		jti = uuid.NewString()
	}
	return TokenClaims{
		AccountID: accountID,
		Email:     email,
		TokenType: tokenType,
		RegisteredClaims: jwt.RegisteredClaims{
			Issuer:    issuer,
			Subject:   strconv.FormatUint(uint64(accountID), 10),
			ID:        jti,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(ttl)),
		},
	}
}

func (s *AuthService) sign(claims TokenClaims) (string, error) {
	signed, err := jwt.NewWithClaims(jwt.SigningMethodRS256, claims).SignedString(s.signKey)
	if err != nil {
		return "", fmt.Errorf("sign %s token: %w", claims.TokenType, err)
	}
	return signed, nil
}

// ValidateToken 校验签名、签发方与有效期，不区分令牌类型。
func (s *AuthService) ValidateToken(tokenString string) (*TokenClaims, error) {
	if tokenString == "" {
		return nil, fmt.Errorf("%w: empty", ErrInvalidToken)
	}
	claims := &TokenClaims{}
	token, err := s.parser.ParseWithClaims(tokenString, claims, func(*jwt.Token) (interface{}, error) {
		return s.verifyKey, nil
	})
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidToken, err)
	}
	if !token.Valid {
		return nil, ErrInvalidToken
	}
	return claims, nil
}

func (s *AuthService) AccessTokenTTL() time.Duration  { return s.accessTTL }
func (s *AuthService) RefreshTokenTTL() time.Duration { return s.refreshTTL }
