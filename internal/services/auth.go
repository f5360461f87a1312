package services

import (
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"golang.org/x/crypto/bcrypt"

	"github.com/meetdshah26/backend-chatbot/internal/apperrors"
	"github.com/meetdshah26/backend-chatbot/internal/logger"
	"github.com/meetdshah26/backend-chatbot/internal/utils"
)

const adminTokenTTL = 24 * time.Hour

// AuthService authenticates the admin account and mints the bearer tokens
// the protected endpoints require.
type AuthService interface {
	Login(username, password string) (string, error)
	VerifyToken(token string) (*AdminClaims, error)
}

type AdminClaims struct {
	Username string `json:"username"`
	Role     string `json:"role"`
	jwt.RegisteredClaims
}

type authService struct {
	log          *logger.Logger
	username     string
	passwordHash []byte
	jwtSecret    []byte
}

func NewAuthService(baseLog *logger.Logger) (AuthService, error) {
	log := baseLog.With("service", "AuthService")

	secret := utils.GetEnv("JWT_SECRET", "", log)
	if secret == "" {
		return nil, fmt.Errorf("JWT_SECRET is required")
	}

	username := utils.GetEnv("ADMIN_USERNAME", "admin", log)

	hash := utils.GetEnv("ADMIN_PASSWORD_HASH", "", log)
	var passwordHash []byte
	if hash != "" {
		passwordHash = []byte(hash)
	} else {
		plain := utils.GetEnv("ADMIN_PASSWORD", "", log)
		if plain == "" {
			return nil, fmt.Errorf("ADMIN_PASSWORD_HASH or ADMIN_PASSWORD is required")
		}
		h, err := bcrypt.GenerateFromPassword([]byte(plain), bcrypt.DefaultCost)
		if err != nil {
			return nil, fmt.Errorf("hash admin password: %w", err)
		}
		passwordHash = h
		log.Warn("ADMIN_PASSWORD_HASH not set, hashing ADMIN_PASSWORD at startup")
	}

	return &authService{
		log:          log,
		username:     username,
		passwordHash: passwordHash,
		jwtSecret:    []byte(secret),
	}, nil
}

func (s *authService) Login(username, password string) (string, error) {
	if username != s.username {
		return "", apperrors.ErrUnauthorized
	}
	if err := bcrypt.CompareHashAndPassword(s.passwordHash, []byte(password)); err != nil {
		return "", apperrors.ErrUnauthorized
	}

	now := time.Now().UTC()
	claims := AdminClaims{
		Username: username,
		Role:     "admin",
		RegisteredClaims: jwt.RegisteredClaims{
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(adminTokenTTL)),
		},
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	signed, err := token.SignedString(s.jwtSecret)
	if err != nil {
		s.log.Error("failed to sign token", "error", err)
		return "", err
	}
	return signed, nil
}

func (s *authService) VerifyToken(tokenString string) (*AdminClaims, error) {
	claims := &AdminClaims{}
	token, err := jwt.ParseWithClaims(tokenString, claims, func(t *jwt.Token) (any, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method %v", t.Header["alg"])
		}
		return s.jwtSecret, nil
	})
	if err != nil || !token.Valid {
		return nil, apperrors.ErrUnauthorized
	}
	if claims.Role != "admin" {
		return nil, apperrors.ErrUnauthorized
	}
	return claims, nil
}
