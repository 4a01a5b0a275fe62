package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v4"
	"github.com/sirupsen/logrus"
	"golang.org/x/crypto/bcrypt"

	"ludobackend/internal/apierror"
	"ludobackend/internal/domain"
	"ludobackend/internal/repository"
)

// AuthService issues bearer tokens and hashes account passwords. Peripheral
// to the game core, kept ambiently because a running server needs some way
// to authenticate the callers the rest of the system trusts.
type AuthService struct {
	userRepo  repository.UserRepository
	jwtSecret []byte
	jwtExpiry time.Duration
}

func NewAuthService(userRepo repository.UserRepository, jwtSecret string, jwtExpiry time.Duration) (*AuthService, error) {
	if userRepo == nil {
		panic("UserRepository cannot be nil for AuthService")
	}
	if jwtSecret == "" {
		return nil, fmt.Errorf("JWT secret cannot be empty")
	}
	if jwtExpiry <= 0 {
		jwtExpiry = 24 * time.Hour
	}
	return &AuthService{userRepo: userRepo, jwtSecret: []byte(jwtSecret), jwtExpiry: jwtExpiry}, nil
}

func (s *AuthService) Register(ctx context.Context, username, password, email string) (*domain.User, error) {
	logCtx := logrus.WithFields(logrus.Fields{"username": username, "email": email})

	if username == "" || password == "" {
		return nil, apierror.New(apierror.KindValidation, "username and password are required")
	}

	hashed, err := hashPassword(password)
	if err != nil {
		logCtx.WithError(err).Error("failed to hash password during registration")
		return nil, apierror.New(apierror.KindInternal, "internal server error")
	}

	user := &domain.User{Username: username, Password: hashed, Email: email}
	if err := s.userRepo.Save(ctx, user); err != nil {
		if errors.Is(err, repository.ErrDuplicateEntry) {
			logCtx.WithError(err).Warn("registration failed: duplicate username/email")
			return nil, apierror.ErrRegistrationFailed
		}
		logCtx.WithError(err).Error("database error during user creation")
		return nil, apierror.New(apierror.KindInternal, "internal server error")
	}

	logCtx.WithField("user_id", user.ID).Info("user registered")
	user.Password = ""
	return user, nil
}

func (s *AuthService) Login(ctx context.Context, username, password string) (string, error) {
	logCtx := logrus.WithField("username", username)

	user, err := s.userRepo.FindByUsername(ctx, username)
	if err != nil {
		if errors.Is(err, repository.ErrUserNotFound) {
			logCtx.Warn("login failed: user not found")
		} else {
			logCtx.WithError(err).Warn("login failed: repository error")
		}
		return "", apierror.ErrAuthFailed
	}

	if !checkPassword(password, user.Password) {
		logCtx.Warn("login failed: invalid password")
		return "", apierror.ErrAuthFailed
	}

	token, err := s.generateJWT(user.ID)
	if err != nil {
		logCtx.WithError(err).Error("failed to generate jwt during login")
		return "", apierror.New(apierror.KindInternal, "internal server error")
	}

	logCtx.WithField("user_id", user.ID).Info("user logged in")
	return token, nil
}

func hashPassword(password string) (string, error) {
	bytes, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return "", fmt.Errorf("hash password: %w", err)
	}
	return string(bytes), nil
}

func checkPassword(password, hash string) bool {
	return bcrypt.CompareHashAndPassword([]byte(hash), []byte(password)) == nil
}

func (s *AuthService) generateJWT(userID uint) (string, error) {
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.MapClaims{
		"user_id": userID,
		"exp":     time.Now().Add(s.jwtExpiry).Unix(),
		"iat":     time.Now().Unix(),
	})
	signed, err := token.SignedString(s.jwtSecret)
	if err != nil {
		return "", fmt.Errorf("sign token: %w", err)
	}
	return signed, nil
}

// ParseUserID validates tokenString and extracts the signed user ID, used by
// the auth middleware.
func (s *AuthService) ParseUserID(tokenString string) (uint, error) {
	claims := jwt.MapClaims{}
	_, err := jwt.ParseWithClaims(tokenString, claims, func(t *jwt.Token) (interface{}, error) {
		return s.jwtSecret, nil
	})
	if err != nil {
		return 0, apierror.ErrUnauthorized
	}
	idFloat, ok := claims["user_id"].(float64)
	if !ok {
		return 0, apierror.ErrUnauthorized
	}
	return uint(idFloat), nil
}
