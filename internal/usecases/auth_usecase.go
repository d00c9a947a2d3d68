package usecases

import (
	"context"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"golang.org/x/crypto/bcrypt"

	"dmcheckout/internal/entities"
	"dmcheckout/internal/interfaces"
)

const tokenTTL = 24 * time.Hour

type AuthUsecase struct {
	userRepo  interfaces.UserStore
	jwtSecret []byte
}

func NewAuthUsecase(repo interfaces.UserStore, secret string) *AuthUsecase {
	return &AuthUsecase{
		userRepo:  repo,
		jwtSecret: []byte(secret),
	}
}

func (uc *AuthUsecase) Register(ctx context.Context, username, password string) error {
	existing, err := uc.userRepo.GetByUsername(ctx, username)
	if err != nil {
		return storeError("user", err)
	}
	if existing != nil {
		return newError(ErrorConflict, "username already exists", nil)
	}

	hashed, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return newError(ErrorInternal, "hash password", err)
	}

	user := &entities.User{
		Username:     username,
		PasswordHash: string(hashed),
		Role:         "operator",
		IsActive:     true,
	}
	return storeError("user", uc.userRepo.Create(ctx, user))
}

// Login returns a signed HS256 token valid for 24 hours.
func (uc *AuthUsecase) Login(ctx context.Context, username, password string) (string, error) {
	user, err := uc.userRepo.GetByUsername(ctx, username)
	if err != nil {
		return "", storeError("user", err)
	}
	if user == nil || !user.IsActive {
		return "", newError(ErrorUnauthorized, "invalid credentials", nil)
	}

	if err := bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte(password)); err != nil {
		return "", newError(ErrorUnauthorized, "invalid credentials", nil)
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.MapClaims{
		"user_id": user.ID,
		"role":    user.Role,
		"exp":     time.Now().Add(tokenTTL).Unix(),
	})

	tokenString, err := token.SignedString(uc.jwtSecret)
	if err != nil {
		return "", newError(ErrorInternal, "sign token", fmt.Errorf("failed to sign token: %w", err))
	}
	return tokenString, nil
}

// EnsureAdmin creates the admin user if none exists (called on startup).
func (uc *AuthUsecase) EnsureAdmin(ctx context.Context, username, password string) error {
	user, err := uc.userRepo.GetByUsername(ctx, username)
	if err != nil {
		return err
	}
	if user != nil {
		return nil
	}
	hashed, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return err
	}
	admin := &entities.User{
		Username:     username,
		PasswordHash: string(hashed),
		Role:         "admin",
		IsActive:     true,
	}
	return uc.userRepo.Create(ctx, admin)
}
