package usecase

import (
	"context"
	"net/http"
	"strconv"
	"strings"
	"time"

	"goodstay/internal/domain/model"
	repo "goodstay/internal/repository"

	"github.com/golang-jwt/jwt/v5"
	"go.uber.org/zap"
	"golang.org/x/crypto/bcrypt"
)

// accesstokenの有効期限
const accessTokenTTL = 60 * time.Minute

const bcryptCost = 12

// 管理画面のログイン。顧客側はログイン不要（ゲスト購入のみ）
type AuthUsecase struct {
	admins    repo.AdminUserRepository
	jwtSecret []byte
	clock     Clock
	logger    *zap.Logger
}

func NewAuthUsecase(admins repo.AdminUserRepository, jwtSecret string, clock Clock, logger *zap.Logger) *AuthUsecase {
	return &AuthUsecase{
		admins:    admins,
		jwtSecret: []byte(jwtSecret),
		clock:     clock,
		logger:    logger,
	}
}

type LoginInput struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

type LoginOutput struct {
	AccessToken string `json:"access_token"`
	ExpiresIn   int    `json:"expires_in"`
	Email       string `json:"email"`
}

func (u *AuthUsecase) Login(ctx context.Context, in LoginInput) (LoginOutput, error) {
	email := strings.TrimSpace(strings.ToLower(in.Email))
	if email == "" || in.Password == "" {
		return LoginOutput{}, NewHTTPError(http.StatusBadRequest, "email and password are required")
	}

	admin, err := u.admins.FindByEmail(ctx, email)
	if err != nil {
		u.logger.Error("find admin by email", zap.Error(err))
		return LoginOutput{}, NewHTTPError(http.StatusInternalServerError, "db error")
	}
	//存在しない/無効なアカウントは同じ401（情報を漏らさない）
	if admin == nil || !admin.IsActive {
		return LoginOutput{}, NewHTTPError(http.StatusUnauthorized, "unauthorized")
	}

	if err := bcrypt.CompareHashAndPassword([]byte(admin.PasswordHash), []byte(in.Password)); err != nil {
		return LoginOutput{}, NewHTTPError(http.StatusUnauthorized, "unauthorized")
	}

	now := u.clock.Now()
	expiresAt := now.Add(accessTokenTTL)

	claims := jwt.MapClaims{
		"sub":   strconv.FormatInt(admin.ID, 10),
		"email": admin.Email,
		"iat":   now.Unix(),
		"exp":   expiresAt.Unix(),
	}
	tok := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	signed, err := tok.SignedString(u.jwtSecret)
	if err != nil {
		u.logger.Error("sign access token", zap.Error(err))
		return LoginOutput{}, NewHTTPError(http.StatusInternalServerError, "internal error")
	}

	//最終ログイン時刻はベストエフォート
	admin.LastLoginAt = &now
	if err := u.admins.Update(ctx, admin); err != nil {
		u.logger.Warn("update last login", zap.Int64("admin_id", admin.ID), zap.Error(err))
	}

	return LoginOutput{
		AccessToken: signed,
		ExpiresIn:   int(accessTokenTTL.Seconds()),
		Email:       admin.Email,
	}, nil
}

// 起動時に環境変数の管理者を用意する（既にあれば何もしない）
func (u *AuthUsecase) EnsureAdmin(ctx context.Context, email, password string) error {
	email = strings.TrimSpace(strings.ToLower(email))
	if email == "" || password == "" {
		return nil
	}

	existing, err := u.admins.FindByEmail(ctx, email)
	if err != nil {
		return err
	}
	if existing != nil {
		return nil
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcryptCost)
	if err != nil {
		return err
	}

	return u.admins.Create(ctx, &model.AdminUser{
		Email:        email,
		PasswordHash: string(hash),
		IsActive:     true,
	})
}
