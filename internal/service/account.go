package service

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"threed-server/common/constant"
	"threed-server/common/helper"
	"threed-server/internal/auth"
	infmysql "threed-server/internal/infra/mysql"
	"threed-server/internal/model"
)

// 账户注册与登录
// 口令使用 bcrypt 存储；登录签发 access/refresh 双令牌，登出将令牌加入 Redis 黑名单

var (
	ErrUserExists         = errors.New("username already taken")
	ErrInvalidCredentials = errors.New("invalid username or password")
	ErrUserDisabled       = errors.New("user disabled")
	ErrNotRefreshToken    = errors.New("token is not a refresh token")
)

// TokenPair 登录/刷新的签发结果
type TokenPair struct {
	AccessToken  string `json:"access_token"`
	RefreshToken string `json:"refresh_token,omitempty"`
}

type AccountService interface {
	// Register 注册新用户，用户名冲突返回 ErrUserExists
	Register(ctx context.Context, username, password string) (*model.Customers, error)
	// Login 校验口令并签发令牌
	Login(ctx context.Context, username, password string) (*model.Customers, *TokenPair, error)
	// Refresh 用刷新令牌换取新的访问令牌
	Refresh(ctx context.Context, refreshToken string) (*TokenPair, error)
	// Logout 撤销当前访问令牌
	Logout(ctx context.Context, tokenString string, expiresAt time.Time) error
}

type accountService struct{}

func NewAccountService() AccountService { return &accountService{} }

func (s *accountService) Register(ctx context.Context, username, password string) (*model.Customers, error) {
	hash, err := helper.HashPassword(password)
	if err != nil {
		return nil, fmt.Errorf("hash password: %w", err)
	}

	user, err := model.CreateUser(ctx, infmysql.SQLX(), username, hash)
	if err != nil {
		// 唯一索引兜底并发注册
		if model.IsDuplicateKeyError(err) {
			return nil, ErrUserExists
		}
		return nil, err
	}

	fmt.Printf("[Account] 用户注册成功: user_id=%d username=%s\n", user.ID, user.Username)
	return user, nil
}

func (s *accountService) Login(ctx context.Context, username, password string) (*model.Customers, *TokenPair, error) {
	user, err := model.GetUserByUsername(ctx, infmysql.SQLX(), username)
	if err != nil {
		if err == sql.ErrNoRows {
			// 用户不存在与密码错误返回同一错误，不泄露用户名是否注册
			return nil, nil, ErrInvalidCredentials
		}
		return nil, nil, err
	}
	if !helper.CheckPassword(password, user.PasswordHash) {
		return nil, nil, ErrInvalidCredentials
	}
	if user.Status != constant.StatusNormal {
		return nil, nil, ErrUserDisabled
	}

	access, err := auth.GenerateAccessToken(user.ID, user.Username)
	if err != nil {
		return nil, nil, fmt.Errorf("generate access token: %w", err)
	}
	refresh, err := auth.GenerateRefreshToken(user.ID, user.Username)
	if err != nil {
		return nil, nil, fmt.Errorf("generate refresh token: %w", err)
	}

	fmt.Printf("[Account] 用户登录成功: user_id=%d username=%s\n", user.ID, user.Username)
	return user, &TokenPair{AccessToken: access, RefreshToken: refresh}, nil
}

func (s *accountService) Refresh(ctx context.Context, refreshToken string) (*TokenPair, error) {
	claims, err := auth.ParseTokenString(ctx, refreshToken)
	if err != nil {
		return nil, err
	}
	if claims.TokenType != "refresh" {
		return nil, ErrNotRefreshToken
	}

	// 刷新前复核用户状态，禁用用户不再续签
	user, err := model.GetUserByID(ctx, infmysql.SQLX(), claims.UserID)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, ErrInvalidCredentials
		}
		return nil, err
	}
	if user.Status != constant.StatusNormal {
		return nil, ErrUserDisabled
	}

	access, err := auth.GenerateAccessToken(user.ID, user.Username)
	if err != nil {
		return nil, fmt.Errorf("generate access token: %w", err)
	}
	return &TokenPair{AccessToken: access}, nil
}

func (s *accountService) Logout(ctx context.Context, tokenString string, expiresAt time.Time) error {
	return auth.RevokeToken(ctx, tokenString, expiresAt)
}
