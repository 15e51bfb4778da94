package api

import (
	"encoding/json"
	"errors"
	"strings"

	"threed-server/internal/auth"
	helper "threed-server/internal/common/helper"
	"threed-server/internal/common/response"
	"threed-server/internal/service"

	beego "github.com/beego/beego/v2/server/web"
)

var newAccountService = service.NewAccountService

// AuthController 账户注册、登录、令牌刷新与登出
// POST /api/threed/auth/register
// POST /api/threed/auth/login
// POST /api/threed/auth/refresh
// POST /api/threed/auth/logout（需携带有效访问令牌）
type AuthController struct{ beego.Controller }

// Register 注册新用户
func (c *AuthController) Register() {
	traceID := helper.GetTraceID(c.Ctx)
	cred, ok, msg := helper.ParseAndValidateCredentials(c.Ctx)
	if !ok {
		response.BadRequest(&c.Controller, msg, traceID)
		return
	}

	user, err := newAccountService().Register(c.Ctx.Request.Context(), cred.Username, cred.Password)
	if err != nil {
		if errors.Is(err, service.ErrUserExists) {
			response.Conflict(&c.Controller, response.CodeUserExists, traceID)
			return
		}
		response.InternalError(&c.Controller, traceID)
		return
	}

	response.Success(&c.Controller, map[string]interface{}{
		"user_id":  user.ID,
		"username": user.Username,
	}, traceID)
}

// Login 校验口令并签发令牌
func (c *AuthController) Login() {
	traceID := helper.GetTraceID(c.Ctx)
	cred, ok, msg := helper.ParseAndValidateCredentials(c.Ctx)
	if !ok {
		response.BadRequest(&c.Controller, msg, traceID)
		return
	}

	user, pair, err := newAccountService().Login(c.Ctx.Request.Context(), cred.Username, cred.Password)
	if err != nil {
		if errors.Is(err, service.ErrInvalidCredentials) {
			response.Error(&c.Controller, 401, response.CodeInvalidCredentials, traceID)
			return
		}
		if errors.Is(err, service.ErrUserDisabled) {
			response.Error(&c.Controller, 403, response.CodeForbidden, traceID)
			return
		}
		response.InternalError(&c.Controller, traceID)
		return
	}

	response.Success(&c.Controller, map[string]interface{}{
		"user_id":       user.ID,
		"username":      user.Username,
		"access_token":  pair.AccessToken,
		"refresh_token": pair.RefreshToken,
	}, traceID)
}

// Refresh 用刷新令牌换取新的访问令牌
func (c *AuthController) Refresh() {
	traceID := helper.GetTraceID(c.Ctx)
	refreshToken := strings.TrimSpace(c.GetString("refresh_token"))
	if refreshToken == "" && helper.IsJSONContentType(c.Ctx.Input.Header("Content-Type")) {
		var body struct {
			RefreshToken string `json:"refresh_token"`
		}
		_ = json.NewDecoder(c.Ctx.Request.Body).Decode(&body)
		refreshToken = strings.TrimSpace(body.RefreshToken)
	}
	if refreshToken == "" {
		response.BadRequest(&c.Controller, "refresh_token is required", traceID)
		return
	}

	pair, err := newAccountService().Refresh(c.Ctx.Request.Context(), refreshToken)
	if err != nil {
		switch {
		case errors.Is(err, auth.ErrTokenRevoked):
			response.Error(&c.Controller, 401, response.CodeTokenRevoked, traceID)
		case errors.Is(err, auth.ErrInvalidToken), errors.Is(err, service.ErrNotRefreshToken),
			errors.Is(err, service.ErrInvalidCredentials):
			response.Error(&c.Controller, 401, response.CodeInvalidToken, traceID)
		case errors.Is(err, service.ErrUserDisabled):
			response.Error(&c.Controller, 403, response.CodeForbidden, traceID)
		default:
			response.InternalError(&c.Controller, traceID)
		}
		return
	}

	response.Success(&c.Controller, map[string]interface{}{
		"access_token": pair.AccessToken,
	}, traceID)
}

// Logout 撤销当前访问令牌（路由前置了 UserAuthFilter，到这里令牌必然有效）
func (c *AuthController) Logout() {
	traceID := helper.GetTraceID(c.Ctx)

	claims, _ := c.Ctx.Input.GetData("jwt_claims").(*auth.JWTClaims)
	if claims == nil || claims.ExpiresAt == nil {
		response.Error(&c.Controller, 401, response.CodeUnauthorized, traceID)
		return
	}
	tokenString := strings.TrimSpace(strings.TrimPrefix(
		strings.TrimSpace(c.Ctx.Input.Header("Authorization")), "Bearer"))

	if err := newAccountService().Logout(c.Ctx.Request.Context(), tokenString, claims.ExpiresAt.Time); err != nil {
		response.InternalError(&c.Controller, traceID)
		return
	}
	response.Success(&c.Controller, nil, traceID)
}
