package handler

import (
	"time"

	"github.com/gin-gonic/gin"

	"github.com/BienNg/eduinsight-sub000/internal/api/middleware"
	"github.com/BienNg/eduinsight-sub000/pkg/response"
)

// MustGetUsername 从 Gin 上下文中安全提取用户名。
// 如果 JWT 中间件未正确注入，返回 false 并写入 401 响应。
// 调用方应在 ok=false 时直接 return。
func MustGetUsername(c *gin.Context) (string, bool) {
	s := c.GetString(middleware.CtxUsername)
	if s == "" {
		response.Unauthorized(c, 10002, "not authenticated")
		return "", false
	}
	return s, true
}

// tokenInfo 当前 Token 的 jti 与过期时间（注销用）
func tokenInfo(c *gin.Context) (string, time.Time) {
	jti := c.GetString(middleware.CtxTokenJTI)
	exp, _ := c.Get(middleware.CtxTokenExp)
	t, _ := exp.(time.Time)
	return jti, t
}
