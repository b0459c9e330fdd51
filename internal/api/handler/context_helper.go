package handler

import (
	"time"

	"github.com/gin-gonic/gin"

	"github.com/Benjamindev1111/pilot-course-system/internal/model"
	"github.com/Benjamindev1111/pilot-course-system/internal/service"
	"github.com/Benjamindev1111/pilot-course-system/pkg/response"
)

// MustGetUserID 从 Gin 上下文中安全提取 user_id。
// 如果 JWT 中间件未正确注入 user_id，返回 false 并写入 401 响应。
// 调用方应在 ok=false 时直接 return。
func MustGetUserID(c *gin.Context) (string, bool) {
	s := c.GetString("user_id")
	if s == "" {
		response.Unauthorized(c, 10002, "未认证")
		return "", false
	}
	return s, true
}

// MustGetRequester 提取当前用户及其是否为管理员
func MustGetRequester(c *gin.Context) (service.Requester, bool) {
	userID, ok := MustGetUserID(c)
	if !ok {
		return service.Requester{}, false
	}
	return service.Requester{
		UserID:  userID,
		IsAdmin: c.GetString("role") == model.RoleAdmin,
	}, true
}

// tokenInfo JWT 中间件注入的 jti 与过期时间，登出时使用
func tokenInfo(c *gin.Context) (string, time.Time) {
	return c.GetString("token_jti"), c.GetTime("token_exp")
}
