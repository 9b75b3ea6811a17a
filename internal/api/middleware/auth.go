package middleware

import (
	"Atrium/internal/pkg/consts"
	"Atrium/internal/pkg/redis"
	"Atrium/internal/pkg/response"
	"Atrium/internal/pkg/security"
	"strings"

	"github.com/gin-gonic/gin"
)

// OperatorAuthMiddleware 负责验证运营者 JWT 并将身份信息注入 Context
func OperatorAuthMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		tokenString := bearerToken(c)
		if tokenString == "" {
			response.Fail(c, response.Unauthorized, "Token 缺失或格式错误")
			c.Abort()
			return
		}

		signature, err := security.ExtractSignature(tokenString)
		if err != nil {
			response.Fail(c, response.Unauthorized, "Token 缺失或格式错误")
			c.Abort()
			return
		}

		value, err := redis.GetValue(c.Request.Context(), consts.TokenBlockKey+signature)
		if err != nil {
			response.Fail(c, response.InternalServerError, "未知错误")
			c.Abort()
			return
		}
		if value != "" {
			response.Fail(c, response.Unauthorized, "Token 无效或已过期")
			c.Abort()
			return
		}

		claims, err := security.ValidateToken(tokenString)
		if err != nil || claims.Role != consts.RoleOperator {
			response.Fail(c, response.Unauthorized, "Token 无效或已过期")
			c.Abort()
			return
		}

		c.Set("claims", claims)
		c.Set("email", claims.Email)
		c.Set("token", tokenString)

		c.Next()
	}
}

// bearerToken 从请求头取令牌；WS 升级请求无法带自定义头，回落到 query
func bearerToken(c *gin.Context) string {
	authHeader := c.GetHeader("Authorization")
	if strings.HasPrefix(authHeader, "Bearer ") {
		return strings.TrimPrefix(authHeader, "Bearer ")
	}
	return c.Query("token")
}
