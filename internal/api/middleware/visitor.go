package middleware

import (
	"Atrium/internal/pkg/consts"
	"Atrium/internal/pkg/security"

	"github.com/gin-gonic/gin"
)

// VisitorAuthMiddleware 访客鉴权：令牌可能尚未解析（匿名会话），
// 解析成功注入 claims，缺失或无效则注入空值交由业务层判定
func VisitorAuthMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		tokenString := bearerToken(c)
		if tokenString == "" {
			c.Next()
			return
		}

		claims, err := security.ValidateToken(tokenString)
		if err != nil || claims.Role != consts.RoleVisitor {
			c.Next()
			return
		}

		c.Set("claims", claims)
		c.Next()
	}
}

// VisitorClaims 从 Context 取访客身份，未鉴权时返回 nil
func VisitorClaims(c *gin.Context) *security.ChatClaims {
	if v, ok := c.Get("claims"); ok {
		if claims, ok := v.(*security.ChatClaims); ok {
			return claims
		}
	}
	return nil
}
