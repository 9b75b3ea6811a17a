package security

import (
	"time"

	"github.com/golang-jwt/jwt/v5"
)

const (
	JWTSecret          string = "Atrium"
	OperatorExpiration        = time.Hour * 24
	// VisitorExpiration 访客令牌即客户端的持久身份缓存，给足有效期让会话跨刷新延续
	VisitorExpiration = time.Hour * 24 * 365
)

// ChatClaims 聊天令牌载荷：同时承载运营者会话与访客身份缓存
type ChatClaims struct {
	Role string `json:"role"` // visitor | operator

	// 访客字段：SessionID 为匿名会话 ID，身份确立后 ConversationID 等字段生效
	SessionID      string `json:"session_id,omitempty"`
	ConversationID string `json:"conversation_id,omitempty"`
	Name           string `json:"name,omitempty"`
	Email          string `json:"email,omitempty"`
	Submitted      bool   `json:"submitted,omitempty"`

	jwt.RegisteredClaims
}
