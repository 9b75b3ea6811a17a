package security

import (
	"Atrium/internal/pkg/consts"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

// GenerateOperatorToken 为运营者签发会话令牌
func GenerateOperatorToken(email string) (string, error) {
	claims := &ChatClaims{
		Role:  consts.RoleOperator,
		Email: email,
		RegisteredClaims: jwt.RegisteredClaims{
			ExpiresAt: jwt.NewNumericDate(time.Now().Add(OperatorExpiration)),
			IssuedAt:  jwt.NewNumericDate(time.Now()),
			Issuer:    "Atrium",
		},
	}
	return sign(claims)
}

// GenerateVisitorToken 为访客签发身份令牌，令牌本身就是客户端的持久身份缓存
func GenerateVisitorToken(sessionID, conversationID, name, email string, submitted bool) (string, error) {
	claims := &ChatClaims{
		Role:           consts.RoleVisitor,
		SessionID:      sessionID,
		ConversationID: conversationID,
		Name:           name,
		Email:          email,
		Submitted:      submitted,
		RegisteredClaims: jwt.RegisteredClaims{
			ExpiresAt: jwt.NewNumericDate(time.Now().Add(VisitorExpiration)),
			IssuedAt:  jwt.NewNumericDate(time.Now()),
			Issuer:    "Atrium",
		},
	}
	return sign(claims)
}

func sign(claims *ChatClaims) (string, error) {
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)

	tokenString, err := token.SignedString([]byte(JWTSecret))
	if err != nil {
		return "", fmt.Errorf("签名 Token 失败: %w", err)
	}
	return tokenString, nil
}

// ValidateToken 验证 Token 字符串并解析出 Claims
func ValidateToken(tokenString string) (*ChatClaims, error) {
	claims := &ChatClaims{}

	token, err := jwt.ParseWithClaims(tokenString, claims, func(token *jwt.Token) (interface{}, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("非预期的签名方法: %v", token.Header["alg"])
		}
		return []byte(JWTSecret), nil
	})

	if err != nil {
		return nil, fmt.Errorf("token 解析失败: %w", err)
	}

	if !token.Valid {
		return nil, errors.New("token 无效或已过期")
	}

	return claims, nil
}

// ExtractSignature 从 Token 字符串中提取签名
func ExtractSignature(tokenString string) (string, error) {
	parts := strings.Split(tokenString, ".")
	if len(parts) != 3 {
		return "", errors.New("token 格式不正确")
	}
	return parts[2], nil
}
