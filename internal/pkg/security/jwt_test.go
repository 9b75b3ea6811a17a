package security

import (
	"Atrium/internal/pkg/consts"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestVisitorTokenRoundTrip(t *testing.T) {
	token, err := GenerateVisitorToken("s1", "c1", "张三", "z@example.com", true)
	require.NoError(t, err)

	claims, err := ValidateToken(token)
	require.NoError(t, err)
	assert.Equal(t, consts.RoleVisitor, claims.Role)
	assert.Equal(t, "s1", claims.SessionID)
	assert.Equal(t, "c1", claims.ConversationID)
	assert.True(t, claims.Submitted)
}

func TestOperatorToken(t *testing.T) {
	token, err := GenerateOperatorToken("ops@example.com")
	require.NoError(t, err)

	claims, err := ValidateToken(token)
	require.NoError(t, err)
	assert.Equal(t, consts.RoleOperator, claims.Role)
	assert.Equal(t, "ops@example.com", claims.Email)

	sig, err := ExtractSignature(token)
	require.NoError(t, err)
	assert.NotEmpty(t, sig)
}

func TestValidateTokenRejectsGarbage(t *testing.T) {
	_, err := ValidateToken("not-a-token")
	assert.Error(t, err)

	_, err = ExtractSignature("no-dots")
	assert.Error(t, err)
}
