package utils_test

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Windi-Fikriyansyah/togo_freelance/internal/utils"
)

func TestSignAndParseJWT(t *testing.T) {
	tok, err := utils.SignJWT("secret", "user-1", "company", 5)
	require.NoError(t, err)

	claims, err := utils.ParseJWT("secret", tok, utils.PurposeSession)
	require.NoError(t, err)
	assert.Equal(t, "user-1", claims.UserID)
	assert.Equal(t, "company", claims.Role)

	_, err = utils.ParseJWT("other", tok, utils.PurposeSession)
	assert.Error(t, err)
}

func TestParseJWT_PurposeMismatch(t *testing.T) {
	tok, err := utils.SignVerifyToken("secret", "user-1", time.Hour)
	require.NoError(t, err)

	_, err = utils.ParseJWT("secret", tok, utils.PurposeSession)
	assert.Error(t, err)

	claims, err := utils.ParseJWT("secret", tok, utils.PurposeVerifyEmail)
	require.NoError(t, err)
	assert.Equal(t, "user-1", claims.UserID)
}

func TestParseJWT_Expired(t *testing.T) {
	tok, err := utils.SignVerifyToken("secret", "user-1", -time.Minute)
	require.NoError(t, err)

	_, err = utils.ParseJWT("secret", tok, utils.PurposeVerifyEmail)
	assert.Error(t, err)
}

func TestPassword(t *testing.T) {
	hash, err := utils.HashPassword("s3cret-pass")
	require.NoError(t, err)
	assert.True(t, utils.CheckPassword(hash, "s3cret-pass"))
	assert.False(t, utils.CheckPassword(hash, "wrong"))
}
