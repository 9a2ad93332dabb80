package token

import (
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestManager_IssueAndParse(t *testing.T) {
	m := NewManager("secret", time.Hour)
	userID := uuid.New()
	companyID := uuid.New()

	signed, expiresAt, err := m.Issue(userID, "manager", &companyID)
	require.NoError(t, err)
	assert.WithinDuration(t, time.Now().Add(time.Hour), expiresAt, 5*time.Second)

	claims, err := m.Parse(signed)
	require.NoError(t, err)
	assert.Equal(t, "manager", claims.Role)
	require.NotNil(t, claims.CompanyID)
	assert.Equal(t, companyID, *claims.CompanyID)

	got, err := claims.UserID()
	require.NoError(t, err)
	assert.Equal(t, userID, got)
}

func TestManager_AdminHasNoCompany(t *testing.T) {
	m := NewManager("", 0)
	signed, _, err := m.Issue(uuid.New(), "admin", nil)
	require.NoError(t, err)

	claims, err := m.Parse(signed)
	require.NoError(t, err)
	assert.Nil(t, claims.CompanyID)
	assert.Equal(t, 24*time.Hour, m.TTL())
}

func TestManager_Rejects(t *testing.T) {
	m := NewManager("secret", time.Hour)
	signed, _, err := m.Issue(uuid.New(), "staff", nil)
	require.NoError(t, err)

	t.Run("wrong secret", func(t *testing.T) {
		_, err := NewManager("other", time.Hour).Parse(signed)
		assert.Error(t, err)
	})

	t.Run("expired", func(t *testing.T) {
		later := NewManager("secret", time.Hour)
		later.now = func() time.Time { return time.Now().Add(2 * time.Hour) }
		_, err := later.Parse(signed)
		assert.ErrorIs(t, err, jwt.ErrTokenExpired)
	})

	t.Run("other algorithm", func(t *testing.T) {
		unsigned, err := jwt.NewWithClaims(jwt.SigningMethodNone, jwt.MapClaims{"role": "admin", "exp": time.Now().Add(time.Hour).Unix()}).
			SignedString(jwt.UnsafeAllowNoneSignatureType)
		require.NoError(t, err)
		_, err = m.Parse(unsigned)
		assert.Error(t, err)
	})

	t.Run("missing role", func(t *testing.T) {
		raw, err := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.MapClaims{"sub": uuid.NewString(), "exp": time.Now().Add(time.Hour).Unix()}).
			SignedString([]byte("secret"))
		require.NoError(t, err)
		_, err = m.Parse(raw)
		assert.Error(t, err)
	})

	t.Run("garbage", func(t *testing.T) {
		_, err := m.Parse("not-a-token")
		assert.Error(t, err)
	})
}
