package auth

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.uber.org/goleak"
)

func TestMain(m *testing.M) {
	goleak.VerifyTestMain(m)
}

func TestTokenService_IssueAndVerify(t *testing.T) {
	service := NewTokenService([]byte("test-signing-key"), DefaultTokenTTL)
	userID := primitive.NewObjectID()

	token, err := service.Issue(userID)
	require.NoError(t, err)
	require.NotEmpty(t, token)

	verifiedID, err := service.Verify(token)
	require.NoError(t, err)
	assert.Equal(t, userID, verifiedID)
}

func TestTokenService_Verify_expired(t *testing.T) {
	service := NewTokenService([]byte("test-signing-key"), DefaultTokenTTL)

	token, err := service.Issue(primitive.NewObjectID())
	require.NoError(t, err)

	// move the clock past the expiry
	service.NowFunc = func() time.Time {
		return time.Now().Add(DefaultTokenTTL + time.Minute)
	}

	_, err = service.Verify(token)
	assert.ErrorIs(t, err, ErrInvalidToken)
}

func TestTokenService_Verify_wrongKey(t *testing.T) {
	issuer := NewTokenService([]byte("test-signing-key"), DefaultTokenTTL)
	verifier := NewTokenService([]byte("a-different-key"), DefaultTokenTTL)

	token, err := issuer.Issue(primitive.NewObjectID())
	require.NoError(t, err)

	_, err = verifier.Verify(token)
	assert.ErrorIs(t, err, ErrInvalidToken)
}

func TestTokenService_Verify_garbage(t *testing.T) {
	service := NewTokenService([]byte("test-signing-key"), DefaultTokenTTL)

	for _, tokenString := range []string{
		"",
		"not-a-token",
		"aaaa.bbbb.cccc",
	} {
		_, err := service.Verify(tokenString)
		assert.ErrorIs(t, err, ErrInvalidToken, tokenString)
	}
}
