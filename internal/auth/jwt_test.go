package auth

import (
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/FindNest-Estate/NestFind-sub000/internal/domain"
)

const testSecret = "test-secret-key-that-is-long-enough"

func TestTokenIssuer_IssueAndDecode(t *testing.T) {
	issuer := NewTokenIssuer(testSecret, 15*time.Minute)

	token, err := issuer.Issue("user-1", "session-1")
	require.NoError(t, err)
	require.NotEmpty(t, token)

	claims, err := issuer.Decode(token)
	require.NoError(t, err)
	assert.Equal(t, "user-1", claims.Subject)
	assert.Equal(t, "session-1", claims.SessionID)
	assert.NotEmpty(t, claims.ID, "jti must be present")
	assert.Equal(t, tokenIssuerName, claims.Issuer)

	// exp = iat + lifetime
	require.NotNil(t, claims.IssuedAt)
	require.NotNil(t, claims.ExpiresAt)
	assert.Equal(t, 15*time.Minute, claims.ExpiresAt.Sub(claims.IssuedAt.Time))
}

func TestTokenIssuer_Decode_UniqueTokenIDs(t *testing.T) {
	issuer := NewTokenIssuer(testSecret, 15*time.Minute)

	t1, err := issuer.Issue("user-1", "session-1")
	require.NoError(t, err)
	t2, err := issuer.Issue("user-1", "session-1")
	require.NoError(t, err)

	c1, err := issuer.Decode(t1)
	require.NoError(t, err)
	c2, err := issuer.Decode(t2)
	require.NoError(t, err)
	assert.NotEqual(t, c1.ID, c2.ID)
}

func TestTokenIssuer_Decode_Expired(t *testing.T) {
	issuer := NewTokenIssuer(testSecret, -1*time.Minute)

	token, err := issuer.Issue("user-1", "session-1")
	require.NoError(t, err)

	claims, err := issuer.Decode(token)
	assert.Nil(t, claims)

	failure, ok := domain.AsAuthFailure(err)
	require.True(t, ok)
	assert.Equal(t, domain.FailureTokenExpired, failure.Kind)
}

func TestTokenIssuer_Decode_WrongSecret(t *testing.T) {
	issuer := NewTokenIssuer(testSecret, 15*time.Minute)
	other := NewTokenIssuer("a-completely-different-secret-value", 15*time.Minute)

	token, err := issuer.Issue("user-1", "session-1")
	require.NoError(t, err)

	claims, err := other.Decode(token)
	assert.Nil(t, claims)

	failure, ok := domain.AsAuthFailure(err)
	require.True(t, ok)
	assert.Equal(t, domain.FailureTokenInvalid, failure.Kind)
}

func TestTokenIssuer_Decode_Garbage(t *testing.T) {
	issuer := NewTokenIssuer(testSecret, 15*time.Minute)

	claims, err := issuer.Decode("not-a-jwt")
	assert.Nil(t, claims)

	failure, ok := domain.AsAuthFailure(err)
	require.True(t, ok)
	assert.Equal(t, domain.FailureTokenInvalid, failure.Kind)
}

func TestTokenIssuer_Decode_RejectsNonHMACAlgorithm(t *testing.T) {
	issuer := NewTokenIssuer(testSecret, 15*time.Minute)

	// A token signed with "none" must never validate, even with a correct
	// payload shape.
	claims := &AccessClaims{
		SessionID: "session-1",
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   "user-1",
			ExpiresAt: jwt.NewNumericDate(time.Now().Add(time.Hour)),
		},
	}
	unsigned := jwt.NewWithClaims(jwt.SigningMethodNone, claims)
	token, err := unsigned.SignedString(jwt.UnsafeAllowNoneSignatureType)
	require.NoError(t, err)

	decoded, err := issuer.Decode(token)
	assert.Nil(t, decoded)

	failure, ok := domain.AsAuthFailure(err)
	require.True(t, ok)
	assert.Equal(t, domain.FailureTokenInvalid, failure.Kind)
}

func TestTokenIssuer_Decode_MissingSessionID(t *testing.T) {
	issuer := NewTokenIssuer(testSecret, 15*time.Minute)

	// Sign a structurally valid token without session linkage.
	claims := &AccessClaims{
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   "user-1",
			ExpiresAt: jwt.NewNumericDate(time.Now().Add(time.Hour)),
		},
	}
	token, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte(testSecret))
	require.NoError(t, err)

	decoded, err := issuer.Decode(token)
	assert.Nil(t, decoded)

	failure, ok := domain.AsAuthFailure(err)
	require.True(t, ok)
	assert.Equal(t, domain.FailureTokenInvalid, failure.Kind)
}
