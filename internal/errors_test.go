package internal

import (
	"encoding/json"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestUnauthenticatedBodiesAreIndistinguishable(t *testing.T) {
	missing, err := json.Marshal(ErrMissingCredential)
	require.NoError(t, err)
	invalid, err := json.Marshal(ErrInvalidToken)
	require.NoError(t, err)
	expired, err := json.Marshal(ErrTokenExpired)
	require.NoError(t, err)

	assert.JSONEq(t, string(missing), string(invalid))
	assert.JSONEq(t, string(missing), string(expired))

	var body map[string]interface{}
	require.NoError(t, json.Unmarshal(invalid, &body))
	assert.Equal(t, "UNAUTHENTICATED", body["code"])
}

func TestUnauthenticatedSentinelsStayDistinctInternally(t *testing.T) {
	wrapped := ErrTokenExpired.WithCause(errors.New("token is expired"))

	assert.True(t, errors.Is(wrapped, ErrTokenExpired))
	assert.False(t, errors.Is(wrapped, ErrInvalidToken))
}

func TestNonCredentialCodesSerializeUnchanged(t *testing.T) {
	raw, err := json.Marshal(ErrUserInactive)
	require.NoError(t, err)

	var body map[string]interface{}
	require.NoError(t, json.Unmarshal(raw, &body))
	assert.Equal(t, "USER_INACTIVE", body["code"])
}
