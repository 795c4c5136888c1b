package storage

import (
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSignedURLRoundTrip(t *testing.T) {
	signer := NewSignedURLSigner("test-secret", time.Hour)

	token, expiresAt, err := signer.Generate("rep-1", "reports/rep-1.csv")
	require.NoError(t, err)
	assert.True(t, expiresAt.After(time.Now()))

	reportID, relPath, parsedExp, err := signer.Parse(token)
	require.NoError(t, err)
	assert.Equal(t, "rep-1", reportID)
	assert.Equal(t, "reports/rep-1.csv", relPath)
	assert.WithinDuration(t, expiresAt, parsedExp, time.Second)
}

func TestSignedURLRejectsTampering(t *testing.T) {
	signer := NewSignedURLSigner("test-secret", time.Hour)

	token, _, err := signer.Generate("rep-1", "reports/rep-1.csv")
	require.NoError(t, err)

	parts := strings.Split(token, ".")
	require.Len(t, parts, 4)
	parts[0] = "rep-2"
	_, _, _, err = signer.Parse(strings.Join(parts, "."))
	require.Error(t, err)
}

func TestSignedURLRejectsForeignSecret(t *testing.T) {
	signer := NewSignedURLSigner("test-secret", time.Hour)
	other := NewSignedURLSigner("other-secret", time.Hour)

	token, _, err := signer.Generate("rep-1", "reports/rep-1.csv")
	require.NoError(t, err)

	_, _, _, err = other.Parse(token)
	require.Error(t, err)
}

func TestSignedURLRejectsExpiredToken(t *testing.T) {
	signer := NewSignedURLSigner("test-secret", time.Hour)
	signer.ttl = -time.Minute

	token, _, err := signer.Generate("rep-1", "reports/rep-1.csv")
	require.NoError(t, err)

	_, _, _, err = signer.Parse(token)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "expired")
}

func TestSignedURLRejectsMalformedToken(t *testing.T) {
	signer := NewSignedURLSigner("test-secret", time.Hour)

	for _, token := range []string{"", "only.three.parts", "a.b.c.d.e"} {
		_, _, _, err := signer.Parse(token)
		require.Error(t, err, "token %q", token)
	}
}

func TestSignedURLRequiresSecretAndInputs(t *testing.T) {
	signer := NewSignedURLSigner("", time.Hour)
	_, _, err := signer.Generate("rep-1", "reports/rep-1.csv")
	require.Error(t, err)

	signer = NewSignedURLSigner("test-secret", time.Hour)
	_, _, err = signer.Generate("", "reports/rep-1.csv")
	require.Error(t, err)
	_, _, err = signer.Generate("rep-1", "")
	require.Error(t, err)
}
