package storage

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestDownloadSignerGenerateAndValidate(t *testing.T) {
	signer := NewDownloadSigner("secret", time.Hour)
	token, expiresAt, err := signer.Generate(400, 2)
	require.NoError(t, err)
	require.NotEmpty(t, token)
	require.False(t, expiresAt.IsZero())

	scanNumber, imageID, err := signer.Validate(token)
	require.NoError(t, err)
	require.Equal(t, 400, scanNumber)
	require.Equal(t, 2, imageID)
}

func TestDownloadSignerExpired(t *testing.T) {
	signer := NewDownloadSigner("secret", time.Millisecond*10)
	token, _, err := signer.Generate(400, 2)
	require.NoError(t, err)
	time.Sleep(time.Millisecond * 20)

	_, _, err = signer.Validate(token)
	require.Error(t, err)
}

func TestDownloadSignerRejectsTampering(t *testing.T) {
	signer := NewDownloadSigner("secret", time.Hour)
	token, _, err := signer.Generate(400, 2)
	require.NoError(t, err)

	_, _, err = signer.Validate("401" + token[3:])
	require.Error(t, err)

	_, _, err = NewDownloadSigner("other", time.Hour).Validate(token)
	require.Error(t, err)
}
