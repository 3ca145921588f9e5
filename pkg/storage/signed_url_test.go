package storage

import (
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSignedURLDownloadTokenRoundTrip(t *testing.T) {
	signer := NewSignedURLSigner("register-secret", time.Hour)

	token, expiresAt, err := signer.Generate("3f2a", "attendance_records_2025-03-14_3f2a.csv")
	require.NoError(t, err)
	require.Len(t, strings.Split(token, "."), 4)
	assert.WithinDuration(t, time.Now().Add(time.Hour), expiresAt, time.Second)

	jobID, relPath, parsedExpiry, err := signer.Parse(token, false)
	require.NoError(t, err)
	assert.Equal(t, "3f2a", jobID)
	assert.Equal(t, "attendance_records_2025-03-14_3f2a.csv", relPath)
	assert.WithinDuration(t, expiresAt, parsedExpiry, time.Second)
}

func TestSignedURLRejectsForgedTokens(t *testing.T) {
	signer := NewSignedURLSigner("register-secret", time.Hour)
	token, _, err := signer.Generate("3f2a", "attendance_records_2025-03-14_3f2a.csv")
	require.NoError(t, err)
	parts := strings.Split(token, ".")

	forgedPath, _, err := NewSignedURLSigner("register-secret", time.Hour).Generate("3f2a", "../../etc/passwd")
	require.NoError(t, err)
	otherPath := strings.Split(forgedPath, ".")[2]

	tests := []struct {
		name  string
		token string
	}{
		{"appended garbage", token + "x"},
		{"swapped path segment", strings.Join([]string{parts[0], parts[1], otherPath, parts[3]}, ".")},
		{"extended expiry", strings.Join([]string{parts[0], "9999999999", parts[2], parts[3]}, ".")},
		{"missing signature", strings.Join(parts[:3], ".")},
		{"empty token", ""},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, _, _, err := signer.Parse(tt.token, false)
			assert.Error(t, err)
		})
	}

	// A token minted under a different secret never validates.
	foreign, _, err := NewSignedURLSigner("other-secret", time.Hour).Generate("3f2a", "attendance_records_2025-03-14_3f2a.csv")
	require.NoError(t, err)
	_, _, _, err = signer.Parse(foreign, false)
	assert.Error(t, err)
}

func TestSignedURLExpiredTokenResolvableForCleanup(t *testing.T) {
	signer := NewSignedURLSigner("register-secret", 10*time.Millisecond)
	token, _, err := signer.Generate("3f2a", "attendance_records_2025-03-14_3f2a.pdf")
	require.NoError(t, err)
	time.Sleep(20 * time.Millisecond)

	_, _, _, err = signer.Parse(token, false)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "expired")

	// Cleanup still needs the embedded path after expiry.
	jobID, relPath, _, err := signer.Parse(token, true)
	require.NoError(t, err)
	assert.Equal(t, "3f2a", jobID)
	assert.Equal(t, "attendance_records_2025-03-14_3f2a.pdf", relPath)
}

func TestSignedURLGenerateRequiresInputs(t *testing.T) {
	signer := NewSignedURLSigner("register-secret", time.Hour)

	_, _, err := signer.Generate("", "attendance_records_2025-03-14.csv")
	assert.Error(t, err)
	_, _, err = signer.Generate("3f2a", "")
	assert.Error(t, err)

	_, _, err = NewSignedURLSigner("", time.Hour).Generate("3f2a", "attendance_records_2025-03-14.csv")
	assert.Error(t, err)
}
