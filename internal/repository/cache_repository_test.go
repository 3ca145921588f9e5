package repository

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	appErrors "github.com/kmssa/attendance-register/pkg/errors"
)

func TestCacheRepositoryDefaultsLogger(t *testing.T) {
	repo := NewCacheRepository(nil, nil)
	require.NotNil(t, repo.logger)

	// Degraded repository must be callable without panicking.
	require.NoError(t, repo.DeleteByPattern(context.Background(), "stats:daily:*"))
}

func TestCacheRepositoryNilClientDegradesToMiss(t *testing.T) {
	repo := NewCacheRepository(nil, nil)

	var dest map[string]int
	err := repo.Get(context.Background(), "stats:daily:2025-03-14", &dest)
	assert.ErrorIs(t, err, appErrors.ErrCacheMiss)

	require.NoError(t, repo.Set(context.Background(), "stats:daily:2025-03-14", map[string]int{"present": 1}, time.Minute))
}
