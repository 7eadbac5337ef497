package network

import (
	"context"
	"errors"
	"net/http"
	"testing"
	"time"

	"github.com/Azure/azure-sdk-for-go/sdk/azcore"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/merabytes/acido/pkg/acido"
)

func TestRetryOnConflict_SucceedsAfterConflicts(t *testing.T) {
	attempts := 0
	err := retryOnConflictForTest(t, func(context.Context) error {
		attempts++
		if attempts < 3 {
			return &azcore.ResponseError{StatusCode: http.StatusConflict}
		}
		return nil
	})

	require.NoError(t, err)
	assert.Equal(t, 3, attempts)
}

func TestRetryOnConflict_NonConflictFailsFast(t *testing.T) {
	attempts := 0
	sentinel := errors.New("boom")

	err := retryOnConflictForTest(t, func(context.Context) error {
		attempts++
		return sentinel
	})

	require.ErrorIs(t, err, sentinel)
	assert.Equal(t, 1, attempts)
}

func TestRetryOnConflict_ExhaustsIntoResourceBusy(t *testing.T) {
	attempts := 0

	err := retryOnConflictForTest(t, func(context.Context) error {
		attempts++
		return &azcore.ResponseError{StatusCode: http.StatusConflict}
	})

	require.Error(t, err)
	assert.Equal(t, destroyMaxAttempts, attempts)

	var busy *acido.ResourceBusyError
	assert.ErrorAs(t, err, &busy)
}

// retryOnConflictForTest drives retryOnConflict with a near-zero backoff so
// the exhaustion test doesn't sit through the production backoff schedule.
func retryOnConflictForTest(t *testing.T, fn func(context.Context) error) error {
	t.Helper()
	oldBase, oldMax := destroyBaseBackoff, destroyMaxBackoff
	destroyBaseBackoff, destroyMaxBackoff = time.Millisecond, time.Millisecond
	defer func() { destroyBaseBackoff, destroyMaxBackoff = oldBase, oldMax }()
	return retryOnConflict(context.Background(), fn)
}
