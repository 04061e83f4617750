package emailchange_test

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	emailchange "github.com/kazu0702/vs-fund-api"
)

func TestRequestExpired(t *testing.T) {
	now := time.Now()

	live := &emailchange.EmailChangeRequest{ExpiresAt: now.Add(time.Minute)}
	require.False(t, live.Expired(now))

	dead := &emailchange.EmailChangeRequest{ExpiresAt: now.Add(-time.Minute)}
	require.True(t, dead.Expired(now))

	// A request expiring exactly now is already expired.
	edge := &emailchange.EmailChangeRequest{ExpiresAt: now}
	require.True(t, edge.Expired(now))

	var missing *emailchange.EmailChangeRequest
	require.True(t, missing.Expired(now))
}

func TestIsTokenNotFound(t *testing.T) {
	require.True(t, emailchange.IsTokenNotFound(notFoundErr()))
	require.False(t, emailchange.IsTokenNotFound(nil))
}
