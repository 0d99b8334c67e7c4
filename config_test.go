package statesync

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestRetryTimeoutFullNodePiggybacksLongPoll(t *testing.T) {
	cfg := Config{TickInterval: time.Second, LongPollTimeout: 60 * time.Second}
	require.Equal(t, 61*time.Second, cfg.RetryTimeout(RoleFullNode))
}

func TestRetryTimeoutValidatorDoublesTick(t *testing.T) {
	cfg := Config{TickInterval: 500 * time.Millisecond}
	require.Equal(t, time.Second, cfg.RetryTimeout(RoleValidator))
}

func TestDefaultsAreFullNodeByDefault(t *testing.T) {
	require.Equal(t, RoleFullNode, Defaults.Role)
	require.NotZero(t, Defaults.ChunkLimit)
}
