package statesync

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestErrorWrapsKindAndCause(t *testing.T) {
	cause := errors.New("boom")
	err := newError(KindPeerAttributable, cause)
	require.Equal(t, KindPeerAttributable, err.Kind)
	require.ErrorIs(t, err, cause)
}

func TestErrorfFormatsMessage(t *testing.T) {
	err := errorf(KindAdvisory, "version %d behind", 42)
	require.NotEmpty(t, err.Error())
}

func TestKindStrings(t *testing.T) {
	kinds := []Kind{KindFatalToOperation, KindPeerAttributable, KindTransientNetwork, KindAdvisory, KindListenerDrop}
	seen := make(map[string]bool)
	for _, k := range kinds {
		s := k.String()
		require.NotEqual(t, "", s)
		require.NotEqual(t, "unknown", s)
		require.False(t, seen[s], "duplicate Kind label %q", s)
		seen[s] = true
	}
}
