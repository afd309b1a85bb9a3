package utils

import (
	"testing"

	log "github.com/sirupsen/logrus"
	"github.com/stretchr/testify/require"
)

func TestSetLevel(t *testing.T) {
	defer log.SetLevel(log.InfoLevel)

	require.NoError(t, SetLevel("debug"))
	require.Equal(t, log.DebugLevel, log.GetLevel())

	require.NoError(t, SetLevel("WARN"))
	require.Equal(t, log.WarnLevel, log.GetLevel())

	require.Error(t, SetLevel("chatty"))
	require.Equal(t, log.WarnLevel, log.GetLevel())
}
