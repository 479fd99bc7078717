package util

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestAccessCode(t *testing.T) {
	hash, err := HashAccessCode("open-sesame")
	require.NoError(t, err)
	require.NotEqual(t, "open-sesame", hash)

	require.True(t, CheckAccessCode("open-sesame", hash))
	require.False(t, CheckAccessCode("wrong", hash))
	require.False(t, CheckAccessCode("", hash))
	require.False(t, CheckAccessCode("open-sesame", ""))
}

func TestHashTokenStable(t *testing.T) {
	require.Equal(t, HashToken("abc"), HashToken("abc"))
	require.NotEqual(t, HashToken("abc"), HashToken("abd"))
	require.Len(t, HashToken("abc"), 64)
}

func TestTruncateString(t *testing.T) {
	require.Equal(t, "hello", TruncateString("hello", 10))
	require.Equal(t, "hel...", TruncateString("hello world", 6))
	require.Equal(t, "안녕하...", TruncateString("안녕하세요 반가워요", 6))
	require.Equal(t, "he", TruncateString("hello", 2))
}

func TestGenerateUUID(t *testing.T) {
	id := GenerateUUID()
	require.Len(t, id, 32)
	require.NotContains(t, id, "-")
	require.NotEqual(t, id, GenerateUUID())
}
