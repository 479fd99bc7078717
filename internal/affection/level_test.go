package affection

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestLevelBoundaries(t *testing.T) {
	cases := []struct {
		score int
		want  string
	}{
		{100, "💖 최고의 친구"},
		{90, "💖 최고의 친구"},
		{89, "💕 매우 친함"},
		{80, "💕 매우 친함"},
		{79, "😊 친함"},
		{70, "😊 친함"},
		{60, "🙂 호감"},
		{59, "😐 보통"},
		{50, "😐 보통"},
		{40, "😒 약간 서먹"},
		{30, "😕 서먹함"},
		{20, "😤 불편함"},
		{10, "😠 매우 불편함"},
		{9, "💔 최악"},
		{0, "💔 최악"},
	}
	for _, tc := range cases {
		require.Equal(t, tc.want, Level(tc.score), "score=%d", tc.score)
	}
}

func TestLevelIsTotal(t *testing.T) {
	labels := Levels()
	require.Len(t, labels, 10)

	seen := make(map[string]bool)
	for s := 0; s <= 100; s++ {
		label := Level(s)
		require.Contains(t, labels, label)
		require.Equal(t, label, Level(s), "deterministic")
		seen[label] = true
	}
	require.Len(t, seen, 10)

	// 超出范围的输入先截断
	require.Equal(t, Level(0), Level(-5))
	require.Equal(t, Level(100), Level(250))
}

func TestApplyClamps(t *testing.T) {
	for s := 0; s <= 100; s += 7 {
		for d := -1000; d <= 1000; d += 37 {
			got := Apply(s, d)
			require.GreaterOrEqual(t, got, 0)
			require.LessOrEqual(t, got, 100)
		}
	}
	require.Equal(t, 100, Apply(98, 7))
	require.Equal(t, 0, Apply(5, -8))
	require.Equal(t, 53, Apply(50, 3))
}

func TestClampDelta(t *testing.T) {
	require.Equal(t, 10, ClampDelta(15))
	require.Equal(t, -10, ClampDelta(-99))
	require.Equal(t, 4, ClampDelta(4))
}

func TestBehaviorClauseBrackets(t *testing.T) {
	require.Contains(t, BehaviorClause(80), "warm")
	require.Contains(t, BehaviorClause(79), "friendly")
	require.Contains(t, BehaviorClause(60), "friendly")
	require.Contains(t, BehaviorClause(59), "polite")
	require.Contains(t, BehaviorClause(40), "polite")
	require.Contains(t, BehaviorClause(39), "formal")
	require.Contains(t, BehaviorClause(20), "formal")
	require.Contains(t, BehaviorClause(19), "cold")
	require.Contains(t, BehaviorClause(-3), "cold")
}
