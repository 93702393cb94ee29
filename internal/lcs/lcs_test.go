package lcs_test

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/Sumatoshi-tech/wikiguard/internal/lcs"
	"github.com/Sumatoshi-tech/wikiguard/internal/token"
)

func farFuture() time.Time {
	return time.Now().Add(time.Hour)
}

func tokenCount(source string) int {
	return len(token.Tokens(source))
}

func TestIdenticalStringsMatchEverything(t *testing.T) {
	source := "test identical strings"

	result, ok := lcs.Search(source, source, farFuture())
	require.True(t, ok)
	require.Equal(t, tokenCount(source), result.Length)
	require.Len(t, result.Regions, 1)
	require.Equal(t, lcs.CommonRegion{OffsetA: 0, OffsetB: 0, Length: tokenCount(source)}, result.Regions[0])
}

func TestDiffInMiddle(t *testing.T) {
	a := "test string"
	b := "test diff in middle string"

	result, ok := lcs.Search(a, b, farFuture())
	require.True(t, ok)
	require.Equal(t, 2, result.Length)
	require.Equal(t, []lcs.CommonRegion{
		{OffsetA: 0, OffsetB: 0, Length: 1},
		{OffsetA: 1, OffsetB: 4, Length: 1},
	}, result.Regions)
}

func TestNoWordsInCommon(t *testing.T) {
	a := "a b c d e f g"
	b := "1 2 3 4 5 6 7 8"

	result, ok := lcs.Search(a, b, farFuture())
	require.True(t, ok)
	require.Zero(t, result.Length)
	require.Empty(t, result.Regions)
}

func TestSymmetryOverTransposition(t *testing.T) {
	a := "1 2 3 4 5 6"
	b := "1 2 4 5 3 6"

	ab, ok := lcs.Search(a, b, farFuture())
	require.True(t, ok)

	ba, ok := lcs.Search(b, a, farFuture())
	require.True(t, ok)

	require.Equal(t, ab.Length, ba.Length)
}

func TestEmptyInputYieldsEmptySubsequence(t *testing.T) {
	result, ok := lcs.Search("", "anything at all", farFuture())
	require.True(t, ok)
	require.Zero(t, result.Length)
	require.Empty(t, result.Regions)
}

func TestMultibyteCharactersCompareByteExact(t *testing.T) {
	a := "Test さよ string 𐅃."
	b := "Test さよ ならstring ."

	result, ok := lcs.Search(a, b, farFuture())
	require.True(t, ok)
	require.Positive(t, result.Length)

	for _, r := range result.Regions {
		aToks := token.Tokens(a)
		bToks := token.Tokens(b)
		require.Equal(t, aToks[r.OffsetA].Bytes(a), bToks[r.OffsetB].Bytes(b))
	}
}

func TestDeadlineExceededReturnsNotOK(t *testing.T) {
	_, ok := lcs.Search("a b c", "c b a", time.Now().Add(-time.Second))
	require.False(t, ok)
}

func TestRegionsAreOrderedAndNonOverlapping(t *testing.T) {
	a := "the quick brown fox jumps over the lazy dog"
	b := "the slow brown fox leaps over a lazy cat"

	result, ok := lcs.Search(a, b, farFuture())
	require.True(t, ok)

	for i := 1; i < len(result.Regions); i++ {
		prev := result.Regions[i-1]
		cur := result.Regions[i]
		require.Greater(t, cur.OffsetA, prev.OffsetA+prev.Length-1)
		require.Greater(t, cur.OffsetB, prev.OffsetB+prev.Length-1)
	}
}
