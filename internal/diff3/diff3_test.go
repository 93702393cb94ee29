package diff3_test

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/Sumatoshi-tech/wikiguard/internal/diff3"
	"github.com/Sumatoshi-tech/wikiguard/internal/lcs"
)

// figureOneLCSes reproduces the worked example from figure 1 of the
// diff3 paper: a base of 6 tokens, with mine and theirs each matching
// it in three disjoint runs.
func figureOneLCSes() (mine, theirs lcs.CommonSubsequence) {
	mine = lcs.CommonSubsequence{
		Regions: []lcs.CommonRegion{
			{OffsetA: 0, OffsetB: 0, Length: 1},
			{OffsetA: 1, OffsetB: 3, Length: 2},
			{OffsetA: 5, OffsetB: 5, Length: 1},
		},
		Length: 4,
	}
	theirs = lcs.CommonSubsequence{
		Regions: []lcs.CommonRegion{
			{OffsetA: 0, OffsetB: 0, Length: 2},
			{OffsetA: 3, OffsetB: 2, Length: 2},
			{OffsetA: 5, OffsetB: 5, Length: 1},
		},
		Length: 5,
	}

	return mine, theirs
}

func TestParseFigureOneChunks(t *testing.T) {
	mine, theirs := figureOneLCSes()

	chunks := diff3.Parse(mine, theirs, 6, 6, 6)

	require.Equal(t, []diff3.Chunk{
		{Stable: true, BaseStart: 0, BaseEnd: 1, MineStart: 0, MineEnd: 1, TheirsStart: 0, TheirsEnd: 1},
		{Stable: false, BaseStart: 1, BaseEnd: 1, MineStart: 1, MineEnd: 3, TheirsStart: 1, TheirsEnd: 1},
		{Stable: true, BaseStart: 1, BaseEnd: 2, MineStart: 3, MineEnd: 4, TheirsStart: 1, TheirsEnd: 2},
		{Stable: false, BaseStart: 2, BaseEnd: 5, MineStart: 4, MineEnd: 5, TheirsStart: 2, TheirsEnd: 5},
		{Stable: true, BaseStart: 5, BaseEnd: 6, MineStart: 5, MineEnd: 6, TheirsStart: 5, TheirsEnd: 6},
	}, chunks)
}

func TestParseStableChunksCoverBaseExactly(t *testing.T) {
	mine, theirs := figureOneLCSes()

	chunks := diff3.Parse(mine, theirs, 6, 6, 6)

	var covered int
	for _, c := range chunks {
		require.Equal(t, covered, c.BaseStart)
		covered = c.BaseEnd
	}
	require.Equal(t, 6, covered)
}

func TestParseIdenticalSidesYieldsOneStableChunk(t *testing.T) {
	both := lcs.CommonSubsequence{
		Regions: []lcs.CommonRegion{{OffsetA: 0, OffsetB: 0, Length: 4}},
		Length:  4,
	}

	chunks := diff3.Parse(both, both, 4, 4, 4)

	require.Equal(t, []diff3.Chunk{
		{Stable: true, BaseStart: 0, BaseEnd: 4, MineStart: 0, MineEnd: 4, TheirsStart: 0, TheirsEnd: 4},
	}, chunks)
}

func TestParseNoMatchesYieldsOneUnstableChunk(t *testing.T) {
	empty := lcs.CommonSubsequence{}

	chunks := diff3.Parse(empty, empty, 3, 5, 7)

	require.Equal(t, []diff3.Chunk{
		{Stable: false, BaseStart: 0, BaseEnd: 3, MineStart: 0, MineEnd: 5, TheirsStart: 0, TheirsEnd: 7},
	}, chunks)
}
