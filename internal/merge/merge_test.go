package merge_test

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/Sumatoshi-tech/wikiguard/internal/merge"
	"github.com/Sumatoshi-tech/wikiguard/internal/sentinel"
)

func testConfig() merge.Config {
	return merge.Config{SizeLimitBytes: 1000, TimeLimit: time.Second}
}

func TestIdentity(t *testing.T) {
	x := "First sentence. Second sentence.\n"

	result, timedOut := merge.Try(x, x, x, "t", testConfig())
	require.False(t, timedOut)
	require.Equal(t, x, result)
}

func TestLeftIdentity(t *testing.T) {
	base := "First sentence. Second sentence.\n"
	mine := "First sentence. Second sentence changed.\n"

	result, timedOut := merge.Try(base, mine, base, "t", testConfig())
	require.False(t, timedOut)
	require.Equal(t, mine, result)
}

func TestRightUnchangedWrapsEveryChangedRegion(t *testing.T) {
	base := "First sentence. Second sentence.\n"
	theirs := "First sentence changed. Second sentence changed.\n"

	result, timedOut := merge.Try(base, base, theirs, "t", testConfig())
	require.False(t, timedOut)
	require.Equal(t, theirs, stripMarkers(t, result, "t"))
}

func TestGoldenCleanMerge(t *testing.T) {
	base := "First sentence. Second sentence."
	mine := "First sentence. Second sentence changed."
	theirs := "First sentence changed. Second sentence."

	result, timedOut := merge.Try(base, mine, theirs, "t", testConfig())
	require.False(t, timedOut)
	require.Equal(t, "First "+sentinel.Wrap("t", "sentence changed. ")+"Second sentence changed.", result)
}

func TestGoldenConflictingMerge(t *testing.T) {
	base := "First sentence. Second sentence."
	mine := "First sentence. Second sentence changed one way."
	theirs := "First sentence changed. Second sentence changed a different way."

	result, timedOut := merge.Try(base, mine, theirs, "9", testConfig())
	require.False(t, timedOut)
	require.Contains(t, result, sentinel.Start+"9"+sentinel.Start)
	require.Contains(t, result, sentinel.End+"9"+sentinel.End)
}

func TestGoldenTrailingInsertion(t *testing.T) {
	base := "Test string. "
	mine := "Test 1 string. "
	theirs := "Test string. 2"

	result, timedOut := merge.Try(base, mine, theirs, "t", testConfig())
	require.False(t, timedOut)
	require.Equal(t, "Test 1 string. "+sentinel.Wrap("t", "2"), result)
}

func TestMultibyteSafe(t *testing.T) {
	base := "First sentence. Second sentence.\n"
	mine := "First sentence. Second sentence 𐅃.\n"
	theirs := "First sentence さようなら.\n\nSecond sentence.\n"

	result, timedOut := merge.Try(base, mine, theirs, "t", testConfig())
	require.False(t, timedOut)
	require.True(t, len(result) > 0)
}

func TestSizeGuardSkipsAndReportsNoTimeout(t *testing.T) {
	base := "short"
	theirs := "this text is very much longer than the base by far more than the configured byte limit allows"
	mine := "short but different"

	cfg := merge.Config{SizeLimitBytes: 4, TimeLimit: time.Second}

	result, timedOut := merge.Try(base, mine, theirs, "t", cfg)
	require.False(t, timedOut)
	require.Equal(t, mine, result)
}

func TestDeadlineExceededReportsTimeout(t *testing.T) {
	base := "one two three four five six seven eight nine ten"
	mine := "one two three four five six seven eight nine ten eleven"
	theirs := "zero one two three four five six seven eight nine"

	cfg := merge.Config{SizeLimitBytes: 1000, TimeLimit: -time.Second}

	result, timedOut := merge.Try(base, mine, theirs, "t", cfg)
	require.True(t, timedOut)
	require.Equal(t, mine, result)
}

// stripMarkers removes every Wrap(id, ...) marker pair from s, keeping
// only the wrapped text, so the result can be compared against an
// unmarked expectation.
func stripMarkers(t *testing.T, s string, id string) string {
	t.Helper()

	open := sentinel.Start + id + sentinel.Start
	closeTag := sentinel.End + id + sentinel.End

	out := s
	for {
		i := indexOf(out, open)
		if i < 0 {
			break
		}

		j := indexOf(out[i:], closeTag)
		if j < 0 {
			break
		}

		out = out[:i] + out[i+len(open):i+j] + out[i+j+len(closeTag):]
	}

	return out
}

func indexOf(s, substr string) int {
	for i := 0; i+len(substr) <= len(s); i++ {
		if s[i:i+len(substr)] == substr {
			return i
		}
	}

	return -1
}
