// Package merge implements the three-way merger: given a base text and
// two derived variants (mine, theirs), it reproduces base where both
// variants agree and resolves each region where they diverge according
// to a fixed, deterministic policy. It is the consumer of both
// internal/lcs (twice, once per variant) and internal/diff3 (once, to
// turn the pair of LCS results into an ordered chunk list).
package merge

import (
	"strings"
	"time"

	"github.com/Sumatoshi-tech/wikiguard/internal/diff3"
	"github.com/Sumatoshi-tech/wikiguard/internal/lcs"
	"github.com/Sumatoshi-tech/wikiguard/internal/sentinel"
	"github.com/Sumatoshi-tech/wikiguard/internal/token"
)

// Config bounds how much work a single merge attempt may do before
// giving up and reporting a timeout to its caller.
type Config struct {
	// SizeLimitBytes caps how far base and theirs may diverge in raw
	// byte length before the merge is skipped outright.
	SizeLimitBytes int
	// TimeLimit bounds how long the two LCS searches together may run.
	TimeLimit time.Duration
}

// SizeGuardTripped reports whether base and theirs diverge in raw byte
// length by more than cfg allows. Callers that need to distinguish a
// size-skip from an honest no-op merge (internal/section's back-off
// counter) must check this themselves before calling Try, since Try's
// own timedOut result does not carry that distinction.
func SizeGuardTripped(base, theirs string, cfg Config) bool {
	return absInt(len(base)-len(theirs)) > cfg.SizeLimitBytes
}

// Try attempts a three-way merge of base/mine/theirs, tagging any of
// theirs' text that survives into the result with marker (normally the
// decimal id of the revision that introduced theirs). It reports
// timedOut when either LCS search missed its deadline; a tripped size
// guard is reported as (mine, false), since by the time Try runs the
// guard is purely a cheap no-op short-circuit, not a back-off signal
// (see SizeGuardTripped).
func Try(base, mine, theirs, marker string, cfg Config) (result string, timedOut bool) {
	if SizeGuardTripped(base, theirs, cfg) {
		return mine, false
	}

	deadline := time.Now().Add(cfg.TimeLimit)

	lcsMine, ok := lcs.Search(base, mine, deadline)
	if !ok {
		return mine, true
	}

	lcsTheirs, ok := lcs.Search(base, theirs, deadline)
	if !ok {
		return mine, true
	}

	baseTokens := token.Tokens(base)
	mineTokens := token.Tokens(mine)
	theirsTokens := token.Tokens(theirs)

	chunks := diff3.Parse(lcsMine, lcsTheirs, len(baseTokens), len(mineTokens), len(theirsTokens))

	var out strings.Builder

	for _, c := range chunks {
		if c.Stable {
			out.WriteString(span(baseTokens, base, c.BaseStart, c.BaseEnd))
			continue
		}

		out.WriteString(resolveUnstable(
			span(baseTokens, base, c.BaseStart, c.BaseEnd),
			span(mineTokens, mine, c.MineStart, c.MineEnd),
			span(theirsTokens, theirs, c.TheirsStart, c.TheirsEnd),
			marker,
		))
	}

	return out.String(), false
}

// resolveUnstable implements the four-way resolution table: changed
// only in theirs keeps theirs (tagged); changed only in mine keeps
// mine; identical concurrent changes keep mine untagged; genuine
// three-way conflicts keep theirs (tagged), so restored vandalism stays
// visible rather than silently vanishing.
func resolveUnstable(base, mine, theirs, marker string) string {
	baseEqualsMine := base == mine
	baseEqualsTheirs := base == theirs

	switch {
	case baseEqualsMine && !baseEqualsTheirs:
		return sentinel.Wrap(marker, theirs)
	case !baseEqualsMine && baseEqualsTheirs:
		return mine
	case !baseEqualsMine && !baseEqualsTheirs && mine == theirs:
		return mine
	default:
		// Also catches the degenerate base==mine==theirs case (a diff3
		// chunk should never mark equal spans Unstable in practice).
		// Wrapping theirs here rather than silently dropping the chunk is
		// deliberate: an Unstable chunk must always produce visible output.
		return sentinel.Wrap(marker, theirs)
	}
}

// span concatenates the byte ranges of tokens[start:end] in source.
// Tokens are contiguous by construction, so the range collapses to a
// single slice; start == end yields the empty string.
func span(tokens []token.Token, source string, start, end int) string {
	if start >= end {
		return ""
	}

	first := tokens[start]
	last := tokens[end-1]

	return source[first.Offset : last.Offset+last.Length]
}

func absInt(x int) int {
	if x < 0 {
		return -x
	}

	return x
}
