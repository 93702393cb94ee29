// Package diff3 implements the Khanna/Kunal/Pierce three-way-diff
// formalization: given two LCS results anchored on a shared base (one
// against "mine", one against "theirs"), it walks a four-state machine
// over the base axis and emits an ordered list of stable and unstable
// chunks. internal/merge consumes that list to decide, chunk by chunk,
// which variant's text survives.
package diff3

import (
	"sort"

	"github.com/Sumatoshi-tech/wikiguard/internal/lcs"
)

// Chunk is either a Stable run (base text unchanged on both sides) or
// an Unstable run (base, mine and theirs each contribute a candidate
// span that internal/merge must reconcile). All offsets are token
// indices, not byte offsets.
type Chunk struct {
	Stable bool

	BaseStart, BaseEnd     int
	MineStart, MineEnd     int
	TheirsStart, TheirsEnd int
}

// kind identifies which side an event affects and whether it opens or
// closes a match run; order matters for the tie-break in sortEvents.
type kind int

const (
	mineStops kind = iota
	theirsStops
	mineStarts
	theirsStarts
)

// event is a single state-machine transition: at baseOffset, one side's
// match run starts or stops. otherOffset is the corresponding offset in
// mine or theirs (whichever this event affects).
type event struct {
	kind        kind
	baseOffset  int
	otherOffset int
}

func eventsFromRegions(lcsResult lcs.CommonSubsequence, starts, stops kind) []event {
	events := make([]event, 0, 2*len(lcsResult.Regions))

	for _, r := range lcsResult.Regions {
		events = append(events,
			event{kind: starts, baseOffset: r.OffsetA, otherOffset: r.OffsetB},
			event{kind: stops, baseOffset: r.OffsetA + r.Length, otherOffset: r.OffsetB + r.Length},
		)
	}

	return events
}

// sortEvents orders by base offset; at equal offsets, stops precede
// starts (closing a run before opening another minimizes spurious
// empty chunks), and mine-side events precede theirs-side ones
// (arbitrary, but fixed, so the output is deterministic).
func sortEvents(events []event) {
	rank := func(k kind) int {
		switch k {
		case mineStops:
			return 0
		case theirsStops:
			return 1
		case mineStarts:
			return 2
		case theirsStarts:
			return 3
		default:
			return 4
		}
	}

	sort.SliceStable(events, func(i, j int) bool {
		if events[i].baseOffset != events[j].baseOffset {
			return events[i].baseOffset < events[j].baseOffset
		}

		return rank(events[i].kind) < rank(events[j].kind)
	})
}

// matchState mirrors the four named states of the formalization; which
// holds one of the four state constants below. baseAnchor is meaningful
// in every state but stateNeither, mineAnchor in stateOnlyMine and
// stateBoth, and theirsAnchor in stateOnlyTheirs and stateBoth.
type matchState struct {
	which                       stateKind
	baseAnchor                  int
	mineAnchor, theirsAnchor    int
}

type stateKind int

const (
	stateNeither stateKind = iota
	stateOnlyMine
	stateOnlyTheirs
	stateBoth
)

// chunkEnd is a candidate boundary the walk emits; it is materialized
// into a Chunk once paired with the previous end's coordinates.
type chunkEnd struct {
	stable               bool
	base, mine, theirs   int
}

// Parse walks the merged event stream from lcsMine and lcsTheirs (both
// anchored on the same base) and returns the ordered chunk list
// covering [0, lenBase) exactly.
func Parse(lcsMine, lcsTheirs lcs.CommonSubsequence, lenBase, lenMine, lenTheirs int) []Chunk {
	events := append(
		eventsFromRegions(lcsMine, mineStarts, mineStops),
		eventsFromRegions(lcsTheirs, theirsStarts, theirsStops)...,
	)
	sortEvents(events)

	state := matchState{which: stateNeither}

	var ends []chunkEnd

	for _, ev := range events {
		if end, ok := nextChunkEnd(state, ev); ok {
			ends = append(ends, end)
		}

		state = nextState(state, ev)
	}

	ends = append(ends, chunkEnd{stable: false, base: lenBase, mine: lenMine, theirs: lenTheirs})

	return materialize(ends)
}

func nextChunkEnd(state matchState, ev event) (chunkEnd, bool) {
	switch {
	case state.which == stateOnlyMine && ev.kind == theirsStarts:
		length := ev.baseOffset - state.baseAnchor
		return chunkEnd{
			stable: false,
			base:   ev.baseOffset,
			mine:   state.mineAnchor + length,
			theirs: ev.otherOffset,
		}, true

	case state.which == stateOnlyTheirs && ev.kind == mineStarts:
		length := ev.baseOffset - state.baseAnchor
		return chunkEnd{
			stable: false,
			base:   ev.baseOffset,
			mine:   ev.otherOffset,
			theirs: state.theirsAnchor + length,
		}, true

	case state.which == stateBoth && ev.kind == mineStops:
		length := ev.baseOffset - state.baseAnchor
		return chunkEnd{
			stable: true,
			base:   ev.baseOffset,
			mine:   ev.otherOffset,
			theirs: state.theirsAnchor + length,
		}, true

	case state.which == stateBoth && ev.kind == theirsStops:
		length := ev.baseOffset - state.baseAnchor
		return chunkEnd{
			stable: true,
			base:   ev.baseOffset,
			mine:   state.mineAnchor + length,
			theirs: ev.otherOffset,
		}, true

	default:
		return chunkEnd{}, false
	}
}

func nextState(state matchState, ev event) matchState {
	switch {
	case state.which == stateNeither && ev.kind == mineStarts:
		return matchState{which: stateOnlyMine, baseAnchor: ev.baseOffset, mineAnchor: ev.otherOffset}

	case state.which == stateNeither && ev.kind == theirsStarts:
		return matchState{which: stateOnlyTheirs, baseAnchor: ev.baseOffset, theirsAnchor: ev.otherOffset}

	case state.which == stateOnlyMine && ev.kind == theirsStarts:
		length := ev.baseOffset - state.baseAnchor
		return matchState{
			which:       stateBoth,
			baseAnchor:  ev.baseOffset,
			mineAnchor:  state.mineAnchor + length,
			theirsAnchor: ev.otherOffset,
		}

	case state.which == stateOnlyMine && ev.kind == mineStops:
		return matchState{which: stateNeither}

	case state.which == stateOnlyTheirs && ev.kind == mineStarts:
		length := ev.baseOffset - state.baseAnchor
		return matchState{
			which:       stateBoth,
			baseAnchor:  ev.baseOffset,
			mineAnchor:  ev.otherOffset,
			theirsAnchor: state.theirsAnchor + length,
		}

	case state.which == stateOnlyTheirs && ev.kind == theirsStops:
		return matchState{which: stateNeither}

	case state.which == stateBoth && ev.kind == mineStops:
		return matchState{which: stateOnlyTheirs, baseAnchor: state.baseAnchor, theirsAnchor: state.theirsAnchor}

	case state.which == stateBoth && ev.kind == theirsStops:
		return matchState{which: stateOnlyMine, baseAnchor: state.baseAnchor, mineAnchor: state.mineAnchor}

	default:
		// Any other (state, transition) pairing cannot arise from a
		// well-formed event stream built by eventsFromRegions.
		panic("diff3: illegal match-state transition")
	}
}

func materialize(ends []chunkEnd) []Chunk {
	chunks := make([]Chunk, 0, len(ends))

	var baseOffset, mineOffset, theirsOffset int

	for _, end := range ends {
		if end.stable {
			if end.base == baseOffset {
				continue
			}

			chunks = append(chunks, Chunk{
				Stable:      true,
				BaseStart:   baseOffset,
				BaseEnd:     end.base,
				MineStart:   mineOffset,
				MineEnd:     end.mine,
				TheirsStart: theirsOffset,
				TheirsEnd:   end.theirs,
			})
		} else {
			if end.base == baseOffset && end.mine == mineOffset && end.theirs == theirsOffset {
				continue
			}

			chunks = append(chunks, Chunk{
				Stable:      false,
				BaseStart:   baseOffset,
				BaseEnd:     end.base,
				MineStart:   mineOffset,
				MineEnd:     end.mine,
				TheirsStart: theirsOffset,
				TheirsEnd:   end.theirs,
			})
		}

		baseOffset, mineOffset, theirsOffset = end.base, end.mine, end.theirs
	}

	return chunks
}
