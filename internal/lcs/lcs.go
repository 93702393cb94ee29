// Package lcs implements the best-first longest-common-subsequence search
// described by the three-way merger (internal/merge): a work-queue
// traversal of the (offsetA, offsetB) grid with an admissible,
// edit-distance-equivalent priority function, dominance pruning, and a
// wall-clock deadline.
//
// It is deliberately not a textbook dynamic-programming LCS: the queue
// formulation lets the search abandon unproductive regions of the grid
// early (via dominance pruning) and bail out cleanly once a deadline is
// reached, which is what keeps merges of article-scale wikitext
// tractable (see internal/section for how a worker reacts to a timeout).
package lcs

import (
	"container/heap"
	"time"

	"github.com/Sumatoshi-tech/wikiguard/internal/token"
)

// CommonRegion records that length consecutive tokens starting at
// OffsetA (in a) and OffsetB (in b) are pairwise byte-equal.
type CommonRegion struct {
	OffsetA int
	OffsetB int
	Length  int
}

// CommonSubsequence is an ordered, non-overlapping run of CommonRegions
// whose projections onto both inputs are strictly increasing.
type CommonSubsequence struct {
	Regions []CommonRegion
	Length  int // total tokens across all regions
}

// node is a queued search task: a candidate common subsequence built up
// to (offsetA, offsetB), plus cursors to resume scanning from there.
// Ownership is by value — every descendant gets its own copy of the
// regions slice and iterator cursors, never a slice shared with a
// sibling that might still append to it.
type node struct {
	offsetA, offsetB int
	iterA, iterB     token.Iterator
	regions          []CommonRegion
	length           int
}

func appendRegion(regions []CommonRegion, r CommonRegion) []CommonRegion {
	out := make([]CommonRegion, len(regions)+1)
	copy(out, regions)
	out[len(regions)] = r

	return out
}

// compare returns >0 if a has strictly higher search priority than b,
// <0 if lower, 0 if tied (ties may break either way; the heap does not
// need a strict total order to be correct, only a consistent one for a
// single run).
func compare(a, b *node) int {
	aVal := 2*a.length - a.offsetA - a.offsetB
	bVal := 2*b.length - b.offsetA - b.offsetB

	if aVal != bVal {
		return aVal - bVal
	}

	aDiff := abs(a.offsetA - a.offsetB)
	bDiff := abs(b.offsetA - b.offsetB)

	if aDiff != bDiff {
		// Smaller difference wins: invert the sign.
		return bDiff - aDiff
	}

	aSum := a.offsetA + a.offsetB
	bSum := b.offsetA + b.offsetB

	if aSum != bSum {
		return aSum - bSum
	}

	if a.offsetA != b.offsetA {
		return a.offsetA - b.offsetA
	}

	if a.offsetB != b.offsetB {
		return a.offsetB - b.offsetB
	}

	return compareEarliestRegion(a.regions, b.regions)
}

// compareEarliestRegion breaks remaining ties by preferring the task
// whose earliest differing region (by position in the region list) is
// longer; a missing region is treated as length zero. This tie-break is
// arbitrary by construction — it exists only to make the order total,
// not because one outcome is more "correct" than another.
func compareEarliestRegion(a, b []CommonRegion) int {
	n := len(a)
	if len(b) > n {
		n = len(b)
	}

	for i := 0; i < n; i++ {
		var aLen, bLen int

		if i < len(a) {
			aLen = a[i].Length
		}

		if i < len(b) {
			bLen = b[i].Length
		}

		if aLen != bLen {
			return aLen - bLen
		}
	}

	return 0
}

func abs(x int) int {
	if x < 0 {
		return -x
	}

	return x
}

// priorityQueue is a max-heap over nodes ordered by compare.
type priorityQueue []*node

func (q priorityQueue) Len() int { return len(q) }

func (q priorityQueue) Less(i, j int) bool { return compare(q[i], q[j]) > 0 }

func (q priorityQueue) Swap(i, j int) { q[i], q[j] = q[j], q[i] }

func (q *priorityQueue) Push(x any) { *q = append(*q, x.(*node)) }

func (q *priorityQueue) Pop() any {
	old := *q
	n := len(old)
	item := old[n-1]
	old[n-1] = nil
	*q = old[:n-1]

	return item
}

type dominanceKey struct{ a, b int }

// Search returns the globally optimal common subsequence of a and b, or
// ok=false if deadline is reached first. An empty a or b yields an empty
// subsequence rather than false.
func Search(a, b string, deadline time.Time) (result CommonSubsequence, ok bool) {
	queue := &priorityQueue{}
	heap.Init(queue)

	heap.Push(queue, &node{
		iterA: token.New(a),
		iterB: token.New(b),
	})

	seen := make(map[dominanceKey]int)

	for {
		if time.Now().After(deadline) {
			return CommonSubsequence{}, false
		}

		if queue.Len() == 0 {
			// Unreachable for well-formed inputs: the start node always
			// eventually reaches (len(a), len(b)).
			return CommonSubsequence{}, false
		}

		current := heap.Pop(queue).(*node)

		matched := 0
		regions := current.regions
		length := current.length
		iterA := current.iterA
		iterB := current.iterB

		for {
			tokA, okA := iterA.Peek()
			tokB, okB := iterB.Peek()

			if !okA || !okB || !tokA.Equal(a, tokB, b) {
				break
			}

			iterA.Next()
			iterB.Next()
			matched++
		}

		if matched > 0 {
			regions = appendRegion(regions, CommonRegion{
				OffsetA: current.offsetA,
				OffsetB: current.offsetB,
				Length:  matched,
			})
			length += matched
		}

		newOffsetA := current.offsetA + matched
		newOffsetB := current.offsetB + matched

		_, aHasNext := iterA.Peek()
		_, bHasNext := iterB.Peek()

		if !aHasNext && !bHasNext {
			return CommonSubsequence{Regions: regions, Length: length}, true
		}

		if aHasNext {
			enqueue(queue, seen, node{
				offsetA: newOffsetA + 1,
				offsetB: newOffsetB,
				iterA:   advanced(iterA),
				iterB:   iterB,
				regions: regions,
				length:  length,
			})
		}

		if bHasNext {
			enqueue(queue, seen, node{
				offsetA: newOffsetA,
				offsetB: newOffsetB + 1,
				iterA:   iterA,
				iterB:   advanced(iterB),
				regions: regions,
				length:  length,
			})
		}
	}
}

func advanced(it token.Iterator) token.Iterator {
	clone := it.Clone()
	clone.Next()

	return clone
}

func enqueue(queue *priorityQueue, seen map[dominanceKey]int, n node) {
	key := dominanceKey{n.offsetA, n.offsetB}

	if best, ok := seen[key]; ok && best >= n.length {
		return
	}

	seen[key] = n.length

	nn := n
	heap.Push(queue, &nn)
}
