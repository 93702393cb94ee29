// Package section implements the per-section merge worker (C5): a
// message-passing actor that owns one section's accumulator text
// across a stream of historical (clean, vandalized, revision)
// triples, applying internal/merge and backing off after repeated
// timeouts. Workers are independent; the only shared state is the
// input/output channel endpoints the orchestrator holds.
package section

import (
	"log/slog"
	"strconv"

	"github.com/Sumatoshi-tech/wikiguard/internal/merge"
)

// Item is a single historical triple dispatched to a section worker:
// the clean (post-revert) and vandalized (pre-revert) text for this
// section under one antivandalism revision.
type Item struct {
	Clean      string
	Vandalized string
	RevisionID uint64
}

// Worker owns one section's accumulator. Construct with New and run
// with Run in its own goroutine; the orchestrator retains only the
// input and output channel ends.
type Worker struct {
	title       string
	accumulator string

	merger                 merge.Config
	maxConsecutiveTimeouts int
	consecutiveTimeouts    int

	input  <-chan Item
	output chan<- string

	log *slog.Logger
}

// New constructs a worker seeded with the section's current text. seed
// becomes the initial accumulator, i.e. "mine" in the first merge.
func New(title, seed string, merger merge.Config, maxConsecutiveTimeouts int, input <-chan Item, output chan<- string, log *slog.Logger) *Worker {
	if log == nil {
		log = slog.Default()
	}

	return &Worker{
		title:                  title,
		accumulator:            seed,
		merger:                 merger,
		maxConsecutiveTimeouts: maxConsecutiveTimeouts,
		input:                  input,
		output:                 output,
		log:                    log.With("section", title),
	}
}

// Run drains input until the orchestrator closes the channel, applying
// one merge per item unless the worker has backed off, then emits the
// final accumulator on output and closes it. Run must be called from
// its own goroutine; a panic here must not reach the orchestrator
// directly (see internal/orchestrator, which recovers per worker).
func (w *Worker) Run() {
	defer close(w.output)

	for item := range w.input {
		if w.consecutiveTimeouts >= w.maxConsecutiveTimeouts {
			w.log.Debug("dropping triple after repeated timeouts", "revision", item.RevisionID)
			continue
		}

		if merge.SizeGuardTripped(item.Clean, item.Vandalized, w.merger) {
			w.consecutiveTimeouts++
			w.log.Debug("merge size-skipped", "revision", item.RevisionID, "consecutive", w.consecutiveTimeouts)

			continue
		}

		result, timedOut := merge.Try(item.Clean, w.accumulator, item.Vandalized, strconv.FormatUint(item.RevisionID, 10), w.merger)
		w.accumulator = result

		if timedOut {
			w.consecutiveTimeouts++
			w.log.Debug("merge timed out", "revision", item.RevisionID, "consecutive", w.consecutiveTimeouts)
		} else {
			w.consecutiveTimeouts = 0
		}
	}

	w.output <- w.accumulator
}
