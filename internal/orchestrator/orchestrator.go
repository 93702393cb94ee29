// Package orchestrator implements the request orchestrator (C6): for
// one article title it resolves the canonical page, splits the latest
// revision into sections, replays antivandalism reversions through
// per-section merge workers, and splices the result back into the
// page skeleton.
package orchestrator

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"sync"

	"github.com/Sumatoshi-tech/wikiguard/internal/marker"
	"github.com/Sumatoshi-tech/wikiguard/internal/merge"
	"github.com/Sumatoshi-tech/wikiguard/internal/section"
	"github.com/Sumatoshi-tech/wikiguard/internal/wiki"
)

// vandalismMarker is the case-sensitive substring an edit comment must
// contain for its revision to be treated as an antivandalism revert.
const vandalismMarker = "vandal"

// Config controls per-request merge behavior and how far back into a
// page's history the orchestrator looks for antivandalism reverts.
type Config struct {
	Merge                      merge.Config
	MaxConsecutiveDiffTimeouts int
	RevisionWindow             int
}

// Orchestrator is the C6 request orchestrator, bound to a wiki client
// and logger for the lifetime of the process.
type Orchestrator struct {
	wiki wiki.Client
	cfg  Config
	log  *slog.Logger
}

// New builds an Orchestrator.
func New(client wiki.Client, cfg Config, log *slog.Logger) *Orchestrator {
	return &Orchestrator{wiki: client, cfg: cfg, log: log}
}

type skeletonResult struct {
	html string
	err  error
}

// Handle runs the full 10-step request sequence for one article title
// and returns the final spliced HTML page.
func (o *Orchestrator) Handle(ctx context.Context, title string) (string, error) {
	skeletonCh := make(chan skeletonResult, 1)

	go func() {
		html, err := o.wiki.CurrentPageHTML(ctx, title)
		skeletonCh <- skeletonResult{html: html, err: err}
	}()

	canonical, err := o.wiki.CanonicalTitle(ctx, title)
	if err != nil {
		return "", fmt.Errorf("orchestrator: resolve canonical title for %q: %w", title, err)
	}

	latest, err := o.wiki.LatestRevision(ctx, canonical)
	if err != nil {
		return "", fmt.Errorf("orchestrator: fetch latest revision of %q: %w", canonical, err)
	}

	latestContent, err := o.wiki.RevisionContent(ctx, canonical, latest.RevisionID)
	if err != nil {
		return "", fmt.Errorf("orchestrator: fetch content of %q rev %d: %w", canonical, latest.RevisionID, err)
	}

	sections := o.wiki.SplitSections(latestContent)

	order, inputs, outputs := o.spawnWorkers(sections)

	revisions, err := o.wiki.RecentRevisions(ctx, canonical, o.cfg.RevisionWindow)
	if err != nil {
		o.closeAll(inputs)

		return "", fmt.Errorf("orchestrator: fetch recent revisions of %q: %w", canonical, err)
	}

	for _, rev := range filterAntivandalism(revisions) {
		o.dispatchRevision(ctx, canonical, rev, inputs)
	}

	o.closeAll(inputs)

	merged := collectInOrder(order, outputs)
	mergedWikitext := strings.Join(merged, "")

	renderedBody, err := o.wiki.Render(ctx, canonical, mergedWikitext)
	if err != nil {
		return "", fmt.Errorf("orchestrator: render merged wikitext for %q: %w", canonical, err)
	}

	skeleton := <-skeletonCh
	if skeleton.err != nil {
		return "", fmt.Errorf("orchestrator: fetch page skeleton for %q: %w", title, skeleton.err)
	}

	finished := marker.Finish(renderedBody)

	page, err := spliceBody(skeleton.html, finished)
	if err != nil {
		return "", fmt.Errorf("orchestrator: splice merged body into skeleton for %q: %w", title, err)
	}

	return page, nil
}

// spawnWorkers starts one section worker per section, in section
// order, and returns that order alongside the per-section input and
// output channels keyed by the section's deduplicated title.
func (o *Orchestrator) spawnWorkers(
	sections []wiki.Section,
) (order []string, inputs map[string]chan section.Item, outputs map[string]chan string) {
	order = make([]string, 0, len(sections))
	inputs = make(map[string]chan section.Item, len(sections))
	outputs = make(map[string]chan string, len(sections))

	for _, s := range sections {
		order = append(order, s.Title)

		// Buffered to the revision window: no section ever receives more
		// than one Item per dispatched revision, so a slow or backed-off
		// worker never stalls dispatch to the other sections.
		input := make(chan section.Item, o.cfg.RevisionWindow)
		output := make(chan string, 1)

		inputs[s.Title] = input
		outputs[s.Title] = output

		worker := section.New(s.Title, s.Content, o.cfg.Merge, o.cfg.MaxConsecutiveDiffTimeouts, input, output, o.log)

		go o.runWorker(worker, s.Title)
	}

	return order, inputs, outputs
}

// runWorker isolates one section worker's panic from the rest of the
// request: a panicking worker still closes its output channel (via its
// own deferred close), so collectInOrder never blocks on it.
func (o *Orchestrator) runWorker(w *section.Worker, title string) {
	defer func() {
		if r := recover(); r != nil {
			o.log.Error("section worker panicked", "section", title, "panic", r)
		}
	}()

	w.Run()
}

func filterAntivandalism(revisions []wiki.Revision) []wiki.Revision {
	out := make([]wiki.Revision, 0, len(revisions))

	for _, r := range revisions {
		if strings.Contains(r.Comment, vandalismMarker) {
			out = append(out, r)
		}
	}

	return out
}

// dispatchRevision fetches the clean (post-revert) and vandalized
// (pre-revert) content for rev in parallel, splits both into sections,
// and forwards every section present in both to its worker.
func (o *Orchestrator) dispatchRevision(
	ctx context.Context, title string, rev wiki.Revision, inputs map[string]chan section.Item,
) {
	var (
		wg                        sync.WaitGroup
		cleanContent, vandContent string
		cleanErr, vandErr         error
	)

	wg.Add(2)

	go func() {
		defer wg.Done()

		cleanContent, cleanErr = o.wiki.RevisionContent(ctx, title, rev.RevisionID)
	}()

	go func() {
		defer wg.Done()

		vandContent, vandErr = o.wiki.RevisionContent(ctx, title, rev.ParentID)
	}()

	wg.Wait()

	if cleanErr != nil || vandErr != nil {
		o.log.Warn("skipping antivandalism revision with unfetchable content",
			"title", title, "revision_id", rev.RevisionID, "clean_err", cleanErr, "vandalized_err", vandErr)

		return
	}

	cleanSections := indexByTitle(o.wiki.SplitSections(cleanContent))
	vandSections := indexByTitle(o.wiki.SplitSections(vandContent))

	for sectionTitle, clean := range cleanSections {
		vandalized, ok := vandSections[sectionTitle]
		if !ok {
			continue
		}

		input, ok := inputs[sectionTitle]
		if !ok {
			continue
		}

		input <- section.Item{Clean: clean, Vandalized: vandalized, RevisionID: rev.RevisionID}
	}
}

func indexByTitle(sections []wiki.Section) map[string]string {
	out := make(map[string]string, len(sections))
	for _, s := range sections {
		out[s.Title] = s.Content
	}

	return out
}

func (o *Orchestrator) closeAll(inputs map[string]chan section.Item) {
	for _, input := range inputs {
		close(input)
	}
}

func collectInOrder(order []string, outputs map[string]chan string) []string {
	merged := make([]string, 0, len(order))

	for _, title := range order {
		merged = append(merged, <-outputs[title])
	}

	return merged
}
