// Package wiki is the external collaborator contract (C8a): the wiki
// client the orchestrator uses to resolve titles, fetch revisions and
// content, render wikitext, and split an article into sections.
package wiki

import "context"

// Revision is a single history entry: its own id, its parent's id
// (the revision it replaced), and the edit comment the author left.
type Revision struct {
	RevisionID uint64
	ParentID   uint64
	Comment    string
}

// Section is a deduplicated (title, content) pair produced by
// SplitSections; see Dedupe for the deduplication rule.
type Section struct {
	Title   string
	Content string
}

// Client is every operation the orchestrator (internal/orchestrator)
// needs from the upstream wiki. All methods are fallible; errors are
// never retried internally (retry is the caller's problem, per the
// no-retry recovery policy).
type Client interface {
	// CanonicalTitle follows #REDIRECT [[target]] wikitext recursively
	// (HTTPClient caps it at maxRedirectDepth hops) and returns the
	// page's true title.
	CanonicalTitle(ctx context.Context, title string) (string, error)
	// LatestRevision returns the single most recent revision of title.
	LatestRevision(ctx context.Context, title string) (Revision, error)
	// RecentRevisions returns up to limit revisions, most-recent first.
	RecentRevisions(ctx context.Context, title string, limit int) ([]Revision, error)
	// RevisionContent returns the wikitext of title as of revision id.
	RevisionContent(ctx context.Context, title string, id uint64) (string, error)
	// Render converts wikitext into the rendered HTML body, as though
	// it were the contents of title.
	Render(ctx context.Context, title, wikitext string) (string, error)
	// CurrentPageHTML returns the fully rendered HTML skeleton for the
	// live version of title, for splicing the merged body into.
	CurrentPageHTML(ctx context.Context, title string) (string, error)
	// SplitSections splits wikitext into ordered, deduplicated sections.
	SplitSections(wikitext string) []Section
}
