package orchestrator_test

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/Sumatoshi-tech/wikiguard/internal/merge"
	"github.com/Sumatoshi-tech/wikiguard/internal/orchestrator"
	"github.com/Sumatoshi-tech/wikiguard/internal/wiki"
)

// fakeWiki is an in-memory wiki.Client: revisions[0] is the latest.
type fakeWiki struct {
	canonical string
	revisions []wiki.Revision
	content   map[uint64]string
	rendered  string
	skeleton  string
}

func (f *fakeWiki) CanonicalTitle(_ context.Context, title string) (string, error) {
	if f.canonical != "" {
		return f.canonical, nil
	}

	return title, nil
}

func (f *fakeWiki) LatestRevision(_ context.Context, _ string) (wiki.Revision, error) {
	return f.revisions[0], nil
}

func (f *fakeWiki) RecentRevisions(_ context.Context, _ string, limit int) ([]wiki.Revision, error) {
	if limit < len(f.revisions) {
		return f.revisions[:limit], nil
	}

	return f.revisions, nil
}

func (f *fakeWiki) RevisionContent(_ context.Context, _ string, id uint64) (string, error) {
	return f.content[id], nil
}

func (f *fakeWiki) Render(_ context.Context, _, wikitext string) (string, error) {
	if f.rendered != "" {
		return f.rendered, nil
	}

	return "<p>" + wikitext + "</p>", nil
}

func (f *fakeWiki) CurrentPageHTML(_ context.Context, _ string) (string, error) {
	return f.skeleton, nil
}

func (f *fakeWiki) SplitSections(wikitext string) []wiki.Section {
	return []wiki.Section{{Title: "lead1", Content: wikitext}}
}

var _ wiki.Client = (*fakeWiki)(nil)

func testConfig() orchestrator.Config {
	return orchestrator.Config{
		Merge:                      merge.Config{SizeLimitBytes: 10000, TimeLimit: time.Second},
		MaxConsecutiveDiffTimeouts: 3,
		RevisionWindow:             10,
	}
}

func TestHandleSplicesMergedBodyIntoSkeleton(t *testing.T) {
	fake := &fakeWiki{
		// The latest revision (id 2) is itself the antivandalism revert:
		// content(2) is the clean post-revert text, content(1) is the
		// vandalized pre-revert text that gets speculatively restored.
		revisions: []wiki.Revision{
			{RevisionID: 2, ParentID: 1, Comment: "revert vandalism"},
		},
		content: map[uint64]string{
			2: "Good content here. ",
			1: "Bad vandal content here. ",
		},
		skeleton: `<html><body><div id="mw-content-text">old</div></body></html>`,
	}

	log := slog.New(slog.NewTextHandler(io.Discard, nil))
	orch := orchestrator.New(fake, testConfig(), log)

	page, err := orch.Handle(context.Background(), "Example")
	require.NoError(t, err)
	require.Contains(t, page, `id="mw-content-text"`)
	require.NotContains(t, page, "old")
}

func TestHandleIgnoresRevisionsWithoutVandalismComment(t *testing.T) {
	fake := &fakeWiki{
		revisions: []wiki.Revision{
			{RevisionID: 2, ParentID: 1, Comment: "fixed typo"},
		},
		content: map[uint64]string{
			2: "Current text. ",
			1: "Previous text. ",
		},
		skeleton: `<html><body><div id="mw-content-text"></div></body></html>`,
	}

	log := slog.New(slog.NewTextHandler(io.Discard, nil))
	orch := orchestrator.New(fake, testConfig(), log)

	page, err := orch.Handle(context.Background(), "Example")
	require.NoError(t, err)
	require.Contains(t, page, "Current text")
}

func TestHandleReturnsErrorWhenCanonicalTitleFails(t *testing.T) {
	fake := &fakeWiki{revisions: []wiki.Revision{{RevisionID: 1}}}

	erroring := &erroringCanonical{fakeWiki: fake}

	log := slog.New(slog.NewTextHandler(io.Discard, nil))
	orch := orchestrator.New(erroring, testConfig(), log)

	_, err := orch.Handle(context.Background(), "Example")
	require.Error(t, err)
}

type erroringCanonical struct {
	*fakeWiki
}

var errCanonical = errors.New("canonical title lookup failed")

func (e *erroringCanonical) CanonicalTitle(_ context.Context, _ string) (string, error) {
	return "", errCanonical
}
