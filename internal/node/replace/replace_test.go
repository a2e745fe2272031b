package replace_test

import (
	"context"
	"testing"

	"github.com/stretchr/testify/require"

	"rssflow/internal/domain/feed"
	"rssflow/internal/domain/option"
	"rssflow/internal/domain/payload"
	"rssflow/internal/node/replace"
	"rssflow/internal/nodesvc"
)

// TestReplace_Title is spec.md §8 scenario B.
func TestReplace_Title(t *testing.T) {
	n := replace.New("replace:50051")

	f := feed.Feed{
		ID:      "urn:feed",
		Entries: []feed.Entry{{ID: "e1", Title: "Ch. 10"}},
	}
	p, err := payload.Encode(f, payload.TypeURLFeed)
	require.NoError(t, err)

	bag, err := option.NewFromMap(map[string]any{"field": 3.0, "old": "Ch.", "new": "Chapter"})
	require.NoError(t, err)

	resp, err := n.Process(context.Background(), &nodesvc.ProcessRequest{Payload: p, Options: bag})
	require.NoError(t, err)

	out, err := payload.Decode[feed.Feed](resp.Payload, payload.TypeURLFeed)
	require.NoError(t, err)
	require.Len(t, out.Entries, 1)
	require.Equal(t, "Chapter 10", out.Entries[0].Title)
}

// TestReplace_PreservesOrderAcrossManyEntries exercises the bounded
// parallel fan-out, asserting results are reassembled by original
// entry order regardless of completion order.
func TestReplace_PreservesOrderAcrossManyEntries(t *testing.T) {
	n := replace.New("replace:50051")

	entries := make([]feed.Entry, 50)
	for i := range entries {
		entries[i] = feed.Entry{ID: "e", Title: "old value"}
	}
	f := feed.Feed{ID: "urn:feed", Entries: entries}
	p, err := payload.Encode(f, payload.TypeURLFeed)
	require.NoError(t, err)

	bag, err := option.NewFromMap(map[string]any{"field": 3.0, "old": "old", "new": "new"})
	require.NoError(t, err)

	resp, err := n.Process(context.Background(), &nodesvc.ProcessRequest{Payload: p, Options: bag})
	require.NoError(t, err)

	out, err := payload.Decode[feed.Feed](resp.Payload, payload.TypeURLFeed)
	require.NoError(t, err)
	require.Len(t, out.Entries, 50)
	for _, e := range out.Entries {
		require.Equal(t, "new value", e.Title)
	}
}

func TestReplace_MissingFieldIsInvalidArgument(t *testing.T) {
	n := replace.New("replace:50051")
	p, err := payload.Encode(feed.Feed{ID: "urn:feed"}, payload.TypeURLFeed)
	require.NoError(t, err)

	bag, err := option.NewFromMap(map[string]any{"old": "a", "new": "b"})
	require.NoError(t, err)

	_, err = n.Process(context.Background(), &nodesvc.ProcessRequest{Payload: p, Options: bag})
	require.Error(t, err)
}
