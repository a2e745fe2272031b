package fetch

import (
	"time"

	"github.com/mmcdole/gofeed"

	"rssflow/internal/domain/feed"
)

// fromGofeed adapts a *gofeed.Feed (which normalises both RSS and
// Atom into one shape) into the canonical feed.Feed carried between
// nodes.
func fromGofeed(gf *gofeed.Feed) *feed.Feed {
	f := &feed.Feed{
		Title: gf.Title,
		ID:    feedID(gf),
		Links: feedLinks(gf),
	}
	if gf.UpdatedParsed != nil {
		f.Updated = *gf.UpdatedParsed
	} else if gf.PublishedParsed != nil {
		f.Updated = *gf.PublishedParsed
	}
	f.Authors = feedAuthors(gf)

	f.Entries = make([]feed.Entry, len(gf.Items))
	for i, it := range gf.Items {
		f.Entries[i] = entryFromItem(it)
	}
	return f
}

func feedID(gf *gofeed.Feed) string {
	if gf.FeedLink != nil && gf.FeedLink.Href != "" {
		return gf.FeedLink.Href
	}
	return gf.Link
}

func feedAuthors(gf *gofeed.Feed) []feed.Person {
	var out []feed.Person
	if gf.Author != nil {
		out = append(out, feed.Person{Name: gf.Author.Name, Email: gf.Author.Email})
	}
	for _, a := range gf.Authors {
		if a == nil {
			continue
		}
		out = append(out, feed.Person{Name: a.Name, Email: a.Email})
	}
	return out
}

// feedLinks collects the feed-level links gofeed exposes directly
// (self via FeedLink, alternate via Link) plus, best-effort, any
// Atom <link> elements gofeed relegated to its extension map because
// their rel wasn't one it translates natively (notably rel="hub" for
// WebSub discovery).
func feedLinks(gf *gofeed.Feed) []feed.Link {
	var out []feed.Link
	if gf.FeedLink != nil && gf.FeedLink.Href != "" {
		out = append(out, feed.Link{Href: gf.FeedLink.Href, Rel: "self"})
	}
	if gf.Link != "" {
		out = append(out, feed.Link{Href: gf.Link, Rel: "alternate"})
	}
	if gf.Extensions == nil {
		return out
	}
	atomExt, ok := gf.Extensions["atom"]
	if !ok {
		return out
	}
	for _, ext := range atomExt["link"] {
		rel, href := ext.Attrs["rel"], ext.Attrs["href"]
		if rel == "" || href == "" {
			continue
		}
		out = append(out, feed.Link{Href: href, Rel: rel})
	}
	return out
}

func entryFromItem(it *gofeed.Item) feed.Entry {
	e := feed.Entry{Title: it.Title, ID: it.GUID}
	if e.ID == "" {
		e.ID = it.Link
	}
	if it.UpdatedParsed != nil {
		e.Updated = *it.UpdatedParsed
	} else if it.PublishedParsed != nil {
		e.Updated = *it.PublishedParsed
	}
	if e.Updated.IsZero() {
		e.Updated = time.Now()
	}

	if it.Author != nil {
		e.Authors = append(e.Authors, feed.Person{Name: it.Author.Name, Email: it.Author.Email})
	}
	for _, a := range it.Authors {
		if a == nil {
			continue
		}
		e.Authors = append(e.Authors, feed.Person{Name: a.Name, Email: a.Email})
	}

	if it.Link != "" {
		e.Links = append(e.Links, feed.Link{Href: it.Link, Rel: "alternate"})
	}

	if it.Description != "" {
		e.Summary = &feed.Text{Value: it.Description, Type: "html"}
	}
	// Content first, falling back to Description, mirroring the
	// teacher's own RSSFetcher.doFetch precedence.
	content := it.Content
	if content == "" {
		content = it.Description
	}
	if content != "" {
		e.Content = &feed.Content{Value: content, ContentType: "html"}
	}
	return e
}
