// Package feed defines the canonical in-transit representation of a
// syndication feed as it passes between flow nodes.
package feed

import (
	"errors"
	"time"
)

// Feed is the canonical representation carried between nodes.
type Feed struct {
	Title   string    `json:"title"`
	ID      string    `json:"id"`
	Updated time.Time `json:"updated"`
	Authors []Person  `json:"authors,omitempty"`
	// Links carries feed-level syndication links (self, alternate, and,
	// per the WebSub supplement in SPEC_FULL.md section 10, hub) that
	// rode along in the source document's <feed> element.
	Links   []Link  `json:"links,omitempty"`
	Entries []Entry `json:"entries"`
}

// Entry is one item in a Feed.
type Entry struct {
	Title   string    `json:"title"`
	ID      string    `json:"id"`
	Updated time.Time `json:"updated"`
	Authors []Person  `json:"authors,omitempty"`
	Links   []Link    `json:"links,omitempty"`
	Summary *Text     `json:"summary,omitempty"`
	Content *Content  `json:"content,omitempty"`
}

// Link is a syndication link; Rel uses the registered tokens alternate,
// self and hub. Comparison against Rel is case-sensitive.
type Link struct {
	Href string `json:"href"`
	Rel  string `json:"rel"`
}

// Text is a textConstruct: a value plus its declared type.
type Text struct {
	Value string `json:"value"`
	Type  string `json:"type"` // text|html|xhtml
}

// Content is retrieved or inline entry content.
type Content struct {
	Value       string `json:"value"`
	Lang        string `json:"lang,omitempty"`
	ContentType string `json:"content_type"`
}

// Person is an author or contributor.
type Person struct {
	Name  string `json:"name"`
	Email string `json:"email,omitempty"`
	URI   string `json:"uri,omitempty"`
}

// ErrMissingID is returned by Validate when an entry or feed has no id.
var ErrMissingID = errors.New("feed: id is required")

// ErrMissingUpdated is returned by Validate when updated is the zero value.
var ErrMissingUpdated = errors.New("feed: updated is required")

// ErrDuplicateEntryID is returned by Validate when two entries share an id.
var ErrDuplicateEntryID = errors.New("feed: entry id is not unique within feed")

// Validate checks the invariants from the data model: id is unique within
// a feed, and updated is non-null on both Feed and Entry.
func (f *Feed) Validate() error {
	if f.ID == "" {
		return ErrMissingID
	}
	if f.Updated.IsZero() {
		return ErrMissingUpdated
	}
	seen := make(map[string]struct{}, len(f.Entries))
	for i := range f.Entries {
		e := &f.Entries[i]
		if e.ID == "" {
			return ErrMissingID
		}
		if e.Updated.IsZero() {
			return ErrMissingUpdated
		}
		if _, ok := seen[e.ID]; ok {
			return ErrDuplicateEntryID
		}
		seen[e.ID] = struct{}{}
	}
	return nil
}

// FieldValue returns the textual content of the named field (author,
// summary, content or title) for use by Filter/Replace/Sanitise nodes. A
// null field value is treated as the empty string.
func (e *Entry) FieldValue(field string) string {
	switch field {
	case "title":
		return e.Title
	case "summary":
		if e.Summary == nil {
			return ""
		}
		return e.Summary.Value
	case "content":
		if e.Content == nil {
			return ""
		}
		return e.Content.Value
	case "author":
		if len(e.Authors) == 0 {
			return ""
		}
		return e.Authors[0].Name
	default:
		return ""
	}
}

// SetFieldValue writes v back into the named field, creating the
// Summary/Content wrapper if necessary.
func (e *Entry) SetFieldValue(field, v string) {
	switch field {
	case "title":
		e.Title = v
	case "summary":
		if e.Summary == nil {
			e.Summary = &Text{Type: "text"}
		}
		e.Summary.Value = v
	case "content":
		if e.Content == nil {
			e.Content = &Content{ContentType: "html"}
		}
		e.Content.Value = v
	case "author":
		if len(e.Authors) == 0 {
			e.Authors = []Person{{}}
		}
		e.Authors[0].Name = v
	}
}

// LinkByRel returns the first link with the given rel token, if any.
func (e *Entry) LinkByRel(rel string) (Link, bool) {
	for _, l := range e.Links {
		if l.Rel == rel {
			return l, true
		}
	}
	return Link{}, false
}

// LinkByRel returns the first feed-level link with the given rel token,
// if any. Used by the WebSub supplement to locate a rel="hub" link when
// the Fetch node's upstream response carries no RFC 8288 Link header.
func (f *Feed) LinkByRel(rel string) (Link, bool) {
	for _, l := range f.Links {
		if l.Rel == rel {
			return l, true
		}
	}
	return Link{}, false
}

// FieldDomain is the declared enum domain for field selector options,
// keyed by the numeric value an OptionBag carries.
var FieldDomain = map[float64]string{
	0: "author",
	1: "summary",
	2: "content",
	3: "title",
}
