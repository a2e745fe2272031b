package feed

import (
	"encoding/xml"
	"time"
)

// atomFeed / atomEntry mirror the Atom 1.0 syndication format (RFC 4287)
// closely enough to round-trip what the Fetch node parses with gofeed and
// what the Flow Executor serves back out.
type atomFeed struct {
	XMLName xml.Name     `xml:"http://www.w3.org/2005/Atom feed"`
	Title   string       `xml:"title"`
	ID      string       `xml:"id"`
	Updated string       `xml:"updated"`
	Authors []atomPerson `xml:"author,omitempty"`
	Links   []atomLink   `xml:"link,omitempty"`
	Entries []atomEntry  `xml:"entry"`
}

type atomEntry struct {
	Title   string        `xml:"title"`
	ID      string        `xml:"id"`
	Updated string        `xml:"updated"`
	Authors []atomPerson  `xml:"author,omitempty"`
	Links   []atomLink    `xml:"link,omitempty"`
	Summary *atomText     `xml:"summary,omitempty"`
	Content *atomContent  `xml:"content,omitempty"`
}

type atomLink struct {
	Href string `xml:"href,attr"`
	Rel  string `xml:"rel,attr,omitempty"`
}

type atomText struct {
	Type  string `xml:"type,attr,omitempty"`
	Value string `xml:",chardata"`
}

type atomContent struct {
	Type  string `xml:"type,attr,omitempty"`
	Lang  string `xml:"xml:lang,attr,omitempty"`
	Value string `xml:",chardata"`
}

type atomPerson struct {
	Name  string `xml:"name"`
	Email string `xml:"email,omitempty"`
	URI   string `xml:"uri,omitempty"`
}

const atomTimeLayout = time.RFC3339

// MarshalAtomXML serialises f as an Atom 1.0 document with an XML
// declaration, the representation the Flow Executor serves at
// `Content-Type: application/atom+xml`.
func MarshalAtomXML(f *Feed) ([]byte, error) {
	out := toAtomFeed(f)
	body, err := xml.MarshalIndent(out, "", "  ")
	if err != nil {
		return nil, err
	}
	return append([]byte(xml.Header), body...), nil
}

// UnmarshalAtomXML parses an Atom 1.0 document into a Feed.
func UnmarshalAtomXML(data []byte) (*Feed, error) {
	var in atomFeed
	if err := xml.Unmarshal(data, &in); err != nil {
		return nil, err
	}
	return fromAtomFeed(&in), nil
}

func toAtomFeed(f *Feed) atomFeed {
	out := atomFeed{
		Title:   f.Title,
		ID:      f.ID,
		Updated: f.Updated.Format(atomTimeLayout),
		Authors: toAtomPersons(f.Authors),
		Entries: make([]atomEntry, len(f.Entries)),
	}
	for _, l := range f.Links {
		out.Links = append(out.Links, atomLink{Href: l.Href, Rel: l.Rel})
	}
	for i, e := range f.Entries {
		out.Entries[i] = toAtomEntry(e)
	}
	return out
}

func toAtomEntry(e Entry) atomEntry {
	out := atomEntry{
		Title:   e.Title,
		ID:      e.ID,
		Updated: e.Updated.Format(atomTimeLayout),
		Authors: toAtomPersons(e.Authors),
	}
	for _, l := range e.Links {
		out.Links = append(out.Links, atomLink{Href: l.Href, Rel: l.Rel})
	}
	if e.Summary != nil {
		out.Summary = &atomText{Type: e.Summary.Type, Value: e.Summary.Value}
	}
	if e.Content != nil {
		out.Content = &atomContent{Type: e.Content.ContentType, Lang: e.Content.Lang, Value: e.Content.Value}
	}
	return out
}

func toAtomPersons(ps []Person) []atomPerson {
	if len(ps) == 0 {
		return nil
	}
	out := make([]atomPerson, len(ps))
	for i, p := range ps {
		out[i] = atomPerson{Name: p.Name, Email: p.Email, URI: p.URI}
	}
	return out
}

func fromAtomFeed(in *atomFeed) *Feed {
	f := &Feed{
		Title:   in.Title,
		ID:      in.ID,
		Updated: parseAtomTime(in.Updated),
		Authors: fromAtomPersons(in.Authors),
		Entries: make([]Entry, len(in.Entries)),
	}
	for _, l := range in.Links {
		f.Links = append(f.Links, Link{Href: l.Href, Rel: l.Rel})
	}
	for i, e := range in.Entries {
		f.Entries[i] = fromAtomEntry(e)
	}
	return f
}

func fromAtomEntry(in atomEntry) Entry {
	e := Entry{
		Title:   in.Title,
		ID:      in.ID,
		Updated: parseAtomTime(in.Updated),
		Authors: fromAtomPersons(in.Authors),
	}
	for _, l := range in.Links {
		e.Links = append(e.Links, Link{Href: l.Href, Rel: l.Rel})
	}
	if in.Summary != nil {
		e.Summary = &Text{Value: in.Summary.Value, Type: in.Summary.Type}
	}
	if in.Content != nil {
		e.Content = &Content{Value: in.Content.Value, Lang: in.Content.Lang, ContentType: in.Content.Type}
	}
	return e
}

func fromAtomPersons(ps []atomPerson) []Person {
	if len(ps) == 0 {
		return nil
	}
	out := make([]Person, len(ps))
	for i, p := range ps {
		out[i] = Person{Name: p.Name, Email: p.Email, URI: p.URI}
	}
	return out
}

func parseAtomTime(s string) time.Time {
	if s == "" {
		return time.Time{}
	}
	if t, err := time.Parse(atomTimeLayout, s); err == nil {
		return t
	}
	if t, err := time.Parse(time.RFC1123Z, s); err == nil {
		return t
	}
	return time.Time{}
}
