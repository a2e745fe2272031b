// Package fetch implements the Fetch node: the pipeline's only entry
// point for pulling a syndication feed, either by GET-ing a url option
// or by accepting a WebSub-pushed body in lieu of a fetch.
package fetch

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"time"

	"github.com/mmcdole/gofeed"
	"github.com/sony/gobreaker"

	"rssflow/internal/cache"
	"rssflow/internal/domain/feed"
	"rssflow/internal/domain/payload"
	"rssflow/internal/nodesvc"
	"rssflow/internal/resilience/circuitbreaker"
	"rssflow/internal/resilience/retry"
	"rssflow/internal/websub"
)

// Name is this node's declared node-type name.
const Name = "fetch"

// maxBodySize bounds the feed document read from either an HTTP fetch
// or a WebSub push, mirroring the Retrieve node's precaution against
// unbounded upstream responses.
const maxBodySize = 10 * 1024 * 1024

// cacheKeyPrefix namespaces cache:{url} entries.
const cacheKeyPrefix = "rssflow:fetch:cache:"

// Node implements nodesvc.Handler.
type Node struct {
	meta   nodesvc.NodeMeta
	client *http.Client
	cache  cache.Store
	cb     *circuitbreaker.CircuitBreaker
	retry  retry.Config
	websub *websub.Client // nil if no WebSub Subscriber is configured
}

// New builds a Node advertising address as its own. websubClient may
// be nil, in which case the Fetch node never attempts hub discovery or
// subscribe handoff and behaves as a plain polling fetcher.
func New(address string, httpClient *http.Client, store cache.Store, websubClient *websub.Client) *Node {
	return &Node{
		meta:   nodesvc.NodeMeta{NodeName: Name, Address: address},
		client: httpClient,
		cache:  store,
		cb:     circuitbreaker.New(circuitbreaker.FetchNodeConfig()),
		retry:  retry.FetchNodeConfig(),
		websub: websubClient,
	}
}

// Ping implements nodesvc.Handler.
func (n *Node) Ping(context.Context) (*nodesvc.PingResponse, error) {
	return &nodesvc.PingResponse{Node: n.meta}, nil
}

// Process implements nodesvc.Handler. A request whose payload is a
// WebSubEvent substitutes the pushed body
// for an HTTP fetch; otherwise the request must carry a url option
// and a fresh cache:{url} entry short-circuits the fetch entirely.
func (n *Node) Process(ctx context.Context, req *nodesvc.ProcessRequest) (*nodesvc.ProcessResponse, error) {
	if evt, err := payload.TryFromRequest[payload.WebSubEvent](req, payload.TypeURLWebSubEvent); err == nil {
		f, err := feed.UnmarshalAtomXML(evt.Body)
		if err != nil {
			return nil, nodesvc.ErrInvalidArgument("parse pushed feed body: %v", err)
		}
		return n.respond(f)
	}

	url, err := req.GetOptions().GetRequiredString("url")
	if err != nil {
		return nil, err
	}

	freshnessTTL := cache.DefaultFreshnessTTL
	if v, ok, err := req.GetOptions().GetFloat64("ttl"); err == nil && ok {
		freshnessTTL = time.Duration(v * float64(time.Second))
	}

	key := cacheKeyPrefix + url
	if cached, ok, err := cache.GetCachedValue[feed.Feed](ctx, n.cache, key); err == nil && ok {
		if cached.Fresh(time.Now(), freshnessTTL) {
			f := cached.Value
			return n.respond(&f)
		}
	}

	f, err := n.doFetch(ctx, url)
	if err != nil {
		return nil, err
	}

	if err := cache.SetCachedValue(ctx, n.cache, key, *f, cache.DefaultStoreTTL); err != nil {
		slog.Warn("fetch cache write failed", slog.String("url", url), slog.Any("error", err))
	}

	n.subscribeAsync(url, f)

	return n.respond(f)
}

func (n *Node) respond(f *feed.Feed) (*nodesvc.ProcessResponse, error) {
	p, err := payload.Encode(*f, payload.TypeURLFeed)
	if err != nil {
		return nil, err
	}
	return &nodesvc.ProcessResponse{Payload: p}, nil
}

// doFetch retrieves url through the circuit breaker and retry policy,
// then parses the response body as RSS or Atom via gofeed.
func (n *Node) doFetch(ctx context.Context, url string) (*feed.Feed, error) {
	var (
		gf       *gofeed.Feed
		hubLink  string
		selfLink string
	)
	retryErr := retry.WithBackoff(ctx, n.retry, func() error {
		result, err := n.cb.Execute(func() (any, error) {
			return n.fetchAndParse(ctx, url)
		})
		if err != nil {
			if errors.Is(err, gobreaker.ErrOpenState) {
				slog.Warn("fetch node circuit breaker open", slog.String("url", url))
			}
			return err
		}
		parsed := result.(fetchResult)
		gf, hubLink, selfLink = parsed.feed, parsed.hub, parsed.self
		return nil
	})
	if retryErr != nil {
		return nil, nodesvc.ErrUnavailablef("fetch %s: %v", url, retryErr)
	}

	f := fromGofeed(gf)
	if hubLink != "" {
		if _, ok := f.LinkByRel("hub"); !ok {
			f.Links = append(f.Links, feed.Link{Href: hubLink, Rel: "hub"})
		}
	}
	if selfLink != "" {
		if _, ok := f.LinkByRel("self"); !ok {
			f.Links = append(f.Links, feed.Link{Href: selfLink, Rel: "self"})
		}
	}
	return f, nil
}

type fetchResult struct {
	feed *gofeed.Feed
	hub  string
	self string
}

func (n *Node) fetchAndParse(ctx context.Context, url string) (fetchResult, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return fetchResult{}, err
	}
	req.Header.Set("User-Agent", "rssflow-fetch/1.0")

	resp, err := n.client.Do(req)
	if err != nil {
		return fetchResult{}, err
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode != http.StatusOK {
		return fetchResult{}, &retry.HTTPError{StatusCode: resp.StatusCode, Message: fmt.Sprintf("unexpected status fetching %s", url)}
	}

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxBodySize))
	if err != nil {
		return fetchResult{}, err
	}

	gf, err := gofeed.NewParser().ParseString(string(body))
	if err != nil {
		return fetchResult{}, err
	}

	// WebSub discovery: the RFC 8288 Link header takes precedence
	// over any rel="hub"/"self" link embedded in the feed document
	// itself.
	links := parseLinkHeader(resp.Header.Get("Link"))
	hub, _ := linkValuesByRel(links, "hub")
	self, _ := linkValuesByRel(links, "self")

	return fetchResult{feed: gf, hub: hub, self: self}, nil
}

// subscribeAsync hands a discovered hub off to the WebSub Subscriber
// in the background; it never blocks or fails the fetch that
// triggered it.
func (n *Node) subscribeAsync(topic string, f *feed.Feed) {
	if n.websub == nil {
		return
	}
	hub, ok := f.LinkByRel("hub")
	if !ok {
		return
	}
	self, hasSelf := f.LinkByRel("self")
	if hasSelf {
		topic = self.Href
	}

	meta := n.meta
	hubHref := hub.Href
	go func() {
		if _, err := n.websub.Subscribe(context.Background(), topic, hubHref, meta); err != nil {
			slog.Warn("fetch: websub subscribe handoff failed",
				slog.String("topic", topic), slog.String("hub", hubHref), slog.Any("error", err))
		}
	}()
}
