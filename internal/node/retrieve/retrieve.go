// Package retrieve implements the Retrieve node: for each entry with
// an alternate link, it fetches the link, extracts HTML matching a CSS
// selector, and assigns the result as the entry's content.
package retrieve

import (
	"context"
	"crypto/sha256"
	"encoding/base64"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"

	"github.com/PuerkitoBio/goquery"
	"github.com/andybalholm/cascadia"
	"github.com/sony/gobreaker"
	"golang.org/x/sync/errgroup"

	"rssflow/internal/cache"
	"rssflow/internal/domain/feed"
	"rssflow/internal/domain/payload"
	"rssflow/internal/nodesvc"
	"rssflow/internal/resilience/circuitbreaker"
	"rssflow/internal/resilience/retry"
)

// Name is this node's declared node-type name.
const Name = "retrieve"

// MaxConcurrentFetches bounds outbound fan-out per invocation to
// protect target sites.
const MaxConcurrentFetches = 6

// maxBodySize bounds the HTML body read per fetched page.
const maxBodySize = 10 * 1024 * 1024

// Node implements nodesvc.Handler.
type Node struct {
	meta   nodesvc.NodeMeta
	client *http.Client
	cache  cache.Store
	cb     *circuitbreaker.CircuitBreaker
	retry  retry.Config
}

// New builds a Node advertising address as its own, using httpClient
// for outbound fetches and store for the snippet cache.
func New(address string, httpClient *http.Client, store cache.Store) *Node {
	return &Node{
		meta:   nodesvc.NodeMeta{NodeName: Name, Address: address},
		client: httpClient,
		cache:  store,
		cb:     circuitbreaker.New(circuitbreaker.ContentRetrieveConfig()),
		retry:  retry.ContentRetrieveConfig(),
	}
}

// Ping implements nodesvc.Handler.
func (n *Node) Ping(context.Context) (*nodesvc.PingResponse, error) {
	return &nodesvc.PingResponse{Node: n.meta}, nil
}

// snippetCacheKey computes the cache key for (href, selector), inserting
// a NUL delimiter between the two inputs before hashing so that
// selectors sharing textual overlap with URLs cannot collide.
func snippetCacheKey(href, selector string) string {
	sum := sha256.Sum256([]byte(href + "\x00" + selector))
	return "rssflow:retrieve:snippet:" + base64.URLEncoding.EncodeToString(sum[:])
}

// Process implements nodesvc.Handler.
func (n *Node) Process(ctx context.Context, req *nodesvc.ProcessRequest) (*nodesvc.ProcessResponse, error) {
	selector, err := req.GetOptions().GetRequiredString("selector")
	if err != nil {
		return nil, err
	}
	if _, err := cascadia.Compile(selector); err != nil {
		return nil, nodesvc.ErrInvalidArgument("invalid selector: %v", err)
	}

	f, err := payload.TryFromRequest[feed.Feed](req, payload.TypeURLFeed)
	if err != nil {
		return nil, err
	}

	sem := make(chan struct{}, min(len(f.Entries), MaxConcurrentFetches))
	eg, egCtx := errgroup.WithContext(ctx)
	for i := range f.Entries {
		i := i
		link, ok := f.Entries[i].LinkByRel("alternate")
		if !ok {
			continue
		}
		eg.Go(func() error {
			select {
			case sem <- struct{}{}:
			case <-egCtx.Done():
				return egCtx.Err()
			}
			defer func() { <-sem }()

			snippet, err := n.retrieveSnippet(egCtx, link.Href, selector)
			if err != nil {
				return err
			}
			f.Entries[i].Content = &feed.Content{Value: snippet, ContentType: "html"}
			return nil
		})
	}
	if err := eg.Wait(); err != nil {
		return nil, err
	}

	out, err := payload.Encode(f, payload.TypeURLFeed)
	if err != nil {
		return nil, err
	}
	return &nodesvc.ProcessResponse{Payload: out}, nil
}

func (n *Node) retrieveSnippet(ctx context.Context, href, selector string) (string, error) {
	key := snippetCacheKey(href, selector)

	if cached, ok, err := cache.GetCachedValue[string](ctx, n.cache, key); err == nil && ok {
		return cached.Value, nil
	}

	var snippet string
	retryErr := retry.WithBackoff(ctx, n.retry, func() error {
		result, err := n.cb.Execute(func() (any, error) {
			return n.fetchAndExtract(ctx, href, selector)
		})
		if err != nil {
			if errors.Is(err, gobreaker.ErrOpenState) {
				slog.Warn("retrieve node circuit breaker open",
					slog.String("href", href))
				return err
			}
			return err
		}
		snippet = result.(string)
		return nil
	})
	if retryErr != nil {
		return "", nodesvc.ErrUnavailablef("retrieve %s: %v", href, retryErr)
	}

	if err := cache.SetCachedValue(ctx, n.cache, key, snippet, cache.DefaultStoreTTL); err != nil {
		slog.Warn("retrieve snippet cache write failed", slog.String("href", href), slog.Any("error", err))
	}
	return snippet, nil
}

func (n *Node) fetchAndExtract(ctx context.Context, href, selector string) (string, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, href, nil)
	if err != nil {
		return "", err
	}
	req.Header.Set("User-Agent", "rssflow-retrieve/1.0")

	resp, err := n.client.Do(req)
	if err != nil {
		return "", err
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode != http.StatusOK {
		return "", &retry.HTTPError{StatusCode: resp.StatusCode, Message: fmt.Sprintf("unexpected status fetching %s", href)}
	}

	doc, err := goquery.NewDocumentFromReader(io.LimitReader(resp.Body, maxBodySize))
	if err != nil {
		return "", err
	}

	var snippet string
	doc.Find(selector).Each(func(_ int, s *goquery.Selection) {
		html, err := s.Html()
		if err != nil {
			return
		}
		snippet += html
	})
	return snippet, nil
}
