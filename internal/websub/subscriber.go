package websub

import (
	"context"
	"crypto/rand"
	"encoding/base64"
	"encoding/hex"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"net/url"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/sony/gobreaker"

	"rssflow/internal/domain/option"
	"rssflow/internal/domain/payload"
	"rssflow/internal/nodesvc"
	"rssflow/internal/resilience/circuitbreaker"
	"rssflow/internal/resilience/retry"
)

// secretSize is the byte length of a freshly minted subscription
// secret before base64 encoding.
const secretSize = 64

// Subscriber implements the WebSub subscriber role in full: subscribe
// handoff from the Fetch node, hub verification of intent, and
// HMAC-authenticated push fan-out to interested nodes.
type Subscriber struct {
	repo       SubscriptionRepository
	httpClient *http.Client
	cb         *circuitbreaker.CircuitBreaker
	retryCfg   retry.Config
	publicURL  string
	pool       *nodesvc.Pool

	mu         sync.RWMutex
	byKey      map[string]uuid.UUID
	byUUID     map[uuid.UUID]*Subscription
	interested map[uuid.UUID][]nodesvc.NodeMeta
}

// New builds a Subscriber. publicURL is this service's externally
// reachable base URL, used to compose hub.callback.
func New(repo SubscriptionRepository, httpClient *http.Client, publicURL string, pool *nodesvc.Pool) *Subscriber {
	return &Subscriber{
		repo:       repo,
		httpClient: httpClient,
		cb:         circuitbreaker.New(circuitbreaker.WebSubHubConfig()),
		retryCfg:   retry.WebSubHubConfig(),
		publicURL:  strings.TrimSuffix(publicURL, "/"),
		pool:       pool,
		byKey:      make(map[string]uuid.UUID),
		byUUID:     make(map[uuid.UUID]*Subscription),
		interested: make(map[uuid.UUID][]nodesvc.NodeMeta),
	}
}

// LoadFromStore rebuilds the in-memory indices from the persisted
// rows at startup. The node-interest map is not persisted (there is
// no column for it); it refills lazily as nodes re-subscribe.
func (s *Subscriber) LoadFromStore(ctx context.Context) error {
	rows, err := s.repo.List(ctx)
	if err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, row := range rows {
		s.byKey[subscriptionKey(row.Topic, row.Hub)] = row.UUID
		s.byUUID[row.UUID] = row
	}
	return nil
}

func subscriptionKey(topic, hub string) string {
	return topic + "\x00" + hub
}

// Subscribe creates or reuses a (topic, hub) subscription and records
// node as interested in its future pushes, POSTing the hub intent
// request for a newly created row.
func (s *Subscriber) Subscribe(ctx context.Context, topic, hub string, node nodesvc.NodeMeta) (newSubscription bool, err error) {
	k := subscriptionKey(topic, hub)

	s.mu.Lock()
	if id, ok := s.byKey[k]; ok {
		s.addInterestLocked(id, node)
		s.mu.Unlock()
		return false, nil
	}
	s.mu.Unlock()

	id, err := uuid.NewV7()
	if err != nil {
		return false, nodesvc.ErrInternalf("websub: generate subscription id: %v", err)
	}
	secret, err := newSecret()
	if err != nil {
		return false, nodesvc.ErrInternalf("websub: generate subscription secret: %v", err)
	}
	sub := &Subscription{UUID: id, Topic: topic, Hub: hub, Secret: secret}
	if err := s.repo.Create(ctx, sub); err != nil {
		return false, nodesvc.ErrInternalf("websub: persist subscription: %v", err)
	}

	s.mu.Lock()
	s.byKey[k] = id
	s.byUUID[id] = sub
	s.addInterestLocked(id, node)
	s.mu.Unlock()

	if err := s.postSubscribeIntent(ctx, id, hub, topic, secret); err != nil {
		return true, nodesvc.ErrUnavailablef("websub: subscribe request to %s: %v", hub, err)
	}
	return true, nil
}

func (s *Subscriber) addInterestLocked(id uuid.UUID, node nodesvc.NodeMeta) {
	for _, n := range s.interested[id] {
		if n.NodeName == node.NodeName && n.Address == node.Address {
			return
		}
	}
	s.interested[id] = append(s.interested[id], node)
}

func newSecret() (string, error) {
	b := make([]byte, secretSize)
	if _, err := rand.Read(b); err != nil {
		return "", err
	}
	return base64.StdEncoding.EncodeToString(b), nil
}

func (s *Subscriber) postSubscribeIntent(ctx context.Context, id uuid.UUID, hub, topic, secret string) error {
	form := url.Values{}
	form.Set("hub.callback", fmt.Sprintf("%s/websub/%s", s.publicURL, id.String()))
	form.Set("hub.mode", "subscribe")
	form.Set("hub.topic", topic)
	form.Set("hub.secret", secret)
	body := form.Encode()

	return retry.WithBackoff(ctx, s.retryCfg, func() error {
		_, err := s.cb.Execute(func() (any, error) {
			return nil, s.postForm(ctx, hub, body)
		})
		if err != nil && errors.Is(err, gobreaker.ErrOpenState) {
			slog.Warn("websub hub circuit breaker open", slog.String("hub", hub))
		}
		return err
	})
}

func (s *Subscriber) postForm(ctx context.Context, hub, body string) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, hub, strings.NewReader(body))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	resp, err := s.httpClient.Do(req)
	if err != nil {
		return err
	}
	defer func() { _ = resp.Body.Close() }()
	if resp.StatusCode >= 400 {
		return &retry.HTTPError{StatusCode: resp.StatusCode, Message: "hub subscribe request rejected"}
	}
	return nil
}

// VerifyIntent answers a hub's verification GET, returning the body
// to write and the HTTP status to respond with.
func (s *Subscriber) VerifyIntent(ctx context.Context, id uuid.UUID, mode, topic, challenge string, leaseSeconds int) (body string, status int) {
	s.mu.RLock()
	sub, ok := s.byUUID[id]
	s.mu.RUnlock()
	if !ok {
		return "", http.StatusNotFound
	}
	if topic != sub.Topic {
		return "", http.StatusBadRequest
	}

	switch mode {
	case "subscribe":
		leaseEnd := time.Now().Add(time.Duration(leaseSeconds) * time.Second)
		if err := s.repo.MarkSubscribed(ctx, id, leaseEnd); err != nil {
			slog.Error("websub: mark subscribed failed", slog.String("uuid", id.String()), slog.Any("error", err))
			return "", http.StatusInternalServerError
		}
		s.mu.Lock()
		sub.Subscribed = true
		sub.LeaseEnd = leaseEnd
		s.mu.Unlock()
		return challenge, http.StatusOK

	case "unsubscribe":
		s.mu.RLock()
		subscribed := sub.Subscribed
		s.mu.RUnlock()
		if subscribed {
			return "", http.StatusBadRequest
		}
		if err := s.repo.Delete(ctx, id); err != nil {
			slog.Error("websub: delete subscription failed", slog.String("uuid", id.String()), slog.Any("error", err))
			return "", http.StatusInternalServerError
		}
		s.mu.Lock()
		delete(s.byUUID, id)
		delete(s.byKey, subscriptionKey(sub.Topic, sub.Hub))
		delete(s.interested, id)
		s.mu.Unlock()
		return challenge, http.StatusOK

	default:
		return "", http.StatusBadRequest
	}
}

// HandlePush authenticates and fans out a hub push. The caller always
// responds 200 regardless of what HandlePush does internally;
// HandlePush's return value only distinguishes "processed" from
// "dropped" for logging/metrics.
func (s *Subscriber) HandlePush(ctx context.Context, id uuid.UUID, body []byte, signatureHeader string) {
	s.mu.RLock()
	sub, ok := s.byUUID[id]
	s.mu.RUnlock()
	if !ok {
		return
	}

	algo, signature, ok := parseSignatureHeader(signatureHeader)
	if !ok {
		slog.Warn("websub: absent or unparseable X-Hub-Signature, dropping push", slog.String("uuid", id.String()))
		return
	}

	secret, err := base64.StdEncoding.DecodeString(sub.Secret)
	if err != nil {
		slog.Error("websub: stored secret is not valid base64", slog.String("uuid", id.String()))
		return
	}

	if !Verify(algo, signature, secret, body) {
		slog.Warn("websub: signature verification failed, dropping push", slog.String("uuid", id.String()))
		return
	}

	s.mu.RLock()
	nodes := append([]nodesvc.NodeMeta(nil), s.interested[id]...)
	topic, hub := sub.Topic, sub.Hub
	s.mu.RUnlock()

	s.fanOut(ctx, topic, hub, body, nodes)
}

func parseSignatureHeader(h string) (algo string, signature []byte, ok bool) {
	parts := strings.SplitN(h, "=", 2)
	if len(parts) != 2 || parts[0] == "" || parts[1] == "" {
		return "", nil, false
	}
	sig, err := hex.DecodeString(parts[1])
	if err != nil {
		return "", nil, false
	}
	return strings.ToLower(parts[0]), sig, true
}

func (s *Subscriber) fanOut(ctx context.Context, topic, hub string, body []byte, nodes []nodesvc.NodeMeta) {
	if len(nodes) == 0 {
		return
	}
	p, err := payload.Encode(payload.WebSubEvent{Body: body}, payload.TypeURLWebSubEvent)
	if err != nil {
		slog.Error("websub: encode push payload failed", slog.Any("error", err))
		return
	}
	opts, err := option.NewFromMap(map[string]any{"url": topic, "hub": hub})
	if err != nil {
		slog.Error("websub: build fan-out options failed", slog.Any("error", err))
		return
	}

	// Detached from the request context: the push handler has already
	// responded 200 by the time these RPCs land. Best-effort:
	// individual failures are logged, not retried.
	fanCtx := context.WithoutCancel(ctx)
	for _, n := range nodes {
		n := n
		go func() {
			client, err := s.pool.Client(n.Address)
			if err != nil {
				slog.Warn("websub: fan-out dial failed", slog.String("node", n.NodeName), slog.Any("error", err))
				return
			}
			if _, err := client.Process(fanCtx, n.NodeName, &nodesvc.ProcessRequest{Payload: p, Options: opts}); err != nil {
				slog.Warn("websub: fan-out process failed", slog.String("node", n.NodeName), slog.Any("error", err))
			}
		}()
	}
}
