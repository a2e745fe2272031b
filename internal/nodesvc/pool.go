package nodesvc

import "sync"

// Pool reuses a *Client per dialed address rather than dialing fresh on
// every call; shared by the Flow Executor (per flow step) and the
// WebSub Subscriber (per fan-out target).
type Pool struct {
	mu      sync.Mutex
	clients map[string]*Client
}

// NewPool returns an empty pool.
func NewPool() *Pool {
	return &Pool{clients: make(map[string]*Client)}
}

// Client returns the pooled client for address, dialing one on first
// use.
func (p *Pool) Client(address string) (*Client, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if c, ok := p.clients[address]; ok {
		return c, nil
	}
	c, err := Dial(address)
	if err != nil {
		return nil, err
	}
	p.clients[address] = c
	return c, nil
}

// Close closes every pooled connection.
func (p *Pool) Close() error {
	p.mu.Lock()
	defer p.mu.Unlock()
	var firstErr error
	for addr, c := range p.clients {
		if err := c.Close(); err != nil && firstErr == nil {
			firstErr = err
		}
		delete(p.clients, addr)
	}
	return firstErr
}
