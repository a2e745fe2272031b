package flowexec

import "rssflow/internal/nodesvc"

// ClientPool reuses a *nodesvc.Client per dialed address across flow
// executions rather than dialing fresh on every step.
type ClientPool = nodesvc.Pool

// NewClientPool returns an empty pool.
func NewClientPool() *ClientPool {
	return nodesvc.NewPool()
}
