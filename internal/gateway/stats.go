package gateway

import "sync/atomic"

// Stats counts classified failures since the gateway was created.
type Stats struct {
	Requests     int64
	Credential   int64
	StaleSession int64
	Connectivity int64
	Server       int64
	Client       int64
	Canceled     int64
	Decode       int64
}

type counters struct {
	requests     atomic.Int64
	credential   atomic.Int64
	staleSession atomic.Int64
	connectivity atomic.Int64
	server       atomic.Int64
	client       atomic.Int64
	canceled     atomic.Int64
	decode       atomic.Int64
}

func (c *counters) record(k Kind) {
	switch k {
	case KindCredential:
		c.credential.Add(1)
	case KindStaleSession:
		c.staleSession.Add(1)
	case KindConnectivity:
		c.connectivity.Add(1)
	case KindServer:
		c.server.Add(1)
	case KindClient:
		c.client.Add(1)
	case KindCanceled:
		c.canceled.Add(1)
	case KindDecode:
		c.decode.Add(1)
	}
}

func (c *counters) snapshot() Stats {
	return Stats{
		Requests:     c.requests.Load(),
		Credential:   c.credential.Load(),
		StaleSession: c.staleSession.Load(),
		Connectivity: c.connectivity.Load(),
		Server:       c.server.Load(),
		Client:       c.client.Load(),
		Canceled:     c.canceled.Load(),
		Decode:       c.decode.Load(),
	}
}
