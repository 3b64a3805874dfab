package transport

import (
	"context"
	"fmt"
	"net"
	"sync"
	"sync/atomic"
	"time"

	"golang.org/x/time/rate"

	"siriinsert/internal/logger"
)

// defaultMaxBody bounds any single package body this node will read.
const defaultMaxBody = 64 << 20

// PeerClient sends framed insert packages to one remote pool's primary
// over a persistent TCP connection and waits for the matching reply
// (spec §4.4 remote fanout). Grounded on the teacher's Dial/Do client
// shape, adapted from RESP request/response to the framed package
// protocol of spec §6.
type PeerClient struct {
	addr          string
	mu            sync.Mutex
	conn          net.Conn
	nextRequestID uint32
	limiter       *rate.Limiter
}

// DialPeer opens the persistent connection to a remote pool's address.
// limiter may be nil to disable rate limiting.
func DialPeer(ctx context.Context, addr string, limiter *rate.Limiter) (*PeerClient, error) {
	var d net.Dialer
	conn, err := d.DialContext(ctx, "tcp", addr)
	if err != nil {
		return nil, fmt.Errorf("transport: dial %s: %w", addr, err)
	}
	return &PeerClient{addr: addr, conn: conn, limiter: limiter}, nil
}

func (c *PeerClient) nextID() uint16 {
	return uint16(atomic.AddUint32(&c.nextRequestID, 1))
}

// SendInsert forwards body as a REQ_INSERT package and blocks for the
// peer's reply. A limiter rejection or a reply carrying RES_INSERT_ERROR
// both surface as a plain error; the dispatcher treats either as a pool
// failure for that sub-batch (spec §4.4, §7 tier 2).
func (c *PeerClient) SendInsert(ctx context.Context, body []byte) error {
	if c.limiter != nil {
		if err := c.limiter.Wait(ctx); err != nil {
			return fmt.Errorf("transport: send queue rejected package for %s: %w", c.addr, err)
		}
	}

	requestID := c.nextID()
	pkg := NewPackage(requestID, ReqInsert, body)

	c.mu.Lock()
	defer c.mu.Unlock()

	if deadline, ok := ctx.Deadline(); ok {
		_ = c.conn.SetDeadline(deadline)
	} else {
		_ = c.conn.SetDeadline(time.Time{})
	}

	if err := WritePackage(c.conn, pkg); err != nil {
		return fmt.Errorf("transport: write to %s: %w", c.addr, err)
	}

	reply, err := ReadPackage(c.conn, defaultMaxBody)
	if err != nil {
		return fmt.Errorf("transport: read reply from %s: %w", c.addr, err)
	}
	if reply.Header.RequestID != requestID {
		logger.Warn("transport: mismatched correlation id from %s: got %d want %d, treating as a failed send", c.addr, reply.Header.RequestID, requestID)
		return fmt.Errorf("transport: mismatched correlation id from %s: got %d want %d", c.addr, reply.Header.RequestID, requestID)
	}

	switch reply.Header.Type {
	case ResInsertSuccess:
		return nil
	case ResInsertError:
		return fmt.Errorf("transport: peer %s reported error: %s", c.addr, string(reply.Body))
	default:
		logger.Warn("transport: unexpected reply type %d from %s, treating as a failed send", reply.Header.Type, c.addr)
		return fmt.Errorf("transport: unexpected reply type %d from %s", reply.Header.Type, c.addr)
	}
}

// Close releases the underlying connection.
func (c *PeerClient) Close() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.conn.Close()
}

// Registry maps pool ids to the PeerClient that owns their remote
// primary and implements collab.Transport for the dispatcher. A pool
// with no registered peer is treated as having no remote primary
// reachable from this node, which the dispatcher surfaces as a pool
// failure rather than a panic.
type Registry struct {
	mu    sync.RWMutex
	peers map[uint16]*PeerClient
}

// NewRegistry returns an empty peer registry.
func NewRegistry() *Registry {
	return &Registry{peers: make(map[uint16]*PeerClient)}
}

// AddPeer registers the client that owns poolID's remote sends.
func (r *Registry) AddPeer(poolID uint16, c *PeerClient) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.peers[poolID] = c
}

// Send implements collab.Transport.
func (r *Registry) Send(ctx context.Context, poolID uint16, body []byte) error {
	r.mu.RLock()
	c, ok := r.peers[poolID]
	r.mu.RUnlock()
	if !ok {
		return fmt.Errorf("transport: no peer registered for pool %d", poolID)
	}
	return c.SendInsert(ctx, body)
}

// Close closes every registered peer connection, returning the first error.
func (r *Registry) Close() error {
	r.mu.Lock()
	defer r.mu.Unlock()
	var firstErr error
	for _, c := range r.peers {
		if err := c.Close(); err != nil && firstErr == nil {
			firstErr = err
		}
	}
	return firstErr
}
