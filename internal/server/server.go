package server

import (
	"context"
	"encoding/json"
	"log"

	"github.com/npezzotti/go-notechat/internal/presence"
	"github.com/npezzotti/go-notechat/internal/stats"
)

type joinReq struct {
	client *Client
	email  string
}

type publishReq struct {
	from    *Client
	to      string
	payload json.RawMessage
}

type stopReq struct {
	done chan struct{}
}

// Relay owns every live client and the presence registry. All mutations
// happen on the goroutine running Run, which serializes joins and
// disconnects for the same identity.
type Relay struct {
	log            *log.Logger
	registry       presence.Registry
	stats          stats.StatsProvider
	mirror         *mirrorWriter
	clients        map[string]*Client
	registerChan   chan *Client
	deregisterChan chan *Client
	joinChan       chan *joinReq
	publishChan    chan *publishReq
	stop           chan stopReq
	done           chan struct{}
}

func NewRelay(logger *log.Logger, store PresenceStore, registry presence.Registry, su stats.StatsProvider) *Relay {
	for _, name := range []string{
		stats.ActiveConnections,
		stats.JoinedConnections,
		stats.RelayedMessages,
		stats.DroppedMessages,
	} {
		su.RegisterMetric(name)
	}

	return &Relay{
		log:            logger,
		registry:       registry,
		stats:          su,
		mirror:         newMirrorWriter(logger, store),
		clients:        make(map[string]*Client),
		registerChan:   make(chan *Client),
		deregisterChan: make(chan *Client),
		joinChan:       make(chan *joinReq, 256),
		publishChan:    make(chan *publishReq, 256),
		stop:           make(chan stopReq),
		done:           make(chan struct{}),
	}
}

func (r *Relay) Run() {
	defer close(r.done)
	go r.mirror.run()

	for {
		select {
		case c := <-r.registerChan:
			r.addClient(c)
		case c := <-r.deregisterChan:
			r.removeClient(c)
		case req := <-r.joinChan:
			r.handleJoin(req)
		case req := <-r.publishChan:
			r.handlePublish(req)
		case req := <-r.stop:
			r.log.Println("stopping relay")
			for _, c := range r.clients {
				c.stopClient()
				r.release(c)
			}

			r.mirror.close()
			<-r.mirror.done

			close(req.done)
			return
		}
	}
}

// RegisterClient hands c to the relay. It returns false if the relay has
// already stopped.
func (r *Relay) RegisterClient(c *Client) bool {
	select {
	case r.registerChan <- c:
		return true
	case <-r.done:
		return false
	}
}

func (r *Relay) deregister(c *Client) {
	select {
	case r.deregisterChan <- c:
	case <-r.done:
	}
}

func (r *Relay) Shutdown(ctx context.Context) error {
	req := stopReq{done: make(chan struct{})}

	select {
	case r.stop <- req:
	case <-r.done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}

	select {
	case <-req.done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (r *Relay) addClient(c *Client) {
	r.clients[c.id] = c
	r.stats.Incr(stats.ActiveConnections)
	r.log.Printf("connection %q opened by %q", c.id, c.email)

	c.queueMessage(NewConnected(c.id))
}

func (r *Relay) removeClient(c *Client) {
	if cur, ok := r.clients[c.id]; !ok || cur != c {
		return
	}

	delete(r.clients, c.id)
	r.stats.Decr(stats.ActiveConnections)
	r.log.Printf("connection %q closed", c.id)

	if identity, ok := r.release(c); ok {
		r.broadcast(NewPresenceChanged(identity, false), nil)
	}
}

// release unbinds c and clears its mirrored connection id. It reports the
// identity c held, if any.
func (r *Relay) release(c *Client) (string, bool) {
	identity, ok, err := r.registry.Unbind(context.Background(), c.id)
	if err != nil {
		r.log.Printf("unbind %q: %v", c.id, err)
		return "", false
	}
	if !ok {
		return "", false
	}

	c.identity = ""
	r.stats.Decr(stats.JoinedConnections)
	r.mirror.clear(identity, c.id)
	return identity, true
}

func (r *Relay) handleJoin(req *joinReq) {
	c := req.client
	// the client may have disconnected while the join was queued
	if cur, ok := r.clients[c.id]; !ok || cur != c {
		return
	}

	if req.email != c.email {
		r.log.Printf("connection %q tried to join as %q but is authenticated as %q", c.id, req.email, c.email)
		c.queueMessage(ErrIdentityMismatch())
		return
	}

	previous, err := r.registry.Bind(context.Background(), req.email, c.id)
	if err != nil {
		r.log.Printf("bind %q to %q: %v", req.email, c.id, err)
		c.queueMessage(ErrInternalError())
		return
	}

	if orphan, ok := r.clients[previous]; ok {
		r.log.Printf("connection %q replaced %q for %q", c.id, previous, req.email)
		orphan.identity = ""
		r.stats.Decr(stats.JoinedConnections)
	}

	if c.identity == "" {
		r.stats.Incr(stats.JoinedConnections)
	}
	c.identity = req.email

	r.mirror.set(req.email, c.id)
	r.broadcast(NewPresenceChanged(req.email, true), c)
}

// handlePublish delivers to the destination if it is still connected and
// otherwise drops the message without telling the sender.
func (r *Relay) handlePublish(req *publishReq) {
	dest, ok := r.clients[req.to]
	if !ok || !dest.queueMessage(NewReceived(req.payload, req.from.id)) {
		r.stats.Incr(stats.DroppedMessages)
		return
	}

	r.stats.Incr(stats.RelayedMessages)
}

func (r *Relay) broadcast(msg *ServerMessage, skip *Client) {
	for _, c := range r.clients {
		if c == skip {
			continue
		}

		c.queueMessage(msg)
	}
}
