package stream

import (
	"context"
	"strings"
	"sync"

	"github.com/redis/go-redis/v9"
	"goa.design/clue/log"
)

const (
	channelPrefix  = "runs:"
	channelSuffix  = ":metrics"
	channelPattern = channelPrefix + "*" + channelSuffix
	clientBuffer   = 64
)

// Hub fans live run metrics out to websocket watchers. With Redis configured
// every broadcast goes through the runs:{id}:metrics channel so that watchers
// connected to any instance receive it; without Redis delivery is local.
//
// An empty payload on a run channel is a tombstone: every instance drops the
// cached snapshot of that run.
type Hub struct {
	ctx     context.Context
	redis   *redis.Client
	pubsub  *redis.PubSub
	clients map[string]map[*Client]struct{}
	last    map[string][]byte
	mu      sync.RWMutex
}

type Client struct {
	RunID string
	Send  chan []byte
}

// NewHub creates a hub. When redisClient is set the hub subscribes to every
// run channel before returning; a failed subscription degrades to local
// delivery.
func NewHub(ctx context.Context, redisClient *redis.Client) *Hub {
	h := &Hub{
		ctx:     ctx,
		clients: map[string]map[*Client]struct{}{},
		last:    map[string][]byte{},
	}

	if redisClient != nil {
		pubsub := redisClient.PSubscribe(ctx, channelPattern)
		if _, err := pubsub.Receive(ctx); err != nil {
			log.Error(ctx, err, log.KV{K: "msg", V: "redis subscribe failed, using local delivery"})
			_ = pubsub.Close()
		} else {
			h.redis, h.pubsub = redisClient, pubsub
			go h.subscribeRedis(pubsub.Channel())
		}
	}
	return h
}

// Register adds a watcher for runID. The last payload seen for the run, if
// any, is queued immediately.
func (h *Hub) Register(runID string) *Client {
	client := &Client{
		RunID: runID,
		Send:  make(chan []byte, clientBuffer),
	}

	h.mu.Lock()
	defer h.mu.Unlock()
	if h.clients[runID] == nil {
		h.clients[runID] = map[*Client]struct{}{}
	}
	h.clients[runID][client] = struct{}{}
	if payload, ok := h.last[runID]; ok {
		client.Send <- payload
	}
	return client
}

func (h *Hub) Unregister(client *Client) {
	h.mu.Lock()
	defer h.mu.Unlock()

	runClients, ok := h.clients[client.RunID]
	if !ok {
		return
	}
	if _, ok := runClients[client]; !ok {
		return
	}
	delete(runClients, client)
	if len(runClients) == 0 {
		delete(h.clients, client.RunID)
	}
	close(client.Send)
}

// Broadcast sends payload to every watcher of runID. Empty payloads are
// ignored.
func (h *Hub) Broadcast(runID string, payload []byte) {
	if len(payload) == 0 {
		return
	}
	if h.redis != nil {
		err := h.redis.Publish(h.ctx, redisChannel(runID), payload).Err()
		if err == nil {
			return
		}
		log.Error(h.ctx, err, log.KV{K: "msg", V: "redis publish failed"}, log.KV{K: "run_id", V: runID})
	}
	h.deliver(runID, payload)
}

// Forget drops the cached payload of a finished run on this instance and,
// through a tombstone on the run channel, on every other one. The tombstone
// follows the run's last publish on the channel, so a final snapshot still in
// flight cannot be cached again.
func (h *Hub) Forget(runID string) {
	if h.redis != nil {
		if err := h.redis.Publish(h.ctx, redisChannel(runID), "").Err(); err != nil {
			log.Error(h.ctx, err, log.KV{K: "msg", V: "redis tombstone failed"}, log.KV{K: "run_id", V: runID})
		}
	}
	h.drop(runID)
}

func (h *Hub) drop(runID string) {
	h.mu.Lock()
	defer h.mu.Unlock()
	delete(h.last, runID)
}

// cached reports whether a snapshot of runID is held for replay.
func (h *Hub) cached(runID string) bool {
	h.mu.RLock()
	defer h.mu.RUnlock()
	_, ok := h.last[runID]
	return ok
}

// Watchers returns the number of watchers connected to runID.
func (h *Hub) Watchers(runID string) int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.clients[runID])
}

// Close stops the Redis subscription.
func (h *Hub) Close() error {
	if h.pubsub == nil {
		return nil
	}
	return h.pubsub.Close()
}

func (h *Hub) deliver(runID string, payload []byte) {
	h.mu.Lock()
	defer h.mu.Unlock()

	h.last[runID] = payload
	for client := range h.clients[runID] {
		select {
		case client.Send <- payload:
		default:
			log.Debug(h.ctx, log.KV{K: "msg", V: "watcher buffer full, dropping update"}, log.KV{K: "run_id", V: runID})
		}
	}
}

func (h *Hub) subscribeRedis(msgs <-chan *redis.Message) {
	for msg := range msgs {
		runID := runIDFromChannel(msg.Channel)
		if runID == "" {
			continue
		}
		if msg.Payload == "" {
			h.drop(runID)
			continue
		}
		h.deliver(runID, []byte(msg.Payload))
	}
}

func redisChannel(runID string) string {
	return channelPrefix + runID + channelSuffix
}

func runIDFromChannel(ch string) string {
	if !strings.HasPrefix(ch, channelPrefix) || !strings.HasSuffix(ch, channelSuffix) {
		return ""
	}
	if len(ch) <= len(channelPrefix)+len(channelSuffix) {
		return ""
	}
	return ch[len(channelPrefix) : len(ch)-len(channelSuffix)]
}
