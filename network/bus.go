package network

import (
	"bytes"
	"context"
	"crypto/tls"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net"
	"net/http"
	"strings"
	"sync"
	"time"

	"go.dedis.ch/kyber/v4"

	"github.com/luca-patrignani/tec/message"
)

const (
	// DefaultPipeDepth is the number of frames queued before senders are
	// asked to back off.
	DefaultPipeDepth = 32
	maxFrameSize     = 64 << 10
)

var (
	ErrClosed   = errors.New("bus closed")
	ErrPipeFull = errors.New("pipe full")
)

// Bus is a node of the software bus.
// the Rank is an identifier of the Bus.
// Addresses[i] contains the address to reach the Bus with Rank i.
type Bus struct {
	Rank      int
	Addresses map[int]string
	server    *http.Server
	handler   *pipeHandler
	client    http.Client
	timeout   time.Duration
	depth     int
	tlsConfig *tls.Config
	signer    *KeyPair
	keys      map[int]kyber.Point
	logger    *slog.Logger
}

// NewBus creates the bus of the node with rank. Call Start to serve
// incoming frames.
func NewBus(rank int, addresses map[int]string, opts ...BusOption) *Bus {
	b := Bus{
		Rank:      rank,
		Addresses: copyMap(addresses),
		timeout:   30 * time.Second,
		depth:     DefaultPipeDepth,
		keys:      map[int]kyber.Point{},
		logger:    slog.Default(),
	}
	for _, opt := range opts {
		b = opt(b)
	}
	if b.depth <= 0 {
		b.depth = DefaultPipeDepth
	}
	b.handler = &pipeHandler{
		subscribed: map[message.Topic]bool{},
		pipe:       make(chan message.Envelope, b.depth),
		done:       make(chan struct{}),
		keys:       b.keys,
		logger:     b.logger,
	}
	b.server = &http.Server{Addr: addresses[rank], Handler: b.handler}
	return &b
}

// Start serves incoming frames on l until Close.
func (b *Bus) Start(l net.Listener) {
	if b.tlsConfig != nil {
		l = tls.NewListener(l, b.tlsConfig)
	}
	go func() {
		err := b.server.Serve(l)
		if err != nil && !errors.Is(err, http.ErrServerClosed) {
			b.logger.Error("bus server stopped", "error", err)
		}
	}()
}

// Close stops serving and wakes up pending receivers.
func (b *Bus) Close() error {
	var err error
	b.handler.closeOnce.Do(func() {
		close(b.handler.done)
		err = b.server.Shutdown(context.Background())
	})
	return err
}

// Subscribe adds topics to the set of topics queued on the pipe.
func (b *Bus) Subscribe(topics ...message.Topic) {
	b.handler.mu.Lock()
	defer b.handler.mu.Unlock()
	for _, t := range topics {
		b.handler.subscribed[t] = true
	}
}

// Subscribed reports whether frames on topic are queued.
func (b *Bus) Subscribed(topic message.Topic) bool {
	return b.handler.isSubscribed(topic)
}

// Receive blocks until a frame is available, ctx is done or the bus is
// closed.
func (b *Bus) Receive(ctx context.Context) (message.Envelope, error) {
	select {
	case env := <-b.handler.pipe:
		return env, nil
	case <-ctx.Done():
		return message.Envelope{}, ctx.Err()
	case <-b.handler.done:
		return message.Envelope{}, ErrClosed
	}
}

// Deliver queues env locally as if it had been received from a peer.
// It waits for room on the pipe until ctx is done.
func (b *Bus) Deliver(ctx context.Context, env message.Envelope) error {
	if !b.handler.isSubscribed(env.Topic) {
		return nil
	}
	select {
	case b.handler.pipe <- env:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	case <-b.handler.done:
		return ErrClosed
	}
}

// Publish sends env to every other node. Delivery to each peer is retried
// until the bus timeout expires; the failures of all peers are joined.
func (b *Bus) Publish(ctx context.Context, env message.Envelope) error {
	frame := NewFrame(b.Rank, env)
	if b.signer != nil {
		if err := frame.Sign(b.signer.Private); err != nil {
			return fmt.Errorf("sign frame: %w", err)
		}
	}
	body, err := MarshalFrame(frame)
	if err != nil {
		return err
	}
	if b.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, b.timeout)
		defer cancel()
	}

	var wg sync.WaitGroup
	errs := make([]error, 0, len(b.Addresses))
	var mu sync.Mutex
	for i, addr := range b.Addresses {
		if i == b.Rank {
			continue
		}
		wg.Add(1)
		go func() {
			defer wg.Done()
			if err := b.post(ctx, addr, body); err != nil {
				mu.Lock()
				errs = append(errs, fmt.Errorf("peer %d: %w", i, err))
				mu.Unlock()
			}
		}()
	}
	wg.Wait()
	return errors.Join(errs...)
}

// statusError is a response refusing a frame. Only a full pipe is worth
// retrying.
type statusError struct {
	code int
}

func (e statusError) Error() string {
	return fmt.Sprintf("frame refused with status %d", e.code)
}

func (b *Bus) post(ctx context.Context, addr string, body []byte) error {
	policy := backoff{
		maxWait: time.Second,
		report: func(err error) error {
			var se statusError
			if errors.As(err, &se) && se.code != http.StatusServiceUnavailable {
				return err
			}
			return nil
		},
	}
	return policy.retry(ctx, func() error {
		req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint(addr), bytes.NewReader(body))
		if err != nil {
			return err
		}
		resp, err := b.client.Do(req)
		if err != nil {
			return err
		}
		io.Copy(io.Discard, resp.Body)
		if err := resp.Body.Close(); err != nil {
			return err
		}
		if resp.StatusCode != http.StatusAccepted {
			return statusError{code: resp.StatusCode}
		}
		return nil
	})
}

type pipeHandler struct {
	mu         sync.RWMutex
	subscribed map[message.Topic]bool
	pipe       chan message.Envelope
	done       chan struct{}
	keys       map[int]kyber.Point
	logger     *slog.Logger
	closeOnce  sync.Once
}

func (h *pipeHandler) isSubscribed(topic message.Topic) bool {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return h.subscribed[topic]
}

func (h *pipeHandler) ServeHTTP(rw http.ResponseWriter, req *http.Request) {
	if req.Method != http.MethodPost {
		rw.WriteHeader(http.StatusMethodNotAllowed)
		return
	}
	content, err := io.ReadAll(http.MaxBytesReader(rw, req.Body, maxFrameSize))
	if err != nil {
		rw.WriteHeader(http.StatusBadRequest)
		return
	}
	frame, err := UnmarshalFrame(content)
	if err != nil {
		h.logger.Warn("dropping undecodable frame", "remote", req.RemoteAddr, "error", err)
		rw.WriteHeader(http.StatusBadRequest)
		return
	}
	sender := int(frame.Sender)
	if pub, ok := h.keys[sender]; ok {
		if err := frame.Verify(pub); err != nil {
			h.logger.Warn("dropping frame", "sender", sender, "error", err)
			rw.WriteHeader(http.StatusUnauthorized)
			return
		}
	} else if len(h.keys) > 0 {
		h.logger.Warn("dropping frame from unknown sender", "sender", sender)
		rw.WriteHeader(http.StatusUnauthorized)
		return
	}
	env := frame.Envelope()
	// a node only speaks for itself on the telemetry topics
	if owner, ok := message.TelemetryOwner(env.Topic); ok && owner != sender {
		h.logger.Warn("dropping telemetry sent on behalf of another node",
			"sender", sender, "topic", env.Topic.String())
		rw.WriteHeader(http.StatusForbidden)
		return
	}
	if !h.isSubscribed(env.Topic) {
		rw.WriteHeader(http.StatusAccepted)
		return
	}
	select {
	case h.pipe <- env:
		rw.WriteHeader(http.StatusAccepted)
	default:
		rw.WriteHeader(http.StatusServiceUnavailable)
	}
}

// CreateListeners opens n listeners on ephemeral localhost ports.
func CreateListeners(n int) (map[int]net.Listener, map[int]string) {
	listeners := make(map[int]net.Listener)
	addresses := make(map[int]string)
	for i := 0; i < n; i++ {
		l, err := net.Listen("tcp", "localhost:0")
		if err != nil {
			panic(err)
		}
		listeners[i] = l
		addresses[i] = l.Addr().String()
	}
	return listeners, addresses
}

func endpoint(addr string) string {
	if strings.HasPrefix(addr, "http://") || strings.HasPrefix(addr, "https://") {
		return addr
	}
	return "http://" + addr
}

func copyMap[V any](original map[int]V) map[int]V {
	copied := make(map[int]V, len(original))
	for k, v := range original {
		copied[k] = v
	}
	return copied
}
