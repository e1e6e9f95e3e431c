package notifications

import (
	"context"
	"errors"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/gofiber/websocket/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const (
	testEventuallyTimeout = time.Second
	testPollInterval      = 10 * time.Millisecond
)

// fakeConn records written frames; ReadMessage blocks until Close.
type fakeConn struct {
	mu     sync.Mutex
	frames []frame
	closed chan struct{}
	once   sync.Once
}

type frame struct {
	kind int
	data string
}

func newFakeConn() *fakeConn {
	return &fakeConn{closed: make(chan struct{})}
}

func (f *fakeConn) ReadMessage() (int, []byte, error) {
	<-f.closed
	return 0, nil, errors.New("closed")
}

func (f *fakeConn) WriteMessage(kind int, data []byte) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.frames = append(f.frames, frame{kind: kind, data: string(data)})
	return nil
}

func (f *fakeConn) SetReadLimit(int64)                {}
func (f *fakeConn) SetReadDeadline(time.Time) error   { return nil }
func (f *fakeConn) SetWriteDeadline(time.Time) error  { return nil }
func (f *fakeConn) SetPongHandler(func(string) error) {}

func (f *fakeConn) Close() error {
	f.once.Do(func() { close(f.closed) })
	return nil
}

func (f *fakeConn) texts() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []string
	for _, fr := range f.frames {
		if fr.kind == websocket.TextMessage {
			out = append(out, fr.data)
		}
	}
	return out
}

func (f *fakeConn) sawClose() bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, fr := range f.frames {
		if fr.kind == websocket.CloseMessage {
			return true
		}
	}
	return false
}

func TestHub_BroadcastReachesEveryClient(t *testing.T) {
	hub := NewHub()
	a, b := newFakeConn(), newFakeConn()

	ca, err := hub.Register(a)
	require.NoError(t, err)
	cb, err := hub.Register(b)
	require.NoError(t, err)
	go ca.WritePump()
	go cb.WritePump()

	hub.BroadcastAll([]byte(`{"type":"post_published"}`))

	assert.Eventually(t, func() bool {
		return len(a.texts()) == 1 && len(b.texts()) == 1
	}, testEventuallyTimeout, testPollInterval)

	require.NoError(t, hub.Shutdown(context.Background()))
	assert.Eventually(t, func() bool { return a.sawClose() && b.sawClose() }, testEventuallyTimeout, testPollInterval)
	assert.Equal(t, 0, hub.Len())

	_, err = hub.Register(newFakeConn())
	assert.ErrorIs(t, err, ErrHubClosed)
}

func TestHub_ReadPumpUnregistersOnDisconnect(t *testing.T) {
	hub := NewHub()
	conn := newFakeConn()
	client, err := hub.Register(conn)
	require.NoError(t, err)

	done := make(chan struct{})
	go func() {
		client.ReadPump()
		close(done)
	}()

	assert.Equal(t, 1, hub.Len())
	_ = conn.Close()
	<-done
	assert.Equal(t, 0, hub.Len())

	// Unregistering again is harmless.
	hub.UnregisterClient(client)
}

func TestHub_ConnectionLimit(t *testing.T) {
	hub := NewHub()
	hub.maxConns = 1
	_, err := hub.Register(newFakeConn())
	require.NoError(t, err)
	_, err = hub.Register(newFakeConn())
	assert.ErrorIs(t, err, ErrHubFull)
}

func TestClient_TrySendDropsWhenFull(t *testing.T) {
	hub := NewHub()
	client, err := hub.Register(newFakeConn())
	require.NoError(t, err)

	for i := 0; i < sendBuffer+5; i++ {
		client.trySend([]byte("x"))
	}
	assert.Len(t, client.send, sendBuffer)
}

func TestHub_StartWiringForwardsPublishedEvents(t *testing.T) {
	mr := miniredis.RunT(t)
	rdb := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	defer func() { _ = rdb.Close() }()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	n := NewNotifier(rdb)
	hub := NewHub()
	conn := newFakeConn()
	client, err := hub.Register(conn)
	require.NoError(t, err)
	go client.WritePump()

	require.NoError(t, hub.StartWiring(ctx, n))
	require.NoError(t, n.PublishFeed(ctx, FeedEvent{Type: EventPostPublished, Title: "Hello"}))

	assert.Eventually(t, func() bool {
		texts := conn.texts()
		return len(texts) == 1 && strings.Contains(texts[0], `"type":"post_published"`)
	}, testEventuallyTimeout, testPollInterval)

	_ = hub.Shutdown(context.Background())
}
