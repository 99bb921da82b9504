package hub

import (
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/teslashibe/go-hexapod/internal/log"
)

type frame struct {
	kind int
	data []byte
}

// fakeConn is an in-memory websocket connection.
type fakeConn struct {
	in  chan []byte
	out chan frame

	once   sync.Once
	closed chan struct{}
}

func newFakeConn() *fakeConn {
	return &fakeConn{
		in:     make(chan []byte, 8),
		out:    make(chan frame, 64),
		closed: make(chan struct{}),
	}
}

func (c *fakeConn) ReadMessage() (int, []byte, error) {
	select {
	case b := <-c.in:
		return TextFrame, b, nil
	case <-c.closed:
		return 0, nil, errors.New("closed")
	}
}

func (c *fakeConn) WriteMessage(kind int, data []byte) error {
	select {
	case <-c.closed:
		return errors.New("closed")
	default:
	}
	c.out <- frame{kind, data}
	return nil
}

func (c *fakeConn) SetReadLimit(int64) {}

func (c *fakeConn) SetReadDeadline(time.Time) error { return nil }

func (c *fakeConn) SetWriteDeadline(time.Time) error { return nil }

func (c *fakeConn) SetPongHandler(func(string) error) {}

func (c *fakeConn) Close() error {
	c.once.Do(func() { close(c.closed) })
	return nil
}

func (c *fakeConn) next(t *testing.T) frame {
	t.Helper()
	select {
	case f := <-c.out:
		return f
	case <-time.After(time.Second):
		t.Fatal("no frame written")
		return frame{}
	}
}

func startHub(t *testing.T, opts ...Option) *Hub {
	t.Helper()
	h := New("test", append([]Option{WithLogger(log.Discard())}, opts...)...)
	go h.Run()
	t.Cleanup(h.Stop)
	require.Eventually(t, h.IsRunning, time.Second, time.Millisecond)
	return h
}

func TestHub_Broadcast(t *testing.T) {
	h := startHub(t)
	a, b := newFakeConn(), newFakeConn()
	go NewClient(h, a).Run()
	go NewClient(h, b).Run()
	require.Eventually(t, func() bool { return h.ClientCount() == 2 }, time.Second, time.Millisecond)

	require.NoError(t, h.BroadcastJSON(map[string]int{"seq": 1}))

	for _, c := range []*fakeConn{a, b} {
		f := c.next(t)
		assert.Equal(t, TextFrame, f.kind)
		assert.JSONEq(t, `{"seq":1}`, string(f.data))
	}
}

func TestHub_InboundAndReply(t *testing.T) {
	got := make(chan string, 1)
	h := startHub(t, WithHandler(func(c *Client, data []byte) {
		got <- string(data)
		c.Send(NewJSONMessage([]byte(`{"ok":true}`)))
	}))
	conn := newFakeConn()
	client := NewClient(h, conn)
	go client.Run()
	assert.NotEmpty(t, client.ID)

	conn.in <- []byte(`{"type":"ping"}`)

	select {
	case s := <-got:
		assert.Equal(t, `{"type":"ping"}`, s)
	case <-time.After(time.Second):
		t.Fatal("handler not called")
	}
	assert.JSONEq(t, `{"ok":true}`, string(conn.next(t).data))
}

func TestHub_DisconnectUnregisters(t *testing.T) {
	h := startHub(t)
	conn := newFakeConn()
	go NewClient(h, conn).Run()
	require.Eventually(t, func() bool { return h.ClientCount() == 1 }, time.Second, time.Millisecond)

	conn.Close()
	require.Eventually(t, func() bool { return h.ClientCount() == 0 }, time.Second, time.Millisecond)
}

func TestHub_StopClosesClients(t *testing.T) {
	h := startHub(t)
	conn := newFakeConn()
	go NewClient(h, conn).Run()
	require.Eventually(t, func() bool { return h.ClientCount() == 1 }, time.Second, time.Millisecond)

	h.Stop()
	require.Eventually(t, func() bool { return !h.IsRunning() }, time.Second, time.Millisecond)
	assert.Equal(t, CloseFrame, conn.next(t).kind)
	assert.Zero(t, h.ClientCount())
}

// gatedConn holds every write until gate is closed.
type gatedConn struct {
	*fakeConn
	writing chan struct{}
	gate    chan struct{}
}

func (c *gatedConn) WriteMessage(kind int, data []byte) error {
	select {
	case c.writing <- struct{}{}:
	default:
	}
	<-c.gate
	return c.fakeConn.WriteMessage(kind, data)
}

func TestClient_RunWaitsForWriter(t *testing.T) {
	h := startHub(t)
	conn := &gatedConn{
		fakeConn: newFakeConn(),
		writing:  make(chan struct{}, 1),
		gate:     make(chan struct{}),
	}
	client := NewClient(h, conn)
	returned := make(chan struct{})
	go func() {
		client.Run()
		close(returned)
	}()
	require.Eventually(t, func() bool { return h.ClientCount() == 1 }, time.Second, time.Millisecond)

	require.True(t, client.Send(NewJSONMessage([]byte(`{"seq":1}`))))
	select {
	case <-conn.writing:
	case <-time.After(time.Second):
		t.Fatal("writer never started")
	}

	conn.Close()
	select {
	case <-returned:
		t.Fatal("Run returned while the writer still held the connection")
	case <-time.After(50 * time.Millisecond):
	}

	close(conn.gate)
	select {
	case <-returned:
	case <-time.After(time.Second):
		t.Fatal("Run did not return after the writer stopped")
	}
}

type encoded struct{}

func (encoded) Bytes() ([]byte, error) { return []byte(`"custom"`), nil }

func TestEncode(t *testing.T) {
	m, err := Encode(encoded{})
	require.NoError(t, err)
	assert.Equal(t, `"custom"`, string(m.Data))

	m, err = Encode([]int{1, 2})
	require.NoError(t, err)
	assert.Equal(t, JSONMessage, m.Type)
	assert.Equal(t, "[1,2]", string(m.Data))

	_, err = Encode(make(chan int))
	assert.Error(t, err)
}
