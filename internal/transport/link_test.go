package transport

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/require"

	"github.com/shakiller/shiphexwar/internal/hexgrid"
	"github.com/shakiller/shiphexwar/internal/protocol"
)

// echoServer sends every frame it receives straight back.
func echoServer(t *testing.T) string {
	t.Helper()
	up := websocket.Upgrader{}
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		conn, err := up.Upgrade(w, r, nil)
		if err != nil {
			return
		}
		l := New(conn, zerolog.Nop())
		_ = l.Frames(r.Context(), func(b []byte) { _ = l.WriteFrame(b) })
	}))
	t.Cleanup(srv.Close)
	return "ws" + strings.TrimPrefix(srv.URL, "http")
}

func TestSendAndRunInOrder(t *testing.T) {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	l, err := Dial(ctx, echoServer(t), zerolog.Nop())
	require.NoError(t, err)
	defer l.Close()

	require.True(t, l.Send(protocol.RequestState("hello")))
	require.NoError(t, l.WriteFrame([]byte(`{"type":"bogus"}`)))
	require.True(t, l.Send(protocol.Shot(hexgrid.C(3, 4), false, nil, protocol.RoleClient)))

	var got []protocol.Message
	done := make(chan error, 1)
	go func() {
		done <- l.Run(ctx, func(m protocol.Message) {
			got = append(got, m)
			if len(got) == 2 {
				cancel()
			}
		})
	}()

	select {
	case <-done:
	case <-time.After(5 * time.Second):
		t.Fatal("Run did not stop")
	}
	require.Len(t, got, 2, "the malformed frame is skipped")
	require.Equal(t, protocol.KindRequestState, got[0].Type)
	require.Equal(t, protocol.KindShot, got[1].Type)
	c, ok := got[1].Coord()
	require.True(t, ok)
	require.Equal(t, hexgrid.C(3, 4), c)

	require.False(t, l.Up())
	require.False(t, l.Send(protocol.RequestState("late")))
}

func TestDialFailure(t *testing.T) {
	srv := httptest.NewServer(http.NotFoundHandler())
	defer srv.Close()

	_, err := Dial(context.Background(), "ws"+strings.TrimPrefix(srv.URL, "http"), zerolog.Nop())
	require.Error(t, err)
	require.Contains(t, err.Error(), "404")
}
