package notify

import (
	"context"
	"net"
	"strconv"
	"sync"
	"testing"
	"time"

	"github.com/SoWrongImRight/solarweather-watcher/internal/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// silentSMTPServer accepts connections and never sends the SMTP greeting.
func silentSMTPServer(t *testing.T) (host string, port int) {
	t.Helper()
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)
	t.Cleanup(func() { _ = ln.Close() })

	var mu sync.Mutex
	var conns []net.Conn
	t.Cleanup(func() {
		mu.Lock()
		defer mu.Unlock()
		for _, conn := range conns {
			_ = conn.Close()
		}
	})
	go func() {
		for {
			conn, err := ln.Accept()
			if err != nil {
				return
			}
			// Hold the connection open without speaking.
			mu.Lock()
			conns = append(conns, conn)
			mu.Unlock()
		}
	}()

	host, portStr, err := net.SplitHostPort(ln.Addr().String())
	require.NoError(t, err)
	port, err = strconv.Atoi(portStr)
	require.NoError(t, err)
	return host, port
}

func TestEmailChannel_TimesOutOnSilentServer(t *testing.T) {
	host, port := silentSMTPServer(t)

	ch := NewEmailChannel(host, port, "user", "pass", "from@example.com", "to@example.com", 100*time.Millisecond)

	start := time.Now()
	err := ch.Send(context.Background(), Notification{Subject: "s", Body: "b"})
	elapsed := time.Since(start)

	require.Error(t, err)
	assert.Less(t, elapsed, 2*time.Second, "send must give up at the channel timeout")

	var de *domain.DispatchError
	require.ErrorAs(t, err, &de)
	assert.Equal(t, domain.DispatchTimeout, de.Kind)
}

func TestEmailChannel_HonorsCallerContext(t *testing.T) {
	host, port := silentSMTPServer(t)

	// Generous channel timeout; the caller's deadline is the tighter bound.
	ch := NewEmailChannel(host, port, "user", "pass", "from@example.com", "to@example.com", time.Minute)

	ctx, cancel := context.WithTimeout(context.Background(), 100*time.Millisecond)
	defer cancel()

	start := time.Now()
	err := ch.Send(ctx, Notification{Subject: "s", Body: "b"})

	require.Error(t, err)
	assert.Less(t, time.Since(start), 2*time.Second, "send must unblock when the context expires")
}

func TestEmailChannel_ConnectionRefused(t *testing.T) {
	// Grab a free port, then close it so nothing is listening.
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)
	host, portStr, err := net.SplitHostPort(ln.Addr().String())
	require.NoError(t, err)
	port, err := strconv.Atoi(portStr)
	require.NoError(t, err)
	require.NoError(t, ln.Close())

	ch := NewEmailChannel(host, port, "user", "pass", "from@example.com", "to@example.com", time.Second)

	err = ch.Send(context.Background(), Notification{Subject: "s", Body: "b"})
	var de *domain.DispatchError
	require.ErrorAs(t, err, &de)
	assert.Equal(t, domain.DispatchChannelUnavailable, de.Kind)
}

func TestEmailChannel_RecipientList(t *testing.T) {
	ch := NewEmailChannel("smtp.example.com", 587, "u", "p", "from@example.com",
		"a@example.com, b@example.com,,c@example.com", time.Second)
	assert.Equal(t, []string{"a@example.com", "b@example.com", "c@example.com"}, ch.to)
}
