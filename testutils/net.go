// Package testutils holds helpers shared by tests that talk over loopback sockets.
package testutils

import (
	"context"
	"net"
	"testing"
	"time"

	"github.com/pkg/errors"
	"go.viam.com/test"
)

var waitDur = 5 * time.Second

// WaitSuccessfulDial waits for a TCP server at address to accept a connection.
func WaitSuccessfulDial(address string) error {
	ctx, cancel := context.WithTimeout(context.Background(), waitDur)
	defer cancel()
	lastErr := errors.New("timed out dialing")
	for {
		select {
		case <-ctx.Done():
			return lastErr
		default:
		}
		var conn net.Conn
		conn, lastErr = net.DialTimeout("tcp", address, waitDur)
		if lastErr == nil {
			return conn.Close()
		}
		time.Sleep(10 * time.Millisecond)
	}
}

// FreeTCPAddress returns a loopback address that was free a moment ago.
func FreeTCPAddress(t *testing.T) string {
	t.Helper()
	l, err := net.Listen("tcp", "127.0.0.1:0")
	test.That(t, err, test.ShouldBeNil)
	addr := l.Addr().String()
	test.That(t, l.Close(), test.ShouldBeNil)
	return addr
}

// ListenUDP opens a loopback UDP socket closed when the test ends.
func ListenUDP(t *testing.T) net.PacketConn {
	t.Helper()
	conn, err := net.ListenPacket("udp", "127.0.0.1:0")
	test.That(t, err, test.ShouldBeNil)
	t.Cleanup(func() {
		//nolint:errcheck
		conn.Close()
	})
	return conn
}

// ReceiveDatagram reads one datagram from conn, failing the test if none arrives within timeout.
func ReceiveDatagram(t *testing.T, conn net.PacketConn, timeout time.Duration) []byte {
	t.Helper()
	test.That(t, conn.SetReadDeadline(time.Now().Add(timeout)), test.ShouldBeNil)
	buf := make([]byte, 64*1024)
	n, _, err := conn.ReadFrom(buf)
	test.That(t, err, test.ShouldBeNil)
	return buf[:n]
}
