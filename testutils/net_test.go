package testutils

import (
	"net"
	"testing"
	"time"

	"go.viam.com/test"
)

func TestWaitSuccessfulDial(t *testing.T) {
	listener, err := net.Listen("tcp", "127.0.0.1:0")
	test.That(t, err, test.ShouldBeNil)
	defer listener.Close()
	go func() {
		for {
			conn, err := listener.Accept()
			if err != nil {
				return
			}
			conn.Close()
		}
	}()

	prevWaitDur := waitDur
	defer func() {
		waitDur = prevWaitDur
	}()
	waitDur = 50 * time.Millisecond
	test.That(t, WaitSuccessfulDial(listener.Addr().String()), test.ShouldBeNil)
	err = WaitSuccessfulDial(FreeTCPAddress(t))
	test.That(t, err, test.ShouldNotBeNil)
	test.That(t, err.Error(), test.ShouldContainSubstring, "dial")
}

func TestListenUDP(t *testing.T) {
	receiver := ListenUDP(t)
	sender := ListenUDP(t)
	_, err := sender.WriteTo([]byte("hello"), receiver.LocalAddr())
	test.That(t, err, test.ShouldBeNil)
	test.That(t, ReceiveDatagram(t, receiver, 2*time.Second), test.ShouldResemble, []byte("hello"))
}
