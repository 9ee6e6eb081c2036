package acceptor

import (
	"context"
	"net"
	"strconv"
	"testing"
	"time"

	"github.com/exchangesim/fixexchange/pkg/eventbus"
	"github.com/exchangesim/fixexchange/pkg/fix"
	"github.com/exchangesim/fixexchange/pkg/logging"
	"github.com/exchangesim/fixexchange/pkg/matchingengine"
	"github.com/exchangesim/fixexchange/pkg/persistence"
	"github.com/exchangesim/fixexchange/pkg/session"
)

func TestAcceptorRoutesConnectionToSession(t *testing.T) {
	engine := matchingengine.New()
	bus := eventbus.New(nil, "", nil)
	store := persistence.NewMemoryPort()
	logger := logging.NewLogger(logging.ERROR)

	a := New("127.0.0.1:0", session.Config{SenderCompID: "EXCHANGE", ReadIdleTimeout: 50 * time.Millisecond}, engine, bus, store, logger)

	ln, err := net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		t.Fatalf("reserve addr: %v", err)
	}
	addr := ln.Addr().String()
	ln.Close()
	a.listenAddr = addr

	ctx, cancel := context.WithCancel(context.Background())
	runErrCh := make(chan error, 1)
	go func() { runErrCh <- a.Run(ctx) }()

	var conn net.Conn
	for i := 0; i < 50; i++ {
		conn, err = net.Dial("tcp", addr)
		if err == nil {
			break
		}
		time.Sleep(10 * time.Millisecond)
	}
	if err != nil {
		t.Fatalf("dial: %v", err)
	}
	defer conn.Close()

	logon := fix.NewMessage(fix.MsgTypeLogon, "CLIENT", "EXCHANGE", 1, time.Now())
	logon.Set(fix.TagHeartBtInt, strconv.Itoa(30))
	if _, err := conn.Write(fix.Encode(logon)); err != nil {
		t.Fatalf("write logon: %v", err)
	}

	buf := make([]byte, 0, 4096)
	tmp := make([]byte, 4096)
	conn.SetReadDeadline(time.Now().Add(2 * time.Second))
	for {
		frameLen, ok, splitErr := fix.Split(buf)
		if splitErr == nil && ok {
			reply, decodeErr := fix.Decode(buf[:frameLen])
			if decodeErr != nil {
				t.Fatalf("decode reply: %v", decodeErr)
			}
			if reply.MsgType != fix.MsgTypeLogon {
				t.Fatalf("MsgType = %q, want Logon ack", reply.MsgType)
			}
			break
		}
		n, readErr := conn.Read(tmp)
		if n > 0 {
			buf = append(buf, tmp[:n]...)
			continue
		}
		if readErr != nil {
			t.Fatalf("read reply: %v", readErr)
		}
	}

	cancel()
	select {
	case <-runErrCh:
	case <-time.After(2 * time.Second):
		t.Fatal("acceptor Run did not return after cancel")
	}
}
