package mathpuzzle

import (
	"bufio"
	"context"
	"errors"
	"net"
	"sync"
	"time"

	"github.com/HexDino/LTM-MathPuzzle/games/mathpuzzle/protocol"
)

const (
	maxLineLength = 4096
	writeWait     = 10 * time.Second
)

// tcpPeer writes newline-terminated lines to a raw socket.
type tcpPeer struct {
	conn net.Conn
	mu   sync.Mutex
}

func (p *tcpPeer) WriteLine(line string) error {
	p.mu.Lock()
	defer p.mu.Unlock()

	_ = p.conn.SetWriteDeadline(time.Now().Add(writeWait))
	_, err := p.conn.Write([]byte(line + "\n"))
	return err
}

func (p *tcpPeer) Close() error { return p.conn.Close() }

func (p *tcpPeer) RemoteAddr() string { return p.conn.RemoteAddr().String() }

// ServeTCP accepts line connections on ln until ctx is done.
func (e *Engine) ServeTCP(ctx context.Context, ln net.Listener) error {
	go func() {
		<-ctx.Done()
		_ = ln.Close()
	}()

	e.logf("SERVE: Accepting game connections on %s", ln.Addr())

	for {
		conn, err := ln.Accept()
		if err != nil {
			if ctx.Err() != nil || errors.Is(err, net.ErrClosed) {
				return nil
			}
			e.logf("SERVE: Accept failed: %v", err)
			time.Sleep(100 * time.Millisecond)
			continue
		}

		go e.serveConn(conn)
	}
}

func (e *Engine) serveConn(conn net.Conn) {
	peer := &tcpPeer{conn: conn}

	s, err := e.Connect(peer)
	if err != nil {
		_ = peer.WriteLine(protocol.Error(err.Error()))
		_ = conn.Close()
		return
	}

	go s.writePump()

	scanner := bufio.NewScanner(conn)
	scanner.Buffer(make([]byte, 0, 1024), maxLineLength)
	for scanner.Scan() {
		e.Handle(s, scanner.Text())
	}

	e.Disconnect(s)
}
