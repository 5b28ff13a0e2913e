package mathpuzzle

import (
	"net/http"
	"strings"
	"time"

	"github.com/gorilla/websocket"

	"github.com/HexDino/LTM-MathPuzzle/games/mathpuzzle/protocol"
)

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	CheckOrigin: func(r *http.Request) bool {
		return true
	},
}

// wsPeer carries protocol lines as WebSocket text frames, one line per frame.
// Only the session's write pump writes to it.
type wsPeer struct {
	conn *websocket.Conn
	addr string
}

func (p *wsPeer) WriteLine(line string) error {
	_ = p.conn.SetWriteDeadline(time.Now().Add(writeWait))
	return p.conn.WriteMessage(websocket.TextMessage, []byte(line))
}

func (p *wsPeer) Close() error { return p.conn.Close() }

func (p *wsPeer) RemoteAddr() string { return p.addr }

// ServeWS upgrades r and bridges the socket to the line protocol. A single
// inbound frame may hold several newline-separated commands.
func (e *Engine) ServeWS(w http.ResponseWriter, r *http.Request, remote string) {
	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		e.logf("SERVE: WebSocket upgrade from %s failed: %v", remote, err)
		return
	}

	peer := &wsPeer{conn: conn, addr: remote}

	s, err := e.Connect(peer)
	if err != nil {
		_ = peer.WriteLine(protocol.Error(err.Error()))
		_ = conn.Close()
		return
	}

	go s.writePump()

	conn.SetReadLimit(maxLineLength)
	for {
		_, data, err := conn.ReadMessage()
		if err != nil {
			break
		}
		for line := range strings.SplitSeq(string(data), "\n") {
			e.Handle(s, line)
		}
	}

	e.Disconnect(s)
}
