package web

import (
	"log/slog"
	"sync"
	"time"

	"github.com/gorilla/websocket"
)

const (
	pingEvery    = time.Second
	deadAfter    = 5 * time.Second
	writeTimeout = time.Second
)

// client is one websocket connection with the keys it subscribed to: token symbols for volumes
// and lowercase token addresses for prices.
type client struct {
	conn *websocket.Conn
	wmx  sync.Mutex
	subs map[string]struct{}
}

func (c *client) write(payload []byte) error {
	c.wmx.Lock()
	defer c.wmx.Unlock()

	_ = c.conn.SetWriteDeadline(time.Now().Add(writeTimeout))
	return c.conn.WriteMessage(websocket.TextMessage, payload)
}

type keeper struct {
	mx      sync.RWMutex
	clients map[*websocket.Conn]*client
	log     *slog.Logger
}

func newKeeper(log *slog.Logger) *keeper {
	return &keeper{
		clients: make(map[*websocket.Conn]*client),
		log:     log,
	}
}

func (k *keeper) addConn(conn *websocket.Conn) {
	k.mx.Lock()
	defer k.mx.Unlock()
	k.clients[conn] = &client{conn: conn, subs: make(map[string]struct{})}
}

func (k *keeper) count() int {
	k.mx.RLock()
	defer k.mx.RUnlock()
	return len(k.clients)
}

// broadcast writes what render returns for each client's subscriptions. Clients failing the
// write are dropped.
func (k *keeper) broadcast(render func(subs map[string]struct{}) [][]byte) {
	var failed []*websocket.Conn

	k.mx.RLock()
	for conn, c := range k.clients {
		for _, payload := range render(c.subs) {
			if err := c.write(payload); err != nil {
				k.log.Debug("websocket write failed", "remote", conn.RemoteAddr().String(), "err", err)
				failed = append(failed, conn)
				break
			}
		}
	}
	k.mx.RUnlock()

	for _, conn := range failed {
		k.close(conn)
	}
}

func (k *keeper) subscribe(conn *websocket.Conn, key string) {
	k.mx.Lock()
	defer k.mx.Unlock()
	if c, ok := k.clients[conn]; ok {
		c.subs[key] = struct{}{}
	}
}

func (k *keeper) close(conn *websocket.Conn) {
	k.mx.Lock()
	defer k.mx.Unlock()

	_ = conn.Close()
	delete(k.clients, conn)
}

func (k *keeper) closeAll() {
	k.mx.Lock()
	defer k.mx.Unlock()

	for conn := range k.clients {
		_ = conn.Close()
		delete(k.clients, conn)
	}
}

// keep reads subscriptions from conn and pings it until it goes silent or closes.
func (k *keeper) keep(conn *websocket.Conn) {
	pinger := time.NewTicker(pingEvery)
	defer pinger.Stop()
	defer k.close(conn)

	var (
		aliveMx   sync.Mutex
		lastAlive = time.Now()
	)
	alive := func() {
		aliveMx.Lock()
		lastAlive = time.Now()
		aliveMx.Unlock()
	}
	silentFor := func() time.Duration {
		aliveMx.Lock()
		defer aliveMx.Unlock()
		return time.Since(lastAlive)
	}

	ponger := conn.PongHandler()
	conn.SetPongHandler(func(appData string) error {
		alive()
		return ponger(appData)
	})

	done := make(chan struct{})
	defer close(done)

	read := make(chan msg)
	go func() {
		defer close(read)
		for {
			mt, data, err := conn.ReadMessage()
			select {
			case read <- msg{mType: mt, data: data, err: err}:
			case <-done:
				return
			}
			if err != nil {
				return
			}
		}
	}()

	for {
		select {
		case <-pinger.C:
			if err := conn.WriteControl(websocket.PingMessage, []byte{}, time.Now().Add(writeTimeout)); err != nil {
				return
			}
			if silentFor() > deadAfter {
				return
			}
		case m, ok := <-read:
			if !ok || m.err != nil {
				return
			}

			switch m.mType {
			case websocket.CloseMessage:
				return
			case websocket.TextMessage:
				if key := string(m.data); key != "" {
					k.subscribe(conn, key)
				}
			}

			alive()
		}
	}
}
