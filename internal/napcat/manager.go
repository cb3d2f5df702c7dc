// Package napcat owns the persistent WebSocket connection to the NapCat
// (OneBot v11) gateway: connect, authenticate, reconnect with a fixed
// delay, route inbound events, and expose a best-effort send primitive.
package napcat

import (
	"errors"
	"fmt"
	"net/url"
	"sync"
	"time"

	"github.com/gorilla/websocket"
	"github.com/moepig/qqbridge/internal/config"
	"github.com/moepig/qqbridge/internal/logging"
	"github.com/moepig/qqbridge/internal/onebot"
)

// ErrNotConnected is returned by Send while the gateway channel is down.
// The channel is best-effort: messages are dropped, never queued.
var ErrNotConnected = errors.New("napcat: not connected, dropping message")

const reconnectDelay = 5 * time.Second

// Handler consumes routed inbound events.
type Handler func(ev onebot.Event)

// Manager is the gateway connection manager. At most one live connection
// and at most one pending retry timer exist at any time; Stop is permanent.
type Manager struct {
	cfg     config.NapCatConfig
	log     *logging.Logger
	handler Handler

	mu      sync.Mutex
	conn    *websocket.Conn
	retry   *time.Timer
	stopped bool

	// gorilla allows one concurrent writer per connection
	writeMu sync.Mutex
}

// New creates a manager from configuration.
func New(cfg config.NapCatConfig, log *logging.Logger) *Manager {
	return &Manager{
		cfg: cfg,
		log: log.Sub("napcat"),
	}
}

// OnEvent registers the inbound event handler. Must be called before Start.
func (m *Manager) OnEvent(h Handler) {
	m.handler = h
}

// Start opens the gateway connection and begins routing inbound events.
// The dial runs in the background; failures follow the reconnect policy.
func (m *Manager) Start() {
	m.mu.Lock()
	m.stopped = false
	m.mu.Unlock()
	go m.connect()
}

// Stop permanently closes the connection and cancels any pending reconnect.
func (m *Manager) Stop() {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.stopped = true
	if m.retry != nil {
		m.retry.Stop()
		m.retry = nil
	}
	if m.conn != nil {
		m.conn.Close()
		m.conn = nil
	}
	m.log.Info().Msg("gateway connection stopped")
}

// Connected reports whether a live gateway connection exists.
func (m *Manager) Connected() bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.conn != nil
}

// Send transmits a directed text message iff the channel is open.
func (m *Manager) Send(target, text string, group bool) error {
	m.mu.Lock()
	conn := m.conn
	m.mu.Unlock()

	if conn == nil {
		m.log.Error().Str("target", target).Msg("not connected, dropping message")
		return ErrNotConnected
	}

	cmd := onebot.NewSendCommand(target, text, group)

	m.writeMu.Lock()
	err := conn.WriteJSON(cmd)
	m.writeMu.Unlock()
	if err != nil {
		return fmt.Errorf("napcat: send: %w", err)
	}

	m.log.Info().
		Str("target", target).
		Bool("group", group).
		Str("text", truncate(text, 100)).
		Msg("message sent")
	return nil
}

// dialURL appends the access token as a query parameter when configured.
// An absent token is valid (open gateway).
func (m *Manager) dialURL() (string, error) {
	u, err := url.Parse(m.cfg.URL)
	if err != nil {
		return "", fmt.Errorf("napcat: parsing gateway URL: %w", err)
	}
	if m.cfg.Token != "" {
		q := u.Query()
		q.Set("access_token", m.cfg.Token)
		u.RawQuery = q.Encode()
	}
	return u.String(), nil
}

func (m *Manager) connect() {
	m.mu.Lock()
	if m.stopped {
		m.mu.Unlock()
		return
	}
	m.mu.Unlock()

	addr, err := m.dialURL()
	if err != nil {
		m.log.Error().Err(err).Msg("invalid gateway URL")
		return
	}

	conn, _, err := websocket.DefaultDialer.Dial(addr, nil)
	if err != nil {
		m.log.Error().Err(err).Msg("gateway connect failed")
		m.scheduleReconnect()
		return
	}

	m.mu.Lock()
	if m.stopped {
		m.mu.Unlock()
		conn.Close()
		return
	}
	m.conn = conn
	m.mu.Unlock()

	m.log.Info().Str("url", m.cfg.URL).Msg("gateway connected")
	go m.readLoop(conn)
}

// readLoop reads inbound frames until the connection closes. The close
// here is the sole retry trigger, so a dial error followed by its close
// never produces duplicate reconnects.
func (m *Manager) readLoop(conn *websocket.Conn) {
	for {
		_, raw, err := conn.ReadMessage()
		if err != nil {
			if websocket.IsCloseError(err, websocket.CloseNormalClosure, websocket.CloseGoingAway) {
				m.log.Info().Msg("gateway disconnected")
			} else {
				m.log.Warn().Err(err).Msg("gateway read failed")
			}
			break
		}
		m.route(raw)
	}

	m.mu.Lock()
	if m.conn == conn {
		m.conn = nil
	}
	stopped := m.stopped
	m.mu.Unlock()

	if !stopped {
		m.scheduleReconnect()
	}
}

// route parses one inbound frame and hands message events to the handler.
// Unparseable frames, API acknowledgments and non-message events are
// silently discarded.
func (m *Manager) route(raw []byte) {
	ev, err := onebot.ParseEvent(raw)
	if err != nil {
		return
	}
	if ev.IsAck() || ev.PostType != "message" {
		return
	}
	if m.handler != nil {
		// The transport delivers frames as independent tasks; dedup and
		// conversation scoping in the pipeline make overlap safe.
		go m.handler(ev)
	}
}

// scheduleReconnect arms the single retry timer unless one is pending or
// the manager was stopped.
func (m *Manager) scheduleReconnect() {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.stopped || m.retry != nil {
		return
	}
	m.log.Info().Dur("delay", reconnectDelay).Msg("scheduling reconnect")
	m.retry = time.AfterFunc(reconnectDelay, func() {
		m.mu.Lock()
		m.retry = nil
		m.mu.Unlock()
		m.connect()
	})
}

func truncate(s string, n int) string {
	if len(s) > n {
		return s[:n]
	}
	return s
}
