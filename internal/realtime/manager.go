package realtime

import (
	"context"
	"sync"
	"time"

	"github.com/coder/websocket"
	"github.com/coder/websocket/wsjson"
	"github.com/rs/zerolog"

	"github.com/vovakirdan/socialhub-client/internal/proto"
)

const (
	// DefaultMaxReconnectAttempts bounds automatic reconnects between
	// successful opens.
	DefaultMaxReconnectAttempts = 5

	// DefaultReconnectDelay is the fixed wait before each reconnect attempt.
	DefaultReconnectDelay = 3 * time.Second

	defaultDialTimeout  = 10 * time.Second
	defaultWriteTimeout = 5 * time.Second
)

// Options configures a Manager.
type Options struct {
	// URL is the ws:// or wss:// endpoint.
	URL string

	DialTimeout          time.Duration
	ReconnectDelay       time.Duration
	MaxReconnectAttempts int

	Logger *zerolog.Logger
}

// Manager owns at most one live WebSocket connection and its full lifecycle:
// dialing, the auth handshake, inbound frame routing, and bounded automatic
// reconnection after unclean closes. All methods are safe for concurrent use.
type Manager struct {
	url                  string
	dialTimeout          time.Duration
	reconnectDelay       time.Duration
	maxReconnectAttempts int
	log                  zerolog.Logger

	mu                sync.Mutex
	conn              *websocket.Conn
	state             ConnectionState
	cancel            context.CancelFunc
	gen               uint64
	reconnectTimer    *time.Timer
	reconnectAttempts int
	userID            int64
	handlers          Handlers
	subs              map[string]subscription
}

// NewManager builds a Manager for the given endpoint. It does not connect.
func NewManager(opts Options) *Manager {
	logger := opts.Logger
	if logger == nil {
		nop := zerolog.Nop()
		logger = &nop
	}
	m := &Manager{
		url:                  opts.URL,
		dialTimeout:          opts.DialTimeout,
		reconnectDelay:       opts.ReconnectDelay,
		maxReconnectAttempts: opts.MaxReconnectAttempts,
		log:                  logger.With().Str("component", "realtime").Logger(),
		state:                StateDisconnected,
		subs:                 make(map[string]subscription),
	}
	if m.dialTimeout <= 0 {
		m.dialTimeout = defaultDialTimeout
	}
	if m.reconnectDelay <= 0 {
		m.reconnectDelay = DefaultReconnectDelay
	}
	if m.maxReconnectAttempts <= 0 {
		m.maxReconnectAttempts = DefaultMaxReconnectAttempts
	}
	return m
}

// Connect establishes a connection for the given session identity. Any
// existing connection or pending reconnect is torn down first, so calling
// Connect twice never leaves two live transports behind. The call returns
// immediately; progress is observed through the handlers.
func (m *Manager) Connect(userID int64, h Handlers) {
	m.mu.Lock()
	m.teardownLocked()

	m.gen++
	gen := m.gen
	m.userID = userID
	m.handlers = h
	m.state = StateConnecting

	ctx, cancel := context.WithCancel(context.Background())
	m.cancel = cancel
	m.mu.Unlock()

	go m.run(ctx, gen, userID, h)
}

// Disconnect closes the current connection with a normal status and cancels
// any pending reconnect. Safe to call at any time, including when no
// connection exists.
func (m *Manager) Disconnect() {
	m.mu.Lock()
	m.teardownLocked()
	m.state = StateClosed
	m.mu.Unlock()
}

// teardownLocked invalidates the current session: it stops the reconnect
// timer, cancels the session context, and closes the transport if one exists.
// Callers must hold m.mu.
func (m *Manager) teardownLocked() {
	m.gen++
	if m.reconnectTimer != nil {
		m.reconnectTimer.Stop()
		m.reconnectTimer = nil
	}
	if m.cancel != nil {
		m.cancel()
		m.cancel = nil
	}
	if m.conn != nil {
		_ = m.conn.Close(websocket.StatusNormalClosure, "client disconnect")
		m.conn = nil
	}
	m.state = StateDisconnected
}

// IsConnected reports whether the transport is open and authenticated.
func (m *Manager) IsConnected() bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.state == StateConnected
}

// State returns the current connection state.
func (m *Manager) State() ConnectionState {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.state
}

// Send serializes {type, payload} and writes it to the transport. It reports
// false when no open connection exists or the write fails; delivery is never
// guaranteed.
func (m *Manager) Send(msgType string, payload any) bool {
	m.mu.Lock()
	conn := m.conn
	state := m.state
	m.mu.Unlock()

	if conn == nil || state != StateConnected {
		m.log.Warn().Str("type", msgType).Stringer("state", state).Msg("send skipped: not connected")
		return false
	}

	env, err := proto.NewEnvelope(msgType, payload)
	if err != nil {
		m.log.Warn().Err(err).Str("type", msgType).Msg("send skipped: marshal payload")
		return false
	}

	ctx, cancel := context.WithTimeout(context.Background(), defaultWriteTimeout)
	defer cancel()
	if err := wsjson.Write(ctx, conn, env); err != nil {
		m.log.Warn().Err(err).Str("type", msgType).Msg("send failed")
		return false
	}
	return true
}

// SendDirectMessage emits a best-effort realtime echo of a direct message.
func (m *Manager) SendDirectMessage(senderID, receiverID int64, content string) bool {
	return m.Send(proto.TypeDirectMessage, proto.DirectMessagePayload{
		SenderID:   senderID,
		ReceiverID: receiverID,
		Content:    content,
	})
}

// SendPublicChat broadcasts a chat line to the public room.
func (m *Manager) SendPublicChat(userID int64, content string) bool {
	return m.Send(proto.TypePublicChat, proto.PublicChatPayload{UserID: userID, Content: content})
}

// SendPublicChatJoin announces presence in the public room.
func (m *Manager) SendPublicChatJoin(userID int64) bool {
	return m.Send(proto.TypePublicChatJoin, proto.PublicChatJoinPayload{UserID: userID})
}

// run dials, performs the auth handshake, and reads frames until the
// connection dies. It belongs to session gen; once the manager moves on to a
// newer session, every effect of this goroutine is discarded.
func (m *Manager) run(ctx context.Context, gen uint64, userID int64, h Handlers) {
	dialCtx, cancel := context.WithTimeout(ctx, m.dialTimeout)
	conn, _, err := websocket.Dial(dialCtx, m.url, nil)
	cancel()
	if err != nil {
		if ctx.Err() != nil {
			// deliberate disconnect while connecting: no handshake happened,
			// nothing to do
			return
		}
		m.log.Error().Err(err).Str("url", m.url).Msg("dial failed")
		m.handleClose(gen, h, false)
		return
	}

	m.mu.Lock()
	if gen != m.gen {
		m.mu.Unlock()
		_ = conn.Close(websocket.StatusNormalClosure, "superseded")
		return
	}
	m.conn = conn
	m.state = StateConnected
	m.reconnectAttempts = 0
	m.mu.Unlock()

	m.log.Info().Str("url", m.url).Int64("user_id", userID).Msg("connected")

	// Handshake before anything else: the server will not deliver frames for
	// this session until it sees the auth frame.
	authCtx, cancelAuth := context.WithTimeout(ctx, defaultWriteTimeout)
	err = wsjson.Write(authCtx, conn, mustEnvelope(proto.TypeAuth, proto.AuthPayload{UserID: userID}))
	cancelAuth()
	if err != nil {
		m.log.Error().Err(err).Msg("auth handshake failed")
		_ = conn.Close(websocket.StatusProtocolError, "auth failed")
		m.handleClose(gen, h, false)
		return
	}

	if h.OnConnect != nil {
		h.OnConnect()
	}

	clean := m.readLoop(ctx, gen, conn, h)
	m.handleClose(gen, h, clean)
}

// readLoop consumes frames until the connection errors out. It reports
// whether the close was clean: normal closure (1000) or deliberate
// disconnect. Anything else, including 1001 from a restarting server, is
// unclean and feeds the reconnect path.
func (m *Manager) readLoop(ctx context.Context, gen uint64, conn *websocket.Conn, h Handlers) bool {
	for {
		_, data, err := conn.Read(ctx)
		if err != nil {
			if ctx.Err() != nil {
				return true
			}
			if websocket.CloseStatus(err) == websocket.StatusNormalClosure {
				m.log.Info().Msg("connection closed by server")
				return true
			}
			m.log.Warn().Err(err).Msg("connection lost")
			return false
		}

		frame, err := proto.DecodeFrame(data)
		if err != nil {
			// malformed frames are dropped, never fatal
			m.log.Warn().Err(err).Msg("dropping malformed frame")
			continue
		}

		if !m.currentGen(gen) {
			return true
		}
		h.dispatch(frame)
		m.notifySubscribers(frame.Envelope)
	}
}

// handleClose settles a dead session: it updates state, fires OnDisconnect,
// and schedules a reconnect when the close was unclean and the attempt budget
// allows. Effects are skipped entirely when a newer session exists.
func (m *Manager) handleClose(gen uint64, h Handlers, clean bool) {
	m.mu.Lock()
	if gen != m.gen {
		m.mu.Unlock()
		return
	}
	m.conn = nil
	m.state = StateDisconnected

	if !clean && m.reconnectAttempts < m.maxReconnectAttempts {
		m.reconnectAttempts++
		m.state = StateReconnecting

		userID := m.userID
		handlers := m.handlers
		m.log.Info().
			Int("attempt", m.reconnectAttempts).
			Int("max", m.maxReconnectAttempts).
			Dur("delay", m.reconnectDelay).
			Msg("scheduling reconnect")

		m.reconnectTimer = time.AfterFunc(m.reconnectDelay, func() {
			m.mu.Lock()
			if gen != m.gen || m.reconnectTimer == nil {
				m.mu.Unlock()
				return
			}
			m.reconnectTimer = nil
			m.mu.Unlock()
			m.Connect(userID, handlers)
		})
	} else if !clean {
		m.log.Warn().Int("attempts", m.reconnectAttempts).Msg("reconnect attempts exhausted")
	}
	m.mu.Unlock()

	if h.OnDisconnect != nil {
		h.OnDisconnect()
	}
}

func (m *Manager) currentGen(gen uint64) bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return gen == m.gen
}

func mustEnvelope(msgType string, payload any) proto.Envelope {
	env, err := proto.NewEnvelope(msgType, payload)
	if err != nil {
		panic(err)
	}
	return env
}
