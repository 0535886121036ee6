// internal/session/channel.go
//
// The session channel is the single duplex link between this client and the
// authoritative court server. Exactly one channel exists per authenticated
// session; callers must Close the old channel before opening a new one
// (e.g. on logout). There is no automatic reconnect: a lost connection is
// surfaced once through OnClose and recovery means re-authenticating and
// opening a fresh channel.
package session

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/url"
	"strings"
	"sync"
	"time"

	"github.com/coder/websocket"
	"github.com/sirupsen/logrus"
	"golang.org/x/time/rate"

	"github.com/nvelasco/karmacourt/internal/protocol"
)

// ErrConnectionLost is delivered to OnClose when the transport fails
// underneath an open channel.
var ErrConnectionLost = errors.New("session: connection lost")

const (
	dialTimeout  = 10 * time.Second
	writeTimeout = 3 * time.Second

	// Outbound flood protection. The server enforces its own per-action
	// cooldowns; this only keeps a misbehaving caller from saturating the
	// socket.
	defaultCommandRate  = rate.Limit(8)
	defaultCommandBurst = 16
)

// Config describes one channel.
type Config struct {
	// BaseURL is the http(s) origin of the court backend; it is rewritten
	// to ws(s) for the dial.
	BaseURL      string
	UserID       string
	InstanceID   string
	ChannelID    string
	SessionToken string

	// CommandRate/CommandBurst override the outbound limiter. Leave both
	// zero for the defaults.
	CommandRate  rate.Limit
	CommandBurst int

	// OnEvent receives every decoded inbound event, in arrival order, on
	// the channel's read goroutine. Malformed messages are dropped and
	// logged before this is called.
	OnEvent func(protocol.Event)

	// OnClose fires exactly once when the channel stops: nil after a clean
	// Close or server goodbye, ErrConnectionLost on transport failure.
	OnClose func(error)
}

// Channel is an open session channel.
type Channel struct {
	conn    *websocket.Conn
	log     *logrus.Logger
	limiter *rate.Limiter
	onEvent func(protocol.Event)
	onClose func(error)

	ctx    context.Context
	cancel context.CancelFunc
	once   sync.Once
}

// Open dials the court server and starts the inbound read loop.
func Open(ctx context.Context, cfg Config, logger *logrus.Logger) (*Channel, error) {
	target, err := wsURL(cfg)
	if err != nil {
		return nil, err
	}

	dialCtx, cancelDial := context.WithTimeout(ctx, dialTimeout)
	defer cancelDial()

	conn, _, err := websocket.Dial(dialCtx, target, nil)
	if err != nil {
		return nil, fmt.Errorf("session: dial %s: %w", target, err)
	}

	limit, burst := cfg.CommandRate, cfg.CommandBurst
	if burst == 0 {
		limit, burst = defaultCommandRate, defaultCommandBurst
	}

	chCtx, cancel := context.WithCancel(ctx)
	c := &Channel{
		conn:    conn,
		log:     logger,
		limiter: rate.NewLimiter(limit, burst),
		onEvent: cfg.OnEvent,
		onClose: cfg.OnClose,
		ctx:     chCtx,
		cancel:  cancel,
	}

	logger.WithFields(logrus.Fields{
		"user_id":  cfg.UserID,
		"instance": cfg.InstanceID,
	}).Info("session: channel open")

	go c.readLoop()
	return c, nil
}

// Send dispatches a command fire-and-forget. Failures are logged, never
// returned; the next snapshot or the next user action is the recovery path.
func (c *Channel) Send(cmd protocol.Command) {
	if !c.limiter.Allow() {
		c.log.Warnf("session: dropping %q command, outbound rate limit exceeded", cmd.Type)
		return
	}

	payload, err := json.Marshal(cmd)
	if err != nil {
		c.log.Errorf("session: marshal %q command: %v", cmd.Type, err)
		return
	}

	ctx, cancel := context.WithTimeout(c.ctx, writeTimeout)
	defer cancel()
	if err := c.conn.Write(ctx, websocket.MessageText, payload); err != nil {
		c.log.Warnf("session: write %q command failed: %v", cmd.Type, err)
	}
}

// Close shuts the channel down. Idempotent; OnClose fires with nil.
func (c *Channel) Close() {
	c.finish(nil)
}

func (c *Channel) finish(err error) {
	c.once.Do(func() {
		c.cancel()
		_ = c.conn.Close(websocket.StatusNormalClosure, "bye")
		if c.onClose != nil {
			c.onClose(err)
		}
	})
}

func (c *Channel) readLoop() {
	for {
		_, data, err := c.conn.Read(c.ctx)
		if err != nil {
			if c.ctx.Err() != nil {
				c.finish(nil)
				return
			}
			switch websocket.CloseStatus(err) {
			case websocket.StatusNormalClosure, websocket.StatusGoingAway:
				c.log.Info("session: channel closed by server")
				c.finish(nil)
			default:
				c.log.Warnf("session: read failed: %v", err)
				c.finish(ErrConnectionLost)
			}
			return
		}

		ev, err := protocol.DecodeEvent(data)
		if err != nil {
			// Per-message failures are isolated; the channel stays up.
			c.log.Warnf("session: dropping inbound message: %v", err)
			continue
		}
		if c.onEvent != nil {
			c.onEvent(ev)
		}
	}
}

// wsURL rewrites the backend origin to its websocket endpoint and attaches
// the session identifiers the server keys the courtroom on.
func wsURL(cfg Config) (string, error) {
	base := strings.TrimSuffix(cfg.BaseURL, "/")
	switch {
	case strings.HasPrefix(base, "https://"):
		base = "wss://" + strings.TrimPrefix(base, "https://")
	case strings.HasPrefix(base, "http://"):
		base = "ws://" + strings.TrimPrefix(base, "http://")
	case strings.HasPrefix(base, "ws://"), strings.HasPrefix(base, "wss://"):
		// already a websocket origin
	default:
		return "", fmt.Errorf("session: unsupported base URL %q", cfg.BaseURL)
	}

	q := url.Values{}
	q.Set("user_id", cfg.UserID)
	if cfg.InstanceID != "" {
		q.Set("instance_id", cfg.InstanceID)
	}
	if cfg.ChannelID != "" {
		q.Set("channel_id", cfg.ChannelID)
	}
	if cfg.SessionToken != "" {
		q.Set("token", cfg.SessionToken)
	}
	return base + "/ws?" + q.Encode(), nil
}
