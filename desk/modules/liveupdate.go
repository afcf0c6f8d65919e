package modules

import (
	"context"
	"math/rand"
	"strings"
	"sync/atomic"
	"time"

	"github.com/ThreeDotsLabs/watermill/pubsub/gochannel"
	"github.com/globalpulse/newsdesk/desk"
	Logger "github.com/globalpulse/newsdesk/utils/log"
	"github.com/gorilla/websocket"
)

// Push channel connection states.
const (
	ChannelClosed int32 = iota
	ChannelConnecting
	ChannelOpen
	ChannelBackoff
)

const heartbeatPayload = "ping"

type LiveUpdateConfig struct {
	// Name of the live update channel.
	Name string

	// Resolved push endpoint. Empty disables the channel entirely.
	Endpoint string

	// True when the backend origin is https. A secure origin refuses an
	// insecure ws endpoint instead of failing loudly.
	SecureOrigin bool

	// Cadence of the client heartbeat while the connection is open.
	HeartbeatInterval time.Duration

	// Reconnect backoff bounds. Delay doubles per consecutive failure from
	// InitialBackoff up to MaxBackoff, with +-50% jitter.
	InitialBackoff time.Duration
	MaxBackoff     time.Duration
}

// LiveUpdate maintains a best-effort persistent push connection and uses it
// purely as a refetch trigger: any inbound frame, regardless of content,
// publishes one refresh request. The channel never carries data the client
// trusts.
//
// State machine: Closed -> Connecting -> Open -> Backoff -> Connecting ...
// The connection guards are re-evaluated before every dial.
type LiveUpdate struct {
	Config LiveUpdateConfig

	EventBus *gochannel.GoChannel

	state int32
}

// Return a new instance of LiveUpdate.
func NewLiveUpdate(config LiveUpdateConfig, e *gochannel.GoChannel) *LiveUpdate {
	return &LiveUpdate{
		Config:   config,
		EventBus: e,
	}
}

// State returns the current connection state.
func (l *LiveUpdate) State() int32 {
	return atomic.LoadInt32(&l.state)
}

func (l *LiveUpdate) setState(state int32) {
	atomic.StoreInt32(&l.state, state)
}

// allowed re-evaluates the connection guards. A disallowed endpoint disables
// the channel silently, live refresh is a best-effort hint only.
func (l *LiveUpdate) allowed() bool {
	if l.Config.Endpoint == "" {
		return false
	}
	if l.Config.SecureOrigin && strings.HasPrefix(l.Config.Endpoint, "ws://") {
		return false
	}
	return true
}

func (l *LiveUpdate) RunModule(ctx context.Context) error {
	if l.Config.Endpoint == "" {
		Logger.Log.Infoln("push endpoint not configured, live updates disabled")
		return nil
	}

	delay := l.Config.InitialBackoff
	for {
		if ctx.Err() != nil {
			l.setState(ChannelClosed)
			return nil
		}
		if !l.allowed() {
			Logger.Log.Warnf("refusing insecure push endpoint %s from a secure origin", l.Config.Endpoint)
			l.setState(ChannelClosed)
			return nil
		}

		l.setState(ChannelConnecting)
		conn, _, err := websocket.DefaultDialer.DialContext(ctx, l.Config.Endpoint, nil)
		if err == nil {
			l.setState(ChannelOpen)
			delay = l.Config.InitialBackoff
			l.serve(ctx, conn)
			l.setState(ChannelClosed)
			if ctx.Err() != nil {
				return nil
			}
			// Abrupt close. Silent, no user-visible error.
			Logger.Log.Infoln("push channel closed, scheduling reconnect")
		} else {
			Logger.Log.Infof("push channel dial failed: %s", err)
		}

		l.setState(ChannelBackoff)
		if !sleepWithJitter(ctx, delay) {
			l.setState(ChannelClosed)
			return nil
		}
		delay *= 2
		if delay > l.Config.MaxBackoff {
			delay = l.Config.MaxBackoff
		}
	}
}

// serve pumps one open connection until it dies or the context is canceled.
// The heartbeat and the connection are torn down together: closing done
// stops the heartbeat in the same breath as the connection close, so a ping
// never fires on a closed connection.
func (l *LiveUpdate) serve(ctx context.Context, conn *websocket.Conn) {
	done := make(chan struct{})

	go func() {
		select {
		case <-ctx.Done():
			conn.Close()
		case <-done:
		}
	}()

	go func() {
		ticker := time.NewTicker(l.Config.HeartbeatInterval)
		defer ticker.Stop()
		for {
			select {
			case <-ticker.C:
				if err := conn.WriteMessage(websocket.TextMessage, []byte(heartbeatPayload)); err != nil {
					return
				}
			case <-done:
				return
			}
		}
	}()

	for {
		if _, _, err := conn.ReadMessage(); err != nil {
			break
		}
		// Payload is deliberately ignored, every inbound frame is an opaque
		// hint to refetch with the current filter.
		if err := desk.PublishEvent(l.EventBus, desk.TopicRefreshRequest, desk.RefreshRequest{Trigger: desk.TriggerPush}); err != nil {
			Logger.Log.Errorf("fail to publish push refresh: %s", err)
		}
	}

	close(done)
	conn.Close()
}

// sleepWithJitter blocks for delay +-50%, returning false when the context
// was canceled first.
func sleepWithJitter(ctx context.Context, delay time.Duration) bool {
	if delay <= 0 {
		delay = time.Second
	}
	jittered := delay/2 + time.Duration(rand.Int63n(int64(delay)))
	timer := time.NewTimer(jittered)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return false
	case <-timer.C:
		return true
	}
}

func (l *LiveUpdate) Name() string {
	return l.Config.Name
}

func (l *LiveUpdate) Shutdown() {
	Logger.Log.Infoln("Module ", l.Config.Name, " gracefully shutdown")
}
