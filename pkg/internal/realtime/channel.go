package realtime

import (
	"fmt"
	"math/rand"
	"sync"
	"time"

	"github.com/benbjohnson/clock"
	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
	"github.com/rs/zerolog/log"

	"github.com/seralia/feedsync/pkg/internal/events"
	"github.com/seralia/feedsync/pkg/internal/models"
)

var validate = validator.New()

// Options tunes the simulated connection. Zero values fall back to the
// defaults below.
type Options struct {
	ConnectDelay      time.Duration
	SendDelay         time.Duration
	HeartbeatInterval time.Duration
	MessageInterval   time.Duration
	Rand              *rand.Rand
}

const (
	defaultConnectDelay      = 1 * time.Second
	defaultSendDelay         = 250 * time.Millisecond
	defaultHeartbeatInterval = 30 * time.Second
	defaultMessageInterval   = 5 * time.Second
)

func (o Options) withDefaults(clk clock.Clock) Options {
	if o.ConnectDelay <= 0 {
		o.ConnectDelay = defaultConnectDelay
	}
	if o.SendDelay <= 0 {
		o.SendDelay = defaultSendDelay
	}
	if o.HeartbeatInterval <= 0 {
		o.HeartbeatInterval = defaultHeartbeatInterval
	}
	if o.MessageInterval <= 0 {
		o.MessageInterval = defaultMessageInterval
	}
	if o.Rand == nil {
		o.Rand = rand.New(rand.NewSource(clk.Now().UnixNano()))
	}
	return o
}

// Channel simulates a persistent push connection: connect delay, heartbeat,
// synthesized inbound traffic and an offline outbox for outbound messages.
// The simulator never fails a transport operation; a real transport slotted
// in behind the same surface must map its failures to the disconnected state
// and keep the at-least-once guarantee on the outbox.
type Channel struct {
	Status  events.Stream[models.NetworkState]
	Inbound events.Stream[models.RealTimeMessage]
	Sent    events.Stream[models.RealTimeMessage]

	mu     sync.Mutex
	clk    clock.Clock
	opts   Options
	outbox *Outbox

	status models.NetworkState
	epoch  int

	connectTimer   *clock.Timer
	heartbeatTimer *clock.Timer
	messageTimer   *clock.Timer
	sendTimer      *clock.Timer

	outbound    []models.RealTimeMessage
	dispatching bool

	lastHeartbeatAt time.Time
}

func NewChannel(clk clock.Clock, outbox *Outbox, opts Options) *Channel {
	return &Channel{
		clk:    clk,
		opts:   opts.withDefaults(clk),
		outbox: outbox,
		status: models.NetworkStateDisconnected,
	}
}

func (c *Channel) CurrentStatus() models.NetworkState {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.status
}

// PendingOutbox reports how many messages wait in the offline outbox.
func (c *Channel) PendingOutbox() int {
	return c.outbox.Len()
}

// LastHeartbeatAt reports when the connection last signalled liveness.
func (c *Channel) LastHeartbeatAt() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.lastHeartbeatAt
}

// Connect moves the channel to connecting and, after the simulated dial
// delay, to connected. Calling it while not disconnected is a no-op.
func (c *Channel) Connect() {
	c.mu.Lock()
	if c.status != models.NetworkStateDisconnected {
		c.mu.Unlock()
		return
	}
	c.status = models.NetworkStateConnecting
	epoch := c.epoch
	c.mu.Unlock()

	// The connecting event must be out before the dial timer exists; with a
	// near-zero delay the timer would otherwise publish connected first.
	c.Status.Publish(models.NetworkStateConnecting)

	c.mu.Lock()
	if c.epoch != epoch || c.status != models.NetworkStateConnecting {
		c.mu.Unlock()
		return
	}
	c.connectTimer = c.clk.AfterFunc(c.opts.ConnectDelay, func() {
		c.finishConnect(epoch)
	})
	c.mu.Unlock()
}

func (c *Channel) finishConnect(epoch int) {
	c.mu.Lock()
	if c.epoch != epoch || c.status != models.NetworkStateConnecting {
		c.mu.Unlock()
		return
	}
	c.status = models.NetworkStateConnected
	c.lastHeartbeatAt = c.clk.Now()
	c.scheduleHeartbeat(epoch)
	c.scheduleMessage(epoch)
	c.mu.Unlock()

	log.Debug().Msg("Real-time channel established.")
	c.Status.Publish(models.NetworkStateConnected)
}

// Disconnect stops both periodic timers and notifies subscribers. Pending
// outbox messages stay in durable storage untouched.
func (c *Channel) Disconnect() {
	c.mu.Lock()
	if c.status == models.NetworkStateDisconnected {
		c.mu.Unlock()
		return
	}
	c.epoch++
	c.status = models.NetworkStateDisconnected
	for _, timer := range []*clock.Timer{c.connectTimer, c.heartbeatTimer, c.messageTimer, c.sendTimer} {
		if timer != nil {
			timer.Stop()
		}
	}
	c.connectTimer, c.heartbeatTimer, c.messageTimer, c.sendTimer = nil, nil, nil, nil
	// Accepted but undelivered messages fall back to the outbox so they are
	// retried on the next connection.
	backlog := c.outbound
	c.outbound = nil
	c.dispatching = false
	c.mu.Unlock()

	for _, msg := range backlog {
		c.outbox.Append(msg)
	}

	log.Debug().Msg("Real-time channel closed.")
	c.Status.Publish(models.NetworkStateDisconnected)
}

// Send delivers the message after a short simulated delay when connected;
// otherwise it lands in the durable offline outbox instead of being dropped.
func (c *Channel) Send(msg models.RealTimeMessage) error {
	if err := validate.Struct(msg); err != nil {
		return fmt.Errorf("invalid real-time message: %v", err)
	}

	c.mu.Lock()
	if c.status != models.NetworkStateConnected {
		c.mu.Unlock()
		c.outbox.Append(msg)
		return nil
	}
	c.outbound = append(c.outbound, msg)
	if !c.dispatching {
		c.dispatching = true
		c.scheduleSend(c.epoch)
	}
	c.mu.Unlock()
	return nil
}

// scheduleSend delivers outbound messages one at a time so the sent order
// always matches the order Send accepted them.
func (c *Channel) scheduleSend(epoch int) {
	c.sendTimer = c.clk.AfterFunc(c.opts.SendDelay, func() {
		c.mu.Lock()
		if c.epoch != epoch || len(c.outbound) == 0 {
			c.dispatching = false
			c.mu.Unlock()
			return
		}
		msg := c.outbound[0]
		c.outbound = c.outbound[1:]
		if len(c.outbound) > 0 {
			c.scheduleSend(epoch)
		} else {
			c.dispatching = false
		}
		c.mu.Unlock()

		c.Sent.Publish(msg)
	})
}

// SyncOfflineMessages drains the offline outbox in insertion order and
// re-attempts Send for each message. The coordinator calls this on every
// transition into connected so nothing queued while offline is lost.
func (c *Channel) SyncOfflineMessages() error {
	c.mu.Lock()
	if c.status != models.NetworkStateConnected {
		c.mu.Unlock()
		return fmt.Errorf("unable to sync offline messages: channel is not connected")
	}
	c.mu.Unlock()

	backlog := c.outbox.Drain()
	for _, msg := range backlog {
		if err := c.Send(msg); err != nil {
			log.Warn().Err(err).Str("message", msg.ID).Msg("Unable to resend one offline message...")
		}
	}
	if len(backlog) > 0 {
		log.Info().Int("count", len(backlog)).Msg("Offline outbox drained.")
	}
	return nil
}

func (c *Channel) scheduleHeartbeat(epoch int) {
	c.heartbeatTimer = c.clk.AfterFunc(c.opts.HeartbeatInterval, func() {
		c.mu.Lock()
		if c.epoch != epoch || c.status != models.NetworkStateConnected {
			c.mu.Unlock()
			return
		}
		// Heartbeats only bump the liveness mark, they never reach subscribers.
		c.lastHeartbeatAt = c.clk.Now()
		c.scheduleHeartbeat(epoch)
		c.mu.Unlock()
	})
}

func (c *Channel) scheduleMessage(epoch int) {
	c.messageTimer = c.clk.AfterFunc(c.opts.MessageInterval, func() {
		c.mu.Lock()
		if c.epoch != epoch || c.status != models.NetworkStateConnected {
			c.mu.Unlock()
			return
		}
		msg := c.synthesizeMessage()
		c.scheduleMessage(epoch)
		c.mu.Unlock()

		c.Inbound.Publish(msg)
	})
}

var simulatedKinds = []models.RealTimeMessageKind{
	models.MessageKindNewPost,
	models.MessageKindLikeUpdate,
	models.MessageKindCommentUpdate,
}

func (c *Channel) synthesizeMessage() models.RealTimeMessage {
	kind := simulatedKinds[c.opts.Rand.Intn(len(simulatedKinds))]
	return models.RealTimeMessage{
		ID:        uuid.NewString(),
		Kind:      kind,
		Payload:   map[string]string{"post_id": uuid.NewString()},
		CreatedAt: c.clk.Now(),
	}
}
