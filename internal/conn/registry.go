package conn

import (
	"context"
	"sync"

	"github.com/feedwell/feeder-core/internal/feeder"
)

// Logger is the minimal logging interface this package needs. The
// application injects its structured logger; the default discards
// everything so the registry works standalone in tests.
type Logger interface {
	Debug(msg string, args ...any)
	Info(msg string, args ...any)
	Warn(msg string, args ...any)
	Error(msg string, args ...any)
}

type noopLogger struct{}

func (noopLogger) Debug(string, ...any) {}
func (noopLogger) Info(string, ...any)  {}
func (noopLogger) Warn(string, ...any)  {}
func (noopLogger) Error(string, ...any) {}

// ConfigProvider supplies the configuration snapshot pushed to a
// device when its control channel registers.
type ConfigProvider interface {
	Configuration(ctx context.Context, deviceID string) (feeder.Configuration, error)
}

// channel is one live socket plus its liveness flag. The heartbeat
// clears alive before pinging; any traffic from the device sets it
// again. A channel still clear at the next sweep is evicted.
type channel struct {
	sock  Socket
	alive bool
}

// Registry tracks the live channels of every connected device. All
// methods are safe for concurrent use; the registry performs no I/O of
// its own beyond the registration snapshot push, so no lock is ever
// held across a network write except that initial best-effort send.
type Registry struct {
	mu      sync.RWMutex
	devices map[string]map[Kind]*channel

	configs ConfigProvider
	logger  Logger
}

// NewRegistry creates an empty registry.
func NewRegistry() *Registry {
	return &Registry{
		devices: make(map[string]map[Kind]*channel),
		logger:  noopLogger{},
	}
}

// SetLogger injects the application logger.
func (r *Registry) SetLogger(l Logger) {
	if l != nil {
		r.logger = l
	}
}

// SetConfigProvider injects the source of configuration snapshots.
// Without one, control registrations skip the snapshot push.
func (r *Registry) SetConfigProvider(p ConfigProvider) {
	r.configs = p
}

// Register records a channel for a device. If the device already holds
// a channel of the same kind, the prior socket is closed and replaced;
// the newest registration always wins so a device reconnecting after a
// network blip is never locked out by its own stale socket.
//
// Registering a control channel pushes the current configuration
// snapshot to the device. The push is best effort: a failure is logged
// and the registration stands, since the device can also request its
// schedule explicitly.
func (r *Registry) Register(ctx context.Context, deviceID string, kind Kind, sock Socket) {
	r.mu.Lock()
	chans, ok := r.devices[deviceID]
	if !ok {
		chans = make(map[Kind]*channel)
		r.devices[deviceID] = chans
	}
	prior := chans[kind]
	chans[kind] = &channel{sock: sock, alive: true}
	r.mu.Unlock()

	if prior != nil {
		_ = prior.sock.Close()
		r.logger.Info("replaced existing channel", "device_id", deviceID, "kind", kind)
	} else {
		r.logger.Info("channel registered", "device_id", deviceID, "kind", kind)
	}

	if kind == KindControl && r.configs != nil {
		cfg, err := r.configs.Configuration(ctx, deviceID)
		if err != nil {
			r.logger.Warn("schedule snapshot lookup failed", "device_id", deviceID, "error", err)
			return
		}
		data, err := ScheduleCommand(cfg).Encode()
		if err != nil {
			r.logger.Error("schedule snapshot encode failed", "device_id", deviceID, "error", err)
			return
		}
		if err := sock.WriteMessage(data); err != nil {
			r.logger.Warn("schedule snapshot push failed", "device_id", deviceID, "error", err)
		}
	}
}

// Deregister removes a channel. The sock argument identifies which
// socket the caller believes it is removing: if the registered socket
// differs, the channel belongs to a newer registration and is left
// alone. Pass a nil sock to remove unconditionally.
func (r *Registry) Deregister(deviceID string, kind Kind, sock Socket) {
	r.mu.Lock()
	defer r.mu.Unlock()

	chans, ok := r.devices[deviceID]
	if !ok {
		return
	}
	ch, ok := chans[kind]
	if !ok {
		return
	}
	if sock != nil && ch.sock != sock {
		return
	}

	delete(chans, kind)
	if len(chans) == 0 {
		delete(r.devices, deviceID)
	}
	r.logger.Info("channel deregistered", "device_id", deviceID, "kind", kind)
}

// MarkAlive flags a channel as having shown signs of life since the
// last heartbeat sweep. Identity-checked like Deregister so traffic on
// a superseded socket cannot keep its replacement's slot alive.
func (r *Registry) MarkAlive(deviceID string, kind Kind, sock Socket) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if ch := r.lookupLocked(deviceID, kind); ch != nil && (sock == nil || ch.sock == sock) {
		ch.alive = true
	}
}

// markPending clears the liveness flag ahead of a heartbeat probe.
// Returns false when the channel is gone or the socket has been
// superseded, telling the sweep to skip it.
func (r *Registry) markPending(deviceID string, kind Kind, sock Socket) bool {
	r.mu.Lock()
	defer r.mu.Unlock()

	ch := r.lookupLocked(deviceID, kind)
	if ch == nil || ch.sock != sock {
		return false
	}
	ch.alive = false
	return true
}

func (r *Registry) lookupLocked(deviceID string, kind Kind) *channel {
	if chans, ok := r.devices[deviceID]; ok {
		return chans[kind]
	}
	return nil
}

// Lookup returns the socket for a device channel, or ErrChannelNotFound.
func (r *Registry) Lookup(deviceID string, kind Kind) (Socket, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	if ch := r.lookupLocked(deviceID, kind); ch != nil {
		return ch.sock, nil
	}
	return nil, ErrChannelNotFound
}

// IsOnline reports whether the device holds a live control channel.
func (r *Registry) IsOnline(deviceID string) bool {
	r.mu.RLock()
	defer r.mu.RUnlock()

	return r.lookupLocked(deviceID, KindControl) != nil
}

// probe is a point-in-time view of one channel used by the heartbeat
// sweep, taken so no lock is held while pinging.
type probe struct {
	deviceID string
	kind     Kind
	sock     Socket
	alive    bool
}

// snapshot returns every registered channel with its liveness flag.
func (r *Registry) snapshot() []probe {
	r.mu.RLock()
	defer r.mu.RUnlock()

	out := make([]probe, 0, len(r.devices))
	for deviceID, chans := range r.devices {
		for kind, ch := range chans {
			out = append(out, probe{deviceID: deviceID, kind: kind, sock: ch.sock, alive: ch.alive})
		}
	}
	return out
}

// DeviceCount returns the number of devices with at least one channel.
func (r *Registry) DeviceCount() int {
	r.mu.RLock()
	defer r.mu.RUnlock()

	return len(r.devices)
}

// ChannelCount returns the total number of live channels.
func (r *Registry) ChannelCount() int {
	r.mu.RLock()
	defer r.mu.RUnlock()

	n := 0
	for _, chans := range r.devices {
		n += len(chans)
	}
	return n
}
