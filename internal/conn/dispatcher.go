package conn

// Dispatcher sends server commands to device control channels.
//
// Delivery is fire and forget: an offline device is a logged no-op,
// because every pushed command carries state the device can also fetch
// on its next control registration. Callers that need to distinguish
// offline from delivered use SendErr.
type Dispatcher struct {
	registry *Registry
	logger   Logger
}

// NewDispatcher creates a dispatcher over the registry.
func NewDispatcher(registry *Registry) *Dispatcher {
	return &Dispatcher{registry: registry, logger: noopLogger{}}
}

// SetLogger injects the application logger.
func (d *Dispatcher) SetLogger(l Logger) {
	if l != nil {
		d.logger = l
	}
}

// Send delivers a command to the device's control channel, silently
// dropping it when the device is offline.
func (d *Dispatcher) Send(deviceID string, cmd Command) {
	if err := d.SendErr(deviceID, cmd); err != nil {
		d.logger.Debug("command not delivered",
			"device_id", deviceID, "command", cmd.Name(), "error", err)
	}
}

// SendErr delivers a command and reports the outcome. Returns
// ErrDeviceOffline when no control channel is registered; write
// failures additionally evict the channel, since a broken pipe means
// the socket is already dead.
func (d *Dispatcher) SendErr(deviceID string, cmd Command) error {
	sock, err := d.registry.Lookup(deviceID, KindControl)
	if err != nil {
		return ErrDeviceOffline
	}

	data, err := cmd.Encode()
	if err != nil {
		return err
	}

	if err := sock.WriteMessage(data); err != nil {
		_ = sock.Close()
		d.registry.Deregister(deviceID, KindControl, sock)
		return err
	}

	d.logger.Debug("command delivered", "device_id", deviceID, "command", cmd.Name())
	return nil
}
