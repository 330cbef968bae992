package conn

import (
	"encoding/json"
	"fmt"

	"github.com/feedwell/feeder-core/internal/feeder"
)

// CommandName identifies a command frame on the wire.
type CommandName string

// Server to device commands.
const (
	// CmdSchedule delivers the full configuration snapshot when a
	// control channel registers.
	CmdSchedule CommandName = "schedule"

	// CmdChangeSchedule delivers the configuration snapshot after a
	// server-side schedule mutation.
	CmdChangeSchedule CommandName = "change_schedule"
)

// Device to server commands.
const (
	CmdSetScheduleStatus CommandName = "set_schedule_status"
	CmdSetDepositStatus  CommandName = "set_deposit_status"
	CmdSetCatPresence    CommandName = "set_cat_presence"
	CmdNewDailyRecord    CommandName = "new_daily_record"
)

// frame is the wire envelope shared by both directions.
type frame struct {
	Command CommandName     `json:"command"`
	Data    json.RawMessage `json:"data,omitempty"`
}

// Command is a server to device message ready for encoding. Build one
// with the typed constructors so each command name is always paired
// with the payload shape the device expects.
type Command struct {
	name CommandName
	data any
}

// Name returns the wire name of the command.
func (c Command) Name() CommandName { return c.name }

// Encode renders the command as a JSON frame.
func (c Command) Encode() ([]byte, error) {
	var data json.RawMessage
	if c.data != nil {
		raw, err := json.Marshal(c.data)
		if err != nil {
			return nil, fmt.Errorf("encoding %s payload: %w", c.name, err)
		}
		data = raw
	}
	return json.Marshal(frame{Command: c.name, Data: data})
}

// ScheduleCommand builds the snapshot pushed when a control channel
// comes online.
func ScheduleCommand(cfg feeder.Configuration) Command {
	return Command{name: CmdSchedule, data: cfg}
}

// ChangeScheduleCommand builds the snapshot pushed after a schedule
// mutation.
func ChangeScheduleCommand(cfg feeder.Configuration) Command {
	return Command{name: CmdChangeSchedule, data: cfg}
}

// DeviceCommand is a decoded device to server message. Switch on the
// concrete type to handle each variant.
type DeviceCommand interface {
	deviceCommand()
}

// SetScheduleStatus reports a meal lifecycle transition for one
// schedule entry.
type SetScheduleStatus struct {
	ScheduleID       string   `json:"scheduleId"`
	Status           string   `json:"status"`
	CaloriesConsumed *float64 `json:"caloriesConsumed,omitempty"`
	SkipReason       string   `json:"skipReason,omitempty"`
}

// SetDepositStatus reports the current food hopper level.
type SetDepositStatus struct {
	Level float64 `json:"level"`
}

// SetCatPresence reports whether the feeder currently detects the pet.
type SetCatPresence struct {
	Present bool `json:"present"`
}

// NewDailyRecord asks the server to materialise today's record, sent
// by devices when their local clock crosses midnight.
type NewDailyRecord struct{}

func (SetScheduleStatus) deviceCommand() {}
func (SetDepositStatus) deviceCommand()  {}
func (SetCatPresence) deviceCommand()    {}
func (NewDailyRecord) deviceCommand()    {}

// DecodeDeviceCommand parses an inbound control frame into its typed
// variant. Returns ErrMalformedFrame for undecodable input and
// ErrUnknownCommand for names this server does not handle.
func DecodeDeviceCommand(data []byte) (DeviceCommand, error) {
	var f frame
	if err := json.Unmarshal(data, &f); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrMalformedFrame, err)
	}
	if f.Command == "" {
		return nil, fmt.Errorf("%w: missing command name", ErrMalformedFrame)
	}

	switch f.Command {
	case CmdSetScheduleStatus:
		var cmd SetScheduleStatus
		if err := unmarshalPayload(f.Data, &cmd); err != nil {
			return nil, err
		}
		return cmd, nil
	case CmdSetDepositStatus:
		var cmd SetDepositStatus
		if err := unmarshalPayload(f.Data, &cmd); err != nil {
			return nil, err
		}
		return cmd, nil
	case CmdSetCatPresence:
		var cmd SetCatPresence
		if err := unmarshalPayload(f.Data, &cmd); err != nil {
			return nil, err
		}
		return cmd, nil
	case CmdNewDailyRecord:
		return NewDailyRecord{}, nil
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnknownCommand, f.Command)
	}
}

func unmarshalPayload(raw json.RawMessage, dst any) error {
	if len(raw) == 0 {
		return fmt.Errorf("%w: missing payload", ErrMalformedFrame)
	}
	if err := json.Unmarshal(raw, dst); err != nil {
		return fmt.Errorf("%w: %v", ErrMalformedFrame, err)
	}
	return nil
}
