package rtmp

import (
	"github.com/chunkwire/rtmp/amf/amf0"
	"github.com/pkg/errors"
)

// Commands sent on the NetConnection (message stream 0). Every other command name is
// decoded as a NetStreamCommand.
var connectionCommands = map[string]bool{
	"connect":      true,
	"call":         true,
	"close":        true,
	"createStream": true,
}

// IsConnectionCommand reports whether name is decoded as a NetConnectionCommand.
func IsConnectionCommand(name string) bool {
	return connectionCommands[name]
}

// NetConnectionCommand is a command with at most one value after the command object,
// such as connect or createStream.
type NetConnectionCommand struct {
	envelope
	CommandName   string
	TransactionID float64
	// Properties is the command object: nil (AMF null) or an amf0.Object.
	Properties  amf0.Value
	Optional    amf0.Value
	HasOptional bool
}

func NewNetConnectionCommand(name string, transactionID float64, properties amf0.Value) *NetConnectionCommand {
	return &NetConnectionCommand{
		envelope:      newEnvelope(CommandChannel, 0),
		CommandName:   name,
		TransactionID: transactionID,
		Properties:    properties,
	}
}

// WithOptional sets the value sent after the command object.
func (m *NetConnectionCommand) WithOptional(v amf0.Value) *NetConnectionCommand {
	m.Optional = v
	m.HasOptional = true
	return m
}

// Object returns the command object, or nil if the peer sent null.
func (m *NetConnectionCommand) Object() amf0.Object {
	o, _ := m.Properties.(amf0.Object)
	return o
}

func (m *NetConnectionCommand) Type() MessageType { return TypeCommandAMF0 }

func (m *NetConnectionCommand) MarshalRTMPMessage() ([]byte, error) {
	values := []amf0.Value{m.CommandName, m.TransactionID, m.Properties}
	if m.HasOptional {
		values = append(values, m.Optional)
	}
	return amf0.EncodeAll(values...)
}

func (m *NetConnectionCommand) UnmarshalRTMPMessage(payload []byte) error {
	d := amf0.NewDecoder(payload)
	name, txn, props, err := decodeCommandPrefix(d)
	if err != nil {
		return err
	}
	m.CommandName, m.TransactionID, m.Properties = name, txn, props
	m.Optional, m.HasOptional = nil, false
	// Values past the first optional one are ignored.
	if d.More() {
		if m.Optional, err = d.Decode(); err != nil {
			return errors.Wrapf(err, "%s: decoding optional value", name)
		}
		m.HasOptional = true
	}
	return nil
}

// NetStreamCommand is a command with any number of values after the command object,
// such as publish, play or onStatus.
type NetStreamCommand struct {
	envelope
	CommandName   string
	TransactionID float64
	Properties    amf0.Value
	Arguments     []amf0.Value
}

// NewNetStreamCommand creates a command on message stream streamID.
func NewNetStreamCommand(streamID uint32, name string, transactionID float64, properties amf0.Value, args ...amf0.Value) *NetStreamCommand {
	return &NetStreamCommand{
		envelope:      newEnvelope(CommandChannel, streamID),
		CommandName:   name,
		TransactionID: transactionID,
		Properties:    properties,
		Arguments:     args,
	}
}

// NewOnStatus creates an onStatus command for the stream with the given level, code and description.
func NewOnStatus(streamID uint32, level, code, description string) *NetStreamCommand {
	info := amf0.Object{
		{Key: "level", Value: level},
		{Key: "code", Value: code},
		{Key: "description", Value: description},
	}
	return NewNetStreamCommand(streamID, "onStatus", 0, nil, info)
}

// StringArgument returns the i-th argument if it is a string.
func (m *NetStreamCommand) StringArgument(i int) (string, bool) {
	if i < 0 || i >= len(m.Arguments) {
		return "", false
	}
	s, ok := m.Arguments[i].(string)
	return s, ok
}

func (m *NetStreamCommand) Type() MessageType { return TypeCommandAMF0 }

func (m *NetStreamCommand) MarshalRTMPMessage() ([]byte, error) {
	values := make([]amf0.Value, 0, 3+len(m.Arguments))
	values = append(values, m.CommandName, m.TransactionID, m.Properties)
	values = append(values, m.Arguments...)
	return amf0.EncodeAll(values...)
}

func (m *NetStreamCommand) UnmarshalRTMPMessage(payload []byte) error {
	d := amf0.NewDecoder(payload)
	name, txn, props, err := decodeCommandPrefix(d)
	if err != nil {
		return err
	}
	m.CommandName, m.TransactionID, m.Properties = name, txn, props
	m.Arguments = nil
	for d.More() {
		v, err := d.Decode()
		if err != nil {
			return errors.Wrapf(err, "%s: decoding argument %d", name, len(m.Arguments))
		}
		m.Arguments = append(m.Arguments, v)
	}
	return nil
}

// decodeCommandPrefix reads the command name, transaction id and command object every command starts with.
func decodeCommandPrefix(d *amf0.Decoder) (string, float64, amf0.Value, error) {
	name, err := d.DecodeString()
	if err != nil {
		return "", 0, nil, errors.Wrap(ErrUnknownCommandShape, err.Error())
	}
	v, err := d.Decode()
	if err != nil {
		return "", 0, nil, errors.Wrapf(ErrUnknownCommandShape, "%s: transaction id: %v", name, err)
	}
	txn, ok := v.(float64)
	if !ok {
		return "", 0, nil, errors.Wrapf(ErrUnknownCommandShape, "%s: transaction id is %T", name, v)
	}
	props, err := d.Decode()
	if err != nil {
		return "", 0, nil, errors.Wrapf(ErrUnknownCommandShape, "%s: command object: %v", name, err)
	}
	switch props.(type) {
	case nil, amf0.Object, amf0.ECMAArray, amf0.Undefined:
	default:
		return "", 0, nil, errors.Wrapf(ErrUnknownCommandShape, "%s: command object is %T", name, props)
	}
	return name, txn, props, nil
}

// commandName returns the name a command payload starts with.
func commandName(payload []byte) (string, error) {
	name, err := amf0.NewDecoder(payload).DecodeString()
	if err != nil {
		return "", errors.Wrap(ErrUnknownCommandShape, err.Error())
	}
	return name, nil
}
