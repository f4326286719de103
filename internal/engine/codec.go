package engine

import (
	"errors"
	"fmt"

	"google.golang.org/protobuf/encoding/protowire"
)

// Command is the in-memory form of a LogCommand: either a Set(Key, Value)
// or a Remove(Key). Value is unused (and not encoded) when Set is false.
type Command struct {
	Set   bool
	Key   string
	Value string
}

// NewSetCommand builds the command persisted by a set(key, value) call.
func NewSetCommand(key, value string) Command {
	return Command{Set: true, Key: key, Value: value}
}

// NewRemoveCommand builds the command persisted by a remove(key) call.
func NewRemoveCommand(key string) Command {
	return Command{Key: key}
}

const (
	fieldKind  protowire.Number = 1
	fieldKey   protowire.Number = 2
	fieldValue protowire.Number = 3

	kindSet    uint64 = 0
	kindRemove uint64 = 1
)

// ErrEndOfSegment is returned by decodeCommand when there are no more
// bytes to decode; it is distinct from a decode failure on a non-empty,
// truncated or corrupt tail (see errMalformedCommand below), matching the
// codec's requirement to tell clean end-of-stream apart from bad data.
var ErrEndOfSegment = errors.New("engine: end of segment")

// encodeCommand renders cmd as a self-delimiting sequence of protobuf
// wire-format fields: a varint kind tag, the key as a length-delimited
// field, and (Set only) the value as a length-delimited field. There is
// no generated message type backing this — protowire's Append/Consume
// primitives are used directly, since the fields involved (one varint,
// up to two byte strings) don't warrant generating and vendoring a .proto.
func encodeCommand(cmd Command) []byte {
	kind := kindSet
	if !cmd.Set {
		kind = kindRemove
	}

	var buf []byte
	buf = protowire.AppendTag(buf, fieldKind, protowire.VarintType)
	buf = protowire.AppendVarint(buf, kind)
	buf = protowire.AppendTag(buf, fieldKey, protowire.BytesType)
	buf = protowire.AppendString(buf, cmd.Key)
	if cmd.Set {
		buf = protowire.AppendTag(buf, fieldValue, protowire.BytesType)
		buf = protowire.AppendString(buf, cmd.Value)
	}
	return buf
}

// decodeCommand decodes exactly one Command from the front of b, and
// returns the number of bytes it consumed. A zero-length b is reported as
// ErrEndOfSegment (there was nothing to decode, not a failure); any other
// decode failure is a distinct, non-nil error wrapping the field that
// didn't parse, so callers can tell a torn/corrupt tail from a clean stop.
func decodeCommand(b []byte) (Command, int, error) {
	var cmd Command
	var consumed int

	if len(b) == 0 {
		return cmd, 0, ErrEndOfSegment
	}

	num, typ, n := protowire.ConsumeTag(b)
	if n < 0 {
		return cmd, 0, malformed("kind tag", n)
	}
	if num != fieldKind || typ != protowire.VarintType {
		return cmd, 0, fmt.Errorf("engine: unexpected field %d (wire type %d) where command kind was expected", num, typ)
	}
	b, consumed = b[n:], consumed+n

	kind, n := protowire.ConsumeVarint(b)
	if n < 0 {
		return cmd, 0, malformed("kind value", n)
	}
	b, consumed = b[n:], consumed+n

	num, typ, n = protowire.ConsumeTag(b)
	if n < 0 {
		return cmd, 0, malformed("key tag", n)
	}
	if num != fieldKey || typ != protowire.BytesType {
		return cmd, 0, fmt.Errorf("engine: unexpected field %d (wire type %d) where key was expected", num, typ)
	}
	b, consumed = b[n:], consumed+n

	key, n := protowire.ConsumeString(b)
	if n < 0 {
		return cmd, 0, malformed("key", n)
	}
	b, consumed = b[n:], consumed+n
	cmd.Key = key

	if kind == kindRemove {
		return cmd, consumed, nil
	}

	cmd.Set = true
	num, typ, n = protowire.ConsumeTag(b)
	if n < 0 {
		return cmd, 0, malformed("value tag", n)
	}
	if num != fieldValue || typ != protowire.BytesType {
		return cmd, 0, fmt.Errorf("engine: unexpected field %d (wire type %d) where value was expected", num, typ)
	}
	b, consumed = b[n:], consumed+n

	value, n := protowire.ConsumeString(b)
	if n < 0 {
		return cmd, 0, malformed("value", n)
	}
	consumed += n
	cmd.Value = value

	return cmd, consumed, nil
}

func malformed(field string, n int) error {
	return fmt.Errorf("engine: malformed command %s: %w", field, protowire.ParseError(n))
}
