// Package protocol encodes finger counts into the line-based wire format understood by
// the actuator controller.
//
// A command is the ASCII decimal of Offset+count followed by a single line feed,
// e.g. "103\n" for three fingers. Nothing is read back.
package protocol

import (
	"bytes"
	"errors"
	"fmt"
	"strconv"
)

const (
	// Offset is added to the finger count to form a command.
	Offset = 100
	// MinCount and MaxCount bound the finger counts that can be encoded.
	MinCount = 0
	MaxCount = 5
	// Terminator ends every command on the wire.
	Terminator = '\n'
)

var (
	// ErrCountOutOfRange is returned when encoding a count outside [MinCount, MaxCount].
	ErrCountOutOfRange = errors.New("finger count out of range")
	// ErrInvalidCommand is returned when a line does not decode to a known command.
	ErrInvalidCommand = errors.New("invalid command")
)

// Command is a wire command in [Offset+MinCount, Offset+MaxCount].
type Command int

// Neutral turns every actuator off; it is sent when the hand is lost and at shutdown.
const Neutral Command = Offset + MinCount

// Encode returns the command for a finger count.
func Encode(count int) (Command, error) {
	if count < MinCount || count > MaxCount {
		return 0, fmt.Errorf("%w: %d", ErrCountOutOfRange, count)
	}
	return Command(Offset + count), nil
}

// Decode parses one line from the wire, with or without its terminator.
func Decode(line []byte) (Command, error) {
	trimmed := bytes.TrimSuffix(line, []byte{Terminator})
	trimmed = bytes.TrimSuffix(trimmed, []byte{'\r'})

	n, err := strconv.Atoi(string(trimmed))
	if err != nil {
		return 0, fmt.Errorf("%w: %q", ErrInvalidCommand, line)
	}

	c := Command(n)
	if !c.Valid() {
		return 0, fmt.Errorf("%w: %d", ErrInvalidCommand, n)
	}
	return c, nil
}

// Valid reports whether c is inside the command range.
func (c Command) Valid() bool {
	return c >= Offset+MinCount && c <= Offset+MaxCount
}

// Count returns the finger count carried by c.
func (c Command) Count() int {
	return int(c) - Offset
}

func (c Command) String() string {
	return strconv.Itoa(int(c))
}

// Frame returns the bytes written to the wire for c.
func (c Command) Frame() []byte {
	return append(strconv.AppendInt(nil, int64(c), 10), Terminator)
}
