// Package visa provides message-based transports for SCPI instruments
// addressed by VISA-style resource strings. Two transports are supported:
// raw TCP sockets (TCPIP::host::port::SOCKET) and serial ports
// (ASRL::/dev/ttyUSB0::INSTR).
package visa

import (
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"
)

var (
	ErrNotConnected    = errors.New("transport not connected")
	ErrInvalidResource = errors.New("invalid resource string")
)

// Transport is the message-based connection to one instrument. Write sends a
// command without expecting a reply; Query sends a command and reads one
// newline-terminated reply within the configured timeout.
//
// A Transport is not safe for concurrent use; callers serialize access around
// whole command sequences.
type Transport interface {
	Connect() error
	Close() error
	Connected() bool
	Write(cmd string) error
	Query(cmd string) (string, error)
	Resource() string
}

// Options tunes transport behaviour. Zero values take defaults.
type Options struct {
	Timeout  time.Duration // per-operation timeout, default 2s
	BaudRate int           // serial only, default 9600
	DataBits int           // serial only, default 8
	StopBits int           // serial only, default 1
	Parity   string        // serial only, default "N"
}

func (o *Options) timeout() time.Duration {
	if o == nil || o.Timeout <= 0 {
		return 2 * time.Second
	}
	return o.Timeout
}

// Open builds the transport matching the resource string. It does not
// connect; call Connect on the returned transport.
func Open(resource string, opts *Options) (Transport, error) {
	parts := strings.Split(strings.TrimSpace(resource), "::")
	if len(parts) < 2 {
		return nil, fmt.Errorf("%q: %w", resource, ErrInvalidResource)
	}
	iface := strings.ToUpper(parts[0])
	switch {
	case strings.HasPrefix(iface, "TCPIP"):
		if len(parts) < 3 {
			return nil, fmt.Errorf("%q: missing port: %w", resource, ErrInvalidResource)
		}
		port, err := strconv.Atoi(parts[2])
		if err != nil {
			return nil, fmt.Errorf("%q: port %q: %w", resource, parts[2], ErrInvalidResource)
		}
		return newTCPTransport(resource, parts[1], port, opts), nil
	case strings.HasPrefix(iface, "ASRL"):
		return newSerialTransport(resource, parts[1], opts), nil
	default:
		return nil, fmt.Errorf("%q: unsupported interface %q: %w", resource, parts[0], ErrInvalidResource)
	}
}
