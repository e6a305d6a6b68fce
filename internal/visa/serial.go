package visa

import (
	"bufio"
	"fmt"
	"io"
	"strings"

	"github.com/goburrow/serial"
)

// serialTransport speaks SCPI over an RS-232 port. Line discipline matches
// the TCP transport; the read timeout is enforced by the serial driver.
type serialTransport struct {
	resource string
	device   string
	cfg      serial.Config

	port io.ReadWriteCloser
	rd   *bufio.Reader
}

func newSerialTransport(resource, device string, opts *Options) *serialTransport {
	cfg := serial.Config{
		Address:  device,
		BaudRate: 9600,
		DataBits: 8,
		StopBits: 1,
		Parity:   "N",
		Timeout:  opts.timeout(),
	}
	if opts != nil {
		if opts.BaudRate > 0 {
			cfg.BaudRate = opts.BaudRate
		}
		if opts.DataBits > 0 {
			cfg.DataBits = opts.DataBits
		}
		if opts.StopBits > 0 {
			cfg.StopBits = opts.StopBits
		}
		if p := strings.ToUpper(strings.TrimSpace(opts.Parity)); p != "" {
			cfg.Parity = p
		}
	}
	return &serialTransport{resource: resource, device: device, cfg: cfg}
}

func (t *serialTransport) Connect() error {
	if t.port != nil {
		return nil
	}
	port, err := serial.Open(&t.cfg)
	if err != nil {
		return fmt.Errorf("open serial %s: %w", t.device, err)
	}
	t.port = port
	t.rd = bufio.NewReader(port)
	return nil
}

func (t *serialTransport) Close() error {
	if t.port == nil {
		return nil
	}
	err := t.port.Close()
	t.port = nil
	t.rd = nil
	return err
}

func (t *serialTransport) Connected() bool { return t.port != nil }

func (t *serialTransport) Resource() string { return t.resource }

func (t *serialTransport) Write(cmd string) error {
	if t.port == nil {
		return ErrNotConnected
	}
	if _, err := t.port.Write([]byte(cmd + "\n")); err != nil {
		return fmt.Errorf("write %q: %w", cmd, err)
	}
	return nil
}

func (t *serialTransport) Query(cmd string) (string, error) {
	if err := t.Write(cmd); err != nil {
		return "", err
	}
	line, err := t.rd.ReadString('\n')
	if err != nil {
		return "", fmt.Errorf("query %q: %w", cmd, err)
	}
	return strings.TrimSpace(line), nil
}
