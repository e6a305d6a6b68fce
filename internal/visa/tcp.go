package visa

import (
	"bufio"
	"fmt"
	"net"
	"strings"
	"time"
)

// tcpTransport speaks SCPI over a raw TCP socket (the instrument's LAN
// "SOCKET" interface). Commands and replies are newline-terminated text.
type tcpTransport struct {
	resource string
	addr     string
	timeout  time.Duration

	conn net.Conn
	rd   *bufio.Reader
}

func newTCPTransport(resource, host string, port int, opts *Options) *tcpTransport {
	return &tcpTransport{
		resource: resource,
		addr:     net.JoinHostPort(host, fmt.Sprintf("%d", port)),
		timeout:  opts.timeout(),
	}
}

func (t *tcpTransport) Connect() error {
	if t.conn != nil {
		return nil
	}
	conn, err := net.DialTimeout("tcp", t.addr, t.timeout)
	if err != nil {
		return fmt.Errorf("dial %s: %w", t.addr, err)
	}
	t.conn = conn
	t.rd = bufio.NewReader(conn)
	return nil
}

func (t *tcpTransport) Close() error {
	if t.conn == nil {
		return nil
	}
	err := t.conn.Close()
	t.conn = nil
	t.rd = nil
	return err
}

func (t *tcpTransport) Connected() bool { return t.conn != nil }

func (t *tcpTransport) Resource() string { return t.resource }

func (t *tcpTransport) Write(cmd string) error {
	if t.conn == nil {
		return ErrNotConnected
	}
	if err := t.conn.SetWriteDeadline(time.Now().Add(t.timeout)); err != nil {
		return err
	}
	if _, err := t.conn.Write([]byte(cmd + "\n")); err != nil {
		return fmt.Errorf("write %q: %w", cmd, err)
	}
	return nil
}

func (t *tcpTransport) Query(cmd string) (string, error) {
	if err := t.Write(cmd); err != nil {
		return "", err
	}
	if err := t.conn.SetReadDeadline(time.Now().Add(t.timeout)); err != nil {
		return "", err
	}
	line, err := t.rd.ReadString('\n')
	if err != nil {
		return "", fmt.Errorf("query %q: %w", cmd, err)
	}
	return strings.TrimSpace(line), nil
}
