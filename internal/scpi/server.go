// Package scpi implements a minimal TCP emulator of the SDM4055A-SC
// multimeter with its CS1016 scanning card. It speaks the textual command
// subset the driver uses, which makes end-to-end testing and development
// possible without hardware.
package scpi

import (
	"bufio"
	"fmt"
	"net"
	"strconv"
	"strings"
	"sync"
	"time"
)

const defaultIDN = "Siglent Technologies,SDM4055A-SC,SDM4000000000,1.01.01.01"

type channelState struct {
	enabled   bool
	cardType  string
	cardRange string
	speed     string
}

// Server emulates the instrument over a line-oriented TCP socket.
type Server struct {
	listener  net.Listener
	wg        sync.WaitGroup
	quit      chan struct{}
	closeOnce sync.Once

	mu        sync.RWMutex
	idn       string
	channels  map[int]*channelState
	values    map[int]float64
	overloads map[int]string
	errQueue  []string
	scanOn    bool
	stepFunc  bool
	azOff     bool
	limitLow  int
	limitHigh int
	scanCount int
	scanUntil time.Time
	scanHold  time.Duration
}

// NewServer constructs an emulator with default per-channel values:
// 5 V on voltage channels, 0.1 A on current channels.
func NewServer() *Server {
	s := &Server{
		idn:       defaultIDN,
		channels:  make(map[int]*channelState),
		values:    make(map[int]float64),
		overloads: make(map[int]string),
		quit:      make(chan struct{}),
		scanHold:  50 * time.Millisecond,
	}
	for n := 1; n <= 16; n++ {
		if n <= 12 {
			s.values[n] = 5.0
		} else {
			s.values[n] = 0.1
		}
	}
	return s
}

// Listen starts accepting connections on the provided address.
func (s *Server) Listen(address string) error {
	l, err := net.Listen("tcp", address)
	if err != nil {
		return err
	}
	s.listener = l

	s.wg.Add(1)
	go s.acceptLoop()
	return nil
}

// Addr returns the bound listen address.
func (s *Server) Addr() string {
	if s.listener == nil {
		return ""
	}
	return s.listener.Addr().String()
}

func (s *Server) acceptLoop() {
	defer s.wg.Done()
	for {
		conn, err := s.listener.Accept()
		if err != nil {
			select {
			case <-s.quit:
				return
			default:
			}
			continue
		}

		s.wg.Add(1)
		go s.handleConnection(conn)
	}
}

func (s *Server) handleConnection(conn net.Conn) {
	defer s.wg.Done()
	defer conn.Close()

	rd := bufio.NewReader(conn)
	for {
		line, err := rd.ReadString('\n')
		if err != nil {
			return
		}
		line = strings.TrimSpace(line)
		if line == "" {
			continue
		}
		reply, hasReply := s.handleCommand(line)
		if !hasReply {
			continue
		}
		if _, err := conn.Write([]byte(reply + "\n")); err != nil {
			return
		}
	}
}

// SetChannelValue overrides the synthetic reading for a channel.
func (s *Server) SetChannelValue(channelNum int, value float64) {
	s.mu.Lock()
	s.values[channelNum] = value
	s.mu.Unlock()
}

// InjectOverload makes :ROUT:DATA? for the channel return the given raw
// diagnostic text instead of a numeric reading.
func (s *Server) InjectOverload(channelNum int, message string) {
	s.mu.Lock()
	s.overloads[channelNum] = message
	s.mu.Unlock()
}

// ClearOverload restores numeric replies for the channel.
func (s *Server) ClearOverload(channelNum int) {
	s.mu.Lock()
	delete(s.overloads, channelNum)
	s.mu.Unlock()
}

// SetScanHold sets how long :ROUT:START? keeps reporting an active scan.
func (s *Server) SetScanHold(d time.Duration) {
	s.mu.Lock()
	s.scanHold = d
	s.mu.Unlock()
}

// ChannelConfig returns the card configuration last written for a channel.
func (s *Server) ChannelConfig(channelNum int) (cardType, cardRange, speed string, ok bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	cs, ok := s.channels[channelNum]
	if !ok {
		return "", "", "", false
	}
	return cs.cardType, cs.cardRange, cs.speed, true
}

func (s *Server) pushError(msg string) {
	s.errQueue = append(s.errQueue, msg)
}

// Close stops the server and waits for all goroutines to exit.
func (s *Server) Close() {
	s.closeOnce.Do(func() {
		close(s.quit)
		if s.listener != nil {
			s.listener.Close()
		}
	})
	s.wg.Wait()
}

func (s *Server) handleCommand(line string) (string, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()

	// The colon prefix is optional on real firmware.
	if !strings.HasPrefix(line, ":") && !strings.HasPrefix(line, "*") {
		line = ":" + line
	}
	upper := strings.ToUpper(line)
	switch {
	case upper == "*IDN?":
		return s.idn, true

	case upper == ":ROUT:SCAN ON":
		s.scanOn = true
		return "", false
	case upper == ":ROUT:SCAN OFF":
		s.scanOn = false
		return "", false
	case upper == ":ROUT:FUNC STEP":
		s.stepFunc = true
		return "", false
	case upper == ":ROUT:DCV:AZ OFF":
		s.azOff = true
		return "", false

	case strings.HasPrefix(upper, ":ROUT:CHAN "):
		s.handleChan(strings.TrimSpace(line[len(":ROUT:CHAN "):]))
		return "", false

	case strings.HasPrefix(upper, ":ROUT:LIMI:HIGH "):
		if n, err := strconv.Atoi(strings.TrimSpace(line[len(":ROUT:LIMI:HIGH "):])); err == nil {
			s.limitHigh = n
		} else {
			s.pushError(`-104,"Data type error"`)
		}
		return "", false
	case strings.HasPrefix(upper, ":ROUT:LIMI:LOW "):
		if n, err := strconv.Atoi(strings.TrimSpace(line[len(":ROUT:LIMI:LOW "):])); err == nil {
			s.limitLow = n
		} else {
			s.pushError(`-104,"Data type error"`)
		}
		return "", false

	case strings.HasPrefix(upper, ":ROUT:COUN "):
		if n, err := strconv.Atoi(strings.TrimSpace(line[len(":ROUT:COUN "):])); err == nil {
			s.scanCount = n
		}
		return "", false

	case upper == ":ROUT:START ON":
		s.scanUntil = time.Now().Add(s.scanHold)
		return "", false
	case upper == ":ROUT:START OFF":
		s.scanUntil = time.Time{}
		return "", false
	case upper == ":ROUT:START?":
		if time.Now().Before(s.scanUntil) {
			return "1", true
		}
		return "0", true

	case strings.HasPrefix(upper, ":ROUT:DATA? "):
		n, err := strconv.Atoi(strings.TrimSpace(line[len(":ROUT:DATA? "):]))
		if err != nil || n < 1 || n > 16 {
			return `-222,"Data out of range"`, true
		}
		return s.channelReply(n), true

	case strings.HasPrefix(upper, ":SYST:ERR?"):
		if len(s.errQueue) == 0 {
			return `0,"No error"`, true
		}
		msg := s.errQueue[0]
		s.errQueue = s.errQueue[1:]
		return msg, true

	case strings.HasPrefix(upper, ":CONF:"):
		return "", false

	case strings.HasPrefix(upper, ":MEAS:") && strings.HasSuffix(upper, "?"):
		// Generic measurement query: bare number, no unit suffix.
		return fmt.Sprintf("%.8E", s.values[1]), true

	default:
		s.pushError(`-113,"Undefined header"`)
		return "", false
	}
}

func (s *Server) handleChan(args string) {
	// <n>,ON,<type>,<range>,<speed>
	fields := strings.Split(args, ",")
	if len(fields) != 5 {
		s.pushError(`-109,"Missing parameter"`)
		return
	}
	n, err := strconv.Atoi(strings.TrimSpace(fields[0]))
	if err != nil || n < 1 || n > 16 {
		s.pushError(`-222,"Data out of range"`)
		return
	}
	s.channels[n] = &channelState{
		enabled:   strings.EqualFold(strings.TrimSpace(fields[1]), "ON"),
		cardType:  strings.TrimSpace(fields[2]),
		cardRange: strings.TrimSpace(fields[3]),
		speed:     strings.TrimSpace(fields[4]),
	}
}

func (s *Server) channelReply(n int) string {
	if msg, ok := s.overloads[n]; ok {
		return msg
	}
	suffix := "VDC"
	if cs, ok := s.channels[n]; ok {
		suffix = unitSuffixFor(cs.cardType)
	} else if n > 12 {
		suffix = "ADC"
	}
	return fmt.Sprintf("%.8E %s", s.values[n], suffix)
}

func unitSuffixFor(cardType string) string {
	switch strings.ToUpper(cardType) {
	case "DCV", "DIOD":
		return "VDC"
	case "ACV":
		return "VAC"
	case "DCI":
		return "ADC"
	case "ACI":
		return "AAC"
	case "RES", "CONT":
		return "OHM"
	case "CAP":
		return "F"
	case "FREQ":
		return "HZ"
	case "RTD", "THER":
		return "DEGC"
	default:
		return ""
	}
}
