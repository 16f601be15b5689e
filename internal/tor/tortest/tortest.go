// Package tortest provides fake local SOCKS and control-port endpoints
// so the anonymous transport can be exercised in tests without a Tor
// daemon. The SOCKS server performs a real SOCKS5 handshake and then
// follows a per-request script, which lets tests simulate a working
// tunnel, a dropped connection, or any sequence of the two.
package tortest

import (
	"bufio"
	"io"
	"net"
	"strconv"
	"strings"
	"sync"
	"testing"
)

// DropTunnel is a script entry that closes the tunnel after reading the
// request, so the client observes a network-level failure.
const DropTunnel = ""

// Response builds a script entry: a complete HTTP/1.1 200 reply with
// the given content type and body, closing the connection afterwards.
func Response(contentType, body string) string {
	return "HTTP/1.1 200 OK\r\n" +
		"Content-Type: " + contentType + "\r\n" +
		"Content-Length: " + strconv.Itoa(len(body)) + "\r\n" +
		"Connection: close\r\n\r\n" + body
}

// SocksServer is a scripted SOCKS5 endpoint. Every connection gets the
// full handshake; tunneled HTTP requests then consume script entries in
// order. Connections that never send a request (the transport's
// reachability check) do not consume the script. When the script runs
// out, the final entry repeats.
type SocksServer struct {
	ln net.Listener

	mu     sync.Mutex
	script []string
	next   int
	served int
}

// StartSocksServer starts a SocksServer with the given script and
// registers its teardown with the test.
func StartSocksServer(t *testing.T, script ...string) *SocksServer {
	t.Helper()

	ln, err := net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		t.Fatalf("failed to listen: %v", err)
	}
	t.Cleanup(func() { ln.Close() })

	s := &SocksServer{ln: ln, script: script}
	go func() {
		for {
			conn, err := ln.Accept()
			if err != nil {
				return
			}
			go s.serve(conn)
		}
	}()
	return s
}

// Addr returns the server's listen address in "host:port" form.
func (s *SocksServer) Addr() string {
	return s.ln.Addr().String()
}

// Requests returns how many tunneled HTTP requests arrived, dropped
// ones included.
func (s *SocksServer) Requests() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.served
}

// takeEntry consumes the next script entry, repeating the last one
// once the script is exhausted.
func (s *SocksServer) takeEntry() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.served++
	if len(s.script) == 0 {
		return DropTunnel
	}
	entry := s.script[s.next]
	if s.next < len(s.script)-1 {
		s.next++
	}
	return entry
}

// serve handles one SOCKS5 connection end to end.
func (s *SocksServer) serve(conn net.Conn) {
	defer conn.Close()

	// Version negotiation.
	greeting := make([]byte, 2)
	if _, err := io.ReadFull(conn, greeting); err != nil || greeting[0] != 0x05 {
		return
	}
	if _, err := io.ReadFull(conn, make([]byte, greeting[1])); err != nil {
		return
	}
	if _, err := conn.Write([]byte{0x05, 0x00}); err != nil {
		return
	}

	// CONNECT request.
	header := make([]byte, 4)
	if _, err := io.ReadFull(conn, header); err != nil {
		return
	}
	switch header[3] {
	case 0x03: // domain
		length := make([]byte, 1)
		if _, err := io.ReadFull(conn, length); err != nil {
			return
		}
		if _, err := io.ReadFull(conn, make([]byte, length[0])); err != nil {
			return
		}
	case 0x01: // IPv4
		if _, err := io.ReadFull(conn, make([]byte, 4)); err != nil {
			return
		}
	default:
		return
	}
	if _, err := io.ReadFull(conn, make([]byte, 2)); err != nil { // port
		return
	}

	// Success reply with a zero bind address.
	if _, err := conn.Write([]byte{0x05, 0x00, 0x00, 0x01, 0, 0, 0, 0, 0, 0}); err != nil {
		return
	}

	// Read one tunneled HTTP request. A reachability check closes
	// without sending anything; that must not consume the script.
	reader := bufio.NewReader(conn)
	sawRequest := false
	for {
		line, err := reader.ReadString('\n')
		if err != nil {
			return
		}
		sawRequest = true
		if strings.TrimRight(line, "\r\n") == "" {
			break
		}
	}
	if !sawRequest {
		return
	}

	if entry := s.takeEntry(); entry != DropTunnel {
		_, _ = conn.Write([]byte(entry))
	}
}

// ControlServer is a fake Tor control port accepting NULL
// authentication and counting NEWNYM signals.
type ControlServer struct {
	ln net.Listener

	mu        sync.Mutex
	rotations int
}

// StartControlServer starts a ControlServer and registers its teardown
// with the test.
func StartControlServer(t *testing.T) *ControlServer {
	t.Helper()

	ln, err := net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		t.Fatalf("failed to listen: %v", err)
	}
	t.Cleanup(func() { ln.Close() })

	c := &ControlServer{ln: ln}
	go func() {
		for {
			conn, err := ln.Accept()
			if err != nil {
				return
			}
			go c.serve(conn)
		}
	}()
	return c
}

// Addr returns the server's listen address in "host:port" form.
func (c *ControlServer) Addr() string {
	return c.ln.Addr().String()
}

// Rotations returns how many NEWNYM signals were accepted.
func (c *ControlServer) Rotations() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.rotations
}

// serve handles one control-port conversation.
func (c *ControlServer) serve(conn net.Conn) {
	defer conn.Close()

	reader := bufio.NewReader(conn)
	for {
		line, err := reader.ReadString('\n')
		if err != nil {
			return
		}

		switch cmd := strings.TrimSpace(line); {
		case cmd == "PROTOCOLINFO 1":
			_, _ = conn.Write([]byte("250-PROTOCOLINFO 1\r\n" +
				"250-AUTH METHODS=NULL\r\n" +
				"250-VERSION Tor=\"0.4.8.0\"\r\n" +
				"250 OK\r\n"))
		case strings.HasPrefix(cmd, "AUTHENTICATE"):
			_, _ = conn.Write([]byte("250 OK\r\n"))
		case cmd == "SIGNAL NEWNYM":
			c.mu.Lock()
			c.rotations++
			c.mu.Unlock()
			_, _ = conn.Write([]byte("250 OK\r\n"))
		case cmd == "QUIT":
			_, _ = conn.Write([]byte("250 closing connection\r\n"))
			return
		default:
			_, _ = conn.Write([]byte("510 Unrecognized command\r\n"))
		}
	}
}
