package tor

import (
	"context"
	"errors"
	"io"
	"net"
	"strconv"
	"time"

	"golang.org/x/net/proxy"
)

// probeTimeout is the timeout for checking whether the SOCKS proxy is
// reachable. Short on purpose: this is a local connectivity check, not
// a request through the Tor network.
const probeTimeout = 2 * time.Second

// Client wraps a SOCKS5 dialer for the local Tor proxy. It provides the
// probe used by the transport manager and the dialer used by the
// session factory so every outbound connection goes through the proxy.
type Client struct {
	// proxyAddress is the SOCKS5 endpoint in "host:port" format.
	proxyAddress string

	// dialer is cached so it is not recreated per connection.
	dialer proxy.Dialer
}

// NewClient creates a client for the given SOCKS proxy address.
// The address format is validated but no connection is made; call
// CheckConnection to verify the proxy is actually running. Separating
// creation from network activity keeps construction cheap and testable.
func NewClient(proxyAddress string) (*Client, error) {
	if !isValidProxyAddress(proxyAddress) {
		return nil, ErrInvalidProxyAddress
	}

	// Tor's SOCKS port does not require authentication by default.
	dialer, err := proxy.SOCKS5("tcp", proxyAddress, nil, proxy.Direct)
	if err != nil {
		return nil, err
	}

	return &Client{
		proxyAddress: proxyAddress,
		dialer:       dialer,
	}, nil
}

// isValidProxyAddress checks "host:port" format with a port in range.
func isValidProxyAddress(address string) bool {
	host, port, err := net.SplitHostPort(address)
	if err != nil || host == "" {
		return false
	}
	n, err := strconv.Atoi(port)
	return err == nil && n >= 1 && n <= 65535
}

// SOCKS5 protocol constants used by the probe handshake.
const (
	socks5Version      = 0x05
	socks5AuthNone     = 0x00
	socks5AuthNoAccept = 0xFF
	socks5CmdConnect   = 0x01
	socks5AddrDomain   = 0x03

	// probeHost is a synthetic address for the CONNECT step of the
	// probe. It intentionally does not resolve: the point is verifying
	// the proxy processes SOCKS5 CONNECT requests, not that the
	// connection succeeds.
	probeHost = "connectivity-probe.invalid"
)

// CheckConnection verifies that a SOCKS5 proxy is listening at the
// configured address by performing a real protocol handshake:
// version negotiation, then a CONNECT request the proxy must answer
// (success or failure both count — either proves it is proxying).
//
// A handshake is more robust than checking for an open port, since any
// TCP listener would pass a bare connect test.
func (c *Client) CheckConnection(ctx context.Context) ProxyStatus {
	ctx, cancel := context.WithTimeout(ctx, probeTimeout)
	defer cancel()

	var d net.Dialer
	conn, err := d.DialContext(ctx, "tcp", c.proxyAddress)
	if err != nil {
		if ctx.Err() == context.DeadlineExceeded {
			return ProxyStatusTimeout
		}
		return ProxyStatusCannotConnect
	}
	defer conn.Close()

	if err := conn.SetDeadline(time.Now().Add(probeTimeout)); err != nil {
		return ProxyStatusCannotConnect
	}

	// Version negotiation: offer "no authentication" only.
	if _, err := conn.Write([]byte{socks5Version, 0x01, socks5AuthNone}); err != nil {
		return ProxyStatusCannotConnect
	}

	authResp := make([]byte, 2)
	if _, err := io.ReadFull(conn, authResp); err != nil {
		if errors.Is(err, context.DeadlineExceeded) {
			return ProxyStatusTimeout
		}
		return ProxyStatusWrongType
	}
	// Anything but "no authentication" (including the 0xFF no-acceptable
	// reply) means this is not a usable Tor SOCKS port.
	if authResp[0] != socks5Version || authResp[1] != socks5AuthNone {
		return ProxyStatusWrongType
	}

	// CONNECT to a synthetic host. The proxy must answer with a SOCKS5
	// reply; failure codes are fine, silence or garbage is not.
	req := []byte{socks5Version, socks5CmdConnect, 0x00, socks5AddrDomain, byte(len(probeHost))}
	req = append(req, probeHost...)
	req = append(req, 0x00, 0x50) // port 80
	if _, err := conn.Write(req); err != nil {
		return ProxyStatusCannotConnect
	}

	resp := make([]byte, 4)
	if _, err := io.ReadFull(conn, resp); err != nil {
		if errors.Is(err, context.DeadlineExceeded) {
			return ProxyStatusTimeout
		}
		return ProxyStatusWrongType
	}
	if resp[0] != socks5Version {
		return ProxyStatusWrongType
	}

	return ProxyStatusOK
}

// Dial establishes a TCP connection through the proxy.
func (c *Client) Dial(network, address string) (net.Conn, error) {
	return c.dialer.Dial(network, address)
}

// DialContext establishes a TCP connection through the proxy with
// context support. proxy.Dialer has no context-aware variant, so the
// dial runs in a goroutine; on cancellation the underlying attempt may
// continue briefly before being discarded.
func (c *Client) DialContext(ctx context.Context, network, address string) (net.Conn, error) {
	type dialResult struct {
		conn net.Conn
		err  error
	}
	resultCh := make(chan dialResult, 1)

	go func() {
		conn, err := c.dialer.Dial(network, address)
		select {
		case resultCh <- dialResult{conn, err}:
		default:
			if conn != nil {
				conn.Close()
			}
		}
	}()

	select {
	case result := <-resultCh:
		return result.conn, result.err
	case <-ctx.Done():
		return nil, ctx.Err()
	}
}

// ProxyAddress returns the configured proxy address.
func (c *Client) ProxyAddress() string {
	return c.proxyAddress
}

// Dialer returns the underlying SOCKS5 dialer. The session factory uses
// it to bind all HTTP transport connections to the proxy; partial
// proxying would leak the true network origin.
func (c *Client) Dialer() proxy.Dialer {
	return c.dialer
}

// ProxyURL returns the proxy endpoint as a socks5:// URL string,
// suitable for the HTTP_PROXY / HTTPS_PROXY environment variables.
func (c *Client) ProxyURL() string {
	return "socks5://" + c.proxyAddress
}
