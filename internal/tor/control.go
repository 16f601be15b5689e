package tor

import (
	"context"
	"encoding/hex"
	"fmt"
	"net"
	"net/textproto"
	"os"
	"strings"
	"time"
)

// controlTimeout bounds the whole control-port conversation. The
// control port is local, so anything slower than this is broken.
const controlTimeout = 10 * time.Second

// Controller speaks the Tor control protocol to a local control port.
// It implements only the subset the scanner needs: authentication and
// the NEWNYM signal that switches to a new exit circuit.
//
// The control protocol is line-oriented text ("250 OK" replies), so we
// use net/textproto rather than pulling in a control-library dependency
// for two commands.
type Controller struct {
	// addr is the control endpoint in "host:port" format.
	addr string

	// password authenticates against a HashedControlPassword setup.
	// Empty means default authentication: NULL if the port is open,
	// otherwise cookie authentication.
	password string
}

// NewController creates a controller for the given control endpoint.
func NewController(addr, password string) (*Controller, error) {
	if !isValidProxyAddress(addr) {
		return nil, ErrInvalidProxyAddress
	}
	return &Controller{addr: addr, password: password}, nil
}

// NewIdentity authenticates and issues SIGNAL NEWNYM. Tor responds 250
// as soon as the signal is accepted; the new circuit is not usable
// immediately, which is why the transport manager enforces a settle
// delay after this call returns.
func (c *Controller) NewIdentity(ctx context.Context) error {
	deadline := time.Now().Add(controlTimeout)
	if d, ok := ctx.Deadline(); ok && d.Before(deadline) {
		deadline = d
	}

	var d net.Dialer
	conn, err := d.DialContext(ctx, "tcp", c.addr)
	if err != nil {
		return fmt.Errorf("dial control port: %w", err)
	}
	defer conn.Close()

	if err := conn.SetDeadline(deadline); err != nil {
		return err
	}

	tp := textproto.NewConn(conn)
	defer tp.Close()

	if err := c.authenticate(tp); err != nil {
		return err
	}

	if err := command(tp, "SIGNAL NEWNYM"); err != nil {
		return fmt.Errorf("NEWNYM signal rejected: %w", err)
	}

	// Best effort; the signal already succeeded.
	_ = command(tp, "QUIT") //nolint:errcheck

	return nil
}

// authenticate performs the AUTHENTICATE step. With a configured
// password it is sent directly. Otherwise PROTOCOLINFO is queried to
// discover whether the port accepts NULL or cookie authentication.
func (c *Controller) authenticate(tp *textproto.Conn) error {
	if c.password != "" {
		if err := command(tp, fmt.Sprintf("AUTHENTICATE %q", c.password)); err != nil {
			return fmt.Errorf("%w: %v", ErrControlAuthFailed, err)
		}
		return nil
	}

	methods, cookieFile, err := c.protocolInfo(tp)
	if err != nil {
		return err
	}

	if strings.Contains(methods, "NULL") {
		if err := command(tp, "AUTHENTICATE"); err != nil {
			return fmt.Errorf("%w: %v", ErrControlAuthFailed, err)
		}
		return nil
	}

	if cookieFile == "" {
		return fmt.Errorf("%w: no usable authentication method (methods: %s)", ErrControlAuthFailed, methods)
	}

	cookie, err := os.ReadFile(cookieFile) //nolint:gosec // Path comes from the local Tor daemon itself
	if err != nil {
		return fmt.Errorf("%w: read auth cookie: %v", ErrControlAuthFailed, err)
	}

	if err := command(tp, "AUTHENTICATE "+hex.EncodeToString(cookie)); err != nil {
		return fmt.Errorf("%w: %v", ErrControlAuthFailed, err)
	}
	return nil
}

// protocolInfo issues PROTOCOLINFO 1 and extracts the advertised auth
// methods and cookie file path from the AUTH line, which looks like:
//
//	250-AUTH METHODS=COOKIE,SAFECOOKIE COOKIEFILE="/run/tor/control.authcookie"
func (c *Controller) protocolInfo(tp *textproto.Conn) (methods, cookieFile string, err error) {
	id, err := tp.Cmd("PROTOCOLINFO 1")
	if err != nil {
		return "", "", err
	}
	tp.StartResponse(id)
	defer tp.EndResponse(id)

	for {
		line, err := tp.ReadLine()
		if err != nil {
			return "", "", err
		}

		if strings.HasPrefix(line, "250-AUTH ") || strings.HasPrefix(line, "250 AUTH ") {
			rest := line[len("250-AUTH "):]
			for _, field := range strings.Fields(rest) {
				switch {
				case strings.HasPrefix(field, "METHODS="):
					methods = strings.TrimPrefix(field, "METHODS=")
				case strings.HasPrefix(field, "COOKIEFILE="):
					cookieFile = strings.Trim(strings.TrimPrefix(field, "COOKIEFILE="), `"`)
				}
			}
		}

		// "250 OK" (note the space, not dash) ends the reply.
		if line == "250 OK" {
			return methods, cookieFile, nil
		}
		if !strings.HasPrefix(line, "250") {
			return "", "", fmt.Errorf("unexpected PROTOCOLINFO reply: %s", line)
		}
	}
}

// command sends one control command and requires a 250 reply.
func command(tp *textproto.Conn, cmd string) error {
	id, err := tp.Cmd("%s", cmd)
	if err != nil {
		return err
	}
	tp.StartResponse(id)
	defer tp.EndResponse(id)

	line, err := tp.ReadLine()
	if err != nil {
		return err
	}
	if !strings.HasPrefix(line, "250") {
		return fmt.Errorf("control reply: %s", line)
	}
	return nil
}
