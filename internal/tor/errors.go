package tor

import "errors"

// Transport errors. All of them are recoverable by design: callers fall
// back to a direct connection instead of failing the scan.
var (
	// ErrProxyNotSocks is returned when the configured proxy address
	// responds but does not speak the SOCKS5 protocol. Typically a
	// different service is listening on the expected port.
	ErrProxyNotSocks = errors.New("proxy is not a SOCKS5 proxy")

	// ErrProxyCannotConnect is returned when no TCP connection can be
	// established to the proxy address. Tor is probably not running.
	ErrProxyCannotConnect = errors.New("cannot connect to SOCKS proxy")

	// ErrProxyTimeout is returned when the proxy connection times out.
	ErrProxyTimeout = errors.New("timeout connecting to SOCKS proxy")

	// ErrInvalidProxyAddress is returned when the proxy address is not
	// in "host:port" format.
	ErrInvalidProxyAddress = errors.New("invalid proxy address format: expected host:port")

	// ErrControlAuthFailed is returned when control-port authentication
	// is rejected.
	ErrControlAuthFailed = errors.New("control port authentication failed")

	// ErrNotActive is returned by operations that require the anonymous
	// transport to be active.
	ErrNotActive = errors.New("anonymous transport is not active")
)

// ProxyStatus is the result of probing the SOCKS endpoint.
type ProxyStatus int

const (
	// ProxyStatusOK indicates a working SOCKS5 proxy.
	ProxyStatusOK ProxyStatus = iota

	// ProxyStatusWrongType indicates the endpoint accepted the
	// connection but did not behave like a SOCKS5 proxy.
	ProxyStatusWrongType

	// ProxyStatusCannotConnect indicates the TCP connection failed.
	ProxyStatusCannotConnect

	// ProxyStatusTimeout indicates the probe timed out.
	ProxyStatusTimeout
)

// String returns a human-readable description of the proxy status.
func (s ProxyStatus) String() string {
	switch s {
	case ProxyStatusOK:
		return "OK"
	case ProxyStatusWrongType:
		return "wrong type (not SOCKS5)"
	case ProxyStatusCannotConnect:
		return "cannot connect"
	case ProxyStatusTimeout:
		return "timeout"
	default:
		return "unknown"
	}
}

// Err returns the error corresponding to this status, or nil for OK.
func (s ProxyStatus) Err() error {
	switch s {
	case ProxyStatusOK:
		return nil
	case ProxyStatusWrongType:
		return ErrProxyNotSocks
	case ProxyStatusCannotConnect:
		return ErrProxyCannotConnect
	case ProxyStatusTimeout:
		return ErrProxyTimeout
	default:
		return errors.New("unknown proxy status")
	}
}
