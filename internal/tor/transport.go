package tor

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"strings"
	"sync"
	"time"

	"github.com/nao1215/tornago"
)

// State describes the transport's position in its lifecycle.
//
// The state machine is deliberately small: Disabled -> Available when
// the SOCKS probe succeeds, Available -> ActiveAnonymous when
// environment configuration and live verification succeed, and every
// failure path resolves back to Disabled. There is no terminal degraded
// state, so callers always have exactly one non-anonymous fallback.
type State int

const (
	// StateDisabled means no anonymizing transport is in use.
	// Callers proceed over a direct connection.
	StateDisabled State = iota

	// StateAvailable means the SOCKS endpoint answered the probe but
	// the transport has not been verified end to end yet. This state
	// is only observable mid-activation.
	StateAvailable

	// StateActiveAnonymous means all traffic is routed through the
	// proxy and a live request has confirmed the tunnel works.
	StateActiveAnonymous
)

// String returns a human-readable state name.
func (s State) String() string {
	switch s {
	case StateDisabled:
		return "disabled"
	case StateAvailable:
		return "available"
	case StateActiveAnonymous:
		return "anonymous"
	default:
		return "unknown"
	}
}

// Default timings for activation and rotation.
const (
	// DefaultSettleDelay is the minimum wait after a NEWNYM signal.
	// Identity changes are not instantaneous; requests issued
	// immediately after the signal tend to reuse the old circuit.
	DefaultSettleDelay = 5 * time.Second

	// DefaultStartupTimeout bounds a launched Tor daemon's bootstrap.
	DefaultStartupTimeout = 3 * time.Minute

	// DefaultVerifyTimeout bounds the single live verification request.
	DefaultVerifyTimeout = 10 * time.Second

	// DefaultVerifyURL is fetched once through the proxy to confirm
	// the tunnel actually carries traffic.
	DefaultVerifyURL = "https://check.torproject.org/"
)

// proxyEnvKeys are the process environment variables the transport
// owns while active. They are snapshotted before mutation and restored
// exactly on deactivation, including absence.
var proxyEnvKeys = []string{"HTTP_PROXY", "HTTPS_PROXY"}

// envValue records one snapshotted environment variable. present
// distinguishes "was empty" from "was unset" so restoration is exact.
type envValue struct {
	value   string
	present bool
}

// Transport owns the lifecycle of the anonymizing proxy: probing,
// optional launch, environment configuration, identity rotation, and
// teardown. It is the only component allowed to mutate proxy
// environment state; everything else receives an explicit handle.
//
// All methods are safe for concurrent use. Identity rotations are
// serialized: a rotation request arriving while another is in flight
// waits for it rather than issuing a redundant NEWNYM.
type Transport struct {
	mu sync.Mutex

	state       State
	socksAddr   string
	controlAddr string

	controlPassword string
	settleDelay     time.Duration
	startupTimeout  time.Duration
	verifyURL       string

	// dataDir is handed to a launched Tor daemon so its keys and
	// cached descriptors persist across runs. Empty lets tornago pick
	// a throwaway directory.
	dataDir string

	// client is the SOCKS client for the active transport.
	// Nil unless state is StateActiveAnonymous.
	client *Client

	// process is non-nil only when this transport launched the Tor
	// daemon itself. A pre-existing external daemon is never owned.
	process *tornago.TorProcess

	// envSnapshot holds pre-activation proxy environment values.
	// Nil when no environment mutation has happened.
	envSnapshot map[string]envValue

	// epoch counts successful identity rotations.
	epoch int

	// rotateMu serializes NEWNYM signals independently of mu so a
	// slow rotation does not block state reads.
	rotateMu sync.Mutex

	logger *slog.Logger
}

// Option configures a Transport.
type Option func(*Transport)

// WithLogger sets the structured logger.
func WithLogger(logger *slog.Logger) Option {
	return func(t *Transport) {
		t.logger = logger
	}
}

// WithControlPassword sets the control-port password. When empty, the
// controller negotiates cookie or NULL authentication.
func WithControlPassword(password string) Option {
	return func(t *Transport) {
		t.controlPassword = password
	}
}

// WithSettleDelay overrides the post-rotation settle delay.
// Mainly useful in tests; production should keep the default.
func WithSettleDelay(d time.Duration) Option {
	return func(t *Transport) {
		t.settleDelay = d
	}
}

// WithStartupTimeout bounds a launched daemon's bootstrap time.
func WithStartupTimeout(d time.Duration) Option {
	return func(t *Transport) {
		t.startupTimeout = d
	}
}

// WithDataDir sets the data directory for a launched Tor daemon.
func WithDataDir(dir string) Option {
	return func(t *Transport) {
		t.dataDir = dir
	}
}

// WithVerifyURL overrides the URL fetched to verify the tunnel.
func WithVerifyURL(u string) Option {
	return func(t *Transport) {
		t.verifyURL = u
	}
}

// NewTransport creates a transport manager for the given SOCKS and
// control endpoints. The transport starts Disabled; call Activate.
func NewTransport(socksAddr, controlAddr string, opts ...Option) *Transport {
	t := &Transport{
		state:          StateDisabled,
		socksAddr:      socksAddr,
		controlAddr:    controlAddr,
		settleDelay:    DefaultSettleDelay,
		startupTimeout: DefaultStartupTimeout,
		verifyURL:      DefaultVerifyURL,
	}
	for _, opt := range opts {
		opt(t)
	}
	if t.logger == nil {
		t.logger = slog.Default()
	}
	return t
}

// Activate brings the transport up and returns the resulting state.
//
// It probes the SOCKS endpoint with a short raw connection attempt.
// When unreachable and launchIfAbsent is false it degrades to Disabled
// with a warning; the caller proceeds without anonymity. When
// launchIfAbsent is true a Tor daemon is launched; launch failure also
// degrades to Disabled, never aborts. On a reachable proxy the
// pre-existing proxy environment is snapshotted and overwritten, then
// one live request verifies the tunnel; verification failure reverts
// the environment and degrades to Disabled.
//
// Activate is a no-op when the transport is already active.
func (t *Transport) Activate(ctx context.Context, launchIfAbsent bool) State {
	t.mu.Lock()
	defer t.mu.Unlock()

	if t.state == StateActiveAnonymous {
		return t.state
	}

	client, err := NewClient(t.socksAddr)
	if err != nil {
		t.logger.Warn("invalid SOCKS address, proceeding without anonymity",
			"address", t.socksAddr, "error", err)
		t.state = StateDisabled
		return t.state
	}

	if status := client.CheckConnection(ctx); status != ProxyStatusOK {
		if !launchIfAbsent {
			t.logger.Warn("Tor is not accessible, falling back to direct connection",
				"address", t.socksAddr, "status", status.String())
			t.state = StateDisabled
			return t.state
		}

		client = t.launchDaemon(ctx)
		if client == nil {
			t.state = StateDisabled
			return t.state
		}
	}

	t.state = StateAvailable

	// Configure the ambient proxy environment so subprocesses and any
	// library honoring HTTP(S)_PROXY also route through the tunnel.
	// The snapshot makes teardown exact, including restoring absence.
	t.snapshotEnvLocked()
	for _, key := range proxyEnvKeys {
		os.Setenv(key, client.ProxyURL()) //nolint:errcheck,gosec
	}

	if err := t.verify(ctx, client); err != nil {
		t.logger.Warn("transport verification failed, falling back to direct connection",
			"error", err)
		t.restoreEnvLocked()
		t.stopProcessLocked()
		t.state = StateDisabled
		return t.state
	}

	t.client = client
	t.state = StateActiveAnonymous
	t.logger.Info("anonymous transport active",
		"socksAddr", t.socksAddr, "controlAddr", t.controlAddr)
	return t.state
}

// launchDaemon starts a Tor process via tornago and returns a client
// for its SOCKS endpoint, or nil on any failure. Caller holds mu.
func (t *Transport) launchDaemon(ctx context.Context) *Client {
	t.logger.Info("starting Tor process", "socksAddr", t.socksAddr, "controlAddr", t.controlAddr)

	launchOpts := []tornago.TorLaunchOption{
		tornago.WithTorSocksAddr(t.socksAddr),
		tornago.WithTorControlAddr(t.controlAddr),
		tornago.WithTorStartupTimeout(t.startupTimeout),
		// Surface bootstrap progress; everything else the daemon prints
		// is noise at this level.
		tornago.WithTorLogReporter(func(line string) {
			if strings.Contains(line, "Bootstrapped") {
				t.logger.Info("Tor bootstrap", "status", line)
			}
		}),
	}
	if t.dataDir != "" {
		launchOpts = append(launchOpts, tornago.WithTorDataDir(t.dataDir))
	}

	launchCfg, err := tornago.NewTorLaunchConfig(launchOpts...)
	if err != nil {
		t.logger.Warn("failed to configure Tor launch, falling back to direct connection", "error", err)
		return nil
	}

	// Blocks until the daemon reports a completed bootstrap or the
	// startup timeout expires.
	process, err := tornago.StartTorDaemon(launchCfg)
	if err != nil {
		t.logger.Warn("failed to start Tor, falling back to direct connection", "error", err)
		return nil
	}

	select {
	case <-ctx.Done():
		_ = process.Stop() //nolint:errcheck // Best effort cleanup
		return nil
	default:
	}

	t.process = process
	t.socksAddr = process.SocksAddr()
	t.controlAddr = process.ControlAddr()

	client, err := NewClient(t.socksAddr)
	if err != nil {
		t.logger.Warn("launched Tor reported unusable SOCKS address", "error", err)
		t.stopProcessLocked()
		return nil
	}

	t.logger.Info("Tor process started", "socksAddr", t.socksAddr)
	return client
}

// verify issues one live request through the SOCKS dialer. Any HTTP
// response proves the tunnel carries traffic; the status code does not
// matter here.
func (t *Transport) verify(ctx context.Context, client *Client) error {
	httpClient := &http.Client{
		Transport: &http.Transport{DialContext: client.DialContext},
		Timeout:   DefaultVerifyTimeout,
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, t.verifyURL, nil)
	if err != nil {
		return err
	}

	resp, err := httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("verification request through proxy: %w", err)
	}
	resp.Body.Close()
	return nil
}

// RotateIdentity requests a new exit circuit through the control port
// and waits out the settle delay before returning, because identity
// changes are not instantaneous. Failures are logged and swallowed:
// the caller continues under the current identity, and a rotation
// failure never escalates to a scan failure.
//
// Rotations are serialized; concurrent callers wait for the in-flight
// rotation instead of issuing redundant signals.
func (t *Transport) RotateIdentity(ctx context.Context) {
	t.rotateMu.Lock()
	defer t.rotateMu.Unlock()

	t.mu.Lock()
	if t.state != StateActiveAnonymous {
		t.mu.Unlock()
		return
	}
	controlAddr, password := t.controlAddr, t.controlPassword
	t.mu.Unlock()

	t.logger.Info("renewing exit identity", "controlAddr", controlAddr)

	err := func() error {
		ctrl, err := NewController(controlAddr, password)
		if err != nil {
			return err
		}
		return ctrl.NewIdentity(ctx)
	}()

	// The settle delay applies even when the signal failed: the daemon
	// may have rotated internally before the reply got lost, and
	// hammering the control port on failure helps nothing.
	select {
	case <-time.After(t.settleDelay):
	case <-ctx.Done():
	}

	if err != nil {
		t.logger.Warn("identity rotation failed, continuing with current identity", "error", err)
		return
	}

	t.mu.Lock()
	t.epoch++
	t.mu.Unlock()
	t.logger.Info("exit identity renewed")
}

// Deactivate tears the transport down: the Tor process is terminated
// if this transport launched it, and the proxy environment variables
// are restored to their exact pre-activation values, including removal
// of variables that did not previously exist.
//
// Deactivate is idempotent and safe to call on a never-activated
// transport, so it can sit in a defer on every exit path.
func (t *Transport) Deactivate() {
	t.mu.Lock()
	defer t.mu.Unlock()

	t.stopProcessLocked()
	t.restoreEnvLocked()
	t.client = nil
	t.state = StateDisabled
}

// stopProcessLocked terminates a launched Tor process. Caller holds mu.
func (t *Transport) stopProcessLocked() {
	if t.process == nil {
		return
	}
	t.logger.Info("stopping Tor process")
	if err := t.process.Stop(); err != nil {
		t.logger.Warn("failed to stop Tor process", "error", err)
	}
	t.process = nil
}

// snapshotEnvLocked records the current proxy environment. Caller holds mu.
// Calling it twice without a restore keeps the first snapshot, so a
// re-activation cannot capture our own mutation as "previous" state.
func (t *Transport) snapshotEnvLocked() {
	if t.envSnapshot != nil {
		return
	}
	t.envSnapshot = make(map[string]envValue, len(proxyEnvKeys))
	for _, key := range proxyEnvKeys {
		value, present := os.LookupEnv(key)
		t.envSnapshot[key] = envValue{value: value, present: present}
	}
}

// restoreEnvLocked puts the proxy environment back exactly as it was.
// Caller holds mu.
func (t *Transport) restoreEnvLocked() {
	if t.envSnapshot == nil {
		return
	}
	for key, prev := range t.envSnapshot {
		if prev.present {
			os.Setenv(key, prev.value) //nolint:errcheck,gosec
		} else {
			os.Unsetenv(key) //nolint:errcheck
		}
	}
	t.envSnapshot = nil
}

// State returns the current transport state.
func (t *Transport) State() State {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.state
}

// Active reports whether traffic is currently anonymized.
func (t *Transport) Active() bool {
	return t.State() == StateActiveAnonymous
}

// Epoch returns the number of successful identity rotations.
// Sessions created before the latest epoch should not be reused for
// new requests after a rotation.
func (t *Transport) Epoch() int {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.epoch
}

// Client returns the SOCKS client for the active transport, or nil
// when the transport is not active.
func (t *Transport) Client() *Client {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.client
}

// SocksAddr returns the SOCKS endpoint address.
func (t *Transport) SocksAddr() string {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.socksAddr
}
