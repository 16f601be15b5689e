// Package tor manages the anonymizing transport: probing the local Tor
// SOCKS proxy, launching a daemon when none is running, configuring and
// restoring proxy environment variables, and rotating the exit identity
// through the control port.
//
// The package never implements onion routing itself. It only manages
// the lifecycle and failure recovery of a local Tor endpoint, and every
// failure path degrades to direct (non-anonymous) mode rather than
// aborting the scan.
package tor
