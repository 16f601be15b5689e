// Package session builds HTTP clients bound to the current transport
// mode. Anonymous sessions rotate browser identification headers from a
// small fixed pool and dial every connection through the SOCKS proxy;
// direct sessions use one stable header profile and the default
// network path.
package session
