// Package database persists scan history to SQLite so results from
// earlier runs can be reviewed and compared. One row per scan plus one
// row per analyzed document; crawl state itself is never persisted —
// every scan starts from an empty frontier.
package database
