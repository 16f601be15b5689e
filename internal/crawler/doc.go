// Package crawler implements bounded-depth discovery of document URLs
// from a seed page. It walks an explicit work queue of (URL, depth)
// pairs, deduplicates visits through a frontier set, and classifies
// every discovered link against configurable extension allow and
// ignore lists.
package crawler
