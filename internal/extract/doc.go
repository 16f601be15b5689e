// Package extract turns downloaded document files into plain text for
// the sensitivity analysis stage. The file type is sniffed from content
// rather than trusted from the extension, and unsupported or corrupt
// input yields an empty string — extraction failures never propagate
// upward.
package extract
