// Package protocol owns the squares message contract.
//
// Ownership boundary:
// - message tags and payload layouts
// - encode/decode with strict length and value validation
// - string limits for names and chat
//
// Framing lives in protocol/frame; event hand-off in protocol/dispatch.
package protocol
