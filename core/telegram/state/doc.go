// Package state stores per-user conversation sessions for Telegram bots.
// States are opaque strings and collected answers are plain string attributes.
package state
