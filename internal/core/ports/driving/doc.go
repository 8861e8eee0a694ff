// Package driving defines the interfaces through which callers (CLI, TUI,
// MCP server, scheduler) drive the knowledge engine.
package driving
