// Package logging configures the process-wide slog logger.
//
// Core packages log through slog.Default, so calling Setup once at startup
// routes scanner warnings and rebuild progress to the chosen writer. The MCP
// server must log to stderr because stdout carries the protocol.
package logging
