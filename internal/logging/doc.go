// Package logging configures structured JSON logging for the cognito CLI and
// server. Logs go to a size-rotated file under ~/.cognito/logs/ and, outside
// of MCP serve mode, to stderr as well.
package logging
