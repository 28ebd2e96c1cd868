// Package mcp provides an MCP (Model Context Protocol) server adapter for finrag.
// It lets AI assistants ask questions about, upload, and manage indexed
// financial documents.
package mcp

import "errors"

// ErrMissingChatService is returned when the chat service is not provided.
var ErrMissingChatService = errors.New("mcp: chat service is required")

// errMissingContent is returned when upload_document has neither a path nor content.
var errMissingContent = errors.New("either path or content is required")
