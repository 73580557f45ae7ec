// Package model defines data structures for mcp-websearch.
//
// This package contains:
//   - Memory: stored memory entry
//   - Config: server configuration
//   - JSON-RPC 2.0: request/response/error structures
//   - MCP: initialize / tools structures
package model
