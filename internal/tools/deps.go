// Package tools implements the server's fixed 13-tool MCP surface
// (§4.6), each tool a thin mcp.Tool adapter over the store/graph/
// workflow/cascade/compound services.
package tools

import (
	"github.com/workitem-mcp/workitem-mcp/internal/store"
	"github.com/workitem-mcp/workitem-mcp/internal/wfconfig"
	"github.com/workitem-mcp/workitem-mcp/internal/workflow"
)

// Deps bundles the services every tool needs. One instance is shared
// across all tool constructors; main.go wires it once at startup.
type Deps struct {
	Store  *store.Store
	Config *wfconfig.Cache
	Engine *workflow.Engine
}
