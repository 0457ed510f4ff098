package workflow

import "github.com/workitem-mcp/workitem-mcp/internal/apperr"

func apperrNoFlow() error {
	return apperr.New(apperr.InternalError, "no workflow flow configured")
}
