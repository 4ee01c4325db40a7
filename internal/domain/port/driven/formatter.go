package driven

import "context"

// ToolRun reports the outcome of a single formatter invocation.
type ToolRun struct {
	Tool string
	Err  error // nil on success.
}

// Formatter defines the driven port for source formatting tools. A single
// file may be handled by several tools run in sequence (for example an
// import orderer followed by a code formatter); each invocation succeeds or
// fails independently.
type Formatter interface {
	// Format reformats the file at path in place and returns one ToolRun per
	// tool invoked. An empty result means no tool is configured for the
	// file's suffix.
	Format(ctx context.Context, path string) []ToolRun
}
