package sqlite

import "github.com/voxhire/voxhire/pkg/logger"

// Local aliases for log field helpers, so storage code can use them
// without clashing with constructor parameters named logger.
var (
	Error = logger.Error
	Int   = logger.Int
	Int64 = logger.Int64
)
