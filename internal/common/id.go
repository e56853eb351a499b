package common

import (
	"fmt"
	"sync"
	"time"
)

var (
	idMu   sync.Mutex
	lastID int64
)

// NewJobID generates a report job identifier derived from the creation
// timestamp. Identifiers are unique and monotonically increasing within a
// process, matching the history store's assumption that ids never collide
// across partitions.
// Format: job_<unix-millis>
func NewJobID() string {
	idMu.Lock()
	defer idMu.Unlock()

	id := time.Now().UnixMilli()
	if id <= lastID {
		id = lastID + 1
	}
	lastID = id

	return fmt.Sprintf("job_%d", id)
}
