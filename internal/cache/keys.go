package cache

import "fmt"

// JobStatusKey returns the cache key for a job's status snapshot.
func JobStatusKey(jobID string) string {
	return fmt.Sprintf("job:%s:status", jobID)
}
