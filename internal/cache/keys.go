// Package cache signals invalidation of cached read views that embed job status.
package cache

// JobStatusKey is the cache key of a job's status view
func JobStatusKey(jobID string) string {
	return "/api/v1/jobs/" + jobID
}

// InputKeyKey is the cache key of views addressed by a submission fingerprint
func InputKeyKey(inputKey string) string {
	return "/api/v1/jobs/by-input/" + inputKey
}

// KeysFor returns every key derived from a job that may hold stale state once it finishes.
func KeysFor(jobID, inputKey string) []string {
	keys := []string{JobStatusKey(jobID)}
	if inputKey != "" {
		keys = append(keys, InputKeyKey(inputKey))
	}
	return keys
}
