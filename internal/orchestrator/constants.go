package orchestrator

import (
	"os"
	"strconv"
	"strings"
	"time"
)

// Timeout and retry settings for imports
var (
	// DefaultImportTimeout bounds a whole import run
	DefaultImportTimeout = getTimeoutOrDefault("PARA_IMPORT_TIMEOUT", 30*time.Minute, 5*time.Second)
	// RollbackTimeout is the timeout for rollback operations
	RollbackTimeout = getTimeoutOrDefault("PARA_ROLLBACK_TIMEOUT", 10*time.Minute, time.Second)
	// DefaultRetryCount is the number of retries for a batch
	DefaultRetryCount = uint64(getRetryCountOrDefault("PARA_IMPORT_RETRY_COUNT", 3, 1))
	// DefaultRetryDelay is the initial delay for exponential backoff
	DefaultRetryDelay = getTimeoutOrDefault("PARA_IMPORT_RETRY_DELAY", 1*time.Second, 10*time.Millisecond)
)

const (
	// DefaultBatchSize is the number of objects sent per batch request
	DefaultBatchSize = 100
	// MaxBatchSize caps the objects sent per batch request
	MaxBatchSize = 1000
)

// isTestEnvironment detects if we're running in a test environment
func isTestEnvironment() bool {
	for _, arg := range os.Args {
		if strings.Contains(arg, ".test") || strings.Contains(arg, "go test") {
			return true
		}
	}
	return os.Getenv("GO_TEST") == "true" || os.Getenv("TEST_MODE") == "true"
}

// getTimeoutOrDefault returns production timeout or test timeout based on environment
func getTimeoutOrDefault(envVar string, prodDefault, testDefault time.Duration) time.Duration {
	if env := os.Getenv(envVar); env != "" {
		if duration, err := time.ParseDuration(env); err == nil {
			return duration
		}
	}
	if isTestEnvironment() {
		return testDefault
	}
	return prodDefault
}

// getRetryCountOrDefault returns production retry count or test retry count based on environment
func getRetryCountOrDefault(envVar string, prodDefault, testDefault int) int {
	if env := os.Getenv(envVar); env != "" {
		if count, err := strconv.Atoi(env); err == nil && count >= 0 {
			return count
		}
	}
	if isTestEnvironment() {
		return testDefault
	}
	return prodDefault
}
