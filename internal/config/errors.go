package config

import "errors"

// Configuration validation errors.
// These errors are returned by Config.Validate() and can be matched with
// errors.Is() by callers that want to react to a specific problem.
var (
	// ErrNoSeeds is returned when the seed URL list is empty.
	ErrNoSeeds = errors.New("no seed URLs specified: provide seeds as arguments or in the config file")

	// ErrInvalidWorkers is returned when the worker count is not positive.
	ErrInvalidWorkers = errors.New("invalid worker count: must be positive")

	// ErrInvalidDelay is returned when the politeness delay is negative.
	// Use 0 to disable the delay between requests.
	ErrInvalidDelay = errors.New("invalid delay: must be non-negative")

	// ErrInvalidIdlePoll is returned when the idle poll interval is not positive.
	ErrInvalidIdlePoll = errors.New("invalid idle poll interval: must be positive")

	// ErrInvalidTimeout is returned when the fetch timeout is not positive.
	ErrInvalidTimeout = errors.New("invalid timeout: must be positive")

	// ErrInvalidRetries is returned when the retry count is negative.
	ErrInvalidRetries = errors.New("invalid retries: must be non-negative")

	// ErrInvalidRequestsPerSecond is returned when the global request rate is negative.
	// Use 0 to disable rate limiting.
	ErrInvalidRequestsPerSecond = errors.New("invalid requests per second: must be non-negative")

	// ErrInvalidMinWords is returned when the informative page threshold is negative.
	ErrInvalidMinWords = errors.New("invalid minimum word count: must be non-negative")

	// ErrInvalidDupThreshold is returned when the near-duplicate threshold
	// is outside the range a 64-bit fingerprint can express.
	ErrInvalidDupThreshold = errors.New("invalid duplicate threshold: must be between 1 and 64")

	// ErrInvalidMaxBodySize is returned when the max body size is not positive.
	ErrInvalidMaxBodySize = errors.New("invalid max body size: must be positive")

	// ErrInvalidEnvValue is returned when a CAMPUSCRAWL_* variable cannot be parsed.
	ErrInvalidEnvValue = errors.New("invalid environment variable value")
)
