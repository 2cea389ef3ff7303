package constants

import "time"

const (
	DedupTTL            = 3 * time.Second
	DedupSweepThreshold = 500
)

const (
	RateLimitWindow = 5 * time.Second
	RateLimitCap    = 50
)

const (
	MaxMessageLen = 2000
	MaxStackLen   = 50000
	MaxSourceLen  = 2000
)

const (
	TruncationMarker = "...[TRUNCATED]"
	RedactedValue    = "REDACTED"
)

const (
	DefaultSampleRate = 1.0
)

const (
	DispatchQueueSize = 256
)

const (
	ShutdownTimeout = 5 * time.Second
)

const (
	FallbackAllow = "allow"
	FallbackDeny  = "deny"
	FallbackError = "error"
)

const (
	DropSampledOut    = "sampled_out"
	DropRateLimited   = "rate_limited"
	DropFiltered      = "filtered"
	DropDuplicate     = "duplicate"
	DropQueueOverflow = "queue_overflow"
	DropInternalError = "error"
	StatusDispatched  = "dispatched"
)

const (
	StageSample      = "sample"
	StageRateLimit   = "rate_limit"
	StageFilter      = "filter"
	StageSanitize    = "sanitize"
	StageFingerprint = "fingerprint"
	StageDedup       = "dedup"
	StageDispatch    = "dispatch"
)
