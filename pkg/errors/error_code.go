package errors

// ErrorCode represents a unique error code for identifying different error types.
type ErrorCode int

const (
	// General errors (1-99)
	ErrCodeUnknown ErrorCode = 1

	// Input errors (100-199): bar ingest and strategy schema validation.
	ErrCodeInvalidParameter     ErrorCode = 100
	ErrCodeInvalidConfiguration ErrorCode = 101
	ErrCodeBarSchema            ErrorCode = 110
	ErrCodeBarTimezone          ErrorCode = 111
	ErrCodeBarOrdering          ErrorCode = 112
	ErrCodeStrategyValidation   ErrorCode = 120
	ErrCodeOrderValidation      ErrorCode = 121

	// Load errors (200-299): strategy plugin resolution and sandboxing.
	ErrCodeStrategyLoad    ErrorCode = 200
	ErrCodeStrategySandbox ErrorCode = 201
	ErrCodeVersionMismatch ErrorCode = 202

	// Lifecycle errors (300-399): order state machine and idempotency.
	ErrCodeLifecycleInvariant  ErrorCode = 300
	ErrCodeIdempotencyConflict ErrorCode = 301

	// Policy errors (400-499): policy composition.
	ErrCodePolicyMerge ErrorCode = 400

	// Risk errors (500-599): pre-trade checks and kill switch.
	ErrCodeRiskPreTradeReject ErrorCode = 500
	ErrCodeKillSwitchBlocked  ErrorCode = 501

	// External errors (600-699): broker/data-source/state-store ports.
	ErrCodeExternalTransient ErrorCode = 600
	ErrCodeExternalSemantic  ErrorCode = 601
	ErrCodePortUnavailable   ErrorCode = 602
	ErrCodeEngineTimeout     ErrorCode = 603

	// Safety errors (700-799): live safety gate.
	ErrCodeLiveSafetyGate ErrorCode = 700

	// Artifact errors (800-899): deterministic artifact emission.
	ErrCodeArtifactWrite ErrorCode = 800
	ErrCodeManifestHash  ErrorCode = 801
	ErrCodeStateStoreIO  ErrorCode = 802

	// Indicator errors (900-999): pure-compute strategy helpers.
	ErrCodeIndicatorNotFound    ErrorCode = 900
	ErrCodeIndicatorCalculation ErrorCode = 901
	ErrCodeInsufficientData     ErrorCode = 902
)
