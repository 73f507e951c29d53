package common

import "errors"

type ErrorCode string
type ErrorMessage string

const (
	ErrCodeConfigLoadFailed    ErrorCode = "CONFIG_LOAD_FAILED"
	ErrCodeExchangeUnavailable ErrorCode = "EXCHANGE_UNAVAILABLE"
	ErrCodeExchangeRejected    ErrorCode = "EXCHANGE_REJECTED"
	ErrCodeMalformedResponse   ErrorCode = "MALFORMED_RESPONSE"
	ErrCodeInsufficientHistory ErrorCode = "INSUFFICIENT_HISTORY"
	ErrCodeOracleUnavailable   ErrorCode = "ORACLE_UNAVAILABLE"
	ErrCodeDispatchFailed      ErrorCode = "DISPATCH_FAILED"
	ErrCodeEvaluationFailed    ErrorCode = "EVALUATION_FAILED"
	ErrCodeUnknownExchange     ErrorCode = "UNKNOWN_EXCHANGE"
	ErrCodeUnknownTimeframe    ErrorCode = "UNKNOWN_TIMEFRAME"
	ErrCodeTickerConnectFailed ErrorCode = "TICKER_CONNECT_FAILED"
	ErrCodeTickerReadFailed    ErrorCode = "TICKER_READ_FAILED"
	ErrCodeHTTPServeFailed     ErrorCode = "HTTP_SERVE_FAILED"
	ErrCodeCandleDropped       ErrorCode = "CANDLE_DROPPED"
)

const (
	ErrMsgConfigLoadFailed    ErrorMessage = "Failed to load configuration"
	ErrMsgExchangeUnavailable ErrorMessage = "Exchange transport failure"
	ErrMsgExchangeRejected    ErrorMessage = "Exchange rejected the request"
	ErrMsgMalformedResponse   ErrorMessage = "Unexpected exchange response shape"
	ErrMsgInsufficientHistory ErrorMessage = "Not enough candle history to analyze"
	ErrMsgOracleUnavailable   ErrorMessage = "Oracle timed out or returned invalid output"
	ErrMsgDispatchFailed      ErrorMessage = "Failed to deliver notification"
	ErrMsgEvaluationFailed    ErrorMessage = "Evaluation cycle failed"
	ErrMsgUnknownExchange     ErrorMessage = "No adapter registered for exchange"
	ErrMsgUnknownTimeframe    ErrorMessage = "Unsupported timeframe code"
	ErrMsgTickerConnectFailed ErrorMessage = "Failed to connect ticker stream"
	ErrMsgTickerReadFailed    ErrorMessage = "Failed to read from ticker stream"
	ErrMsgHTTPServeFailed     ErrorMessage = "HTTP server failed"
	ErrMsgCandleDropped       ErrorMessage = "Dropped malformed or out-of-order candle"
)

func (e ErrorCode) String() string {
	return string(e)
}

func (m ErrorMessage) String() string {
	return string(m)
}

// Sentinel errors for the failure taxonomy. Callers classify failures with
// errors.Is; everything adapter- or pipeline-level wraps exactly one of these.
var (
	ErrExchangeUnavailable = errors.New("exchange unavailable")
	ErrExchangeRejected    = errors.New("exchange rejected request")
	ErrMalformedResponse   = errors.New("malformed exchange response")
	ErrInsufficientHistory = errors.New("insufficient candle history")
	ErrOracleUnavailable   = errors.New("oracle unavailable")
	ErrDispatchFailed      = errors.New("notification dispatch failed")
)

// Taxonomy returns the taxonomy label for an error, for interactive surfaces.
func Taxonomy(err error) ErrorCode {
	switch {
	case errors.Is(err, ErrExchangeUnavailable):
		return ErrCodeExchangeUnavailable
	case errors.Is(err, ErrExchangeRejected):
		return ErrCodeExchangeRejected
	case errors.Is(err, ErrMalformedResponse):
		return ErrCodeMalformedResponse
	case errors.Is(err, ErrInsufficientHistory):
		return ErrCodeInsufficientHistory
	case errors.Is(err, ErrOracleUnavailable):
		return ErrCodeOracleUnavailable
	case errors.Is(err, ErrDispatchFailed):
		return ErrCodeDispatchFailed
	default:
		return ErrCodeEvaluationFailed
	}
}
