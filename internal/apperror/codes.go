package apperror

// Code represents a unique error code for the application
type Code string

// General error codes
const (
	CodeInvalidInput       Code = "INVALID_INPUT"
	CodeConfigurationError Code = "CONFIGURATION_ERROR"
	CodeInternalError      Code = "INTERNAL_ERROR"
	CodeUnknownError       Code = "UNKNOWN_ERROR"
)

// Market data errors
const (
	CodePriceUnavailable Code = "PRICE_UNAVAILABLE"
	CodeStalePrice       Code = "STALE_PRICE"
	CodeUnknownSymbol    Code = "UNKNOWN_SYMBOL"
)

// Order placement errors
const (
	CodeOrderRejected     Code = "ORDER_REJECTED"
	CodeInsufficientFunds Code = "INSUFFICIENT_FUNDS"
	CodeNetworkError      Code = "NETWORK_ERROR"
	CodeOrderTimeout      Code = "ORDER_TIMEOUT"
)

// Exchange connectivity errors
const (
	CodeExchangeConnectionFailed Code = "EXCHANGE_CONNECTION_FAILED"
	CodeExchangeAPIError         Code = "EXCHANGE_API_ERROR"
	CodeExchangeRateLimited      Code = "EXCHANGE_RATE_LIMITED"
	CodeWebSocketConnectionError Code = "WEBSOCKET_CONNECTION_ERROR"
	CodeWebSocketClosed          Code = "WEBSOCKET_CLOSED"
	CodeCircuitOpen              Code = "CIRCUIT_OPEN"
)

// Ledger errors
const (
	CodeLedgerWriteFailed Code = "LEDGER_WRITE_FAILED"
	CodeLedgerUnavailable Code = "LEDGER_UNAVAILABLE"
)

// messages maps error codes to default human-readable messages
var messages = map[Code]string{
	CodeInvalidInput:       "Invalid input provided",
	CodeConfigurationError: "Configuration error",
	CodeInternalError:      "Internal error",
	CodeUnknownError:       "An unknown error occurred",

	CodePriceUnavailable: "Price unavailable",
	CodeStalePrice:       "Price data is stale",
	CodeUnknownSymbol:    "Unknown trading symbol",

	CodeOrderRejected:     "Order rejected by exchange",
	CodeInsufficientFunds: "Insufficient funds",
	CodeNetworkError:      "Network error",
	CodeOrderTimeout:      "Order placement timed out",

	CodeExchangeConnectionFailed: "Failed to connect to exchange API",
	CodeExchangeAPIError:         "Exchange API error",
	CodeExchangeRateLimited:      "Exchange rate limit exceeded",
	CodeWebSocketConnectionError: "WebSocket connection error",
	CodeWebSocketClosed:          "WebSocket connection closed",
	CodeCircuitOpen:              "Circuit breaker is open",

	CodeLedgerWriteFailed: "Failed to append record to ledger",
	CodeLedgerUnavailable: "Ledger unavailable",
}

// retryable marks codes denoting transient conditions: the evaluation pass
// that hit one of these skips and tries again on the next tick.
var retryable = map[Code]bool{
	CodePriceUnavailable:         true,
	CodeStalePrice:               true,
	CodeNetworkError:             true,
	CodeOrderTimeout:             true,
	CodeExchangeConnectionFailed: true,
	CodeExchangeRateLimited:      true,
	CodeWebSocketConnectionError: true,
	CodeCircuitOpen:              true,
	CodeLedgerWriteFailed:        true,
	CodeLedgerUnavailable:        true,
}

// IsRetryable reports whether the code denotes a transient condition.
func (c Code) IsRetryable() bool {
	return retryable[c]
}
