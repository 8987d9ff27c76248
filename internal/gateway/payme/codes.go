package payme

// Transport-level JSON-RPC error codes.
const (
	CodeInsufficientPrivileges int32 = -32504
	CodeParseError             int32 = -32700
	CodeMethodNotFound         int32 = -32601
	CodeInternalError          int32 = -32400
)

// Business error codes defined by the Merchant API.
const (
	CodeInvalidAmount       int32 = -31001
	CodeTransactionNotFound int32 = -31003
	CodeUnableToPerform     int32 = -31008
	CodeAccountNotFound     int32 = -31050
)

// AccountField names the account parameter reported back with
// account-related errors.
const AccountField = "reference_id"

// Transaction states on the Merchant API wire.
const (
	StateCreated                int32 = 1
	StateCompleted              int32 = 2
	StateCancelled              int32 = -1
	StateCancelledAfterComplete int32 = -2
)

// Cancellation reason codes reported by Paycom and echoed back in
// CheckTransaction and GetStatement responses.
const (
	ReasonGatewayError   int32 = 3
	ReasonWindowExpired  int32 = 4
	ReasonMerchantRefund int32 = 5
)
