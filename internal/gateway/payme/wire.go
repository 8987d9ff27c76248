package payme

import (
	"encoding/json"
	"time"

	"github.com/vocalix-payment-gateway/internal/domain/transaction"
)

// Merchant API method names.
const (
	MethodCheckPerformTransaction = "CheckPerformTransaction"
	MethodCreateTransaction       = "CreateTransaction"
	MethodPerformTransaction      = "PerformTransaction"
	MethodCancelTransaction       = "CancelTransaction"
	MethodCheckTransaction        = "CheckTransaction"
	MethodGetStatement            = "GetStatement"
)

// Request is the JSON-RPC 2.0 envelope of a Merchant API call. The id is
// kept raw so the response echoes it byte for byte whether Paycom sent a
// number or a string.
type Request struct {
	ID     json.RawMessage `json:"id"`
	Method string          `json:"method"`
	Params json.RawMessage `json:"params"`
}

// Error is the JSON-RPC error object. Data names the offending account
// field for account-related business errors and is omitted otherwise.
type Error struct {
	Code    int32  `json:"code"`
	Message string `json:"message"`
	Data    string `json:"data,omitempty"`
}

// Response is the JSON-RPC 2.0 envelope of a Merchant API reply. Exactly
// one of Result and Error is set.
type Response struct {
	ID     json.RawMessage `json:"id"`
	Result any             `json:"result,omitempty"`
	Error  *Error          `json:"error,omitempty"`
}

// NewResult builds a success reply echoing the request id.
func NewResult(id json.RawMessage, result any) Response {
	return Response{ID: id, Result: result}
}

// NewError builds an error reply echoing the request id. Pass an empty
// data string unless the error concerns an account field.
func NewError(id json.RawMessage, code int32, message, data string) Response {
	return Response{ID: id, Error: &Error{Code: code, Message: message, Data: data}}
}

var codeMessages = map[int32]string{
	CodeInsufficientPrivileges: "Insufficient privileges to perform the operation",
	CodeParseError:             "Could not parse JSON-RPC request",
	CodeMethodNotFound:         "Requested method is not found",
	CodeInternalError:          "Internal gateway error",
	CodeInvalidAmount:          "Amount does not match the order",
	CodeTransactionNotFound:    "Transaction is not found",
	CodeUnableToPerform:        "Unable to perform the operation in the current state",
	CodeAccountNotFound:        "Account is not found",
}

// Message returns the canonical message text for an error code.
func Message(code int32) string {
	if msg, ok := codeMessages[code]; ok {
		return msg
	}
	return "Unknown error"
}

// Account identifies the order a payment settles, by merchant reference.
type Account struct {
	ReferenceID string `json:"reference_id"`
}

// CheckPerformParams are the params of CheckPerformTransaction.
type CheckPerformParams struct {
	Amount  int64   `json:"amount"`
	Account Account `json:"account"`
}

// CreateParams are the params of CreateTransaction. Time and amounts
// follow the Merchant API conventions: Unix milliseconds and tiyin.
type CreateParams struct {
	ID      string  `json:"id"`
	Time    int64   `json:"time"`
	Amount  int64   `json:"amount"`
	Account Account `json:"account"`
}

// TransactionParams are the params of PerformTransaction and
// CheckTransaction.
type TransactionParams struct {
	ID string `json:"id"`
}

// CancelParams are the params of CancelTransaction.
type CancelParams struct {
	ID     string `json:"id"`
	Reason int32  `json:"reason"`
}

// StatementParams are the params of GetStatement. The bounds select by
// transaction creation time on the Paycom side, inclusive.
type StatementParams struct {
	From int64 `json:"from"`
	To   int64 `json:"to"`
}

// CheckPerformResult answers CheckPerformTransaction.
type CheckPerformResult struct {
	Allow bool `json:"allow"`
}

// CreateResult answers CreateTransaction.
type CreateResult struct {
	CreateTime  int64  `json:"create_time"`
	Transaction string `json:"transaction"`
	State       int32  `json:"state"`
}

// PerformResult answers PerformTransaction.
type PerformResult struct {
	Transaction string `json:"transaction"`
	PerformTime int64  `json:"perform_time"`
	State       int32  `json:"state"`
}

// CancelResult answers CancelTransaction.
type CancelResult struct {
	Transaction string `json:"transaction"`
	CancelTime  int64  `json:"cancel_time"`
	State       int32  `json:"state"`
}

// CheckResult answers CheckTransaction. Zero times mean the event has
// not happened.
type CheckResult struct {
	CreateTime  int64  `json:"create_time"`
	PerformTime int64  `json:"perform_time"`
	CancelTime  int64  `json:"cancel_time"`
	Transaction string `json:"transaction"`
	State       int32  `json:"state"`
	Reason      *int32 `json:"reason"`
}

// StatementEntry is one transaction in a GetStatement reply.
type StatementEntry struct {
	ID          string  `json:"id"`
	Time        int64   `json:"time"`
	Amount      int64   `json:"amount"`
	Account     Account `json:"account"`
	CreateTime  int64   `json:"create_time"`
	PerformTime int64   `json:"perform_time"`
	CancelTime  int64   `json:"cancel_time"`
	Transaction string  `json:"transaction"`
	State       int32   `json:"state"`
	Reason      *int32  `json:"reason"`
}

// StatementResult answers GetStatement.
type StatementResult struct {
	Transactions []StatementEntry `json:"transactions"`
}

// StateCode maps a domain transaction state to its Merchant API wire
// state. Only gateway-visible states occur here; a transaction becomes
// visible to Paycom when it is reserved.
func StateCode(s transaction.State) int32 {
	switch s {
	case transaction.StateReserved:
		return StateCreated
	case transaction.StateCompleted:
		return StateCompleted
	case transaction.StateCancelledAfterComplete:
		return StateCancelledAfterComplete
	default:
		return StateCancelled
	}
}

// Millis converts a timestamp to Unix milliseconds. A nil or zero time
// maps to zero, which the Merchant API reads as "not yet happened".
func Millis(t *time.Time) int64 {
	if t == nil || t.IsZero() {
		return 0
	}
	return t.UnixMilli()
}

// FromMillis converts Unix milliseconds to a UTC timestamp.
func FromMillis(ms int64) time.Time {
	return time.UnixMilli(ms).UTC()
}
