package click

// Merchant API result codes returned in the error field of every response.
const (
	CodeSuccess              int32 = 0
	CodeSignCheckFailed      int32 = -1
	CodeInvalidAmount        int32 = -2
	CodeActionNotFound       int32 = -3
	CodeAlreadyPaid          int32 = -4
	CodeUserNotFound         int32 = -5
	CodeTransactionNotFound  int32 = -6
	CodeFailedToUpdateUser   int32 = -7
	CodeBadRequest           int32 = -8
	CodeTransactionCancelled int32 = -9
)

var codeNotes = map[int32]string{
	CodeSuccess:              "Success",
	CodeSignCheckFailed:      "SIGN CHECK FAILED!",
	CodeInvalidAmount:        "Incorrect parameter amount",
	CodeActionNotFound:       "Action not found",
	CodeAlreadyPaid:          "Already paid",
	CodeUserNotFound:         "User does not exist",
	CodeTransactionNotFound:  "Transaction does not exist",
	CodeFailedToUpdateUser:   "Failed to update user",
	CodeBadRequest:           "Error in request from click",
	CodeTransactionCancelled: "Transaction cancelled",
}

// Note returns the canonical error_note text for a result code.
func Note(code int32) string {
	if note, ok := codeNotes[code]; ok {
		return note
	}
	return "Unknown error"
}
