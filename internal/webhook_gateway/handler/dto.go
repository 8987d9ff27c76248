package handler

// ClickCallback carries the form fields of a Click SHOP API callback. The
// digest inputs stay raw strings; the signature covers the exact bytes
// Click sent, not any parsed form of them. MerchantPrepareID is present
// only on complete callbacks.
type ClickCallback struct {
	ClickTransID      string `form:"click_trans_id" binding:"required"`
	ServiceID         string `form:"service_id" binding:"required"`
	ClickPaydocID     string `form:"click_paydoc_id"`
	MerchantTransID   string `form:"merchant_trans_id" binding:"required"`
	MerchantPrepareID string `form:"merchant_prepare_id"`
	Amount            string `form:"amount" binding:"required"`
	Action            string `form:"action" binding:"required"`
	Error             int32  `form:"error"`
	ErrorNote         string `form:"error_note"`
	SignTime          string `form:"sign_time" binding:"required"`
	Sign              string `form:"sign" binding:"required"`
}

// ClickResponse is the JSON reply to a Click callback. Click reads the
// error field; the HTTP status is 200 even for rejections.
type ClickResponse struct {
	ClickTransID      string `json:"click_trans_id,omitempty"`
	MerchantTransID   string `json:"merchant_trans_id,omitempty"`
	MerchantPrepareID int64  `json:"merchant_prepare_id,omitempty"`
	MerchantConfirmID int64  `json:"merchant_confirm_id,omitempty"`
	Error             int32  `json:"error"`
	ErrorNote         string `json:"error_note"`
}

// CreateTransactionRequest represents a request to open a payment attempt
// for an account. Amount is a decimal string in soums; JSON numbers would
// pass through float64.
type CreateTransactionRequest struct {
	AccountID int64  `json:"account_id" binding:"required,gt=0"`
	Amount    string `json:"amount" binding:"required"`
	Gateway   string `json:"gateway" binding:"required,oneof=click payme"`
}

// TransactionResponse represents a transaction in merchant API responses
type TransactionResponse struct {
	ReferenceID          string `json:"reference_id"`
	WalletID             string `json:"wallet_id"`
	Gateway              string `json:"gateway"`
	Amount               string `json:"amount"`
	State                string `json:"state"`
	GatewayTransactionID string `json:"gateway_transaction_id,omitempty"`
	CancelReason         *int32 `json:"cancel_reason,omitempty"`
	CreatedAt            string `json:"created_at"`
	ReservedAt           string `json:"reserved_at,omitempty"`
	PerformedAt          string `json:"performed_at,omitempty"`
	CancelledAt          string `json:"cancelled_at,omitempty"`
}

// BalanceResponse represents a wallet balance in merchant API responses
type BalanceResponse struct {
	AccountID         int64  `json:"account_id"`
	Balance           string `json:"balance"`
	TotalCredited     string `json:"total_credited"`
	TotalDebited      string `json:"total_debited"`
	LastTransactionAt string `json:"last_transaction_at,omitempty"`
}
