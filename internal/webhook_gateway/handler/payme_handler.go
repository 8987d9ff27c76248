package handler

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/vocalix-payment-gateway/internal/config"
	"github.com/vocalix-payment-gateway/internal/domain/journal"
	"github.com/vocalix-payment-gateway/internal/domain/money"
	"github.com/vocalix-payment-gateway/internal/domain/transaction"
	"github.com/vocalix-payment-gateway/internal/engine"
	"github.com/vocalix-payment-gateway/internal/gateway/payme"
	"github.com/vocalix-payment-gateway/internal/webhook_gateway/middleware"
)

// Pseudo-operations journaled for requests rejected before dispatch
const (
	paymeOpAuth  = "auth"
	paymeOpParse = "parse"
)

// PaymeHandler handles the Payme Merchant API on its single JSON-RPC
// endpoint. Transport and business verdicts both ride in the error object
// of an HTTP 200 response.
type PaymeHandler struct {
	engine  engine.Engine
	journal journal.Recorder
	cfg     config.PaymeConfig
	logger  *slog.Logger
}

// NewPaymeHandler creates a new Payme webhook handler
func NewPaymeHandler(logger *slog.Logger, eng engine.Engine, recorder journal.Recorder, cfg config.PaymeConfig) *PaymeHandler {
	return &PaymeHandler{
		engine:  eng,
		journal: recorder,
		cfg:     cfg,
		logger:  logger,
	}
}

// paymeCall carries the journal identity of one RPC while it is handled.
type paymeCall struct {
	op           string
	gatewayTxnID string
	referenceID  string
}

// Handle authenticates the caller, parses the JSON-RPC envelope and
// dispatches on the method name.
func (h *PaymeHandler) Handle(c *gin.Context) {
	received := time.Now()

	if !payme.Authorize(c.GetHeader("Authorization"), h.cfg.Login, h.cfg.SecretKey) {
		h.logger.Warn("Payme authorization failed", "client_ip", c.ClientIP())
		h.respondError(c, received, paymeCall{op: paymeOpAuth}, nil, payme.CodeInsufficientPrivileges, "")
		return
	}

	var req payme.Request
	if err := c.ShouldBindJSON(&req); err != nil {
		h.logger.Warn("Malformed Payme request", "error", err)
		h.respondError(c, received, paymeCall{op: paymeOpParse}, nil, payme.CodeParseError, "")
		return
	}

	switch req.Method {
	case payme.MethodCheckPerformTransaction:
		h.checkPerform(c, received, &req)
	case payme.MethodCreateTransaction:
		h.create(c, received, &req)
	case payme.MethodPerformTransaction:
		h.perform(c, received, &req)
	case payme.MethodCancelTransaction:
		h.cancel(c, received, &req)
	case payme.MethodCheckTransaction:
		h.check(c, received, &req)
	case payme.MethodGetStatement:
		h.statement(c, received, &req)
	default:
		h.logger.Warn("Unknown Payme method", "method", req.Method)
		h.respondError(c, received, paymeCall{op: req.Method}, req.ID, payme.CodeMethodNotFound, "")
	}
}

func (h *PaymeHandler) checkPerform(c *gin.Context, received time.Time, req *payme.Request) {
	var params payme.CheckPerformParams
	if err := json.Unmarshal(req.Params, &params); err != nil {
		h.respondError(c, received, paymeCall{op: req.Method}, req.ID, payme.CodeParseError, "")
		return
	}
	call := paymeCall{op: req.Method, referenceID: params.Account.ReferenceID}

	referenceID, err := uuid.Parse(params.Account.ReferenceID)
	if err != nil {
		h.respondError(c, received, call, req.ID, payme.CodeAccountNotFound, payme.AccountField)
		return
	}

	err = h.engine.CheckReservable(c.Request.Context(), transaction.GatewayPayme, referenceID, money.FromTiyin(params.Amount))
	if err != nil {
		code, data := paymeErrorCode(err)
		h.logRejection(req.Method, code, err)
		h.respondError(c, received, call, req.ID, code, data)
		return
	}

	h.respondResult(c, received, call, req.ID, payme.CheckPerformResult{Allow: true}, journal.OutcomeApplied)
}

func (h *PaymeHandler) create(c *gin.Context, received time.Time, req *payme.Request) {
	var params payme.CreateParams
	if err := json.Unmarshal(req.Params, &params); err != nil {
		h.respondError(c, received, paymeCall{op: req.Method}, req.ID, payme.CodeParseError, "")
		return
	}
	call := paymeCall{op: req.Method, gatewayTxnID: params.ID, referenceID: params.Account.ReferenceID}

	referenceID, err := uuid.Parse(params.Account.ReferenceID)
	if err != nil {
		h.respondError(c, received, call, req.ID, payme.CodeAccountNotFound, payme.AccountField)
		return
	}

	outcome, err := h.engine.Reserve(c.Request.Context(), engine.ReserveRequest{
		Gateway:              transaction.GatewayPayme,
		ReferenceID:          referenceID,
		GatewayTransactionID: params.ID,
		Amount:               money.FromTiyin(params.Amount),
		CorrelationID:        middleware.GetCorrelationID(c),
	})
	if err != nil {
		code, data := paymeErrorCode(err)
		h.logRejection(req.Method, code, err)
		h.respondError(c, received, call, req.ID, code, data)
		return
	}

	txn := outcome.Transaction
	h.respondResult(c, received, call, req.ID, payme.CreateResult{
		CreateTime:  payme.Millis(txn.ReservedAt),
		Transaction: txn.ReferenceID.String(),
		State:       payme.StateCreated,
	}, journalOutcome(outcome))
}

func (h *PaymeHandler) perform(c *gin.Context, received time.Time, req *payme.Request) {
	var params payme.TransactionParams
	if err := json.Unmarshal(req.Params, &params); err != nil {
		h.respondError(c, received, paymeCall{op: req.Method}, req.ID, payme.CodeParseError, "")
		return
	}
	call := paymeCall{op: req.Method, gatewayTxnID: params.ID}

	outcome, err := h.engine.Perform(c.Request.Context(), engine.PerformRequest{
		Gateway:              transaction.GatewayPayme,
		GatewayTransactionID: params.ID,
		CorrelationID:        middleware.GetCorrelationID(c),
	})
	if err != nil {
		code, data := paymeErrorCode(err)
		h.logRejection(req.Method, code, err)
		h.respondError(c, received, call, req.ID, code, data)
		return
	}

	txn := outcome.Transaction
	h.respondResult(c, received, call, req.ID, payme.PerformResult{
		Transaction: txn.ReferenceID.String(),
		PerformTime: payme.Millis(txn.PerformedAt),
		State:       payme.StateCompleted,
	}, journalOutcome(outcome))
}

func (h *PaymeHandler) cancel(c *gin.Context, received time.Time, req *payme.Request) {
	var params payme.CancelParams
	if err := json.Unmarshal(req.Params, &params); err != nil {
		h.respondError(c, received, paymeCall{op: req.Method}, req.ID, payme.CodeParseError, "")
		return
	}
	call := paymeCall{op: req.Method, gatewayTxnID: params.ID}

	outcome, err := h.engine.Cancel(c.Request.Context(), engine.CancelRequest{
		Gateway:              transaction.GatewayPayme,
		GatewayTransactionID: params.ID,
		Reason:               params.Reason,
		CorrelationID:        middleware.GetCorrelationID(c),
	})
	if err != nil {
		code, data := paymeErrorCode(err)
		h.logRejection(req.Method, code, err)
		h.respondError(c, received, call, req.ID, code, data)
		return
	}

	txn := outcome.Transaction
	h.respondResult(c, received, call, req.ID, payme.CancelResult{
		Transaction: txn.ReferenceID.String(),
		CancelTime:  payme.Millis(txn.CancelledAt),
		State:       payme.StateCode(txn.State),
	}, journalOutcome(outcome))
}

func (h *PaymeHandler) check(c *gin.Context, received time.Time, req *payme.Request) {
	var params payme.TransactionParams
	if err := json.Unmarshal(req.Params, &params); err != nil {
		h.respondError(c, received, paymeCall{op: req.Method}, req.ID, payme.CodeParseError, "")
		return
	}
	call := paymeCall{op: req.Method, gatewayTxnID: params.ID}

	txn, err := h.engine.Snapshot(c.Request.Context(), transaction.GatewayPayme, params.ID)
	if err != nil {
		code, data := paymeErrorCode(err)
		h.logRejection(req.Method, code, err)
		h.respondError(c, received, call, req.ID, code, data)
		return
	}

	h.respondResult(c, received, call, req.ID, payme.CheckResult{
		CreateTime:  payme.Millis(txn.ReservedAt),
		PerformTime: payme.Millis(txn.PerformedAt),
		CancelTime:  payme.Millis(txn.CancelledAt),
		Transaction: txn.ReferenceID.String(),
		State:       payme.StateCode(txn.State),
		Reason:      txn.CancelReason,
	}, journal.OutcomeApplied)
}

func (h *PaymeHandler) statement(c *gin.Context, received time.Time, req *payme.Request) {
	var params payme.StatementParams
	if err := json.Unmarshal(req.Params, &params); err != nil {
		h.respondError(c, received, paymeCall{op: req.Method}, req.ID, payme.CodeParseError, "")
		return
	}
	call := paymeCall{op: req.Method}

	txns, err := h.engine.Statement(c.Request.Context(), transaction.GatewayPayme, payme.FromMillis(params.From), payme.FromMillis(params.To))
	if err != nil {
		code, data := paymeErrorCode(err)
		h.logRejection(req.Method, code, err)
		h.respondError(c, received, call, req.ID, code, data)
		return
	}

	entries := make([]payme.StatementEntry, 0, len(txns))
	for _, txn := range txns {
		entries = append(entries, payme.StatementEntry{
			ID:          txn.GatewayTransactionID,
			Time:        payme.Millis(txn.ReservedAt),
			Amount:      money.ToTiyin(txn.Amount),
			Account:     payme.Account{ReferenceID: txn.ReferenceID.String()},
			CreateTime:  payme.Millis(txn.ReservedAt),
			PerformTime: payme.Millis(txn.PerformedAt),
			CancelTime:  payme.Millis(txn.CancelledAt),
			Transaction: txn.ReferenceID.String(),
			State:       payme.StateCode(txn.State),
			Reason:      txn.CancelReason,
		})
	}

	h.respondResult(c, received, call, req.ID, payme.StatementResult{Transactions: entries}, journal.OutcomeApplied)
}

func (h *PaymeHandler) respondResult(c *gin.Context, received time.Time, call paymeCall, id json.RawMessage, result any, outcome string) {
	c.JSON(http.StatusOK, payme.NewResult(id, result))
	h.observe(c, received, call, 0, outcome)
}

func (h *PaymeHandler) respondError(c *gin.Context, received time.Time, call paymeCall, id json.RawMessage, code int32, data string) {
	c.JSON(http.StatusOK, payme.NewError(id, code, payme.Message(code), data))
	h.observe(c, received, call, code, journal.OutcomeRejected)
}

// observe records the reply in metrics and the journal. Journal failures
// are logged and swallowed; the gateway already has its answer.
func (h *PaymeHandler) observe(c *gin.Context, received time.Time, call paymeCall, code int32, outcome string) {
	duration := time.Since(received)
	middleware.ObserveWebhook(string(transaction.GatewayPayme), call.op, code, duration)

	entry := &journal.Entry{
		CorrelationID:        middleware.GetCorrelationID(c),
		Gateway:              transaction.GatewayPayme,
		Operation:            call.op,
		GatewayTransactionID: call.gatewayTxnID,
		ReferenceID:          call.referenceID,
		ResponseCode:         code,
		Outcome:              outcome,
		ReceivedAt:           received,
		DurationMS:           duration.Milliseconds(),
	}
	if err := h.journal.Record(c.Request.Context(), entry); err != nil {
		h.logger.Warn("Failed to record journal entry",
			"gateway", string(transaction.GatewayPayme),
			"operation", call.op,
			"error", err,
		)
	}
}

func (h *PaymeHandler) logRejection(method string, code int32, err error) {
	if code == payme.CodeInternalError {
		h.logger.Error("Payme method failed", "method", method, "error", err)
		return
	}
	h.logger.Warn("Payme method rejected", "method", method, "code", code, "error", err)
}

// paymeErrorCode maps engine errors to the Merchant API error vocabulary.
// The second return names the offending account field when the error
// concerns one.
func paymeErrorCode(err error) (int32, string) {
	var (
		notFound    transaction.ErrTransactionNotFound
		gwNotFound  transaction.ErrGatewayTransactionNotFound
		reservation transaction.ErrReservationNotFound
		mismatch    transaction.ErrAmountMismatch
		expired     transaction.ErrWindowExpired
		transition  transaction.ErrInvalidTransition
		conflict    transaction.ErrStateConflict
	)
	switch {
	case errors.As(err, &notFound):
		return payme.CodeAccountNotFound, payme.AccountField
	case errors.As(err, &gwNotFound), errors.As(err, &reservation):
		return payme.CodeTransactionNotFound, ""
	case errors.As(err, &mismatch):
		return payme.CodeInvalidAmount, ""
	case errors.As(err, &expired), errors.As(err, &transition), errors.As(err, &conflict):
		return payme.CodeUnableToPerform, ""
	default:
		return payme.CodeInternalError, ""
	}
}
