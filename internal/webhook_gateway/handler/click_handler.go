package handler

import (
	"errors"
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/vocalix-payment-gateway/internal/config"
	"github.com/vocalix-payment-gateway/internal/domain/journal"
	"github.com/vocalix-payment-gateway/internal/domain/money"
	"github.com/vocalix-payment-gateway/internal/domain/transaction"
	"github.com/vocalix-payment-gateway/internal/engine"
	"github.com/vocalix-payment-gateway/internal/gateway/click"
	"github.com/vocalix-payment-gateway/internal/webhook_gateway/middleware"
)

// Operation names recorded on journal entries and metric labels
const (
	clickOpPrepare  = "prepare"
	clickOpComplete = "complete"
)

// ClickHandler handles Click SHOP API callbacks. Every response is HTTP 200
// once the form parsed; the verdict travels in the error field.
type ClickHandler struct {
	engine  engine.Engine
	journal journal.Recorder
	cfg     config.ClickConfig
	logger  *slog.Logger
}

// NewClickHandler creates a new Click webhook handler
func NewClickHandler(logger *slog.Logger, eng engine.Engine, recorder journal.Recorder, cfg config.ClickConfig) *ClickHandler {
	return &ClickHandler{
		engine:  eng,
		journal: recorder,
		cfg:     cfg,
		logger:  logger,
	}
}

// Prepare handles the first phase of the Click two-phase commit: it binds
// the Click transaction id to the pending payment and answers with the
// reservation id Click must echo on complete.
func (h *ClickHandler) Prepare(c *gin.Context) {
	received := time.Now()

	var req ClickCallback
	if err := c.ShouldBind(&req); err != nil {
		h.logger.Warn("Malformed Click callback", "operation", clickOpPrepare, "error", err)
		h.respond(c, clickOpPrepare, received, &req, ClickResponse{Error: click.CodeBadRequest}, journal.OutcomeRejected)
		return
	}
	action, err := strconv.Atoi(req.Action)
	if err != nil {
		h.respond(c, clickOpPrepare, received, &req, ClickResponse{Error: click.CodeBadRequest}, journal.OutcomeRejected)
		return
	}
	if req.ServiceID != h.cfg.ServiceID {
		h.logger.Warn("Click callback for unknown service", "service_id", req.ServiceID)
		h.respond(c, clickOpPrepare, received, &req, ClickResponse{Error: click.CodeBadRequest}, journal.OutcomeRejected)
		return
	}

	if !click.VerifySignature(h.signaturePayload(&req, action), req.Sign) {
		h.logger.Warn("Click signature check failed", "operation", clickOpPrepare, "click_trans_id", req.ClickTransID)
		h.respond(c, clickOpPrepare, received, &req, ClickResponse{Error: click.CodeSignCheckFailed}, journal.OutcomeRejected)
		return
	}

	if action != click.ActionPrepare {
		h.respond(c, clickOpPrepare, received, &req, ClickResponse{Error: click.CodeActionNotFound}, journal.OutcomeRejected)
		return
	}

	amount, err := money.Parse(req.Amount)
	if err != nil {
		h.respond(c, clickOpPrepare, received, &req, ClickResponse{Error: click.CodeInvalidAmount}, journal.OutcomeRejected)
		return
	}

	referenceID, err := uuid.Parse(req.MerchantTransID)
	if err != nil {
		h.respond(c, clickOpPrepare, received, &req, ClickResponse{Error: click.CodeUserNotFound}, journal.OutcomeRejected)
		return
	}

	outcome, err := h.engine.Reserve(c.Request.Context(), engine.ReserveRequest{
		Gateway:              transaction.GatewayClick,
		ReferenceID:          referenceID,
		GatewayTransactionID: req.ClickTransID,
		Amount:               amount,
		CorrelationID:        middleware.GetCorrelationID(c),
	})
	if err != nil {
		code := prepareErrorCode(err)
		h.logRejection(clickOpPrepare, req.ClickTransID, code, err)
		h.respond(c, clickOpPrepare, received, &req, ClickResponse{Error: code}, journal.OutcomeRejected)
		return
	}

	h.respond(c, clickOpPrepare, received, &req, ClickResponse{
		MerchantPrepareID: outcome.Transaction.ID,
		Error:             click.CodeSuccess,
	}, journalOutcome(outcome))
}

// Complete handles the second phase: it settles the reservation identified
// by merchant_prepare_id, or voids it when Click reports a failed payment.
func (h *ClickHandler) Complete(c *gin.Context) {
	received := time.Now()

	var req ClickCallback
	if err := c.ShouldBind(&req); err != nil {
		h.logger.Warn("Malformed Click callback", "operation", clickOpComplete, "error", err)
		h.respond(c, clickOpComplete, received, &req, ClickResponse{Error: click.CodeBadRequest}, journal.OutcomeRejected)
		return
	}
	action, err := strconv.Atoi(req.Action)
	if err != nil || req.MerchantPrepareID == "" {
		h.respond(c, clickOpComplete, received, &req, ClickResponse{Error: click.CodeBadRequest}, journal.OutcomeRejected)
		return
	}
	if req.ServiceID != h.cfg.ServiceID {
		h.logger.Warn("Click callback for unknown service", "service_id", req.ServiceID)
		h.respond(c, clickOpComplete, received, &req, ClickResponse{Error: click.CodeBadRequest}, journal.OutcomeRejected)
		return
	}

	if !click.VerifySignature(h.signaturePayload(&req, action), req.Sign) {
		h.logger.Warn("Click signature check failed", "operation", clickOpComplete, "click_trans_id", req.ClickTransID)
		h.respond(c, clickOpComplete, received, &req, ClickResponse{Error: click.CodeSignCheckFailed}, journal.OutcomeRejected)
		return
	}

	if action != click.ActionComplete {
		h.respond(c, clickOpComplete, received, &req, ClickResponse{Error: click.CodeActionNotFound}, journal.OutcomeRejected)
		return
	}

	amount, err := money.Parse(req.Amount)
	if err != nil {
		h.respond(c, clickOpComplete, received, &req, ClickResponse{Error: click.CodeInvalidAmount}, journal.OutcomeRejected)
		return
	}

	reservationID, err := strconv.ParseInt(req.MerchantPrepareID, 10, 64)
	if err != nil {
		h.respond(c, clickOpComplete, received, &req, ClickResponse{Error: click.CodeBadRequest}, journal.OutcomeRejected)
		return
	}

	correlationID := middleware.GetCorrelationID(c)

	// Click reports its own payment failures through the error field; the
	// reservation is voided and, when already settled, the credit reversed.
	if req.Error < 0 {
		outcome, err := h.engine.Cancel(c.Request.Context(), engine.CancelRequest{
			Gateway:              transaction.GatewayClick,
			GatewayTransactionID: req.ClickTransID,
			ReservationID:        reservationID,
			Reason:               transaction.CancelReasonGatewayError,
			CorrelationID:        correlationID,
		})
		if err != nil {
			code := completeErrorCode(err)
			h.logRejection(clickOpComplete, req.ClickTransID, code, err)
			h.respond(c, clickOpComplete, received, &req, ClickResponse{Error: code}, journal.OutcomeRejected)
			return
		}
		h.respond(c, clickOpComplete, received, &req, ClickResponse{Error: click.CodeTransactionCancelled}, journalOutcome(outcome))
		return
	}

	outcome, err := h.engine.Perform(c.Request.Context(), engine.PerformRequest{
		Gateway:              transaction.GatewayClick,
		GatewayTransactionID: req.ClickTransID,
		ReservationID:        reservationID,
		Amount:               &amount,
		CorrelationID:        correlationID,
	})
	if err != nil {
		code := completeErrorCode(err)
		h.logRejection(clickOpComplete, req.ClickTransID, code, err)
		h.respond(c, clickOpComplete, received, &req, ClickResponse{Error: code}, journal.OutcomeRejected)
		return
	}

	h.respond(c, clickOpComplete, received, &req, ClickResponse{
		MerchantConfirmID: outcome.Transaction.ID,
		Error:             click.CodeSuccess,
	}, journalOutcome(outcome))
}

// respond writes the callback reply and records it in metrics and the
// journal. Journal failures are logged and swallowed; the gateway already
// has its answer.
func (h *ClickHandler) respond(c *gin.Context, op string, received time.Time, req *ClickCallback, resp ClickResponse, outcome string) {
	if resp.ErrorNote == "" {
		resp.ErrorNote = click.Note(resp.Error)
	}
	if resp.ClickTransID == "" {
		resp.ClickTransID = req.ClickTransID
	}
	if resp.MerchantTransID == "" {
		resp.MerchantTransID = req.MerchantTransID
	}
	c.JSON(http.StatusOK, resp)

	duration := time.Since(received)
	middleware.ObserveWebhook(string(transaction.GatewayClick), op, resp.Error, duration)

	entry := &journal.Entry{
		CorrelationID:        middleware.GetCorrelationID(c),
		Gateway:              transaction.GatewayClick,
		Operation:            op,
		GatewayTransactionID: req.ClickTransID,
		ReferenceID:          req.MerchantTransID,
		ResponseCode:         resp.Error,
		Outcome:              outcome,
		ReceivedAt:           received,
		DurationMS:           duration.Milliseconds(),
	}
	if err := h.journal.Record(c.Request.Context(), entry); err != nil {
		h.logger.Warn("Failed to record journal entry",
			"gateway", string(transaction.GatewayClick),
			"operation", op,
			"error", err,
		)
	}
}

func (h *ClickHandler) signaturePayload(req *ClickCallback, action int) click.SignaturePayload {
	return click.SignaturePayload{
		ClickTransID:      req.ClickTransID,
		ServiceID:         req.ServiceID,
		SecretKey:         h.cfg.SecretKey,
		MerchantTransID:   req.MerchantTransID,
		MerchantPrepareID: req.MerchantPrepareID,
		Amount:            req.Amount,
		Action:            action,
		SignTime:          req.SignTime,
	}
}

func (h *ClickHandler) logRejection(op, clickTransID string, code int32, err error) {
	if code == click.CodeFailedToUpdateUser {
		h.logger.Error("Click callback failed", "operation", op, "click_trans_id", clickTransID, "error", err)
		return
	}
	h.logger.Warn("Click callback rejected", "operation", op, "click_trans_id", clickTransID, "code", code, "error", err)
}

// prepareErrorCode maps engine errors to the Click vocabulary for prepare
func prepareErrorCode(err error) int32 {
	var (
		notFound   transaction.ErrTransactionNotFound
		mismatch   transaction.ErrAmountMismatch
		expired    transaction.ErrWindowExpired
		transition transaction.ErrInvalidTransition
	)
	switch {
	case errors.As(err, &notFound):
		return click.CodeUserNotFound
	case errors.As(err, &mismatch):
		return click.CodeInvalidAmount
	case errors.As(err, &expired):
		return click.CodeTransactionCancelled
	case errors.As(err, &transition):
		if voidedState(transition.From) {
			return click.CodeTransactionCancelled
		}
		return click.CodeAlreadyPaid
	default:
		return click.CodeFailedToUpdateUser
	}
}

// completeErrorCode maps engine errors to the Click vocabulary for complete
func completeErrorCode(err error) int32 {
	var (
		reservation transaction.ErrReservationNotFound
		gwNotFound  transaction.ErrGatewayTransactionNotFound
		notFound    transaction.ErrTransactionNotFound
		mismatch    transaction.ErrAmountMismatch
		transition  transaction.ErrInvalidTransition
	)
	switch {
	case errors.As(err, &reservation), errors.As(err, &gwNotFound), errors.As(err, &notFound):
		return click.CodeTransactionNotFound
	case errors.As(err, &mismatch):
		return click.CodeInvalidAmount
	case errors.As(err, &transition):
		// A transaction never reserved does not exist from Click's side
		if transition.From == transaction.StatePending {
			return click.CodeTransactionNotFound
		}
		return click.CodeTransactionCancelled
	default:
		return click.CodeFailedToUpdateUser
	}
}

func voidedState(s transaction.State) bool {
	return s == transaction.StateCancelled ||
		s == transaction.StateCancelledAfterComplete ||
		s == transaction.StateFailed
}

func journalOutcome(o *engine.Outcome) string {
	if o.Replayed {
		return journal.OutcomeReplayed
	}
	return journal.OutcomeApplied
}
