// Receipt HTTP handlers.
//
// This file exposes the receipt endpoints:
//   - POST /receipts/process        (store a receipt, return its id)
//   - GET  /receipts/{id}/points    (points earned by a stored receipt)
//
// Handlers validate input, call the ledger and translate results into HTTP
// responses. POST honors an optional Idempotency-Key: a retried request with
// the same key gets the original id back and stores nothing new.
package handlers

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/tbourn/receipt-processor/internal/domain"
	"github.com/tbourn/receipt-processor/internal/http/middleware"
	"github.com/tbourn/receipt-processor/internal/repo"
	"github.com/tbourn/receipt-processor/internal/services"
)

// ReceiptLedger is the service contract consumed by the handlers.
type ReceiptLedger interface {
	// Submit stores a receipt under a fresh id.
	Submit(ctx context.Context, r domain.Receipt) (string, error)
	// Points returns the (memoized) points of a stored receipt.
	Points(ctx context.Context, id string) (int, error)
}

// IdempotencyStore records which receipt an Idempotency-Key produced.
type IdempotencyStore interface {
	GetIdempotency(ctx context.Context, key string, now time.Time) (*domain.Idempotency, error)
	CreateIdempotency(ctx context.Context, key, receiptID string, ttl time.Duration) (*domain.Idempotency, error)
}

// Handlers groups the receipt endpoints.
type Handlers struct {
	ledger  ReceiptLedger
	idem    IdempotencyStore
	idemTTL time.Duration
}

// New returns Handlers bound to ledger. idem may be nil, in which case
// Idempotency-Key headers are validated but not recorded.
func New(ledger ReceiptLedger, idem IdempotencyStore, idemTTL time.Duration) *Handlers {
	registerValidators()
	return &Handlers{ledger: ledger, idem: idem, idemTTL: idemTTL}
}

//
// DTOs
//

// ItemRequest is one purchased line item.
type ItemRequest struct {
	ShortDescription string `json:"shortDescription" binding:"required,description" example:"Mountain Dew 12PK"`
	Price            string `json:"price" binding:"required,amount" example:"6.49"`
}

// ReceiptRequest is the JSON payload of POST /receipts/process.
type ReceiptRequest struct {
	Retailer     string        `json:"retailer" binding:"required,retailer" example:"M&M Corner Market"`
	PurchaseDate string        `json:"purchaseDate" binding:"required,datetime=2006-01-02" example:"2022-01-01"`
	PurchaseTime string        `json:"purchaseTime" binding:"required,clock" example:"13:01"`
	Items        []ItemRequest `json:"items" binding:"required,min=1,dive"`
	Total        string        `json:"total" binding:"required,amount" example:"6.49"`
}

// ProcessResponse carries the id assigned to a stored receipt.
type ProcessResponse struct {
	ID string `json:"id" example:"7fb1377b-b223-49d9-a31a-5a02701dd310"`
}

// PointsResponse carries the points awarded to a receipt.
type PointsResponse struct {
	Points int `json:"points" example:"32"`
}

// toDomain converts a validated request into a domain.Receipt.
func (req ReceiptRequest) toDomain() (domain.Receipt, error) {
	date, err := time.Parse(domain.DateLayout, req.PurchaseDate)
	if err != nil {
		return domain.Receipt{}, err
	}
	tod, err := domain.ParseTimeOfDay(req.PurchaseTime)
	if err != nil {
		return domain.Receipt{}, err
	}
	items := make([]domain.Item, len(req.Items))
	for i, it := range req.Items {
		items[i] = domain.Item{ShortDescription: it.ShortDescription, Price: it.Price}
	}
	return domain.Receipt{
		Retailer:     req.Retailer,
		PurchaseDate: date,
		PurchaseTime: tod,
		Items:        items,
		Total:        req.Total,
	}, nil
}

//
// Handlers
//

// ProcessReceipt godoc
// @ID          processReceipt
// @Summary     Submit a receipt for processing
// @Description Stores the receipt and returns the id assigned to it.
// @Description Supports safe retries via the Idempotency-Key header (same key → same id).
// @Tags        Receipts
// @Accept      json
// @Produce     json
// @Param       Idempotency-Key  header  string                   false  "Idempotency key for safe retries"  example(7a8d9f4c-1b2a-4c3d-8e9f-0123456789ab)
// @Param       body             body    handlers.ReceiptRequest  true   "Receipt"
// @Success     200  {object}  handlers.ProcessResponse  "Receipt stored"
// @Failure     400  {object}  handlers.ErrorResponse    "The receipt is invalid"
// @Failure     413  {object}  handlers.ErrorResponse    "Body too large"
// @Failure     500  {object}  handlers.ErrorResponse    "Internal error"
// @Router      /receipts/process [post]
func (h *Handlers) ProcessReceipt(c *gin.Context) {
	if id, replayed := middleware.ReplayedReceipt(c); replayed {
		c.Header(middleware.HeaderIdempotencyReplayed, "true")
		ok200(c, ProcessResponse{ID: id})
		return
	}

	var req ReceiptRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		status, details := bindingProblem(err)
		if status == http.StatusRequestEntityTooLarge {
			fail(c, status, ErrCodeBadRequest, msgBodyTooLarge)
			return
		}
		fail(c, status, ErrCodeBadRequest, msgInvalidReceipt, details...)
		return
	}
	receipt, err := req.toDomain()
	if err != nil {
		fail(c, http.StatusBadRequest, ErrCodeBadRequest, msgInvalidReceipt, err.Error())
		return
	}

	ctx := c.Request.Context()
	id, err := h.ledger.Submit(ctx, receipt)
	switch {
	case errors.Is(err, services.ErrInvalidReceipt):
		fail(c, http.StatusBadRequest, ErrCodeBadRequest, msgInvalidReceipt)
		return
	case err != nil:
		fail(c, http.StatusInternalServerError, ErrCodeSubmitFailed, "failed to store receipt")
		return
	}

	if key, has := middleware.GetIdempotencyKey(c); has && h.idem != nil {
		id = h.remember(c, key, id)
	}
	ok200(c, ProcessResponse{ID: id})
}

// remember binds key to id. When a concurrent request with the same key won
// the race, its receipt id is returned instead so both callers agree.
func (h *Handlers) remember(c *gin.Context, key, id string) string {
	ctx := c.Request.Context()
	_, err := h.idem.CreateIdempotency(ctx, key, id, h.idemTTL)
	if err == nil {
		return id
	}
	if errors.Is(err, repo.ErrDuplicate) {
		if rec, gerr := h.idem.GetIdempotency(ctx, key, time.Now().UTC()); gerr == nil {
			c.Header(middleware.HeaderIdempotencyReplayed, "true")
			return rec.ReceiptID
		}
	}
	middleware.LoggerFrom(c).Warn().Err(err).Str("receipt_id", id).Msg("idempotency key not recorded")
	return id
}

// GetPoints godoc
// @ID          getReceiptPoints
// @Summary     Get the points awarded to a receipt
// @Description Scores the receipt on first request and serves the memoized value afterwards.
// @Tags        Receipts
// @Produce     json
// @Param       id   path      string  true  "Receipt id"
// @Success     200  {object}  handlers.PointsResponse  "Points awarded"
// @Failure     400  {object}  handlers.ErrorResponse   "Invalid id"
// @Failure     404  {object}  handlers.ErrorResponse   "No receipt found for that id"
// @Failure     500  {object}  handlers.ErrorResponse   "Internal error"
// @Router      /receipts/{id}/points [get]
func (h *Handlers) GetPoints(c *gin.Context) {
	id := c.Param("id")
	if !receiptIDRE.MatchString(id) {
		fail(c, http.StatusBadRequest, ErrCodeBadRequest, msgInvalidID)
		return
	}

	points, err := h.ledger.Points(c.Request.Context(), id)
	switch {
	case errors.Is(err, services.ErrReceiptNotFound):
		fail(c, http.StatusNotFound, ErrCodeNotFound, msgNoReceipt)
	case err != nil:
		fail(c, http.StatusInternalServerError, ErrCodePointsFailed, "failed to compute points")
	default:
		ok200(c, PointsResponse{Points: points})
	}
}

func ok200(c *gin.Context, body any) { ok(c, http.StatusOK, body) }
