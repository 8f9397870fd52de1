package ginserver

import (
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"time"

	gin "github.com/gin-gonic/gin"

	"hotelier/internal/app/idempotency"
	"hotelier/internal/app/reservations"
	"hotelier/internal/domain/reservation"
)

type ReservationHandler struct {
	Service     *reservations.Service
	Idempotency idempotency.Store
	Logger      *slog.Logger
}

type createReservationRequest struct {
	ResourceID string    `json:"resource_id" binding:"required"`
	Start      time.Time `json:"start" binding:"required"`
	End        time.Time `json:"end" binding:"required"`
	Occupants  int       `json:"occupants"`
	GuestID    string    `json:"guest_id"`
	GuestName  string    `json:"guest_name"`
	GuestPhone string    `json:"guest_phone"`
}

func (h ReservationHandler) Create(c *gin.Context) {
	actor, ok := requireIdentity(c)
	if !ok {
		return
	}
	if h.replayIfSeen(c) {
		return
	}
	var req createReservationRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	if req.Occupants == 0 {
		req.Occupants = 1
	}

	params := reservations.CreateParams{
		ResourceID: req.ResourceID,
		Start:      req.Start,
		End:        req.End,
		Occupants:  req.Occupants,
		GuestID:    actor.GuestID,
		GuestName:  req.GuestName,
		GuestPhone: req.GuestPhone,
	}
	// Staff book on behalf of walk-in guests.
	if actor.IsStaff() && req.GuestID != "" {
		params.GuestID = req.GuestID
	}

	rsv, err := h.Service.Create(c.Request.Context(), params)
	if err != nil {
		h.respondError(c, err)
		return
	}
	h.respondAndRemember(c, http.StatusCreated, rsv)
}

func (h ReservationHandler) Get(c *gin.Context) {
	actor, ok := requireIdentity(c)
	if !ok {
		return
	}
	rsv, err := h.Service.Get(c.Request.Context(), c.Param("id"), actor)
	if err != nil {
		h.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, rsv)
}

func (h ReservationHandler) List(c *gin.Context) {
	actor, ok := requireIdentity(c)
	if !ok {
		return
	}
	filter, err := parseListFilter(c)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	page, err := h.Service.List(c.Request.Context(), filter, actor)
	if err != nil {
		h.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, page)
}

type transitionRequest struct {
	Action string `json:"action" binding:"required"`
}

func (h ReservationHandler) Transition(c *gin.Context) {
	actor, ok := requireStaff(c)
	if !ok {
		return
	}
	var req transitionRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	action, ok := reservation.ParseAction(req.Action)
	if !ok {
		c.JSON(http.StatusBadRequest, gin.H{"error": "unknown action: " + req.Action})
		return
	}
	rsv, err := h.Service.Transition(c.Request.Context(), c.Param("id"), action, actor)
	if err != nil {
		h.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, rsv)
}

type cancelRequest struct {
	Reason      string `json:"reason"`
	RefundCents int64  `json:"refund_cents"`
	FeeCents    int64  `json:"fee_cents"`
}

func (h ReservationHandler) Cancel(c *gin.Context) {
	actor, ok := requireIdentity(c)
	if !ok {
		return
	}
	var req cancelRequest
	if err := c.ShouldBindJSON(&req); err != nil && !errors.Is(err, io.EOF) {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	// Guests cancel without financial terms; staff state fee and refund.
	params := reservations.CancelParams{Reason: req.Reason}
	if actor.IsStaff() {
		params.RefundCents = req.RefundCents
		params.FeeCents = req.FeeCents
	}
	rsv, err := h.Service.Cancel(c.Request.Context(), c.Param("id"), params, actor)
	if err != nil {
		h.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, rsv)
}

type paymentRequest struct {
	AmountCents   int64  `json:"amount_cents" binding:"required"`
	Method        string `json:"method" binding:"required"`
	TransactionID string `json:"transaction_id"`
	Status        string `json:"status"`
}

func (h ReservationHandler) AddPayment(c *gin.Context) {
	actor, ok := requireIdentity(c)
	if !ok {
		return
	}
	if h.replayIfSeen(c) {
		return
	}
	var req paymentRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	rsv, err := h.Service.AddPayment(c.Request.Context(), c.Param("id"), reservations.PaymentInput{
		AmountCents:   req.AmountCents,
		Method:        req.Method,
		TransactionID: req.TransactionID,
		Status:        req.Status,
	}, actor)
	if err != nil {
		h.respondError(c, err)
		return
	}
	h.respondAndRemember(c, http.StatusOK, rsv)
}

// replayIfSeen short-circuits a retried request: if the Idempotency-Key was
// seen before, the stored response is replayed verbatim.
func (h ReservationHandler) replayIfSeen(c *gin.Context) bool {
	key := c.GetHeader("Idempotency-Key")
	if key == "" || h.Idempotency == nil {
		return false
	}
	rec, found, err := h.Idempotency.Get(c.Request.Context(), key)
	if err != nil {
		if h.Logger != nil {
			h.Logger.Warn("idempotency lookup failed", "error", err)
		}
		return false
	}
	if !found {
		return false
	}
	c.Header("Idempotency-Replayed", "true")
	c.Data(rec.StatusCode, "application/json", rec.Payload)
	return true
}

func (h ReservationHandler) respondAndRemember(c *gin.Context, status int, body any) {
	key := c.GetHeader("Idempotency-Key")
	if key == "" || h.Idempotency == nil {
		c.JSON(status, body)
		return
	}
	payload, err := json.Marshal(body)
	if err != nil {
		c.JSON(status, body)
		return
	}
	rec := idempotency.Record{Key: key, StatusCode: status, Payload: payload, OccurredAt: time.Now().UTC()}
	if err := h.Idempotency.Save(c.Request.Context(), rec); err != nil && h.Logger != nil {
		h.Logger.Warn("idempotency save failed", "key", key, "error", err)
	}
	c.Data(status, "application/json", payload)
}

func (h ReservationHandler) respondError(c *gin.Context, err error) {
	respondDomainError(c, err, h.Logger)
}
