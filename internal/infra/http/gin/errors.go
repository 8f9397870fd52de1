package ginserver

import (
	"errors"
	"log/slog"
	"net/http"
	"strconv"

	gin "github.com/gin-gonic/gin"

	"hotelier/internal/domain/pricing"
	"hotelier/internal/domain/reservation"
	"hotelier/internal/domain/resource"
	"hotelier/internal/domain/shared/daterange"
)

func respondDomainError(c *gin.Context, err error, logger *slog.Logger) {
	var conflict *reservation.ConflictError
	switch {
	case errors.As(err, &conflict):
		c.JSON(http.StatusConflict, gin.H{
			"error":       conflict.Error(),
			"resource_id": conflict.ResourceID,
			"conflicts":   conflict.Conflicts,
		})
	case errors.Is(err, reservation.ErrNotFound), errors.Is(err, resource.ErrNotFound):
		c.JSON(http.StatusNotFound, gin.H{"error": err.Error()})
	case errors.Is(err, reservation.ErrInvalidTransition):
		c.JSON(http.StatusConflict, gin.H{"error": err.Error()})
	case errors.Is(err, reservation.ErrNotOwner):
		c.JSON(http.StatusForbidden, gin.H{"error": err.Error()})
	case isValidationError(err):
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
	default:
		if logger != nil {
			logger.Error("request failed", "error", err)
		}
		c.JSON(http.StatusInternalServerError, gin.H{"error": "internal error"})
	}
}

func isValidationError(err error) bool {
	for _, candidate := range []error{
		daterange.ErrInvalidRange,
		reservation.ErrGuestRequired,
		reservation.ErrInvalidOccupants,
		reservation.ErrCapacityExceeded,
		reservation.ErrAmountNotPositive,
		reservation.ErrUnknownMethod,
		reservation.ErrUnknownEntryState,
		resource.ErrInvalidStatus,
		resource.ErrInvalidKind,
		resource.ErrNameRequired,
		resource.ErrBadCapacity,
		pricing.ErrNightsNotPositive,
		pricing.ErrParticipantsNotPositive,
		pricing.ErrCurrencyUnset,
	} {
		if errors.Is(err, candidate) {
			return true
		}
	}
	return false
}

func parseListFilter(c *gin.Context) (reservation.Filter, error) {
	filter := reservation.Filter{
		GuestID:    c.Query("guest"),
		ResourceID: c.Query("resource"),
	}
	if raw := c.Query("status"); raw != "" {
		status, ok := reservation.ParseStatus(raw)
		if !ok {
			return reservation.Filter{}, errors.New("unknown status: " + raw)
		}
		filter.Status = status
	}
	var err error
	if filter.Page, err = parsePositiveQuery(c, "page"); err != nil {
		return reservation.Filter{}, err
	}
	if filter.PerPage, err = parsePositiveQuery(c, "per_page"); err != nil {
		return reservation.Filter{}, err
	}
	return filter, nil
}

func parsePositiveQuery(c *gin.Context, name string) (int, error) {
	raw := c.Query(name)
	if raw == "" {
		return 0, nil
	}
	n, err := strconv.Atoi(raw)
	if err != nil || n < 1 {
		return 0, errors.New(name + " must be a positive integer")
	}
	return n, nil
}
