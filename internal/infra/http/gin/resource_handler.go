package ginserver

import (
	"log/slog"
	"net/http"
	"time"

	gin "github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"hotelier/internal/app/reservations"
	"hotelier/internal/domain/resource"
)

type ResourceHandler struct {
	Service   *reservations.Service
	Resources resource.Repository
	Logger    *slog.Logger
}

type createResourceRequest struct {
	Name         string `json:"name" binding:"required"`
	Kind         string `json:"kind" binding:"required"`
	Capacity     int    `json:"capacity" binding:"required"`
	RateCents    int64  `json:"rate_cents"`
	ActivityName string `json:"activity_name"`
}

func (h ResourceHandler) Create(c *gin.Context) {
	if _, ok := requireStaff(c); !ok {
		return
	}
	var req createResourceRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	res, err := resource.New(resource.CreateParams{
		ID:           uuid.NewString(),
		Name:         req.Name,
		Kind:         resource.Kind(req.Kind),
		Capacity:     req.Capacity,
		RateCents:    req.RateCents,
		ActivityName: req.ActivityName,
		Now:          time.Now().UTC(),
	})
	if err != nil {
		respondDomainError(c, err, h.Logger)
		return
	}
	if err := h.Resources.Save(c.Request.Context(), res); err != nil {
		respondDomainError(c, err, h.Logger)
		return
	}
	c.JSON(http.StatusCreated, res)
}

func (h ResourceHandler) List(c *gin.Context) {
	items, err := h.Resources.List(c.Request.Context())
	if err != nil {
		respondDomainError(c, err, h.Logger)
		return
	}
	c.JSON(http.StatusOK, gin.H{"resources": items})
}

func (h ResourceHandler) Get(c *gin.Context) {
	res, err := h.Resources.ByID(c.Request.Context(), c.Param("id"))
	if err != nil {
		respondDomainError(c, err, h.Logger)
		return
	}
	c.JSON(http.StatusOK, res)
}

type setResourceStatusRequest struct {
	Status string `json:"status" binding:"required"`
}

func (h ResourceHandler) SetStatus(c *gin.Context) {
	if _, ok := requireStaff(c); !ok {
		return
	}
	var req setResourceStatusRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	res, err := h.Resources.ByID(c.Request.Context(), c.Param("id"))
	if err != nil {
		respondDomainError(c, err, h.Logger)
		return
	}
	if err := res.SetStatus(resource.Status(req.Status), time.Now().UTC()); err != nil {
		respondDomainError(c, err, h.Logger)
		return
	}
	if err := h.Resources.Save(c.Request.Context(), res); err != nil {
		respondDomainError(c, err, h.Logger)
		return
	}
	c.JSON(http.StatusOK, res)
}

func (h ResourceHandler) MarkReady(c *gin.Context) {
	if _, ok := requireStaff(c); !ok {
		return
	}
	res, err := h.Resources.ByID(c.Request.Context(), c.Param("id"))
	if err != nil {
		respondDomainError(c, err, h.Logger)
		return
	}
	res.MarkReady(time.Now().UTC())
	if err := h.Resources.Save(c.Request.Context(), res); err != nil {
		respondDomainError(c, err, h.Logger)
		return
	}
	c.JSON(http.StatusOK, res)
}

// Summary reports availability per resource over the requested window,
// defaulting to the next 24 hours.
func (h ResourceHandler) Summary(c *gin.Context) {
	now := time.Now().UTC()
	from, to := now, now.Add(24*time.Hour)
	var err error
	if raw := c.Query("from"); raw != "" {
		if from, err = time.Parse(time.RFC3339, raw); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "from must be RFC3339"})
			return
		}
	}
	if raw := c.Query("to"); raw != "" {
		if to, err = time.Parse(time.RFC3339, raw); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "to must be RFC3339"})
			return
		}
	}
	summary, err := h.Service.Availability(c.Request.Context(), from, to)
	if err != nil {
		respondDomainError(c, err, h.Logger)
		return
	}
	c.JSON(http.StatusOK, gin.H{"window": gin.H{"from": from, "to": to}, "resources": summary})
}
