package handlers

import (
	"net/http"
	"strconv"
	"strings"

	"github.com/gin-gonic/gin"

	"tourbackend/internal/http/middleware"
	"tourbackend/internal/services"
)

type excursionRequest struct {
	StartPoint *string  `json:"start_point"`
	StartDate  *string  `json:"start_date"`
	StartTime  *string  `json:"start_time"`
	AllDays    *int     `json:"all_days"`
	AllPeople  *int     `json:"all_people"`
	AgeLimit   *int     `json:"age_limit"`
	Cost       *float64 `json:"cost"`
	RouteID    *int64   `json:"route_id"`
}

func (r excursionRequest) patch() services.ExcursionPatch {
	return services.ExcursionPatch{
		StartPoint: r.StartPoint,
		StartDate:  r.StartDate,
		StartTime:  r.StartTime,
		AllDays:    r.AllDays,
		AllPeople:  r.AllPeople,
		AgeLimit:   r.AgeLimit,
		Cost:       r.Cost,
		RouteID:    r.RouteID,
	}
}

type bookRequest struct {
	Slots *int `json:"slots" binding:"required"`
}

type cancelRequest struct {
	Slots int `json:"slots"`
}

// GET /api/excursions
func (h Handler) ListExcursions(c *gin.Context) {
	list, err := h.excursions(c).List(c.Request.Context())
	if err != nil {
		RespondDomainError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"excursions": list})
}

// GET /api/excursions/search?title=
func (h Handler) SearchExcursions(c *gin.Context) {
	list, err := h.excursions(c).Search(c.Request.Context(), c.Query("title"))
	if err != nil {
		RespondDomainError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"excursions": list})
}

// GET /api/excursions/:id
func (h Handler) GetExcursion(c *gin.Context) {
	id, ok := paramID(c, "id")
	if !ok {
		return
	}
	v, err := h.excursions(c).Get(c.Request.Context(), id)
	if err != nil {
		RespondDomainError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"excursion": v})
}

// GET /api/excursions/:id/quote?slots=n
func (h Handler) QuoteExcursion(c *gin.Context) {
	id, ok := paramID(c, "id")
	if !ok {
		return
	}
	slots := 1
	if raw := strings.TrimSpace(c.Query("slots")); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil {
			respondError(c, http.StatusBadRequest, "invalid_slots", "slots must be an integer", nil)
			return
		}
		slots = n
	}
	res, err := h.bookings(c).Quote(c.Request.Context(), id, slots)
	if err != nil {
		RespondDomainError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"excursion_id":    res.Excursion.ID,
		"available_slots": res.AvailableSlots,
		"price":           services.NewPriceView(res.Quote),
	})
}

// POST /api/excursions/:id/book
func (h Handler) BookExcursion(c *gin.Context) {
	id, ok := paramID(c, "id")
	if !ok {
		return
	}
	var req bookRequest
	if !BindJSONOrError(c, &req) {
		return
	}
	res, err := h.bookings(c).Book(c.Request.Context(), middleware.GetIdentity(c), id, *req.Slots)
	if err != nil {
		RespondDomainError(c, err)
		return
	}
	status, message := http.StatusCreated, "booking created"
	if res.Merged {
		status, message = http.StatusOK, "booking updated"
	}
	c.JSON(status, gin.H{
		"message":         message,
		"merged":          res.Merged,
		"booking":         services.NewBookingView(res.Booking),
		"price":           services.NewPriceView(res.Quote),
		"available_slots": res.AvailableSlots,
	})
}

// PATCH /api/excursions/:id/cancel
func (h Handler) CancelExcursion(c *gin.Context) {
	id, ok := paramID(c, "id")
	if !ok {
		return
	}
	var req cancelRequest
	if !bindOptionalJSON(c, &req) {
		return
	}
	res, err := h.bookings(c).Cancel(c.Request.Context(), middleware.GetIdentity(c), id, req.Slots)
	if err != nil {
		RespondDomainError(c, err)
		return
	}
	message := "booking cancelled"
	if res.Partial {
		message = "booking partially cancelled"
	}
	c.JSON(http.StatusOK, gin.H{
		"message":         message,
		"partial":         res.Partial,
		"booking":         services.NewBookingView(res.Booking),
		"available_slots": res.AvailableSlots,
	})
}

// POST /api/admin/excursions
func (h Handler) CreateExcursion(c *gin.Context) {
	var req excursionRequest
	if !BindJSONOrError(c, &req) {
		return
	}
	v, err := h.excursions(c).Create(c.Request.Context(), middleware.GetIdentity(c), req.patch())
	if err != nil {
		RespondDomainError(c, err)
		return
	}
	c.JSON(http.StatusCreated, gin.H{"message": "excursion created", "excursion": v})
}

// PUT|PATCH /api/admin/excursions/:id
func (h Handler) UpdateExcursion(c *gin.Context) {
	id, ok := paramID(c, "id")
	if !ok {
		return
	}
	var req excursionRequest
	if !BindJSONOrError(c, &req) {
		return
	}
	v, err := h.excursions(c).Update(c.Request.Context(), middleware.GetIdentity(c), id, req.patch())
	if err != nil {
		RespondDomainError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "excursion updated", "excursion": v})
}

// DELETE /api/admin/excursions/:id
func (h Handler) DeleteExcursion(c *gin.Context) {
	id, ok := paramID(c, "id")
	if !ok {
		return
	}
	if err := h.excursions(c).Delete(c.Request.Context(), middleware.GetIdentity(c), id); err != nil {
		RespondDomainError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "excursion deleted"})
}
