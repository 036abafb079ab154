package handlers

import (
	"fmt"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"tourbackend/internal/http/middleware"
	"tourbackend/internal/services"
	"tourbackend/internal/utils"
)

type userBookingResponse struct {
	Booking   services.BookingView   `json:"booking"`
	Excursion services.ExcursionView `json:"excursion"`
	Price     services.PriceView     `json:"price"`
}

// GET /api/bookings
func (h Handler) ListBookings(c *gin.Context) {
	res, err := h.bookings(c).ListUserBookings(c.Request.Context(), middleware.GetIdentity(c))
	if err != nil {
		RespondDomainError(c, err)
		return
	}
	items := make([]userBookingResponse, 0, len(res.Items))
	for _, it := range res.Items {
		items = append(items, userBookingResponse{
			Booking:   services.NewBookingView(it.Booking),
			Excursion: services.NewExcursionView(it.Excursion, it.Quote.FillBefore+it.Booking.Seats, nil),
			Price:     services.NewPriceView(it.Quote),
		})
	}
	c.JSON(http.StatusOK, gin.H{
		"bookings":   items,
		"total_cost": utils.AmountFromCents(res.TotalCents),
	})
}

// GET /api/bookings/:excursionId/ticket
func (h Handler) BookingTicket(c *gin.Context) {
	id, ok := paramID(c, "excursionId")
	if !ok {
		return
	}
	pdf, filename, err := h.docs(c).BookingTicket(c.Request.Context(), middleware.GetIdentity(c), id)
	if err != nil {
		RespondDomainError(c, err)
		return
	}
	c.Header("Content-Disposition", contentDisposition(filename))
	c.Data(http.StatusOK, "application/pdf", pdf)
}

// contentDisposition carries an ASCII fallback for old clients plus the
// exact UTF-8 name as an RFC 5987 extended parameter.
func contentDisposition(filename string) string {
	var ascii, ext strings.Builder
	for _, r := range filename {
		if r < 0x20 || r > 0x7e || r == '"' || r == '\\' {
			ascii.WriteByte('_')
		} else {
			ascii.WriteRune(r)
		}
	}
	for _, b := range []byte(filename) {
		if isAttrChar(b) {
			ext.WriteByte(b)
		} else {
			fmt.Fprintf(&ext, "%%%02X", b)
		}
	}
	return `inline; filename="` + ascii.String() + `"; filename*=UTF-8''` + ext.String()
}

func isAttrChar(b byte) bool {
	switch {
	case b >= 'a' && b <= 'z', b >= 'A' && b <= 'Z', b >= '0' && b <= '9':
		return true
	}
	return strings.IndexByte("!#$&+-.^_`|~", b) >= 0
}
