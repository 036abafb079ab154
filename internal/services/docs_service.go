package services

import (
	"bytes"
	"context"
	_ "embed"
	"fmt"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/phpdave11/gofpdf"
	"github.com/skip2/go-qrcode"

	"tourbackend/internal/domain"
	"tourbackend/internal/utils"
)

// Core PDF fonts are cp1252 only; names and start points are often Cyrillic.
var (
	//go:embed fonts/DejaVuSansCondensed.ttf
	ticketFontRegular []byte
	//go:embed fonts/DejaVuSansCondensed-Bold.ttf
	ticketFontBold []byte
)

const (
	ticketFont          = "DejaVu"
	maxFilenamePartRune = 40
)

// DocsService renders booking tickets as PDF.
type DocsService struct {
	Bookings  BookingService
	Users     UserRepository
	RequestID string
}

type ticketData struct {
	BookingID   int64
	ExcursionID int64
	UserID      int64
	HolderName  string
	Email       string
	StartPoint  string
	StartDate   string
	StartTime   string
	AllDays     int
	AgeLimit    int
	Seats       int
	BandA       float64
	BandB       float64
	BandC       float64
	UnitCents   int64
	AvgCents    int64
	TotalCents  int64
	IssuedAt    time.Time
}

// BookingTicket builds the ticket for the caller's active booking on an excursion.
func (s DocsService) BookingTicket(ctx context.Context, who domain.Identity, excursionID int64) ([]byte, string, error) {
	data, err := s.loadTicketData(ctx, who, excursionID)
	if err != nil {
		return nil, "", err
	}
	utils.LogEvent(s.RequestID, "docs", "generate_ticket", fmt.Sprintf("booking_id=%d excursion_id=%d", data.BookingID, excursionID))
	return buildTicketPDF(data)
}

func (s DocsService) loadTicketData(ctx context.Context, who domain.Identity, excursionID int64) (ticketData, error) {
	ub, err := s.Bookings.ActiveBooking(ctx, who, excursionID)
	if err != nil {
		return ticketData{}, err
	}
	out := ticketData{
		BookingID:   ub.Booking.ID,
		ExcursionID: ub.Excursion.ID,
		UserID:      ub.Booking.UserID,
		StartPoint:  ub.Excursion.StartPoint,
		StartDate:   utils.FormatDate(ub.Excursion.StartDate),
		StartTime:   ub.Excursion.StartTime,
		AllDays:     ub.Excursion.AllDays,
		AgeLimit:    ub.Excursion.AgeLimit,
		Seats:       ub.Booking.Seats,
		BandA:       ub.Quote.BandASeats,
		BandB:       ub.Quote.BandBSeats,
		BandC:       ub.Quote.BandCSeats,
		UnitCents:   ub.Quote.UnitCostCents,
		AvgCents:    ub.Quote.AveragePerSlotCents,
		TotalCents:  ub.Quote.TotalCents,
		IssuedAt:    time.Now(),
	}
	if s.Users != nil {
		if u, err := s.Users.GetByID(ctx, s.Bookings.Store.Reader(), who.UserID); err == nil {
			out.HolderName = strings.TrimSpace(strings.Join([]string{u.LastName, u.FirstName, u.Patronymic}, " "))
			out.Email = u.Email
		}
	}
	return out, nil
}

func ticketReference(d ticketData) string {
	return fmt.Sprintf("BK-%d-%d-%d", d.BookingID, d.ExcursionID, d.UserID)
}

func buildTicketPDF(d ticketData) ([]byte, string, error) {
	pdf, err := newTicketPDF(d)
	if err != nil {
		return nil, "", err
	}
	var buf bytes.Buffer
	if err := pdf.Output(&buf); err != nil {
		return nil, "", domain.InternalError{Msg: "render ticket failed", Err: err}
	}
	return buf.Bytes(), ticketFilename(d), nil
}

func newTicketPDF(d ticketData) (*gofpdf.Fpdf, error) {
	ref := ticketReference(d)
	qr, err := qrcode.Encode(ref, qrcode.Medium, 256)
	if err != nil {
		return nil, domain.InternalError{Msg: "qr encode failed", Err: err}
	}

	pdf := gofpdf.New("P", "mm", "A4", "")
	pdf.AddUTF8FontFromBytes(ticketFont, "", ticketFontRegular)
	pdf.AddUTF8FontFromBytes(ticketFont, "B", ticketFontBold)
	pdf.SetTitle("Excursion ticket", true)
	pdf.AddPage()
	pdf.SetFont(ticketFont, "B", 18)
	pdf.Cell(0, 10, "EXCURSION TICKET")
	pdf.Ln(12)

	opts := gofpdf.ImageOptions{ImageType: "PNG"}
	pdf.RegisterImageOptionsReader("qr", opts, bytes.NewReader(qr))
	pdf.ImageOptions("qr", 150, 12, 45, 45, false, opts, 0, "")

	pdf.SetFont(ticketFont, "", 12)
	lines := []string{
		fmt.Sprintf("Reference      : %s", ref),
		fmt.Sprintf("Holder         : %s", safe(d.HolderName, "-")),
		fmt.Sprintf("Email          : %s", safe(d.Email, "-")),
		fmt.Sprintf("Start point    : %s", safe(d.StartPoint, "-")),
		fmt.Sprintf("Start          : %s %s", safe(d.StartDate, "-"), safe(d.StartTime, "-")),
		fmt.Sprintf("Duration       : %d day(s)", d.AllDays),
		fmt.Sprintf("Age limit      : %d+", d.AgeLimit),
		fmt.Sprintf("Seats          : %d", d.Seats),
	}
	for _, s := range lines {
		pdf.Cell(0, 7, s)
		pdf.Ln(7)
	}

	pdf.Ln(4)
	pdf.SetFont(ticketFont, "B", 12)
	pdf.Cell(0, 7, "Price breakdown:")
	pdf.Ln(8)
	pdf.SetFont(ticketFont, "", 11)
	breakdown := []string{
		fmt.Sprintf("Base price per seat : %s", utils.FormatMoney(d.UnitCents)),
		fmt.Sprintf("Seats at -25%%       : %s", formatSeats(d.BandA)),
		fmt.Sprintf("Seats at -10%%       : %s", formatSeats(d.BandB)),
		fmt.Sprintf("Seats at full price : %s", formatSeats(d.BandC)),
		fmt.Sprintf("Average per seat    : %s", utils.FormatMoney(d.AvgCents)),
	}
	for _, s := range breakdown {
		pdf.Cell(0, 6, s)
		pdf.Ln(6)
	}
	pdf.Ln(2)
	pdf.SetFont(ticketFont, "B", 12)
	pdf.Cell(0, 8, "Total: "+utils.FormatMoney(d.TotalCents))
	pdf.Ln(12)

	pdf.SetFont(ticketFont, "", 10)
	issued := d.IssuedAt
	if issued.IsZero() {
		issued = time.Now()
	}
	pdf.MultiCell(0, 6, "Prices follow the current fill of the excursion and may differ for seats added later. Issued "+issued.Format("2006-01-02 15:04")+".", "", "", false)

	if err := pdf.Error(); err != nil {
		return nil, domain.InternalError{Msg: "render ticket failed", Err: err}
	}
	return pdf, nil
}

func ticketFilename(d ticketData) string {
	return fmt.Sprintf("TICKET_%d_%s.pdf", d.BookingID, safeFilenamePart(d.StartPoint+"_"+d.StartDate))
}

func formatSeats(v float64) string {
	if v == float64(int64(v)) {
		return fmt.Sprintf("%d", int64(v))
	}
	return fmt.Sprintf("%.1f", v)
}

func safe(v, fallback string) string {
	v = strings.TrimSpace(v)
	if v == "" {
		return fallback
	}
	return v
}

func safeFilenamePart(s string) string {
	s = strings.TrimSpace(s)
	if s == "" {
		return "NA"
	}
	replacer := strings.NewReplacer(" ", "_", "/", "_", "\\", "_", ":", "_", "*", "_", "?", "_", "\"", "_", "<", "_", ">", "_", "|", "_")
	s = strings.ToValidUTF8(replacer.Replace(s), "_")
	if utf8.RuneCountInString(s) > maxFilenamePartRune {
		s = string([]rune(s)[:maxFilenamePartRune])
	}
	return s
}
