package service

import (
	"bytes"
	"context"
	"fmt"
	"regexp"
	"strings"
	"time"

	"github.com/phpdave11/gofpdf"

	"busticket/internal/domain"
	"busticket/internal/repository"
	"busticket/pkg/logger"
)

// TicketService renders e-tickets for bookings.
type TicketService struct {
	bookings repository.BookingRepository
	routes   repository.RouteRepository
	buses    repository.BusRepository
	log      logger.Logger
	now      func() time.Time
}

// NewTicketService creates a new TicketService.
func NewTicketService(bookings repository.BookingRepository, routes repository.RouteRepository, buses repository.BusRepository, log logger.Logger) *TicketService {
	return &TicketService{
		bookings: bookings,
		routes:   routes,
		buses:    buses,
		log:      log,
		now:      time.Now,
	}
}

// Ticket holds everything printed on an e-ticket.
type Ticket struct {
	Booking *domain.Booking
	Route   *domain.Route
	Bus     *domain.Bus
}

// Code is the printed ticket reference.
func (t *Ticket) Code() string {
	return fmt.Sprintf("TCK-%06d", t.Booking.ID)
}

// GenerateTicket renders the PDF e-ticket of a CONFIRMED booking and returns
// it with a suggested file name.
func (s *TicketService) GenerateTicket(ctx context.Context, bookingID int64) ([]byte, string, error) {
	t, err := s.load(ctx, bookingID)
	if err != nil {
		return nil, "", err
	}

	pdfBytes, err := s.render(t)
	if err != nil {
		return nil, "", storageErr("render ticket", err)
	}

	filename := fmt.Sprintf("ETICKET_%d_%s.pdf", t.Booking.ID, safeFilenamePart(t.Booking.PassengerName))
	s.log.Info("ticket generated", "booking_id", t.Booking.ID, "bytes", len(pdfBytes))
	return pdfBytes, filename, nil
}

func (s *TicketService) load(ctx context.Context, bookingID int64) (*Ticket, error) {
	if bookingID <= 0 {
		return nil, invalid("booking_id", "must be positive")
	}
	b, err := s.bookings.GetByID(ctx, bookingID)
	if err != nil {
		return nil, lookupErr("get booking", "booking", bookingID, err)
	}
	if !b.IsConfirmed() {
		return nil, fmt.Errorf("booking %d: %w", b.ID, ErrBookingCancelled)
	}
	route, err := s.routes.GetByID(ctx, b.RouteID)
	if err != nil {
		return nil, lookupErr("get route", "route", b.RouteID, err)
	}
	bus, err := s.buses.GetByID(ctx, b.BusID)
	if err != nil {
		return nil, lookupErr("get bus", "bus", b.BusID, err)
	}
	return &Ticket{Booking: b, Route: route, Bus: bus}, nil
}

// Lines returns the ticket body as label/value rows.
func (t *Ticket) Lines() [][2]string {
	b := t.Booking
	seats := "-"
	if len(b.SelectedSeats) > 0 {
		seats = strings.Join(b.SelectedSeats, ", ")
	}
	travel := "-"
	if b.TravelDate != nil {
		travel = b.TravelDate.Format(domain.DateLayout)
	}
	departure := safe(t.Route.DepartureTime, "-")
	if t.Route.ArrivalTime != "" {
		departure += " -> " + t.Route.ArrivalTime
	}

	return [][2]string{
		{"Ticket", t.Code()},
		{"Booking", fmt.Sprintf("#%d", b.ID)},
		{"Passenger", b.PassengerName},
		{"Email", b.PassengerEmail},
		{"Phone", b.PassengerPhone},
		{"NIC", safe(b.PassengerNIC, "-")},
		{"Route", t.Route.FromLocation + " -> " + t.Route.ToLocation},
		{"Schedule", departure},
		{"Travel date", travel},
		{"Bus", fmt.Sprintf("%s (%s)", t.Bus.Name, t.Bus.RegistrationNumber)},
		{"Seats", fmt.Sprintf("%d [%s]", b.NumberOfSeats, seats)},
		{"Unit price", t.Route.TicketPrice.String()},
		{"Total", b.TotalPrice.String()},
		{"Booked at", b.BookingDate.Format("2006-01-02 15:04")},
	}
}

func (s *TicketService) render(t *Ticket) ([]byte, error) {
	pdf := gofpdf.New("P", "mm", "A4", "")
	pdf.SetTitle("E-Ticket "+t.Code(), false)
	pdf.SetCreator("busticket", false)
	pdf.AddPage()

	pdf.SetFont("Helvetica", "B", 18)
	pdf.Cell(0, 10, "E-TICKET")
	pdf.Ln(12)

	pdf.SetFont("Helvetica", "", 12)
	for _, row := range t.Lines() {
		pdf.SetFont("Helvetica", "B", 12)
		pdf.Cell(40, 7, row[0])
		pdf.SetFont("Helvetica", "", 12)
		pdf.Cell(0, 7, row[1])
		pdf.Ln(7)
	}

	pdf.Ln(6)
	pdf.SetFont("Helvetica", "I", 10)
	pdf.MultiCell(0, 6, fmt.Sprintf(
		"Valid for %d seat(s) on the route above. Please present this ticket when boarding. Issued %s.",
		t.Booking.NumberOfSeats, s.now().Format("2006-01-02 15:04"),
	), "", "", false)

	var buf bytes.Buffer
	if err := pdf.Output(&buf); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

var unsafeFilenameChars = regexp.MustCompile(`[^A-Za-z0-9_-]+`)

func safeFilenamePart(s string) string {
	s = unsafeFilenameChars.ReplaceAllString(strings.TrimSpace(s), "_")
	s = strings.Trim(s, "_")
	if s == "" {
		return "ticket"
	}
	return s
}

func safe(s, fallback string) string {
	if strings.TrimSpace(s) == "" {
		return fallback
	}
	return s
}
