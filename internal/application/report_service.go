package application

import (
	"context"
	"fmt"
	"io"
	"time"

	"github.com/xuri/excelize/v2"
	"go.uber.org/zap"

	bookingDomain "github.com/rentnest/service-rental/internal/domain/booking"
	"github.com/rentnest/service-rental/pkg/domain"
)

const exportSheet = "Bookings"

var exportHeaders = []string{
	"Booking Number", "Booking ID", "Property ID", "Renter ID", "Owner ID", "Status",
	"Start Date", "End Date", "Open Ended", "Monthly Rate", "Total Amount", "Currency",
	"Renter Phone", "Created At",
}

// BookingStatsDTO holds booking statistics for the admin dashboard.
type BookingStatsDTO struct {
	TotalBookings   int64              `json:"total_bookings"`
	ByStatus        map[string]int64   `json:"by_status"`
	AmountByStatus  map[string]float64 `json:"amount_by_status"`
	RealizedRevenue float64            `json:"realized_revenue"`
}

// ReportQuery narrows the bookings included in an export.
type ReportQuery struct {
	Status string `form:"status"`
	From   string `form:"from"`
	To     string `form:"to"`
}

// ReportService builds admin booking reports.
type ReportService struct {
	repo   bookingDomain.BookingRepository
	logger *zap.Logger
}

// NewReportService creates a new ReportService.
func NewReportService(repo bookingDomain.BookingRepository, logger *zap.Logger) *ReportService {
	return &ReportService{repo: repo, logger: logger}
}

// GetBookingStats returns counts per status and the fixed-range amounts per
// status. Realized revenue is the paid plus completed amount.
func (s *ReportService) GetBookingStats(ctx context.Context) (*BookingStatsDTO, error) {
	counts, err := s.repo.CountByStatus(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to get booking stats: %w", err)
	}
	amounts, err := s.repo.SumAmountByStatus(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to get booking amounts: %w", err)
	}

	stats := &BookingStatsDTO{
		ByStatus:       make(map[string]int64, len(bookingDomain.AllStatuses)),
		AmountByStatus: make(map[string]float64, len(bookingDomain.AllStatuses)),
	}
	for _, st := range bookingDomain.AllStatuses {
		stats.ByStatus[string(st)] = counts[string(st)]
		stats.AmountByStatus[string(st)] = amounts[string(st)]
		stats.TotalBookings += counts[string(st)]
	}
	stats.RealizedRevenue = amounts[string(bookingDomain.StatusPaid)] + amounts[string(bookingDomain.StatusCompleted)]
	return stats, nil
}

// ExportBookings writes an .xlsx workbook with one row per matching booking.
func (s *ReportService) ExportBookings(ctx context.Context, q ReportQuery, w io.Writer) error {
	filter, err := q.toFilter()
	if err != nil {
		return err
	}

	bookings, err := s.repo.ListForReport(ctx, filter)
	if err != nil {
		return fmt.Errorf("failed to load bookings for export: %w", err)
	}

	f := excelize.NewFile()
	defer func() {
		if err := f.Close(); err != nil {
			s.logger.Warn("failed to close workbook", zap.Error(err))
		}
	}()

	if err := f.SetSheetName("Sheet1", exportSheet); err != nil {
		return fmt.Errorf("failed to name sheet: %w", err)
	}

	headerStyle, err := f.NewStyle(&excelize.Style{
		Fill:      excelize.Fill{Type: "pattern", Color: []string{"#DDEBF7"}, Pattern: 1},
		Font:      &excelize.Font{Bold: true},
		Alignment: &excelize.Alignment{Horizontal: "center"},
	})
	if err != nil {
		return fmt.Errorf("failed to create header style: %w", err)
	}

	for i, h := range exportHeaders {
		cell, _ := excelize.CoordinatesToCellName(i+1, 1)
		if err := f.SetCellValue(exportSheet, cell, h); err != nil {
			return fmt.Errorf("failed to write header: %w", err)
		}
	}
	lastHeader, _ := excelize.CoordinatesToCellName(len(exportHeaders), 1)
	if err := f.SetCellStyle(exportSheet, "A1", lastHeader, headerStyle); err != nil {
		return fmt.Errorf("failed to style header: %w", err)
	}

	for r, bk := range bookings {
		if err := writeBookingRow(f, r+2, bk); err != nil {
			return err
		}
	}

	lastCol, _ := excelize.ColumnNumberToName(len(exportHeaders))
	if err := f.SetColWidth(exportSheet, "A", lastCol, 18); err != nil {
		return fmt.Errorf("failed to size columns: %w", err)
	}

	if _, err := f.WriteTo(w); err != nil {
		return fmt.Errorf("failed to write workbook: %w", err)
	}

	s.logger.Info("booking export generated", zap.Int("rows", len(bookings)))
	return nil
}

func writeBookingRow(f *excelize.File, row int, bk *bookingDomain.Booking) error {
	endDate := ""
	if bk.EndDate() != nil {
		endDate = bk.EndDate().Format(dateLayout)
	}
	values := []interface{}{
		bk.BookingNumber(),
		bk.ID().String(),
		bk.PropertyID().String(),
		bk.RenterID().String(),
		bk.OwnerID().String(),
		string(bk.Status()),
		bk.StartDate().Format(dateLayout),
		endDate,
		bk.OpenEnded(),
		bk.MonthlyRate(),
		bk.TotalAmount(),
		bk.Currency(),
		bk.RenterPhone(),
		bk.CreatedAt().Format(time.RFC3339),
	}
	cell, _ := excelize.CoordinatesToCellName(1, row)
	if err := f.SetSheetRow(exportSheet, cell, &values); err != nil {
		return fmt.Errorf("failed to write row %d: %w", row, err)
	}
	return nil
}

func (q ReportQuery) toFilter() (bookingDomain.ReportFilter, error) {
	var filter bookingDomain.ReportFilter
	if q.Status != "" {
		st, err := bookingDomain.ParseBookingStatus(q.Status)
		if err != nil {
			return filter, err
		}
		filter.Status = &st
	}
	if q.From != "" {
		from, err := parseDate("from", q.From)
		if err != nil {
			return filter, err
		}
		filter.From = &from
	}
	if q.To != "" {
		to, err := parseDate("to", q.To)
		if err != nil {
			return filter, err
		}
		filter.To = &to
	}
	if filter.From != nil && filter.To != nil && filter.To.Before(*filter.From) {
		return filter, domain.NewValidationError("to must not be before from")
	}
	return filter, nil
}
