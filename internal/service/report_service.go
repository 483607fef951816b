package service

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"tasker/internal/models"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"github.com/xuri/excelize/v2"
)

const reportSheet = "Report"

// ReportService builds the worker's monthly xlsx report.
type ReportService struct {
	jobs       *JobService
	exportPath string
	location   *time.Location
	logger     *zerolog.Logger
}

func NewReportService(jobs *JobService, exportPath string, location *time.Location, logger *zerolog.Logger) *ReportService {
	if location == nil {
		location = time.UTC
	}
	return &ReportService{jobs: jobs, exportPath: exportPath, location: location, logger: logger}
}

// ParseMonth reads YYYY-MM in the report time zone.
func (s *ReportService) ParseMonth(raw string) (time.Time, error) {
	month, err := time.ParseInLocation(models.MonthLayout, raw, s.location)
	if err != nil {
		return time.Time{}, fmt.Errorf("invalid month %q, expected YYYY-MM", raw)
	}
	return month, nil
}

// WorkerReport writes completed jobs of month into a new file and returns its path.
func (s *ReportService) WorkerReport(ctx context.Context, month time.Time) (string, error) {
	if err := os.MkdirAll(s.exportPath, 0o755); err != nil {
		return "", fmt.Errorf("create export directory: %w", err)
	}

	jobs, err := s.jobs.CompletedInMonth(ctx, month.In(s.location))
	if err != nil {
		return "", err
	}

	f := excelize.NewFile()
	defer f.Close()

	index, err := f.NewSheet(reportSheet)
	if err != nil {
		return "", fmt.Errorf("create sheet: %w", err)
	}
	f.SetActiveSheet(index)

	_ = f.SetCellValue(reportSheet, "A1", fmt.Sprintf("Completed jobs: %s", month.Format("January 2006")))
	_ = f.MergeCell(reportSheet, "A1", "F1")
	titleStyle, _ := f.NewStyle(&excelize.Style{
		Font:      &excelize.Font{Bold: true, Size: 14},
		Alignment: &excelize.Alignment{Horizontal: "center"},
	})
	_ = f.SetCellStyle(reportSheet, "A1", "A1", titleStyle)

	s.writeHeader(f)
	hours, income := s.writeRows(f, jobs)

	totalRow := len(jobs) + 4
	cell := func(col int) string {
		name, _ := excelize.CoordinatesToCellName(col, totalRow)
		return name
	}
	_ = f.SetCellValue(reportSheet, cell(1), "Total")
	_ = f.SetCellValue(reportSheet, cell(2), len(jobs))
	_ = f.SetCellValue(reportSheet, cell(5), hours)
	_ = f.SetCellValue(reportSheet, cell(6), income)
	totalStyle, _ := f.NewStyle(&excelize.Style{
		Font: &excelize.Font{Bold: true},
		Fill: excelize.Fill{Type: "pattern", Color: []string{"#E2EFDA"}, Pattern: 1},
	})
	_ = f.SetCellStyle(reportSheet, cell(1), cell(6), totalStyle)

	_ = f.SetColWidth(reportSheet, "A", "B", 14)
	_ = f.SetColWidth(reportSheet, "C", "C", 28)
	_ = f.SetColWidth(reportSheet, "D", "D", 40)
	_ = f.SetColWidth(reportSheet, "E", "F", 14)

	// Удаляем стандартный лист
	_ = f.DeleteSheet("Sheet1")

	fileName := fmt.Sprintf("worker_report_%s_%s.xlsx", month.Format(models.MonthLayout), uuid.NewString()[:8])
	filePath := filepath.Join(s.exportPath, fileName)
	if err := f.SaveAs(filePath); err != nil {
		return "", fmt.Errorf("save report: %w", err)
	}

	s.logger.Info().Str("file_path", filePath).Int("jobs", len(jobs)).Msg("worker report created")
	return filePath, nil
}

func (s *ReportService) writeHeader(f *excelize.File) {
	headers := []string{"Date", "Time", "Service", "Address", "Hours", "Price"}
	style, _ := f.NewStyle(&excelize.Style{
		Fill:      excelize.Fill{Type: "pattern", Color: []string{"#DDEBF7"}, Pattern: 1},
		Font:      &excelize.Font{Bold: true},
		Alignment: &excelize.Alignment{Horizontal: "center"},
	})
	for i, h := range headers {
		cell, _ := excelize.CoordinatesToCellName(i+1, 3)
		_ = f.SetCellValue(reportSheet, cell, h)
		_ = f.SetCellStyle(reportSheet, cell, cell, style)
	}
}

func (s *ReportService) writeRows(f *excelize.File, jobs []models.JobView) (hours int, income float64) {
	for i, j := range jobs {
		row := i + 4
		at := j.ScheduledTime.In(s.location)
		values := []any{
			at.Format("02.01.2006"),
			at.Format(models.TimeOfDayLayout),
			j.ServiceName,
			j.Address,
			j.DurationHours,
			j.Price,
		}
		for col, v := range values {
			cell, _ := excelize.CoordinatesToCellName(col+1, row)
			_ = f.SetCellValue(reportSheet, cell, v)
		}
		hours += j.DurationHours
		income += j.Price
	}
	return hours, income
}
