package exporter

import (
	"encoding/csv"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strconv"

	"muniflow/internal/domain"
)

// CSVWriter provides CSV export functionality
type CSVWriter struct {
	outputDir string
	withBOM   bool
	logger    *slog.Logger
}

// NewCSVWriter creates a CSV writer rooted at outputDir
func NewCSVWriter(outputDir string, withBOM bool, logger *slog.Logger) *CSVWriter {
	if logger == nil {
		logger = slog.Default()
	}
	return &CSVWriter{outputDir: outputDir, withBOM: withBOM, logger: logger}
}

// WriteOptions configures one CSV write
type WriteOptions struct {
	Headers []string
	Records [][]string
}

// Write writes a CSV file under the output directory
func (w *CSVWriter) Write(name string, options WriteOptions) (string, error) {
	fullPath := filepath.Join(w.outputDir, name)

	w.logger.Info("writing_csv",
		slog.String("path", fullPath),
		slog.Int("record_count", len(options.Records)))

	if err := os.MkdirAll(filepath.Dir(fullPath), 0755); err != nil {
		return "", fmt.Errorf("failed to create directory: %w", err)
	}

	file, err := os.Create(fullPath)
	if err != nil {
		return "", fmt.Errorf("failed to create file: %w", err)
	}
	defer file.Close()

	if w.withBOM {
		if _, err := file.Write([]byte{0xEF, 0xBB, 0xBF}); err != nil {
			return "", fmt.Errorf("failed to write BOM: %w", err)
		}
	}

	writer := csv.NewWriter(file)
	if len(options.Headers) > 0 {
		if err := writer.Write(options.Headers); err != nil {
			return "", fmt.Errorf("failed to write headers: %w", err)
		}
	}
	for _, record := range options.Records {
		if err := writer.Write(record); err != nil {
			return "", fmt.Errorf("failed to write record: %w", err)
		}
	}
	writer.Flush()
	if err := writer.Error(); err != nil {
		return "", fmt.Errorf("failed to flush csv: %w", err)
	}
	return fullPath, nil
}

// WriteEnterprises exports enterprise records to a CSV file
func (w *CSVWriter) WriteEnterprises(name string, enterprises []domain.Enterprise) (string, error) {
	records := make([][]string, 0, len(enterprises))
	for _, e := range enterprises {
		records = append(records, []string{
			strconv.Itoa(e.ID),
			e.Name,
			string(e.Type),
			strconv.Itoa(e.CitizenCount),
			formatAmount(e.MonthlyExpenses),
			formatAmount(e.CurrentRate),
			formatAmount(e.MonthlyRevenue()),
			string(e.Status),
		})
	}
	return w.Write(name, WriteOptions{
		Headers: []string{"ID", "Name", "Type", "Citizens", "Monthly Expenses", "Current Rate", "Monthly Revenue", "Status"},
		Records: records,
	})
}

// WriteBudgets exports budget snapshots to a CSV file
func (w *CSVWriter) WriteBudgets(name string, budgets []domain.BudgetSnapshot) (string, error) {
	records := make([][]string, 0, len(budgets))
	for _, b := range budgets {
		records = append(records, []string{
			strconv.Itoa(b.EnterpriseID),
			b.Month.Format("2006-01"),
			formatAmount(b.Revenue),
			formatAmount(b.Expenses),
			formatAmount(b.Surplus()),
		})
	}
	return w.Write(name, WriteOptions{
		Headers: []string{"Enterprise ID", "Month", "Revenue", "Expenses", "Surplus"},
		Records: records,
	})
}

func formatAmount(v float64) string {
	return strconv.FormatFloat(v, 'f', 2, 64)
}
