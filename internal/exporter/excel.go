package exporter

import (
	"fmt"
	"log/slog"
	"os"
	"path/filepath"

	"github.com/xuri/excelize/v2"

	"muniflow/internal/domain"
)

const (
	sheetEnterprises = "Enterprises"
	sheetBudgets     = "Budgets"
)

// ExcelWriter builds XLSX report workbooks
type ExcelWriter struct {
	outputDir string
	logger    *slog.Logger
}

// NewExcelWriter creates an Excel writer rooted at outputDir
func NewExcelWriter(outputDir string, logger *slog.Logger) *ExcelWriter {
	if logger == nil {
		logger = slog.Default()
	}
	return &ExcelWriter{outputDir: outputDir, logger: logger}
}

// WriteReport writes a workbook with an enterprise sheet and a budget
// sheet and returns the written path
func (w *ExcelWriter) WriteReport(name string, enterprises []domain.Enterprise, budgets []domain.BudgetSnapshot) (string, error) {
	fullPath := filepath.Join(w.outputDir, name)

	w.logger.Info("writing_excel_report",
		slog.String("path", fullPath),
		slog.Int("enterprise_count", len(enterprises)),
		slog.Int("budget_count", len(budgets)))

	if err := os.MkdirAll(filepath.Dir(fullPath), 0755); err != nil {
		return "", fmt.Errorf("failed to create directory: %w", err)
	}

	f := excelize.NewFile()
	defer f.Close()

	if err := w.writeEnterpriseSheet(f, enterprises); err != nil {
		return "", err
	}
	if err := w.writeBudgetSheet(f, budgets); err != nil {
		return "", err
	}

	// Drop the default sheet excelize creates.
	if err := f.DeleteSheet("Sheet1"); err != nil {
		return "", fmt.Errorf("failed to delete default sheet: %w", err)
	}

	if err := f.SaveAs(fullPath); err != nil {
		return "", fmt.Errorf("failed to save workbook: %w", err)
	}
	return fullPath, nil
}

func (w *ExcelWriter) writeEnterpriseSheet(f *excelize.File, enterprises []domain.Enterprise) error {
	if _, err := f.NewSheet(sheetEnterprises); err != nil {
		return fmt.Errorf("failed to create sheet: %w", err)
	}

	headers := []any{"ID", "Name", "Type", "Citizens", "Monthly Expenses", "Current Rate", "Monthly Revenue", "Status"}
	if err := f.SetSheetRow(sheetEnterprises, "A1", &headers); err != nil {
		return fmt.Errorf("failed to write headers: %w", err)
	}

	for i, e := range enterprises {
		cell := fmt.Sprintf("A%d", i+2)
		row := []any{e.ID, e.Name, string(e.Type), e.CitizenCount, e.MonthlyExpenses, e.CurrentRate, e.MonthlyRevenue(), string(e.Status)}
		if err := f.SetSheetRow(sheetEnterprises, cell, &row); err != nil {
			return fmt.Errorf("failed to write row %d: %w", i+2, err)
		}
	}
	return nil
}

func (w *ExcelWriter) writeBudgetSheet(f *excelize.File, budgets []domain.BudgetSnapshot) error {
	if _, err := f.NewSheet(sheetBudgets); err != nil {
		return fmt.Errorf("failed to create sheet: %w", err)
	}

	headers := []any{"Enterprise ID", "Month", "Revenue", "Expenses", "Surplus"}
	if err := f.SetSheetRow(sheetBudgets, "A1", &headers); err != nil {
		return fmt.Errorf("failed to write headers: %w", err)
	}

	for i, b := range budgets {
		cell := fmt.Sprintf("A%d", i+2)
		row := []any{b.EnterpriseID, b.Month.Format("2006-01"), b.Revenue, b.Expenses, b.Surplus()}
		if err := f.SetSheetRow(sheetBudgets, cell, &row); err != nil {
			return fmt.Errorf("failed to write row %d: %w", i+2, err)
		}
	}
	return nil
}
