package payslip

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/xuri/excelize/v2"
	"go.uber.org/zap"

	"github.com/garyjia/payroll-control/internal/application/port"
	"github.com/garyjia/payroll-control/internal/domain/entity"
)

// RegisterIssuer implements port.PayslipIssuer by writing an xlsx payslip
// register for the run's stored pay lines.
//
// The issuer re-validates status == LOCKED itself and refuses otherwise: it
// may be called defensively from multiple paths, and payslips must never be
// produced for a run that has not passed every gate.
type RegisterIssuer struct {
	runRepo   port.RunRepository
	outputDir string
	logger    *zap.Logger
}

// NewRegisterIssuer creates a payslip register issuer writing into outputDir
func NewRegisterIssuer(runRepo port.RunRepository, outputDir string, logger *zap.Logger) *RegisterIssuer {
	return &RegisterIssuer{
		runRepo:   runRepo,
		outputDir: outputDir,
		logger:    logger,
	}
}

// GenerateForRun writes the payslip register for a locked run
func (i *RegisterIssuer) GenerateForRun(ctx context.Context, runID string, status string) (*port.PayslipResult, error) {
	if status != entity.StatusLocked {
		i.logger.Warn("Refusing payslip generation for non-locked run",
			zap.String("run_id", runID),
			zap.String("status", status))
		return &port.PayslipResult{
			OK:      false,
			Message: fmt.Sprintf("run is %s, payslips require LOCKED", status),
		}, nil
	}

	if err := ctx.Err(); err != nil {
		return nil, fmt.Errorf("payslip generation cancelled: %w", err)
	}

	lines, err := i.runRepo.GetPayLines(ctx, runID)
	if err != nil {
		return nil, fmt.Errorf("load pay lines: %w", err)
	}

	if err := os.MkdirAll(i.outputDir, 0755); err != nil {
		return nil, fmt.Errorf("create output directory: %w", err)
	}

	outputPath := filepath.Join(i.outputDir, fmt.Sprintf("payslips_%s.xlsx", runID))
	if err := i.writeRegister(outputPath, runID, lines); err != nil {
		return nil, err
	}

	i.logger.Info("Payslip register generated",
		zap.String("run_id", runID),
		zap.Int("count", len(lines)),
		zap.String("path", outputPath))

	return &port.PayslipResult{
		OK:             true,
		GeneratedCount: len(lines),
		Message:        outputPath,
	}, nil
}

func (i *RegisterIssuer) writeRegister(outputPath, runID string, lines []entity.PayLine) error {
	f := excelize.NewFile()
	defer f.Close()

	sheetName := "Payslips"
	if err := f.SetSheetName(f.GetSheetName(0), sheetName); err != nil {
		return fmt.Errorf("rename sheet: %w", err)
	}

	i.setCell(f, sheetName, "A1", "Payroll Run")
	i.setCell(f, sheetName, "B1", runID)
	i.setCell(f, sheetName, "A2", "Generated")
	i.setCell(f, sheetName, "B2", time.Now().Format("2006-01-02 15:04:05"))

	i.setCell(f, sheetName, "A4", "Employee ID")
	i.setCell(f, sheetName, "B4", "Bank Account")
	i.setCell(f, sheetName, "C4", "Net Pay")

	for idx, line := range lines {
		row := idx + 5
		i.setCell(f, sheetName, fmt.Sprintf("A%d", row), line.EmployeeID)
		i.setCell(f, sheetName, fmt.Sprintf("B%d", row), line.BankAccount)
		i.setCell(f, sheetName, fmt.Sprintf("C%d", row), line.NetPay.String())
	}

	if err := f.SaveAs(outputPath); err != nil {
		return fmt.Errorf("failed to save payslip register: %w", err)
	}

	return nil
}

// setCell sets a cell value, logging failures without aborting the fill
func (i *RegisterIssuer) setCell(f *excelize.File, sheet, cell string, value interface{}) {
	if err := f.SetCellValue(sheet, cell, value); err != nil {
		i.logger.Error("Failed to set cell",
			zap.String("sheet", sheet),
			zap.String("cell", cell),
			zap.Error(err))
	}
}

// Verify interface compliance
var _ port.PayslipIssuer = (*RegisterIssuer)(nil)
