package finance

import (
	"context"
	"fmt"

	"github.com/xuri/excelize/v2"
	"go.uber.org/zap"
)

// SummaryExporter renders the balance summary as an Excel workbook for the
// accounts team.
type SummaryExporter struct {
	ledger *BalanceLedger
	logger *zap.Logger
}

// NewSummaryExporter creates a new exporter.
func NewSummaryExporter(ledger *BalanceLedger, logger *zap.Logger) *SummaryExporter {
	return &SummaryExporter{ledger: ledger, logger: logger}
}

const summarySheet = "Advance Balances"

// Export builds the workbook and returns its bytes.
func (e *SummaryExporter) Export(ctx context.Context) ([]byte, error) {
	summary, err := e.ledger.Summary(ctx)
	if err != nil {
		return nil, err
	}

	f := excelize.NewFile()
	defer f.Close()

	if err := f.SetSheetName("Sheet1", summarySheet); err != nil {
		return nil, fmt.Errorf("failed to prepare workbook: %w", err)
	}

	headerStyle, err := f.NewStyle(&excelize.Style{
		Font: &excelize.Font{Bold: true},
		Fill: excelize.Fill{Type: "pattern", Pattern: 1, Color: []string{"#F7931E"}},
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create header style: %w", err)
	}

	headers := []string{"Employee", "User ID", "Advances Received", "Advance Used", "Running Balance", "Pending Requests"}
	for i, h := range headers {
		cell, _ := excelize.CoordinatesToCellName(i+1, 1)
		if err := f.SetCellValue(summarySheet, cell, h); err != nil {
			return nil, err
		}
	}
	if err := f.SetCellStyle(summarySheet, "A1", "F1", headerStyle); err != nil {
		return nil, err
	}

	row := 2
	for _, user := range summary.Users {
		name := user.UserName
		if name == "" {
			name = user.UserID
		}
		values := []interface{}{
			name,
			user.UserID,
			user.TotalAdvancesReceived.StringFixed(2),
			user.TotalAdvanceUsed.StringFixed(2),
			user.RunningBalance.StringFixed(2),
			user.PendingRequestsCount,
		}
		for i, v := range values {
			cell, _ := excelize.CoordinatesToCellName(i+1, row)
			if err := f.SetCellValue(summarySheet, cell, v); err != nil {
				return nil, err
			}
		}
		row++
	}

	totalsStyle, err := f.NewStyle(&excelize.Style{Font: &excelize.Font{Bold: true}})
	if err != nil {
		return nil, err
	}
	totals := []interface{}{
		"Total",
		"",
		summary.TotalAdvancesGiven.StringFixed(2),
		summary.TotalAdvancesRecovered.StringFixed(2),
		summary.TotalOutstandingAdvances.StringFixed(2),
		"",
	}
	for i, v := range totals {
		cell, _ := excelize.CoordinatesToCellName(i+1, row)
		if err := f.SetCellValue(summarySheet, cell, v); err != nil {
			return nil, err
		}
	}
	start, _ := excelize.CoordinatesToCellName(1, row)
	end, _ := excelize.CoordinatesToCellName(len(totals), row)
	if err := f.SetCellStyle(summarySheet, start, end, totalsStyle); err != nil {
		return nil, err
	}

	if err := f.SetColWidth(summarySheet, "A", "B", 22); err != nil {
		return nil, err
	}
	if err := f.SetColWidth(summarySheet, "C", "F", 18); err != nil {
		return nil, err
	}

	buf, err := f.WriteToBuffer()
	if err != nil {
		e.logger.Error("Failed to serialize balance summary workbook", zap.Error(err))
		return nil, fmt.Errorf("failed to write workbook: %w", err)
	}
	return buf.Bytes(), nil
}
