package certificate

import (
	"fmt"
	"time"

	"github.com/xuri/excelize/v2"
	"go.uber.org/zap"

	"github.com/garyjia/nodue-clearance/internal/application/port"
	"github.com/garyjia/nodue-clearance/internal/domain/entity"
)

const (
	sheetName   = "Certificate"
	dateLayout  = "2006-01-02"
	firstStage  = 12
	contentType = "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"
)

type cellValue struct {
	cell  string
	value interface{}
}

// ExcelRenderer renders the no-dues certificate as an xlsx workbook
type ExcelRenderer struct {
	institution string
	logger      *zap.Logger
}

// NewExcelRenderer creates a new certificate renderer
func NewExcelRenderer(institution string, logger *zap.Logger) *ExcelRenderer {
	return &ExcelRenderer{
		institution: institution,
		logger:      logger,
	}
}

func (r *ExcelRenderer) ContentType() string {
	return contentType
}

func (r *ExcelRenderer) FileExtension() string {
	return ".xlsx"
}

// Render builds the workbook for a fully approved request
func (r *ExcelRenderer) Render(req *entity.Request, issuedAt time.Time) ([]byte, error) {
	if req.Status != entity.RequestStatusFullyApproved {
		return nil, fmt.Errorf("request %s is %s, not fully approved", req.ID, req.Status)
	}

	f := excelize.NewFile()
	defer f.Close()

	if err := f.SetSheetName("Sheet1", sheetName); err != nil {
		return nil, fmt.Errorf("failed to name sheet: %w", err)
	}

	titleStyle, err := f.NewStyle(&excelize.Style{
		Font:      &excelize.Font{Bold: true, Size: 14},
		Alignment: &excelize.Alignment{Horizontal: "center"},
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create style: %w", err)
	}
	headerStyle, err := f.NewStyle(&excelize.Style{Font: &excelize.Font{Bold: true}})
	if err != nil {
		return nil, fmt.Errorf("failed to create style: %w", err)
	}

	p := req.Payload
	cells := []cellValue{
		{"A1", r.institution},
		{"A2", "No Dues Clearance Certificate"},
		{"A4", "Reference"}, {"B4", req.ReferenceCode},
		{"A5", "Name"}, {"B5", p.FullName},
		{"A6", "Father's Name"}, {"B6", p.FatherName},
		{"A7", "Course"}, {"B7", p.Course},
		{"A8", "Pass-out Year"}, {"B8", p.PassOutYear},
		{"A9", "Issued On"}, {"B9", issuedAt.Format(dateLayout)},
		{fmt.Sprintf("A%d", firstStage-1), "Department"},
		{fmt.Sprintf("B%d", firstStage-1), "Status"},
		{fmt.Sprintf("C%d", firstStage-1), "Approved By"},
		{fmt.Sprintf("D%d", firstStage-1), "Date"},
	}
	for i, stage := range req.Stages {
		row := firstStage + i
		date := ""
		if stage.ActionTimestamp != nil {
			date = stage.ActionTimestamp.Format(dateLayout)
		}
		cells = append(cells,
			cellValue{fmt.Sprintf("A%d", row), string(stage.Department)},
			cellValue{fmt.Sprintf("B%d", row), string(stage.Status)},
			cellValue{fmt.Sprintf("C%d", row), stage.ActedBy},
			cellValue{fmt.Sprintf("D%d", row), date},
		)
	}

	for _, c := range cells {
		if err := f.SetCellValue(sheetName, c.cell, c.value); err != nil {
			return nil, fmt.Errorf("failed to set cell %s: %w", c.cell, err)
		}
	}

	if err := f.MergeCell(sheetName, "A1", "D1"); err != nil {
		return nil, fmt.Errorf("failed to merge title: %w", err)
	}
	if err := f.MergeCell(sheetName, "A2", "D2"); err != nil {
		return nil, fmt.Errorf("failed to merge title: %w", err)
	}
	if err := f.SetCellStyle(sheetName, "A1", "A2", titleStyle); err != nil {
		return nil, fmt.Errorf("failed to style title: %w", err)
	}
	header := firstStage - 1
	if err := f.SetCellStyle(sheetName, fmt.Sprintf("A%d", header), fmt.Sprintf("D%d", header), headerStyle); err != nil {
		return nil, fmt.Errorf("failed to style header: %w", err)
	}
	if err := f.SetColWidth(sheetName, "A", "D", 28); err != nil {
		return nil, fmt.Errorf("failed to set column width: %w", err)
	}

	buf, err := f.WriteToBuffer()
	if err != nil {
		return nil, fmt.Errorf("failed to write workbook: %w", err)
	}

	r.logger.Info("Certificate rendered",
		zap.String("request_id", req.ID),
		zap.String("reference_code", req.ReferenceCode),
		zap.Int("size", buf.Len()))

	return buf.Bytes(), nil
}

var _ port.CertificateRenderer = (*ExcelRenderer)(nil)
