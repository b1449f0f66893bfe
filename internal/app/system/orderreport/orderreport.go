// internal/app/system/orderreport/orderreport.go
//
// Package orderreport renders work orders as XLSX workbooks: a flat list for
// bulk export, and a two-sheet report for a single order.
package orderreport

import (
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/dalemusser/confinedspace/internal/domain/models"
	"github.com/xuri/excelize/v2"
)

// ContentType is the MIME type of the workbooks written here.
const ContentType = "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"

// Sheet names.
const (
	SheetOrders   = "Work Orders"
	SheetSurvey   = "Survey"
	SheetWorkflow = "Workflow"
)

const dateLayout = "2006-01-02"

// column is one exported field.
type column struct {
	Header string
	Width  float64
	Value  func(o models.Order) any
}

var listColumns = []column{
	{"Work Order ID", 18, func(o models.Order) any { return o.WorkOrderID }},
	{"Unique ID", 10, func(o models.Order) any { return o.UniqueID }},
	{"Status", 12, func(o models.Order) any { return string(o.Status) }},
	{"Priority", 10, func(o models.Order) any { return string(o.Priority) }},
	{"Date of Survey", 14, func(o models.Order) any { return formatDate(o.DateOfSurvey) }},
	{"Space Name", 28, func(o models.Order) any { return o.SpaceName }},
	{"Building", 22, func(o models.Order) any { return o.Building }},
	{"Location", 30, func(o models.Order) any { return o.LocationDescription }},
	{"Surveyors", 24, func(o models.Order) any { return strings.Join(o.Surveyors, ", ") }},
	{"Technician", 20, func(o models.Order) any { return o.Technician }},
	{"Confined Space", 10, func(o models.Order) any { return yesNo(o.ConfinedSpace) }},
	{"Permit Required", 10, func(o models.Order) any { return yesNo(o.PermitRequired) }},
	{"Entry Points", 10, func(o models.Order) any { return o.NumberOfEntryPoints }},
	{"Created By", 20, func(o models.Order) any { return o.CreatedBy }},
	{"Created At", 18, func(o models.Order) any { return formatTime(o.CreatedAt) }},
	{"Updated At", 18, func(o models.Order) any { return formatTime(o.UpdatedAt) }},
}

// WriteList writes one row per order to a single "Work Orders" sheet.
func WriteList(w io.Writer, orders []models.Order) error {
	f := excelize.NewFile()
	defer f.Close()

	if err := f.SetSheetName(f.GetSheetName(0), SheetOrders); err != nil {
		return err
	}
	st, err := newStyles(f)
	if err != nil {
		return err
	}

	for i, c := range listColumns {
		cell, _ := excelize.CoordinatesToCellName(i+1, 1)
		if err := f.SetCellValue(SheetOrders, cell, c.Header); err != nil {
			return err
		}
		col, _ := excelize.ColumnNumberToName(i + 1)
		if err := f.SetColWidth(SheetOrders, col, col, c.Width); err != nil {
			return err
		}
	}
	last, _ := excelize.CoordinatesToCellName(len(listColumns), 1)
	if err := f.SetCellStyle(SheetOrders, "A1", last, st.header); err != nil {
		return err
	}

	for r, o := range orders {
		row := make([]any, len(listColumns))
		for i, c := range listColumns {
			row[i] = c.Value(o)
		}
		cell, _ := excelize.CoordinatesToCellName(1, r+2)
		if err := f.SetSheetRow(SheetOrders, cell, &row); err != nil {
			return fmt.Errorf("row %d: %w", r+2, err)
		}
	}

	if err := f.SetPanes(SheetOrders, &excelize.Panes{
		Freeze: true, YSplit: 1, TopLeftCell: "A2", ActivePane: "bottomLeft",
	}); err != nil {
		return err
	}
	return f.Write(w)
}

// WriteOrder writes a report for one order: a label/value "Survey" sheet
// and a "Workflow" sheet with its history.
func WriteOrder(w io.Writer, o models.Order) error {
	f := excelize.NewFile()
	defer f.Close()

	if err := f.SetSheetName(f.GetSheetName(0), SheetSurvey); err != nil {
		return err
	}
	if _, err := f.NewSheet(SheetWorkflow); err != nil {
		return err
	}
	st, err := newStyles(f)
	if err != nil {
		return err
	}

	if err := writeSurvey(f, st, o); err != nil {
		return err
	}
	if err := writeWorkflow(f, st, o.WorkflowHistory); err != nil {
		return err
	}
	return f.Write(w)
}

func writeSurvey(f *excelize.File, st styles, o models.Order) error {
	title := "Confined Space Survey " + o.WorkOrderID
	if err := f.SetCellValue(SheetSurvey, "A1", title); err != nil {
		return err
	}
	if err := f.MergeCell(SheetSurvey, "A1", "B1"); err != nil {
		return err
	}
	if err := f.SetCellStyle(SheetSurvey, "A1", "B1", st.title); err != nil {
		return err
	}
	_ = f.SetColWidth(SheetSurvey, "A", "A", 36)
	_ = f.SetColWidth(SheetSurvey, "B", "B", 60)

	rows := surveyRows(o)
	for i, kv := range rows {
		r := i + 3
		if kv[0] == "" {
			continue
		}
		if err := f.SetSheetRow(SheetSurvey, fmt.Sprintf("A%d", r), &[]any{kv[0], kv[1]}); err != nil {
			return err
		}
		if err := f.SetCellStyle(SheetSurvey, fmt.Sprintf("A%d", r), fmt.Sprintf("A%d", r), st.label); err != nil {
			return err
		}
		if err := f.SetCellStyle(SheetSurvey, fmt.Sprintf("B%d", r), fmt.Sprintf("B%d", r), st.wrap); err != nil {
			return err
		}
	}
	return nil
}

// surveyRows lists label/value pairs in display order. An empty label
// leaves a blank spacer row.
func surveyRows(o models.Order) [][2]any {
	h := o.Hazards
	return [][2]any{
		{"Work Order ID", o.WorkOrderID},
		{"Unique ID", o.UniqueID},
		{"Status", string(o.Status)},
		{"Priority", string(o.Priority)},
		{"Date of Survey", formatDate(o.DateOfSurvey)},
		{"Surveyors", strings.Join(o.Surveyors, ", ")},
		{"Technician", o.Technician},
		{"Assigned To", o.AssignedTo},
		{"", nil},
		{"Space Name", o.SpaceName},
		{"Building", o.Building},
		{"Location Description", o.LocationDescription},
		{"Space Description", o.SpaceDescription},
		{"Number of Entry Points", o.NumberOfEntryPoints},
		{"", nil},
		{"Confined Space", yesNo(h.ConfinedSpace)},
		{"Permit Required", yesNo(h.PermitRequired)},
		{"Entry Requirements", h.EntryRequirements},
		{"Atmospheric Hazard", yesNo(h.AtmosphericHazard)},
		{"Atmospheric Hazard Description", h.AtmosphericHazardDescription},
		{"Engulfment Hazard", yesNo(h.EngulfmentHazard)},
		{"Engulfment Hazard Description", h.EngulfmentHazardDescription},
		{"Configuration Hazard", yesNo(h.ConfigurationHazard)},
		{"Configuration Hazard Description", h.ConfigurationHazardDescription},
		{"Other Recognized Hazards", yesNo(h.OtherRecognizedHazards)},
		{"Other Hazards Description", h.OtherHazardsDescription},
		{"PPE Required", yesNo(h.PPERequired)},
		{"PPE List", h.PPEList},
		{"Forced Air Ventilation Sufficient", yesNo(h.ForcedAirVentilationSufficient)},
		{"Dedicated Air Monitor", yesNo(h.DedicatedAirMonitor)},
		{"Warning Sign Posted", yesNo(h.WarningSignPosted)},
		{"Other People Working Near Space", yesNo(h.OtherPeopleWorkingNearSpace)},
		{"Can Others See Into Space", yesNo(h.CanOthersSeeIntoSpace)},
		{"Contractors Enter Space", yesNo(h.ContractorsEnterSpace)},
		{"", nil},
		{"Notes", o.Notes},
		{"Images", strings.Join(o.ImageURLs, "\n")},
		{"Created By", o.CreatedBy},
		{"Created At", formatTime(o.CreatedAt)},
		{"Last Modified By", o.LastModifiedBy},
		{"Updated At", formatTime(o.UpdatedAt)},
	}
}

func writeWorkflow(f *excelize.File, st styles, history []models.WorkflowEntry) error {
	headers := []any{"Timestamp", "Action", "Performed By", "From", "To", "Comments"}
	if err := f.SetSheetRow(SheetWorkflow, "A1", &headers); err != nil {
		return err
	}
	if err := f.SetCellStyle(SheetWorkflow, "A1", "F1", st.header); err != nil {
		return err
	}
	_ = f.SetColWidth(SheetWorkflow, "A", "A", 20)
	_ = f.SetColWidth(SheetWorkflow, "B", "E", 16)
	_ = f.SetColWidth(SheetWorkflow, "F", "F", 60)

	for i, e := range history {
		row := []any{
			formatTime(e.Timestamp),
			e.Action,
			e.PerformedBy,
			string(e.PreviousStatus),
			string(e.NewStatus),
			e.Comments,
		}
		if err := f.SetSheetRow(SheetWorkflow, fmt.Sprintf("A%d", i+2), &row); err != nil {
			return err
		}
	}
	return nil
}

type styles struct {
	title  int
	header int
	label  int
	wrap   int
}

func newStyles(f *excelize.File) (styles, error) {
	var s styles
	var err error
	border := []excelize.Border{
		{Type: "left", Color: "#000000", Style: 1},
		{Type: "top", Color: "#000000", Style: 1},
		{Type: "right", Color: "#000000", Style: 1},
		{Type: "bottom", Color: "#000000", Style: 1},
	}

	if s.title, err = f.NewStyle(&excelize.Style{
		Font:      &excelize.Font{Bold: true, Size: 14},
		Alignment: &excelize.Alignment{Horizontal: "left", Vertical: "center"},
	}); err != nil {
		return s, err
	}
	if s.header, err = f.NewStyle(&excelize.Style{
		Font:      &excelize.Font{Bold: true, Color: "#FFFFFF"},
		Fill:      excelize.Fill{Type: "pattern", Color: []string{"#4472C4"}, Pattern: 1},
		Alignment: &excelize.Alignment{Horizontal: "center", Vertical: "center"},
		Border:    border,
	}); err != nil {
		return s, err
	}
	if s.label, err = f.NewStyle(&excelize.Style{
		Font:      &excelize.Font{Bold: true},
		Alignment: &excelize.Alignment{Vertical: "top"},
	}); err != nil {
		return s, err
	}
	s.wrap, err = f.NewStyle(&excelize.Style{
		Alignment: &excelize.Alignment{Vertical: "top", WrapText: true},
	})
	return s, err
}

func yesNo(b bool) string {
	if b {
		return "Yes"
	}
	return "No"
}

func formatDate(t time.Time) string {
	if t.IsZero() {
		return ""
	}
	return t.UTC().Format(dateLayout)
}

func formatTime(t time.Time) string {
	if t.IsZero() {
		return ""
	}
	return t.UTC().Format("2006-01-02 15:04 UTC")
}
