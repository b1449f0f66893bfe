package orderreport_test

import (
	"bytes"
	"testing"
	"time"

	"github.com/dalemusser/confinedspace/internal/app/system/orderreport"
	"github.com/dalemusser/confinedspace/internal/domain/models"
	"github.com/xuri/excelize/v2"
)

func sampleOrder(n int) models.Order {
	created := time.Date(2024, 5, 14, 9, 30, 0, 0, time.UTC)
	return models.Order{
		WorkOrderID:         "WO-2024-05-000" + string(rune('0'+n)),
		UniqueID:            "000" + string(rune('0'+n)),
		Status:              models.StatusApproved,
		Priority:            models.PriorityHigh,
		DateOfSurvey:        created,
		Surveyors:           []string{"Jane Doe", "Sam Roe"},
		SpaceName:           "Wet well",
		Building:            "Pump House",
		LocationDescription: "North side",
		Hazards:             models.Hazards{ConfinedSpace: true, PPEList: "Harness"},
		CreatedAt:           created,
		WorkflowHistory: []models.WorkflowEntry{
			{Action: models.ActionCreated, PerformedBy: "Jane Doe", Timestamp: created, NewStatus: models.StatusPending},
			{Action: models.ActionStatusChanged, PerformedBy: "Ada Admin", Timestamp: created.Add(time.Hour),
				PreviousStatus: models.StatusPending, NewStatus: models.StatusApproved, Comments: "ok"},
		},
	}
}

func open(t *testing.T, buf *bytes.Buffer) *excelize.File {
	t.Helper()
	f, err := excelize.OpenReader(buf)
	if err != nil {
		t.Fatalf("workbook does not open: %v", err)
	}
	t.Cleanup(func() { _ = f.Close() })
	return f
}

func TestWriteList(t *testing.T) {
	var buf bytes.Buffer
	if err := orderreport.WriteList(&buf, []models.Order{sampleOrder(1), sampleOrder(2)}); err != nil {
		t.Fatalf("WriteList failed: %v", err)
	}

	f := open(t, &buf)
	rows, err := f.GetRows(orderreport.SheetOrders)
	if err != nil {
		t.Fatalf("GetRows failed: %v", err)
	}
	if len(rows) != 3 {
		t.Fatalf("expected header + 2 rows, got %d", len(rows))
	}
	if rows[0][0] != "Work Order ID" {
		t.Errorf("first header = %q", rows[0][0])
	}
	if rows[2][0] != "WO-2024-05-0002" || rows[1][2] != "approved" || rows[1][4] != "2024-05-14" {
		t.Errorf("unexpected data row: %q", rows[1])
	}
}

func TestWriteList_Empty(t *testing.T) {
	var buf bytes.Buffer
	if err := orderreport.WriteList(&buf, nil); err != nil {
		t.Fatalf("WriteList failed: %v", err)
	}
	rows, _ := open(t, &buf).GetRows(orderreport.SheetOrders)
	if len(rows) != 1 {
		t.Errorf("expected only the header row, got %d rows", len(rows))
	}
}

func TestWriteOrder(t *testing.T) {
	var buf bytes.Buffer
	if err := orderreport.WriteOrder(&buf, sampleOrder(1)); err != nil {
		t.Fatalf("WriteOrder failed: %v", err)
	}
	f := open(t, &buf)

	sheets := f.GetSheetList()
	if len(sheets) != 2 || sheets[0] != orderreport.SheetSurvey || sheets[1] != orderreport.SheetWorkflow {
		t.Fatalf("sheets = %v", sheets)
	}

	title, _ := f.GetCellValue(orderreport.SheetSurvey, "A1")
	if title != "Confined Space Survey WO-2024-05-0001" {
		t.Errorf("title = %q", title)
	}

	survey, _ := f.GetRows(orderreport.SheetSurvey)
	found := map[string]string{}
	for _, r := range survey {
		if len(r) >= 2 {
			found[r[0]] = r[1]
		}
	}
	if found["Confined Space"] != "Yes" || found["Permit Required"] != "No" || found["PPE List"] != "Harness" {
		t.Errorf("hazard rows wrong: %v", found)
	}

	wf, _ := f.GetRows(orderreport.SheetWorkflow)
	if len(wf) != 3 {
		t.Fatalf("expected header + 2 history rows, got %d", len(wf))
	}
	if wf[2][1] != models.ActionStatusChanged || wf[2][3] != "pending" || wf[2][4] != "approved" {
		t.Errorf("history row = %q", wf[2])
	}
}
