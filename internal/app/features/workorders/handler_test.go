package workorders_test

import (
	"bytes"
	"context"
	"fmt"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"net/textproto"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/dalemusser/confinedspace/internal/app/features/workorders"
	"github.com/dalemusser/confinedspace/internal/app/system/auth"
	"github.com/dalemusser/confinedspace/internal/app/system/orderreport"
	"github.com/dalemusser/confinedspace/internal/domain/models"
	"github.com/dalemusser/confinedspace/internal/testutil"
	"github.com/dalemusser/waffle/pantry/storage"
	"github.com/go-chi/chi/v5"
	"github.com/xuri/excelize/v2"
	"go.uber.org/zap"
)

type env struct {
	router   chi.Router
	fixtures *testutil.Fixtures
	blobRoot string
}

func newEnv(t *testing.T) *env {
	t.Helper()
	db := testutil.SetupTestDB(t)
	logger := zap.NewNop()

	root := t.TempDir()
	blobs, err := storage.NewLocal(storage.LocalConfig{BasePath: root, BaseURL: "/files"})
	if err != nil {
		t.Fatalf("NewLocal failed: %v", err)
	}
	sm, err := auth.NewSessionManager("test-session-key-for-testing-only", "test-session", "", time.Hour, false, logger)
	if err != nil {
		t.Fatalf("NewSessionManager failed: %v", err)
	}

	h := workorders.NewHandler(db, blobs, workorders.Limits{ListMax: 50, ExportMax: 100}, nil, logger)
	return &env{
		router:   workorders.Routes(h, sm),
		fixtures: testutil.NewFixtures(t, db),
		blobRoot: root,
	}
}

func (e *env) do(req *http.Request) *testutil.ResponseRecorder {
	rec := testutil.NewRecorder()
	e.router.ServeHTTP(rec, req)
	return rec
}

func validBody() map[string]any {
	return map[string]any{
		"dateOfSurvey":        "2024-05-14",
		"surveyors":           []string{"Jane Doe"},
		"spaceName":           "Wet well",
		"building":            "Pump House",
		"locationDescription": "North side",
		"confinedSpace":       true,
		"technician":          "Doe, Jane",
	}
}

func TestRoutes_RequireSignIn(t *testing.T) {
	e := newEnv(t)
	rec := e.do(httptest.NewRequest(http.MethodGet, "/", nil))
	rec.AssertStatus(t, http.StatusUnauthorized)
}

func TestCreateAndGet(t *testing.T) {
	e := newEnv(t)
	ctx, cancel := testutil.TestContext()
	defer cancel()

	owner := testutil.FromModel(e.fixtures.CreateUser(ctx, "Olly", "Owner", "olly@example.com", "user"))
	tech := testutil.FromModel(e.fixtures.CreateUser(ctx, "Jane", "Doe", "jane@example.com", "technician"))
	stranger := testutil.FromModel(e.fixtures.CreateUser(ctx, "Sam", "Roe", "sam@example.com", "user"))

	rec := e.do(testutil.NewJSONRequest(http.MethodPost, "/", validBody(), owner))
	rec.AssertStatus(t, http.StatusCreated)

	var created models.Order
	rec.DecodeJSON(t, &created)
	if !strings.HasPrefix(created.WorkOrderID, "WO-") || created.Status != models.StatusPending {
		t.Fatalf("created = %+v", created)
	}
	if loc := rec.Header().Get("Location"); loc != "/workorders/"+created.ID.Hex() {
		t.Errorf("Location = %q", loc)
	}

	tests := []struct {
		name       string
		user       testutil.TestUser
		ident      string
		wantStatus int
	}{
		{"owner by work order id", owner, created.WorkOrderID, http.StatusOK},
		{"owner by unique id", owner, created.UniqueID, http.StatusOK},
		{"technician named on order", tech, created.InternalID, http.StatusOK},
		{"manager", testutil.ManagerUser(), created.ID.Hex(), http.StatusOK},
		{"other user", stranger, created.WorkOrderID, http.StatusNotFound},
		{"unknown id", owner, "WO-1999-01-0001", http.StatusNotFound},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := e.do(testutil.NewAuthenticatedRequest(http.MethodGet, "/"+tt.ident, tt.user))
			rec.AssertStatus(t, tt.wantStatus)
		})
	}
}

func TestCreate_ValidationErrors(t *testing.T) {
	e := newEnv(t)

	body := validBody()
	delete(body, "spaceName")
	body["priority"] = "urgent"

	rec := e.do(testutil.NewJSONRequest(http.MethodPost, "/", body, testutil.AdminUser()))
	rec.AssertStatus(t, http.StatusBadRequest)

	var resp struct {
		Error  string            `json:"error"`
		Fields map[string]string `json:"fields"`
	}
	rec.DecodeJSON(t, &resp)
	if _, ok := resp.Fields["spaceName"]; !ok {
		t.Errorf("fields = %v, want spaceName", resp.Fields)
	}
	if _, ok := resp.Fields["priority"]; !ok {
		t.Errorf("fields = %v, want priority", resp.Fields)
	}
}

func TestStatusChanges(t *testing.T) {
	e := newEnv(t)
	ctx, cancel := testutil.TestContext()
	defer cancel()

	admin := e.fixtures.CreateUser(ctx, "Ada", "Admin", "ada@example.com", "admin")
	open := e.fixtures.CreateOrder(ctx, admin, nil)
	done := e.fixtures.CreateOrder(ctx, admin, func(o *models.Order) { o.Status = models.StatusCompleted })
	user := testutil.FromModel(admin)

	rec := e.do(testutil.NewJSONRequest(http.MethodPatch, "/"+done.WorkOrderID+"/status",
		map[string]string{"status": "pending"}, user))
	rec.AssertStatus(t, http.StatusConflict)
	var conflict struct {
		Current   string `json:"current"`
		Requested string `json:"requested"`
	}
	rec.DecodeJSON(t, &conflict)
	if conflict.Current != "completed" || conflict.Requested != "pending" {
		t.Errorf("409 body = %+v", conflict)
	}

	rec = e.do(testutil.NewJSONRequest(http.MethodPatch, "/"+open.WorkOrderID+"/status",
		map[string]string{"status": "approved", "comments": "Looks good"}, user))
	rec.AssertStatus(t, http.StatusOK)
	var moved models.Order
	rec.DecodeJSON(t, &moved)
	if moved.Status != models.StatusApproved {
		t.Errorf("Status = %q", moved.Status)
	}

	rec = e.do(testutil.NewJSONRequest(http.MethodPatch, "/bulk-status", map[string]any{
		"ids":    []string{open.ID.Hex(), done.ID.Hex()},
		"status": "in-progress",
	}, user))
	rec.AssertStatus(t, http.StatusOK)
	var bulk struct {
		Updated int `json:"updated"`
		Skipped int `json:"skipped"`
	}
	rec.DecodeJSON(t, &bulk)
	if bulk.Updated != 1 || bulk.Skipped != 1 {
		t.Errorf("bulk = %+v, want updated=1 skipped=1", bulk)
	}

	rec = e.do(testutil.NewJSONRequest(http.MethodPatch, "/bulk-status",
		map[string]any{"ids": []string{}, "status": "approved"}, user))
	rec.AssertStatus(t, http.StatusBadRequest)
}

func TestBulkStatus_DeadlineReturnsPartialResult(t *testing.T) {
	e := newEnv(t)
	ctx, cancel := testutil.TestContext()
	defer cancel()

	admin := e.fixtures.CreateUser(ctx, "Ada", "Admin", "ada@example.com", "admin")
	a := e.fixtures.CreateOrder(ctx, admin, nil)
	b := e.fixtures.CreateOrder(ctx, admin, nil)

	req := testutil.NewJSONRequest(http.MethodPatch, "/bulk-status", map[string]any{
		"ids":    []string{a.ID.Hex(), b.ID.Hex()},
		"status": "approved",
	}, testutil.FromModel(admin))
	expired, expire := context.WithDeadline(req.Context(), time.Now().Add(-time.Second))
	defer expire()

	rec := e.do(req.WithContext(expired))
	rec.AssertStatus(t, http.StatusOK)
	var res struct {
		Requested  int  `json:"requested"`
		Updated    int  `json:"updated"`
		Skipped    int  `json:"skipped"`
		Incomplete bool `json:"incomplete"`
	}
	rec.DecodeJSON(t, &res)
	if !res.Incomplete || res.Requested != 2 || res.Updated != 0 || res.Skipped != 0 {
		t.Errorf("body = %+v, want requested=2 with nothing tried and incomplete", res)
	}

	rec = e.do(testutil.NewAuthenticatedRequest(http.MethodGet, "/"+a.WorkOrderID, testutil.FromModel(admin)))
	rec.AssertStatus(t, http.StatusOK)
	var got models.Order
	rec.DecodeJSON(t, &got)
	if got.Status != models.StatusPending {
		t.Errorf("Status = %q, want pending", got.Status)
	}
}

func TestUpdate_NormalizesPatch(t *testing.T) {
	e := newEnv(t)
	ctx, cancel := testutil.TestContext()
	defer cancel()

	admin := e.fixtures.CreateUser(ctx, "Ada", "Admin", "ada@example.com", "admin")
	o := e.fixtures.CreateOrder(ctx, admin, nil)
	user := testutil.FromModel(admin)

	rec := e.do(testutil.NewJSONRequest(http.MethodPut, "/"+o.ID.Hex(),
		map[string]any{"status": "Approved", "priority": "Critical"}, user))
	rec.AssertStatus(t, http.StatusOK)
	var got models.Order
	rec.DecodeJSON(t, &got)
	if got.Status != models.StatusApproved || got.Priority != models.PriorityCritical {
		t.Errorf("status=%q priority=%q, want approved/critical", got.Status, got.Priority)
	}

	rec = e.do(testutil.NewJSONRequest(http.MethodPut, "/"+o.ID.Hex(),
		map[string]any{"spaceName": "   ", "building": "\t"}, user))
	rec.AssertStatus(t, http.StatusBadRequest)
	var resp struct {
		Error  string            `json:"error"`
		Fields map[string]string `json:"fields"`
	}
	rec.DecodeJSON(t, &resp)
	for _, field := range []string{"spaceName", "building"} {
		if _, ok := resp.Fields[field]; !ok {
			t.Errorf("fields = %v, want %s", resp.Fields, field)
		}
	}
}

func TestUpdateAndDelete(t *testing.T) {
	e := newEnv(t)
	ctx, cancel := testutil.TestContext()
	defer cancel()

	owner := e.fixtures.CreateUser(ctx, "Olly", "Owner", "olly@example.com", "user")
	o := e.fixtures.CreateOrder(ctx, owner, nil)
	user := testutil.FromModel(owner)

	rec := e.do(testutil.NewJSONRequest(http.MethodPut, "/"+o.ID.Hex(),
		map[string]any{"notes": "Ladder <b>rusted</b>", "permitRequired": true}, user))
	rec.AssertStatus(t, http.StatusOK)
	var got models.Order
	rec.DecodeJSON(t, &got)
	if got.Notes != "Ladder rusted" || !got.PermitRequired {
		t.Errorf("update not applied: notes=%q permit=%v", got.Notes, got.PermitRequired)
	}

	rec = e.do(testutil.NewJSONRequest(http.MethodPut, "/"+o.ID.Hex(), map[string]any{}, user))
	rec.AssertStatus(t, http.StatusBadRequest)

	rec = e.do(testutil.NewAuthenticatedRequest(http.MethodDelete, "/"+o.UniqueID, user))
	rec.AssertStatus(t, http.StatusNoContent)

	rec = e.do(testutil.NewAuthenticatedRequest(http.MethodGet, "/"+o.WorkOrderID, user))
	rec.AssertStatus(t, http.StatusNotFound)
}

func TestList(t *testing.T) {
	e := newEnv(t)
	ctx, cancel := testutil.TestContext()
	defer cancel()

	owner := e.fixtures.CreateUser(ctx, "Olly", "Owner", "olly@example.com", "user")
	for i := 0; i < 3; i++ {
		e.fixtures.CreateOrder(ctx, owner, nil)
	}
	e.fixtures.CreateOrder(ctx, owner, func(o *models.Order) {
		o.Status = models.StatusDraft
		o.SpaceName = "Storm drain"
	})

	tests := []struct {
		query      string
		wantStatus int
		wantTotal  int64
		wantItems  int
	}{
		{"", http.StatusOK, 4, 4},
		{"?limit=2&page=2", http.StatusOK, 4, 2},
		{"?status=draft", http.StatusOK, 1, 1},
		{"?status=all", http.StatusOK, 4, 4},
		{"?search=storm", http.StatusOK, 1, 1},
		{"?dateFrom=+2000-01-01+&dateTo=%092999-12-31", http.StatusOK, 4, 4},
		{"?dateFrom=+2999-01-01+", http.StatusOK, 0, 0},
		{"?sort=status&order=asc", http.StatusOK, 4, 4},
		{"?status=archived", http.StatusBadRequest, 0, 0},
		{"?dateFrom=yesterday", http.StatusBadRequest, 0, 0},
	}
	for _, tt := range tests {
		t.Run(tt.query, func(t *testing.T) {
			rec := e.do(testutil.NewAuthenticatedRequest(http.MethodGet, "/"+tt.query, testutil.FromModel(owner)))
			rec.AssertStatus(t, tt.wantStatus)
			if tt.wantStatus != http.StatusOK {
				return
			}
			var res struct {
				Items      []models.Order `json:"items"`
				TotalItems int64          `json:"totalItems"`
			}
			rec.DecodeJSON(t, &res)
			if res.TotalItems != tt.wantTotal || len(res.Items) != tt.wantItems {
				t.Errorf("total=%d items=%d, want %d/%d", res.TotalItems, len(res.Items), tt.wantTotal, tt.wantItems)
			}
		})
	}

	rec := e.do(testutil.NewAuthenticatedRequest(http.MethodGet, "/summary", testutil.FromModel(owner)))
	rec.AssertStatus(t, http.StatusOK)
	rec.AssertContains(t, `"total":4`)
}

func TestExportAndReport(t *testing.T) {
	e := newEnv(t)
	ctx, cancel := testutil.TestContext()
	defer cancel()

	owner := e.fixtures.CreateUser(ctx, "Olly", "Owner", "olly@example.com", "user")
	o := e.fixtures.CreateOrder(ctx, owner, nil)
	e.fixtures.CreateOrder(ctx, owner, nil)
	user := testutil.FromModel(owner)

	rec := e.do(testutil.NewAuthenticatedRequest(http.MethodGet, "/export.xlsx", user))
	rec.AssertStatus(t, http.StatusOK)
	if ct := rec.Header().Get("Content-Type"); ct != orderreport.ContentType {
		t.Errorf("Content-Type = %q", ct)
	}
	f, err := excelize.OpenReader(bytes.NewReader(rec.Body.Bytes()))
	if err != nil {
		t.Fatalf("export is not a workbook: %v", err)
	}
	rows, _ := f.GetRows(orderreport.SheetOrders)
	_ = f.Close()
	if len(rows) != 3 {
		t.Errorf("export rows = %d, want header + 2", len(rows))
	}

	rec = e.do(testutil.NewAuthenticatedRequest(http.MethodGet, "/"+o.WorkOrderID+"/report.xlsx", user))
	rec.AssertStatus(t, http.StatusOK)
	if cd := rec.Header().Get("Content-Disposition"); !strings.Contains(cd, o.WorkOrderID+".xlsx") {
		t.Errorf("Content-Disposition = %q", cd)
	}

	rec = e.do(testutil.NewAuthenticatedRequest(http.MethodGet, "/"+o.WorkOrderID+"/report.xlsx", testutil.PlainUser()))
	rec.AssertStatus(t, http.StatusNotFound)
}

var pngHeader = []byte("\x89PNG\r\n\x1a\n\x00\x00\x00\rIHDR\x00\x00\x00\x01\x00\x00\x00\x01\x08\x06\x00\x00\x00")

type upload struct {
	name        string
	contentType string
	data        []byte
}

func multipartRequest(t *testing.T, target string, files []upload, user testutil.TestUser) *http.Request {
	t.Helper()
	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)
	for _, f := range files {
		hdr := make(textproto.MIMEHeader)
		hdr.Set("Content-Disposition", fmt.Sprintf(`form-data; name="images"; filename=%q`, f.name))
		hdr.Set("Content-Type", f.contentType)
		part, err := mw.CreatePart(hdr)
		if err != nil {
			t.Fatalf("CreatePart: %v", err)
		}
		_, _ = part.Write(f.data)
	}
	_ = mw.Close()

	req := httptest.NewRequest(http.MethodPost, target, &buf)
	req.Header.Set("Content-Type", mw.FormDataContentType())
	return testutil.WithUser(req, user)
}

func TestHandleImages(t *testing.T) {
	e := newEnv(t)
	ctx, cancel := testutil.TestContext()
	defer cancel()

	owner := e.fixtures.CreateUser(ctx, "Olly", "Owner", "olly@example.com", "user")
	o := e.fixtures.CreateOrder(ctx, owner, nil)
	user := testutil.FromModel(owner)

	rec := e.do(multipartRequest(t, "/"+o.ID.Hex()+"/images", []upload{
		{"Manhole 1.png", "image/png", pngHeader},
		{"manhole-2.png", "image/png", pngHeader},
	}, user))
	rec.AssertStatus(t, http.StatusOK)

	var got models.Order
	rec.DecodeJSON(t, &got)
	if len(got.ImageURLs) != 2 {
		t.Fatalf("ImageURLs = %v", got.ImageURLs)
	}
	for _, u := range got.ImageURLs {
		if !strings.HasPrefix(u, "/files/workorders/") {
			t.Errorf("unexpected url %q", u)
		}
		path := filepath.Join(e.blobRoot, filepath.FromSlash(strings.TrimPrefix(u, "/files/")))
		if _, err := os.Stat(path); err != nil {
			t.Errorf("stored file missing for %q: %v", u, err)
		}
	}

	tooMany := make([]upload, workorders.MaxImages+1)
	for i := range tooMany {
		tooMany[i] = upload{fmt.Sprintf("p%d.png", i), "image/png", pngHeader}
	}

	tests := []struct {
		name       string
		files      []upload
		user       testutil.TestUser
		wantStatus int
	}{
		{"declared non-image", []upload{{"notes.txt", "text/plain", []byte("hello")}}, user, http.StatusBadRequest},
		{"disguised non-image", []upload{{"fake.png", "image/png", []byte("plain text pretending")}}, user, http.StatusBadRequest},
		{"too many", tooMany, user, http.StatusBadRequest},
		{"no files", nil, user, http.StatusBadRequest},
		{"not visible", []upload{{"a.png", "image/png", pngHeader}}, testutil.PlainUser(), http.StatusNotFound},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := e.do(multipartRequest(t, "/"+o.ID.Hex()+"/images", tt.files, tt.user))
			rec.AssertStatus(t, tt.wantStatus)
		})
	}
}
