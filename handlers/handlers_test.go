package handlers

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"casedb-backend/models"
	"casedb-backend/search"
	"casedb-backend/service"
	"casedb-backend/statutes"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/xuri/excelize/v2"
)

func init() {
	gin.SetMode(gin.TestMode)
}

const page = `<div class="contentsOfFile"><h2>PUBLIC PROSECUTOR v Tan Ah Kow</h2>
<table id="info-table"><tr><td>Decision Date</td><td>:</td><td>12 Jan 2018</td></tr></table>
<p class="Judg-1">The court weighed the aggravating factors under s 33 of the Penal Code.</p></div>`

type fakeSearcher struct {
	err  error
	last service.SearchRequest
}

func (f *fakeSearcher) Search(ctx context.Context, req service.SearchRequest) (*service.SearchResult, error) {
	f.last = req
	if f.err != nil {
		return nil, f.err
	}
	records := []models.CaseRecord{{CaseName: "public prosecutor v tan", Court: models.CourtSupreme, Link: "a"}}
	return &service.SearchResult{
		Query:   search.Classify(req.Query),
		Records: records,
		Summary: search.Summarize(records, 10),
	}, nil
}

type fakeRuns map[uuid.UUID]*models.ProcessingRun

func (f fakeRuns) GetByID(ctx context.Context, id uuid.UUID) (*models.ProcessingRun, error) {
	if r, ok := f[id]; ok {
		return r, nil
	}
	return nil, pgx.ErrNoRows
}

func (f fakeRuns) GetLatest(ctx context.Context, court models.Court) (*models.ProcessingRun, error) {
	var latest *models.ProcessingRun
	for _, r := range f {
		if r.Court == court && (latest == nil || r.CreatedAt.After(latest.CreatedAt)) {
			latest = r
		}
	}
	if latest == nil {
		return nil, pgx.ErrNoRows
	}
	return latest, nil
}

type envelope struct {
	Success bool            `json:"success"`
	Data    json.RawMessage `json:"data"`
	Error   struct {
		Code string `json:"code"`
	} `json:"error"`
}

func newTestRouter(searcher CaseSearcher, runs RunGetter) *gin.Engine {
	pipeline := service.NewPipelineService(service.WithResolver(statutes.New([]models.StatuteEntry{
		{Ref: models.StatuteRef{Section: "33", Act: "Penal Code"}, OffenceTitle: "Forgery"},
	})))
	var rh *RunHandler
	if runs != nil {
		rh = NewRunHandler(runs)
	}
	return NewRouter(NewCaseHandler(searcher), NewJudgmentHandler(pipeline), rh)
}

func do(t *testing.T, r http.Handler, req *http.Request) (*httptest.ResponseRecorder, envelope) {
	t.Helper()
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	var env envelope
	if w.Header().Get("Content-Type") == "application/json; charset=utf-8" {
		if err := json.Unmarshal(w.Body.Bytes(), &env); err != nil {
			t.Fatalf("decode %s: %v", w.Body.String(), err)
		}
	}
	return w, env
}

func TestHealth(t *testing.T) {
	w, _ := do(t, newTestRouter(&fakeSearcher{}, nil), httptest.NewRequest(http.MethodGet, "/health", nil))
	if w.Code != http.StatusOK {
		t.Errorf("status = %d", w.Code)
	}
}

func TestSearchCases(t *testing.T) {
	searcher := &fakeSearcher{}
	r := newTestRouter(searcher, nil)

	w, env := do(t, r, httptest.NewRequest(http.MethodGet, "/api/cases/search?q=Section+33+Penal+Code&top=3", nil))
	if w.Code != http.StatusOK || !env.Success {
		t.Fatalf("status = %d body = %s", w.Code, w.Body.String())
	}
	var data struct {
		Mode    string              `json:"mode"`
		Key     string              `json:"key"`
		Count   int                 `json:"count"`
		Rows    []models.CaseRecord `json:"rows"`
		Summary search.Summary      `json:"summary"`
	}
	if err := json.Unmarshal(env.Data, &data); err != nil {
		t.Fatal(err)
	}
	if data.Mode != "statute" || data.Key != "33 penal code" || data.Count != 1 || len(data.Rows) != 1 {
		t.Errorf("data = %+v", data)
	}
	if searcher.last.TopCitations != 3 {
		t.Errorf("top = %d, want 3", searcher.last.TopCitations)
	}

	tests := []struct {
		url    string
		status int
		code   string
	}{
		{"/api/cases/search", http.StatusBadRequest, "MISSING_QUERY"},
		{"/api/cases/search?q=+", http.StatusBadRequest, "MISSING_QUERY"},
		{"/api/cases/search?q=x&top=zero", http.StatusBadRequest, "INVALID_TOP"},
	}
	for _, tt := range tests {
		w, env := do(t, r, httptest.NewRequest(http.MethodGet, tt.url, nil))
		if w.Code != tt.status || env.Error.Code != tt.code {
			t.Errorf("%s: status = %d code = %q", tt.url, w.Code, env.Error.Code)
		}
	}

	failing := newTestRouter(&fakeSearcher{err: errors.New("boom")}, nil)
	w, env = do(t, failing, httptest.NewRequest(http.MethodGet, "/api/cases/search?q=x", nil))
	if w.Code != http.StatusInternalServerError || env.Error.Code != "SEARCH_FAILED" {
		t.Errorf("status = %d code = %q", w.Code, env.Error.Code)
	}
}

func TestExportCases(t *testing.T) {
	r := newTestRouter(&fakeSearcher{}, nil)
	w, _ := do(t, r, httptest.NewRequest(http.MethodGet, "/api/cases/export?q=tan", nil))
	if w.Code != http.StatusOK {
		t.Fatalf("status = %d", w.Code)
	}
	f, err := excelize.OpenReader(bytes.NewReader(w.Body.Bytes()))
	if err != nil {
		t.Fatalf("response is not a workbook: %v", err)
	}
	defer f.Close()
	if v, _ := f.GetCellValue("Cases", "A2"); v != "public prosecutor v tan" {
		t.Errorf("A2 = %q", v)
	}
}

func uploadRequest(t *testing.T, filename, content string, fields map[string]string) *http.Request {
	t.Helper()
	var body bytes.Buffer
	mw := multipart.NewWriter(&body)
	for k, v := range fields {
		if err := mw.WriteField(k, v); err != nil {
			t.Fatal(err)
		}
	}
	if filename != "" {
		fw, err := mw.CreateFormFile("file", filename)
		if err != nil {
			t.Fatal(err)
		}
		fw.Write([]byte(content))
	}
	mw.Close()
	req := httptest.NewRequest(http.MethodPost, "/api/judgments/extract", &body)
	req.Header.Set("Content-Type", mw.FormDataContentType())
	return req
}

func TestExtractJudgment(t *testing.T) {
	r := newTestRouter(&fakeSearcher{}, nil)

	w, env := do(t, r, uploadRequest(t, "judgment.html", page, map[string]string{"court": "subordinate"}))
	if w.Code != http.StatusOK || !env.Success {
		t.Fatalf("status = %d body = %s", w.Code, w.Body.String())
	}
	var rec models.CaseRecord
	if err := json.Unmarshal(env.Data, &rec); err != nil {
		t.Fatal(err)
	}
	if rec.CaseName != "public prosecutor v tan ah kow" || rec.Court != models.CourtSubordinate ||
		rec.Link != "upload://judgment.html" || !rec.AggravationDiscussed {
		t.Errorf("record = %+v", rec)
	}
	if len(rec.OffenceTitles) != 1 || rec.OffenceTitles[0] != "Forgery" {
		t.Errorf("titles = %v", rec.OffenceTitles)
	}
	if !rec.DecisionDate.Equal(time.Date(2018, time.January, 12, 0, 0, 0, 0, time.UTC)) {
		t.Errorf("date = %v", rec.DecisionDate)
	}

	tests := []struct {
		name     string
		filename string
		content  string
		fields   map[string]string
		status   int
		code     string
	}{
		{"no file", "", "", nil, http.StatusBadRequest, "MISSING_FILE"},
		{"wrong type", "judgment.pdf", page, nil, http.StatusBadRequest, "INVALID_FILE_TYPE"},
		{"bad court", "judgment.html", page, map[string]string{"court": "magistrate"}, http.StatusBadRequest, "INVALID_COURT"},
		{"malformed", "judgment.html", "<p>not a judgment</p>", nil, http.StatusUnprocessableEntity, "MALFORMED_DOCUMENT"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w, env := do(t, r, uploadRequest(t, tt.filename, tt.content, tt.fields))
			if w.Code != tt.status || env.Error.Code != tt.code {
				t.Errorf("status = %d code = %q, want %d %q", w.Code, env.Error.Code, tt.status, tt.code)
			}
		})
	}
}

func TestGetRun(t *testing.T) {
	id := uuid.New()
	runs := fakeRuns{id: {ID: id, Court: models.CourtSupreme, Status: models.RunStatusCompleted, Steps: models.RunSteps{}}}
	r := newTestRouter(&fakeSearcher{}, runs)

	w, env := do(t, r, httptest.NewRequest(http.MethodGet, "/api/runs/"+id.String(), nil))
	if w.Code != http.StatusOK || !env.Success {
		t.Fatalf("status = %d body = %s", w.Code, w.Body.String())
	}

	w, env = do(t, r, httptest.NewRequest(http.MethodGet, "/api/runs/"+uuid.NewString(), nil))
	if w.Code != http.StatusNotFound || env.Error.Code != "NOT_FOUND" {
		t.Errorf("status = %d code = %q", w.Code, env.Error.Code)
	}
	w, env = do(t, r, httptest.NewRequest(http.MethodGet, "/api/runs/not-a-uuid", nil))
	if w.Code != http.StatusBadRequest || env.Error.Code != "INVALID_ID" {
		t.Errorf("status = %d code = %q", w.Code, env.Error.Code)
	}

	noRuns := newTestRouter(&fakeSearcher{}, nil)
	w, _ = do(t, noRuns, httptest.NewRequest(http.MethodGet, "/api/runs/"+id.String(), nil))
	if w.Code != http.StatusNotFound {
		t.Errorf("runs route without a store: status = %d", w.Code)
	}
}

func TestGetLatestRun(t *testing.T) {
	id := uuid.New()
	runs := fakeRuns{id: {ID: id, Court: models.CourtSupreme, Status: models.RunStatusCompleted, Steps: models.RunSteps{}}}
	r := newTestRouter(&fakeSearcher{}, runs)

	w, env := do(t, r, httptest.NewRequest(http.MethodGet, "/api/runs/latest?court=supreme", nil))
	if w.Code != http.StatusOK || !env.Success {
		t.Fatalf("status = %d body = %s", w.Code, w.Body.String())
	}
	var got models.ProcessingRun
	if err := json.Unmarshal(env.Data, &got); err != nil {
		t.Fatal(err)
	}
	if got.ID != id {
		t.Errorf("run id = %v, want %v", got.ID, id)
	}

	w, env = do(t, r, httptest.NewRequest(http.MethodGet, "/api/runs/latest?court=subordinate", nil))
	if w.Code != http.StatusNotFound || env.Error.Code != "NOT_FOUND" {
		t.Errorf("status = %d code = %q", w.Code, env.Error.Code)
	}
	w, env = do(t, r, httptest.NewRequest(http.MethodGet, "/api/runs/latest?court=appeal", nil))
	if w.Code != http.StatusBadRequest || env.Error.Code != "INVALID_COURT" {
		t.Errorf("status = %d code = %q", w.Code, env.Error.Code)
	}
}
