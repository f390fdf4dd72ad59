package api

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/spf13/afero"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"pipeline-workers/domain"
	"pipeline-workers/logging"
	"pipeline-workers/repositories"
	"pipeline-workers/workers/dashboard/services"
)

const dataDir = "/shared/data"

var t0 = time.Date(2024, 3, 1, 8, 0, 0, 0, time.UTC)

const cleanedCSV = `id,amount,city,ingested_at,data_source,source_file
1,10,Paris,2024-03-01T08:00:00Z,s3,a.csv
2,20,Paris,2024-03-01T08:00:00Z,s3,a.csv
3,30,Lyon,2024-02-20T08:00:00Z,s3,a.csv
4,40,Nice,2024-02-20T08:00:00Z,s3,a.csv
`

type staticHealth struct {
	health services.Health
}

func (s staticHealth) Snapshot(context.Context) services.Health { return s.health }

type server struct {
	fs afero.Fs
	e  *echo.Echo
}

func newServer(t *testing.T, health services.Health) *server {
	t.Helper()
	fs := afero.NewMemMapFs()
	store := repositories.NewArtifactStoreFs(fs, dataDir)
	require.NoError(t, store.Ensure())
	loader, err := services.NewDataLoader(store, 4, nil)
	require.NoError(t, err)
	now := func() time.Time { return t0.Add(30 * time.Minute) }
	return &server{fs: fs, e: NewServer(loader, staticHealth{health}, now, logging.Nop())}
}

func (s *server) put(t *testing.T, name, content string) {
	t.Helper()
	require.NoError(t, afero.WriteFile(s.fs, dataDir+"/"+name, []byte(content), 0o644))
	require.NoError(t, s.fs.Chtimes(dataDir+"/"+name, t0, t0))
}

func (s *server) get(t *testing.T, target string, out interface{}) int {
	t.Helper()
	req := httptest.NewRequest(http.MethodGet, target, nil)
	rec := httptest.NewRecorder()
	s.e.ServeHTTP(rec, req)
	if out != nil {
		require.NoError(t, json.Unmarshal(rec.Body.Bytes(), out), rec.Body.String())
	}
	return rec.Code
}

func TestHealthHandler(t *testing.T) {
	var body services.Health
	code := newServer(t, services.Health{Available: true}).get(t, "/api/health", &body)
	assert.Equal(t, http.StatusOK, code)
	assert.True(t, body.Available)

	code = newServer(t, services.Health{Error: "connection refused"}).get(t, "/api/health", &body)
	assert.Equal(t, http.StatusServiceUnavailable, code)
	assert.Equal(t, "connection refused", body.Error)
}

func TestListFilesHandler(t *testing.T) {
	s := newServer(t, services.Health{})

	var empty FileList
	assert.Equal(t, http.StatusOK, s.get(t, "/api/files", &empty))
	assert.NotNil(t, empty.Files)
	assert.Empty(t, empty.Files)

	s.put(t, "cleaned_a.csv", cleanedCSV)
	s.put(t, "raw_a.csv", cleanedCSV)
	var list FileList
	assert.Equal(t, http.StatusOK, s.get(t, "/api/files", &list))
	require.Len(t, list.Files, 1)
	assert.Equal(t, "cleaned_a.csv", list.Files[0].Name)
	assert.Equal(t, 4, list.Summary.TotalRows)
}

func TestGetFileHandler(t *testing.T) {
	s := newServer(t, services.Health{})
	s.put(t, "cleaned_a.csv", cleanedCSV)

	var detail FileDetail
	code := s.get(t, "/api/files/cleaned_a.csv?limit=2&offset=1", &detail)

	require.Equal(t, http.StatusOK, code)
	assert.Equal(t, 4, detail.Rows)
	assert.Equal(t, "All Time", detail.Range)
	assert.Equal(t, ColumnInfo{Name: "ingested_at", Kind: "datetime"}, detail.Columns[3])
	assert.Equal(t, [][]string{
		{"2", "20", "Paris", "2024-03-01T08:00:00Z", "s3", "a.csv"},
		{"3", "30", "Lyon", "2024-02-20T08:00:00Z", "s3", "a.csv"},
	}, detail.Preview)
}

func TestGetFileHandler_TimeRange(t *testing.T) {
	s := newServer(t, services.Health{})
	s.put(t, "cleaned_a.csv", cleanedCSV)

	var detail FileDetail
	code := s.get(t, "/api/files/cleaned_a.csv?range=last_hour", &detail)

	require.Equal(t, http.StatusOK, code)
	assert.True(t, detail.Filtered)
	assert.Equal(t, 2, detail.Rows)
}

func TestGetFileHandler_Errors(t *testing.T) {
	s := newServer(t, services.Health{})
	s.put(t, "cleaned_a.csv", cleanedCSV)

	var msg ErrorMessage
	assert.Equal(t, http.StatusNotFound, s.get(t, "/api/files/cleaned_missing.csv", &msg))
	assert.Equal(t, "not found", msg.Reason)
	assert.Equal(t, http.StatusBadRequest, s.get(t, "/api/files/cleaned_a.csv?limit=-1", nil))
	assert.Equal(t, http.StatusBadRequest, s.get(t, "/api/files/cleaned_a.csv?range=forever", nil))
}

func TestGetSummaryHandler(t *testing.T) {
	s := newServer(t, services.Health{})
	s.put(t, "cleaned_a.csv", cleanedCSV)

	var msg ErrorMessage
	assert.Equal(t, http.StatusNotFound, s.get(t, "/api/files/cleaned_a.csv/summary", &msg))
	assert.Contains(t, msg.Advice, "not been quality-checked")

	data, err := json.Marshal(domain.QualitySummary{Source: "raw_a.csv", CleanedRows: 4})
	require.NoError(t, err)
	s.put(t, "summary_a.json", string(data))
	var summary domain.QualitySummary
	assert.Equal(t, http.StatusOK, s.get(t, "/api/files/cleaned_a.csv/summary", &summary))
	assert.Equal(t, "raw_a.csv", summary.Source)
}

func TestGetStatsHandler(t *testing.T) {
	s := newServer(t, services.Health{})
	s.put(t, "cleaned_a.csv", cleanedCSV)

	var stats services.Statistics
	code := s.get(t, "/api/files/cleaned_a.csv/stats", &stats)

	require.Equal(t, http.StatusOK, code)
	require.Len(t, stats.Numeric, 2)
	assert.Equal(t, "amount", stats.Numeric[1].Column)
	assert.InDelta(t, 25.0, stats.Numeric[1].Mean, 1e-9)
	require.Len(t, stats.Categorical, 1)
	assert.Equal(t, "city", stats.Categorical[0].Column)
}

func TestGetChartHandler(t *testing.T) {
	s := newServer(t, services.Health{})
	s.put(t, "cleaned_a.csv", cleanedCSV)

	var chart services.Chart
	code := s.get(t, "/api/files/cleaned_a.csv/charts/pie?x=city", &chart)
	require.Equal(t, http.StatusOK, code)
	require.NotNil(t, chart.Pie)
	assert.Equal(t, services.PieSlice{Label: "Paris", Count: 2, Share: 50}, chart.Pie.Slices[0])

	code = s.get(t, "/api/files/cleaned_a.csv/charts/histogram", &chart)
	require.Equal(t, http.StatusOK, code)
	require.NotNil(t, chart.Histogram)
	assert.Equal(t, "id", chart.Histogram.Column)

	assert.Equal(t, http.StatusBadRequest, s.get(t, "/api/files/cleaned_a.csv/charts/radar", nil))
	assert.Equal(t, http.StatusNotFound, s.get(t, "/api/files/cleaned_a.csv/charts/bar?x=nope", nil))
	assert.Equal(t, http.StatusUnprocessableEntity, s.get(t, "/api/files/cleaned_a.csv/charts/bar?x=amount", nil))
}
