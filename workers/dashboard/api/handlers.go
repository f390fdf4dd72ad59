package api

import (
	"context"
	"net/http"
	"strconv"
	"time"

	"github.com/labstack/echo/v4"

	"pipeline-workers/domain"
	"pipeline-workers/frame"
	"pipeline-workers/repositories"
	"pipeline-workers/workers/dashboard/services"
)

const defaultPreviewRows = services.PreviewRows

type Loader interface {
	AvailableFiles() ([]repositories.ArtifactInfo, error)
	LoadFrame(name string) (*frame.Frame, error)
	LoadSummary(name string) (*domain.QualitySummary, error)
	FileInfo(name string) (*services.FileInfo, error)
	DataSummary() (services.DataSummary, error)
}

type HealthSource interface {
	Snapshot(ctx context.Context) services.Health
}

type FileList struct {
	Files   []repositories.ArtifactInfo `json:"files"`
	Summary services.DataSummary        `json:"summary"`
}

type ColumnInfo struct {
	Name string `json:"name"`
	Kind string `json:"kind"`
}

type FileDetail struct {
	Info     *services.FileInfo `json:"info"`
	Range    string             `json:"range"`
	Filtered bool               `json:"filtered"`
	Rows     int                `json:"rows"`
	Columns  []ColumnInfo       `json:"columns"`
	Offset   int                `json:"offset"`
	Preview  [][]string         `json:"preview"`
}

// HealthHandler answers 503 when the status registry cannot be read.
func HealthHandler(health HealthSource) echo.HandlerFunc {
	return func(c echo.Context) error {
		h := health.Snapshot(c.Request().Context())
		code := http.StatusOK
		if !h.Available {
			code = http.StatusServiceUnavailable
		}
		return c.JSON(code, h)
	}
}

func ListFilesHandler(loader Loader) echo.HandlerFunc {
	return func(c echo.Context) error {
		files, err := loader.AvailableFiles()
		if err != nil {
			return InternalServerError(err)
		}
		summary, err := loader.DataSummary()
		if err != nil {
			return InternalServerError(err)
		}
		if files == nil {
			files = []repositories.ArtifactInfo{}
		}
		return c.JSON(http.StatusOK, FileList{Files: files, Summary: summary})
	}
}

func GetFileHandler(loader Loader, now func() time.Time) echo.HandlerFunc {
	return func(c echo.Context) error {
		name := c.Param("name")
		offset, err := intQuery(c, "offset", 0)
		if err != nil {
			return err
		}
		limit, err := intQuery(c, "limit", defaultPreviewRows)
		if err != nil {
			return err
		}

		info, err := loader.FileInfo(name)
		if err != nil {
			return toHTTPError(err)
		}
		f, r, filtered, err := loadFiltered(c, loader, name, now)
		if err != nil {
			return err
		}

		detail := FileDetail{
			Info:     info,
			Range:    r.Label,
			Filtered: filtered,
			Rows:     f.NumRows(),
			Columns:  []ColumnInfo{},
			Offset:   offset,
			Preview:  [][]string{},
		}
		for _, col := range f.Columns {
			detail.Columns = append(detail.Columns, ColumnInfo{Name: col.Name, Kind: col.Kind.String()})
		}
		page := f.Head(offset, limit)
		for i := 0; i < page.NumRows(); i++ {
			detail.Preview = append(detail.Preview, page.Row(i))
		}
		return c.JSON(http.StatusOK, detail)
	}
}

func GetSummaryHandler(loader Loader) echo.HandlerFunc {
	return func(c echo.Context) error {
		name := c.Param("name")
		if !domain.IsCleanedArtifact(name) {
			return NotFound(name+" is not a cleaned artifact", nil)
		}
		summary, err := loader.LoadSummary(name)
		if err != nil {
			return toHTTPError(err)
		}
		if summary == nil {
			return NotFound(name+" has not been quality-checked yet", nil)
		}
		return c.JSON(http.StatusOK, summary)
	}
}

func GetStatsHandler(loader Loader, now func() time.Time) echo.HandlerFunc {
	return func(c echo.Context) error {
		f, _, _, err := loadFiltered(c, loader, c.Param("name"), now)
		if err != nil {
			return err
		}
		return c.JSON(http.StatusOK, services.Compute(f))
	}
}

// GetChartHandler serves a chart model; x and y pick the columns.
func GetChartHandler(loader Loader, now func() time.Time) echo.HandlerFunc {
	return func(c echo.Context) error {
		kind, err := services.ParseChartKind(c.Param("kind"))
		if err != nil {
			return toHTTPError(err)
		}
		f, _, _, err := loadFiltered(c, loader, c.Param("name"), now)
		if err != nil {
			return err
		}
		chart, err := services.BuildChart(f, services.ChartRequest{
			Kind: kind,
			X:    c.QueryParam("x"),
			Y:    c.QueryParam("y"),
		})
		if err != nil {
			return toHTTPError(err)
		}
		return c.JSON(http.StatusOK, chart)
	}
}

func loadFiltered(c echo.Context, loader Loader, name string, now func() time.Time) (*frame.Frame, services.TimeRange, bool, error) {
	r, err := services.ParseTimeRange(c.QueryParam("range"))
	if err != nil {
		return nil, r, false, toHTTPError(err)
	}
	f, err := loader.LoadFrame(name)
	if err != nil {
		return nil, r, false, toHTTPError(err)
	}
	out, filtered := services.ApplyTimeFilter(f, r, now())
	return out, r, filtered, nil
}

func intQuery(c echo.Context, key string, def int) (int, error) {
	raw := c.QueryParam(key)
	if raw == "" {
		return def, nil
	}
	v, err := strconv.Atoi(raw)
	if err != nil || v < 0 {
		return 0, BadRequest(key+" must be a non-negative integer", err)
	}
	return v, nil
}
