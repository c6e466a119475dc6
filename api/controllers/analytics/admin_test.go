package analytics

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	internalanalytics "github.com/lavish-fashion/lavish-backend/internal/analytics"
	pkgerrors "github.com/lavish-fashion/lavish-backend/pkg/errors"
)

type stubAnalyticsService struct {
	got internalanalytics.ReportInput
	err error
}

func (s *stubAnalyticsService) Dashboard(context.Context) (*internalanalytics.Dashboard, error) {
	return &internalanalytics.Dashboard{}, nil
}

func (s *stubAnalyticsService) Report(_ context.Context, input internalanalytics.ReportInput) (*internalanalytics.Report, error) {
	s.got = input
	if s.err != nil {
		return nil, s.err
	}
	return &internalanalytics.Report{}, nil
}

func TestReportPassesRange(t *testing.T) {
	svc := &stubAnalyticsService{}
	rec := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/api/admin/analytics?from=2026-03-01&to=2026-03-14", nil)
	Report(svc, nil).ServeHTTP(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "2026-03-01", svc.got.From)
	assert.Equal(t, "2026-03-14", svc.got.To)
}

func TestReportSurfacesValidation(t *testing.T) {
	svc := &stubAnalyticsService{err: pkgerrors.New(pkgerrors.CodeValidation, "from must be before to")}
	rec := httptest.NewRecorder()
	Report(svc, nil).ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/admin/analytics?from=2026-03-14&to=2026-03-01", nil))
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestDashboardOK(t *testing.T) {
	rec := httptest.NewRecorder()
	Dashboard(&stubAnalyticsService{}, nil).ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/admin/dashboard", nil))
	assert.Equal(t, http.StatusOK, rec.Code)
}
