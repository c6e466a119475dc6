package analytics

import (
	"net/http"
	"strings"

	"github.com/lavish-fashion/lavish-backend/api/responses"
	internalanalytics "github.com/lavish-fashion/lavish-backend/internal/analytics"
	pkgerrors "github.com/lavish-fashion/lavish-backend/pkg/errors"
	"github.com/lavish-fashion/lavish-backend/pkg/logger"
)

// Dashboard returns the admin headline counters and the most recent orders.
func Dashboard(svc internalanalytics.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "analytics service unavailable"))
			return
		}
		dash, err := svc.Dashboard(r.Context())
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, dash)
	}
}

// Report aggregates sales for ?from=YYYY-MM-DD&to=YYYY-MM-DD, defaulting to
// the last 30 days.
func Report(svc internalanalytics.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "analytics service unavailable"))
			return
		}
		q := r.URL.Query()
		report, err := svc.Report(r.Context(), internalanalytics.ReportInput{
			From: strings.TrimSpace(q.Get("from")),
			To:   strings.TrimSpace(q.Get("to")),
		})
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, report)
	}
}
