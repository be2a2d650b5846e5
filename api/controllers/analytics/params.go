package analytics

import (
	"net/http"
	"time"

	"github.com/jebdekho/jebdekho-backend/api/validators"
	pkgerrors "github.com/jebdekho/jebdekho-backend/pkg/errors"
)

// resolveDateRange reads the optional startDate and endDate filters. A plain
// date as endDate covers that whole day.
func resolveDateRange(r *http.Request) (*time.Time, *time.Time, error) {
	start, err := validators.ParseQueryTime(r, "startDate")
	if err != nil {
		return nil, nil, err
	}
	end, err := validators.ParseQueryTime(r, "endDate")
	if err != nil {
		return nil, nil, err
	}
	if end != nil && isMidnight(*end) {
		eod := end.Add(24*time.Hour - time.Nanosecond)
		end = &eod
	}
	if start != nil && end != nil && end.Before(*start) {
		return nil, nil, pkgerrors.New(pkgerrors.CodeValidation, "endDate must be after startDate")
	}
	return start, end, nil
}

func isMidnight(t time.Time) bool {
	return t.Hour() == 0 && t.Minute() == 0 && t.Second() == 0 && t.Nanosecond() == 0
}
