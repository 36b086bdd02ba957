// internal/app/system/csvutil/csvutil.go
package csvutil

import (
	"encoding/csv"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/dalemusser/mansahub/internal/app/system/activityfeed"
	"github.com/dalemusser/mansahub/internal/domain/models"
)

// Header rows of the two exports.
var (
	RegistryHeader    = []string{"Patient ID", "Education", "MOH Area", "Due Date"}
	ActivityLogHeader = []string{"Date", "Time", "Activity Type", "Details"}
)

// Date and time layouts used in export cells.
const (
	DateLayout = "2006-01-02"
	TimeLayout = "15:04:05"
)

// bom lets Excel detect UTF-8, which matters for Sinhala and Tamil text
// and the emoji in mood and feedback details.
var bom = []byte{0xEF, 0xBB, 0xBF}

// StartDownload sets the attachment headers and writes the BOM.
func StartDownload(w http.ResponseWriter, filename string) error {
	w.Header().Set("Content-Type", "text/csv; charset=utf-8")
	w.Header().Set("Content-Disposition", fmt.Sprintf(`attachment; filename="%s"`, url.PathEscape(filename)))
	w.Header().Set("Cache-Control", "no-store")
	_, err := w.Write(bom)
	return err
}

// RegistryFilename is registry_export_<date>.csv.
func RegistryFilename(now time.Time) string {
	return "registry_export_" + now.Format(DateLayout) + ".csv"
}

// ActivityLogFilename is <patientid>_activity_log.csv. Characters that
// would break the header value are replaced.
func ActivityLogFilename(patientID string) string {
	id := strings.TrimSpace(patientID)
	if id == "" {
		id = "user"
	}
	id = strings.Map(func(r rune) rune {
		switch r {
		case '"', '/', '\\', '\r', '\n':
			return '_'
		}
		return r
	}, id)
	return id + "_activity_log.csv"
}

// WriteRegistry writes the anonymized registry: no names, phone numbers
// or emails. Missing values are "N/A" for the id and "-" elsewhere.
func WriteRegistry(out io.Writer, rows []models.AppUserRow, loc *time.Location) error {
	cw := csv.NewWriter(out)
	if err := cw.Write(RegistryHeader); err != nil {
		return err
	}
	for _, r := range rows {
		pid := r.EffectivePatientID()
		if pid == "" {
			pid = "N/A"
		}
		due := "-"
		if r.Profile.DueDate.Valid {
			due = r.Profile.DueDate.Time.In(loc).Format(DateLayout)
		}
		if err := cw.Write([]string{pid, orDash(r.Profile.Education), orDash(r.Profile.MOHArea), due}); err != nil {
			return err
		}
	}
	cw.Flush()
	return cw.Error()
}

// WriteActivityLog writes the timeline in the order given. Records
// without a resolved time get "-" for date and time.
func WriteActivityLog(out io.Writer, records []activityfeed.Record, loc *time.Location) error {
	cw := csv.NewWriter(out)
	if err := cw.Write(ActivityLogHeader); err != nil {
		return err
	}
	for _, rec := range records {
		date, clock := "-", "-"
		if rec.HasTime {
			t := rec.Time.In(loc)
			date, clock = t.Format(DateLayout), t.Format(TimeLayout)
		}
		if err := cw.Write([]string{date, clock, string(rec.Type), rec.Details}); err != nil {
			return err
		}
	}
	cw.Flush()
	return cw.Error()
}

func orDash(s string) string {
	if strings.TrimSpace(s) == "" {
		return "-"
	}
	return s
}
