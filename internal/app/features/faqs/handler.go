// internal/app/features/faqs/handler.go
package faqs

import (
	"context"
	"net/http"
	"time"

	uierrors "github.com/dalemusser/mansahub/internal/app/features/errors"
	contentstore "github.com/dalemusser/mansahub/internal/app/store/content"
	"github.com/dalemusser/mansahub/internal/app/system/auditlog"
	"github.com/dalemusser/mansahub/internal/app/system/authz"
	"github.com/dalemusser/mansahub/internal/app/system/timeouts"
	"github.com/dalemusser/mansahub/internal/app/system/usage"
	"github.com/dalemusser/mansahub/internal/app/system/viewdata"
	"github.com/dalemusser/mansahub/internal/domain/models"
	"github.com/dalemusser/waffle/pantry/query"
	"github.com/dalemusser/waffle/pantry/templates"
	"go.uber.org/zap"
)

// Store is the content store surface the FAQ pages use.
type Store interface {
	List(ctx context.Context, f contentstore.Filter) ([]models.AppContent, error)
	Get(ctx context.Context, id string) (models.AppContent, error)
	Exists(ctx context.Context, id string) (bool, error)
	SaveFAQ(ctx context.Context, id string, faq contentstore.FAQ, updatedBy string) error
	Delete(ctx context.Context, id string) error
}

type Handler struct {
	Content  Store
	AuditLog *auditlog.Logger
	ErrLog   *uierrors.ErrorLogger
	Log      *zap.Logger

	now func() time.Time
}

func NewHandler(store Store, audit *auditlog.Logger, errLog *uierrors.ErrorLogger, logger *zap.Logger) *Handler {
	return &Handler{Content: store, AuditLog: audit, ErrLog: errLog, Log: logger, now: time.Now}
}

type sectionRow struct {
	ID        string
	Title     string
	Questions int
	Updated   string
}

type listData struct {
	viewdata.BaseVM
	Query    string
	Sections []sectionRow
	CanEdit  bool
	Notice   string
}

/*─────────────────────────────────────────────────────────────────────────────*
| GET /faqs                                                                    |
*─────────────────────────────────────────────────────────────────────────────*/

// ServeList shows the FAQ sections. ?q= matches the English title.
func (h *Handler) ServeList(w http.ResponseWriter, r *http.Request) {
	q := query.Get(r, "q")

	ctx, cancel := context.WithTimeout(r.Context(), timeouts.Short())
	defer cancel()

	items, err := h.Content.List(ctx, contentstore.Filter{Type: models.ContentTypeFAQ, Query: q})
	if err != nil {
		h.ErrLog.LogServerError(w, r, "list faqs failed", err, "Could not load FAQ sections.", "/")
		return
	}

	data := listData{
		BaseVM:   viewdata.NewBaseVM(r, "FAQs", "/"),
		Query:    q,
		Sections: h.rows(items),
		CanEdit:  authz.CanEditContent(r),
	}
	if query.Get(r, "done") == "deleted" {
		data.Notice = "FAQ section deleted."
	}
	templates.Render(w, r, "faqs_list", data)
}

func (h *Handler) rows(items []models.AppContent) []sectionRow {
	now := h.now()
	out := make([]sectionRow, 0, len(items))
	for _, c := range items {
		row := sectionRow{ID: c.ID, Title: c.DisplayTitle(), Updated: "-"}
		if en := c.Lang("en"); en != nil {
			row.Questions = len(en.Questions)
		}
		if t, ok := c.LastChanged(); ok {
			row.Updated = usage.TimeAgo(t, now)
		}
		out = append(out, row)
	}
	return out
}
