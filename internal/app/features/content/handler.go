// internal/app/features/content/handler.go
package content

import (
	"context"
	"errors"
	"net/http"
	"sort"
	"strings"
	"time"

	uierrors "github.com/dalemusser/mansahub/internal/app/features/errors"
	"github.com/dalemusser/mansahub/internal/app/policy/adminpolicy"
	contentstore "github.com/dalemusser/mansahub/internal/app/store/content"
	"github.com/dalemusser/mansahub/internal/app/system/auditlog"
	"github.com/dalemusser/mansahub/internal/app/system/authz"
	"github.com/dalemusser/mansahub/internal/app/system/timeouts"
	"github.com/dalemusser/mansahub/internal/app/system/usage"
	"github.com/dalemusser/mansahub/internal/app/system/viewdata"
	"github.com/dalemusser/mansahub/internal/domain/models"
	"github.com/dalemusser/waffle/pantry/query"
	"github.com/dalemusser/waffle/pantry/templates"
	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"
)

// Statuses offered by the status filter.
var Statuses = []string{models.ContentPublished, models.ContentDraft, models.ContentScheduled}

// Store is the content store surface this feature uses.
type Store interface {
	List(ctx context.Context, f contentstore.Filter) ([]models.AppContent, error)
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

type itemRow struct {
	ID        string
	Title     string
	Category  string
	Status    string
	Languages string
	Updated   string
	EditURL   string
}

type listData struct {
	viewdata.BaseVM
	Query      string
	Status     string
	Category   string
	Statuses   []string
	Categories []string
	Items      []itemRow
	CanEdit    bool
	Notice     string
}

/*─────────────────────────────────────────────────────────────────────────────*
| GET /content                                                                 |
*─────────────────────────────────────────────────────────────────────────────*/

// ServeList shows every content item. ?q= searches titles, ?status= and
// ?category= narrow the list; "all" or empty matches everything.
func (h *Handler) ServeList(w http.ResponseWriter, r *http.Request) {
	f := contentstore.Filter{
		Query:    query.Get(r, "q"),
		Status:   filterValue(query.Get(r, "status")),
		Category: filterValue(query.Get(r, "category")),
	}

	ctx, cancel := context.WithTimeout(r.Context(), timeouts.Medium())
	defer cancel()

	// Categories come from the whole collection so the dropdown does not
	// shrink as filters are applied.
	all, err := h.Content.List(ctx, contentstore.Filter{})
	if err != nil {
		h.ErrLog.LogServerError(w, r, "list content failed", err, "Could not load content.", "/")
		return
	}
	items := all
	if f != (contentstore.Filter{}) {
		items, err = h.Content.List(ctx, f)
		if err != nil {
			h.ErrLog.LogServerError(w, r, "filter content failed", err, "Could not load content.", "/")
			return
		}
	}

	data := listData{
		BaseVM:     viewdata.NewBaseVM(r, "Content", "/"),
		Query:      f.Query,
		Status:     f.Status,
		Category:   f.Category,
		Statuses:   Statuses,
		Categories: categories(all),
		Items:      h.rows(items),
		CanEdit:    authz.CanEditContent(r),
	}
	if query.Get(r, "done") == "deleted" {
		data.Notice = "Content deleted."
	}
	templates.Render(w, r, "content_list", data)
}

func filterValue(v string) string {
	if strings.EqualFold(v, "all") {
		return ""
	}
	return v
}

func categories(items []models.AppContent) []string {
	seen := map[string]bool{}
	var out []string
	for _, c := range items {
		cat := c.Category()
		if !seen[cat] {
			seen[cat] = true
			out = append(out, cat)
		}
	}
	sort.Strings(out)
	return out
}

func (h *Handler) rows(items []models.AppContent) []itemRow {
	now := h.now()
	out := make([]itemRow, 0, len(items))
	for _, c := range items {
		row := itemRow{
			ID:        c.ID,
			Title:     c.DisplayTitle(),
			Category:  c.Category(),
			Status:    c.DisplayStatus(),
			Languages: languages(c),
			Updated:   "-",
		}
		if t, ok := c.LastChanged(); ok {
			row.Updated = usage.TimeAgo(t, now)
		}
		if c.Type == models.ContentTypeFAQ {
			row.EditURL = "/faqs/manage?id=" + c.ID
		}
		out = append(out, row)
	}
	return out
}

// languages lists the codes that have a block, e.g. "EN · SI".
func languages(c models.AppContent) string {
	var codes []string
	for _, l := range models.ContentLanguages {
		if c.Lang(l.Code) != nil {
			codes = append(codes, strings.ToUpper(l.Code))
		}
	}
	if len(codes) == 0 {
		return "-"
	}
	return strings.Join(codes, " · ")
}

/*─────────────────────────────────────────────────────────────────────────────*
| POST /content/{id}/delete                                                    |
*─────────────────────────────────────────────────────────────────────────────*/

func (h *Handler) HandleDelete(w http.ResponseWriter, r *http.Request) {
	DeleteItem(w, r, Deps{Store: h.Content, AuditLog: h.AuditLog, ErrLog: h.ErrLog, Log: h.Log}, "/content")
}

// ItemDeleter removes one stored item by id.
type ItemDeleter interface {
	Delete(ctx context.Context, id string) error
}

// Deps is what DeleteItem needs; the FAQ pages share it.
type Deps struct {
	Store    ItemDeleter
	AuditLog *auditlog.Logger
	ErrLog   *uierrors.ErrorLogger
	Log      *zap.Logger
}

// DeleteItem removes the item named by the {id} URL parameter after the
// editor check, then redirects to listURL with ?done=deleted.
func DeleteItem(w http.ResponseWriter, r *http.Request, d Deps, listURL string) {
	_, _, actorID, _ := authz.UserCtx(r)
	id := chi.URLParam(r, "id")
	htmx := r.Header.Get("HX-Request") == "true"

	if err := adminpolicy.CheckEditContent(authz.Actor(r)); err != nil {
		d.AuditLog.AccessDenied(r.Context(), r, actorID, "delete content", adminpolicy.MsgNotAllowedContent)
		if htmx {
			d.ErrLog.HTMXLogForbidden(w, r, "delete content denied", err, adminpolicy.MsgNotAllowedContent)
			return
		}
		d.ErrLog.LogForbidden(w, r, "delete content denied", err, adminpolicy.MsgNotAllowedContent, listURL)
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), timeouts.Short())
	defer cancel()

	if err := d.Store.Delete(ctx, id); err != nil {
		switch {
		case errors.Is(err, contentstore.ErrNotFound):
			d.ErrLog.LogNotFound(w, r, "content not found", err, "Content not found.", listURL)
		case htmx:
			d.ErrLog.HTMXLogServerError(w, r, "delete content failed", err, "Could not delete content.")
		default:
			d.ErrLog.LogServerError(w, r, "delete content failed", err, "Could not delete content.", listURL)
		}
		return
	}

	d.AuditLog.ContentDeleted(r.Context(), r, actorID, id)
	d.Log.Info("content deleted", zap.String("content_id", id), zap.String("by", actorID.Hex()))

	target := listURL + "?done=deleted"
	if htmx {
		w.Header().Set("HX-Redirect", target)
		w.WriteHeader(http.StatusOK)
		return
	}
	http.Redirect(w, r, target, http.StatusSeeOther)
}
