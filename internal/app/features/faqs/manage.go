// internal/app/features/faqs/manage.go
package faqs

import (
	"context"
	"errors"
	"html/template"
	"net/http"
	"net/url"
	"regexp"
	"strings"

	"github.com/dalemusser/mansahub/internal/app/features/content"
	uierrors "github.com/dalemusser/mansahub/internal/app/features/errors"
	"github.com/dalemusser/mansahub/internal/app/policy/adminpolicy"
	contentstore "github.com/dalemusser/mansahub/internal/app/store/content"
	"github.com/dalemusser/mansahub/internal/app/system/authz"
	"github.com/dalemusser/mansahub/internal/app/system/formutil"
	"github.com/dalemusser/mansahub/internal/app/system/htmlsanitize"
	"github.com/dalemusser/mansahub/internal/app/system/timeouts"
	"github.com/dalemusser/mansahub/internal/domain/models"
	"github.com/dalemusser/waffle/pantry/query"
	"github.com/dalemusser/waffle/pantry/templates"
	"github.com/dalemusser/waffle/pantry/text"
	"go.uber.org/zap"
)

const (
	MsgSaved        = "FAQ content saved successfully."
	MsgSaveFailed   = "Failed to save content."
	MsgNoPermission = "You do not have permission to save."
	MsgLoadFailed   = "Could not load FAQ data."
	MsgTitleMissing = "English title is required."
	MsgIDTaken      = "A section with this ID already exists."
	MsgIDInvalid    = "Section ID may only contain lowercase letters, digits and underscores."
)

// idPrefix starts every generated section id, e.g. faq_baby_movements.
const idPrefix = "faq_"

var (
	validID = regexp.MustCompile(`^[a-z0-9_]+$`)
	nonSlug = regexp.MustCompile(`[^a-z0-9]+`)
)

type qaRow struct {
	Number   int
	Question string
	Answer   string
	Preview  template.HTML
}

type langBlock struct {
	Code      string
	Label     string
	Title     string
	Intro     string
	Questions []qaRow
}

type manageData struct {
	formutil.Base
	ID      string
	IsNew   bool
	CanEdit bool
	Langs   []langBlock
	Notice  string
}

/*─────────────────────────────────────────────────────────────────────────────*
| GET /faqs/manage?id=                                                         |
*─────────────────────────────────────────────────────────────────────────────*/

// ServeManage shows the FAQ builder. Without ?id= it starts a new section.
// Viewers see the form read-only.
func (h *Handler) ServeManage(w http.ResponseWriter, r *http.Request) {
	id := query.Get(r, "id")
	data := manageData{ID: id, IsNew: id == "", CanEdit: authz.CanEditContent(r)}

	if id != "" {
		ctx, cancel := context.WithTimeout(r.Context(), timeouts.Short())
		defer cancel()

		item, err := h.Content.Get(ctx, id)
		switch {
		case errors.Is(err, contentstore.ErrNotFound):
			data.IsNew = true
		case err != nil:
			h.ErrLog.LogServerError(w, r, "load faq failed", err, MsgLoadFailed, "/faqs")
			return
		default:
			data.Langs = blocksFromContent(item)
		}
	}
	if data.Langs == nil {
		data.Langs = blocksFromContent(models.AppContent{})
	}
	if query.Get(r, "done") == "saved" {
		data.Notice = MsgSaved
	}
	h.render(w, r, data)
}

/*─────────────────────────────────────────────────────────────────────────────*
| POST /faqs/manage                                                            |
*─────────────────────────────────────────────────────────────────────────────*/

// HandleSave stores all three languages of a section. A post carrying
// add=<lang> re-renders the form with one more blank question instead.
func (h *Handler) HandleSave(w http.ResponseWriter, r *http.Request) {
	_, _, actorID, _ := authz.UserCtx(r)

	if err := r.ParseForm(); err != nil {
		h.ErrLog.LogBadRequest(w, r, "parse form failed", err, "Invalid form data.", "/faqs")
		return
	}

	data := manageData{
		ID:      strings.ToLower(formutil.Value(r, "id")),
		IsNew:   formutil.Value(r, "is_new") == "1",
		CanEdit: authz.CanEditContent(r),
		Langs:   blocksFromForm(r),
	}

	if add := formutil.Value(r, "add"); add != "" {
		for i := range data.Langs {
			if data.Langs[i].Code == add {
				data.Langs[i].Questions = append(data.Langs[i].Questions, qaRow{})
			}
		}
		h.render(w, r, data)
		return
	}

	if err := adminpolicy.CheckEditContent(authz.Actor(r)); err != nil {
		h.AuditLog.AccessDenied(r.Context(), r, actorID, "save faq", MsgNoPermission)
		h.ErrLog.LogForbidden(w, r, "save faq denied", err, MsgNoPermission, "/faqs")
		return
	}

	faq := toFAQ(data.Langs)
	if faq.EN.Title == "" {
		h.reRender(w, r, data, MsgTitleMissing)
		return
	}
	if data.ID == "" {
		data.ID = SectionID(faq.EN.Title)
	}
	if !validID.MatchString(data.ID) {
		h.reRender(w, r, data, MsgIDInvalid)
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), timeouts.Short())
	defer cancel()

	if data.IsNew {
		exists, err := h.Content.Exists(ctx, data.ID)
		if err != nil {
			h.Log.Error("check faq id failed", zap.Error(err), zap.String("content_id", data.ID))
			h.reRender(w, r, data, MsgSaveFailed)
			return
		}
		if exists {
			h.reRender(w, r, data, MsgIDTaken)
			return
		}
	}

	if err := h.Content.SaveFAQ(ctx, data.ID, faq, actorID.Hex()); err != nil {
		werr := uierrors.NewTransientWriteError("save faq", err, MsgSaveFailed)
		h.Log.Error("save faq failed", zap.Error(werr), zap.String("content_id", data.ID))
		h.reRender(w, r, data, uierrors.WriteNotice(werr))
		return
	}

	h.AuditLog.ContentSaved(r.Context(), r, actorID, data.ID, models.ContentTypeFAQ)
	h.Log.Info("faq saved", zap.String("content_id", data.ID), zap.String("by", actorID.Hex()))
	http.Redirect(w, r, "/faqs/manage?id="+url.QueryEscape(data.ID)+"&done=saved", http.StatusSeeOther)
}

/*─────────────────────────────────────────────────────────────────────────────*
| POST /faqs/{id}/delete                                                       |
*─────────────────────────────────────────────────────────────────────────────*/

func (h *Handler) HandleDelete(w http.ResponseWriter, r *http.Request) {
	content.DeleteItem(w, r, content.Deps{Store: h.Content, AuditLog: h.AuditLog, ErrLog: h.ErrLog, Log: h.Log}, "/faqs")
}

func (h *Handler) reRender(w http.ResponseWriter, r *http.Request, data manageData, msg string) {
	data.SetError(msg)
	h.render(w, r, data)
}

func (h *Handler) render(w http.ResponseWriter, r *http.Request, data manageData) {
	title := "New FAQ Section"
	if !data.IsNew {
		title = "Edit FAQ Section"
	}
	formutil.SetBase(&data.Base, r, title, "/faqs")
	for i := range data.Langs {
		for j := range data.Langs[i].Questions {
			q := &data.Langs[i].Questions[j]
			q.Number = j + 1
			q.Preview = htmlsanitize.PrepareForDisplay(q.Answer)
		}
	}
	templates.Render(w, r, "faqs_manage", data)
}

// SectionID derives a section id from an English title:
// "Baby Movements" becomes faq_baby_movements.
func SectionID(title string) string {
	slug := nonSlug.ReplaceAllString(strings.ToLower(text.Fold(title)), "_")
	slug = strings.Trim(slug, "_")
	if slug == "" {
		return "faq_new"
	}
	return idPrefix + slug
}

func blocksFromContent(c models.AppContent) []langBlock {
	out := make([]langBlock, 0, len(models.ContentLanguages))
	for _, l := range models.ContentLanguages {
		b := langBlock{Code: l.Code, Label: l.Label}
		if lc := c.Lang(l.Code); lc != nil {
			b.Title = lc.Title
			b.Intro = lc.Intro
			for _, q := range lc.Questions {
				b.Questions = append(b.Questions, qaRow{Question: q.Question, Answer: q.Answer})
			}
		}
		if len(b.Questions) == 0 {
			b.Questions = []qaRow{{}}
		}
		out = append(out, b)
	}
	return out
}

// blocksFromForm reads <lang>_title, <lang>_intro and the paired
// <lang>_question / <lang>_answer lists.
func blocksFromForm(r *http.Request) []langBlock {
	out := make([]langBlock, 0, len(models.ContentLanguages))
	for _, l := range models.ContentLanguages {
		b := langBlock{
			Code:  l.Code,
			Label: l.Label,
			Title: formutil.Value(r, l.Code+"_title"),
			Intro: formutil.Value(r, l.Code+"_intro"),
		}
		qs := r.PostForm[l.Code+"_question"]
		as := r.PostForm[l.Code+"_answer"]
		for i, q := range qs {
			row := qaRow{Question: strings.TrimSpace(q)}
			if i < len(as) {
				row.Answer = strings.TrimSpace(as[i])
			}
			b.Questions = append(b.Questions, row)
		}
		if len(b.Questions) == 0 {
			b.Questions = []qaRow{{}}
		}
		out = append(out, b)
	}
	return out
}

// toFAQ builds the stored form: intros and answers are sanitized and
// pairs with an empty question are dropped.
func toFAQ(blocks []langBlock) contentstore.FAQ {
	var faq contentstore.FAQ
	for _, b := range blocks {
		lc := models.LocalizedContent{
			Title: b.Title,
			Intro: htmlsanitize.Sanitize(b.Intro),
		}
		for _, q := range b.Questions {
			if q.Question == "" {
				continue
			}
			lc.Questions = append(lc.Questions, models.FAQItem{
				Question: q.Question,
				Answer:   htmlsanitize.Sanitize(q.Answer),
			})
		}
		switch b.Code {
		case "en":
			faq.EN = lc
		case "si":
			faq.SI = lc
		case "ta":
			faq.TA = lc
		}
	}
	return faq
}
