package faqs

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"testing"

	uierrors "github.com/dalemusser/mansahub/internal/app/features/errors"
	contentstore "github.com/dalemusser/mansahub/internal/app/store/content"
	"github.com/dalemusser/mansahub/internal/domain/models"
	"github.com/dalemusser/mansahub/internal/testutil"
	"go.uber.org/zap"
)

type saved struct {
	id  string
	faq contentstore.FAQ
	by  string
}

type fakeStore struct {
	items   map[string]models.AppContent
	saves   []saved
	saveErr error
	deleted []string
}

func (f *fakeStore) List(_ context.Context, flt contentstore.Filter) ([]models.AppContent, error) {
	var out []models.AppContent
	for _, c := range f.items {
		if flt.Type != "" && c.Type != flt.Type {
			continue
		}
		out = append(out, c)
	}
	return out, nil
}

func (f *fakeStore) Get(_ context.Context, id string) (models.AppContent, error) {
	c, ok := f.items[id]
	if !ok {
		return models.AppContent{}, contentstore.ErrNotFound
	}
	return c, nil
}

func (f *fakeStore) Exists(_ context.Context, id string) (bool, error) {
	_, ok := f.items[id]
	return ok, nil
}

func (f *fakeStore) SaveFAQ(_ context.Context, id string, faq contentstore.FAQ, by string) error {
	if f.saveErr != nil {
		return f.saveErr
	}
	f.saves = append(f.saves, saved{id: id, faq: faq, by: by})
	return nil
}

func (f *fakeStore) Delete(_ context.Context, id string) error {
	if _, ok := f.items[id]; !ok {
		return contentstore.ErrNotFound
	}
	delete(f.items, id)
	f.deleted = append(f.deleted, id)
	return nil
}

func newHandler() (*Handler, *fakeStore) {
	fs := &fakeStore{items: map[string]models.AppContent{
		"faq_existing": {
			ID:   "faq_existing",
			Type: models.ContentTypeFAQ,
			EN:   &models.LocalizedContent{Title: "Existing"},
		},
	}}
	logger := zap.NewNop()
	return NewHandler(fs, nil, uierrors.NewErrorLogger(logger), logger), fs
}

func serve(fn http.HandlerFunc, req *http.Request) *httptest.ResponseRecorder {
	rec := httptest.NewRecorder()
	func() {
		defer func() { _ = recover() }()
		fn(rec, req)
	}()
	return rec
}

func saveForm(v url.Values, user testutil.TestUser) *http.Request {
	return testutil.NewFormRequest("/faqs/manage", v.Encode(), user)
}

func TestHandleSave_NewSection(t *testing.T) {
	h, fs := newHandler()
	v := url.Values{
		"is_new":      {"1"},
		"en_title":    {"Baby Movements"},
		"en_intro":    {"Counting <b>kicks</b><script>alert(1)</script>"},
		"en_question": {"How often?", "", "When to call?"},
		"en_answer":   {"Ten a day", "orphan answer", "<a href=\"javascript:x()\">now</a>"},
		"si_title":    {"ළදරු චලනයන්"},
	}
	editor := testutil.EditorUser()
	rec := serve(h.HandleSave, saveForm(v, editor))

	if rec.Code != http.StatusSeeOther {
		t.Fatalf("expected 303, got %d", rec.Code)
	}
	if loc := rec.Header().Get("Location"); loc != "/faqs/manage?id=faq_baby_movements&done=saved" {
		t.Errorf("unexpected redirect %q", loc)
	}
	if len(fs.saves) != 1 {
		t.Fatalf("expected 1 save, got %d", len(fs.saves))
	}
	s := fs.saves[0]
	if s.id != "faq_baby_movements" {
		t.Errorf("expected generated id, got %q", s.id)
	}
	if s.by != editor.ID {
		t.Errorf("expected updatedBy to be the editor, got %q", s.by)
	}
	if strings.Contains(s.faq.EN.Intro, "script") {
		t.Errorf("expected intro to be sanitized, got %q", s.faq.EN.Intro)
	}
	if len(s.faq.EN.Questions) != 2 {
		t.Fatalf("expected blank question dropped, got %d questions", len(s.faq.EN.Questions))
	}
	if s.faq.EN.Questions[1].Question != "When to call?" {
		t.Errorf("expected pairs to stay aligned, got %q", s.faq.EN.Questions[1].Question)
	}
	if strings.Contains(s.faq.EN.Questions[1].Answer, "javascript") {
		t.Errorf("expected answer to be sanitized, got %q", s.faq.EN.Questions[1].Answer)
	}
	if s.faq.SI.Title != "ළදරු චලනයන්" {
		t.Errorf("expected Sinhala title kept, got %q", s.faq.SI.Title)
	}
	if len(s.faq.TA.Questions) != 0 {
		t.Errorf("expected no Tamil questions, got %d", len(s.faq.TA.Questions))
	}
}

func TestHandleSave_ExistingSectionKeepsID(t *testing.T) {
	h, fs := newHandler()
	v := url.Values{"id": {"faq_existing"}, "en_title": {"Renamed"}}
	rec := serve(h.HandleSave, saveForm(v, testutil.AdminUser()))

	if rec.Code != http.StatusSeeOther {
		t.Fatalf("expected 303, got %d", rec.Code)
	}
	if len(fs.saves) != 1 || fs.saves[0].id != "faq_existing" {
		t.Errorf("expected save to faq_existing, got %+v", fs.saves)
	}
}

func TestHandleSave_Rejections(t *testing.T) {
	tests := []struct {
		name string
		form url.Values
	}{
		{"missing english title", url.Values{"is_new": {"1"}, "si_title": {"x"}}},
		{"id taken", url.Values{"is_new": {"1"}, "id": {"faq_existing"}, "en_title": {"Other"}}},
		{"bad id", url.Values{"is_new": {"1"}, "id": {"faq existing!"}, "en_title": {"Other"}}},
		{"add question", url.Values{"add": {"en"}, "en_title": {"Title"}}},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			h, fs := newHandler()
			rec := serve(h.HandleSave, saveForm(tc.form, testutil.EditorUser()))

			if rec.Code == http.StatusSeeOther {
				t.Errorf("expected the form to re-render, got redirect to %q", rec.Header().Get("Location"))
			}
			if len(fs.saves) != 0 {
				t.Errorf("expected no save, got %d", len(fs.saves))
			}
		})
	}
}

func TestHandleSave_ViewerForbidden(t *testing.T) {
	h, fs := newHandler()
	v := url.Values{"en_title": {"Anything"}}
	rec := serve(h.HandleSave, saveForm(v, testutil.ViewerUser()))

	if rec.Code != http.StatusForbidden {
		t.Errorf("expected 403, got %d", rec.Code)
	}
	if len(fs.saves) != 0 {
		t.Errorf("expected no save, got %d", len(fs.saves))
	}
}

func TestHandleSave_StoreFailureDoesNotRedirect(t *testing.T) {
	h, fs := newHandler()
	fs.saveErr = errors.New("write conflict")
	v := url.Values{"is_new": {"1"}, "en_title": {"New"}}
	rec := serve(h.HandleSave, saveForm(v, testutil.EditorUser()))

	if rec.Code == http.StatusSeeOther {
		t.Error("expected the form to re-render after a failed save")
	}
}

func TestHandleDelete(t *testing.T) {
	tests := []struct {
		user testutil.TestUser
		want int
	}{
		{testutil.EditorUser(), http.StatusSeeOther},
		{testutil.ViewerUser(), http.StatusForbidden},
	}
	for _, tc := range tests {
		t.Run(tc.user.Role, func(t *testing.T) {
			h, _ := newHandler()
			req := testutil.NewFormRequest("/faqs/faq_existing/delete", "", tc.user)
			req = testutil.WithChiURLParam(req, "id", "faq_existing")
			rec := serve(h.HandleDelete, req)

			if rec.Code != tc.want {
				t.Errorf("expected %d, got %d", tc.want, rec.Code)
			}
			if tc.want == http.StatusSeeOther && rec.Header().Get("Location") != "/faqs?done=deleted" {
				t.Errorf("unexpected redirect %q", rec.Header().Get("Location"))
			}
		})
	}
}

func TestSectionID(t *testing.T) {
	tests := map[string]string{
		"Baby Movements":        "faq_baby_movements",
		"  Labour & Delivery! ": "faq_labour_delivery",
		"Week 12":               "faq_week_12",
		"!!!":                   "faq_new",
	}
	for in, want := range tests {
		if got := SectionID(in); got != want {
			t.Errorf("SectionID(%q): expected %q, got %q", in, want, got)
		}
	}
}

func TestBlocksFromContent_AlwaysThreeLanguages(t *testing.T) {
	blocks := blocksFromContent(models.AppContent{
		EN: &models.LocalizedContent{
			Title:     "Sleep",
			Questions: []models.FAQItem{{Question: "How long?", Answer: "Eight hours"}},
		},
	})
	if len(blocks) != 3 {
		t.Fatalf("expected 3 language blocks, got %d", len(blocks))
	}
	if blocks[0].Code != "en" || blocks[0].Title != "Sleep" || len(blocks[0].Questions) != 1 {
		t.Errorf("unexpected English block %+v", blocks[0])
	}
	if len(blocks[2].Questions) != 1 || blocks[2].Questions[0].Question != "" {
		t.Errorf("expected one blank Tamil question, got %+v", blocks[2].Questions)
	}
}
