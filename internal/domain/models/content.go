// internal/domain/models/content.go
package models

import (
	"strings"
	"time"
)

// Content types stored in app_content.
const (
	ContentTypeFAQ    = "faq"
	ContentTypeModule = "module"
)

// Content status values.
const (
	ContentPublished = "published"
	ContentDraft     = "draft"
	ContentScheduled = "scheduled"
)

// Languages the mobile app ships content in.
var ContentLanguages = []ContentLanguage{
	{Code: "en", Label: "English"},
	{Code: "si", Label: "Sinhala"},
	{Code: "ta", Label: "Tamil"},
}

// ContentLanguage pairs a language code with its display label.
type ContentLanguage struct {
	Code  string
	Label string
}

// FAQItem is one question/answer pair.
type FAQItem struct {
	Question string `bson:"question" json:"question"`
	Answer   string `bson:"answer" json:"answer"`
}

// LocalizedContent is the per-language block of a content document.
type LocalizedContent struct {
	Title     string    `bson:"title" json:"title"`
	Intro     string    `bson:"intro,omitempty" json:"intro,omitempty"`
	Body      string    `bson:"body,omitempty" json:"body,omitempty"`
	Questions []FAQItem `bson:"questions,omitempty" json:"questions,omitempty"`
}

// AppContent is one entry of app_content: a wellness module or an FAQ
// section, localized in English, Sinhala and Tamil.
type AppContent struct {
	ID        string            `bson:"_id" json:"id"`
	Type      string            `bson:"type" json:"type"`
	Status    string            `bson:"status,omitempty" json:"status,omitempty"`
	Title     string            `bson:"title,omitempty" json:"title,omitempty"`
	EN        *LocalizedContent `bson:"en,omitempty" json:"en,omitempty"`
	SI        *LocalizedContent `bson:"si,omitempty" json:"si,omitempty"`
	TA        *LocalizedContent `bson:"ta,omitempty" json:"ta,omitempty"`
	UpdatedBy string            `bson:"updatedBy,omitempty" json:"updatedBy,omitempty"`
	UpdatedAt FlexTime          `bson:"updatedAt" json:"-"`
	CreatedAt FlexTime          `bson:"createdAt" json:"-"`
}

// Lang returns the block for a language code, or nil.
func (c AppContent) Lang(code string) *LocalizedContent {
	switch code {
	case "en":
		return c.EN
	case "si":
		return c.SI
	case "ta":
		return c.TA
	}
	return nil
}

// DisplayTitle prefers the English title.
func (c AppContent) DisplayTitle() string {
	if c.EN != nil && c.EN.Title != "" {
		return c.EN.Title
	}
	if c.Title != "" {
		return c.Title
	}
	if c.Type == ContentTypeFAQ {
		return "Untitled FAQ"
	}
	return "Untitled Content"
}

// DisplayStatus defaults to published.
func (c AppContent) DisplayStatus() string {
	if c.Status == "" {
		return ContentPublished
	}
	return c.Status
}

// Category is the capitalized content type, or "General".
func (c AppContent) Category() string {
	if c.Type == "" {
		return "General"
	}
	return strings.ToUpper(c.Type[:1]) + c.Type[1:]
}

// LastChanged returns updatedAt, falling back to createdAt.
func (c AppContent) LastChanged() (time.Time, bool) {
	if c.UpdatedAt.Valid {
		return c.UpdatedAt.Time, true
	}
	if c.CreatedAt.Valid {
		return c.CreatedAt.Time, true
	}
	return time.Time{}, false
}
