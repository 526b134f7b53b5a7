package core

import (
	"fmt"
	"strings"
)

// Language is one of the two storefront languages.
type Language string

const (
	LanguageEnglish Language = "en"
	LanguageArabic  Language = "ar"
)

// Direction is the text direction a language is laid out in.
type Direction string

const (
	DirectionLTR Direction = "ltr"
	DirectionRTL Direction = "rtl"
)

// ParseLanguage accepts "en"/"ar" in any case, with optional region suffix ("ar-SA").
func ParseLanguage(s string) (Language, error) {
	base, _, _ := strings.Cut(strings.ToLower(strings.TrimSpace(s)), "-")
	switch Language(base) {
	case LanguageEnglish:
		return LanguageEnglish, nil
	case LanguageArabic:
		return LanguageArabic, nil
	default:
		return "", fmt.Errorf("unsupported language %q (valid: en, ar)", s)
	}
}

// Valid reports whether l is a supported language.
func (l Language) Valid() bool {
	return l == LanguageEnglish || l == LanguageArabic
}

// Toggle flips between the two supported languages.
func (l Language) Toggle() Language {
	if l == LanguageArabic {
		return LanguageEnglish
	}
	return LanguageArabic
}

// Direction returns rtl for Arabic and ltr otherwise.
func (l Language) Direction() Direction {
	if l == LanguageArabic {
		return DirectionRTL
	}
	return DirectionLTR
}

// Pick selects the localized variant of a field. Arabic is used only when the
// language is Arabic and the Arabic value is non-empty; otherwise English,
// falling back to Arabic so a missing translation never renders blank.
func (l Language) Pick(en, ar string) string {
	en = strings.TrimSpace(en)
	ar = strings.TrimSpace(ar)
	if l == LanguageArabic && ar != "" {
		return ar
	}
	if en != "" {
		return en
	}
	return ar
}

// Presentation is the process-wide document state derived from the language.
type Presentation struct {
	Lang Language  `json:"lang"`
	Dir  Direction `json:"dir"`
}

// PresentationFor builds the presentation of a language.
func PresentationFor(l Language) Presentation {
	return Presentation{Lang: l, Dir: l.Direction()}
}

// PresentationSink receives presentation updates. It is the explicit
// replacement for mutating global document attributes.
type PresentationSink interface {
	ApplyPresentation(p Presentation)
}
