package core

import "testing"

func TestParseLanguage(t *testing.T) {
	tests := []struct {
		in      string
		want    Language
		wantErr bool
	}{
		{"en", LanguageEnglish, false},
		{"AR", LanguageArabic, false},
		{" ar-SA ", LanguageArabic, false},
		{"en-GB", LanguageEnglish, false},
		{"fr", "", true},
		{"", "", true},
	}
	for _, tt := range tests {
		got, err := ParseLanguage(tt.in)
		if (err != nil) != tt.wantErr {
			t.Errorf("ParseLanguage(%q) error = %v, wantErr %v", tt.in, err, tt.wantErr)
			continue
		}
		if got != tt.want {
			t.Errorf("ParseLanguage(%q) = %q, want %q", tt.in, got, tt.want)
		}
	}
}

func TestLanguage_ToggleAndDirection(t *testing.T) {
	if LanguageEnglish.Toggle() != LanguageArabic {
		t.Error("en should toggle to ar")
	}
	if LanguageArabic.Toggle() != LanguageEnglish {
		t.Error("ar should toggle to en")
	}
	if LanguageArabic.Direction() != DirectionRTL {
		t.Error("ar should be rtl")
	}
	if LanguageEnglish.Direction() != DirectionLTR {
		t.Error("en should be ltr")
	}

	p := PresentationFor(LanguageArabic)
	if p.Lang != LanguageArabic || p.Dir != DirectionRTL {
		t.Errorf("PresentationFor(ar) = %+v", p)
	}
}

func TestLanguage_Pick(t *testing.T) {
	tests := []struct {
		name string
		lang Language
		en   string
		ar   string
		want string
	}{
		{"arabic with arabic value", LanguageArabic, "Espresso", "إسبريسو", "إسبريسو"},
		{"arabic with empty arabic falls back to english", LanguageArabic, "Espresso", "", "Espresso"},
		{"arabic with whitespace arabic falls back to english", LanguageArabic, "Espresso", "   ", "Espresso"},
		{"english ignores arabic", LanguageEnglish, "Espresso", "إسبريسو", "Espresso"},
		{"english with missing english uses arabic", LanguageEnglish, "", "إسبريسو", "إسبريسو"},
		{"both empty", LanguageEnglish, "", "", ""},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := tt.lang.Pick(tt.en, tt.ar); got != tt.want {
				t.Errorf("Pick() = %q, want %q", got, tt.want)
			}
		})
	}
}
