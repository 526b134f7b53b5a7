package catalog

import (
	"math"
	"strconv"
	"strings"

	"github.com/tidwall/gjson"
)

// RawProduct is one product record exactly as the API returned it. Field
// access goes through the lookup tables below, never through a fixed struct,
// because field names differ between endpoint versions.
type RawProduct []byte

// RawCategory is one category record exactly as the API returned it.
type RawCategory []byte

// localizedField is an English/Arabic pair of candidate paths.
type localizedField struct {
	en []string
	ar []string
}

var (
	productName = localizedField{
		en: []string{"name", "nameEn"},
		ar: []string{"nameAr"},
	}
	productDescription = localizedField{
		en: []string{"description", "descriptionEn", "shortDescription"},
		ar: []string{"descriptionAr", "shortDescriptionAr"},
	}
	productTastingNotes = localizedField{
		en: []string{"tastingNotes", "tastingNotesEn"},
		ar: []string{"tastingNotesAr"},
	}
	// Nested category object first, then the flat companion fields.
	productCategoryName = localizedField{
		en: []string{"category.name", "category.nameEn", "categoryName"},
		ar: []string{"category.nameAr", "categoryNameAr"},
	}

	productCategoryID   = []string{"category.id", "categoryId"}
	productCategorySlug = []string{"category.slug", "categorySlug"}
	productSlug         = []string{"slug"}

	categoryName = localizedField{
		en: []string{"name", "nameEn"},
		ar: []string{"nameAr"},
	}
	categoryDescription = localizedField{
		en: []string{"description", "descriptionEn"},
		ar: []string{"descriptionAr"},
	}
	categoryImage    = []string{"imagePath", "imageUrl", "image"}
	categoryHomepage = []string{"isDisplayedOnHomepage", "displayOnHomepage", "showOnHomepage"}
)

// ID returns the product id in decimal-string form.
func (p RawProduct) ID() string {
	return idString(gjson.GetBytes(p, "id"))
}

// ID returns the category id in decimal-string form.
func (c RawCategory) ID() string {
	return idString(gjson.GetBytes(c, "id"))
}

// idString renders numeric ids without exponent or trailing zeros. Integer
// literals are kept digit for digit, whatever their size.
func idString(v gjson.Result) string {
	switch v.Type {
	case gjson.Number:
		if isIntegerLiteral(v.Raw) {
			return v.Raw
		}
		if v.Num == math.Trunc(v.Num) && math.Abs(v.Num) < 1<<63 {
			return strconv.FormatInt(int64(v.Num), 10)
		}
		return strconv.FormatFloat(v.Num, 'f', -1, 64)
	case gjson.String:
		return strings.TrimSpace(v.Str)
	default:
		return ""
	}
}

func isIntegerLiteral(raw string) bool {
	raw = strings.TrimPrefix(raw, "-")
	if raw == "" {
		return false
	}
	for i := 0; i < len(raw); i++ {
		if raw[i] < '0' || raw[i] > '9' {
			return false
		}
	}
	return true
}

// firstString returns the first non-empty string or id-like value found at
// any of paths, trying each record in order.
func firstString(paths []string, records ...[]byte) string {
	for _, rec := range records {
		if len(rec) == 0 {
			continue
		}
		for _, p := range paths {
			if v := idString(gjson.GetBytes(rec, p)); v != "" {
				return v
			}
		}
	}
	return ""
}

// values resolves the en/ar pair across records, detail first.
func (f localizedField) values(records ...[]byte) (en, ar string) {
	return firstString(f.en, records...), firstString(f.ar, records...)
}

// number reads a numeric field, accepting numeric strings ("5.00").
func number(v gjson.Result) (float64, bool) {
	switch v.Type {
	case gjson.Number:
		return v.Num, true
	case gjson.String:
		f, err := strconv.ParseFloat(strings.TrimSpace(v.Str), 64)
		if err != nil {
			return 0, false
		}
		return f, true
	default:
		return 0, false
	}
}

// boolAt reads the first boolean at any of paths; "true" strings count.
func boolAt(raw []byte, paths []string) bool {
	for _, p := range paths {
		v := gjson.GetBytes(raw, p)
		switch v.Type {
		case gjson.True:
			return true
		case gjson.False:
			return false
		case gjson.String:
			if b, err := strconv.ParseBool(v.Str); err == nil {
				return b
			}
		}
	}
	return false
}
