package images

// FallbackMarker is set on an element once its source was swapped.
const FallbackMarker = "data-fallback-applied"

// Element is the minimal view of an image element the fallback guard needs.
type Element struct {
	Src   string
	Attrs map[string]string
}

// HandleError swaps a broken image source for fallbackURL exactly once per
// element. A second error (the fallback itself failing) leaves the element
// alone, which prevents error-retry loops. It reports whether it swapped.
func HandleError(el *Element, fallbackURL string) bool {
	if el == nil || fallbackURL == "" {
		return false
	}
	if _, applied := el.Attrs[FallbackMarker]; applied {
		return false
	}
	if el.Attrs == nil {
		el.Attrs = make(map[string]string)
	}
	el.Attrs[FallbackMarker] = "true"
	el.Src = fallbackURL
	return true
}
