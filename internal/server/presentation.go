package server

import (
	"sync/atomic"

	"github.com/labstack/echo/v4"

	"roastery/internal/core"
)

const (
	headerContentLanguage = "Content-Language"
	// HeaderTextDirection carries the current text direction (ltr or rtl).
	HeaderTextDirection = "X-Text-Direction"
)

// Presentation holds the document language and direction published by the
// storefront, and stamps them on every response.
type Presentation struct {
	cur atomic.Pointer[core.Presentation]
}

// NewPresentation starts with the presentation of lang.
func NewPresentation(lang core.Language) *Presentation {
	p := &Presentation{}
	p.ApplyPresentation(core.PresentationFor(lang))
	return p
}

// ApplyPresentation implements core.PresentationSink.
func (p *Presentation) ApplyPresentation(pr core.Presentation) {
	p.cur.Store(&pr)
}

// Current returns the last published presentation.
func (p *Presentation) Current() core.Presentation {
	if pr := p.cur.Load(); pr != nil {
		return *pr
	}
	return core.PresentationFor(core.LanguageEnglish)
}

// Middleware sets Content-Language and X-Text-Direction.
func (p *Presentation) Middleware() echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			setPresentationHeaders(c, p.Current())
			return next(c)
		}
	}
}

func setPresentationHeaders(c echo.Context, pr core.Presentation) {
	h := c.Response().Header()
	h.Set(headerContentLanguage, string(pr.Lang))
	h.Set(HeaderTextDirection, string(pr.Dir))
}
