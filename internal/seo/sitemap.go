// Package seo renders search-engine artifacts from the normalized catalog:
// an XML sitemap with language alternates and a CSV product feed.
package seo

import (
	"encoding/xml"
	"fmt"
	"net/url"
	"strings"
	"time"

	"roastery/internal/core"
)

const (
	sitemapNS = "http://www.sitemaps.org/schemas/sitemap/0.9"
	xhtmlNS   = "http://www.w3.org/1999/xhtml"
)

type urlSet struct {
	XMLName xml.Name     `xml:"urlset"`
	NS      string       `xml:"xmlns,attr"`
	XHTML   string       `xml:"xmlns:xhtml,attr"`
	URLs    []sitemapURL `xml:"url"`
}

type sitemapURL struct {
	Loc        string      `xml:"loc"`
	LastMod    string      `xml:"lastmod,omitempty"`
	ChangeFreq string      `xml:"changefreq,omitempty"`
	Priority   string      `xml:"priority,omitempty"`
	Alternates []alternate `xml:"xhtml:link"`
}

type alternate struct {
	Rel      string `xml:"rel,attr"`
	HrefLang string `xml:"hreflang,attr"`
	Href     string `xml:"href,attr"`
}

// Sitemap renders a sitemap of the home page, every category and every
// product. Each page lists its English and Arabic alternates, which live
// under /en and /ar; the unprefixed URL is the x-default.
func Sitemap(baseURL string, products []core.Product, categories []core.Category, lastMod time.Time) ([]byte, error) {
	base := strings.TrimRight(baseURL, "/")
	if _, err := url.ParseRequestURI(base); err != nil || base == "" {
		return nil, fmt.Errorf("invalid base URL %q", baseURL)
	}

	mod := ""
	if !lastMod.IsZero() {
		mod = lastMod.UTC().Format("2006-01-02")
	}

	set := urlSet{NS: sitemapNS, XHTML: xhtmlNS}
	add := func(path, freq, priority string) {
		set.URLs = append(set.URLs, sitemapURL{
			Loc:        base + path,
			LastMod:    mod,
			ChangeFreq: freq,
			Priority:   priority,
			Alternates: alternates(base, path),
		})
	}

	add("/", "daily", "1.0")
	for _, c := range categories {
		if c.Slug == "" {
			continue
		}
		add("/categories/"+url.PathEscape(c.Slug), "weekly", "0.8")
	}
	for _, p := range products {
		add("/products/"+url.PathEscape(productHandle(p)), "weekly", "0.6")
	}

	out, err := xml.MarshalIndent(set, "", "  ")
	if err != nil {
		return nil, fmt.Errorf("encoding sitemap: %w", err)
	}
	return append([]byte(xml.Header), out...), nil
}

func alternates(base, path string) []alternate {
	return []alternate{
		{Rel: "alternate", HrefLang: string(core.LanguageEnglish), Href: base + "/" + string(core.LanguageEnglish) + path},
		{Rel: "alternate", HrefLang: string(core.LanguageArabic), Href: base + "/" + string(core.LanguageArabic) + path},
		{Rel: "alternate", HrefLang: "x-default", Href: base + path},
	}
}

// productHandle prefers the slug for readable URLs.
func productHandle(p core.Product) string {
	if p.Slug != "" {
		return p.Slug
	}
	return p.ID
}
