package seo

import (
	"encoding/csv"
	"fmt"
	"io"
	"net/url"
	"strconv"
	"strings"

	"roastery/internal/core"
)

var feedHeader = []string{"id", "title", "description", "link", "image_link", "availability", "price", "product_type"}

// ProductFeed writes a merchant product feed as CSV. Products priced at zero
// are listed as out of stock since they cannot be ordered.
func ProductFeed(w io.Writer, baseURL, currency string, products []core.Product) error {
	base := strings.TrimRight(baseURL, "/")
	if currency == "" {
		currency = "USD"
	}

	cw := csv.NewWriter(w)
	if err := cw.Write(feedHeader); err != nil {
		return fmt.Errorf("writing feed header: %w", err)
	}

	for _, p := range products {
		availability := "in stock"
		if p.Price <= 0 {
			availability = "out of stock"
		}
		record := []string{
			p.ID,
			p.Name,
			oneLine(p.Description),
			base + "/products/" + url.PathEscape(productHandle(p)),
			p.Image,
			availability,
			strconv.FormatFloat(p.Price, 'f', 2, 64) + " " + currency,
			p.Category,
		}
		if err := cw.Write(record); err != nil {
			return fmt.Errorf("writing feed row for product %s: %w", p.ID, err)
		}
	}

	cw.Flush()
	return cw.Error()
}

func oneLine(s string) string {
	return strings.Join(strings.Fields(s), " ")
}
