package catalog

import (
	"context"
	"errors"
	"log/slog"
	"sort"

	"github.com/tidwall/gjson"
	"golang.org/x/sync/errgroup"

	"roastery/internal/core"
	"roastery/internal/images"
	"roastery/internal/observability"
)

// DefaultDetailConcurrency bounds concurrent per-product detail fetches.
const DefaultDetailConcurrency = 8

// DetailFetcher fetches a single product's detail record.
type DetailFetcher interface {
	GetProduct(ctx context.Context, id string) (RawProduct, error)
}

// Outcome is the result of normalizing one product. When Enriched is false
// the detail fetch failed (Err says why) and Product was built from the list
// record alone.
type Outcome struct {
	Product  core.Product
	Enriched bool
	Err      error
}

// Normalizer turns raw API records into localized view-models.
type Normalizer struct {
	details     DetailFetcher
	resolver    *images.Resolver
	concurrency int
}

// NewNormalizer creates a normalizer. A non-positive concurrency uses
// DefaultDetailConcurrency.
func NewNormalizer(details DetailFetcher, resolver *images.Resolver, concurrency int) *Normalizer {
	if concurrency <= 0 {
		concurrency = DefaultDetailConcurrency
	}
	return &Normalizer{details: details, resolver: resolver, concurrency: concurrency}
}

// Products enriches every list record with its detail record and normalizes
// it. Detail failures never abort the batch. The result order follows list.
func (n *Normalizer) Products(ctx context.Context, lang core.Language, list []RawProduct) []Outcome {
	outcomes := make([]Outcome, len(list))

	var g errgroup.Group
	g.SetLimit(n.concurrency)
	for i, baseline := range list {
		g.Go(func() error {
			outcomes[i] = n.enrich(ctx, lang, baseline)
			return nil
		})
	}
	_ = g.Wait()

	return outcomes
}

func (n *Normalizer) enrich(ctx context.Context, lang core.Language, baseline RawProduct) Outcome {
	id := baseline.ID()

	var (
		detail RawProduct
		err    error
	)
	switch {
	case id == "":
		err = errors.New("product record has no id")
	case ctx.Err() != nil:
		err = ctx.Err()
	default:
		detail, err = n.details.GetProduct(ctx, id)
	}

	if err != nil {
		slog.Debug("product detail unavailable, using list record", "id", id, "error", err)
		observability.ProductEnrichments.WithLabelValues("baseline").Inc()
		return Outcome{Product: n.Product(lang, baseline, nil), Err: err}
	}

	observability.ProductEnrichments.WithLabelValues("enriched").Inc()
	p := n.Product(lang, baseline, detail)
	p.Enriched = true
	return Outcome{Product: p, Enriched: true}
}

// Product normalizes one product. detail may be nil, in which case the list
// record stands in for it.
func (n *Normalizer) Product(lang core.Language, baseline, detail RawProduct) core.Product {
	if len(detail) == 0 {
		detail = baseline
	}
	recs := [][]byte{detail, baseline}

	nameEn, nameAr := productName.values(recs...)
	descEn, descAr := productDescription.values(recs...)
	notesEn, notesAr := productTastingNotes.values(recs...)
	catEn, catAr := productCategoryName.values(recs...)

	id := detail.ID()
	if id == "" {
		id = baseline.ID()
	}

	imgs := n.resolver.ProductImageURLs(detail)
	return core.Product{
		ID:           id,
		Slug:         firstString(productSlug, recs...),
		Name:         lang.Pick(nameEn, nameAr),
		Description:  lang.Pick(descEn, descAr),
		TastingNotes: lang.Pick(notesEn, notesAr),
		Category:     lang.Pick(catEn, catAr),
		CategoryID:   firstString(productCategoryID, recs...),
		CategorySlug: firstString(productCategorySlug, recs...),
		Price:        resolvePrice(baseline, detail),
		Image:        n.resolver.ProductImageURL(detail),
		Images:       imgs,
	}
}

// resolvePrice picks the default variant (else the first) and uses its
// discountPrice when positive, else its price. Without variants it falls back
// to the detail's flat minPrice/price, then the list record's, then 0.
func resolvePrice(baseline, detail RawProduct) float64 {
	variants := gjson.GetBytes(detail, "variants")
	if variants.IsArray() && len(variants.Array()) > 0 {
		v := variants.Get(`#(isDefault==true)`)
		if !v.Exists() {
			v = variants.Get("0")
		}
		if d, ok := number(v.Get("discountPrice")); ok && d > 0 {
			return d
		}
		if p, ok := number(v.Get("price")); ok {
			return p
		}
	}

	for _, rec := range [][]byte{detail, baseline} {
		for _, path := range []string{"minPrice", "price"} {
			if p, ok := number(gjson.GetBytes(rec, path)); ok {
				return p
			}
		}
	}
	return 0
}

// ProductsOf strips outcomes down to their products.
func ProductsOf(outcomes []Outcome) []core.Product {
	out := make([]core.Product, len(outcomes))
	for i, o := range outcomes {
		out[i] = o.Product
	}
	return out
}

// CategorySet is the full category list and its homepage subset, both in
// display order.
type CategorySet struct {
	All      []core.Category
	Homepage []core.Category
}

// Categories normalizes and sorts every category by displayOrder (missing
// orders last, ties keep API order), then derives the homepage subset.
func (n *Normalizer) Categories(lang core.Language, raws []RawCategory) CategorySet {
	all := make([]core.Category, 0, len(raws))
	for _, raw := range raws {
		all = append(all, n.Category(lang, raw))
	}

	sort.SliceStable(all, func(i, j int) bool {
		a, b := all[i].DisplayOrder, all[j].DisplayOrder
		switch {
		case a == nil:
			return false
		case b == nil:
			return true
		default:
			return *a < *b
		}
	})

	homepage := make([]core.Category, 0, len(all))
	for _, c := range all {
		if c.OnHomepage {
			homepage = append(homepage, c)
		}
	}
	return CategorySet{All: all, Homepage: homepage}
}

// Category normalizes one category record.
func (n *Normalizer) Category(lang core.Language, raw RawCategory) core.Category {
	nameEn, nameAr := categoryName.values(raw)
	descEn, descAr := categoryDescription.values(raw)

	c := core.Category{
		ID:          raw.ID(),
		Slug:        firstString([]string{"slug"}, raw),
		Name:        lang.Pick(nameEn, nameAr),
		Description: lang.Pick(descEn, descAr),
		Image:       n.resolver.CategoryURL(firstString(categoryImage, raw)),
		OnHomepage:  boolAt(raw, categoryHomepage),
	}
	if order, ok := number(gjson.GetBytes(raw, "displayOrder")); ok {
		o := int(order)
		c.DisplayOrder = &o
	}
	return c
}
