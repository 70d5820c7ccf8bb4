package services

import (
	"regexp"
	"strconv"
	"strings"

	"github.com/PuerkitoBio/goquery"

	"liliapp-bi-service/internal/models"
)

// MappedProduct is the fan-out of one upstream product: the service
// document, its main category and the variant/subcategory children.
type MappedProduct struct {
	Service       models.Service
	Category      *models.Category
	Variants      []models.Variant
	Subcategories []models.Subcategory
}

// MapProduct transforms one upstream product into the catalog shapes. The
// first upstream category is the main category; every later entry becomes a
// subcategory child of the service. This positional convention is part of
// the store's data contract.
func (m *SchemaMapper) MapProduct(raw models.RawProduct) MappedProduct {
	serviceID := strconv.FormatInt(raw.ID, 10)

	var category *models.Category
	var categoryID string
	var subcategories []models.Subcategory
	if len(raw.Categories) > 0 {
		main := raw.Categories[0]
		categoryID = strconv.FormatInt(main.ID, 10)
		category = &models.Category{
			ID:          categoryID,
			Name:        main.Name,
			Description: main.Description,
			ImageURL:    main.ImageURL,
		}
		for _, sub := range raw.Categories[1:] {
			subcategories = append(subcategories, models.Subcategory{
				ID:        strconv.FormatInt(sub.ID, 10),
				ServiceID: serviceID,
				Name:      sub.Name,
			})
		}
	}

	var variants []models.Variant
	for _, v := range raw.Variants {
		options := make([]models.VariantOption, 0, len(v.Options))
		for _, o := range v.Options {
			options = append(options, models.VariantOption{Name: o.Name, Value: o.Value})
		}
		variants = append(variants, models.Variant{
			ID:        strconv.FormatInt(v.ID, 10),
			ServiceID: serviceID,
			Price:     v.Price,
			SKU:       v.SKU,
			Stock:     v.Stock,
			Options:   options,
		})
	}

	return MappedProduct{
		Service: models.Service{
			ID:               serviceID,
			Name:             raw.Name,
			Description:      stripHTML(raw.Description),
			CategoryID:       categoryID,
			Price:            raw.Price,
			Discount:         raw.Discount,
			Status:           raw.Status,
			CreatedAt:        ParseTimestamp(raw.CreatedAt),
			HasVariants:      len(variants) > 0,
			HasSubcategories: len(subcategories) > 0,
		},
		Category:      category,
		Variants:      variants,
		Subcategories: subcategories,
	}
}

// blockBoundary matches the tags that end a block of prose. A marker is
// injected after each one so adjacent blocks do not fuse when the markup
// is stripped.
var blockBoundary = regexp.MustCompile(`(?i)<br\s*/?>|</(?:p|div|li|ul|ol|h[1-6]|blockquote|tr)>`)

// blockMark separates blocks in the extracted text. The paragraph-separator
// rune cannot collide with literal whitespace inside a paragraph, which must
// collapse to single spaces rather than split the paragraph.
const blockMark = " "

// stripHTML flattens the rich-text product description into plain text with
// one line per paragraph. Jumpseller stores descriptions as HTML fragments.
func stripHTML(html string) string {
	if html == "" {
		return ""
	}
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(blockBoundary.ReplaceAllString(html, "$0"+blockMark)))
	if err != nil {
		return strings.TrimSpace(html)
	}
	var paragraphs []string
	for _, block := range strings.Split(doc.Text(), blockMark) {
		if collapsed := strings.Join(strings.Fields(block), " "); collapsed != "" {
			paragraphs = append(paragraphs, collapsed)
		}
	}
	return strings.Join(paragraphs, "\n")
}
