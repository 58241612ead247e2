package feed

import (
	"regexp"
	"strconv"
	"strings"
)

// Field candidates are matched against lowercased element names in
// order, so the most specific names win.
var (
	skuFields      = []string{"sku", "code", "product_code", "productcode", "ean", "barcode", "mpn", "id"}
	titleFields    = []string{"name", "title", "product_name", "productname", "description"}
	priceFields    = []string{"price", "wholesale_price", "price_without_vat", "net_price", "b2b_price", "cost"}
	categoryFields = []string{"category", "categories", "category_path", "group"}
	stockFields    = []string{"quantity", "stock", "qty", "availability", "in_stock"}
	imageFields    = []string{"image", "image_url", "imgurl", "img", "picture", "thumbnail"}
)

// mapItem extracts a feed item from one product element. Items carrying
// neither a SKU nor a title are unusable and dropped.
func mapItem(n *node) (Item, bool) {
	fields := flatten(n)

	item := Item{
		SKU:      pick(fields, skuFields),
		Title:    pick(fields, titleFields),
		Category: lastCategorySegment(pick(fields, categoryFields)),
		ImageURL: pick(fields, imageFields),
	}
	item.Price = parsePrice(pick(fields, priceFields))
	item.Stock = parseStock(pick(fields, stockFields))

	if item.SKU == "" && item.Title == "" {
		return Item{}, false
	}
	return item, true
}

// flatten folds an element's children into a name to text map, one level
// of nesting deep. The first occurrence of a name wins.
func flatten(n *node) map[string]string {
	fields := make(map[string]string)
	var walk func(children []node, depth int)
	walk = func(children []node, depth int) {
		for i := range children {
			child := &children[i]
			if text := child.text(); text != "" {
				if _, seen := fields[child.name()]; !seen {
					fields[child.name()] = text
				}
			}
			if depth < 2 {
				walk(child.Children, depth+1)
			}
		}
	}
	walk(n.Children, 1)
	return fields
}

func pick(fields map[string]string, candidates []string) string {
	for _, name := range candidates {
		if v, ok := fields[name]; ok {
			return v
		}
	}
	return ""
}

var priceDigits = regexp.MustCompile(`[\d.]+`)

// parsePrice handles the formats suppliers actually send: currency
// symbols, thousands separators and decimal commas, e.g. "12,50 €" or
// "1.234,56 €".
func parsePrice(raw string) float64 {
	if raw == "" {
		return 0
	}

	cleaned := strings.NewReplacer(
		"€", "", "$", "", "£", "", "₽", "",
		" ", "", " ", "",
	).Replace(raw)

	comma := strings.LastIndex(cleaned, ",")
	dot := strings.LastIndex(cleaned, ".")
	switch {
	case comma >= 0 && dot >= 0:
		// Both present: the rightmost one is the decimal separator,
		// the other marks thousands.
		if comma > dot {
			cleaned = strings.ReplaceAll(cleaned, ".", "")
			cleaned = strings.ReplaceAll(cleaned, ",", ".")
		} else {
			cleaned = strings.ReplaceAll(cleaned, ",", "")
		}
	case strings.Count(cleaned, ",") > 1:
		// Commas alone and repeated can only mark thousands.
		cleaned = strings.ReplaceAll(cleaned, ",", "")
	case comma >= 0:
		cleaned = strings.ReplaceAll(cleaned, ",", ".")
	}

	match := priceDigits.FindString(cleaned)
	if match == "" {
		return 0
	}

	price, err := strconv.ParseFloat(match, 64)
	if err != nil || price < 0 {
		return 0
	}
	return price
}

var stockDigits = regexp.MustCompile(`\d+`)

func parseStock(raw string) int {
	if raw == "" {
		return 0
	}

	switch strings.ToLower(strings.TrimSpace(raw)) {
	case "in_stock", "instock", "in stock", "yes", "true", "available":
		return 1
	case "out_of_stock", "outofstock", "out of stock", "no", "false":
		return 0
	}

	match := stockDigits.FindString(raw)
	if match == "" {
		return 0
	}
	stock, err := strconv.Atoi(match)
	if err != nil || stock < 0 {
		return 0
	}
	return stock
}

// lastCategorySegment reduces a category path like "Home > Tools > Saws"
// to its most specific segment.
func lastCategorySegment(raw string) string {
	if raw == "" {
		return ""
	}

	segments := strings.FieldsFunc(raw, func(r rune) bool {
		return r == '>' || r == '/' || r == '|'
	})
	if len(segments) == 0 {
		return strings.TrimSpace(raw)
	}
	return strings.TrimSpace(segments[len(segments)-1])
}
