package catalog

import "strconv"

// Product is a catalog item as returned by the remote API. Prices come over
// the wire as strings.
type Product struct {
	ID         int64      `json:"id"`
	Name       string     `json:"name"`
	SKU        string     `json:"sku"`
	Type       string     `json:"type"`
	Status     string     `json:"status"`
	Price      string     `json:"price"`
	Categories []Category `json:"categories"`
	Images     []Image    `json:"images"`
}

type Category struct {
	ID   int64  `json:"id"`
	Name string `json:"name"`
}

type Image struct {
	Src string `json:"src"`
}

// Variation is a single variation of a variable product.
type Variation struct {
	ID         int64       `json:"id"`
	SKU        string      `json:"sku"`
	Status     string      `json:"status"`
	Price      string      `json:"price"`
	Attributes []Attribute `json:"attributes"`
	Image      *Image      `json:"image"`
}

type Attribute struct {
	ID     int64  `json:"id"`
	Name   string `json:"name"`
	Option string `json:"option"`
}

// PriceValue parses the wire price, returning 0 for empty or malformed values.
func (p *Product) PriceValue() float64 {
	return parsePrice(p.Price)
}

func (v *Variation) PriceValue() float64 {
	return parsePrice(v.Price)
}

// CategoryName returns the primary category name, if any.
func (p *Product) CategoryName() string {
	if len(p.Categories) > 0 {
		return p.Categories[0].Name
	}
	return ""
}

// ImageURL returns the featured image URL, if any.
func (p *Product) ImageURL() string {
	if len(p.Images) > 0 {
		return p.Images[0].Src
	}
	return ""
}

// ImageURL returns the variation image, falling back to the parent's.
func (v *Variation) ImageURL(parent *Product) string {
	if v.Image != nil && v.Image.Src != "" {
		return v.Image.Src
	}
	return parent.ImageURL()
}

func parsePrice(s string) float64 {
	if s == "" {
		return 0
	}
	f, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return 0
	}
	return f
}
