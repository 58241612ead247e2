package feed

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func parseItems(t *testing.T, body string) []Item {
	t.Helper()

	root, err := parseDocument([]byte(body))
	require.NoError(t, err)

	nodes, _ := findItems(root)
	items := make([]Item, 0, len(nodes))
	for i := range nodes {
		if item, ok := mapItem(&nodes[i]); ok {
			items = append(items, item)
		}
	}
	return items
}

func TestMapItemFieldCandidates(t *testing.T) {
	items := parseItems(t, `<products>
		<product>
			<code>ABC-1</code>
			<title>Steel Clamp</title>
			<price>4,20 €</price>
			<category>Workshop &gt; Clamps</category>
			<qty>14</qty>
			<picture>https://supplier.example/abc1.jpg</picture>
		</product>
	</products>`)

	require.Len(t, items, 1)
	item := items[0]
	assert.Equal(t, "ABC-1", item.SKU)
	assert.Equal(t, "Steel Clamp", item.Title)
	assert.InDelta(t, 4.20, item.Price, 0.001)
	assert.Equal(t, "Clamps", item.Category)
	assert.Equal(t, 14, item.Stock)
	assert.Equal(t, "https://supplier.example/abc1.jpg", item.ImageURL)
}

func TestMapItemDropsUnusableRows(t *testing.T) {
	items := parseItems(t, `<products>
		<product><price>5.00</price></product>
		<product><sku>OK-1</sku></product>
		<product><name>Nameless SKU</name></product>
	</products>`)

	require.Len(t, items, 2)
	assert.Equal(t, "OK-1", items[0].SKU)
	assert.Equal(t, "Nameless SKU", items[1].Title)
}

func TestParsePrice(t *testing.T) {
	cases := map[string]float64{
		"12,50 €":     12.50,
		"€12.50":      12.50,
		"$ 1 299,99":  1299.99,
		"1.234,56 €":  1234.56,
		"1,234.56":    1234.56,
		"1,234,567":   1234567,
		"7":           7,
		"0,99":        0.99,
		"free":        0,
		"":            0,
		"£45.00":      45,
		"1 250₽": 1250,
	}

	for raw, want := range cases {
		assert.InDelta(t, want, parsePrice(raw), 0.001, "input %q", raw)
	}
}

func TestParseStock(t *testing.T) {
	cases := map[string]int{
		"25":           25,
		"in_stock":     1,
		"In Stock":     1,
		"out_of_stock": 0,
		"no":           0,
		"5 pcs":        5,
		"":             0,
		"unknown":      0,
	}

	for raw, want := range cases {
		assert.Equal(t, want, parseStock(raw), "input %q", raw)
	}
}

func TestLastCategorySegment(t *testing.T) {
	assert.Equal(t, "Saws", lastCategorySegment("Home > Tools > Saws"))
	assert.Equal(t, "Saws", lastCategorySegment("Home/Tools/Saws"))
	assert.Equal(t, "Saws", lastCategorySegment("Home|Tools|Saws"))
	assert.Equal(t, "Tools", lastCategorySegment("Tools"))
	assert.Equal(t, "", lastCategorySegment(""))
}
