package reports

import (
	"io"
	"strconv"

	g "maragu.dev/gomponents"
	h "maragu.dev/gomponents/html"
)

// productOptions renders the dropdown entries the product filter swaps in
// when the category selection changes
func productOptions(products []Product) g.Node {
	options := make([]g.Node, 0, len(products))
	for _, p := range products {
		options = append(options, h.Div(
			h.Class("cor-dropdown-option"),
			h.Data("value", strconv.FormatInt(p.ID, 10)),
			g.Text(p.Name),
		))
	}
	return g.Group(options)
}

// RenderProductOptions writes the product options fragment to w
func RenderProductOptions(w io.Writer, products []Product) error {
	return productOptions(products).Render(w)
}
