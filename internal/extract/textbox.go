package extract

import (
	"strings"

	"seehuhn.de/go/pdf"
	"seehuhn.de/go/pdf/font"
	"seehuhn.de/go/pdf/graphics/matrix"
	"seehuhn.de/go/pdf/reader"
)

// positioned is one glyph's text with its device-space origin.
type positioned struct {
	x, y float64
	text string
}

// textSampler holds the positioned text of one page, parsed once and then
// sampled per highlight rectangle.
type textSampler struct {
	glyphs []positioned
}

// newTextSampler parses the page's content stream and records every glyph
// with its device-space position.
func newTextSampler(r pdf.Getter, pageDict pdf.Dict) (*textSampler, error) {
	s := &textSampler{}

	contents := reader.New(r, nil)
	contents.DrawGlyph = func(g font.Glyph) error {
		if len(g.Text) == 0 {
			return nil
		}
		m := contents.TextMatrix.Mul(contents.CTM)
		x, y := m.Apply(0, g.Rise)
		s.glyphs = append(s.glyphs, positioned{x: x, y: y, text: string(g.Text)})
		return nil
	}

	if err := contents.ParsePage(pageDict, matrix.Identity); err != nil {
		return nil, err
	}
	return s, nil
}

// TextIn returns the text of all glyphs whose origin falls inside the given
// rectangle, in content order.
func (s *textSampler) TextIn(x0, y0, x1, y1 float64) string {
	var b strings.Builder
	for _, g := range s.glyphs {
		if g.x >= x0 && g.x <= x1 && g.y >= y0 && g.y <= y1 {
			b.WriteString(g.text)
		}
	}
	return b.String()
}
