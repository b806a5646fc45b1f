package extract

import (
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/google/go-cmp/cmp"
	"go.uber.org/zap"
	"seehuhn.de/go/pdf"
	"seehuhn.de/go/pdf/pagetree"

	"github.com/polbb/annotations/internal/domain"
)

// stubGetter resolves nothing; all test dictionaries use direct objects.
type stubGetter struct{}

func (stubGetter) GetMeta() *pdf.MetaInfo            { return nil }
func (stubGetter) Get(pdf.Reference, bool) (pdf.Object, error) { return nil, nil }

func TestDecodeRecord_FreeText(t *testing.T) {
	e := New(zap.NewNop())
	dict := pdf.Dict{
		"Subtype":  pdf.Name("FreeText"),
		"Rect":     pdf.Array{pdf.Integer(10), pdf.Integer(20), pdf.Integer(110), pdf.Integer(40)},
		"Contents": pdf.TextString("needs review"),
	}

	rec, author, err := e.decodeRecord(stubGetter{}, dict)
	if err != nil {
		t.Fatalf("decodeRecord: %v", err)
	}
	want := domain.Record{
		Type:    domain.TypeFreeText,
		Rect:    [4]float64{10, 20, 110, 40},
		Content: "needs review",
	}
	if diff := cmp.Diff(want, rec); diff != "" {
		t.Errorf("record mismatch (-want +got):\n%s", diff)
	}
	if author != "" {
		t.Errorf("author = %q, want empty", author)
	}
}

func TestDecodeRecord_AuthorFromTitle(t *testing.T) {
	e := New(zap.NewNop())
	dict := pdf.Dict{
		"Subtype": pdf.Name("Text"),
		"Rect":    pdf.Array{pdf.Integer(0), pdf.Integer(0), pdf.Integer(10), pdf.Integer(10)},
		"T":       pdf.TextString("Jane Doe"),
	}

	rec, author, err := e.decodeRecord(stubGetter{}, dict)
	if err != nil {
		t.Fatalf("decodeRecord: %v", err)
	}
	if author != "Jane Doe" {
		t.Errorf("author = %q, want %q", author, "Jane Doe")
	}
	if rec.Content != "" {
		t.Errorf("missing contents must decode as empty string, got %q", rec.Content)
	}
	if rec.Info != nil {
		t.Errorf("info must be absent without author capture, got %v", rec.Info)
	}
}

func TestDecodeRecord_CaptureAuthorInfo(t *testing.T) {
	e := New(zap.NewNop()).WithAuthorCapture(true)
	dict := pdf.Dict{
		"Subtype": pdf.Name("Highlight"),
		"Rect":    pdf.Array{pdf.Integer(50), pdf.Integer(700), pdf.Integer(150), pdf.Integer(712)},
		"T":       pdf.TextString("Jane Doe"),
		"Subj":    pdf.TextString("Sticky Note"),
		"M":       pdf.TextString("D:20260115093000Z"),
	}

	rec, _, err := e.decodeRecord(stubGetter{}, dict)
	if err != nil {
		t.Fatalf("decodeRecord: %v", err)
	}
	want := map[string]string{
		"title":    "Jane Doe",
		"subject":  "Sticky Note",
		"mod_date": "D:20260115093000Z",
	}
	if diff := cmp.Diff(want, rec.Info); diff != "" {
		t.Errorf("info mismatch (-want +got):\n%s", diff)
	}
}

func TestDecodeRecord_UnknownSubtype(t *testing.T) {
	e := New(zap.NewNop())
	dict := pdf.Dict{
		"Subtype": pdf.Name("SomethingNew"),
		"Rect":    pdf.Array{pdf.Integer(0), pdf.Integer(0), pdf.Integer(1), pdf.Integer(1)},
	}

	rec, _, err := e.decodeRecord(stubGetter{}, dict)
	if err != nil {
		t.Fatalf("decodeRecord: %v", err)
	}
	if rec.Type != domain.TypeUnknown {
		t.Errorf("type = %d, want %d", rec.Type, domain.TypeUnknown)
	}
}

func TestHighlightSampleRect(t *testing.T) {
	x0, y0, x1, y1 := highlightSampleRect([4]float64{50, 700, 150, 712})
	if x0 != 50 || y0 != 700 || x1 != 150 || y1 != 711 {
		t.Errorf("sample rect = [%v %v %v %v], want [50 700 150 711]", x0, y0, x1, y1)
	}
}

func TestTextIn_TwoUnitTallHighlight(t *testing.T) {
	// A 2-unit-tall highlight: glyphs sit at both stored edges. After the
	// one-unit shrink, only the glyph at the lower edge may be sampled.
	s := &textSampler{glyphs: []positioned{
		{x: 55, y: 700, text: "inside"},
		{x: 60, y: 702, text: "edge"},   // at stored y1, excluded by the shrink
		{x: 300, y: 700, text: "right"}, // outside horizontally
	}}

	got := s.TextIn(highlightSampleRect([4]float64{50, 700, 150, 702}))
	if got != "inside" {
		t.Errorf("TextIn = %q, want %q", got, "inside")
	}
}

func TestTextIn_ContentOrder(t *testing.T) {
	s := &textSampler{glyphs: []positioned{
		{x: 10, y: 100, text: "a"},
		{x: 14, y: 100, text: "b"},
		{x: 18, y: 100, text: "c"},
	}}

	if got := s.TextIn(0, 0, 100, 200); got != "abc" {
		t.Errorf("TextIn = %q, want %q", got, "abc")
	}
}

// memDoc is a minimal in-memory document: a catalog, a flat page tree and
// the page and annotation objects hanging off it.
type memDoc struct {
	meta    pdf.MetaInfo
	objects map[pdf.Reference]pdf.Object
}

func (d *memDoc) GetMeta() *pdf.MetaInfo { return &d.meta }

func (d *memDoc) Get(ref pdf.Reference, _ bool) (pdf.Object, error) {
	return d.objects[ref], nil
}

func (d *memDoc) put(obj pdf.Object) pdf.Reference {
	ref := pdf.NewReference(uint32(len(d.objects)+2), 0)
	d.objects[ref] = obj
	return ref
}

func newMemDoc(pages ...pdf.Dict) *memDoc {
	d := &memDoc{objects: map[pdf.Reference]pdf.Object{}}
	root := pdf.NewReference(1, 0)
	kids := make(pdf.Array, 0, len(pages))
	for _, p := range pages {
		p["Type"] = pdf.Name("Page")
		kids = append(kids, d.put(p))
	}
	d.objects[root] = pdf.Dict{
		"Type":  pdf.Name("Pages"),
		"Count": pdf.Integer(len(pages)),
		"Kids":  kids,
	}
	d.meta = pdf.MetaInfo{
		Version: pdf.V1_7,
		Catalog: &pdf.Catalog{Pages: root},
	}
	return d
}

func TestWalk_NoMarkup(t *testing.T) {
	doc := newMemDoc(pdf.Dict{}, pdf.Dict{})

	records, author, err := New(zap.NewNop()).walk(doc, "empty.pdf")
	if err != nil {
		t.Fatalf("walk: %v", err)
	}
	if len(records) != 0 {
		t.Errorf("records = %v, want none", records)
	}
	if author != "" {
		t.Errorf("author = %q, want empty", author)
	}
}

func TestWalk_PageThenDiscoveryOrder(t *testing.T) {
	doc := newMemDoc(pdf.Dict{}, pdf.Dict{}, pdf.Dict{})

	// Page 1 carries two annotations, one behind an indirect reference and
	// one inline. Page 2 has none; page 3 has one more.
	first := pdf.Dict{
		"Subtype":  pdf.Name("FreeText"),
		"Rect":     pdf.Array{pdf.Integer(10), pdf.Integer(20), pdf.Integer(110), pdf.Integer(40)},
		"Contents": pdf.TextString("first"),
		"T":        pdf.TextString("Early Author"),
	}
	second := pdf.Dict{
		"Subtype":  pdf.Name("Text"),
		"Rect":     pdf.Array{pdf.Integer(5), pdf.Integer(5), pdf.Integer(25), pdf.Integer(25)},
		"Contents": pdf.TextString("second"),
	}
	third := pdf.Dict{
		"Subtype":  pdf.Name("Square"),
		"Rect":     pdf.Array{pdf.Integer(0), pdf.Integer(0), pdf.Integer(50), pdf.Integer(50)},
		"Contents": pdf.TextString("third"),
		"T":        pdf.TextString("Late Author"),
	}
	page1, _ := pagetree.GetPage(doc, 0)
	page1["Annots"] = pdf.Array{doc.put(first), second}
	page3, _ := pagetree.GetPage(doc, 2)
	page3["Annots"] = pdf.Array{third}

	records, author, err := New(zap.NewNop()).walk(doc, "ordered.pdf")
	if err != nil {
		t.Fatalf("walk: %v", err)
	}

	var contents []string
	for _, rec := range records {
		contents = append(contents, rec.Content)
	}
	if diff := cmp.Diff([]string{"first", "second", "third"}, contents); diff != "" {
		t.Errorf("record order mismatch (-want +got):\n%s", diff)
	}
	if author != "Late Author" {
		t.Errorf("author = %q, want %q (last annotation naming one wins)", author, "Late Author")
	}
	if records[0].Type != domain.TypeFreeText || records[1].Type != domain.TypeText {
		t.Errorf("types = %d, %d, want %d, %d",
			records[0].Type, records[1].Type, domain.TypeFreeText, domain.TypeText)
	}
}

func TestWalk_HighlightUsesShrunkSampleRect(t *testing.T) {
	page := pdf.Dict{
		"Annots": pdf.Array{
			pdf.Dict{
				"Subtype": pdf.Name("Highlight"),
				"Rect": pdf.Array{
					pdf.Integer(50), pdf.Integer(700),
					pdf.Integer(150), pdf.Integer(702),
				},
			},
			pdf.Dict{
				"Subtype": pdf.Name("Highlight"),
				"Rect": pdf.Array{
					pdf.Integer(200), pdf.Integer(700),
					pdf.Integer(300), pdf.Integer(702),
				},
			},
		},
	}
	doc := newMemDoc(page)

	e := New(zap.NewNop())
	samplerBuilds := 0
	e.sample = func(pdf.Getter, pdf.Dict) (*textSampler, error) {
		samplerBuilds++
		return &textSampler{glyphs: []positioned{
			{x: 55, y: 700, text: "kept"},
			{x: 60, y: 702, text: "edge"}, // at stored y1, outside the shrunk rect
			{x: 210, y: 701, text: "other"},
		}}, nil
	}

	records, _, err := e.walk(doc, "highlights.pdf")
	if err != nil {
		t.Fatalf("walk: %v", err)
	}
	if len(records) != 2 {
		t.Fatalf("got %d records, want 2", len(records))
	}
	if records[0].HighlightedText != "kept" {
		t.Errorf("highlighted text = %q, want %q", records[0].HighlightedText, "kept")
	}
	if records[1].HighlightedText != "other" {
		t.Errorf("highlighted text = %q, want %q", records[1].HighlightedText, "other")
	}
	if samplerBuilds != 1 {
		t.Errorf("sampler built %d times, want once per page", samplerBuilds)
	}
}

func TestExtract_UnreadableFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "broken.pdf")
	if err := os.WriteFile(path, []byte("this is not a pdf"), 0o644); err != nil {
		t.Fatal(err)
	}

	_, _, err := New(zap.NewNop()).Extract(path)
	if !errors.Is(err, domain.ErrUnreadableDocument) {
		t.Errorf("Extract error = %v, want %v", err, domain.ErrUnreadableDocument)
	}
}

func TestExtract_MissingFile(t *testing.T) {
	_, _, err := New(zap.NewNop()).Extract(filepath.Join(t.TempDir(), "absent.pdf"))
	if !errors.Is(err, domain.ErrUnreadableDocument) {
		t.Errorf("Extract error = %v, want %v", err, domain.ErrUnreadableDocument)
	}
}
