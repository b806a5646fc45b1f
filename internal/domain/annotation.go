// Package domain holds the annotation data model shared by all pipeline
// components.
package domain

import "strings"

// Annotation type codes, following the numbering used by the common PDF
// annotation tooling (MuPDF and friends). Consumers of the published JSON
// rely on these exact values.
const (
	TypeText           = 0
	TypeLink           = 1
	TypeFreeText       = 2
	TypeLine           = 3
	TypeSquare         = 4
	TypeCircle         = 5
	TypePolygon        = 6
	TypePolyLine       = 7
	TypeHighlight      = 8
	TypeUnderline      = 9
	TypeSquiggly       = 10
	TypeStrikeOut      = 11
	TypeRedact         = 12
	TypeStamp          = 13
	TypeCaret          = 14
	TypeInk            = 15
	TypePopup          = 16
	TypeFileAttachment = 17
	TypeSound          = 18
	TypeMovie          = 19
	TypeRichMedia      = 20
	TypeWidget         = 21
	TypeScreen         = 22
	TypePrinterMark    = 23
	TypeTrapNet        = 24
	TypeWatermark      = 25
	TypeProjection     = 26
	TypeUnknown        = -1
)

var subtypeCodes = map[string]int{
	"Text":           TypeText,
	"Link":           TypeLink,
	"FreeText":       TypeFreeText,
	"Line":           TypeLine,
	"Square":         TypeSquare,
	"Circle":         TypeCircle,
	"Polygon":        TypePolygon,
	"PolyLine":       TypePolyLine,
	"Highlight":      TypeHighlight,
	"Underline":      TypeUnderline,
	"Squiggly":       TypeSquiggly,
	"StrikeOut":      TypeStrikeOut,
	"Redact":         TypeRedact,
	"Stamp":          TypeStamp,
	"Caret":          TypeCaret,
	"Ink":            TypeInk,
	"Popup":          TypePopup,
	"FileAttachment": TypeFileAttachment,
	"Sound":          TypeSound,
	"Movie":          TypeMovie,
	"RichMedia":      TypeRichMedia,
	"Widget":         TypeWidget,
	"Screen":         TypeScreen,
	"PrinterMark":    TypePrinterMark,
	"TrapNet":        TypeTrapNet,
	"Watermark":      TypeWatermark,
	"Projection":     TypeProjection,
}

// TypeCode maps a PDF annotation subtype name to its numeric type code.
// Unrecognized subtypes map to TypeUnknown.
func TypeCode(subtype string) int {
	if code, ok := subtypeCodes[subtype]; ok {
		return code
	}
	return TypeUnknown
}

// Record is one markup object extracted from one page of a document.
// JSON field names are part of the persisted contract.
type Record struct {
	Type            int               `json:"type"`
	Rect            [4]float64        `json:"rect"`
	Content         string            `json:"content"`
	HighlightedText string            `json:"highlighted_text,omitempty"`
	Info            map[string]string `json:"info,omitempty"`
}

// Batch is the full ordered set of records extracted from one document at one
// point in time: page order first, in-page discovery order second. A batch is
// built fresh on every extraction and never mutated afterwards.
type Batch struct {
	Annotations []Record `json:"annotations"`
}

// Empty reports whether the batch holds no records.
func (b Batch) Empty() bool { return len(b.Annotations) == 0 }

// UnknownAnnotator is the sentinel used in storage keys when no author name
// was found in the document's markup.
const UnknownAnnotator = "Unknown_Annotator"

// SanitizeAuthor makes an author name safe for use in a storage key.
// Spaces become underscores; a blank name yields UnknownAnnotator.
func SanitizeAuthor(name string) string {
	name = strings.TrimSpace(name)
	if name == "" {
		return UnknownAnnotator
	}
	return strings.ReplaceAll(name, " ", "_")
}
