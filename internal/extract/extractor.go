// Package extract walks an annotated PDF and produces normalized annotation
// records from its markup objects.
package extract

import (
	"fmt"

	"go.uber.org/zap"
	"seehuhn.de/go/pdf"
	"seehuhn.de/go/pdf/pagetree"

	"github.com/polbb/annotations/internal/domain"
)

// Extractor reads markup objects out of paginated documents. Extraction
// never mutates the source document.
type Extractor struct {
	captureAuthor bool
	logger        *zap.Logger

	// sample builds the page-text sampler for highlight lookups.
	// Replaceable in tests.
	sample func(r pdf.Getter, pageDict pdf.Dict) (*textSampler, error)
}

// New creates an extractor.
func New(logger *zap.Logger) *Extractor {
	return &Extractor{logger: logger, sample: newTextSampler}
}

// WithAuthorCapture enables recording of annotator metadata (author name,
// subject, modification date) alongside each record.
func (e *Extractor) WithAuthorCapture(on bool) *Extractor {
	e.captureAuthor = on
	return e
}

// Extract opens the document at pdfPath and returns one record per markup
// object, in page order then in-page discovery order, together with the
// author name found in the markup metadata ("" if none). If several
// annotations name different authors, the last one seen wins.
//
// Any parse failure, at document or page level, aborts the whole extraction
// with domain.ErrUnreadableDocument; no partial batches are returned.
func (e *Extractor) Extract(pdfPath string) ([]domain.Record, string, error) {
	doc, err := pdf.Open(pdfPath, nil)
	if err != nil {
		return nil, "", fmt.Errorf("open %s: %v: %w", pdfPath, err, domain.ErrUnreadableDocument)
	}
	defer doc.Close()

	return e.walk(doc, pdfPath)
}

// walk visits every page of an open document and collects its records.
func (e *Extractor) walk(doc pdf.Getter, pdfPath string) ([]domain.Record, string, error) {
	numPages, err := pagetree.NumPages(doc)
	if err != nil {
		return nil, "", unreadable(pdfPath, err)
	}

	var records []domain.Record
	var author string
	for pageNo := 0; pageNo < numPages; pageNo++ {
		pageDict, err := pagetree.GetPage(doc, pageNo)
		if err != nil {
			return nil, "", unreadable(pdfPath, err)
		}

		annots, err := pdf.GetArray(doc, pageDict["Annots"])
		if err != nil {
			return nil, "", unreadable(pdfPath, err)
		}
		if len(annots) == 0 {
			continue
		}

		// Page text is only needed when a highlight asks for it.
		var sampler *textSampler

		for _, obj := range annots {
			dict, err := pdf.GetDict(doc, obj)
			if err != nil {
				return nil, "", unreadable(pdfPath, err)
			}
			if dict == nil {
				continue
			}

			rec, annotAuthor, err := e.decodeRecord(doc, dict)
			if err != nil {
				return nil, "", unreadable(pdfPath, err)
			}
			if annotAuthor != "" {
				author = annotAuthor
			}

			if rec.Type == domain.TypeHighlight {
				if sampler == nil {
					sampler, err = e.sample(doc, pageDict)
					if err != nil {
						return nil, "", unreadable(pdfPath, err)
					}
				}
				rec.HighlightedText = sampler.TextIn(highlightSampleRect(rec.Rect))
			}

			records = append(records, rec)
		}

		e.logger.Debug("extracted page",
			zap.String("path", pdfPath),
			zap.Int("page", pageNo),
			zap.Int("records_so_far", len(records)),
		)
	}

	return records, author, nil
}

// decodeRecord builds one record from one annotation dictionary. The second
// return value is the author name carried by the annotation, if any.
func (e *Extractor) decodeRecord(r pdf.Getter, dict pdf.Dict) (domain.Record, string, error) {
	subtype, err := pdf.GetName(r, dict["Subtype"])
	if err != nil {
		return domain.Record{}, "", err
	}
	rec := domain.Record{Type: domain.TypeCode(string(subtype))}

	rect, err := pdf.GetRectangle(r, dict["Rect"])
	if err != nil {
		return domain.Record{}, "", err
	}
	if rect != nil {
		rec.Rect = [4]float64{rect.LLx, rect.LLy, rect.URx, rect.URy}
	}

	contents, err := pdf.GetString(r, dict["Contents"])
	if err != nil {
		return domain.Record{}, "", err
	}
	rec.Content = contents.AsTextString()

	// The /T entry of a markup annotation holds the annotator's name.
	title, err := pdf.GetString(r, dict["T"])
	if err != nil {
		return domain.Record{}, "", err
	}
	author := title.AsTextString()

	if e.captureAuthor {
		info := make(map[string]string)
		if author != "" {
			info["title"] = author
		}
		if subj, err := pdf.GetString(r, dict["Subj"]); err == nil && len(subj) > 0 {
			info["subject"] = subj.AsTextString()
		}
		if mod, err := pdf.GetString(r, dict["M"]); err == nil && len(mod) > 0 {
			info["mod_date"] = mod.AsTextString()
		}
		if len(info) > 0 {
			rec.Info = info
		}
	}

	return rec, author, nil
}

// highlightSampleRect shrinks the stored rectangle by one unit on the upper
// edge before text sampling. The constant corrects a rendering offset in
// highlight rectangles produced by the upstream annotation toolchain; it was
// determined empirically and must be re-validated if the converter changes.
func highlightSampleRect(rect [4]float64) (x0, y0, x1, y1 float64) {
	return rect[0], rect[1], rect[2], rect[3] - 1
}

func unreadable(path string, err error) error {
	return fmt.Errorf("parse %s: %v: %w", path, err, domain.ErrUnreadableDocument)
}
