package viewer

import (
	"bytes"
	"math"

	"github.com/pdfcpu/pdfcpu/pkg/api"
	pdfmodel "github.com/pdfcpu/pdfcpu/pkg/pdfcpu/model"
)

// Zoom limits of the PDF viewer.
const (
	MinScale  = 0.5
	MaxScale  = 3.0
	ScaleStep = 0.1
)

// Mode is the display mode of the PDF viewer.
type Mode int

const (
	// Single shows one page at a time with page navigation.
	Single Mode = iota
	// Scroll shows all pages one after another.
	Scroll
)

func (m Mode) String() string {
	if m == Scroll {
		return "scroll"
	}
	return "single"
}

// DocState tracks loading of the PDF document itself.
type DocState int

const (
	DocLoading DocState = iota
	DocError
	DocLoaded
)

// PageCounter returns the number of pages of a PDF document.
type PageCounter func(data []byte) (int, error)

// PDFPageCount reads the page count with pdfcpu.
func PDFPageCount(data []byte) (int, error) {
	return api.PageCount(bytes.NewReader(data), pdfmodel.NewDefaultConfiguration())
}

// PDFViewer is the page/zoom state of the PDF preview. Every mutation keeps page and scale
// within their bounds.
type PDFViewer struct {
	doc        DocState
	numPages   int
	pageNumber int
	scale      float64
	mode       Mode
}

func NewPDFViewer() *PDFViewer {
	return &PDFViewer{pageNumber: 1, scale: 1.0, mode: Single}
}

// SetDocument marks the document as loaded with numPages pages.
func (v *PDFViewer) SetDocument(numPages int) {
	v.doc = DocLoaded
	v.numPages = max(numPages, 0)
	v.pageNumber = clampPage(v.pageNumber, v.numPages)
}

// SetError marks the document as failed to load.
func (v *PDFViewer) SetError() {
	v.doc = DocError
	v.numPages = 0
}

func (v *PDFViewer) Doc() DocState   { return v.doc }
func (v *PDFViewer) NumPages() int   { return v.numPages }
func (v *PDFViewer) PageNumber() int { return v.pageNumber }
func (v *PDFViewer) Scale() float64  { return v.scale }
func (v *PDFViewer) Mode() Mode      { return v.mode }

func (v *PDFViewer) NextPage()     { v.pageNumber = clampPage(v.pageNumber+1, v.numPages) }
func (v *PDFViewer) PreviousPage() { v.pageNumber = clampPage(v.pageNumber-1, v.numPages) }

func (v *PDFViewer) ZoomIn()  { v.scale = clampScale(v.scale + ScaleStep) }
func (v *PDFViewer) ZoomOut() { v.scale = clampScale(v.scale - ScaleStep) }

// ToggleMode switches between single and scroll mode. Scale and page number are kept.
func (v *PDFViewer) ToggleMode() {
	if v.mode == Single {
		v.mode = Scroll
	} else {
		v.mode = Single
	}
}

// CanPrevious reports whether the previous-page control is enabled.
func (v *PDFViewer) CanPrevious() bool { return v.pageNumber > 1 }

// CanNext reports whether the next-page control is enabled.
func (v *PDFViewer) CanNext() bool { return v.pageNumber < v.numPages }

// ShowNavigation reports whether page navigation is shown at all.
func (v *PDFViewer) ShowNavigation() bool {
	return v.doc == DocLoaded && v.mode == Single && v.numPages > 1
}

// Pages returns the page numbers to render, in order.
func (v *PDFViewer) Pages() []int {
	if v.doc != DocLoaded || v.numPages == 0 {
		return nil
	}
	if v.mode == Single {
		return []int{v.pageNumber}
	}
	pages := make([]int, v.numPages)
	for i := range pages {
		pages[i] = i + 1
	}
	return pages
}

// ScalePercent is the scale as displayed next to the zoom controls.
func (v *PDFViewer) ScalePercent() int {
	return int(math.Round(v.scale * 100))
}

func clampPage(page, numPages int) int {
	if numPages < 1 {
		return 1
	}
	return min(max(page, 1), numPages)
}

// clampScale rounds to one decimal so that repeated steps do not drift.
func clampScale(scale float64) float64 {
	return min(max(math.Round(scale*10)/10, MinScale), MaxScale)
}
