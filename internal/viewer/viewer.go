// Package viewer implements the confirmation view shown after a contact was submitted: the
// contact details, download actions and a paginated, zoomable PDF preview.
package viewer

import (
	"context"
	"errors"
	"fmt"
	"io"
	"strings"

	"gitlab.com/dirk.krummacker/contact-intake/internal/client"
	"gitlab.com/dirk.krummacker/contact-intake/internal/logger"
	"gitlab.com/dirk.krummacker/contact-intake/internal/model"
)

// State is the state of the confirmation view.
type State int

const (
	Loading State = iota
	FetchError
	NotFound
	Loaded
)

func (s State) String() string {
	switch s {
	case Loading:
		return "loading"
	case FetchError:
		return "fetch-error"
	case NotFound:
		return "not-found"
	case Loaded:
		return "loaded"
	default:
		return fmt.Sprintf("State(%d)", int(s))
	}
}

const (
	msgLoading    = "Loading..."
	msgFetchError = "Error loading contact information"
	msgNotFound   = "No data found"
	msgPDFLoading = "Loading PDF..."
	msgPDFError   = "Error loading PDF"
)

// Source provides contacts and stored files. *client.Client implements it.
type Source interface {
	Contact(ctx context.Context, id int64) (model.Contact, error)
	Download(ctx context.Context, name string) ([]byte, error)
	DownloadURL(name string) string
}

// Action is a download offered by the view.
type Action struct {
	Label string
	URL   string
}

// Confirmation is the confirmation view for one contact.
type Confirmation struct {
	src   Source
	count PageCounter
	log   *logger.Logger

	state   State
	contact model.Contact
	pdf     *PDFViewer
}

// NewConfirmation creates the view in the loading state. A nil counter means PDFPageCount.
func NewConfirmation(src Source, count PageCounter, log *logger.Logger) *Confirmation {
	if count == nil {
		count = PDFPageCount
	}
	return &Confirmation{src: src, count: count, log: log.With("system", "viewer")}
}

// Load fetches the contact and, if it has one, its PDF.
func (c *Confirmation) Load(ctx context.Context, id int64) {
	c.state = Loading
	c.pdf = nil

	contact, err := c.src.Contact(ctx, id)
	switch {
	case errors.Is(err, client.ErrNotFound):
		c.state = NotFound
		return
	case err != nil:
		c.log.Error("error fetching contact", "id", id, "error", err)
		c.state = FetchError
		return
	}
	c.contact = contact
	c.state = Loaded

	if contact.PdfPath == nil {
		return
	}
	c.pdf = NewPDFViewer()
	data, err := c.src.Download(ctx, *contact.PdfPath)
	if err != nil {
		c.log.Error("error fetching pdf", "name", *contact.PdfPath, "error", err)
		c.pdf.SetError()
		return
	}
	pages, err := c.count(data)
	if err != nil {
		c.log.Error("error reading pdf", "name", *contact.PdfPath, "error", err)
		c.pdf.SetError()
		return
	}
	c.pdf.SetDocument(pages)
}

func (c *Confirmation) State() State           { return c.state }
func (c *Confirmation) Contact() model.Contact { return c.contact }

// PDF returns the PDF viewer, or nil if the contact has no PDF.
func (c *Confirmation) PDF() *PDFViewer { return c.pdf }

// Actions returns the download actions for the files the contact has.
func (c *Confirmation) Actions() []Action {
	if c.state != Loaded {
		return nil
	}
	var actions []Action
	if c.contact.PhotoPath != nil {
		actions = append(actions, Action{Label: "Download photo", URL: c.src.DownloadURL(*c.contact.PhotoPath)})
	}
	if c.contact.PdfPath != nil {
		actions = append(actions, Action{Label: "Download PDF", URL: c.src.DownloadURL(*c.contact.PdfPath)})
	}
	return actions
}

// Render writes the view for the current state.
func (c *Confirmation) Render(w io.Writer) error {
	var b strings.Builder
	switch c.state {
	case Loading:
		b.WriteString(msgLoading + "\n")
	case FetchError:
		b.WriteString(msgFetchError + "\n")
	case NotFound:
		b.WriteString(msgNotFound + "\n")
	case Loaded:
		c.renderLoaded(&b)
	}
	_, err := io.WriteString(w, b.String())
	return err
}

func (c *Confirmation) renderLoaded(b *strings.Builder) {
	b.WriteString("Contact information\n")
	fmt.Fprintf(b, "  Full name: %s %s\n", c.contact.FirstName, c.contact.LastName)
	fmt.Fprintf(b, "  Email:     %s\n", c.contact.Email)
	if c.contact.PhotoPath != nil {
		fmt.Fprintf(b, "  Photo:     %s\n", c.src.DownloadURL(*c.contact.PhotoPath))
	}
	for _, a := range c.Actions() {
		fmt.Fprintf(b, "  [%s] %s\n", a.Label, a.URL)
	}
	if c.pdf != nil {
		renderPDF(b, c.pdf)
	}
}

func renderPDF(b *strings.Builder, v *PDFViewer) {
	fmt.Fprintf(b, "\nPDF preview  mode=%s  zoom=%d%%\n", v.Mode(), v.ScalePercent())
	switch v.Doc() {
	case DocLoading:
		b.WriteString("  " + msgPDFLoading + "\n")
		return
	case DocError:
		b.WriteString("  " + msgPDFError + "\n")
		return
	}
	for _, p := range v.Pages() {
		fmt.Fprintf(b, "  [page %d]\n", p)
	}
	if v.ShowNavigation() {
		fmt.Fprintf(b, "  %s  Page %d of %d  %s\n",
			control("< Previous", v.CanPrevious()), v.PageNumber(), v.NumPages(),
			control("Next >", v.CanNext()))
	}
}

func control(label string, enabled bool) string {
	if enabled {
		return "(" + label + ")"
	}
	return "(" + label + " disabled)"
}
