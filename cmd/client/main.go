package main

import (
	"bufio"
	"context"
	"flag"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"gitlab.com/dirk.krummacker/contact-intake/internal/client"
	"gitlab.com/dirk.krummacker/contact-intake/internal/form"
	"gitlab.com/dirk.krummacker/contact-intake/internal/logger"
	"gitlab.com/dirk.krummacker/contact-intake/internal/viewer"
)

// Usage example on the command line:
// > go run main.go -first=Ada -last=Lovelace -email=ada@example.com -photo=ada.jpg -pdf=notes.pdf
// > go run main.go -id=1
//
// After submitting, the confirmation view is shown. Commands: n (next page), p (previous page),
// + (zoom in), - (zoom out), m (toggle single/scroll mode), q (quit).
func main() {
	urlPtr := flag.String("url", "http://localhost:3001", "base URL of the service")
	idPtr := flag.Int64("id", 0, "show an existing contact instead of submitting")
	firstPtr := flag.String("first", "", "first name")
	lastPtr := flag.String("last", "", "last name")
	emailPtr := flag.String("email", "", "email address")
	photoPtr := flag.String("photo", "", "path of the photo to upload")
	pdfPtr := flag.String("pdf", "", "path of the PDF to upload")
	flag.Parse()

	logger := logger.New(0, "text")
	ctx := context.Background()
	c := client.New(*urlPtr, nil)

	id := *idPtr
	if id == 0 {
		f := form.New(logger)
		for name, value := range map[string]string{
			form.FieldFirstName: *firstPtr,
			form.FieldLastName:  *lastPtr,
			form.FieldEmail:     *emailPtr,
		} {
			if err := f.SetField(name, value); err != nil {
				logger.Fatal("cannot set form field", "field", name, "error", err)
			}
		}
		selectFile(f, form.KindPhoto, *photoPtr, logger)
		selectFile(f, form.KindPDF, *pdfPtr, logger)

		route, err := f.Submit(ctx, c)
		if err != nil {
			logger.Fatal("submission failed", "error", err)
		}
		fmt.Println("submitted, navigating to", route)
		id, err = strconv.ParseInt(strings.TrimPrefix(route, "/confirmation/"), 10, 64)
		if err != nil {
			logger.Fatal("unexpected route", "route", route)
		}
	}

	view := viewer.NewConfirmation(c, nil, logger)
	view.Load(ctx, id)
	if err := interact(view, os.Stdin, os.Stdout); err != nil {
		logger.Error("cannot render confirmation view", "error", err)
		os.Exit(1)
	}
}

func selectFile(f *form.Form, kind form.Kind, path string, logger *logger.Logger) {
	if path == "" {
		return
	}
	content, err := os.ReadFile(path)
	if err != nil {
		logger.Fatal("cannot read file", "path", path, "error", err)
	}
	<-f.SelectFile(kind, &client.File{Name: filepath.Base(path), Content: content})
}

// interact renders the view and applies one command per input line until q or end of input.
func interact(view *viewer.Confirmation, in io.Reader, out io.Writer) error {
	scanner := bufio.NewScanner(in)
	for {
		if err := view.Render(out); err != nil {
			return err
		}
		pdf := view.PDF()
		if pdf == nil {
			return nil
		}
		if _, err := fmt.Fprint(out, "> "); err != nil {
			return err
		}
		if !scanner.Scan() {
			return scanner.Err()
		}
		switch strings.TrimSpace(scanner.Text()) {
		case "n":
			pdf.NextPage()
		case "p":
			pdf.PreviousPage()
		case "+":
			pdf.ZoomIn()
		case "-":
			pdf.ZoomOut()
		case "m":
			pdf.ToggleMode()
		case "q":
			return nil
		}
	}
}
