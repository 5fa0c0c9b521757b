// Package form holds the state of the contact form between user input and submission.
package form

import (
	"context"
	"encoding/base64"
	"errors"
	"fmt"
	"sync"

	"github.com/gabriel-vasile/mimetype"
	"github.com/go-playground/validator/v10"

	"gitlab.com/dirk.krummacker/contact-intake/internal/client"
	"gitlab.com/dirk.krummacker/contact-intake/internal/logger"
)

// Field names accepted by SetField. They match the multipart field names of the intake endpoint.
const (
	FieldFirstName = "firstName"
	FieldLastName  = "lastName"
	FieldEmail     = "email"
)

// Kind selects one of the two file inputs.
type Kind string

const (
	KindPhoto Kind = "photo"
	KindPDF   Kind = "pdf"
)

var ErrUnknownField = errors.New("form: unknown field")

// Submitter sends a submission to the intake endpoint. *client.Client implements it.
type Submitter interface {
	Submit(ctx context.Context, s client.Submission) (int64, error)
}

// State is a snapshot of the form.
type State struct {
	FirstName string       `validate:"required"`
	LastName  string       `validate:"required"`
	Email     string       `validate:"required,email"`
	Photo     *client.File `validate:"required"`
	PDF       *client.File `validate:"required"`

	// Preview is a data URL of the selected photo, empty until it has been decoded.
	Preview string `validate:"-"`
}

// Form is safe for concurrent use; the photo preview is decoded on its own goroutine.
type Form struct {
	mu    sync.Mutex
	state State

	// previewGen invalidates preview decodes started for an earlier selection.
	previewGen uint64

	validate *validator.Validate
	log      *logger.Logger
}

func New(log *logger.Logger) *Form {
	return &Form{
		validate: validator.New(validator.WithRequiredStructEnabled()),
		log:      log.With("system", "form"),
	}
}

// SetField sets one of the text fields.
func (f *Form) SetField(name, value string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	switch name {
	case FieldFirstName:
		f.state.FirstName = value
	case FieldLastName:
		f.state.LastName = value
	case FieldEmail:
		f.state.Email = value
	default:
		return fmt.Errorf("%w: %q", ErrUnknownField, name)
	}
	return nil
}

// SelectFile records a file selection; nil clears it. For a photo the preview is decoded
// asynchronously and the returned channel is closed once the preview is in place. For a PDF the
// returned channel is already closed.
func (f *Form) SelectFile(kind Kind, file *client.File) <-chan struct{} {
	done := make(chan struct{})

	f.mu.Lock()
	defer f.mu.Unlock()
	switch kind {
	case KindPhoto:
		f.state.Photo = file
		f.state.Preview = ""
		f.previewGen++
		if file == nil {
			close(done)
			return done
		}
		go f.decodePreview(f.previewGen, file.Content, done)
	case KindPDF:
		f.state.PDF = file
		close(done)
	default:
		close(done)
	}
	return done
}

func (f *Form) decodePreview(gen uint64, content []byte, done chan<- struct{}) {
	defer close(done)
	preview := "data:" + mimetype.Detect(content).String() + ";base64," +
		base64.StdEncoding.EncodeToString(content)

	f.mu.Lock()
	defer f.mu.Unlock()
	if gen != f.previewGen {
		return
	}
	f.state.Preview = preview
}

// State returns a copy of the current form state.
func (f *Form) State() State {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.state
}

// Validate applies the checks the browser form enforces before submitting: all text fields and
// both files are required and the email must be well formed. The error is a
// validator.ValidationErrors.
func (f *Form) Validate() error {
	return f.validate.Struct(f.State())
}

// Submit validates the form and sends it. On success the form is cleared and the route of the
// confirmation view for the new contact is returned. On failure the state is kept and the error
// is logged.
func (f *Form) Submit(ctx context.Context, submitter Submitter) (string, error) {
	state := f.State()
	if err := f.validate.Struct(state); err != nil {
		f.log.Warn("form is incomplete", "error", err)
		return "", err
	}

	id, err := submitter.Submit(ctx, client.Submission{
		FirstName: state.FirstName,
		LastName:  state.LastName,
		Email:     state.Email,
		Photo:     state.Photo,
		PDF:       state.PDF,
	})
	if err != nil {
		f.log.Error("error submitting form", "error", err)
		return "", err
	}

	f.reset()
	f.log.Info("form submitted", "id", id)
	return ConfirmationRoute(id), nil
}

func (f *Form) reset() {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.state = State{}
	f.previewGen++
}

// ConfirmationRoute returns the route of the confirmation view for a contact.
func ConfirmationRoute(id int64) string {
	return fmt.Sprintf("/confirmation/%d", id)
}
