package main

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"gitlab.com/dirk.krummacker/contact-intake/internal/model"
	"gitlab.com/dirk.krummacker/contact-intake/internal/testutil"
	"gitlab.com/dirk.krummacker/contact-intake/internal/viewer"
)

type fakeSource struct{}

func (fakeSource) Contact(ctx context.Context, id int64) (model.Contact, error) {
	name := "pdf-1-1.pdf"
	return model.Contact{Id: id, FirstName: "Ada", LastName: "Lovelace", PdfPath: &name}, nil
}

func (fakeSource) Download(ctx context.Context, name string) ([]byte, error) {
	return []byte("%PDF"), nil
}

func (fakeSource) DownloadURL(name string) string { return "/api/download/" + name }

type failingWriter struct{}

func (failingWriter) Write(p []byte) (int, error) { return 0, errors.New("broken pipe") }

func loadedView(t *testing.T) *viewer.Confirmation {
	count := func([]byte) (int, error) { return 3, nil }
	view := viewer.NewConfirmation(fakeSource{}, count, testutil.MakeNoopLogger())
	view.Load(context.Background(), 1)
	require.Equal(t, viewer.Loaded, view.State())
	return view
}

func TestInteract(t *testing.T) {
	view := loadedView(t)
	var out strings.Builder
	err := interact(view, strings.NewReader("n\nn\np\nq\nn\n"), &out)
	assert.NoError(t, err)
	assert.Equal(t, 2, view.PDF().PageNumber())
	assert.Contains(t, out.String(), "Full name: Ada Lovelace")
}

func TestInteractEndOfInput(t *testing.T) {
	view := loadedView(t)
	var out strings.Builder
	assert.NoError(t, interact(view, strings.NewReader("n\n"), &out))
	assert.Equal(t, 2, view.PDF().PageNumber())
}

func TestInteractRenderFailure(t *testing.T) {
	err := interact(loadedView(t), strings.NewReader("q\n"), failingWriter{})
	assert.EqualError(t, err, "broken pipe")
}
