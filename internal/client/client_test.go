package client

import (
	"context"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSubmit(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPost, r.Method)
		assert.Equal(t, "/api/contact", r.URL.Path)
		if !assert.NoError(t, r.ParseMultipartForm(1<<20)) {
			return
		}
		assert.Equal(t, "Ada", r.FormValue("firstName"))
		assert.Equal(t, "Lovelace", r.FormValue("lastName"))
		assert.Equal(t, "ada@example.com", r.FormValue("email"))

		f, header, err := r.FormFile("pdf")
		if !assert.NoError(t, err) {
			return
		}
		defer f.Close()
		content, _ := io.ReadAll(f)
		assert.Equal(t, "notes.pdf", header.Filename)
		assert.Equal(t, []byte("%PDF-"), content)
		assert.NotContains(t, r.MultipartForm.File, "photo")

		w.Header().Set("Content-Type", "application/json")
		io.WriteString(w, `{"id": 42}`)
	}))
	defer server.Close()

	id, err := New(server.URL, server.Client()).Submit(context.Background(), Submission{
		FirstName: "Ada",
		LastName:  "Lovelace",
		Email:     "ada@example.com",
		PDF:       &File{Name: "notes.pdf", Content: []byte("%PDF-")},
	})
	require.NoError(t, err)
	assert.Equal(t, int64(42), id)
}

func TestSubmitServerError(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
		io.WriteString(w, `{"error": "Internal server error"}`)
	}))
	defer server.Close()

	_, err := New(server.URL, nil).Submit(context.Background(), Submission{FirstName: "Ada"})
	var statusErr *StatusError
	require.True(t, errors.As(err, &statusErr))
	assert.Equal(t, http.StatusInternalServerError, statusErr.Code)
	assert.Equal(t, "Internal server error", statusErr.Message)
}

func TestContact(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/api/contact/1":
			io.WriteString(w, `{"id":1,"first_name":"Ada","last_name":"Lovelace","email":"ada@example.com",
				"photo_path":null,"pdf_path":"pdf-1-2.pdf","created_at":"2024-05-01T12:00:00Z"}`)
		default:
			w.WriteHeader(http.StatusNotFound)
			io.WriteString(w, `{"error": "Contact not found"}`)
		}
	}))
	defer server.Close()
	c := New(server.URL+"/", nil)

	contact, err := c.Contact(context.Background(), 1)
	require.NoError(t, err)
	assert.Equal(t, "Ada", contact.FirstName)
	assert.Nil(t, contact.PhotoPath)
	require.NotNil(t, contact.PdfPath)
	assert.Equal(t, "pdf-1-2.pdf", *contact.PdfPath)

	_, err = c.Contact(context.Background(), 2)
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestDownload(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path == "/api/download/photo-1-2.jpg" {
			w.Write([]byte{0xff, 0xd8, 0xff})
			return
		}
		w.WriteHeader(http.StatusNotFound)
	}))
	defer server.Close()
	c := New(server.URL, nil)

	assert.Equal(t, server.URL+"/api/download/photo-1-2.jpg", c.DownloadURL("photo-1-2.jpg"))
	data, err := c.Download(context.Background(), "photo-1-2.jpg")
	require.NoError(t, err)
	assert.Equal(t, []byte{0xff, 0xd8, 0xff}, data)

	_, err = c.Download(context.Background(), "missing.pdf")
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestHealth(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		io.WriteString(w, `{"status":"ok","db":"error"}`)
	}))
	defer server.Close()

	h, err := New(server.URL, nil).Health(context.Background())
	require.NoError(t, err)
	assert.Equal(t, Health{Status: "ok", DB: "error"}, h)
}
