package integrationtest

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"strings"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"gitlab.com/dirk.krummacker/contact-intake/internal/client"
	"gitlab.com/dirk.krummacker/contact-intake/internal/config"
	"gitlab.com/dirk.krummacker/contact-intake/internal/database"
	"gitlab.com/dirk.krummacker/contact-intake/internal/filestore"
	"gitlab.com/dirk.krummacker/contact-intake/internal/form"
	"gitlab.com/dirk.krummacker/contact-intake/internal/repository"
	"gitlab.com/dirk.krummacker/contact-intake/internal/service"
	"gitlab.com/dirk.krummacker/contact-intake/internal/testutil"
	"gitlab.com/dirk.krummacker/contact-intake/internal/viewer"
)

// setupRouter wires the service against a fresh sqlite database and upload directory.
func setupRouter(t *testing.T) *gin.Engine {
	log := testutil.MakeNoopLogger()
	dir := t.TempDir()

	cfg := config.Default().Database
	cfg.Driver = config.DriverSQLite
	cfg.Name = filepath.Join(dir, "contacts.db")
	sqlDB, err := database.Open(context.Background(), cfg)
	require.NoError(t, err)
	t.Cleanup(func() { sqlDB.Close() })
	require.NoError(t, database.Migrate(sqlDB, cfg.Driver, log))

	repo, err := repository.New(sqlDB, database.DriverName(cfg.Driver))
	require.NoError(t, err)
	t.Cleanup(func() { repo.Close() })

	files, err := filestore.NewDisk(filepath.Join(dir, "uploads"), log)
	require.NoError(t, err)

	gin.SetMode(gin.ReleaseMode)
	return service.New(repo, files, log, service.Options{MaxUploadBytes: 32 << 20}).SetupHttpRouter()
}

func getJSON(t *testing.T, router *gin.Engine, url string) (int, map[string]interface{}) {
	recorder := httptest.NewRecorder()
	request, _ := http.NewRequest("GET", url, nil)
	router.ServeHTTP(recorder, request)
	var body map[string]interface{}
	json.Unmarshal(recorder.Body.Bytes(), &body)
	return recorder.Code, body
}

// TestContactHappyPath submits a contact with both files through the form and the API client,
// reads it back, downloads the PDF and opens it in the confirmation viewer.
func TestContactHappyPath(t *testing.T) {
	router := setupRouter(t)
	server := httptest.NewServer(router)
	defer server.Close()
	c := client.New(server.URL, server.Client())
	ctx := context.Background()

	jpeg := testutil.MakeJPEG(1024)
	pdf := testutil.MakePDF(2)

	f := form.New(testutil.MakeNoopLogger())
	require.NoError(t, f.SetField(form.FieldFirstName, "Ada"))
	require.NoError(t, f.SetField(form.FieldLastName, "Lovelace"))
	require.NoError(t, f.SetField(form.FieldEmail, "ada@example.com"))
	<-f.SelectFile(form.KindPhoto, &client.File{Name: "ada.jpg", Content: jpeg})
	<-f.SelectFile(form.KindPDF, &client.File{Name: "notes.pdf", Content: pdf})

	route, err := f.Submit(ctx, c)
	require.NoError(t, err)
	assert.Equal(t, "/confirmation/1", route)

	code, body := getJSON(t, router, "/api/contact/1")
	assert.Equal(t, http.StatusOK, code)
	assert.Equal(t, 1.0, body["id"])
	assert.Equal(t, "Ada", body["first_name"])
	assert.Equal(t, "Lovelace", body["last_name"])
	assert.Equal(t, "ada@example.com", body["email"])
	assert.NotEmpty(t, body["photo_path"])
	assert.NotEmpty(t, body["pdf_path"])
	assert.NotEmpty(t, body["created_at"])

	downloaded, err := c.Download(ctx, body["pdf_path"].(string))
	require.NoError(t, err)
	assert.Equal(t, pdf, downloaded)
	downloaded, err = c.Download(ctx, body["photo_path"].(string))
	require.NoError(t, err)
	assert.Equal(t, jpeg, downloaded)

	view := viewer.NewConfirmation(c, nil, testutil.MakeNoopLogger())
	view.Load(ctx, 1)
	require.Equal(t, viewer.Loaded, view.State())
	require.NotNil(t, view.PDF())
	assert.Equal(t, viewer.DocLoaded, view.PDF().Doc())
	assert.Equal(t, 2, view.PDF().NumPages())
	assert.Len(t, view.Actions(), 2)
}

// TestContactWithoutFiles expects null paths for omitted files.
func TestContactWithoutFiles(t *testing.T) {
	router := setupRouter(t)
	server := httptest.NewServer(router)
	defer server.Close()
	c := client.New(server.URL, server.Client())

	id, err := c.Submit(context.Background(), client.Submission{
		FirstName: "Erika",
		LastName:  "Mustermann",
		Email:     "erika@example.com",
		PDF:       &client.File{Name: "cv.pdf", Content: testutil.MakePDF(1)},
	})
	require.NoError(t, err)

	contact, err := c.Contact(context.Background(), id)
	require.NoError(t, err)
	assert.Nil(t, contact.PhotoPath)
	require.NotNil(t, contact.PdfPath)
	assert.True(t, strings.HasPrefix(*contact.PdfPath, "pdf-"))

	id, err = c.Submit(context.Background(), client.Submission{
		FirstName: "Max",
		LastName:  "Mustermann",
		Email:     "max@example.com",
	})
	require.NoError(t, err)
	code, body := getJSON(t, router, fmt.Sprintf("/api/contact/%d", id))
	assert.Equal(t, http.StatusOK, code)
	assert.Contains(t, body, "photo_path")
	assert.Nil(t, body["photo_path"])
	assert.Nil(t, body["pdf_path"])

	view := viewer.NewConfirmation(c, nil, testutil.MakeNoopLogger())
	view.Load(context.Background(), id)
	assert.Equal(t, viewer.Loaded, view.State())
	assert.Nil(t, view.PDF())
	assert.Empty(t, view.Actions())
}

// TestCreateContactMissingField expects that the NOT NULL constraint rejects a missing name.
func TestCreateContactMissingField(t *testing.T) {
	router := setupRouter(t)

	var buf bytes.Buffer
	w := multipart.NewWriter(&buf)
	w.WriteField("lastName", "Lovelace")
	w.WriteField("email", "ada@example.com")
	w.Close()

	recorder := httptest.NewRecorder()
	request, _ := http.NewRequest("POST", "/api/contact", &buf)
	request.Header.Set("Content-Type", w.FormDataContentType())
	router.ServeHTTP(recorder, request)
	assert.Equal(t, http.StatusInternalServerError, recorder.Code)
	assert.JSONEq(t, `{"error": "Internal server error"}`, recorder.Body.String())
}

// TestFindContactInvalidId tests GET requests with ids that were never inserted.
func TestFindContactInvalidId(t *testing.T) {
	router := setupRouter(t)
	for _, url := range []string{"/api/contact/9999", "/api/contact/invalid"} {
		code, _ := getJSON(t, router, url)
		assert.Equal(t, http.StatusNotFound, code, url)
	}

	server := httptest.NewServer(router)
	defer server.Close()
	view := viewer.NewConfirmation(client.New(server.URL, nil), nil, testutil.MakeNoopLogger())
	view.Load(context.Background(), 9999)
	assert.Equal(t, viewer.NotFound, view.State())
}

// TestDownloadInvalidNames tests downloads of missing files and of names leaving the directory.
func TestDownloadInvalidNames(t *testing.T) {
	router := setupRouter(t)

	code, body := getJSON(t, router, "/api/download/pdf-1-1.pdf")
	assert.Equal(t, http.StatusNotFound, code)
	assert.Equal(t, "File not found", body["error"])

	for _, url := range []string{"/api/download/..%5Ccontacts.db", "/api/download/..", "/api/download/x..db"} {
		code, _ := getJSON(t, router, url)
		assert.Equal(t, http.StatusBadRequest, code, url)
	}
}

// TestHealth expects a reachable database.
func TestHealth(t *testing.T) {
	server := httptest.NewServer(setupRouter(t))
	defer server.Close()

	h, err := client.New(server.URL, nil).Health(context.Background())
	require.NoError(t, err)
	assert.Equal(t, client.Health{Status: "ok", DB: "ok"}, h)
}
