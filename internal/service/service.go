package service

import (
	"bufio"
	"context"
	"errors"
	"io"
	"mime"
	"mime/multipart"
	"net/http"
	"strconv"

	"github.com/gabriel-vasile/mimetype"
	"github.com/gin-gonic/gin"

	"gitlab.com/dirk.krummacker/contact-intake/internal/config"
	"gitlab.com/dirk.krummacker/contact-intake/internal/filestore"
	"gitlab.com/dirk.krummacker/contact-intake/internal/logger"
	"gitlab.com/dirk.krummacker/contact-intake/internal/model"
	"gitlab.com/dirk.krummacker/contact-intake/internal/repository"
)

// fileFields are the multipart parts that may carry one file each, in storing order.
var fileFields = []string{"photo", "pdf"}

// sniffLen is the number of leading bytes used to detect the content type of a download.
const sniffLen = 3072

const (
	msgInternal     = "Internal server error"
	msgNotFound     = "Contact not found"
	msgFileNotFound = "File not found"
	msgInvalidName  = "Invalid filename"
	msgInvalidID    = "invalid id parameter"
	msgInvalidBody  = "invalid multipart body"
	msgBodyTooLarge = "request body too large"
	msgTooManyFiles = "only one file allowed per field"
)

// Contacts is the part of the contact repository used by the endpoints.
type Contacts interface {
	Insert(ctx context.Context, c model.NewContact) (int64, error)
	GetByID(ctx context.Context, id int64) (model.Contact, error)
	Ping(ctx context.Context) error
}

// Options holds the HTTP related settings of the service.
type Options struct {
	MaxUploadBytes   int64
	CleanupOnFailure bool
	RequestLogging   bool
	CORS             config.CORS
}

// Service bundles the dependencies of the HTTP endpoints.
type Service struct {
	contacts Contacts
	files    filestore.Store
	log      *logger.Logger
	opts     Options
}

// New creates the service. The repository and file store are owned by the caller.
func New(contacts Contacts, files filestore.Store, log *logger.Logger, opts Options) *Service {
	return &Service{
		contacts: contacts,
		files:    files,
		log:      log.With("system", "http"),
		opts:     opts,
	}
}

// SetupHttpRouter initializes the REST API router and registers all endpoints.
func (s *Service) SetupHttpRouter() *gin.Engine {
	router := gin.New()
	router.Use(gin.Recovery())
	router.Use(requestID())
	if s.opts.RequestLogging {
		router.Use(requestLogger(s.log))
	}
	if s.opts.CORS.Enabled {
		router.Use(corsMiddleware(s.opts.CORS))
	}
	router.MaxMultipartMemory = 8 << 20

	api := router.Group("/api")
	api.POST("/contact", s.createContact)
	api.GET("/contact/:id", s.findContactByID)
	api.GET("/download/:filename", s.downloadFile)
	api.GET("/health", s.health)
	return router
}

// createContact stores the submitted files, inserts the contact and responds with its new id.
// The text fields are passed to the database as they arrive; a missing field becomes NULL and
// is rejected by the table's NOT NULL constraint.
//
// Example REST API call:
//
//	> curl http://localhost:3001/api/contact -F firstName=Ada -F lastName=Lovelace -F email=ada@example.com -F photo=@ada.jpg -F pdf=@notes.pdf
func (s *Service) createContact(c *gin.Context) {
	log := requestLog(c, s.log)
	var body *limitedBody
	if s.opts.MaxUploadBytes > 0 {
		if c.Request.ContentLength > s.opts.MaxUploadBytes {
			c.AbortWithStatusJSON(http.StatusRequestEntityTooLarge, gin.H{"error": msgBodyTooLarge})
			return
		}
		body = &limitedBody{ReadCloser: http.MaxBytesReader(c.Writer, c.Request.Body, s.opts.MaxUploadBytes)}
		c.Request.Body = body
	}
	form, err := c.MultipartForm()
	if err != nil {
		// The multipart parser does not always wrap the limit error.
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) || (body != nil && body.exceeded) {
			c.AbortWithStatusJSON(http.StatusRequestEntityTooLarge, gin.H{"error": msgBodyTooLarge})
			return
		}
		c.AbortWithStatusJSON(http.StatusBadRequest, gin.H{"error": msgInvalidBody})
		return
	}
	for _, field := range fileFields {
		if len(form.File[field]) > 1 {
			c.AbortWithStatusJSON(http.StatusBadRequest, gin.H{"error": msgTooManyFiles})
			return
		}
	}

	ctx := c.Request.Context()
	newContact := model.NewContact{
		FirstName: formValue(form, "firstName"),
		LastName:  formValue(form, "lastName"),
		Email:     formValue(form, "email"),
	}

	var stored []string
	for _, field := range fileFields {
		headers := form.File[field]
		if len(headers) == 0 {
			continue
		}
		name, err := s.storeFile(ctx, field, headers[0])
		if err != nil {
			log.Error("failed to store upload", "field", field, "error", err)
			s.cleanup(ctx, log, stored)
			c.AbortWithStatusJSON(http.StatusInternalServerError, gin.H{"error": msgInternal})
			return
		}
		stored = append(stored, name)
		if field == "photo" {
			newContact.PhotoPath = &name
		} else {
			newContact.PdfPath = &name
		}
	}

	id, err := s.contacts.Insert(ctx, newContact)
	if err != nil {
		log.Error("failed to insert contact", "error", err, "files", stored)
		s.cleanup(ctx, log, stored)
		c.AbortWithStatusJSON(http.StatusInternalServerError, gin.H{"error": msgInternal})
		return
	}

	log.Info("contact created", "id", id, "files", len(stored))
	c.IndentedJSON(http.StatusOK, model.CreatedResponse{Id: id})
}

// limitedBody records whether the wrapped http.MaxBytesReader hit its limit.
type limitedBody struct {
	io.ReadCloser
	exceeded bool
}

func (b *limitedBody) Read(p []byte) (int, error) {
	n, err := b.ReadCloser.Read(p)
	var tooLarge *http.MaxBytesError
	if errors.As(err, &tooLarge) {
		b.exceeded = true
	}
	return n, err
}

func (s *Service) storeFile(ctx context.Context, field string, header *multipart.FileHeader) (string, error) {
	f, err := header.Open()
	if err != nil {
		return "", err
	}
	defer f.Close()
	return s.files.Store(ctx, field, header.Filename, f)
}

// cleanup removes files stored for a submission that could not be completed. It only runs when
// CleanupOnFailure is set; otherwise the files stay as orphans.
func (s *Service) cleanup(ctx context.Context, log *logger.Logger, names []string) {
	if !s.opts.CleanupOnFailure {
		return
	}
	for _, name := range names {
		if err := s.files.Delete(ctx, name); err != nil {
			log.Warn("failed to remove orphaned upload", "name", name, "error", err)
		}
	}
}

// formValue returns the first value of a text field, or nil if the field was not sent.
func formValue(form *multipart.Form, key string) *string {
	values, ok := form.Value[key]
	if !ok || len(values) == 0 {
		return nil
	}
	v := values[0]
	return &v
}

// findContactByID locates the contact whose ID value matches the id parameter of the request URL,
// then returns that contact as a response.
//
// Example REST API call:
//
//	> curl http://localhost:3001/api/contact/56
func (s *Service) findContactByID(c *gin.Context) {
	id, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil {
		c.AbortWithStatusJSON(http.StatusNotFound, gin.H{"error": msgInvalidID})
		return
	}

	contact, err := s.contacts.GetByID(c.Request.Context(), id)
	if errors.Is(err, repository.ErrNotFound) {
		c.AbortWithStatusJSON(http.StatusNotFound, gin.H{"error": msgNotFound})
		return
	}
	if err != nil {
		requestLog(c, s.log).Error("failed to load contact", "id", id, "error", err)
		c.AbortWithStatusJSON(http.StatusInternalServerError, gin.H{"error": msgInternal})
		return
	}
	c.IndentedJSON(http.StatusOK, contact)
}

// downloadFile streams a stored file as an attachment. The content type is sniffed from the
// first bytes of the file.
//
// Example REST API call:
//
//	> curl -OJ http://localhost:3001/api/download/pdf-1700000000000-123456789.pdf
func (s *Service) downloadFile(c *gin.Context) {
	name := c.Param("filename")
	rc, info, err := s.files.Retrieve(c.Request.Context(), name)
	switch {
	case errors.Is(err, filestore.ErrInvalidName):
		c.AbortWithStatusJSON(http.StatusBadRequest, gin.H{"error": msgInvalidName})
		return
	case errors.Is(err, filestore.ErrNotFound):
		c.AbortWithStatusJSON(http.StatusNotFound, gin.H{"error": msgFileNotFound})
		return
	case err != nil:
		requestLog(c, s.log).Error("failed to open file", "name", name, "error", err)
		c.AbortWithStatusJSON(http.StatusInternalServerError, gin.H{"error": msgInternal})
		return
	}
	defer rc.Close()

	br := bufio.NewReaderSize(rc, sniffLen)
	head, _ := br.Peek(sniffLen)
	contentType := mimetype.Detect(head).String()

	disposition := mime.FormatMediaType("attachment", map[string]string{"filename": name})
	c.DataFromReader(http.StatusOK, info.Size, contentType, br, map[string]string{
		"Content-Disposition": disposition,
	})
}

// health reports whether the service and its database are reachable.
//
// Example REST API call:
//
//	> curl http://localhost:3001/api/health
func (s *Service) health(c *gin.Context) {
	db := "ok"
	if err := s.contacts.Ping(c.Request.Context()); err != nil {
		requestLog(c, s.log).Warn("database ping failed", "error", err)
		db = "error"
	}
	c.IndentedJSON(http.StatusOK, gin.H{"status": "ok", "db": db})
}
