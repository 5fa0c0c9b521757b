// Package client talks to the contact-intake REST API.
package client

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"net/url"
	"strconv"
	"strings"

	"gitlab.com/dirk.krummacker/contact-intake/internal/model"
)

// ErrNotFound is returned when the server answers 404.
var ErrNotFound = errors.New("client: not found")

// StatusError is returned for every other non-2xx answer.
type StatusError struct {
	Code    int
	Message string
}

func (e *StatusError) Error() string {
	if e.Message == "" {
		return fmt.Sprintf("unexpected status %d", e.Code)
	}
	return fmt.Sprintf("unexpected status %d: %s", e.Code, e.Message)
}

// File is a file selected for upload.
type File struct {
	Name    string
	Content []byte
}

// Submission is the content of one contact form submission. Photo and PDF are optional.
type Submission struct {
	FirstName string
	LastName  string
	Email     string
	Photo     *File
	PDF       *File
}

// Health is the answer of the health endpoint.
type Health struct {
	Status string `json:"status"`
	DB     string `json:"db"`
}

// Client is safe for concurrent use.
type Client struct {
	baseURL    string
	httpClient *http.Client
}

// New creates a client for the server at baseURL, e.g. "http://localhost:3001". A nil
// httpClient means http.DefaultClient.
func New(baseURL string, httpClient *http.Client) *Client {
	if httpClient == nil {
		httpClient = http.DefaultClient
	}
	return &Client{baseURL: strings.TrimRight(baseURL, "/"), httpClient: httpClient}
}

// Submit sends the submission as multipart/form-data and returns the id of the new contact.
func (c *Client) Submit(ctx context.Context, s Submission) (int64, error) {
	var body bytes.Buffer
	w := multipart.NewWriter(&body)
	for _, f := range []struct{ key, value string }{
		{"firstName", s.FirstName},
		{"lastName", s.LastName},
		{"email", s.Email},
	} {
		if err := w.WriteField(f.key, f.value); err != nil {
			return 0, fmt.Errorf("write field %s: %w", f.key, err)
		}
	}
	for _, f := range []struct {
		field string
		file  *File
	}{{"photo", s.Photo}, {"pdf", s.PDF}} {
		if f.file == nil {
			continue
		}
		part, err := w.CreateFormFile(f.field, f.file.Name)
		if err != nil {
			return 0, fmt.Errorf("create part %s: %w", f.field, err)
		}
		if _, err := part.Write(f.file.Content); err != nil {
			return 0, fmt.Errorf("write part %s: %w", f.field, err)
		}
	}
	if err := w.Close(); err != nil {
		return 0, fmt.Errorf("close multipart body: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/api/contact", &body)
	if err != nil {
		return 0, err
	}
	req.Header.Set("Content-Type", w.FormDataContentType())

	var created model.CreatedResponse
	if err := c.doJSON(req, &created); err != nil {
		return 0, err
	}
	return created.Id, nil
}

// Contact fetches the contact with the given id. It returns ErrNotFound if there is none.
func (c *Client) Contact(ctx context.Context, id int64) (model.Contact, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet,
		c.baseURL+"/api/contact/"+strconv.FormatInt(id, 10), nil)
	if err != nil {
		return model.Contact{}, err
	}
	var contact model.Contact
	if err := c.doJSON(req, &contact); err != nil {
		return model.Contact{}, err
	}
	return contact, nil
}

// DownloadURL returns the URL under which a stored file can be downloaded.
func (c *Client) DownloadURL(name string) string {
	return c.baseURL + "/api/download/" + url.PathEscape(name)
}

// Download fetches the content of a stored file.
func (c *Client) Download(ctx context.Context, name string) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.DownloadURL(name), nil)
	if err != nil {
		return nil, err
	}
	res, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("download %s: %w", name, err)
	}
	defer res.Body.Close()
	if err := checkStatus(res); err != nil {
		return nil, err
	}
	data, err := io.ReadAll(res.Body)
	if err != nil {
		return nil, fmt.Errorf("read %s: %w", name, err)
	}
	return data, nil
}

// Health queries the health endpoint.
func (c *Client) Health(ctx context.Context) (Health, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+"/api/health", nil)
	if err != nil {
		return Health{}, err
	}
	var h Health
	err = c.doJSON(req, &h)
	return h, err
}

func (c *Client) doJSON(req *http.Request, v any) error {
	res, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("%s %s: %w", req.Method, req.URL.Path, err)
	}
	defer res.Body.Close()
	if err := checkStatus(res); err != nil {
		return err
	}
	if err := json.NewDecoder(res.Body).Decode(v); err != nil {
		return fmt.Errorf("decode response: %w", err)
	}
	return nil
}

func checkStatus(res *http.Response) error {
	if res.StatusCode >= 200 && res.StatusCode < 300 {
		return nil
	}
	if res.StatusCode == http.StatusNotFound {
		return ErrNotFound
	}
	var body model.ErrorResponse
	_ = json.NewDecoder(io.LimitReader(res.Body, 4096)).Decode(&body)
	return &StatusError{Code: res.StatusCode, Message: body.Error}
}
