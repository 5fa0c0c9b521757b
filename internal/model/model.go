package model

import "time"

// Contact is the data structure for one submission of the contact form.
// PhotoPath and PdfPath hold generated file store names and are nil when no file was submitted.
type Contact struct {
	Id        int64     `json:"id"         db:"id"`
	FirstName string    `json:"first_name" db:"first_name"`
	LastName  string    `json:"last_name"  db:"last_name"`
	Email     string    `json:"email"      db:"email"`
	PhotoPath *string   `json:"photo_path" db:"photo_path"`
	PdfPath   *string   `json:"pdf_path"   db:"pdf_path"`
	CreatedAt time.Time `json:"created_at" db:"created_at"`
}

// NewContact carries the values of a contact that is about to be inserted. The text fields are
// pointers so that a field absent from the request reaches the database as NULL.
type NewContact struct {
	FirstName *string `db:"first_name"`
	LastName  *string `db:"last_name"`
	Email     *string `db:"email"`
	PhotoPath *string `db:"photo_path"`
	PdfPath   *string `db:"pdf_path"`
}

// CreatedResponse is the body returned by the intake endpoint.
type CreatedResponse struct {
	Id int64 `json:"id"`
}

// ErrorResponse is the body returned by every endpoint on failure.
type ErrorResponse struct {
	Error string `json:"error"`
}
