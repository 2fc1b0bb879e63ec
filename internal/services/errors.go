package services

import "errors"

// Service errors
var (
	// Upload errors
	ErrNoUploads        = errors.New("no files uploaded")
	ErrTooManyUploads   = errors.New("too many files in one upload")
	ErrUploadUnreadable = errors.New("uploaded file could not be opened")
)
