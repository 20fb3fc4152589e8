package model

import "errors"

// Стандартные ошибки приложения
var (
	// Record store
	ErrStoryNotFound       = errors.New("story not found")
	ErrStoreUnavailable    = errors.New("record store unavailable")
	ErrWriteFailure        = errors.New("record store write failed")
	ErrMalformedTranscript = errors.New("stored transcript is malformed")

	// Authoring flow
	ErrEmptyTranscript  = errors.New("transcript is empty")
	ErrNoDraft          = errors.New("no generated draft to save")
	ErrGenerationFailed = errors.New("AI generation failed")

	// General Request/Server Errors
	ErrBadRequest     = errors.New("bad request")
	ErrInternalServer = errors.New("internal server error")
)
