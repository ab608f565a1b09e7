package models

import "errors"

var (
	ErrFileNotFound        = errors.New("file not found")
	ErrUnsupportedFileType = errors.New("unsupported file type")
	ErrNoExtractableText   = errors.New("no extractable text found")

	ErrNotInitialized = errors.New("vector index not initialized")
	ErrStorage        = errors.New("vector index storage error")

	ErrProvider = errors.New("completion provider error")

	ErrUnknownMode        = errors.New("unknown mode")
	ErrNoUserDocuments    = errors.New("no user documents have been uploaded")
	ErrExploreNotStarted  = errors.New("explore session not started")
	ErrDocumentsNotLoaded = errors.New("documents not loaded")
	ErrCriteriaNotLoaded  = errors.New("scoring criteria not loaded")
)
