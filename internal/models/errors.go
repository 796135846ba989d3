package models

import "errors"

// Application-wide standard errors
var (
	// Common Resource/DB Errors
	ErrNotFound        = errors.New("resource not found")
	ErrStoryNotFound   = errors.New("story not found")
	ErrSegmentNotFound = errors.New("story segment not found")
	ErrContextNotFound = errors.New("story context not found")
	ErrAudioNotFound   = errors.New("audio metadata not found")

	// Upstream provider errors. Оркестратор восстанавливается после них
	// локально (fallback-текст / тихое аудио) и не отдает их клиенту.
	ErrAIGenerationFailed = errors.New("ai text generation failed")
	ErrTTSFailed          = errors.New("speech synthesis failed")

	// General Request/Server Errors
	ErrInternalServer = errors.New("internal server error")
	ErrInvalidInput   = errors.New("invalid input data")
)
