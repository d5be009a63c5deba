package handlers

import (
	"errors"
	"fmt"
	"net/http"

	"github.com/google/uuid"

	"github.com/yungbote/neurobridge-courseview/internal/platform/apierr"
	"github.com/yungbote/neurobridge-courseview/internal/platform/openai"
	"github.com/yungbote/neurobridge-courseview/internal/services"
)

// mapError translates service errors into the status and code the API answers with.
func mapError(err error, fallbackCode string) *apierr.Error {
	var ge *openai.GenerationError
	switch {
	case errors.Is(err, services.ErrSessionNotFound):
		return apierr.NotFound("session_not_found", err)
	case errors.Is(err, services.ErrCourseNotFound):
		return apierr.NotFound("course_not_found", err)
	case errors.Is(err, services.ErrChapterNotFound):
		return apierr.NotFound("chapter_not_found", err)
	case errors.Is(err, services.ErrInvalidInput):
		return apierr.BadRequest("invalid_input", err)
	case errors.Is(err, openai.ErrMissingAPIKey):
		return apierr.New(http.StatusServiceUnavailable, "provider_key_missing", err)
	case errors.As(err, &ge):
		return apierr.New(http.StatusBadGateway, "generation_failed", err)
	}
	return apierr.From(err, fallbackCode)
}

func parseID(raw, code string) (uuid.UUID, *apierr.Error) {
	id, err := uuid.Parse(raw)
	if err != nil {
		return uuid.Nil, apierr.BadRequest(code, err)
	}
	return id, nil
}

func errMissingField(name string, cause error) error {
	if cause != nil {
		return cause
	}
	return fmt.Errorf("%s is required", name)
}
