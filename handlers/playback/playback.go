package playback

import (
	"errors"
	"log"
	"strconv"

	"github.com/gofiber/fiber/v2"
	"github.com/sahilchouksey/learnly-api/services/playback"
	"github.com/sahilchouksey/learnly-api/utils/middleware"
	"github.com/sahilchouksey/learnly-api/utils/response"
)

// PlaybackHandler issues signed playback URLs for entitled requesters
type PlaybackHandler struct {
	guard *playback.Guard
}

// NewPlaybackHandler creates a new playback handler
func NewPlaybackHandler(guard *playback.Guard) *PlaybackHandler {
	return &PlaybackHandler{guard: guard}
}

// GetPlaybackURL handles GET /api/v1/lectures/:id/playback. Auth is
// optional at the route level: anonymous requesters can still play
// free-preview lectures.
func (h *PlaybackHandler) GetPlaybackURL(c *fiber.Ctx) error {
	lectureID, err := strconv.ParseUint(c.Params("id"), 10, 32)
	if err != nil || lectureID == 0 {
		return response.BadRequest(c, "Invalid lecture ID")
	}

	var userID *uint
	if id, ok := middleware.GetUserID(c); ok {
		userID = &id
	}

	grant, err := h.guard.AuthorizeAndSign(c.Context(), userID, uint(lectureID))
	if err != nil {
		switch {
		case errors.Is(err, playback.ErrLectureNotFound):
			return response.NotFound(c, "Lecture not found")
		case errors.Is(err, playback.ErrUnauthenticated):
			return response.Unauthorized(c, "Sign in to watch this lecture")
		case errors.Is(err, playback.ErrForbidden):
			return response.Forbidden(c, "Enroll in this course to watch this lecture")
		case errors.Is(err, playback.ErrNoVideo):
			return response.NotFound(c, "This lecture has no video")
		default:
			log.Printf("playback: signing failed for lecture %d: %v", lectureID, err)
			return response.InternalServerError(c, "Failed to prepare playback. Please try again.")
		}
	}

	return response.Success(c, fiber.Map{
		"signed_url": grant.SignedURL,
		"expires_in": int(grant.ExpiresIn.Seconds()),
	})
}
