package playback

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/sahilchouksey/learnly-api/model"
	"github.com/sahilchouksey/learnly-api/services/enrollment"
	"gorm.io/gorm"
)

var (
	ErrLectureNotFound = errors.New("lecture not found")
	ErrUnauthenticated = errors.New("authentication required")
	ErrForbidden       = errors.New("no enrollment for this course")
	ErrNoVideo         = errors.New("lecture has no video attached")
	// ErrSigningFailed is a transient storage-provider failure; callers map
	// it to a 5xx so clients can retry
	ErrSigningFailed = errors.New("failed to sign playback URL")
)

// PlaybackURLValidity is how long an issued playback URL stays usable
const PlaybackURLValidity = time.Hour

// URLSigner issues time-limited read URLs for stored objects
type URLSigner interface {
	PresignGetURL(key string, expiration time.Duration) (string, error)
}

// Guard decides whether a requester may play a lecture and, if so, obtains
// a short-lived signed playback URL. Free-preview lectures bypass the
// entitlement check entirely, including for anonymous requesters.
type Guard struct {
	db     *gorm.DB
	ledger *enrollment.Ledger
	signer URLSigner
}

// NewGuard creates a new content access guard
func NewGuard(db *gorm.DB, ledger *enrollment.Ledger, signer URLSigner) *Guard {
	return &Guard{
		db:     db,
		ledger: ledger,
		signer: signer,
	}
}

// PlaybackGrant is the result of a successful authorization
type PlaybackGrant struct {
	SignedURL string
	ExpiresIn time.Duration
	Lecture   model.Lecture
}

// AuthorizeAndSign authorizes playback of a lecture for the given requester
// (nil userID = anonymous) and returns a signed URL on success.
func (g *Guard) AuthorizeAndSign(ctx context.Context, userID *uint, lectureID uint) (*PlaybackGrant, error) {
	var lecture model.Lecture
	if err := g.db.WithContext(ctx).First(&lecture, lectureID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrLectureNotFound
		}
		return nil, fmt.Errorf("failed to load lecture: %w", err)
	}

	if !lecture.FreePreview {
		if userID == nil {
			return nil, ErrUnauthenticated
		}
		enrolled, err := g.ledger.IsEnrolled(ctx, *userID, lecture.CourseID)
		if err != nil {
			return nil, err
		}
		if !enrolled {
			return nil, ErrForbidden
		}
	}

	if lecture.VideoKey == "" {
		return nil, ErrNoVideo
	}

	signedURL, err := g.signer.PresignGetURL(lecture.VideoKey, PlaybackURLValidity)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrSigningFailed, err)
	}

	return &PlaybackGrant{
		SignedURL: signedURL,
		ExpiresIn: PlaybackURLValidity,
		Lecture:   lecture,
	}, nil
}
