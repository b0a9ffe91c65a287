package playback

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/sahilchouksey/learnly-api/model"
	"github.com/sahilchouksey/learnly-api/services/enrollment"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

func setupTestDB(t *testing.T) *gorm.DB {
	t.Helper()

	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	require.NoError(t, err)

	sqlDB, err := db.DB()
	require.NoError(t, err)
	sqlDB.SetMaxOpenConns(1)

	err = db.AutoMigrate(
		&model.User{},
		&model.Instructor{},
		&model.Course{},
		&model.Lecture{},
		&model.Enrollment{},
	)
	require.NoError(t, err)

	return db
}

type fixtures struct {
	course   *model.Course
	preview  *model.Lecture
	locked   *model.Lecture
	noVideo  *model.Lecture
	enrolled *model.User
	outsider *model.User
}

func seedFixtures(t *testing.T, db *gorm.DB, ledger *enrollment.Ledger) fixtures {
	t.Helper()

	teacher := model.User{Email: "teacher@example.com", PasswordHash: "x", Name: "Teacher", Role: "instructor"}
	require.NoError(t, db.Create(&teacher).Error)
	instructor := model.Instructor{UserID: teacher.ID}
	require.NoError(t, db.Create(&instructor).Error)

	course := model.Course{
		InstructorID: instructor.ID,
		Slug:         "guarded-course",
		Title:        "Guarded Course",
		Price:        "0",
		Status:       model.CourseStatusPublished,
	}
	require.NoError(t, db.Create(&course).Error)

	preview := model.Lecture{CourseID: course.ID, Title: "Intro", Position: 1, FreePreview: true, VideoKey: "videos/intro.mp4"}
	locked := model.Lecture{CourseID: course.ID, Title: "Deep Dive", Position: 2, VideoKey: "videos/deep-dive.mp4"}
	noVideo := model.Lecture{CourseID: course.ID, Title: "Slides Only", Position: 3}
	require.NoError(t, db.Create(&preview).Error)
	require.NoError(t, db.Create(&locked).Error)
	require.NoError(t, db.Create(&noVideo).Error)

	enrolled := model.User{Email: "enrolled@example.com", PasswordHash: "x", Name: "Enrolled"}
	require.NoError(t, db.Create(&enrolled).Error)
	_, err := ledger.ClaimFree(context.Background(), enrolled.ID, course.ID)
	require.NoError(t, err)

	outsider := model.User{Email: "outsider@example.com", PasswordHash: "x", Name: "Outsider"}
	require.NoError(t, db.Create(&outsider).Error)

	return fixtures{
		course:   &course,
		preview:  &preview,
		locked:   &locked,
		noVideo:  &noVideo,
		enrolled: &enrolled,
		outsider: &outsider,
	}
}

type fakeSigner struct {
	lastKey string
	err     error
}

func (f *fakeSigner) PresignGetURL(key string, _ time.Duration) (string, error) {
	f.lastKey = key
	if f.err != nil {
		return "", f.err
	}
	return "https://cdn.example.com/" + key + "?sig=abc", nil
}

func TestGuardAuthorizeAndSign(t *testing.T) {
	db := setupTestDB(t)
	ledger := enrollment.NewLedger(db)
	ctx := context.Background()

	fx := seedFixtures(t, db, ledger)

	t.Run("enrolled user gets a signed URL", func(t *testing.T) {
		signer := &fakeSigner{}
		guard := NewGuard(db, ledger, signer)

		grant, err := guard.AuthorizeAndSign(ctx, &fx.enrolled.ID, fx.locked.ID)
		require.NoError(t, err)
		assert.Equal(t, fx.locked.VideoKey, signer.lastKey)
		assert.Contains(t, grant.SignedURL, fx.locked.VideoKey)
		assert.Equal(t, PlaybackURLValidity, grant.ExpiresIn)
		assert.Equal(t, fx.locked.ID, grant.Lecture.ID)
	})

	t.Run("free preview is open to anonymous requesters", func(t *testing.T) {
		guard := NewGuard(db, ledger, &fakeSigner{})

		grant, err := guard.AuthorizeAndSign(ctx, nil, fx.preview.ID)
		require.NoError(t, err)
		assert.NotEmpty(t, grant.SignedURL)
	})

	t.Run("anonymous requester is turned away from locked content", func(t *testing.T) {
		guard := NewGuard(db, ledger, &fakeSigner{})

		_, err := guard.AuthorizeAndSign(ctx, nil, fx.locked.ID)
		assert.ErrorIs(t, err, ErrUnauthenticated)
	})

	t.Run("authenticated but unenrolled requester is forbidden", func(t *testing.T) {
		signer := &fakeSigner{}
		guard := NewGuard(db, ledger, signer)

		_, err := guard.AuthorizeAndSign(ctx, &fx.outsider.ID, fx.locked.ID)
		assert.ErrorIs(t, err, ErrForbidden)
		assert.Empty(t, signer.lastKey, "signer must not be reached without entitlement")
	})

	t.Run("lecture without video", func(t *testing.T) {
		guard := NewGuard(db, ledger, &fakeSigner{})

		_, err := guard.AuthorizeAndSign(ctx, &fx.enrolled.ID, fx.noVideo.ID)
		assert.ErrorIs(t, err, ErrNoVideo)
	})

	t.Run("missing lecture", func(t *testing.T) {
		guard := NewGuard(db, ledger, &fakeSigner{})

		_, err := guard.AuthorizeAndSign(ctx, &fx.enrolled.ID, 99999)
		assert.ErrorIs(t, err, ErrLectureNotFound)
	})

	t.Run("storage signing failure surfaces as retryable", func(t *testing.T) {
		signer := &fakeSigner{err: errors.New("spaces unreachable")}
		guard := NewGuard(db, ledger, signer)

		_, err := guard.AuthorizeAndSign(ctx, &fx.enrolled.ID, fx.locked.ID)
		assert.ErrorIs(t, err, ErrSigningFailed)
	})
}
