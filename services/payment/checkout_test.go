package payment

import (
	"context"
	"errors"
	"testing"

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

func createTestCourse(t *testing.T, db *gorm.DB, slug, price, status string) *model.Course {
	t.Helper()

	user := model.User{Email: slug + "-teacher@example.com", PasswordHash: "x", Name: "Teacher", Role: "instructor"}
	require.NoError(t, db.Create(&user).Error)

	instructor := model.Instructor{UserID: user.ID}
	require.NoError(t, db.Create(&instructor).Error)

	course := model.Course{
		InstructorID: instructor.ID,
		Slug:         slug,
		Title:        "Test Course",
		Price:        price,
		Status:       status,
	}
	require.NoError(t, db.Create(&course).Error)
	return &course
}

func createTestStudent(t *testing.T, db *gorm.DB, email string) *model.User {
	t.Helper()
	user := model.User{Email: email, PasswordHash: "x", Name: "Student"}
	require.NoError(t, db.Create(&user).Error)
	return &user
}

// fakeGateway records the session it was asked to mint
type fakeGateway struct {
	calls      int
	lastParams CheckoutParams
	err        error
}

func (f *fakeGateway) CreateCheckoutSession(_ context.Context, p CheckoutParams) (*CheckoutSession, error) {
	f.calls++
	f.lastParams = p
	if f.err != nil {
		return nil, f.err
	}
	return &CheckoutSession{ID: "cs_test_123", URL: "https://checkout.example.com/c/cs_test_123"}, nil
}

func TestStartCheckout(t *testing.T) {
	db := setupTestDB(t)
	ledger := enrollment.NewLedger(db)
	ctx := context.Background()

	course := createTestCourse(t, db, "paid-course", "20.00", model.CourseStatusPublished)
	student := createTestStudent(t, db, "buyer@example.com")

	t.Run("returns session reference without mutating state", func(t *testing.T) {
		gateway := &fakeGateway{}
		svc := NewCheckoutService(db, ledger, gateway, "https://learnly.example.com")

		session, err := svc.StartCheckout(ctx, student.ID, course.ID)
		require.NoError(t, err)
		assert.Equal(t, "cs_test_123", session.ID)
		assert.NotEmpty(t, session.URL)

		// Purchase intent rides in the session params
		assert.Equal(t, student.ID, gateway.lastParams.UserID)
		assert.Equal(t, course.ID, gateway.lastParams.CourseID)
		assert.Equal(t, int64(2000), gateway.lastParams.AmountMinor)
		assert.Contains(t, gateway.lastParams.SuccessURL, course.Slug)

		// No enrollment yet: that only happens on webhook fulfillment
		var count int64
		require.NoError(t, db.Model(&model.Enrollment{}).Count(&count).Error)
		assert.EqualValues(t, 0, count)
	})

	t.Run("rejects free course with distinct error", func(t *testing.T) {
		free := createTestCourse(t, db, "free-course", "0", model.CourseStatusPublished)
		gateway := &fakeGateway{}
		svc := NewCheckoutService(db, ledger, gateway, "https://learnly.example.com")

		_, err := svc.StartCheckout(ctx, student.ID, free.ID)
		assert.ErrorIs(t, err, ErrCourseFree)
		assert.Zero(t, gateway.calls, "provider must not be called for free courses")
	})

	t.Run("rejects already enrolled buyer", func(t *testing.T) {
		owned := createTestCourse(t, db, "owned-course", "15.00", model.CourseStatusPublished)
		_, err := ledger.Grant(ctx, student.ID, owned.ID, "15.00")
		require.NoError(t, err)

		gateway := &fakeGateway{}
		svc := NewCheckoutService(db, ledger, gateway, "https://learnly.example.com")

		_, err = svc.StartCheckout(ctx, student.ID, owned.ID)
		assert.ErrorIs(t, err, enrollment.ErrAlreadyEnrolled)
		assert.Zero(t, gateway.calls)
	})

	t.Run("unpublished course is not purchasable", func(t *testing.T) {
		draft := createTestCourse(t, db, "draft-course", "30.00", model.CourseStatusDraft)
		svc := NewCheckoutService(db, ledger, &fakeGateway{}, "https://learnly.example.com")

		_, err := svc.StartCheckout(ctx, student.ID, draft.ID)
		assert.ErrorIs(t, err, enrollment.ErrCourseNotFound)
	})

	t.Run("missing course", func(t *testing.T) {
		svc := NewCheckoutService(db, ledger, &fakeGateway{}, "https://learnly.example.com")
		_, err := svc.StartCheckout(ctx, student.ID, 99999)
		assert.ErrorIs(t, err, enrollment.ErrCourseNotFound)
	})

	t.Run("provider failure is retryable", func(t *testing.T) {
		gateway := &fakeGateway{err: errors.New("connection refused")}
		svc := NewCheckoutService(db, ledger, gateway, "https://learnly.example.com")

		_, err := svc.StartCheckout(ctx, student.ID, course.ID)
		assert.ErrorIs(t, err, ErrProviderUnavailable)
	})
}
