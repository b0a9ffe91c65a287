package course

import (
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/sahilchouksey/learnly-api/model"
	"github.com/sahilchouksey/learnly-api/services/enrollment"
	"github.com/sahilchouksey/learnly-api/utils/cache"
	"github.com/sahilchouksey/learnly-api/utils/middleware"
	"github.com/sahilchouksey/learnly-api/utils/pricing"
	"github.com/sahilchouksey/learnly-api/utils/response"
	"github.com/sahilchouksey/learnly-api/utils/validation"
	"gorm.io/gorm"
)

const (
	courseCacheTTL = 5 * time.Minute
	listCacheTTL   = time.Minute
)

// CourseHandler handles catalog requests
type CourseHandler struct {
	db        *gorm.DB
	ledger    *enrollment.Ledger
	cache     *cache.RedisCache // may be nil
	validator *validation.Validator
}

// NewCourseHandler creates a new course handler
func NewCourseHandler(db *gorm.DB, ledger *enrollment.Ledger, redisCache *cache.RedisCache) *CourseHandler {
	return &CourseHandler{
		db:        db,
		ledger:    ledger,
		cache:     redisCache,
		validator: validation.NewValidator(),
	}
}

// CreateCourseRequest represents the request body for creating a course
type CreateCourseRequest struct {
	Slug        string `json:"slug" validate:"required,slug,min=3,max=100"`
	Title       string `json:"title" validate:"required,min=3,max=255"`
	Description string `json:"description" validate:"omitempty,max=5000"`
	Price       string `json:"price" validate:"required,max=20"`
}

// UpdateCourseRequest represents the request body for updating a course.
// Price and slug are deliberately not updatable here; price changes go
// through a separate admin flow so in-flight checkouts fail loudly against
// the price check instead of silently charging the old amount.
type UpdateCourseRequest struct {
	Title       string `json:"title" validate:"omitempty,min=3,max=255"`
	Description string `json:"description" validate:"omitempty,max=5000"`
}

// SetStatusRequest represents the request body for a publication transition
type SetStatusRequest struct {
	Status string `json:"status" validate:"required,oneof=draft published archived"`
}

// ListCourses handles GET /api/v1/courses (published catalog)
func (h *CourseHandler) ListCourses(c *fiber.Ctx) error {
	var courses []model.Course

	if h.cache != nil {
		if err := h.cache.GetJSON(c.Context(), cache.CourseListKey(), &courses); err == nil {
			return response.Success(c, courses)
		}
	}

	if err := h.db.Where("status = ?", model.CourseStatusPublished).
		Preload("Instructor").
		Order("created_at DESC").
		Find(&courses).Error; err != nil {
		return response.InternalServerError(c, "Failed to fetch courses")
	}

	if h.cache != nil {
		_ = h.cache.SetJSON(c.Context(), cache.CourseListKey(), courses, listCacheTTL)
	}

	return response.Success(c, courses)
}

// GetCourse handles GET /api/v1/courses/:slug
func (h *CourseHandler) GetCourse(c *fiber.Ctx) error {
	slug := c.Params("slug")

	var course model.Course
	if h.cache != nil {
		if err := h.cache.GetJSON(c.Context(), cache.CourseKey(slug), &course); err == nil {
			return response.Success(c, course)
		}
	}

	if err := h.db.Where("slug = ? AND status = ?", slug, model.CourseStatusPublished).
		Preload("Instructor").
		Preload("Lectures", func(db *gorm.DB) *gorm.DB {
			return db.Order("lectures.position ASC")
		}).
		First(&course).Error; err != nil {
		if err == gorm.ErrRecordNotFound {
			return response.NotFound(c, "Course not found")
		}
		return response.InternalServerError(c, "Failed to fetch course")
	}

	if h.cache != nil {
		_ = h.cache.SetJSON(c.Context(), cache.CourseKey(slug), course, courseCacheTTL)
	}

	return response.Success(c, course)
}

// loadOwnedCourse fetches a course and checks the requester owns it (or is admin)
func (h *CourseHandler) loadOwnedCourse(c *fiber.Ctx, id string) (*model.Course, error) {
	user, ok := middleware.GetUser(c)
	if !ok || user == nil {
		return nil, response.Unauthorized(c, "User not authenticated")
	}

	var course model.Course
	if err := h.db.First(&course, "id = ?", id).Error; err != nil {
		if err == gorm.ErrRecordNotFound {
			return nil, response.NotFound(c, "Course not found")
		}
		return nil, response.InternalServerError(c, "Failed to fetch course")
	}

	if user.Role != "admin" {
		var instructor model.Instructor
		if err := h.db.Where("user_id = ?", user.ID).First(&instructor).Error; err != nil {
			return nil, response.Forbidden(c, "Instructor profile required")
		}
		if course.InstructorID != instructor.ID {
			return nil, response.Forbidden(c, "You do not own this course")
		}
	}

	return &course, nil
}

// CreateCourse handles POST /api/v1/courses (instructor role)
func (h *CourseHandler) CreateCourse(c *fiber.Ctx) error {
	user, ok := middleware.GetUser(c)
	if !ok || user == nil {
		return response.Unauthorized(c, "User not authenticated")
	}

	var req CreateCourseRequest
	if err := c.BodyParser(&req); err != nil {
		return response.BadRequest(c, "Invalid request body")
	}
	if err := h.validator.ValidateStruct(req); err != nil {
		return response.ValidationError(c, err)
	}
	if _, err := pricing.IsFree(req.Price); err != nil {
		return response.BadRequest(c, "Price must be a non-negative decimal amount")
	}

	var instructor model.Instructor
	if err := h.db.Where("user_id = ?", user.ID).First(&instructor).Error; err != nil {
		return response.Forbidden(c, "Instructor profile required")
	}

	var existing model.Course
	if err := h.db.Where("slug = ?", req.Slug).First(&existing).Error; err == nil {
		return response.Conflict(c, "Course with this slug already exists")
	}

	course := model.Course{
		InstructorID: instructor.ID,
		Slug:         req.Slug,
		Title:        validation.SanitizeString(req.Title),
		Description:  req.Description,
		Price:        req.Price,
		Status:       model.CourseStatusDraft,
	}
	if err := h.db.Create(&course).Error; err != nil {
		return response.InternalServerError(c, "Failed to create course")
	}

	return response.Created(c, course)
}

// UpdateCourse handles PUT /api/v1/courses/:id
func (h *CourseHandler) UpdateCourse(c *fiber.Ctx) error {
	var req UpdateCourseRequest
	if err := c.BodyParser(&req); err != nil {
		return response.BadRequest(c, "Invalid request body")
	}
	if err := h.validator.ValidateStruct(req); err != nil {
		return response.ValidationError(c, err)
	}

	course, err := h.loadOwnedCourse(c, c.Params("id"))
	if course == nil {
		return err
	}

	updates := map[string]interface{}{}
	if req.Title != "" {
		updates["title"] = validation.SanitizeString(req.Title)
	}
	if req.Description != "" {
		updates["description"] = req.Description
	}
	if len(updates) > 0 {
		if err := h.db.Model(course).Updates(updates).Error; err != nil {
			return response.InternalServerError(c, "Failed to update course")
		}
		if h.cache != nil {
			_ = h.cache.InvalidateCourse(c.Context(), course.Slug)
		}
	}

	return response.Success(c, course)
}

// AddLectureRequest represents the request body for adding a lecture
type AddLectureRequest struct {
	Title       string `json:"title" validate:"required,min=3,max=255"`
	Position    int    `json:"position" validate:"omitempty,min=0"`
	FreePreview bool   `json:"free_preview"`
	VideoKey    string `json:"video_key" validate:"omitempty,max=512"`
}

// AddLecture handles POST /api/v1/courses/:id/lectures
func (h *CourseHandler) AddLecture(c *fiber.Ctx) error {
	var req AddLectureRequest
	if err := c.BodyParser(&req); err != nil {
		return response.BadRequest(c, "Invalid request body")
	}
	if err := h.validator.ValidateStruct(req); err != nil {
		return response.ValidationError(c, err)
	}

	course, err := h.loadOwnedCourse(c, c.Params("id"))
	if course == nil {
		return err
	}

	lecture := model.Lecture{
		CourseID:    course.ID,
		Title:       validation.SanitizeString(req.Title),
		Position:    req.Position,
		FreePreview: req.FreePreview,
		VideoKey:    req.VideoKey,
	}
	if err := h.db.Create(&lecture).Error; err != nil {
		return response.InternalServerError(c, "Failed to create lecture")
	}

	if h.cache != nil {
		_ = h.cache.InvalidateCourse(c.Context(), course.Slug)
	}

	return response.Created(c, lecture)
}

// SetStatus handles PATCH /api/v1/courses/:id/status. The transition goes
// through the ledger so the instructor's published-course counter moves in
// the same transaction as the status flip.
func (h *CourseHandler) SetStatus(c *fiber.Ctx) error {
	var req SetStatusRequest
	if err := c.BodyParser(&req); err != nil {
		return response.BadRequest(c, "Invalid request body")
	}
	if err := h.validator.ValidateStruct(req); err != nil {
		return response.ValidationError(c, err)
	}

	course, err := h.loadOwnedCourse(c, c.Params("id"))
	if course == nil {
		return err
	}

	updated, err := h.ledger.SetPublicationStatus(c.Context(), course.ID, req.Status)
	if err != nil {
		if err == enrollment.ErrCourseNotFound {
			return response.NotFound(c, "Course not found")
		}
		return response.InternalServerError(c, "Failed to update course status")
	}

	if h.cache != nil {
		_ = h.cache.InvalidateCourse(c.Context(), updated.Slug)
	}

	return response.Success(c, updated)
}
