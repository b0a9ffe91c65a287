package instructor

import (
	"github.com/gofiber/fiber/v2"
	"github.com/sahilchouksey/learnly-api/model"
	"github.com/sahilchouksey/learnly-api/utils/middleware"
	"github.com/sahilchouksey/learnly-api/utils/response"
	"github.com/sahilchouksey/learnly-api/utils/validation"
	"gorm.io/gorm"
)

// InstructorHandler handles instructor profile requests
type InstructorHandler struct {
	db        *gorm.DB
	validator *validation.Validator
}

// NewInstructorHandler creates a new instructor handler
func NewInstructorHandler(db *gorm.DB) *InstructorHandler {
	return &InstructorHandler{
		db:        db,
		validator: validation.NewValidator(),
	}
}

// CreateInstructorRequest represents the request body for becoming an instructor
type CreateInstructorRequest struct {
	Headline string `json:"headline" validate:"omitempty,max=255"`
	Bio      string `json:"bio" validate:"omitempty,max=5000"`
}

// Create handles POST /api/v1/instructors - upgrades the current user to an
// instructor with a teaching profile
func (h *InstructorHandler) Create(c *fiber.Ctx) error {
	user, ok := middleware.GetUser(c)
	if !ok || user == nil {
		return response.Unauthorized(c, "User not authenticated")
	}

	var req CreateInstructorRequest
	if err := c.BodyParser(&req); err != nil {
		return response.BadRequest(c, "Invalid request body")
	}
	if err := h.validator.ValidateStruct(req); err != nil {
		return response.ValidationError(c, err)
	}

	var existing model.Instructor
	if err := h.db.Where("user_id = ?", user.ID).First(&existing).Error; err == nil {
		return response.Conflict(c, "Instructor profile already exists")
	}

	instructor := model.Instructor{
		UserID:   user.ID,
		Headline: validation.SanitizeString(req.Headline),
		Bio:      req.Bio,
	}

	err := h.db.Transaction(func(tx *gorm.DB) error {
		if err := tx.Create(&instructor).Error; err != nil {
			return err
		}
		return tx.Model(&model.User{}).Where("id = ?", user.ID).
			UpdateColumn("role", "instructor").Error
	})
	if err != nil {
		return response.InternalServerError(c, "Failed to create instructor profile")
	}

	return response.Created(c, instructor)
}

// Get handles GET /api/v1/instructors/:id (public profile)
func (h *InstructorHandler) Get(c *fiber.Ctx) error {
	id := c.Params("id")

	var instructor model.Instructor
	if err := h.db.Preload("User").
		Preload("Courses", "status = ?", model.CourseStatusPublished).
		First(&instructor, "id = ?", id).Error; err != nil {
		if err == gorm.ErrRecordNotFound {
			return response.NotFound(c, "Instructor not found")
		}
		return response.InternalServerError(c, "Failed to fetch instructor")
	}

	return response.Success(c, instructor)
}
