package utils

import (
	"reflect"
	"strings"

	"github.com/go-playground/validator/v10"

	apperrors "github.com/n0psw/lms-quiz-engine/internal/errors"
	"github.com/n0psw/lms-quiz-engine/internal/models"
)

// Validator wraps go-playground/validator with our custom rules and
// error conversion.
type Validator struct {
	validate *validator.Validate
}

func NewValidator() *Validator {
	validate := validator.New()
	RegisterCustomValidators(validate)
	return &Validator{validate: validate}
}

// Validate checks a struct and returns ValidationErrors on failure.
func (v *Validator) Validate(s any) error {
	if err := v.validate.Struct(s); err != nil {
		if converted := apperrors.ToValidationErrors(err); len(converted) > 0 {
			return converted
		}
		return err
	}
	return nil
}

// Custom validation functions

func ValidateQuestionType(fl validator.FieldLevel) bool {
	value := fl.Field().String()
	for _, validType := range models.QuestionTypes {
		if string(validType) == value {
			return true
		}
	}
	return false
}

func ValidateDisplayMode(fl validator.FieldLevel) bool {
	value := fl.Field().String()
	return value == string(models.DisplayOneByOne) || value == string(models.DisplayAllAtOnce)
}

func ValidateUserRole(fl validator.FieldLevel) bool {
	validRoles := []models.UserRole{
		models.RoleStudent,
		models.RoleTeacher,
		models.RoleAdmin,
	}

	value := fl.Field().String()
	for _, validRole := range validRoles {
		if string(validRole) == value {
			return true
		}
	}
	return false
}

func ValidateQuizMediaType(fl validator.FieldLevel) bool {
	validTypes := []models.QuizMediaType{
		models.QuizMediaAudio,
		models.QuizMediaPDF,
		models.QuizMediaText,
	}

	value := fl.Field().String()
	for _, validType := range validTypes {
		if string(validType) == value {
			return true
		}
	}
	return false
}

// RegisterCustomValidators registers all custom validators
func RegisterCustomValidators(validate *validator.Validate) {
	validate.RegisterValidation("question_type", ValidateQuestionType)
	validate.RegisterValidation("display_mode", ValidateDisplayMode)
	validate.RegisterValidation("user_role", ValidateUserRole)
	validate.RegisterValidation("quiz_media_type", ValidateQuizMediaType)

	// Register custom tag name function for better error messages
	validate.RegisterTagNameFunc(func(fld reflect.StructField) string {
		name := strings.SplitN(fld.Tag.Get("json"), ",", 2)[0]
		if name == "-" {
			return ""
		}
		return name
	})
}
