package middleware

import (
	"errors"
	"net/http"
	"reflect"
	"strings"

	"github.com/ahmedelhadi17776/worklog/internal/domain/authz"
	"github.com/ahmedelhadi17776/worklog/internal/domain/notification"
	"github.com/ahmedelhadi17776/worklog/internal/domain/project"
	"github.com/ahmedelhadi17776/worklog/internal/domain/task"
	"github.com/ahmedelhadi17776/worklog/internal/domain/timelog"
	"github.com/ahmedelhadi17776/worklog/pkg/logger"
	"github.com/gin-gonic/gin"
	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"
)

const (
	validatedModelKey = "validated_model"
	validatedQueryKey = "validated_query"
)

// ValidationMiddleware handles request validation
type ValidationMiddleware struct {
	validator *validator.Validate
	log       *logger.Logger
}

// NewValidator returns a validator with the domain enum tags registered
func NewValidator() *validator.Validate {
	v := validator.New()
	v.RegisterTagNameFunc(func(f reflect.StructField) string {
		name := strings.SplitN(f.Tag.Get("json"), ",", 2)[0]
		if name == "-" || name == "" {
			return f.Name
		}
		return name
	})

	_ = v.RegisterValidation("not_empty", validateNotEmpty)
	_ = v.RegisterValidation("role", enum(func(s string) bool { return authz.Role(s).IsValid() }))
	_ = v.RegisterValidation("account_status", enum(func(s string) bool { return authz.Status(s).IsValid() }))
	_ = v.RegisterValidation("task_status", enum(func(s string) bool { return task.TaskStatus(s).IsValid() }))
	_ = v.RegisterValidation("project_status", enum(func(s string) bool { return project.ProjectStatus(s).IsValid() }))
	_ = v.RegisterValidation("approval_status", enum(func(s string) bool { return timelog.ApprovalStatus(s).IsValid() }))
	_ = v.RegisterValidation("notification_type", enum(func(s string) bool { return notification.Type(s).IsValid() }))
	return v
}

// NewValidationMiddleware creates a new validation middleware
func NewValidationMiddleware() *ValidationMiddleware {
	return &ValidationMiddleware{
		validator: NewValidator(),
		log:       logger.NewLogger(),
	}
}

func newModel(model interface{}) interface{} {
	modelType := reflect.TypeOf(model)
	if modelType.Kind() == reflect.Ptr {
		modelType = modelType.Elem()
	}
	return reflect.New(modelType).Interface()
}

// ValidateRequest binds the JSON body into a fresh copy of model and validates it
func (m *ValidationMiddleware) ValidateRequest(model interface{}) gin.HandlerFunc {
	return func(c *gin.Context) {
		modelValue := newModel(model)

		if err := c.ShouldBindJSON(modelValue); err != nil {
			m.log.Warn("JSON binding failed",
				zap.Error(err),
				zap.String("path", c.Request.URL.Path))
			c.JSON(http.StatusBadRequest, gin.H{"error": "invalid JSON body"})
			c.Abort()
			return
		}

		if !m.validate(c, modelValue) {
			return
		}
		c.Set(validatedModelKey, modelValue)
		c.Next()
	}
}

// ValidateQuery validates query parameters against the provided struct
func (m *ValidationMiddleware) ValidateQuery(model interface{}) gin.HandlerFunc {
	return func(c *gin.Context) {
		modelValue := newModel(model)

		if err := c.ShouldBindQuery(modelValue); err != nil {
			m.log.Warn("Failed to bind query parameters",
				zap.Error(err),
				zap.String("path", c.Request.URL.Path))
			c.JSON(http.StatusBadRequest, gin.H{"error": "invalid query parameters"})
			c.Abort()
			return
		}

		if !m.validate(c, modelValue) {
			return
		}
		c.Set(validatedQueryKey, modelValue)
		c.Next()
	}
}

func (m *ValidationMiddleware) validate(c *gin.Context, modelValue interface{}) bool {
	err := m.validator.Struct(modelValue)
	if err == nil {
		return true
	}
	var fieldErrors validator.ValidationErrors
	if !errors.As(err, &fieldErrors) {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		c.Abort()
		return false
	}

	details := make(map[string]string, len(fieldErrors))
	for _, fe := range fieldErrors {
		details[fe.Field()] = formatValidationError(fe)
	}
	m.log.Info("Validation failed",
		zap.Any("errors", details),
		zap.String("path", c.Request.URL.Path))
	c.JSON(http.StatusBadRequest, gin.H{
		"error":   "validation failed",
		"details": details,
	})
	c.Abort()
	return false
}

// Validated returns the body bound by ValidateRequest
func Validated[T any](c *gin.Context) (*T, bool) {
	v, ok := c.Get(validatedModelKey)
	if !ok {
		return nil, false
	}
	model, ok := v.(*T)
	return model, ok
}

// ValidatedQuery returns the query bound by ValidateQuery
func ValidatedQuery[T any](c *gin.Context) (*T, bool) {
	v, ok := c.Get(validatedQueryKey)
	if !ok {
		return nil, false
	}
	model, ok := v.(*T)
	return model, ok
}

func validateNotEmpty(fl validator.FieldLevel) bool {
	return len(strings.TrimSpace(fl.Field().String())) > 0
}

// enum validates string fields and pointers to them; nil pointers pass
func enum(valid func(string) bool) validator.Func {
	return func(fl validator.FieldLevel) bool {
		field := fl.Field()
		if field.Kind() == reflect.Ptr {
			if field.IsNil() {
				return true
			}
			field = field.Elem()
		}
		if field.Kind() != reflect.String {
			return false
		}
		return valid(field.String())
	}
}

func formatValidationError(err validator.FieldError) string {
	switch err.Tag() {
	case "required":
		return "this field is required"
	case "email":
		return "invalid email format"
	case "min":
		return "value is too short"
	case "max":
		return "value is too long"
	case "not_empty":
		return "this field cannot be empty"
	case "oneof":
		return "must be one of: " + err.Param()
	case "role", "account_status", "task_status", "project_status", "approval_status", "notification_type":
		return "unknown " + strings.ReplaceAll(err.Tag(), "_", " ")
	default:
		return "invalid value"
	}
}
