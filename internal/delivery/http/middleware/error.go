package middleware

import (
	"errors"
	"log"

	"remote-jobs/internal/pkg/response"

	"github.com/gofiber/fiber/v3"
)

// AppError carries the status and public message of a failed request. Cause
// is logged, never returned to the client.
type AppError struct {
	StatusCode int
	Message    string
	Data       any
	Cause      error
}

func (e *AppError) Error() string {
	if e == nil {
		return ""
	}
	if e.Cause != nil {
		return e.Message + ": " + e.Cause.Error()
	}
	return e.Message
}

func (e *AppError) Unwrap() error {
	if e == nil {
		return nil
	}
	return e.Cause
}

func NewAppError(statusCode int, message string, data any, cause error) *AppError {
	return &AppError{StatusCode: statusCode, Message: message, Data: data, Cause: cause}
}

type ErrorMiddleware struct {
	log *log.Logger
}

func NewErrorMiddleware(logger *log.Logger) *ErrorMiddleware {
	if logger == nil {
		logger = log.Default()
	}
	return &ErrorMiddleware{log: logger}
}

func (m *ErrorMiddleware) Middleware() fiber.Handler {
	return func(c fiber.Ctx) (err error) {
		defer func() {
			if r := recover(); r != nil {
				m.log.Printf("http=panic rid=%v method=%s path=%s recovered=%v", c.Locals(CtxRequestIDKey), c.Method(), c.Path(), r)
				err = response.Error(c, fiber.StatusInternalServerError, "", nil)
			}
		}()

		if err = c.Next(); err == nil {
			return nil
		}

		status, msg, data := toResponse(err)
		if status >= 500 {
			m.log.Printf("http=error rid=%v method=%s path=%s status=%d err=%v", c.Locals(CtxRequestIDKey), c.Method(), c.Path(), status, err)
		}
		return response.Error(c, status, msg, data)
	}
}

// toResponse hides internal details: any 5xx other than 503 becomes a bare
// 500, and fiber's own errors (404 routes, 405) keep their code.
func toResponse(err error) (int, string, any) {
	var appErr *AppError
	if errors.As(err, &appErr) {
		status := appErr.StatusCode
		switch {
		case status <= 0:
			return fiber.StatusInternalServerError, "", nil
		case status == fiber.StatusServiceUnavailable:
			return status, appErr.Message, nil
		case status >= 500:
			return fiber.StatusInternalServerError, "", nil
		}
		return status, appErr.Message, appErr.Data
	}

	var fiberErr *fiber.Error
	if errors.As(err, &fiberErr) {
		status := fiberErr.Code
		if status <= 0 || (status >= 500 && status != fiber.StatusServiceUnavailable) {
			return fiber.StatusInternalServerError, "", nil
		}
		return status, fiberErr.Message, nil
	}

	return fiber.StatusInternalServerError, "", nil
}
