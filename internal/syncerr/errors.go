// Package syncerr содержит типы ошибок синхронизации. Ошибки оборачиваются
// github.com/pkg/errors и извлекаются через errors.As.
package syncerr

import (
	"fmt"
	"net/http"

	"github.com/pkg/errors"
)

// AuthError ошибка авторизации в PIM или витрине. Прерывает запуск синхронизации.
type AuthError struct {
	System  string
	Message string
}

func (e *AuthError) Error() string {
	return fmt.Sprintf("%s authentication failed: %s", e.System, e.Message)
}

// HttpError ответ с кодом 4xx/5xx.
type HttpError struct {
	Method     string
	URL        string
	StatusCode int
	Body       string
}

func (e *HttpError) Error() string {
	body := e.Body
	if len(body) > 200 {
		body = body[:200] + "..."
	}
	return fmt.Sprintf("API error: %s %s: HTTP %d - %s", e.Method, e.URL, e.StatusCode, body)
}

// Retryable 5xx можно повторить, 4xx нет.
func (e *HttpError) Retryable() bool {
	return e.StatusCode >= http.StatusInternalServerError
}

// DecodeError ответ не является корректным JSON.
type DecodeError struct {
	URL  string
	Body string
	Err  error
}

func (e *DecodeError) Error() string {
	body := e.Body
	if len(body) > 200 {
		body = body[:200]
	}
	return fmt.Sprintf("JSON decode error: %v - Response: %s", e.Err, body)
}

func (e *DecodeError) Unwrap() error {
	return e.Err
}

// ValidationError в собранных данных не хватает обязательного поля.
type ValidationError struct {
	Field   string
	Message string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("validation failed: %s: %s", e.Field, e.Message)
}

// MappingStoreError не удалось сохранить соответствие идентификаторов.
type MappingStoreError struct {
	Kind  string
	PimID string
	Err   error
}

func (e *MappingStoreError) Error() string {
	return fmt.Sprintf("failed to save %s mapping for pim_id=%s: %v", e.Kind, e.PimID, e.Err)
}

func (e *MappingStoreError) Unwrap() error {
	return e.Err
}

func IsAuth(err error) bool {
	var authErr *AuthError
	return errors.As(err, &authErr)
}

func IsValidation(err error) bool {
	var validationErr *ValidationError
	return errors.As(err, &validationErr)
}

func IsDecode(err error) bool {
	var decodeErr *DecodeError
	return errors.As(err, &decodeErr)
}

// StatusCode код ответа из HttpError, 0 если это не HttpError.
func StatusCode(err error) int {
	var httpErr *HttpError
	if errors.As(err, &httpErr) {
		return httpErr.StatusCode
	}
	return 0
}

// IsRetryable ошибка сети или 5xx.
func IsRetryable(err error) bool {
	if err == nil {
		return false
	}
	var httpErr *HttpError
	if errors.As(err, &httpErr) {
		return httpErr.Retryable()
	}
	return !IsAuth(err) && !IsDecode(err) && !IsValidation(err)
}
