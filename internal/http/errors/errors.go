// Package errors define la taxonomía de errores HTTP del broker.
// Los códigos son contratos de máquina consumidos por los workflows de n8n:
// distinguen "no vinculado" (primera autorización) de "token inválido"
// (re-autorización) para que el caller sepa qué flujo iniciar.
package errors

import (
	"encoding/json"
	"fmt"
	"net/http"
)

// AppError es la estructura estándar para errores de la aplicación.
type AppError struct {
	Code       string `json:"error"`
	Message    string `json:"message,omitempty"`
	AuthURL    string `json:"authUrl,omitempty"`
	HTTPStatus int    `json:"-"`
	Err        error  `json:"-"` // causa original, para logs; no se expone al cliente
}

// Error implementa la interfaz error.
func (e *AppError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("[%s] %s: %v", e.Code, e.Message, e.Err)
	}
	return fmt.Sprintf("[%s] %s", e.Code, e.Message)
}

// Unwrap permite acceder al error original.
func (e *AppError) Unwrap() error {
	return e.Err
}

// WithAuthURL agrega la URL para (re)iniciar el flujo de autorización.
// Devuelve una COPIA para no mutar las variables globales base.
func (e *AppError) WithAuthURL(u string) *AppError {
	newErr := *e
	newErr.AuthURL = u
	return &newErr
}

// WithMessage reemplaza el mensaje. Devuelve una COPIA.
func (e *AppError) WithMessage(msg string) *AppError {
	newErr := *e
	newErr.Message = msg
	return &newErr
}

// WithCause agrega el error original (causa). Devuelve una COPIA.
func (e *AppError) WithCause(err error) *AppError {
	newErr := *e
	newErr.Err = err
	return &newErr
}

// FromError intenta convertir un error genérico en un AppError.
// Si no lo es, devuelve internal_error conservando la causa: nunca se filtra
// un stack trace al body de la respuesta.
func FromError(err error) *AppError {
	if appErr, ok := err.(*AppError); ok {
		return appErr
	}
	return ErrInternal.WithCause(err)
}

// WriteError escribe la respuesta HTTP para el error dado.
func WriteError(w http.ResponseWriter, err error) {
	appErr := FromError(err)
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(appErr.HTTPStatus)
	_ = json.NewEncoder(w).Encode(appErr)
}

// =================================================================================
// LISTA DE ERRORES PREDEFINIDOS
// =================================================================================

var (
	// 400
	ErrBadRequest = &AppError{
		Code:       "bad_request",
		Message:    "The request is missing required parameters.",
		HTTPStatus: http.StatusBadRequest,
	}
	ErrRefreshFailed = &AppError{
		Code:       "refresh_failed",
		Message:    "The provider rejected the token refresh.",
		HTTPStatus: http.StatusBadRequest,
	}

	// 401
	ErrUnauthorized = &AppError{
		Code:       "unauthorized",
		Message:    "Authentication required.",
		HTTPStatus: http.StatusUnauthorized,
	}
	ErrInvalidCredentials = &AppError{
		Code:       "invalid_credentials",
		Message:    "Invalid username or password.",
		HTTPStatus: http.StatusUnauthorized,
	}

	// 403 — "not linked" vs "invalid token" son códigos distintos a propósito
	ErrNoGoogleToken = &AppError{
		Code:       "no_google_token",
		Message:    "Customer has no Google account linked.",
		HTTPStatus: http.StatusForbidden,
	}
	ErrInvalidGoogleToken = &AppError{
		Code:       "invalid_google_token",
		Message:    "The stored Google token is invalid or expired.",
		HTTPStatus: http.StatusForbidden,
	}
	ErrQuickBooksNotConnected = &AppError{
		Code:       "quickbooks_not_connected",
		Message:    "Customer has no QuickBooks company linked.",
		HTTPStatus: http.StatusForbidden,
	}
	ErrInvalidQuickBooksToken = &AppError{
		Code:       "invalid_quickbooks_token",
		Message:    "The stored QuickBooks token is invalid.",
		HTTPStatus: http.StatusForbidden,
	}

	// 404
	ErrCustomerNotFound = &AppError{
		Code:       "customer_not_found",
		Message:    "No customer with that id.",
		HTTPStatus: http.StatusNotFound,
	}

	// 500
	ErrTokenSaveFailed = &AppError{
		Code:       "token_save_failed",
		Message:    "Tokens were obtained from the provider but could not be persisted.",
		HTTPStatus: http.StatusInternalServerError,
	}
	ErrInternal = &AppError{
		Code:       "internal_error",
		Message:    "Internal error.",
		HTTPStatus: http.StatusInternalServerError,
	}
)
