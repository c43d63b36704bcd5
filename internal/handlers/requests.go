package handlers

import (
	"github.com/go-playground/validator/v10"
	"github.com/nfrund/parley/internal/domain"
)

// CustomValidator wraps the go-playground/validator library to implement Echo's Validator interface.
type CustomValidator struct {
	validator *validator.Validate
}

// NewValidator creates a new CustomValidator sharing the domain's rules.
func NewValidator() *CustomValidator {
	return &CustomValidator{validator: domain.Validator()}
}

// Validate implements the echo.Validator interface.
func (cv *CustomValidator) Validate(i interface{}) error {
	return cv.validator.Struct(i)
}

// CreateRoomRequest is the body of POST /api/rooms.
type CreateRoomRequest struct {
	OtherUserID string `json:"other_user_id" validate:"required,max=64"`
}

// SendMessageRequest is the body of POST /api/rooms/:id/messages.
type SendMessageRequest struct {
	Message string `json:"message" validate:"required"`
}

// LoginRequest is the body of the development login.
type LoginRequest struct {
	UserID string `json:"user_id" form:"user_id" validate:"required,max=64"`
}

// HistoryQuery holds the paging parameters of a history request.
type HistoryQuery struct {
	Limit  int    `query:"limit" validate:"gte=0"`
	Before string `query:"before"`
}
