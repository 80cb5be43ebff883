package app

import (
	"errors"
	"fmt"
	"strings"

	"panic-list/internal/core"

	"github.com/go-playground/validator/v10"
)

var validate = validator.New(validator.WithRequiredStructEnabled())

// CustomerListRequest is the raw input for a customer dashboard page.
type CustomerListRequest struct {
	Search        string `json:"search" validate:"max=200"`
	Status        string `json:"status" validate:"omitempty,max=32,printascii"`
	PaymentStatus string `json:"paymentStatus" validate:"omitempty,max=32,printascii"`
	Page          int    `json:"page" validate:"gte=0"`
	PageSize      int    `json:"pageSize" validate:"gte=0,lte=100"`
}

// Query validates r and converts it to a normalized core.CustomerQuery.
func (r CustomerListRequest) Query() (core.CustomerQuery, error) {
	if err := validateStruct(r); err != nil {
		return core.CustomerQuery{}, err
	}
	q := core.CustomerQuery{
		Search:        r.Search,
		Status:        r.Status,
		PaymentStatus: r.PaymentStatus,
		Page:          r.Page,
		PageSize:      r.PageSize,
	}
	q.Normalize()
	return q, nil
}

// StartSessionRequest is the input for signing in with a backend token.
type StartSessionRequest struct {
	Token string `json:"token" validate:"required,max=8192"`
}

// Validate checks the request.
func (r StartSessionRequest) Validate() error {
	return validateStruct(r)
}

// validateStruct runs the struct tags and joins field errors into one
// ErrInvalidRequest.
func validateStruct(v any) error {
	err := validate.Struct(v)
	if err == nil {
		return nil
	}
	var fieldErrs validator.ValidationErrors
	if !errors.As(err, &fieldErrs) {
		return fmt.Errorf("%w: %v", ErrInvalidRequest, err)
	}
	msgs := make([]string, 0, len(fieldErrs))
	for _, fe := range fieldErrs {
		if fe.Param() != "" {
			msgs = append(msgs, fmt.Sprintf("%s must satisfy %s=%s", fe.Field(), fe.Tag(), fe.Param()))
		} else {
			msgs = append(msgs, fmt.Sprintf("%s must satisfy %s", fe.Field(), fe.Tag()))
		}
	}
	return fmt.Errorf("%w: %s", ErrInvalidRequest, strings.Join(msgs, "; "))
}
