package models

import (
	"errors"
	"fmt"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
)

func TestErrorClassification(t *testing.T) {
	validation := fmt.Errorf("create order: %w", NewValidationError("table_number", "is required for %s orders", DineIn))
	assert.True(t, IsValidation(validation))
	assert.Equal(t, "create order: table_number: is required for dine-in orders", validation.Error())

	mismatch := &AmountMismatchError{Expected: decimal.RequireFromString("44"), Tendered: decimal.RequireFromString("30")}
	assert.True(t, IsAmountMismatch(mismatch))
	assert.Equal(t, "payment amount 30.00 does not match order total 44.00", mismatch.Error())

	transition := ValidateTransition(StatusReady, StatusCancelled)
	assert.True(t, IsInvalidTransition(transition))
	assert.False(t, IsValidation(transition))

	cause := errors.New("connection refused")
	repoErr := &RepositoryError{Op: "create order", Err: cause}
	assert.ErrorIs(t, repoErr, cause)
	assert.True(t, repoErr.Retryable())
}
