package service

import (
	"errors"
	"fmt"
)

var (
	ErrOrderNotFound    = errors.New("order not found")
	ErrItemNotFound     = errors.New("menu item not found")
	ErrAlreadyCancelled = errors.New("order already cancelled")

	// ошибки валидации черновика заказа
	ErrEmptyItems        = errors.New("empty items")
	ErrQuantityInvalid   = errors.New("quantity must be > 0")
	ErrPriceInvalid      = errors.New("price must be >= 0")
	ErrSubtotalMismatch  = errors.New("line subtotal must equal price * quantity")
	ErrTotalsMismatch    = errors.New("order totals do not add up")
	ErrCustomerRequired  = errors.New("customer name is required")
	ErrUnknownItem       = errors.New("unknown menu item")
	ErrInvalidCartInput  = errors.New("invalid cart input")
	ErrIdempotencyKeyLen = errors.New("idempotency key too long")

	ErrInsufficientInventory = errors.New("insufficient inventory")
	ErrCommitFailure         = errors.New("order commit failed")
	// ключ занят, но результата ещё нет
	ErrIdempotencyInFlight = errors.New("request with this idempotency key is in progress")
)

var validationErrors = []error{
	ErrEmptyItems,
	ErrQuantityInvalid,
	ErrPriceInvalid,
	ErrSubtotalMismatch,
	ErrTotalsMismatch,
	ErrCustomerRequired,
	ErrUnknownItem,
	ErrInvalidCartInput,
	ErrIdempotencyKeyLen,
}

// IsValidation: ошибка входных данных, повтор без изменений не поможет.
func IsValidation(err error) bool {
	for _, v := range validationErrors {
		if errors.Is(err, v) {
			return true
		}
	}
	return false
}

// InsufficientInventoryError: позиция, на которой сорвалась проверка остатка.
type InsufficientInventoryError struct {
	ItemID    string
	Requested int64
	Available int32
}

func (e *InsufficientInventoryError) Error() string {
	return fmt.Sprintf("insufficient inventory for item %s: requested %d, available %d", e.ItemID, e.Requested, e.Available)
}

func (e *InsufficientInventoryError) Is(target error) bool { return target == ErrInsufficientInventory }

// CommitFailure: ошибка хранилища или таймаут. Транзакция откатана целиком, повтор безопасен.
type CommitFailure struct {
	Cause error
}

func (e *CommitFailure) Error() string {
	return fmt.Sprintf("order commit failed: %v", e.Cause)
}

func (e *CommitFailure) Unwrap() error { return e.Cause }

func (e *CommitFailure) Is(target error) bool { return target == ErrCommitFailure }
