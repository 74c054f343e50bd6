package dto

// BaseError универсальный корневой формат ошибки
// Code: машинно-ориентированный код (snake_case)
// Message: краткое человеко-читаемое описание
// Details: дополнительная строка (пояснение)
// Fields: для валидационных ошибок (имя поля + текст)
type BaseError struct {
	Code    string       `json:"code"`
	Message string       `json:"message"`
	Details string       `json:"details,omitempty"`
	Fields  []FieldError `json:"fields,omitempty"`
}

type FieldError struct {
	Field   string `json:"field"`
	Message string `json:"message"`
	Tag     string `json:"tag,omitempty"`
}

// ValidationErrorResponse 400
// Code: "validation_error"
type ValidationErrorResponse BaseError

// NotFoundErrorResponse 404
// Code: "not_found"
type NotFoundErrorResponse BaseError

// ConflictErrorResponse 409
// Code: "conflict"
type ConflictErrorResponse BaseError

// InsufficientInventoryResponse 409: не хватает остатка, повторять вслепую нельзя
// Code: "insufficient_inventory"
type InsufficientInventoryResponse struct {
	BaseError
	ItemID    string `json:"item_id"`
	Requested int64  `json:"requested"`
	Available int32  `json:"available"`
}

// CommitFailedResponse 503: транзакция откатилась, запрос можно повторить с тем же ключом
// Code: "commit_failed"
type CommitFailedResponse struct {
	BaseError
	Retryable bool `json:"retryable"`
}

// InternalErrorResponse 500
// Code: "internal_error"
type InternalErrorResponse BaseError

func NewValidationError(msg string, fields []FieldError) ValidationErrorResponse {
	return ValidationErrorResponse(BaseError{Code: "validation_error", Message: msg, Fields: fields})
}
func NewNotFoundError(msg string) NotFoundErrorResponse {
	return NotFoundErrorResponse(BaseError{Code: "not_found", Message: msg})
}
func NewConflictError(msg string) ConflictErrorResponse {
	return ConflictErrorResponse(BaseError{Code: "conflict", Message: msg})
}
func NewInsufficientInventoryError(itemID string, requested int64, available int32) InsufficientInventoryResponse {
	return InsufficientInventoryResponse{
		BaseError: BaseError{Code: "insufficient_inventory", Message: "not enough stock for item"},
		ItemID:    itemID,
		Requested: requested,
		Available: available,
	}
}
func NewCommitFailedError(details string) CommitFailedResponse {
	return CommitFailedResponse{
		BaseError: BaseError{Code: "commit_failed", Message: "order could not be committed, retry later", Details: details},
		Retryable: true,
	}
}
func NewInternalError(details string) InternalErrorResponse {
	return InternalErrorResponse(BaseError{Code: "internal_error", Message: "internal server error", Details: details})
}
