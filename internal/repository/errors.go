package repository

import "errors"

var (
	// ErrConflict нарушен уникальный индекс
	ErrConflict = errors.New("repository: unique constraint violated")

	// ErrOverlap слот пересекается с другим слотом того же владельца
	ErrOverlap = errors.New("repository: slot overlaps existing slot")
)
