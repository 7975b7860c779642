package entity

import "errors"

// Domain errors for cards, words and the grading path.
var (
	ErrCardNotFound       = errors.New("card not found")
	ErrWordNotFound       = errors.New("word not found")
	ErrUserWordNotFound   = errors.New("user word not found")
	ErrAccessDenied       = errors.New("card belongs to another user")
	ErrDailyLimitExceeded = errors.New("daily new card limit exceeded")
	ErrInvalidRating      = errors.New("invalid rating")
	ErrInvalidScope       = errors.New("invalid session scope")
	ErrDuplicateUserWord  = errors.New("user word already exists")
)
