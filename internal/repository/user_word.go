package repository

import (
	"context"

	"github.com/eslsoft/srsd/internal/entity"
)

// UserWordRepository abstracts persistence for the user<->word relation.
type UserWordRepository interface {
	GetByID(ctx context.Context, userID, id int64) (*entity.UserWord, error)
	FindByWord(ctx context.Context, userID, wordID int64) (*entity.UserWord, error)
	Create(ctx context.Context, userWord *entity.UserWord) (*entity.UserWord, error)
	UpdateStatus(ctx context.Context, id int64, status entity.WordStatus) error
}
