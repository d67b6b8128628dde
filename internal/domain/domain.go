package domain

import (
	"github.com/yungbote/fynix-backend/internal/domain/feed"
	"github.com/yungbote/fynix-backend/internal/domain/learning"
	"github.com/yungbote/fynix-backend/internal/domain/user"
)

type (
	ContentItem       = feed.ContentItem
	QuizSpec          = feed.QuizSpec
	QuizKind          = feed.QuizKind
	ContentSource     = feed.ContentSource
	MaterialQuizItem  = feed.MaterialQuizItem
	GenerationRequest = feed.GenerationRequest
	Persona           = feed.Persona

	Profile   = user.Profile
	SavedFact = user.SavedFact

	QuizResult = learning.QuizResult
)

const (
	QuizMultipleChoice = feed.QuizMultipleChoice
	QuizTrueFalse      = feed.QuizTrueFalse

	SourceAI       = feed.SourceAI
	SourceFallback = feed.SourceFallback
)

var ErrInvalidItem = feed.ErrInvalidItem

// Models lists every persisted row type, in migration order.
func Models() []any {
	return []any{
		&user.Profile{},
		&user.SavedFact{},
		&learning.QuizResult{},
	}
}
