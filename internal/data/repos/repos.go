package repos

import (
	"gorm.io/gorm"

	"github.com/yungbote/fynix-backend/internal/data/repos/learning"
	"github.com/yungbote/fynix-backend/internal/data/repos/user"
	"github.com/yungbote/fynix-backend/internal/platform/logger"
)

type ProfileRepo = user.ProfileRepo
type SavedFactRepo = user.SavedFactRepo

type QuizResultRepo = learning.QuizResultRepo

type Repos struct {
	Profile    ProfileRepo
	SavedFact  SavedFactRepo
	QuizResult QuizResultRepo
}

func New(db *gorm.DB, log *logger.Logger) Repos {
	return Repos{
		Profile:    user.NewProfileRepo(db, log),
		SavedFact:  user.NewSavedFactRepo(db, log),
		QuizResult: learning.NewQuizResultRepo(db, log),
	}
}
