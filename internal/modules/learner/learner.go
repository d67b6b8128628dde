// Package learner adapts the persisted profile, bookmarks and quiz results
// to what the feed and quiz services consume.
package learner

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"gorm.io/datatypes"

	"github.com/yungbote/fynix-backend/internal/data/repos"
	types "github.com/yungbote/fynix-backend/internal/domain"
	"github.com/yungbote/fynix-backend/internal/domain/feed"
	"github.com/yungbote/fynix-backend/internal/platform/apierr"
	"github.com/yungbote/fynix-backend/internal/platform/logger"
)

// ProfileInput is the editable part of a profile.
type ProfileInput struct {
	Name       string   `json:"name"`
	Grade      string   `json:"grade"`
	Interests  []string `json:"interests"`
	RoastLevel *int     `json:"roast_level"`
	Language   string   `json:"language"`
}

type ProfileView struct {
	UserID     uuid.UUID `json:"user_id"`
	Name       string    `json:"name"`
	Grade      string    `json:"grade"`
	Interests  []string  `json:"interests"`
	RoastLevel int       `json:"roast_level"`
	Language   string    `json:"language"`
	XP         int       `json:"xp"`
}

type Service interface {
	Profile(ctx context.Context, userID uuid.UUID) (ProfileView, error)
	UpdateProfile(ctx context.Context, userID uuid.UUID, in ProfileInput) (ProfileView, error)
	Persona(ctx context.Context, userID uuid.UUID) (feed.Persona, error)
	Request(ctx context.Context, userID uuid.UUID) (feed.GenerationRequest, error)
	AddXP(ctx context.Context, userID uuid.UUID, n int) error
	RemoveXP(ctx context.Context, userID uuid.UUID, n int) error
	Save(ctx context.Context, userID uuid.UUID, item feed.ContentItem) (bool, error)
	SavedFacts(ctx context.Context, userID uuid.UUID) ([]*types.SavedFact, error)
	Record(ctx context.Context, r *types.QuizResult) error
	Results(ctx context.Context, userID uuid.UUID, limit int) ([]*types.QuizResult, error)
}

type service struct {
	log   *logger.Logger
	repos repos.Repos
}

func NewService(log *logger.Logger, r repos.Repos) (Service, error) {
	if log == nil {
		return nil, fmt.Errorf("logger required")
	}
	if r.Profile == nil || r.SavedFact == nil || r.QuizResult == nil {
		return nil, fmt.Errorf("repos required")
	}
	return &service{log: log.With("service", "LearnerService"), repos: r}, nil
}

func (s *service) Profile(ctx context.Context, userID uuid.UUID) (ProfileView, error) {
	p, err := s.repos.Profile.GetByUserID(ctx, nil, userID)
	if err != nil {
		return ProfileView{}, err
	}
	return view(userID, p), nil
}

func (s *service) UpdateProfile(ctx context.Context, userID uuid.UUID, in ProfileInput) (ProfileView, error) {
	cur, err := s.repos.Profile.GetByUserID(ctx, nil, userID)
	if err != nil {
		return ProfileView{}, err
	}
	next := types.Profile{UserID: userID, RoastLevel: feed.DefaultRoastLevel}
	if cur != nil {
		next = *cur
	}
	if v := strings.TrimSpace(in.Name); v != "" {
		next.Name = v
	}
	if v := strings.TrimSpace(in.Grade); v != "" {
		next.Grade = v
	}
	if v := strings.TrimSpace(in.Language); v != "" {
		next.Language = v
	}
	if in.RoastLevel != nil {
		lvl := *in.RoastLevel
		if lvl < feed.MinRoastLevel || lvl > feed.MaxRoastLevel {
			return ProfileView{}, apierr.BadRequest("invalid_roast_level", fmt.Errorf("roast level %d outside %d-%d", lvl, feed.MinRoastLevel, feed.MaxRoastLevel))
		}
		next.RoastLevel = lvl
	}
	if in.Interests != nil {
		clean := make([]string, 0, len(in.Interests))
		for _, it := range in.Interests {
			if it = strings.TrimSpace(it); it != "" {
				clean = append(clean, it)
			}
		}
		raw, err := json.Marshal(clean)
		if err != nil {
			return ProfileView{}, err
		}
		next.Interests = datatypes.JSON(raw)
	}
	if err := s.repos.Profile.Upsert(ctx, nil, &next); err != nil {
		return ProfileView{}, err
	}
	return view(userID, &next), nil
}

// Persona falls back to defaults for users without a profile.
func (s *service) Persona(ctx context.Context, userID uuid.UUID) (feed.Persona, error) {
	p, err := s.repos.Profile.GetByUserID(ctx, nil, userID)
	if err != nil {
		return feed.Persona{}.WithDefaults(), err
	}
	if p == nil {
		return feed.Persona{RoastLevel: feed.DefaultRoastLevel}.WithDefaults(), nil
	}
	return feed.Persona{Name: p.Name, RoastLevel: p.RoastLevel, Language: p.Language}.WithDefaults(), nil
}

func (s *service) Request(ctx context.Context, userID uuid.UUID) (feed.GenerationRequest, error) {
	p, err := s.repos.Profile.GetByUserID(ctx, nil, userID)
	if err != nil || p == nil {
		return feed.GenerationRequest{}.WithDefaults(), err
	}
	return feed.GenerationRequest{
		Grade:     p.Grade,
		Interests: strings.Join(interests(p.Interests), ", "),
		Language:  p.Language,
	}.WithDefaults(), nil
}

func (s *service) AddXP(ctx context.Context, userID uuid.UUID, n int) error {
	if n < 0 {
		n = -n
	}
	_, err := s.repos.Profile.AddXP(ctx, nil, userID, n)
	return err
}

func (s *service) RemoveXP(ctx context.Context, userID uuid.UUID, n int) error {
	if n < 0 {
		n = -n
	}
	_, err := s.repos.Profile.AddXP(ctx, nil, userID, -n)
	return err
}

func (s *service) Save(ctx context.Context, userID uuid.UUID, item feed.ContentItem) (bool, error) {
	return s.repos.SavedFact.Create(ctx, nil, &types.SavedFact{
		UserID:   userID,
		Title:    feed.TitleKey(item.Title),
		Category: item.Category,
		Content:  item.Content,
	})
}

func (s *service) SavedFacts(ctx context.Context, userID uuid.UUID) ([]*types.SavedFact, error) {
	return s.repos.SavedFact.ListByUserID(ctx, nil, userID)
}

func (s *service) Record(ctx context.Context, r *types.QuizResult) error {
	if r == nil {
		return nil
	}
	_, err := s.repos.QuizResult.Create(ctx, nil, []*types.QuizResult{r})
	return err
}

func (s *service) Results(ctx context.Context, userID uuid.UUID, limit int) ([]*types.QuizResult, error) {
	return s.repos.QuizResult.ListByUserID(ctx, nil, userID, limit)
}

func view(userID uuid.UUID, p *types.Profile) ProfileView {
	if p == nil {
		def := feed.GenerationRequest{}.WithDefaults()
		return ProfileView{
			UserID:     userID,
			Grade:      def.Grade,
			Interests:  strings.Split(def.Interests, ", "),
			RoastLevel: feed.DefaultRoastLevel,
			Language:   def.Language,
		}
	}
	return ProfileView{
		UserID:     p.UserID,
		Name:       p.Name,
		Grade:      p.Grade,
		Interests:  interests(p.Interests),
		RoastLevel: p.RoastLevel,
		Language:   p.Language,
		XP:         p.XP,
	}
}

func interests(raw datatypes.JSON) []string {
	out := []string{}
	if len(raw) == 0 {
		return out
	}
	_ = json.Unmarshal(raw, &out)
	return out
}
