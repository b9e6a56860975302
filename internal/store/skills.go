package store

import (
	"context"
	"errors"
	"log/slog"

	"github.com/tsundokudragon/dragon-server/internal/domain"
	domainerrors "github.com/tsundokudragon/dragon-server/internal/errors"
	"github.com/tsundokudragon/dragon-server/internal/progression"
)

// expField is the attribute AddSkillExp increments.
const expField = "exp"

// ErrSkillNotFound is returned when a user has no experience in a skill yet.
var ErrSkillNotFound = domainerrors.NotFound("skill experience not found")

// AddSkillExp adds delta experience to a user's skill, creating the record
// at zero when absent. The new level and timestamp are written in the same
// atomic step as the increment, so a reader never sees exp and level disagree.
func (s *Store) AddSkillExp(ctx context.Context, userID, name string, delta int64) (domain.SkillGain, error) {
	out, err := s.table.AtomicAdd(ctx, AddInput{
		Key:   Key{PK: UserPK(userID), SK: SkillSK(name)},
		Field: expField,
		Delta: delta,
		Derive: func(exp int64) map[string]any {
			return map[string]any{
				"name":      name,
				"level":     progression.LevelFromExp(exp),
				"updatedAt": domain.Now(),
			}
		},
	})
	if err != nil {
		return domain.SkillGain{}, wrapStorage(err, "add skill exp")
	}

	gain := domain.SkillGain{
		Name:          name,
		PreviousExp:   out.Previous,
		Exp:           out.Value,
		PreviousLevel: progression.LevelFromExp(out.Previous),
		Level:         progression.LevelFromExp(out.Value),
	}

	if s.logger != nil && gain.LeveledUp() {
		s.logger.LogAttrs(ctx, slog.LevelInfo, "skill leveled up",
			slog.String("user_id", userID),
			slog.String("skill", name),
			slog.Int("previous_level", gain.PreviousLevel),
			slog.Int("level", gain.Level),
		)
	}
	return gain, nil
}

// GetSkillExp returns a user's experience record for one skill.
func (s *Store) GetSkillExp(ctx context.Context, userID, name string) (*domain.SkillExperience, error) {
	skill, err := s.Skills.Get(ctx, Key{PK: UserPK(userID), SK: SkillSK(name)})
	if err != nil {
		if errors.Is(err, ErrItemNotFound) {
			return nil, ErrSkillNotFound
		}
		return nil, wrapStorage(err, "get skill exp")
	}
	return skill, nil
}

// ListSkillExps returns every skill experience record of a user in name order.
func (s *Store) ListSkillExps(ctx context.Context, userID string) ([]*domain.SkillExperience, error) {
	skills, err := s.Skills.All(ctx, UserPK(userID), SkillPrefix)
	if err != nil {
		return nil, wrapStorage(err, "list skill exps")
	}
	return skills, nil
}
