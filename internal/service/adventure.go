package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"

	"finkid-backend/internal/aiclient"
	"finkid-backend/internal/apperr"
	"finkid-backend/internal/model"
	"finkid-backend/internal/pkg/db"
	"finkid-backend/internal/repository"
)

// goalContextLimit caps how many open goals feed the generation prompt.
const goalContextLimit = 3

// AdventureService orchestrates the two-phase AI adventure: generation
// creates an unsubmitted record, submission evaluates the choice and
// performs the one-shot transition to the evaluated state.
type AdventureService struct {
	pool          *db.Pool
	adventureRepo *repository.AdventureRepository
	profileRepo   *repository.ProfileRepository
	goalRepo      *repository.GoalRepository
	ai            *aiclient.Client
	now           func() time.Time
}

// NewAdventureService creates a new AdventureService instance.
func NewAdventureService(
	pool *db.Pool,
	adventureRepo *repository.AdventureRepository,
	profileRepo *repository.ProfileRepository,
	goalRepo *repository.GoalRepository,
	ai *aiclient.Client,
) *AdventureService {
	return &AdventureService{
		pool:          pool,
		adventureRepo: adventureRepo,
		profileRepo:   profileRepo,
		goalRepo:      goalRepo,
		ai:            ai,
		now:           time.Now,
	}
}

// Generate asks the AI subsystem for a fresh scenario grounded in the
// player's age, allowance, and open goals, and persists it unsubmitted.
// Each call produces a new adventure.
func (s *AdventureService) Generate(ctx context.Context, userID uuid.UUID, extraContext string) (*model.Adventure, error) {
	profile, err := s.profileRepo.GetByUserID(ctx, userID)
	if err != nil {
		if errors.Is(err, repository.ErrProfileNotFound) {
			return nil, apperr.New(apperr.KindNotFound, "Profile not found")
		}
		return nil, err
	}

	goals, err := s.goalRepo.ListRecentIncomplete(ctx, userID, goalContextLimit)
	if err != nil {
		return nil, err
	}

	allowance, _ := profile.Allowance.Float64()
	resp, err := s.ai.GenerateAdventure(ctx, &aiclient.GenerateRequest{
		UserAge:     profile.Age,
		Allowance:   allowance,
		GoalContext: buildGoalContext(goals, extraContext),
	})
	if err != nil {
		return nil, mapAIError(err, "generate adventure")
	}
	if resp.Scenario == "" || len(resp.Choices) < 2 {
		return nil, apperr.Newf(apperr.KindInternal, "AI returned a malformed scenario")
	}

	adventure, err := s.adventureRepo.Create(ctx, userID, resp.Scenario, resp.Choices, resp.OpikTraceID)
	if err != nil {
		return nil, err
	}

	log.Info().
		Str("user_id", userID.String()).
		Str("adventure_id", adventure.ID.String()).
		Str("trace_id", resp.OpikTraceID).
		Msg("Adventure generated")
	return adventure, nil
}

// SubmitChoice evaluates the player's choice and writes the entire
// evaluation in one guarded statement. Re-submission, concurrent or
// sequential, surfaces AlreadySubmitted. If the write fails after a
// successful AI call the adventure stays unsubmitted and the player may
// retry.
func (s *AdventureService) SubmitChoice(ctx context.Context, userID, adventureID uuid.UUID, choiceIndex int) (*model.Adventure, error) {
	adventure, err := s.adventureRepo.GetByID(ctx, adventureID, userID)
	if err != nil {
		if errors.Is(err, repository.ErrAdventureNotFound) {
			return nil, apperr.New(apperr.KindNotFound, "Adventure not found")
		}
		return nil, err
	}
	if adventure.SelectedChoiceIndex != nil {
		return nil, apperr.New(apperr.KindAlreadySubmitted, "Choice already submitted")
	}
	if choiceIndex < 0 || choiceIndex >= len(adventure.Choices) {
		return nil, apperr.Newf(apperr.KindInvalidChoice, "Choice index must be between 0 and %d", len(adventure.Choices)-1)
	}

	profile, err := s.profileRepo.GetByUserID(ctx, userID)
	if err != nil {
		if errors.Is(err, repository.ErrProfileNotFound) {
			return nil, apperr.New(apperr.KindNotFound, "Profile not found")
		}
		return nil, err
	}

	resp, err := s.ai.EvaluateChoice(ctx, &aiclient.EvaluateRequest{
		Scenario:    adventure.Scenario,
		ChoiceIndex: choiceIndex,
		ChoiceText:  adventure.Choices[choiceIndex],
		UserAge:     profile.Age,
	})
	if err != nil {
		return nil, mapAIError(err, "evaluate choice")
	}
	if err := validateScores(resp.Scores); err != nil {
		return nil, err
	}

	updated, ok, err := s.adventureRepo.SubmitEvaluation(ctx, adventure.ID, userID,
		choiceIndex, resp.Feedback, resp.Scores, resp.OpikTraceID, s.now().UTC())
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, apperr.New(apperr.KindAlreadySubmitted, "Choice already submitted")
	}

	log.Info().
		Str("user_id", userID.String()).
		Str("adventure_id", adventure.ID.String()).
		Int("choice_index", choiceIndex).
		Str("trace_id", resp.OpikTraceID).
		Msg("Adventure choice evaluated")
	return updated, nil
}

// Get returns one adventure scoped to its owner.
func (s *AdventureService) Get(ctx context.Context, userID, adventureID uuid.UUID) (*model.Adventure, error) {
	adventure, err := s.adventureRepo.GetByID(ctx, adventureID, userID)
	if err != nil {
		if errors.Is(err, repository.ErrAdventureNotFound) {
			return nil, apperr.New(apperr.KindNotFound, "Adventure not found")
		}
		return nil, err
	}
	return adventure, nil
}

// History returns the user's adventures, newest first.
func (s *AdventureService) History(ctx context.Context, userID uuid.UUID, limit int) ([]*model.Adventure, error) {
	return s.adventureRepo.ListByUser(ctx, userID, normalizeLimit(limit, 10, 50))
}

// buildGoalContext concatenates open goal summaries with any
// caller-supplied context.
func buildGoalContext(goals []*model.Goal, extra string) string {
	parts := make([]string, 0, len(goals)+1)
	for _, g := range goals {
		parts = append(parts, fmt.Sprintf("%s (%s/%s)",
			g.Title, g.CurrentAmount.StringFixed(2), g.TargetAmount.StringFixed(2)))
	}
	if extra != "" {
		parts = append(parts, extra)
	}
	return strings.Join(parts, "; ")
}

// validateScores requires a non-empty map of named floats in [0,1]. The
// key set is free-form.
func validateScores(scores map[string]float64) error {
	if len(scores) == 0 {
		return apperr.New(apperr.KindInternal, "AI returned no scores")
	}
	for name, v := range scores {
		if v < 0 || v > 1 {
			return apperr.Newf(apperr.KindInternal, "AI returned out-of-range score %q", name)
		}
	}
	return nil
}

// mapAIError converts client failures into the domain taxonomy.
// Exhausted retries and caller deadline expiry surface as
// ServiceUnavailable; a non-retryable upstream rejection keeps its
// message.
func mapAIError(err error, op string) error {
	if errors.Is(err, aiclient.ErrUnavailable) ||
		errors.Is(err, context.DeadlineExceeded) ||
		errors.Is(err, context.Canceled) {
		return apperr.Wrap(apperr.KindServiceUnavailable, "AI service is unavailable, try again later", err)
	}
	var apiErr *aiclient.APIError
	if errors.As(err, &apiErr) {
		return apperr.Wrap(apperr.KindInternal, fmt.Sprintf("AI service rejected %s: %s", op, apiErr.Message), err)
	}
	return apperr.Wrap(apperr.KindInternal, fmt.Sprintf("Failed to %s", op), err)
}
