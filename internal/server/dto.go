package server

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"finkid-backend/internal/model"
	"finkid-backend/internal/service"
)

// Monetary values marshal as plain JSON numbers.
func init() {
	decimal.MarshalJSONWithoutQuotes = true
}

type profileResponse struct {
	ID                  uuid.UUID       `json:"id"`
	UserID              uuid.UUID       `json:"userId"`
	Age                 int             `json:"age"`
	Allowance           decimal.Decimal `json:"allowance"`
	Currency            string          `json:"currency"`
	OnboardingCompleted bool            `json:"onboardingCompleted"`
	CreatedAt           time.Time       `json:"createdAt"`
	UpdatedAt           time.Time       `json:"updatedAt"`
}

func toProfileResponse(p *model.Profile) profileResponse {
	return profileResponse{
		ID:                  p.ID,
		UserID:              p.UserID,
		Age:                 p.Age,
		Allowance:           p.Allowance,
		Currency:            p.Currency,
		OnboardingCompleted: p.OnboardingCompleted,
		CreatedAt:           p.CreatedAt,
		UpdatedAt:           p.UpdatedAt,
	}
}

type characterResponse struct {
	ID        uuid.UUID       `json:"id"`
	Name      string          `json:"name"`
	ImageURL  string          `json:"imageUrl"`
	IsStarter bool            `json:"isStarter"`
	Price     decimal.Decimal `json:"price"`
}

func toCharacterResponse(c *model.Character) characterResponse {
	return characterResponse{ID: c.ID, Name: c.Name, ImageURL: c.ImageURL, IsStarter: c.IsStarter, Price: c.Price}
}

func toCharacterResponses(characters []*model.Character) []characterResponse {
	out := make([]characterResponse, 0, len(characters))
	for _, c := range characters {
		out = append(out, toCharacterResponse(c))
	}
	return out
}

type foodResponse struct {
	ID             uuid.UUID       `json:"id"`
	Name           string          `json:"name"`
	NutritionValue int             `json:"nutritionValue"`
	Price          decimal.Decimal `json:"price"`
	ImageURL       string          `json:"imageUrl"`
}

func toFoodResponses(foods []*model.Food) []foodResponse {
	out := make([]foodResponse, 0, len(foods))
	for _, f := range foods {
		out = append(out, foodResponse{ID: f.ID, Name: f.Name, NutritionValue: f.NutritionValue, Price: f.Price, ImageURL: f.ImageURL})
	}
	return out
}

type tamagotchiResponse struct {
	ID          uuid.UUID  `json:"id"`
	CharacterID uuid.UUID  `json:"characterId"`
	Name        string     `json:"name"`
	Hunger      int        `json:"hunger"`
	Happiness   int        `json:"happiness"`
	Health      int        `json:"health"`
	LastFedAt   *time.Time `json:"lastFedAt"`
}

func toTamagotchiResponse(t *model.Tamagotchi) tamagotchiResponse {
	return tamagotchiResponse{
		ID:          t.ID,
		CharacterID: t.CharacterID,
		Name:        t.Name,
		Hunger:      t.Hunger,
		Happiness:   t.Happiness,
		Health:      t.Health,
		LastFedAt:   t.LastFedAt,
	}
}

type walletTransactionResponse struct {
	ID              uuid.UUID       `json:"id"`
	Amount          decimal.Decimal `json:"amount"`
	TransactionType string          `json:"transactionType"`
	Description     *string         `json:"description"`
	CreatedAt       time.Time       `json:"createdAt"`
}

func toWalletTransactionResponses(txs []*model.WalletTransaction) []walletTransactionResponse {
	out := make([]walletTransactionResponse, 0, len(txs))
	for _, t := range txs {
		out = append(out, walletTransactionResponse{
			ID:              t.ID,
			Amount:          t.Amount,
			TransactionType: t.TransactionType,
			Description:     t.Description,
			CreatedAt:       t.CreatedAt,
		})
	}
	return out
}

type missionResponse struct {
	ID          uuid.UUID       `json:"id"`
	Title       string          `json:"title"`
	Description string          `json:"description"`
	MissionType string          `json:"missionType"`
	Requirements map[string]int `json:"requirements"`
	RewardCoins decimal.Decimal `json:"rewardCoins"`
}

type todayMissionResponse struct {
	Mission     missionResponse `json:"mission"`
	Progress    map[string]int  `json:"progress"`
	ProgressPct float64         `json:"progressPct"`
	Completed   bool            `json:"completed"`
	CompletedAt *time.Time      `json:"completedAt"`
}

func toTodayMissionResponse(r *service.TodayResult) todayMissionResponse {
	return todayMissionResponse{
		Mission: missionResponse{
			ID:           r.Mission.ID,
			Title:        r.Mission.Title,
			Description:  r.Mission.Description,
			MissionType:  r.Mission.MissionType,
			Requirements: r.Mission.Requirements,
			RewardCoins:  r.Mission.RewardCoins,
		},
		Progress:    r.UserMission.Progress,
		ProgressPct: r.ProgressPct,
		Completed:   r.UserMission.Completed,
		CompletedAt: r.UserMission.CompletedAt,
	}
}

type expenseResponse struct {
	ID          uuid.UUID       `json:"id"`
	Amount      decimal.Decimal `json:"amount"`
	Category    string          `json:"category"`
	Description *string         `json:"description"`
	LoggedAt    time.Time       `json:"loggedAt"`
}

func toExpenseResponse(e *model.Expense) expenseResponse {
	return expenseResponse{ID: e.ID, Amount: e.Amount, Category: e.Category, Description: e.Description, LoggedAt: e.LoggedAt}
}

type savingResponse struct {
	ID       uuid.UUID       `json:"id"`
	Amount   decimal.Decimal `json:"amount"`
	Source   *string         `json:"source"`
	LoggedAt time.Time       `json:"loggedAt"`
}

func toSavingResponse(s *model.Saving) savingResponse {
	return savingResponse{ID: s.ID, Amount: s.Amount, Source: s.Source, LoggedAt: s.LoggedAt}
}

type goalResponse struct {
	ID            uuid.UUID       `json:"id"`
	Title         string          `json:"title"`
	Description   *string         `json:"description"`
	TargetAmount  decimal.Decimal `json:"targetAmount"`
	CurrentAmount decimal.Decimal `json:"currentAmount"`
	Completed     bool            `json:"completed"`
	CompletedAt   *time.Time      `json:"completedAt"`
	CreatedAt     time.Time       `json:"createdAt"`
}

func toGoalResponse(g *model.Goal) goalResponse {
	return goalResponse{
		ID:            g.ID,
		Title:         g.Title,
		Description:   g.Description,
		TargetAmount:  g.TargetAmount,
		CurrentAmount: g.CurrentAmount,
		Completed:     g.Completed,
		CompletedAt:   g.CompletedAt,
		CreatedAt:     g.CreatedAt,
	}
}

func toGoalResponses(goals []*model.Goal) []goalResponse {
	out := make([]goalResponse, 0, len(goals))
	for _, g := range goals {
		out = append(out, toGoalResponse(g))
	}
	return out
}

type adventureResponse struct {
	ID                  uuid.UUID          `json:"id"`
	Scenario            string             `json:"scenario"`
	Choices             []string           `json:"choices"`
	SelectedChoiceIndex *int               `json:"selectedChoiceIndex"`
	Feedback            *string            `json:"feedback"`
	Scores              map[string]float64 `json:"scores"`
	GenerationTraceID   string             `json:"generationTraceId"`
	EvaluationTraceID   *string            `json:"evaluationTraceId"`
	CreatedAt           time.Time          `json:"createdAt"`
	EvaluatedAt         *time.Time         `json:"evaluatedAt"`
}

func toAdventureResponse(a *model.Adventure) adventureResponse {
	return adventureResponse{
		ID:                  a.ID,
		Scenario:            a.Scenario,
		Choices:             a.Choices,
		SelectedChoiceIndex: a.SelectedChoiceIndex,
		Feedback:            a.Feedback,
		Scores:              a.Scores,
		GenerationTraceID:   a.GenerationTraceID,
		EvaluationTraceID:   a.EvaluationTraceID,
		CreatedAt:           a.CreatedAt,
		EvaluatedAt:         a.EvaluatedAt,
	}
}

func toAdventureResponses(adventures []*model.Adventure) []adventureResponse {
	out := make([]adventureResponse, 0, len(adventures))
	for _, a := range adventures {
		out = append(out, toAdventureResponse(a))
	}
	return out
}
