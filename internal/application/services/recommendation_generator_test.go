package services_test

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"github.com/zatekoja/nextbestaction/internal/application/services"
	"github.com/zatekoja/nextbestaction/internal/domain/entities"
	"github.com/zatekoja/nextbestaction/internal/domain/providers"
)

type MockModelProvider struct {
	mock.Mock
}

func (m *MockModelProvider) Complete(ctx context.Context, instruction string) (string, error) {
	args := m.Called(ctx, instruction)
	return args.String(0), args.Error(1)
}

var referenceTime = time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC)

func decisionContext(contacts ...entities.Contact) *entities.DecisionContext {
	return entities.NewDecisionContext(entities.DecisionContextInput{
		HCP: entities.HCP{
			ID: "hcp-1", FirstName: "Ana", LastName: "García", Specialty: "Cardiology",
			Institution: "Hospital Central", City: "Monterrey", Region: "North",
		},
		RecentContacts: contacts,
		Products: []entities.Product{
			{ID: "prd-1", Name: "Cardiovex", ActiveIngredient: "valsartan", Indications: []string{"hypertension"}, Approved: true},
		},
		ApprovedContent: []entities.ApprovedContent{
			{ID: "ac-1", Type: entities.ContentTypeDataSheet, Title: "Cardiovex overview", ProductIDs: []string{"prd-1"}, Version: "2", Active: true},
		},
		AssembledAt: referenceTime,
	})
}

func contactDaysAgo(days int) entities.Contact {
	return entities.Contact{
		ID:         "c-1",
		HCPID:      "hcp-1",
		Type:       entities.ContactTypeVisit,
		OccurredAt: referenceTime.Add(-time.Duration(days) * 24 * time.Hour),
		Outcome:    entities.ContactOutcomeSuccessful,
		Channel:    entities.ChannelPersonal,
	}
}

func TestRecommendationGenerator_Fallback(t *testing.T) {
	generator := services.NewRecommendationGenerator(nil, services.GeneratorOptions{})

	t.Run("no recent contact proposes initial contact", func(t *testing.T) {
		dc := decisionContext(contactDaysAgo(45))

		recs := generator.Generate(context.Background(), dc)

		require.Len(t, recs, 1)
		assert.Equal(t, entities.ActionTypeInitialContact, recs[0].ActionType)
		assert.Equal(t, entities.ChannelPersonal, recs[0].Channel)
		assert.Equal(t, 70.0, recs[0].Score)
		assert.Equal(t, referenceTime.Add(7*24*time.Hour), recs[0].IdealMoment)
		assert.Contains(t, recs[0].Reasons, "no recent contact")
		assert.Equal(t, entities.RecommendationSourceFallback, recs[0].Source)
		assert.Contains(t, recs[0].Message, "García")
	})

	t.Run("recent contact proposes follow up", func(t *testing.T) {
		dc := decisionContext(contactDaysAgo(10))

		recs := generator.Generate(context.Background(), dc)

		require.Len(t, recs, 1)
		assert.Equal(t, entities.ActionTypeFollowUp, recs[0].ActionType)
		assert.Equal(t, entities.ChannelEmail, recs[0].Channel)
		assert.Equal(t, 80.0, recs[0].Score)
		assert.Equal(t, referenceTime.Add(3*24*time.Hour), recs[0].IdealMoment)
		assert.Contains(t, recs[0].Reasons, "maintain momentum")
	})

	t.Run("identical context gives identical fallback", func(t *testing.T) {
		dc := decisionContext()
		assert.Equal(t, generator.Fallback(dc), generator.Fallback(dc))
	})
}

func TestRecommendationGenerator_Generate(t *testing.T) {
	t.Run("uses valid model candidates", func(t *testing.T) {
		model := new(MockModelProvider)
		model.On("Complete", mock.Anything, mock.AnythingOfType("string")).Return("```json\n"+`{"recommendations":[
			{"action_type":"product_presentation","channel":"personal","ideal_moment":"2024-03-05T10:00:00Z",
			 "message":"Share the Cardiovex overview","rationale":"Interest in hypertension","products":["prd-1"],
			 "score":85,"reasons":["clinical interest"],"restrictions":["approved content only"]},
			{"action_type":"medical_education","channel":"virtual_event","ideal_moment":"2024-03-10",
			 "message":"Invite to the hypertension webinar","score":60}
		]}`+"\n```", nil)
		generator := services.NewRecommendationGenerator(model, services.GeneratorOptions{ModelName: "test"})

		recs := generator.Generate(context.Background(), decisionContext())

		require.Len(t, recs, 2)
		assert.Equal(t, entities.ActionTypeProductPresentation, recs[0].ActionType)
		assert.Equal(t, 85.0, recs[0].Score)
		assert.Equal(t, time.Date(2024, 3, 5, 10, 0, 0, 0, time.UTC), recs[0].IdealMoment)
		assert.Equal(t, entities.RecommendationSourceModel, recs[0].Source)
		assert.Equal(t, time.Date(2024, 3, 10, 0, 0, 0, 0, time.UTC), recs[1].IdealMoment)
		model.AssertExpectations(t)
	})

	t.Run("transport failure falls back without retry", func(t *testing.T) {
		model := new(MockModelProvider)
		model.On("Complete", mock.Anything, mock.Anything).Return("", providers.ErrModelUnauthorized).Once()
		generator := services.NewRecommendationGenerator(model, services.GeneratorOptions{})

		recs := generator.Generate(context.Background(), decisionContext())

		require.Len(t, recs, 1)
		assert.Equal(t, entities.RecommendationSourceFallback, recs[0].Source)
		model.AssertNumberOfCalls(t, "Complete", 1)
	})

	t.Run("unparseable output falls back", func(t *testing.T) {
		model := new(MockModelProvider)
		model.On("Complete", mock.Anything, mock.Anything).Return("I cannot help with that", nil)
		generator := services.NewRecommendationGenerator(model, services.GeneratorOptions{})

		recs := generator.Generate(context.Background(), decisionContext())

		require.Len(t, recs, 1)
		assert.Equal(t, entities.RecommendationSourceFallback, recs[0].Source)
	})

	t.Run("all items invalid falls back", func(t *testing.T) {
		model := new(MockModelProvider)
		model.On("Complete", mock.Anything, mock.Anything).Return(`{"recommendations":[
			{"action_type":"dinner","channel":"email","message":"hi","score":50},
			{"action_type":"follow_up","channel":"fax","message":"hi","score":50}
		]}`, nil)
		generator := services.NewRecommendationGenerator(model, services.GeneratorOptions{})

		recs := generator.Generate(context.Background(), decisionContext())

		require.Len(t, recs, 1)
		assert.Equal(t, entities.RecommendationSourceFallback, recs[0].Source)
	})

	t.Run("timeout is treated as a failure", func(t *testing.T) {
		model := new(MockModelProvider)
		model.On("Complete", mock.Anything, mock.Anything).
			Run(func(args mock.Arguments) {
				<-args.Get(0).(context.Context).Done()
			}).
			Return("", context.DeadlineExceeded)
		generator := services.NewRecommendationGenerator(model, services.GeneratorOptions{Timeout: 20 * time.Millisecond})

		recs := generator.Generate(context.Background(), decisionContext())

		require.Len(t, recs, 1)
		assert.Equal(t, entities.RecommendationSourceFallback, recs[0].Source)
	})
}

func TestParseModelResponse(t *testing.T) {
	t.Run("drops items failing the schema check", func(t *testing.T) {
		text := `{"recommendations":[
			{"action_type":"follow_up","channel":"email","message":"","score":50},
			{"action_type":"follow_up","channel":"email","message":"ok","score":101},
			{"action_type":"follow_up","channel":"email","message":"ok"},
			{"action_type":"follow_up","channel":"email","message":"kept","score":40}
		]}`

		recs, err := services.ParseModelResponse(text, referenceTime)
		require.NoError(t, err)

		require.Len(t, recs, 1)
		assert.Equal(t, "kept", recs[0].Message)
		assert.Equal(t, referenceTime.Add(24*time.Hour), recs[0].IdealMoment)
	})

	t.Run("keeps at most five", func(t *testing.T) {
		item := `{"action_type":"follow_up","channel":"email","message":"m","score":50}`
		text := `{"recommendations":[` + strings.Repeat(item+",", 6) + item + `]}`

		recs, err := services.ParseModelResponse(text, referenceTime)
		require.NoError(t, err)
		assert.Len(t, recs, 5)
	})

	t.Run("rejects malformed json", func(t *testing.T) {
		_, err := services.ParseModelResponse(`{"recommendations":`, referenceTime)
		assert.Error(t, err)
	})

	t.Run("rejects missing recommendations field", func(t *testing.T) {
		_, err := services.ParseModelResponse(`{"actions":[]}`, referenceTime)
		assert.Error(t, err)
	})
}

func TestBuildPrompt(t *testing.T) {
	dc := entities.NewDecisionContext(entities.DecisionContextInput{
		HCP: entities.HCP{ID: "hcp-1", FirstName: "Ana", LastName: "García", Specialty: "Cardiology"},
		Signals: []entities.Signal{{
			ID: "s-1", Source: "twitter", Content: strings.Repeat("x", 150), Relevance: 9,
			PublishedAt: referenceTime.Add(-24 * time.Hour), Sentiment: entities.SentimentPositive,
		}},
		AssembledAt: referenceTime,
	})

	prompt := services.BuildPrompt(dc)

	assert.Contains(t, prompt, "Reference date: 2024-03-01")
	assert.Contains(t, prompt, "Ana García")
	assert.Contains(t, prompt, "No previous contacts")
	assert.Contains(t, prompt, strings.Repeat("x", 100)+"...")
	assert.NotContains(t, prompt, strings.Repeat("x", 101))
	assert.Contains(t, prompt, "initial_contact, follow_up")
	assert.Contains(t, prompt, "Do not compare with competitor products")
	assert.Contains(t, prompt, "Do not make absolute efficacy claims")
	assert.Equal(t, prompt, services.BuildPrompt(dc))
}

func TestRecommendationGenerator_PassesPromptToModel(t *testing.T) {
	model := new(MockModelProvider)
	dc := decisionContext()
	model.On("Complete", mock.Anything, services.BuildPrompt(dc)).Return("", errors.New("boom"))
	generator := services.NewRecommendationGenerator(model, services.GeneratorOptions{})

	generator.Generate(context.Background(), dc)

	model.AssertExpectations(t)
}
