package llm

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"

	"github.com/joseph-ayodele/docindex/constants"
)

type mockGenerator struct {
	mock.Mock
}

func (m *mockGenerator) Generate(ctx context.Context, prompt string) (string, error) {
	args := m.Called(ctx, prompt)
	return args.String(0), args.Error(1)
}

func (m *mockGenerator) Model() string { return "test-model" }

// blockingGenerator waits for the call deadline.
type blockingGenerator struct{}

func (blockingGenerator) Generate(ctx context.Context, _ string) (string, error) {
	<-ctx.Done()
	return "", ctx.Err()
}

func (blockingGenerator) Model() string { return "slow-model" }

func TestExtractMetadataHappyPath(t *testing.T) {
	gen := new(mockGenerator)
	gen.On("Generate", mock.Anything, mock.MatchedBy(func(p string) bool {
		return strings.Contains(p, "Project Alpha kickoff 2024-01-10")
	})).Return(`{"title":"Project Alpha Kickoff","summary":"...","keywords":["alpha","kickoff"],"date":"2024-01-10"}`, nil)

	res := NewMetadataClient(gen, time.Second, nil).ExtractMetadata(context.Background(), "Project Alpha kickoff 2024-01-10")

	assert.Equal(t, constants.OracleOK, res.Outcome)
	assert.Equal(t, TierDirect, res.Tier)
	assert.Equal(t, SchemaStrict, res.Schema)
	assert.Equal(t, "test-model", res.Model)
	assert.Equal(t, "2024-01-10", res.Fields.Date)
	assert.Equal(t, []string{"alpha", "kickoff"}, res.Fields.Keywords)
	gen.AssertExpectations(t)
}

func TestExtractMetadataTimeout(t *testing.T) {
	res := NewMetadataClient(blockingGenerator{}, 20*time.Millisecond, nil).ExtractMetadata(context.Background(), "text")

	assert.Equal(t, constants.OracleAIError, res.Outcome)
	assert.Equal(t, AIErrorTitle, res.Fields.Title)
	assert.Equal(t, []string{}, res.Fields.Keywords)
	assert.True(t, errors.Is(res.Err, context.DeadlineExceeded))
}

func TestExtractMetadataUnparseable(t *testing.T) {
	gen := new(mockGenerator)
	gen.On("Generate", mock.Anything, mock.Anything).Return("I cannot help with that.", nil)

	res := NewMetadataClient(gen, time.Second, nil).ExtractMetadata(context.Background(), "text")

	assert.Equal(t, constants.OracleParseError, res.Outcome)
	assert.Equal(t, ParseErrorFields(), res.Fields)
}

func TestExtractMetadataCoercesSchemaMisses(t *testing.T) {
	gen := new(mockGenerator)
	gen.On("Generate", mock.Anything, mock.Anything).
		Return("```json\n{\"title\": \"Budget\", \"keywords\": \"q1\"}\n```", nil)

	res := NewMetadataClient(gen, time.Second, nil).ExtractMetadata(context.Background(), "text")

	assert.Equal(t, constants.OracleOK, res.Outcome)
	assert.Equal(t, TierFenced, res.Tier)
	assert.Equal(t, SchemaLenient, res.Schema)
	assert.Equal(t, DocumentFields{Title: "Budget", Summary: SummaryNotAvailable, Keywords: []string{}, Date: DateNotFound}, res.Fields)
}

func TestExtractMetadataSchemaOutcomes(t *testing.T) {
	tests := []struct {
		name   string
		answer string
		schema string
		date   string
	}{
		{"strict", `{"title":"T","summary":"S","keywords":["a"],"date":"2024-03-01"}`, SchemaStrict, "2024-03-01"},
		{"numeric title coerced", `{"title":2024,"summary":"S","keywords":["a"],"date":"2024-03-01"}`, SchemaLenient, "2024-03-01"},
		{"missing date filled", `{"title":"T","summary":"S","keywords":[]}`, SchemaLenient, DateNotFound},
		{"free-form date kept", `{"title":"T","summary":"S","keywords":["a"],"date":"January 10, 2024"}`, SchemaMismatch, "January 10, 2024"},
		{"too many keywords", `{"title":"T","summary":"S","keywords":["1","2","3","4","5","6","7","8","9","10","11"],"date":"2024-03-01"}`, SchemaMismatch, "2024-03-01"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			gen := new(mockGenerator)
			gen.On("Generate", mock.Anything, mock.Anything).Return(tt.answer, nil)

			res := NewMetadataClient(gen, time.Second, nil).ExtractMetadata(context.Background(), "text")
			assert.Equal(t, constants.OracleOK, res.Outcome)
			assert.Equal(t, tt.schema, res.Schema)
			assert.Equal(t, tt.date, res.Fields.Date)
		})
	}
}

func TestExtractMetadataFailuresHaveNoSchema(t *testing.T) {
	gen := new(mockGenerator)
	gen.On("Generate", mock.Anything, mock.Anything).Return("", errors.New("quota exceeded"))

	res := NewMetadataClient(gen, time.Second, nil).ExtractMetadata(context.Background(), "text")
	assert.Equal(t, constants.OracleAIError, res.Outcome)
	assert.Empty(t, res.Schema)
}

func TestValidateJSONAgainstSchema(t *testing.T) {
	schema := BuildMetadataJSONSchema()
	assert.NoError(t, ValidateJSONAgainstSchema(schema, []byte(`{"title":"T","summary":"S","keywords":[],"date":"date not found"}`)))
	assert.Error(t, ValidateJSONAgainstSchema(schema, []byte(`{"title":"","summary":"S","keywords":[],"date":"2024-01-01"}`)))
	assert.Error(t, ValidateJSONAgainstSchema(schema, []byte(`{"title":"T"}`)))
	assert.Error(t, ValidateJSONAgainstSchema(schema, []byte(`not json`)))
}

func TestExtractMetadataTruncatesInput(t *testing.T) {
	long := strings.Repeat("é", MaxTextLength+500)
	gen := new(mockGenerator)
	gen.On("Generate", mock.Anything, mock.MatchedBy(func(p string) bool {
		return !strings.Contains(p, strings.Repeat("é", MaxTextLength+1)) &&
			strings.Contains(p, strings.Repeat("é", MaxTextLength))
	})).Return(`{}`, nil)

	res := NewMetadataClient(gen, time.Second, nil).ExtractMetadata(context.Background(), long)
	assert.Equal(t, MaxTextLength, res.TextSent)
	gen.AssertExpectations(t)
}

func TestBuildMetadataPromptIsDeterministic(t *testing.T) {
	p1 := BuildMetadataPrompt("hello")
	assert.Equal(t, p1, BuildMetadataPrompt("hello"))
	assert.Contains(t, p1, `"`+DateNotFound+`"`)
	assert.Contains(t, p1, "at most 150 words")
	assert.Contains(t, p1, "5 to 10 relevant keywords")
}
