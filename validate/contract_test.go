package validate

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var stageContract = Contract{
	Required:      []string{"research_question", "uniqueness_score"},
	NumericRanges: map[string][2]float64{"uniqueness_score": {0, 1}},
}

func TestValidate_CleanJSON(t *testing.T) {
	parsed, err := Validate(`{"research_question": "Does X affect Y?", "uniqueness_score": 0.7}`, stageContract)
	require.Nil(t, err)
	assert.Equal(t, "Does X affect Y?", parsed["research_question"])
	assert.Equal(t, 0.7, parsed["uniqueness_score"])
}

func TestValidate_StripsCodeFence(t *testing.T) {
	raw := "Here is the result:\n```json\n{\"research_question\": \"Q\", \"uniqueness_score\": 0.5}\n```\nHope that helps!"
	parsed, err := Validate(raw, stageContract)
	require.Nil(t, err)
	assert.Equal(t, "Q", parsed["research_question"])
}

func TestValidate_FenceStrippingIsIdempotent(t *testing.T) {
	fenced := "```json\n{\"research_question\": \"Q\", \"uniqueness_score\": 0.5}\n```"

	once := ExtractJSON(fenced)
	twice := ExtractJSON(once)
	assert.Equal(t, once, twice)

	parsed, err := Validate(once, stageContract)
	require.Nil(t, err)
	assert.Equal(t, "Q", parsed["research_question"])
}

func TestValidate_TrailingCommasAndComments(t *testing.T) {
	raw := `{
		"research_question": "Q", // the refined question
		"uniqueness_score": 0.9,
	}`
	parsed, err := Validate(raw, stageContract)
	require.Nil(t, err)
	assert.Equal(t, 0.9, parsed["uniqueness_score"])
}

func TestValidate_Malformed(t *testing.T) {
	_, err := Validate("I could not produce JSON, sorry.", stageContract)
	require.NotNil(t, err)
	assert.Equal(t, KindMalformed, err.Kind)

	_, err = Validate("", stageContract)
	require.NotNil(t, err)
	assert.Equal(t, KindMalformed, err.Kind)
}

func TestValidate_MissingField(t *testing.T) {
	_, err := Validate(`{"research_question": "Q"}`, stageContract)
	require.NotNil(t, err)
	assert.Equal(t, KindMissingField, err.Kind)
	assert.Equal(t, "uniqueness_score", err.Field)

	// Explicit null counts as absent.
	_, err = Validate(`{"research_question": "Q", "uniqueness_score": null}`, stageContract)
	require.NotNil(t, err)
	assert.Equal(t, KindMissingField, err.Kind)
}

func TestValidate_NumericRange(t *testing.T) {
	_, err := Validate(`{"research_question": "Q", "uniqueness_score": 1.5}`, stageContract)
	require.NotNil(t, err)
	assert.Equal(t, KindWrongElementType, err.Kind)

	// Boundary values are inclusive.
	_, verr := Validate(`{"research_question": "Q", "uniqueness_score": 1}`, stageContract)
	assert.Nil(t, verr)
	_, verr = Validate(`{"research_question": "Q", "uniqueness_score": 0}`, stageContract)
	assert.Nil(t, verr)
}

func TestValidate_StringifiedNumberRejected(t *testing.T) {
	_, err := Validate(`{"research_question": "Q", "uniqueness_score": "0.7"}`, stageContract)
	require.NotNil(t, err)
	assert.Equal(t, KindWrongElementType, err.Kind)
}

func TestCheck_ArrayContracts(t *testing.T) {
	c := Contract{
		NonEmptyArrays: []string{"values"},
		NumericArrays:  []string{"values"},
	}

	t.Run("empty array rejected", func(t *testing.T) {
		err := Check(map[string]any{"values": []any{}}, c)
		require.NotNil(t, err)
		assert.Equal(t, KindEmptyRequiredArray, err.Kind)
	})

	t.Run("absent array rejected", func(t *testing.T) {
		err := Check(map[string]any{}, c)
		require.NotNil(t, err)
		assert.Equal(t, KindMissingField, err.Kind)
	})

	t.Run("string elements rejected, not coerced", func(t *testing.T) {
		err := Check(map[string]any{"values": []any{1.0, "2", 3.0}}, c)
		require.NotNil(t, err)
		assert.Equal(t, KindWrongElementType, err.Kind)
	})

	t.Run("null elements rejected", func(t *testing.T) {
		err := Check(map[string]any{"values": []any{1.0, nil}}, c)
		require.NotNil(t, err)
		assert.Equal(t, KindWrongElementType, err.Kind)
	})

	t.Run("numeric array accepted", func(t *testing.T) {
		err := Check(map[string]any{"values": []any{1.0, 2.5, -3.0}}, c)
		assert.Nil(t, err)
	})
}

func TestExtractJSONArray(t *testing.T) {
	raw := "```json\n[1, 2, 3]\n```"
	assert.Equal(t, "[1, 2, 3]", ExtractJSONArray(raw))
}
