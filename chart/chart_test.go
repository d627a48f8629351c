package chart

import (
	"math"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func sampleArtifact() *Artifact {
	return &Artifact{
		Title: "Yield by Treatment",
		Type:  KindBar,
		Data: Data{
			Labels: []string{"control", "low", "high"},
			Datasets: []Dataset{
				{Label: "yield", Data: []float64{4.2, 5.1, 6.3}},
			},
		},
	}
}

func TestArtifact_Validate(t *testing.T) {
	t.Run("valid", func(t *testing.T) {
		assert.NoError(t, sampleArtifact().Validate())
	})

	t.Run("unknown type", func(t *testing.T) {
		a := sampleArtifact()
		a.Type = "pie"
		assert.Error(t, a.Validate())
	})

	t.Run("no labels", func(t *testing.T) {
		a := sampleArtifact()
		a.Data.Labels = nil
		assert.Error(t, a.Validate())
	})

	t.Run("series length mismatch", func(t *testing.T) {
		a := sampleArtifact()
		a.Data.Datasets[0].Data = []float64{4.2, 5.1}
		err := a.Validate()
		require.Error(t, err)
		assert.Contains(t, err.Error(), "2 points for 3 labels")
	})

	t.Run("non-finite point", func(t *testing.T) {
		a := sampleArtifact()
		a.Data.Datasets[0].Data[1] = math.NaN()
		assert.Error(t, a.Validate())
	})
}

func TestChooseKind(t *testing.T) {
	// Categorical data always renders as bars, whatever the size.
	assert.Equal(t, KindBar, ChooseKind(true, 50, 2))

	// Few points read better as bars even when continuous.
	assert.Equal(t, KindBar, ChooseKind(false, 6, 1))

	// Two continuous variables form a scatter.
	assert.Equal(t, KindScatter, ChooseKind(false, 40, 2))

	// Everything else is a line.
	assert.Equal(t, KindLine, ChooseKind(false, 40, 1))
}

func TestDryRun(t *testing.T) {
	t.Run("bar renders", func(t *testing.T) {
		assert.NoError(t, DryRun(sampleArtifact()))
	})

	t.Run("line renders", func(t *testing.T) {
		a := sampleArtifact()
		a.Type = KindLine
		a.Data.Labels = []string{"2021", "2022", "2023"}
		assert.NoError(t, DryRun(a))
	})

	t.Run("invalid artifact rejected", func(t *testing.T) {
		a := sampleArtifact()
		a.Data.Datasets = nil
		assert.Error(t, DryRun(a))
	})
}

func TestRenderPNG(t *testing.T) {
	png, err := RenderPNG(sampleArtifact())
	require.NoError(t, err)
	// PNG magic bytes.
	require.Greater(t, len(png), 8)
	assert.Equal(t, []byte{0x89, 'P', 'N', 'G'}, png[:4])
}

func TestDataURI(t *testing.T) {
	uri, err := DataURI(sampleArtifact())
	require.NoError(t, err)
	assert.True(t, strings.HasPrefix(uri, "data:image/png;base64,"))
}

func TestBlocks_RoundTrip(t *testing.T) {
	a := sampleArtifact()
	a.Status = StatusSuccess

	block := FormatBlock(a)
	require.True(t, strings.HasPrefix(block, "```chart\n"))
	require.True(t, strings.HasSuffix(block, "```"))

	markdown := "## Figure 1\n\n" + block + "\n\nSome findings.\n"
	parsed := ParseBlocks(markdown)
	require.Len(t, parsed, 1)
	assert.Equal(t, a.Title, parsed[0].Title)
	assert.Equal(t, a.Type, parsed[0].Type)
	assert.Equal(t, a.Data.Datasets[0].Data, parsed[0].Data.Datasets[0].Data)
}

func TestParseBlocks_OrderAndSkips(t *testing.T) {
	first := sampleArtifact()
	second := sampleArtifact()
	second.Title = "Second"

	markdown := FormatBlock(first) + "\n\n```chart\nnot json\n```\n\n" + FormatBlock(second)
	parsed := ParseBlocks(markdown)
	require.Len(t, parsed, 2)
	assert.Equal(t, "Yield by Treatment", parsed[0].Title)
	assert.Equal(t, "Second", parsed[1].Title)
}

func TestStripBlocks(t *testing.T) {
	markdown := "Intro text.\n\n" + FormatBlock(sampleArtifact()) + "\n\nClosing text."
	stripped := StripBlocks(markdown)
	assert.NotContains(t, stripped, "```chart")
	assert.Contains(t, stripped, "Intro text.")
	assert.Contains(t, stripped, "Closing text.")
}
