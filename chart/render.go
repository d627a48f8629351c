package chart

import (
	"bytes"
	"encoding/base64"
	"fmt"
	"io"

	gochart "github.com/wcharczuk/go-chart/v2"
)

// DryRun attempts a full render into a discarded buffer. It catches
// library-level rejection of payloads that pass schema validation but are
// semantically broken, without producing any output.
func DryRun(a *Artifact) error {
	if err := a.Validate(); err != nil {
		return err
	}
	return render(a, io.Discard)
}

// RenderPNG renders the artifact to PNG bytes.
func RenderPNG(a *Artifact) ([]byte, error) {
	if err := a.Validate(); err != nil {
		return nil, err
	}
	var buf bytes.Buffer
	if err := render(a, &buf); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

// DataURI renders the artifact to a PNG data URI suitable for embedding in
// exported markdown.
func DataURI(a *Artifact) (string, error) {
	png, err := RenderPNG(a)
	if err != nil {
		return "", err
	}
	return "data:image/png;base64," + base64.StdEncoding.EncodeToString(png), nil
}

func render(a *Artifact, w io.Writer) error {
	switch a.Type {
	case KindBar:
		return renderBar(a, w)
	case KindLine, KindScatter:
		return renderContinuous(a, w)
	default:
		return fmt.Errorf("unknown chart type %q", a.Type)
	}
}

// renderBar draws the first dataset as a bar chart; the bar renderer
// supports a single series.
func renderBar(a *Artifact, w io.Writer) error {
	ds := a.Data.Datasets[0]
	bars := make([]gochart.Value, 0, len(ds.Data))
	for i, v := range ds.Data {
		bars = append(bars, gochart.Value{Value: v, Label: a.Data.Labels[i]})
	}

	graph := gochart.BarChart{
		Title:    a.Title,
		Width:    800,
		Height:   450,
		BarWidth: 40,
		Bars:     bars,
	}
	return graph.Render(gochart.PNG, w)
}

func renderContinuous(a *Artifact, w io.Writer) error {
	xs := a.xValues()

	series := make([]gochart.Series, 0, len(a.Data.Datasets))
	for _, ds := range a.Data.Datasets {
		s := gochart.ContinuousSeries{
			Name:    ds.Label,
			XValues: xs,
			YValues: ds.Data,
		}
		if a.Type == KindScatter {
			s.Style = gochart.Style{
				StrokeWidth: gochart.Disabled,
				DotWidth:    4,
			}
		}
		series = append(series, s)
	}

	graph := gochart.Chart{
		Title:  a.Title,
		Width:  800,
		Height: 450,
		Series: series,
	}
	return graph.Render(gochart.PNG, w)
}
