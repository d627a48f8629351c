package validate

import (
	"encoding/json"
	"strconv"

	"github.com/mosaicsci/inquiry/chart"
)

// chartContract is the shape contract for chart payloads.
var chartContract = Contract{
	Required:       []string{"type", "data"},
	NonEmptyArrays: nil, // nested arrays checked after decoding
}

// ChartArtifact validates raw model text as a chart payload. Beyond the
// shape contract it decodes into the artifact type and dry-runs the real
// renderer, since a payload can satisfy the schema and still be rejected by
// the charting library.
func ChartArtifact(raw string) (*chart.Artifact, *Error) {
	parsed, verr := Validate(raw, chartContract)
	if verr != nil {
		return nil, verr
	}

	// Round-trip through JSON to decode into the typed artifact. A type
	// mismatch here (stringified numbers, null series) is a contract
	// violation, not a parse failure.
	encoded, err := json.Marshal(parsed)
	if err != nil {
		return nil, NewError(KindMalformed, "", err.Error())
	}
	var artifact chart.Artifact
	if err := json.Unmarshal(encoded, &artifact); err != nil {
		return nil, NewError(KindWrongElementType, "data", err.Error())
	}

	if len(artifact.Data.Labels) == 0 {
		return nil, NewError(KindEmptyRequiredArray, "data.labels", "labels must not be empty")
	}
	if len(artifact.Data.Datasets) == 0 {
		return nil, NewError(KindEmptyRequiredArray, "data.datasets", "datasets must not be empty")
	}

	// Reject non-numeric series elements before the renderer sees them;
	// json.Unmarshal into []float64 already fails on strings and nulls,
	// but an empty series decodes fine and must be caught here.
	for i, ds := range artifact.Data.Datasets {
		if len(ds.Data) == 0 {
			return nil, NewError(KindEmptyRequiredArray, "data.datasets",
				"dataset "+strconv.Itoa(i)+" has no data")
		}
	}

	if err := chart.DryRun(&artifact); err != nil {
		return nil, NewError(KindRenderRejected, "", err.Error())
	}

	artifact.Status = chart.StatusSuccess
	return &artifact, nil
}
