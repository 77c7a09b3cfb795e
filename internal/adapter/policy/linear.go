// Package policy provides learned route-selection policies behind the
// selector's policy port: a linear model loaded from a JSON artifact and a
// sandboxed WASM module. Both return an index into the ranked candidate
// list, or a negative index to decline in favor of the heuristic.
package policy

import (
	"context"
	"encoding/json"
	"fmt"
	"os"

	"github.com/kaptinlin/jsonschema"
)

// linearArtifactSchema validates the weight file before anything is trusted
// from it. Exactly five weights, one per candidate feature block value.
const linearArtifactSchema = `{
	"type": "object",
	"required": ["name", "weights"],
	"properties": {
		"name": {"type": "string", "minLength": 1},
		"weights": {"type": "array", "items": {"type": "number"}, "minItems": 5, "maxItems": 5},
		"amount_weight": {"type": "number"},
		"bias": {"type": "number"},
		"min_score": {"type": "number"}
	},
	"additionalProperties": false
}`

// linearArtifact is the decoded weight file.
type linearArtifact struct {
	Name         string    `json:"name"`
	Weights      []float64 `json:"weights"` // per block value: fee_pct, time_norm, reliability, compliance, valid
	AmountWeight float64   `json:"amount_weight"`
	Bias         float64   `json:"bias"`
	MinScore     *float64  `json:"min_score"` // decline when the best score is below this
}

// LinearPolicy scores each candidate block with a dot product and picks the
// argmax. With min_score set it declines low-confidence choices, handing
// selection back to the heuristic.
type LinearPolicy struct {
	artifact linearArtifact
}

// NewLinearPolicy loads and schema-validates the weight artifact at path.
func NewLinearPolicy(path string) (*LinearPolicy, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read policy artifact: %w", err)
	}

	compiler := jsonschema.NewCompiler()
	schema, err := compiler.Compile([]byte(linearArtifactSchema))
	if err != nil {
		return nil, fmt.Errorf("compile artifact schema: %w", err)
	}
	var doc any
	if err := json.Unmarshal(raw, &doc); err != nil {
		return nil, fmt.Errorf("parse policy artifact: %w", err)
	}
	if result := schema.Validate(doc); !result.IsValid() {
		return nil, fmt.Errorf("invalid policy artifact %s: %s", path, result.Error())
	}

	var artifact linearArtifact
	if err := json.Unmarshal(raw, &artifact); err != nil {
		return nil, fmt.Errorf("decode policy artifact: %w", err)
	}
	return &LinearPolicy{artifact: artifact}, nil
}

// Name returns the artifact's model name.
func (p *LinearPolicy) Name() string { return p.artifact.Name }

// Choose scores the live candidate blocks and returns the argmax index, or
// -1 when every score falls below min_score.
func (p *LinearPolicy) Choose(_ context.Context, features []float64, candidates int) (int, error) {
	if candidates < 1 {
		return 0, fmt.Errorf("no candidates to choose from")
	}
	if len(features) < 1+5*candidates {
		return 0, fmt.Errorf("feature vector has %d values, need %d for %d candidates",
			len(features), 1+5*candidates, candidates)
	}

	amount := features[0]
	best, bestScore := 0, 0.0
	for i := 0; i < candidates; i++ {
		block := features[1+5*i : 1+5*i+5]
		score := p.artifact.Bias + amount*p.artifact.AmountWeight
		for j, w := range p.artifact.Weights {
			score += w * block[j]
		}
		if i == 0 || score > bestScore {
			best, bestScore = i, score
		}
	}

	if p.artifact.MinScore != nil && bestScore < *p.artifact.MinScore {
		return -1, nil
	}
	return best, nil
}
