package report

import (
	"encoding/json"
	"fmt"

	"gohar/domain/core"
	"gohar/domain/run"
	"gohar/ports"
)

// RunReport bundles everything a rendered report draws from. The manifest is
// required; every other section renders only when its artifact is present, so
// partial and failed runs still produce a readable report.
type RunReport struct {
	Manifest     *run.RunManifestArtifact
	RefProfile   *ports.TableProfile
	QueryProfile *ports.TableProfile
	Schema       *run.SchemaArtifact
	Tree         *run.EvaluationArtifact
	Ensemble     *run.EvaluationArtifact
	Predictions  *run.PredictionsArtifact
}

// FromArtifacts reconstructs a report from ledger artifacts. Artifacts arrive
// in storage order, so when a kind repeats the latest one wins. Profiles are
// routed by table name; the pipeline names its tables reference and query.
func FromArtifacts(manifest *run.RunManifestArtifact, artifacts []core.Artifact) (RunReport, error) {
	r := RunReport{Manifest: manifest}

	for _, a := range artifacts {
		switch a.Kind {
		case core.ArtifactDataProfile:
			var p ports.TableProfile
			if err := decodePayload(a.Payload, &p); err != nil {
				return r, fmt.Errorf("failed to decode %s artifact: %w", a.Kind, err)
			}
			if p.Table == "query" {
				r.QueryProfile = &p
			} else {
				r.RefProfile = &p
			}
		case core.ArtifactSchema:
			var s run.SchemaArtifact
			if err := decodePayload(a.Payload, &s); err != nil {
				return r, fmt.Errorf("failed to decode %s artifact: %w", a.Kind, err)
			}
			r.Schema = &s
		case core.ArtifactTreeEvaluation:
			var e run.EvaluationArtifact
			if err := decodePayload(a.Payload, &e); err != nil {
				return r, fmt.Errorf("failed to decode %s artifact: %w", a.Kind, err)
			}
			r.Tree = &e
		case core.ArtifactEnsembleEvaluation:
			var e run.EvaluationArtifact
			if err := decodePayload(a.Payload, &e); err != nil {
				return r, fmt.Errorf("failed to decode %s artifact: %w", a.Kind, err)
			}
			r.Ensemble = &e
		case core.ArtifactPredictions:
			var p run.PredictionsArtifact
			if err := decodePayload(a.Payload, &p); err != nil {
				return r, fmt.Errorf("failed to decode %s artifact: %w", a.Kind, err)
			}
			r.Predictions = &p
		}
	}
	return r, nil
}

// decodePayload accepts both raw ledger payloads and live typed payloads
func decodePayload(payload interface{}, target interface{}) error {
	raw, ok := payload.(json.RawMessage)
	if !ok {
		b, err := json.Marshal(payload)
		if err != nil {
			return err
		}
		raw = b
	}
	return json.Unmarshal(raw, target)
}
