package domain

import (
	"bytes"
	"encoding/json"
	"fmt"
)

// FeatureKind names a factory variant.
type FeatureKind string

// Factory kinds.
const (
	FeatureNormal   FeatureKind = "Normal"
	FeatureColony   FeatureKind = "Colony"
	FeatureResearch FeatureKind = "Research"
	FeatureMeta     FeatureKind = "Meta"
)

// Feature is the tagged union carried by every factory. The concrete types
// are *NormalFeature, *ColonyFeature, *ResearchFeature and *MetaFeature.
type Feature interface {
	Kind() FeatureKind
	CloneFeature() Feature
}

// UpgradeOption is one way to pay for a normal factory upgrade: either
// surrendering another held factory or running a one-off converter.
type UpgradeOption struct {
	Factory   string
	Converter *Converter
}

// MarshalJSON renders a factory cost as a bare string and a converter cost as
// a converter object.
func (o UpgradeOption) MarshalJSON() ([]byte, error) {
	if o.Converter != nil {
		return json.Marshal(o.Converter)
	}
	return json.Marshal(o.Factory)
}

// UnmarshalJSON accepts either shape.
func (o *UpgradeOption) UnmarshalJSON(data []byte) error {
	trimmed := bytes.TrimSpace(data)
	if len(trimmed) > 0 && trimmed[0] == '"' {
		o.Converter = nil
		return json.Unmarshal(trimmed, &o.Factory)
	}
	var conv Converter
	if err := json.Unmarshal(trimmed, &conv); err != nil {
		return fmt.Errorf("decode upgrade cost: %w", err)
	}
	if conv.Stage == "" {
		conv.Stage = ConverterTrading
	}
	o.Factory = ""
	o.Converter = &conv
	return nil
}

// NormalFeature describes species factories. Interest marks the wildcard
// combination factories; MustLend forbids the owner species from running it.
type NormalFeature struct {
	Upgraded       bool            `json:"upgraded"`
	UpgradeFactory string          `json:"upgrade_factory,omitempty"`
	UpgradeCost    []UpgradeOption `json:"upgrade_cost,omitempty"`
	MustLend       bool            `json:"must_lend,omitempty"`
	Interest       bool            `json:"interest,omitempty"`
}

// Kind implements Feature.
func (*NormalFeature) Kind() FeatureKind { return FeatureNormal }

// CloneFeature implements Feature.
func (f *NormalFeature) CloneFeature() Feature {
	cp := *f
	if f.UpgradeCost != nil {
		cp.UpgradeCost = make([]UpgradeOption, len(f.UpgradeCost))
		for i, opt := range f.UpgradeCost {
			cp.UpgradeCost[i] = UpgradeOption{Factory: opt.Factory}
			if opt.Converter != nil {
				conv := opt.Converter.Clone()
				cp.UpgradeCost[i].Converter = &conv
			}
		}
	}
	return &cp
}

// ColonyFeature describes colony cards. DoubleRun is set when a species with
// the double-run trait acquires the colony and survives upgrades.
type ColonyFeature struct {
	Climate        string `json:"climate"`
	UpgradeClimate string `json:"upgrade_climate,omitempty"`
	Upgraded       bool   `json:"upgraded"`
	UpgradeCost    Items  `json:"upgrade_cost,omitempty"`
	DoubleRun      bool   `json:"double_run,omitempty"`
}

// Kind implements Feature.
func (*ColonyFeature) Kind() FeatureKind { return FeatureColony }

// CloneFeature implements Feature.
func (f *ColonyFeature) CloneFeature() Feature {
	cp := *f
	if f.UpgradeCost != nil {
		cp.UpgradeCost = f.UpgradeCost.Clone()
	}
	return &cp
}

// ResearchFeature describes research cards. Alternative costs live on the
// card's converter.
type ResearchFeature struct {
	Tech  string `json:"tech"`
	Level int    `json:"level"`
}

// Kind implements Feature.
func (*ResearchFeature) Kind() FeatureKind { return FeatureResearch }

// CloneFeature implements Feature.
func (f *ResearchFeature) CloneFeature() Feature {
	cp := *f
	return &cp
}

// MetaFeature describes a trigger factory that unlocks another factory.
type MetaFeature struct {
	UnlockFactory string `json:"unlock_factory"`
}

// Kind implements Feature.
func (*MetaFeature) Kind() FeatureKind { return FeatureMeta }

// CloneFeature implements Feature.
func (f *MetaFeature) CloneFeature() Feature {
	cp := *f
	return &cp
}

type featureEnvelope struct {
	Type       FeatureKind     `json:"type"`
	Properties json.RawMessage `json:"properties"`
}

// MarshalFeature renders a feature as {"type": ..., "properties": {...}}.
func MarshalFeature(f Feature) ([]byte, error) {
	if f == nil {
		f = &NormalFeature{}
	}
	props, err := json.Marshal(f)
	if err != nil {
		return nil, err
	}
	return json.Marshal(featureEnvelope{Type: f.Kind(), Properties: props})
}

// UnmarshalFeature decodes the envelope form. A missing type decodes as a
// plain normal factory.
func UnmarshalFeature(data []byte) (Feature, error) {
	trimmed := bytes.TrimSpace(data)
	if len(trimmed) == 0 || bytes.Equal(trimmed, []byte("null")) {
		return &NormalFeature{}, nil
	}
	var env featureEnvelope
	if err := json.Unmarshal(trimmed, &env); err != nil {
		return nil, fmt.Errorf("decode feature: %w", err)
	}
	var f Feature
	switch env.Type {
	case FeatureNormal, "":
		f = &NormalFeature{}
	case FeatureColony:
		f = &ColonyFeature{}
	case FeatureResearch:
		f = &ResearchFeature{}
	case FeatureMeta:
		f = &MetaFeature{}
	default:
		return nil, fmt.Errorf("unknown feature type %q", env.Type)
	}
	if len(env.Properties) > 0 && !bytes.Equal(bytes.TrimSpace(env.Properties), []byte("null")) {
		if err := json.Unmarshal(env.Properties, f); err != nil {
			return nil, fmt.Errorf("decode %s properties: %w", env.Type, err)
		}
	}
	return f, nil
}
