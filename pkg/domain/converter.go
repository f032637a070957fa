package domain

import (
	"bytes"
	"encoding/json"
	"fmt"
)

// Converter is an atomic production rule. Inputs holds one bundle, or several
// alternative bundles when the holder must choose a cost.
type Converter struct {
	Inputs  []Items
	Outputs Items
	Stage   Stage
	Used    bool
}

// NewConverter builds a converter with a single input bundle.
func NewConverter(in, out Items, stage Stage) Converter {
	return Converter{Inputs: []Items{in.Clone()}, Outputs: out.Clone(), Stage: stage}
}

// HasAlternatives reports whether the converter offers a choice of cost.
func (c Converter) HasAlternatives() bool { return len(c.Inputs) > 1 }

// Input returns the sole input bundle, or the first alternative.
func (c Converter) Input() Items {
	if len(c.Inputs) == 0 {
		return Items{}
	}
	return c.Inputs[0]
}

// Cost resolves the bundle charged for costType. Converters without
// alternatives ignore costType.
func (c Converter) Cost(costType int) (Items, error) {
	if !c.HasAlternatives() {
		return c.Input().Clone(), nil
	}
	if costType < 0 || costType >= len(c.Inputs) {
		return nil, NewError(KindLegality, fmt.Sprintf("cost option %d does not exist", costType))
	}
	return c.Inputs[costType].Clone(), nil
}

// Clone returns a deep copy.
func (c Converter) Clone() Converter {
	cp := c
	cp.Inputs = make([]Items, len(c.Inputs))
	for i, in := range c.Inputs {
		cp.Inputs[i] = in.Clone()
	}
	cp.Outputs = c.Outputs.Clone()
	return cp
}

// Reset clears the used flag.
func (c *Converter) Reset() { c.Used = false }

type converterJSON struct {
	InputItems   json.RawMessage `json:"input_items"`
	OutputItems  Items           `json:"output_items"`
	RunningStage Stage           `json:"running_stage"`
	Used         bool            `json:"used"`
}

// MarshalJSON renders input_items as an object for a single bundle and as an
// array when alternatives exist.
func (c Converter) MarshalJSON() ([]byte, error) {
	var (
		in  []byte
		err error
	)
	if c.HasAlternatives() {
		in, err = json.Marshal(c.Inputs)
	} else {
		in, err = json.Marshal(c.Input())
	}
	if err != nil {
		return nil, err
	}
	out := c.Outputs
	if out == nil {
		out = Items{}
	}
	return json.Marshal(converterJSON{InputItems: in, OutputItems: out, RunningStage: c.Stage, Used: c.Used})
}

// UnmarshalJSON accepts both input_items shapes.
func (c *Converter) UnmarshalJSON(data []byte) error {
	var raw converterJSON
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}
	inputs, err := decodeInputs(raw.InputItems)
	if err != nil {
		return err
	}
	c.Inputs = inputs
	c.Outputs = raw.OutputItems
	if c.Outputs == nil {
		c.Outputs = Items{}
	}
	c.Stage = raw.RunningStage
	c.Used = raw.Used
	return nil
}

func decodeInputs(raw json.RawMessage) ([]Items, error) {
	trimmed := bytes.TrimSpace(raw)
	if len(trimmed) == 0 || bytes.Equal(trimmed, []byte("null")) {
		return []Items{{}}, nil
	}
	if trimmed[0] == '[' {
		var alts []Items
		if err := json.Unmarshal(trimmed, &alts); err != nil {
			return nil, fmt.Errorf("decode input alternatives: %w", err)
		}
		if len(alts) == 0 {
			return []Items{{}}, nil
		}
		return alts, nil
	}
	var single Items
	if err := json.Unmarshal(trimmed, &single); err != nil {
		return nil, fmt.Errorf("decode input bundle: %w", err)
	}
	if single == nil {
		single = Items{}
	}
	return []Items{single}, nil
}
