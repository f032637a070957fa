package domain

import "encoding/json"

// Factory is a named holder of converters plus a typed feature. Owner is the
// species of the rightful owner, or OwnerNone for deck cards.
type Factory struct {
	Name       string
	Converters []Converter
	Owner      string
	Feature    Feature
	Preview    []Converter
	RunCount   int
}

// Kind returns the feature kind, treating a missing feature as normal.
func (f *Factory) Kind() FeatureKind {
	if f.Feature == nil {
		return FeatureNormal
	}
	return f.Feature.Kind()
}

// Normal returns the normal feature, if that is the variant.
func (f *Factory) Normal() (*NormalFeature, bool) {
	n, ok := f.Feature.(*NormalFeature)
	return n, ok
}

// Colony returns the colony feature, if that is the variant.
func (f *Factory) Colony() (*ColonyFeature, bool) {
	c, ok := f.Feature.(*ColonyFeature)
	return c, ok
}

// Research returns the research feature, if that is the variant.
func (f *Factory) Research() (*ResearchFeature, bool) {
	r, ok := f.Feature.(*ResearchFeature)
	return r, ok
}

// Meta returns the meta feature, if that is the variant.
func (f *Factory) Meta() (*MetaFeature, bool) {
	m, ok := f.Feature.(*MetaFeature)
	return m, ok
}

// MustLend reports whether the owner species is barred from running it.
func (f *Factory) MustLend() bool {
	n, ok := f.Normal()
	return ok && n.MustLend
}

// Interest reports whether the factory uses wildcard combination input.
func (f *Factory) Interest() bool {
	n, ok := f.Normal()
	return ok && n.Interest
}

// DoubleRun reports whether the colony locks only after two runs.
func (f *Factory) DoubleRun() bool {
	c, ok := f.Colony()
	return ok && c.DoubleRun
}

// AnyUsed reports whether at least one converter is locked.
func (f *Factory) AnyUsed() bool {
	for _, c := range f.Converters {
		if c.Used {
			return true
		}
	}
	return false
}

// Reset clears the used flag of every converter and the run count.
func (f *Factory) Reset() {
	for i := range f.Converters {
		f.Converters[i].Reset()
	}
	f.RunCount = 0
}

// Clone returns a deep copy.
func (f *Factory) Clone() *Factory {
	if f == nil {
		return nil
	}
	cp := &Factory{Name: f.Name, Owner: f.Owner, RunCount: f.RunCount}
	cp.Converters = cloneConverters(f.Converters)
	cp.Preview = cloneConverters(f.Preview)
	if f.Feature != nil {
		cp.Feature = f.Feature.CloneFeature()
	}
	return cp
}

func cloneConverters(in []Converter) []Converter {
	if in == nil {
		return nil
	}
	out := make([]Converter, len(in))
	for i, c := range in {
		out[i] = c.Clone()
	}
	return out
}

type factoryJSON struct {
	Name       string          `json:"name"`
	Converters []Converter     `json:"converters"`
	Owner      string          `json:"owner"`
	Feature    json.RawMessage `json:"feature"`
	Preview    []Converter     `json:"preview"`
	RunCount   int             `json:"run_count"`
}

// MarshalJSON renders the factory with its feature envelope.
func (f Factory) MarshalJSON() ([]byte, error) {
	feature, err := MarshalFeature(f.Feature)
	if err != nil {
		return nil, err
	}
	convs := f.Converters
	if convs == nil {
		convs = []Converter{}
	}
	return json.Marshal(factoryJSON{
		Name:       f.Name,
		Converters: convs,
		Owner:      f.Owner,
		Feature:    feature,
		Preview:    f.Preview,
		RunCount:   f.RunCount,
	})
}

// UnmarshalJSON decodes the factory and its feature envelope.
func (f *Factory) UnmarshalJSON(data []byte) error {
	var raw factoryJSON
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}
	feature, err := UnmarshalFeature(raw.Feature)
	if err != nil {
		return err
	}
	*f = Factory{
		Name:       raw.Name,
		Converters: raw.Converters,
		Owner:      raw.Owner,
		Feature:    feature,
		Preview:    raw.Preview,
		RunCount:   raw.RunCount,
	}
	return nil
}
