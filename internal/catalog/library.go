// Package catalog loads the static factory definitions and card decks that
// every game draws from.
package catalog

import (
	"bytes"
	"embed"
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path"
	"sort"
	"strings"

	"tradecore/pkg/domain"
)

//go:embed data
var embedded embed.FS

// UpgradedColonySuffix marks the upgraded side of a colony card.
const UpgradedColonySuffix = "+"

// Species holds the static definition of one playable species.
type Species struct {
	Name           string
	DisplayName    string
	Traits         domain.SpeciesTraits
	StartItems     domain.Items
	StartFactories []string
	factories      map[string]*domain.Factory
	order          []string
}

// FactoryNames returns the species' factory names in file order.
func (s *Species) FactoryNames() []string { return append([]string(nil), s.order...) }

// Library is an immutable, loaded catalog. Every accessor hands out fresh
// clones so no two holders ever share a factory.
type Library struct {
	species          map[string]*Species
	speciesOrder     []string
	techs            map[string]*domain.Factory
	researches       []*domain.Factory
	colonies         []*domain.Factory
	upgradedColonies map[string]*domain.Factory
}

// Default loads the catalog bundled with the binary.
func Default() (*Library, error) {
	sub, err := fs.Sub(embedded, "data")
	if err != nil {
		return nil, err
	}
	return Load(sub)
}

// LoadDir loads a catalog from a directory on disk.
func LoadDir(dir string) (*Library, error) {
	return Load(os.DirFS(dir))
}

// Load reads species/*.json, techs.json, researches.json and colonies.json
// from fsys.
func Load(fsys fs.FS) (*Library, error) {
	lib := &Library{
		species:          map[string]*Species{},
		techs:            map[string]*domain.Factory{},
		upgradedColonies: map[string]*domain.Factory{},
	}
	speciesFiles, err := fs.Glob(fsys, "species/*.json")
	if err != nil {
		return nil, err
	}
	if len(speciesFiles) == 0 {
		return nil, errors.New("catalog: no species definitions found")
	}
	sort.Strings(speciesFiles)
	for _, file := range speciesFiles {
		if err := lib.loadSpecies(fsys, file); err != nil {
			return nil, err
		}
	}
	if err := lib.loadTechs(fsys); err != nil {
		return nil, err
	}
	if err := lib.loadResearches(fsys); err != nil {
		return nil, err
	}
	if err := lib.loadColonies(fsys); err != nil {
		return nil, err
	}
	lib.generatePreviews()
	return lib, nil
}

type speciesFile struct {
	Name          string          `json:"name"`
	DisplayName   string          `json:"display_name"`
	StartResource startResource   `json:"start_resource"`
	Factories     []factoryRecord `json:"factories"`
}

type startResource struct {
	Items     itemSpec `json:"items"`
	Factories []string `json:"factories"`
}

// itemSpec accepts either a resource object or a notation string.
type itemSpec domain.Items

func (s *itemSpec) UnmarshalJSON(data []byte) error {
	trimmed := bytes.TrimSpace(data)
	if len(trimmed) > 0 && trimmed[0] == '"' {
		var text string
		if err := json.Unmarshal(trimmed, &text); err != nil {
			return err
		}
		items, err := ParseItems(text, false)
		if err != nil {
			return err
		}
		*s = itemSpec(items)
		return nil
	}
	var items domain.Items
	if err := json.Unmarshal(trimmed, &items); err != nil {
		return err
	}
	*s = itemSpec(items)
	return nil
}

// factoryRecord is the on-disk factory form. Converters may be written as
// notation strings or as converter objects.
type factoryRecord struct {
	Name       string            `json:"name"`
	Converters []json.RawMessage `json:"converters"`
	Feature    json.RawMessage   `json:"feature"`
}

func (r factoryRecord) build(owner string) (*domain.Factory, error) {
	if strings.TrimSpace(r.Name) == "" {
		return nil, errors.New("factory without name")
	}
	feature, err := domain.UnmarshalFeature(r.Feature)
	if err != nil {
		return nil, fmt.Errorf("factory %s: %w", r.Name, err)
	}
	defaultStage := domain.ConverterProduction
	switch feature.Kind() {
	case domain.FeatureResearch, domain.FeatureMeta:
		defaultStage = domain.ConverterTrading
	}
	f := &domain.Factory{Name: r.Name, Owner: owner, Feature: feature}
	for i, raw := range r.Converters {
		conv, err := decodeConverter(raw, defaultStage)
		if err != nil {
			return nil, fmt.Errorf("factory %s converter %d: %w", r.Name, i, err)
		}
		f.Converters = append(f.Converters, conv)
	}
	if len(f.Converters) == 0 {
		return nil, fmt.Errorf("factory %s has no converters", r.Name)
	}
	return f, nil
}

func decodeConverter(raw json.RawMessage, defaultStage domain.Stage) (domain.Converter, error) {
	trimmed := bytes.TrimSpace(raw)
	if len(trimmed) > 0 && trimmed[0] == '"' {
		var text string
		if err := json.Unmarshal(trimmed, &text); err != nil {
			return domain.Converter{}, err
		}
		return ParseConverter(text)
	}
	var conv domain.Converter
	if err := json.Unmarshal(trimmed, &conv); err != nil {
		return domain.Converter{}, err
	}
	if conv.Stage == "" {
		conv.Stage = defaultStage
	}
	return conv, nil
}

func readJSON(fsys fs.FS, name string, v any) error {
	data, err := fs.ReadFile(fsys, name)
	if err != nil {
		return fmt.Errorf("catalog: read %s: %w", name, err)
	}
	if err := json.Unmarshal(data, v); err != nil {
		return fmt.Errorf("catalog: decode %s: %w", name, err)
	}
	return nil
}

func (l *Library) loadSpecies(fsys fs.FS, file string) error {
	var sf speciesFile
	if err := readJSON(fsys, file, &sf); err != nil {
		return err
	}
	name := sf.Name
	if name == "" {
		name = strings.TrimSuffix(path.Base(file), ".json")
	}
	if _, dup := l.species[name]; dup {
		return fmt.Errorf("catalog: species %s defined twice", name)
	}
	traits, ok := domain.Traits(name)
	if !ok {
		return fmt.Errorf("catalog: species %s has no trait record", name)
	}
	sp := &Species{
		Name:           name,
		DisplayName:    sf.DisplayName,
		Traits:         traits,
		StartItems:     domain.Items(sf.StartResource.Items).Clone(),
		StartFactories: append([]string(nil), sf.StartResource.Factories...),
		factories:      map[string]*domain.Factory{},
	}
	if sp.DisplayName == "" {
		sp.DisplayName = traits.DisplayName
	}
	for _, rec := range sf.Factories {
		f, err := rec.build(name)
		if err != nil {
			return fmt.Errorf("catalog: species %s: %w", name, err)
		}
		if _, dup := sp.factories[f.Name]; dup {
			return fmt.Errorf("catalog: species %s: duplicate factory %s", name, f.Name)
		}
		sp.factories[f.Name] = f
		sp.order = append(sp.order, f.Name)
	}
	l.species[name] = sp
	l.speciesOrder = append(l.speciesOrder, name)
	return nil
}

func (l *Library) loadTechs(fsys fs.FS) error {
	var recs []factoryRecord
	if err := readJSON(fsys, "techs.json", &recs); err != nil {
		return err
	}
	for _, rec := range recs {
		f, err := rec.build(domain.OwnerNone)
		if err != nil {
			return fmt.Errorf("catalog: techs: %w", err)
		}
		if _, dup := l.techs[f.Name]; dup {
			return fmt.Errorf("catalog: duplicate tech factory %s", f.Name)
		}
		l.techs[f.Name] = f
	}
	return nil
}

func (l *Library) loadResearches(fsys fs.FS) error {
	var recs []factoryRecord
	if err := readJSON(fsys, "researches.json", &recs); err != nil {
		return err
	}
	seen := map[string]bool{}
	for _, rec := range recs {
		f, err := rec.build(domain.OwnerNone)
		if err != nil {
			return fmt.Errorf("catalog: researches: %w", err)
		}
		if _, ok := f.Research(); !ok {
			return fmt.Errorf("catalog: research card %s is not a Research factory", f.Name)
		}
		if seen[f.Name] {
			return fmt.Errorf("catalog: duplicate research card %s", f.Name)
		}
		seen[f.Name] = true
		l.researches = append(l.researches, f)
	}
	return nil
}

func (l *Library) loadColonies(fsys fs.FS) error {
	var recs []factoryRecord
	if err := readJSON(fsys, "colonies.json", &recs); err != nil {
		return err
	}
	seen := map[string]bool{}
	for _, rec := range recs {
		f, err := rec.build(domain.OwnerNone)
		if err != nil {
			return fmt.Errorf("catalog: colonies: %w", err)
		}
		col, ok := f.Colony()
		if !ok {
			return fmt.Errorf("catalog: colony card %s is not a Colony factory", f.Name)
		}
		if seen[f.Name] {
			return fmt.Errorf("catalog: duplicate colony card %s", f.Name)
		}
		seen[f.Name] = true
		if base, upgraded := strings.CutSuffix(f.Name, UpgradedColonySuffix); upgraded {
			col.Upgraded = true
			l.upgradedColonies[base] = f
			continue
		}
		l.colonies = append(l.colonies, f)
	}
	return nil
}

func (l *Library) generatePreviews() {
	for _, name := range l.speciesOrder {
		sp := l.species[name]
		for _, fname := range sp.order {
			f := sp.factories[fname]
			switch feat := f.Feature.(type) {
			case *domain.NormalFeature:
				if feat.Upgraded || feat.UpgradeFactory == "" {
					continue
				}
				if target, ok := sp.factories[feat.UpgradeFactory]; ok {
					f.Preview = target.Clone().Converters
				}
			case *domain.MetaFeature:
				if target, ok := sp.factories[feat.UnlockFactory]; ok {
					f.Preview = target.Clone().Converters
				}
			}
		}
	}
	for _, colony := range l.colonies {
		upgraded, ok := l.upgradedColonies[colony.Name]
		if !ok {
			continue
		}
		colony.Preview = upgraded.Clone().Converters
		col, _ := colony.Colony()
		if upCol, ok := upgraded.Colony(); ok {
			col.UpgradeClimate = upCol.Climate
		}
	}
}

// SpeciesNames lists the loaded species in load order.
func (l *Library) SpeciesNames() []string { return append([]string(nil), l.speciesOrder...) }

// Species returns the definition of a loaded species.
func (l *Library) Species(name string) (*Species, bool) {
	sp, ok := l.species[name]
	return sp, ok
}

// Factory returns a fresh instance of a species factory owned by that species.
func (l *Library) Factory(species, name string) (*domain.Factory, bool) {
	sp, ok := l.species[species]
	if !ok {
		return nil, false
	}
	f, ok := sp.factories[name]
	if !ok {
		return nil, false
	}
	cp := f.Clone()
	cp.Owner = species
	return cp, true
}

// StartingFactories returns fresh instances of the species' starting
// factories followed by every Meta trigger factory it defines.
func (l *Library) StartingFactories(species string) ([]*domain.Factory, error) {
	sp, ok := l.species[species]
	if !ok {
		return nil, fmt.Errorf("catalog: unknown species %s", species)
	}
	seen := map[string]bool{}
	var out []*domain.Factory
	for _, name := range sp.StartFactories {
		f, ok := l.Factory(species, name)
		if !ok {
			return nil, fmt.Errorf("catalog: species %s starts with unknown factory %s", species, name)
		}
		seen[name] = true
		out = append(out, f)
	}
	for _, name := range sp.order {
		if seen[name] || sp.factories[name].Kind() != domain.FeatureMeta {
			continue
		}
		f, _ := l.Factory(species, name)
		out = append(out, f)
	}
	return out, nil
}

// TechFactoryName is the species-specific name of a tech factory.
func TechFactoryName(species, tech string) string {
	return species + "_" + tech
}

// TechFactory resolves the factory a species receives for a technology:
// the species override "<species>_<tech>" if defined, otherwise a copy of the
// generic tech factory renamed to the same species-qualified name.
func (l *Library) TechFactory(species, tech string) (*domain.Factory, bool) {
	if f, ok := l.Factory(species, TechFactoryName(species, tech)); ok {
		return f, true
	}
	generic, ok := l.techs[tech]
	if !ok {
		return nil, false
	}
	cp := generic.Clone()
	cp.Name = TechFactoryName(species, tech)
	cp.Owner = species
	return cp, true
}

// UpgradedColony returns a fresh instance of the upgraded side of a colony.
func (l *Library) UpgradedColony(name string) (*domain.Factory, bool) {
	f, ok := l.upgradedColonies[name]
	if !ok {
		return nil, false
	}
	return f.Clone(), true
}

// Techs lists the generic technology names.
func (l *Library) Techs() []string {
	out := make([]string, 0, len(l.techs))
	for name := range l.techs {
		out = append(out, name)
	}
	sort.Strings(out)
	return out
}

// ResearchCards returns fresh copies of every research card in file order.
func (l *Library) ResearchCards() []*domain.Factory { return cloneAll(l.researches) }

// ColonyCards returns fresh copies of every drawable colony card in file order.
func (l *Library) ColonyCards() []*domain.Factory { return cloneAll(l.colonies) }

// FactoryNames lists every factory name the catalog can produce for
// suggestions on unknown names.
func (l *Library) FactoryNames() []string {
	var out []string
	for _, sp := range l.speciesOrder {
		out = append(out, l.species[sp].order...)
	}
	for name := range l.techs {
		out = append(out, name)
	}
	for _, f := range l.researches {
		out = append(out, f.Name)
	}
	for _, f := range l.colonies {
		out = append(out, f.Name)
	}
	sort.Strings(out)
	return out
}

func cloneAll(in []*domain.Factory) []*domain.Factory {
	out := make([]*domain.Factory, len(in))
	for i, f := range in {
		out[i] = f.Clone()
	}
	return out
}
