package catalog

import (
	"fmt"
	"sort"

	"tradecore/pkg/domain"
)

// IssueLevel grades a validation finding.
type IssueLevel string

// Issue levels.
const (
	IssueError   IssueLevel = "error"
	IssueWarning IssueLevel = "warning"
)

// Issue is a single validation finding.
type Issue struct {
	Level   IssueLevel
	Subject string
	Message string
}

func (i Issue) String() string {
	return fmt.Sprintf("%s: %s: %s", i.Level, i.Subject, i.Message)
}

// Validate cross-checks references inside the catalog. Structural problems
// are already rejected by Load; this pass reports dangling names.
func (l *Library) Validate() []Issue {
	var issues []Issue
	add := func(level IssueLevel, subject, format string, args ...any) {
		issues = append(issues, Issue{Level: level, Subject: subject, Message: fmt.Sprintf(format, args...)})
	}
	for _, name := range l.speciesOrder {
		sp := l.species[name]
		for _, start := range sp.StartFactories {
			if _, ok := sp.factories[start]; !ok {
				add(IssueError, name, "starting factory %q is not defined", start)
			}
		}
		for _, fname := range sp.order {
			f := sp.factories[fname]
			subject := name + "/" + fname
			switch feat := f.Feature.(type) {
			case *domain.NormalFeature:
				if feat.Upgraded {
					continue
				}
				if feat.UpgradeFactory != "" {
					if _, ok := sp.factories[feat.UpgradeFactory]; !ok {
						add(IssueError, subject, "upgrade target %q is not defined", feat.UpgradeFactory)
					}
					if len(feat.UpgradeCost) == 0 {
						add(IssueWarning, subject, "upgrade to %q has no cost options", feat.UpgradeFactory)
					}
				}
				for _, opt := range feat.UpgradeCost {
					if opt.Converter == nil {
						if _, ok := sp.factories[opt.Factory]; !ok {
							add(IssueError, subject, "upgrade cost factory %q is not defined", opt.Factory)
						}
					}
				}
				if feat.Interest && !interestShaped(f) {
					add(IssueError, subject, "interest factory needs an Arbitrary input slot")
				}
			case *domain.MetaFeature:
				if _, ok := sp.factories[feat.UnlockFactory]; !ok {
					add(IssueError, subject, "unlock target %q is not defined", feat.UnlockFactory)
				}
			}
			for i, conv := range f.Converters {
				if !conv.Stage.Valid() || conv.Stage == domain.StageLobby {
					add(IssueError, subject, "converter %d has unknown stage %q", i, conv.Stage)
				}
			}
		}
	}
	for _, card := range l.researches {
		r, _ := card.Research()
		if r.Tech == "" {
			add(IssueWarning, card.Name, "research card grants no technology")
			continue
		}
		if _, ok := l.techs[r.Tech]; !ok {
			add(IssueError, card.Name, "technology %q has no generic tech factory", r.Tech)
		}
		if len(card.Converters) != 1 {
			add(IssueError, card.Name, "research card must have exactly one converter")
		}
	}
	for _, card := range l.colonies {
		if _, ok := l.upgradedColonies[card.Name]; !ok {
			add(IssueWarning, card.Name, "colony has no upgraded side")
		}
		col, _ := card.Colony()
		if !domain.IsClimate(col.Climate) {
			add(IssueError, card.Name, "unknown climate %q", col.Climate)
		}
	}
	for base := range l.upgradedColonies {
		found := false
		for _, card := range l.colonies {
			if card.Name == base {
				found = true
				break
			}
		}
		if !found {
			add(IssueWarning, base+UpgradedColonySuffix, "upgraded colony has no base card")
		}
	}
	sort.SliceStable(issues, func(i, j int) bool {
		if issues[i].Level != issues[j].Level {
			return issues[i].Level == IssueError
		}
		return false
	})
	return issues
}

// HasErrors reports whether any issue is an error.
func HasErrors(issues []Issue) bool {
	for _, i := range issues {
		if i.Level == IssueError {
			return true
		}
	}
	return false
}

func interestShaped(f *domain.Factory) bool {
	if len(f.Converters) == 0 {
		return false
	}
	in := f.Converters[0].Input()
	return in[domain.ItemArbitrarySmall] > 0 || in[domain.ItemArbitraryBig] > 0
}
