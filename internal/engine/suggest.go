package engine

import (
	"strings"

	"github.com/agnivade/levenshtein"

	"tradecore/pkg/domain"
)

func suggestLimit(length int) int {
	switch {
	case length <= 4:
		return 1
	case length <= 8:
		return 2
	default:
		return 3
	}
}

// closest returns the candidate nearest to name within the edit-distance
// limit for its length, or "" when none is close enough.
func closest(name string, candidates []string) string {
	best, bestDist := "", -1
	lower := strings.ToLower(name)
	for _, cand := range candidates {
		dist := levenshtein.ComputeDistance(lower, strings.ToLower(cand))
		if dist > suggestLimit(len(cand)) {
			continue
		}
		if bestDist < 0 || dist < bestDist || (dist == bestDist && cand < best) {
			best, bestDist = cand, dist
		}
	}
	return best
}

// unknown builds an identity error with a "did you mean" hint.
func unknown(entity, name string, candidates []string) error {
	if hint := closest(name, candidates); hint != "" && hint != name {
		return domain.Errorf(domain.KindIdentity, "unknown %s %q (did you mean %q?)", entity, name, hint)
	}
	return domain.Errorf(domain.KindIdentity, "unknown %s %q", entity, name)
}
