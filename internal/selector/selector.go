// Package selector picks one prize per draw by walking cumulative probabilities.
//
// Probabilities are never re-normalized. When they sum below one and the random
// value falls past the total, the last prize wins, so activities order their
// NO_PRIZE sentinel last.
package selector

import (
	"math/rand/v2"

	activitydomain "github.com/smallbiznis/lottery/internal/activity/domain"
)

// Source yields uniform values in [0, 1). It must be safe for concurrent use.
type Source func() float64

type Selector struct {
	next Source
}

func New(src Source) *Selector {
	if src == nil {
		src = rand.Float64
	}
	return &Selector{next: src}
}

func Provide() *Selector {
	return New(nil)
}

// Select returns nil for an empty prize list.
func (s *Selector) Select(prizes []activitydomain.Prize) *activitydomain.Prize {
	if len(prizes) == 0 {
		return nil
	}
	return Pick(prizes, s.next())
}

// Pick returns the first prize whose running probability sum reaches r.
func Pick(prizes []activitydomain.Prize, r float64) *activitydomain.Prize {
	if len(prizes) == 0 {
		return nil
	}

	cumulative := 0.0
	for i := range prizes {
		cumulative += prizes[i].Probability
		if cumulative >= r {
			return &prizes[i]
		}
	}
	return &prizes[len(prizes)-1]
}
