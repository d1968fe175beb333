package estimation

import (
	"fmt"

	"github.com/reactiontech/websa-api/internal/domain/apperr"
	"github.com/reactiontech/websa-api/internal/domain/entity"
)

// Aggregator stacks feature vectors in the order they are added and drops
// the ones without a detected pose.
type Aggregator struct {
	rows    [][]float64
	width   int
	sampled int
}

func (a *Aggregator) Add(v entity.FeatureVector) error {
	a.sampled++
	if !v.Detected {
		return nil
	}
	if len(a.rows) == 0 {
		a.width = len(v.Values)
	} else if len(v.Values) != a.width {
		return apperr.Shape("aggregate",
			fmt.Sprintf("frame %d has %d features, previous rows have %d", v.FrameIndex, len(v.Values), a.width))
	}
	a.rows = append(a.rows, v.Values)
	return nil
}

// Sampled counts every added vector, detected or not.
func (a *Aggregator) Sampled() int { return a.sampled }

// Matrix fails with an empty-result error when no row had a pose.
func (a *Aggregator) Matrix() (entity.FeatureMatrix, error) {
	if len(a.rows) == 0 {
		return entity.FeatureMatrix{}, apperr.EmptyResult("aggregate")
	}
	return entity.FeatureMatrix{Rows: a.rows, Width: a.width}, nil
}

func Aggregate(vectors []entity.FeatureVector) (entity.FeatureMatrix, error) {
	var a Aggregator
	for _, v := range vectors {
		if err := a.Add(v); err != nil {
			return entity.FeatureMatrix{}, err
		}
	}
	return a.Matrix()
}
