package estimation

import (
	"fmt"
	"math"

	"github.com/reactiontech/websa-api/internal/domain/apperr"
	"github.com/reactiontech/websa-api/internal/domain/entity"
)

// Compose appends the derived features to the landmark vector: currently the
// 3D distance between landmark 0 (nose) and landmark 1 (left eye inner).
func Compose(pose entity.PoseResult) (entity.FeatureVector, error) {
	lm := pose.Landmarks
	if len(lm) != entity.LandmarkVectorLen {
		return entity.FeatureVector{}, apperr.Shape("compose features",
			fmt.Sprintf("landmark vector has %d values, want %d", len(lm), entity.LandmarkVectorLen))
	}

	values := make([]float64, 0, entity.FeatureVectorLen)
	values = append(values, lm...)
	values = append(values, Distance3D(lm[0:3], lm[3:6]))

	return entity.FeatureVector{
		FrameIndex: pose.FrameIndex,
		Values:     values,
		Detected:   pose.Detected,
	}, nil
}

func Distance3D(a, b []float64) float64 {
	dx := a[0] - b[0]
	dy := a[1] - b[1]
	dz := a[2] - b[2]
	return math.Sqrt(dx*dx + dy*dy + dz*dz)
}
