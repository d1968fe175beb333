package estimation

import (
	"context"
	"fmt"

	"github.com/reactiontech/websa-api/internal/domain/apperr"
	"github.com/reactiontech/websa-api/internal/domain/entity"
	"github.com/reactiontech/websa-api/internal/domain/port"
)

// Predict runs the model on every row of m and returns the mean prediction.
func Predict(ctx context.Context, model port.HeightModel, m entity.FeatureMatrix) (float64, error) {
	const op = "predict height"

	if m.Len() == 0 {
		return 0, apperr.EmptyResult(op)
	}
	if want := model.InputWidth(); m.Width != want {
		return 0, apperr.ShapeMismatch(op, m.Width, want)
	}

	preds, err := model.Predict(ctx, m.Rows)
	if err != nil {
		if ctxErr := ctx.Err(); ctxErr != nil {
			return 0, ctxErr
		}
		return 0, apperr.ExternalModel(op, err)
	}
	if len(preds) != m.Len() {
		return 0, apperr.ExternalModel(op, fmt.Errorf("model returned %d predictions for %d rows", len(preds), m.Len()))
	}

	var sum float64
	for _, p := range preds {
		sum += p
	}
	return sum / float64(len(preds)), nil
}
