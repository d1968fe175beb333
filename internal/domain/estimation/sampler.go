// Package estimation turns a decoded video into a height estimate: stride
// sampling, landmark extraction, feature composition, aggregation and
// prediction. It depends only on ports so it can be tested with fakes.
package estimation

import (
	"context"
	"iter"

	"github.com/reactiontech/websa-api/internal/domain/apperr"
	"github.com/reactiontech/websa-api/internal/domain/entity"
	"github.com/reactiontech/websa-api/internal/domain/port"
)

// TruncatedFunc receives the read error that ended a stream after at least
// one frame was read. idx is the index of the frame that failed.
type TruncatedFunc func(idx int, err error)

// Sample yields frames 0, stride, 2*stride, ... from r. The sequence is lazy
// and single use; r is closed when iteration ends, whether by end of stream,
// a decode failure, the consumer stopping early or ctx being done. A read
// error on the very first frame is yielded as a Decode error; later read
// errors end the sequence like end of stream. Cancellation is yielded as the
// context error.
func Sample(ctx context.Context, r port.FrameReader, stride int) iter.Seq2[entity.Frame, error] {
	return sample(ctx, r, stride, nil)
}

func sample(ctx context.Context, r port.FrameReader, stride int, onTruncated TruncatedFunc) iter.Seq2[entity.Frame, error] {
	if stride < 1 {
		stride = 1
	}
	used := false
	return func(yield func(entity.Frame, error) bool) {
		if used {
			return
		}
		used = true
		defer r.Close()

		for idx := 0; ; idx++ {
			if err := ctx.Err(); err != nil {
				yield(entity.Frame{}, err)
				return
			}
			keep := idx%stride == 0
			frame, ok, err := r.Next(keep)
			if err != nil {
				if idx == 0 {
					yield(entity.Frame{}, apperr.Decode("read first frame", err))
				} else if onTruncated != nil {
					onTruncated(idx, err)
				}
				return
			}
			if !ok {
				return
			}
			if !keep {
				continue
			}
			frame.Index = idx
			if !yield(frame, nil) {
				return
			}
		}
	}
}
