package tcvdb

import (
	"context"

	"github.com/Aleph-Alpha/vdbclient/v1/tcvdb/wire"
	"github.com/Aleph-Alpha/vdbclient/v1/vectordb"
)

// Ceiling bounds the documents carried by one write request.
// A zero field disables that bound.
type Ceiling struct {
	MaxDocuments int
	MaxBytes     int
}

// batchRange is the half-open index range [start, end) of one sub-batch.
type batchRange struct {
	start, end int
}

func (r batchRange) len() int { return r.end - r.start }

// partition splits items of the given encoded sizes into ordered, disjoint
// sub-batches. A new sub-batch starts when the next item would exceed either
// bound; an item larger than MaxBytes travels alone.
func partition(sizes []int, c Ceiling) []batchRange {
	var out []batchRange
	start, bytes := 0, 0
	for i, size := range sizes {
		n := i - start
		if n > 0 && ((c.MaxDocuments > 0 && n >= c.MaxDocuments) || (c.MaxBytes > 0 && bytes+size > c.MaxBytes)) {
			out = append(out, batchRange{start: start, end: i})
			start, bytes = i, 0
		}
		bytes += size
	}
	if start < len(sizes) {
		out = append(out, batchRange{start: start, end: len(sizes)})
	}
	return out
}

// documentSizes returns the encoded size of every document.
func documentSizes(docs []wire.Document) ([]int, error) {
	sizes := make([]int, len(docs))
	for i, d := range docs {
		b, err := wire.Marshal(d)
		if err != nil {
			return nil, err
		}
		sizes[i] = len(b)
	}
	return sizes, nil
}

// idSizes approximates the encoded size of every id in a JSON array.
func idSizes(ids []string) []int {
	sizes := make([]int, len(ids))
	for i, id := range ids {
		sizes[i] = len(id) + 3
	}
	return sizes
}

// sendBatch encodes and dispatches the sub-batch covering r.
type sendBatch func(ctx context.Context, r batchRange) (*wire.WriteResponse, error)

// runBatches dispatches sub-batches one after another and aggregates their
// results. The first failure stops the run. When there was more than one
// sub-batch the failure is reported as a PartialBatchFailureError; a single
// sub-batch surfaces the dispatcher error as is.
func (c *Client) runBatches(ctx context.Context, method Method, ranges []batchRange, send sendBatch) (*vectordb.WriteResult, error) {
	result := &vectordb.WriteResult{Batches: len(ranges)}
	succeeded := 0

	for i, r := range ranges {
		var err error
		if ctxErr := ctx.Err(); ctxErr != nil {
			err = &CancelledError{Method: method, Target: c.cfg.Endpoint, Err: ctxErr}
		}

		var resp *wire.WriteResponse
		if err == nil {
			resp, err = send(ctx, r)
		}
		if err != nil {
			if len(ranges) == 1 {
				return nil, err
			}
			return nil, &PartialBatchFailureError{
				Method:             method,
				FailedBatch:        i,
				TotalBatches:       len(ranges),
				SucceededBatches:   i,
				SucceededDocuments: succeeded,
				AffectedCount:      result.AffectedCount,
				Warnings:           result.Warnings,
				Err:                err,
			}
		}

		succeeded += r.len()
		result.AffectedCount += resp.AffectedCount
		if resp.Warning != "" {
			result.Warnings = append(result.Warnings, resp.Warning)
		}
		if resp.EmbeddingExtraInfo != nil {
			result.TokensUsed += resp.EmbeddingExtraInfo.TokenUsed
		}

		if len(ranges) > 1 {
			c.logDebug(ctx, "[TCVDB] sub-batch written", map[string]interface{}{
				"method":   string(method),
				"batch":    i,
				"batches":  len(ranges),
				"start":    r.start,
				"end":      r.end,
				"affected": resp.AffectedCount,
			})
		}
	}
	return result, nil
}
