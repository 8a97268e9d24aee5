package actions

import "github.com/astria/sequencer/pkg/sequencer"

// execRollupDataSubmission has no state mutation beyond the fee Execute
// already charged; the payload is handed back as a RollupSubmission for the
// proposal pipeline's per-rollup staging buffer (spec §4.4, §4.5).
func execRollupDataSubmission(ctx Context, a sequencer.RollupDataSubmission) (Result, error) {
	return Result{
		RollupSubmissions: []RollupSubmission{{RollupID: a.RollupID, Data: a.Data}},
	}, nil
}
