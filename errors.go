package regroup

import (
	"github.com/ab180/regroup/query"
	"github.com/ab180/regroup/reduce"
	"github.com/ab180/regroup/shuffle"
)

// The error taxonomy of a query. Every failure aborts the whole query and
// surfaces as exactly one of these, wrapped with the failing stage and
// worker; match with errors.As.
type (
	// ConfigurationError: the plan could not be resolved against the schema.
	// Detected before execution.
	ConfigurationError = query.ConfigurationError

	// TransferError: a shuffle exchange did not complete within the bounded
	// wait. Never retried automatically; resubmit the whole query.
	TransferError = shuffle.TransferError

	// ReductionError: a reducer or user-supplied function failed on a key.
	ReductionError = reduce.ReductionError
)
