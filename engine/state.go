package engine

// queryState tracks a query through its stages. Any stage failure moves the
// query to stateFailed and aborts it; there are no retries within a stage.
type queryState int32

const (
	stateInit queryState = iota
	stateLocalAggregate
	stateShuffle
	stateGlobalAggregate
	stateDone
	stateFailed
)

func (s queryState) String() string {
	switch s {
	case stateInit:
		return "INIT"
	case stateLocalAggregate:
		return "LOCAL_AGGREGATE"
	case stateShuffle:
		return "SHUFFLE"
	case stateGlobalAggregate:
		return "GLOBAL_AGGREGATE"
	case stateDone:
		return "DONE"
	case stateFailed:
		return "FAILED"
	}
	return "UNKNOWN"
}
