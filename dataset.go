package regroup

import (
	"io"

	"github.com/ab180/regroup/partitions"
	"github.com/ab180/regroup/row"
)

// Dataset is a set of immutable partitions forming one logical dataset.
// Partition layout metadata claimed about it (query.Layout) is trusted as
// accurate and never verified by the engine.
type Dataset struct {
	Partitions []partitions.Partition
}

// FromPartitions wraps already-partitioned data without copying.
func FromPartitions(pp []partitions.Partition) *Dataset {
	return &Dataset{Partitions: pp}
}

// FromRows splits rows round-robin into numPartitions partitions.
func FromRows(rows []row.Row, numPartitions int) *Dataset {
	if numPartitions <= 0 {
		numPartitions = 1
	}
	pp := partitions.PlanForNumberOf(numPartitions)
	assigner := partitions.NewShuffledAssigner()
	for _, r := range rows {
		w, _ := assigner.DetermineWorker(nil, "", numPartitions)
		pp[w].Rows = append(pp[w].Rows, r)
	}
	return &Dataset{Partitions: pp}
}

// From converts arbitrary Go values (maps, structs, slices of either) into a
// dataset of numPartitions partitions.
func From(values interface{}, numPartitions int) (*Dataset, error) {
	rows, err := row.From(values)
	if err != nil {
		return nil, err
	}
	return FromRows(rows, numPartitions), nil
}

// FromNDJSON reads newline-delimited JSON objects into a dataset of
// numPartitions partitions.
func FromNDJSON(in io.Reader, numPartitions int) (*Dataset, error) {
	rows, err := row.FromNDJSON(in)
	if err != nil {
		return nil, err
	}
	return FromRows(rows, numPartitions), nil
}
