package engine

import (
	"context"
	"sort"
	"strconv"
	"testing"
	"time"

	"github.com/ab180/regroup/partitions"
	"github.com/ab180/regroup/query"
	"github.com/ab180/regroup/reduce"
	"github.com/ab180/regroup/row"
	"github.com/ab180/regroup/shuffle"
	"github.com/pkg/errors"
	. "github.com/smartystreets/goconvey/convey"
)

// categories spread unevenly over the test dataset
var testCategories = []string{"a", "a", "a", "a", "b", "b", "c", "c", "c", "d"}

// categorySumRows builds n rows keyed by category with value = row index.
func categorySumRows(n int) (rows []row.Row, expected map[string]float64) {
	expected = make(map[string]float64)
	for i := 0; i < n; i++ {
		cat := testCategories[i%len(testCategories)]
		rows = append(rows, row.Row{"category": cat, "value": i})
		expected[cat] += float64(i)
	}
	return
}

// splitRows distributes rows round-robin over numPartitions partitions.
func splitRows(rows []row.Row, numPartitions int) []partitions.Partition {
	pp := partitions.PlanForNumberOf(numPartitions)
	for i, r := range rows {
		w := i % numPartitions
		pp[w].Rows = append(pp[w].Rows, r)
	}
	return pp
}

// partitionByCategory groups rows into one sorted partition per category,
// making the layout claim of the indexed fast path actually hold.
func partitionByCategory(rows []row.Row) []partitions.Partition {
	byCat := make(map[string][]row.Row)
	for _, r := range rows {
		cat := r["category"].(string)
		byCat[cat] = append(byCat[cat], r)
	}
	cats := make([]string, 0, len(byCat))
	for c := range byCat {
		cats = append(cats, c)
	}
	sort.Strings(cats)

	pp := make([]partitions.Partition, len(cats))
	for i, c := range cats {
		pp[i] = partitions.Partition{ID: strconv.Itoa(i), Rows: byCat[c]}
	}
	return pp
}

func sumPlan() query.Plan {
	return query.Plan{
		GroupColumns: []string{"category"},
		Reduction:    query.Reduction{Aggregate: "sum", Column: "value"},
	}
}

func sumsOf(res *RunResult) map[string]float64 {
	sums := make(map[string]float64)
	for _, p := range res.Partitions {
		for _, r := range p.Rows {
			sums[r["category"].(string)] = r["sum"].(float64)
		}
	}
	return sums
}

func TestCategorySumScenario(t *testing.T) {
	// 4 partitions × 25 records, 4 categories spread unevenly, sum of value.
	// All three strategies must produce the same totals.
	rows, expected := categorySumRows(100)

	Convey("Given 100 category-keyed records", t, func() {
		e := New(testOptions(4))

		Convey("The aggregate path should compute correct sums", func() {
			res, err := e.Run(context.TODO(), splitRows(rows, 4), sumPlan())
			So(err, ShouldBeNil)
			So(sumsOf(res), ShouldResemble, expected)
		})

		Convey("The indexed fast path should match", func() {
			input := partitionByCategory(rows)
			plan := sumPlan()
			plan.Layout = query.Layout{PartitionedBy: []string{"category"}, Sorted: true}

			res, err := e.Run(context.TODO(), input, plan)
			So(err, ShouldBeNil)
			So(sumsOf(res), ShouldResemble, expected)

			Convey("And equal the general path on the same data with the layout claim dropped", func() {
				general, err := e.Run(context.TODO(), input, sumPlan())
				So(err, ShouldBeNil)
				So(sumsOf(general), ShouldResemble, sumsOf(res))
			})
		})

		Convey("The arbitrary-function path should match", func() {
			plan := sumPlan()
			plan.Reduction = query.Reduction{
				As: "sum",
				Func: reduce.GroupFuncOf(func(key string, rows []row.Row) (interface{}, error) {
					sum := 0.0
					for _, r := range rows {
						sum += float64(r["value"].(int))
					}
					return sum, nil
				}),
			}

			res, err := e.Run(context.TODO(), splitRows(rows, 4), plan)
			So(err, ShouldBeNil)
			So(sumsOf(res), ShouldResemble, expected)
		})

		Convey("With known keys the finite-key route should match too", func() {
			plan := sumPlan()
			plan.KnownKeys = []string{"a", "b", "c", "d"}

			res, err := e.Run(context.TODO(), splitRows(rows, 4), plan)
			So(err, ShouldBeNil)
			So(sumsOf(res), ShouldResemble, expected)
		})
	})
}

func TestPartitionCountInvariance(t *testing.T) {
	rows, expected := categorySumRows(100)

	Convey("The result must not depend on how the input is partitioned", t, func() {
		for _, numPartitions := range []int{1, 2, 4, 8, 25} {
			numPartitions := numPartitions
			Convey("With "+strconv.Itoa(numPartitions)+" partitions", func() {
				e := New(testOptions(4))
				res, err := e.Run(context.TODO(), splitRows(rows, numPartitions), sumPlan())
				So(err, ShouldBeNil)
				So(sumsOf(res), ShouldResemble, expected)
			})
		}
	})
}

func TestIdempotence(t *testing.T) {
	rows, _ := categorySumRows(100)
	input := splitRows(rows, 4)

	Convey("Re-running the same query on the same input must yield identical results", t, func() {
		e := New(testOptions(4))

		first, err := e.Run(context.TODO(), input, sumPlan())
		So(err, ShouldBeNil)
		second, err := e.Run(context.TODO(), input, sumPlan())
		So(err, ShouldBeNil)

		So(sumsOf(second), ShouldResemble, sumsOf(first))
	})
}

func TestBuiltinAggregates(t *testing.T) {
	rows := []row.Row{
		{"category": "a", "value": 1},
		{"category": "a", "value": 3},
		{"category": "a", "value": 3},
		{"category": "b", "value": 10},
	}
	input := splitRows(rows, 2)

	tcs := []struct {
		Aggregate string
		ExpectedA interface{}
		ExpectedB interface{}
	}{
		{Aggregate: "sum", ExpectedA: 7.0, ExpectedB: 10.0},
		{Aggregate: "count", ExpectedA: int64(3), ExpectedB: int64(1)},
		{Aggregate: "mean", ExpectedA: 7.0 / 3, ExpectedB: 10.0},
		{Aggregate: "min", ExpectedA: 1.0, ExpectedB: 10.0},
		{Aggregate: "max", ExpectedA: 3.0, ExpectedB: 10.0},
		{Aggregate: "nunique", ExpectedA: int64(2), ExpectedB: int64(1)},
	}

	Convey("Each built-in aggregate should produce correct grouped results", t, func() {
		for _, tc := range tcs {
			tc := tc
			Convey("Aggregating with "+tc.Aggregate, func() {
				e := New(testOptions(2))
				plan := query.Plan{
					GroupColumns: []string{"category"},
					Reduction:    query.Reduction{Aggregate: tc.Aggregate, Column: "value"},
				}
				res, err := e.Run(context.TODO(), input, plan)
				So(err, ShouldBeNil)

				byCat := make(map[string]interface{})
				for _, r := range resultRows(res) {
					byCat[r["category"].(string)] = r[tc.Aggregate]
				}
				So(byCat["a"], ShouldEqual, tc.ExpectedA)
				So(byCat["b"], ShouldEqual, tc.ExpectedB)
			})
		}
	})
}

func TestErrorTaxonomy(t *testing.T) {
	rows, _ := categorySumRows(40)
	input := splitRows(rows, 4)

	Convey("Given failing queries", t, func() {
		e := New(testOptions(4))

		Convey("An unresolvable column should fail before execution", func() {
			plan := sumPlan()
			plan.GroupColumns = []string{"nope"}

			res, err := e.Run(context.TODO(), input, plan)
			So(res, ShouldBeNil)

			var confErr *query.ConfigurationError
			So(errors.As(err, &confErr), ShouldBeTrue)
		})

		Convey("A key outside the known key set should fail the query", func() {
			plan := sumPlan()
			plan.KnownKeys = []string{"a", "b"} // c and d exist in the data

			res, err := e.Run(context.TODO(), input, plan)
			So(res, ShouldBeNil)

			var confErr *query.ConfigurationError
			So(errors.As(err, &confErr), ShouldBeTrue)
		})

		Convey("A failing user function should surface a ReductionError with the key", func() {
			plan := sumPlan()
			plan.Reduction = query.Reduction{
				Func: reduce.GroupFuncOf(func(key string, rows []row.Row) (interface{}, error) {
					if key == "c" {
						return nil, errors.New("boom")
					}
					return len(rows), nil
				}),
			}

			res, err := e.Run(context.TODO(), input, plan)
			So(res, ShouldBeNil)

			var redErr *reduce.ReductionError
			So(errors.As(err, &redErr), ShouldBeTrue)
			So(redErr.Key, ShouldEqual, "c")
		})

		Convey("A non-numeric value should surface a ReductionError", func() {
			bad := splitRows([]row.Row{
				{"category": "a", "value": 1},
				{"category": "a", "value": "oops"},
			}, 2)

			res, err := e.Run(context.TODO(), bad, sumPlan())
			So(res, ShouldBeNil)

			var redErr *reduce.ReductionError
			So(errors.As(err, &redErr), ShouldBeTrue)
		})
	})
}

// stallAssigner blocks worker 0's routing long enough for every other worker
// to hit the exchange barrier timeout, simulating a bucket that never arrives.
type stallAssigner struct {
	inner partitions.Assigner
	stall time.Duration
}

func (s *stallAssigner) DetermineWorker(c partitions.Context, key string, numWorkers int) (int, error) {
	if c.WorkerIndex() == 0 {
		time.Sleep(s.stall)
	}
	return s.inner.DetermineWorker(c, key, numWorkers)
}

func TestMissingBucketFailsQuery(t *testing.T) {
	rows, _ := categorySumRows(40)
	input := splitRows(rows, 4)

	Convey("When one worker's buckets never arrive in time", t, func() {
		opt := testOptions(2)
		opt.ShuffleTimeout = 50 * time.Millisecond
		opt.Assigner = &stallAssigner{
			inner: partitions.NewHashKeyAssigner(),
			stall: 500 * time.Millisecond,
		}

		res, err := New(opt).Run(context.TODO(), input, sumPlan())

		Convey("The query should fail with a TransferError and no partial result", func() {
			So(res, ShouldBeNil)

			var transferErr *shuffle.TransferError
			So(errors.As(err, &transferErr), ShouldBeTrue)
			So(transferErr.Missing, ShouldContain, 0)
		})
	})
}

func TestEmptyDataset(t *testing.T) {
	Convey("An empty dataset should produce an empty result", t, func() {
		res, err := New(testOptions(4)).Run(context.TODO(), nil, sumPlan())
		So(err, ShouldBeNil)
		So(res.Partitions, ShouldBeEmpty)
	})
}

func testOptions(concurrency int) Options {
	opt := DefaultOptions()
	opt.Concurrency = concurrency
	return opt
}

func resultRows(res *RunResult) (rows []row.Row) {
	for _, p := range res.Partitions {
		rows = append(rows, p.Rows...)
	}
	return
}
