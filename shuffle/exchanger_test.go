package shuffle

import (
	"context"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/ab180/regroup/partitions"
	"github.com/pkg/errors"
	. "github.com/smartystreets/goconvey/convey"
	"go.uber.org/goleak"
)

const numTestWorkers = 4

func bucketsFrom(source int) []Bucket {
	bb := make([]Bucket, numTestWorkers)
	for dest := range bb {
		bb[dest] = Bucket{Items: []Item{{Key: fmt.Sprintf("%d->%d", source, dest)}}}
	}
	return bb
}

func TestExchange(t *testing.T) {
	defer goleak.VerifyNone(t)

	Convey("Given an all-to-all exchange between 4 workers", t, func(c C) {
		ex := NewExchanger(numTestWorkers, time.Second)

		var wg sync.WaitGroup
		received := make([][]Bucket, numTestWorkers)
		for w := 0; w < numTestWorkers; w++ {
			w := w
			wg.Add(1)
			go func() {
				defer wg.Done()
				in, err := ex.Exchange(context.TODO(), w, bucketsFrom(w))
				c.So(err, ShouldBeNil)
				received[w] = in
			}()
		}
		wg.Wait()

		Convey("Every destination should hold exactly one bucket per source, ascending", func() {
			for w := 0; w < numTestWorkers; w++ {
				So(received[w], ShouldHaveLength, numTestWorkers)
				for source, b := range received[w] {
					So(b.Source, ShouldEqual, source)
					So(b.Items[0].Key, ShouldEqual, fmt.Sprintf("%d->%d", source, w))
				}
			}
		})
	})
}

func TestExchangeMissingBucket(t *testing.T) {
	defer goleak.VerifyNone(t)

	Convey("Given an exchange where worker 3 never sends", t, func(c C) {
		ex := NewExchanger(numTestWorkers, 100*time.Millisecond)

		var wg sync.WaitGroup
		errs := make([]error, numTestWorkers)
		for w := 0; w < numTestWorkers-1; w++ {
			w := w
			wg.Add(1)
			go func() {
				defer wg.Done()
				in, err := ex.Exchange(context.TODO(), w, bucketsFrom(w))
				errs[w] = err
				c.So(in, ShouldBeNil)
			}()
		}
		wg.Wait()

		Convey("Every waiting destination should fail with a TransferError naming worker 3", func() {
			for w := 0; w < numTestWorkers-1; w++ {
				var transferErr *TransferError
				So(errors.As(errs[w], &transferErr), ShouldBeTrue)
				So(transferErr.Destination, ShouldEqual, w)
				So(transferErr.Missing, ShouldResemble, []int{3})
			}
		})
	})
}

func TestExchangeCancellation(t *testing.T) {
	defer goleak.VerifyNone(t)

	Convey("Given a worker blocked on the barrier", t, func() {
		ex := NewExchanger(2, time.Minute)
		ctx, cancel := context.WithCancel(context.Background())

		done := make(chan error, 1)
		go func() {
			_, err := ex.Exchange(ctx, 0, make([]Bucket, 2))
			done <- err
		}()

		Convey("Canceling the context should release it without partial output", func() {
			cancel()
			So(errors.Is(<-done, context.Canceled), ShouldBeTrue)
		})

		Reset(cancel)
	})
}

func TestExchangeBucketCountMismatch(t *testing.T) {
	Convey("A worker producing the wrong number of buckets should fail fast", t, func() {
		ex := NewExchanger(3, time.Second)
		_, err := ex.Exchange(context.TODO(), 0, make([]Bucket, 2))
		So(err, ShouldNotBeNil)
	})
}

func TestWriter(t *testing.T) {
	Convey("Given a writer routing by hash", t, func() {
		w := NewWriter(1, numTestWorkers, partitions.NewHashKeyAssigner(), nil)

		keys := []string{"a", "b", "c", "d", "e", "f", "a", "b"}
		for _, k := range keys {
			So(w.Write(Item{Key: k}), ShouldBeNil)
		}
		So(w.NumItems(), ShouldEqual, len(keys))

		bb, err := w.Buckets()
		So(err, ShouldBeNil)

		Convey("It should produce one bucket per destination, empty ones included", func() {
			So(bb, ShouldHaveLength, numTestWorkers)
			total := 0
			for _, b := range bb {
				So(b.Source, ShouldEqual, 1)
				total += len(b.Items)
			}
			So(total, ShouldEqual, len(keys))
		})

		Convey("Items sharing a key should land in a single bucket", func() {
			homes := make(map[string]map[int]struct{})
			for dest, b := range bb {
				for _, it := range b.Items {
					if homes[it.Key] == nil {
						homes[it.Key] = make(map[int]struct{})
					}
					homes[it.Key][dest] = struct{}{}
				}
			}
			for _, dests := range homes {
				So(dests, ShouldHaveLength, 1)
			}
		})
	})
}
