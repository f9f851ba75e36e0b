package dedupe_test

import (
	"context"
	"fmt"
	"sync"
	"testing"

	. "github.com/smartystreets/goconvey/convey"

	"github.com/okian/scoreimport/internal/domain/dedupe"
)

func TestFingerprint(t *testing.T) {
	Convey("Given submission fingerprints", t, func() {
		a := dedupe.Fingerprint("u1", "file/mer-iidx", []byte("[]"))

		Convey("Identical submissions agree", func() {
			So(dedupe.Fingerprint("u1", "file/mer-iidx", []byte("[]")), ShouldEqual, a)
		})

		Convey("User, type and bytes each change the fingerprint", func() {
			So(dedupe.Fingerprint("u2", "file/mer-iidx", []byte("[]")), ShouldNotEqual, a)
			So(dedupe.Fingerprint("u1", "file/batch-manual", []byte("[]")), ShouldNotEqual, a)
			So(dedupe.Fingerprint("u1", "file/mer-iidx", []byte("[ ]")), ShouldNotEqual, a)
		})

		Convey("Field boundaries are not ambiguous", func() {
			So(dedupe.Fingerprint("u1f", "ile/x", nil), ShouldNotEqual, dedupe.Fingerprint("u1", "file/x", nil))
		})
	})
}

func TestInMemoryDeduper(t *testing.T) {
	Convey("Given a new InMemoryDeduper", t, func() {
		ctx := context.Background()
		d := dedupe.NewInMemoryDeduper()

		Convey("When a fingerprint is new", func() {
			So(d.SeenAndRecord(ctx, "sub-1"), ShouldBeFalse)
			So(d.Size(), ShouldEqual, 1)

			Convey("Then a repeat is reported as seen", func() {
				So(d.SeenAndRecord(ctx, "sub-1"), ShouldBeTrue)
				So(d.Size(), ShouldEqual, 1)
			})

			Convey("Then unrecording allows a retry", func() {
				d.Unrecord(ctx, "sub-1")
				So(d.Size(), ShouldEqual, 0)
				So(d.SeenAndRecord(ctx, "sub-1"), ShouldBeFalse)
			})
		})

		Convey("When unrecording an unknown fingerprint nothing happens", func() {
			d.Unrecord(ctx, "missing")
			So(d.Size(), ShouldEqual, 0)
		})
	})
}

func TestBoundedDeduper(t *testing.T) {
	Convey("Given a deduper bounded to three entries", t, func() {
		ctx := context.Background()
		d := dedupe.NewInMemoryDeduper(dedupe.WithMaxSize(3))
		for _, id := range []string{"a", "b", "c", "d"} {
			d.SeenAndRecord(ctx, id)
		}

		Convey("The oldest entry is evicted first", func() {
			So(d.Size(), ShouldEqual, 3)
			So(d.SeenAndRecord(ctx, "d"), ShouldBeTrue)
			So(d.SeenAndRecord(ctx, "b"), ShouldBeTrue)
			So(d.SeenAndRecord(ctx, "a"), ShouldBeFalse)
		})

		Convey("Unrecording frees a slot without evicting", func() {
			d.Unrecord(ctx, "c")
			So(d.SeenAndRecord(ctx, "e"), ShouldBeFalse)
			So(d.SeenAndRecord(ctx, "b"), ShouldBeTrue)
			So(d.SeenAndRecord(ctx, "d"), ShouldBeTrue)
		})
	})

	Convey("Given an unbounded deduper", t, func() {
		d := dedupe.NewInMemoryDeduper(dedupe.WithMaxSize(0))
		for i := range 1000 {
			d.SeenAndRecord(context.Background(), fmt.Sprint(i))
		}
		So(d.Size(), ShouldEqual, 1000)
	})
}

func TestConcurrentDeduper(t *testing.T) {
	Convey("Given concurrent submitters of the same fingerprint", t, func() {
		d := dedupe.NewInMemoryDeduper()
		var wg sync.WaitGroup
		var mu sync.Mutex
		fresh := 0
		for range 50 {
			wg.Add(1)
			go func() {
				defer wg.Done()
				if !d.SeenAndRecord(context.Background(), "same") {
					mu.Lock()
					fresh++
					mu.Unlock()
				}
			}()
		}
		wg.Wait()

		Convey("Exactly one wins", func() {
			So(fresh, ShouldEqual, 1)
		})
	})
}
