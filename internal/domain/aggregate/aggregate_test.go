package aggregate_test

import (
	"testing"

	"github.com/okian/kenshin/internal/domain/aggregate"
	. "github.com/smartystreets/goconvey/convey"
)

func TestDistribution(t *testing.T) {
	Convey("Given a mix of total scores", t, func() {
		totals := []string{"0", "49", "50", "99", "100", "149", "150", "199", "200", "250"}

		Convey("When aggregating", func() {
			buckets, err := aggregate.Distribution(totals)

			Convey("Then counts land on the documented boundaries", func() {
				So(err, ShouldBeNil)
				So(buckets, ShouldHaveLength, 5)
				So(buckets[0].Range, ShouldEqual, "0-49")
				So(buckets[0].Count, ShouldEqual, 2) // 0, 49
				So(buckets[1].Count, ShouldEqual, 2) // 50, 99
				So(buckets[2].Count, ShouldEqual, 2) // 100, 149
				So(buckets[3].Count, ShouldEqual, 2) // 150, 199
				So(buckets[4].Range, ShouldEqual, "200+")
				So(buckets[4].Count, ShouldEqual, 2) // 200, 250
			})

			Convey("And counts sum to the input length", func() {
				sum := 0
				for _, b := range buckets {
					sum += b.Count
				}
				So(sum, ShouldEqual, len(totals))
			})
		})
	})

	Convey("Given fractional scores near a boundary", t, func() {
		buckets, err := aggregate.Distribution([]string{"49.9", "50.0"})
		So(err, ShouldBeNil)
		So(buckets[0].Count, ShouldEqual, 1)
		So(buckets[1].Count, ShouldEqual, 1)
	})

	Convey("Given no scores", t, func() {
		buckets, err := aggregate.Distribution(nil)

		Convey("Then all buckets are zero and there is no error", func() {
			So(err, ShouldBeNil)
			So(buckets, ShouldHaveLength, 5)
			for _, b := range buckets {
				So(b.Count, ShouldEqual, 0)
			}
		})
	})

	Convey("Given one unparseable score among many", t, func() {
		_, err := aggregate.Distribution([]string{"120", "abc", "80"})

		Convey("Then the whole aggregation fails", func() {
			So(err, ShouldWrap, aggregate.ErrBadScore)
		})
	})
}
