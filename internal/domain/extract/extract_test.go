package extract_test

import (
	"fmt"
	"testing"

	"github.com/okian/kenshin/internal/domain/extract"
	"github.com/okian/kenshin/internal/domain/model"
	. "github.com/smartystreets/goconvey/convey"
)

func entries(scores ...float64) []model.ExtractedEntry {
	out := make([]model.ExtractedEntry, len(scores))
	for i, s := range scores {
		out[i] = model.ExtractedEntry{RecordID: fmt.Sprintf("%04d", i+1000), TotalScore: s}
	}
	return out
}

func TestTopFraction(t *testing.T) {
	Convey("Given 10 records and p=0.5", t, func() {
		in := entries(10, 90, 20, 80, 30, 70, 40, 60, 50, 100)

		Convey("Then exactly 5 entries come back, sorted descending", func() {
			top, err := extract.TopFraction(in, 0.5)
			So(err, ShouldBeNil)
			So(top, ShouldHaveLength, 5)
			So(top[0].TotalScore, ShouldEqual, 100)
			So(top[1].TotalScore, ShouldEqual, 90)
			So(top[2].TotalScore, ShouldEqual, 80)
			So(top[3].TotalScore, ShouldEqual, 70)
			So(top[4].TotalScore, ShouldEqual, 60)
		})

		Convey("And the input order is untouched", func() {
			_, err := extract.TopFraction(in, 0.5)
			So(err, ShouldBeNil)
			So(in[0].TotalScore, ShouldEqual, 10)
		})
	})

	Convey("Given tied scores", t, func() {
		in := []model.ExtractedEntry{
			{RecordID: "1111", TotalScore: 80},
			{RecordID: "2222", TotalScore: 90},
			{RecordID: "3333", TotalScore: 90},
			{RecordID: "4444", TotalScore: 90},
		}

		Convey("Then equal scores keep their input order", func() {
			top, err := extract.TopFraction(in, 0.75)
			So(err, ShouldBeNil)
			So(top, ShouldHaveLength, 3)
			So(top[0].RecordID, ShouldEqual, "2222")
			So(top[1].RecordID, ShouldEqual, "3333")
			So(top[2].RecordID, ShouldEqual, "4444")
		})
	})

	Convey("Given a fraction that floors to zero", t, func() {
		in := entries(50, 60, 70)

		Convey("Then at least one entry is always selected", func() {
			top, err := extract.TopFraction(in, 0.1)
			So(err, ShouldBeNil)
			So(top, ShouldHaveLength, 1)
			So(top[0].TotalScore, ShouldEqual, 70)
		})
	})

	Convey("Given p=1", t, func() {
		in := entries(50, 60)
		top, err := extract.TopFraction(in, 1)
		So(err, ShouldBeNil)
		So(top, ShouldHaveLength, 2)
	})

	Convey("Given invalid fractions", t, func() {
		in := entries(50)
		for _, p := range []float64{0, -0.5, 1.5} {
			_, err := extract.TopFraction(in, p)
			So(err, ShouldEqual, extract.ErrInvalidFraction)
		}
	})

	Convey("Given no entries", t, func() {
		top, err := extract.TopFraction(nil, 0.5)
		So(err, ShouldBeNil)
		So(top, ShouldHaveLength, 0)
	})
}
