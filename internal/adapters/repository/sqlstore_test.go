package repository_test

import (
	"context"
	"testing"

	"github.com/okian/kenshin/internal/adapters/repository"
	"github.com/okian/kenshin/internal/domain/model"
	"github.com/okian/kenshin/pkg/logger"
	. "github.com/smartystreets/goconvey/convey"
)

func init() {
	// Initialize logging for tests
	if err := logger.Init(); err != nil {
		panic(err)
	}
}

func memoryStore(ctx context.Context) *repository.SQLStore {
	store, err := repository.NewSQLStore(ctx, ":memory:")
	So(err, ShouldBeNil)
	return store
}

func sampleRecord(id string, total float64) model.ScoredRecord {
	return model.ScoredRecord{
		RecordID: id,
		User:     "tester",
		BMI:      22, SBP: 120, DBP: 80, BS: 90, HbA1c: 5.5,
		LDL: 100, TG: 150, AST: 20, ALT: 20, GTP: 30,
		BMIScore: 20, BloodPressureScore: 40, BloodSugarScore: 40,
		LipidScore: 40, LiverScore: 60,
		TotalScore: total,
		BMIGrade:   model.GradeA, BloodPressureGrade: model.GradeA,
		BloodSugarGrade: model.GradeA, LipidGrade: model.GradeB, LiverGrade: model.GradeA,
	}
}

func TestScoredRecords(t *testing.T) {
	Convey("Given an in-memory store", t, func() {
		ctx := context.Background()
		store := memoryStore(ctx)
		defer store.Close()

		Convey("When inserting and querying back a record", func() {
			_, err := store.InsertScoredRecord(ctx, sampleRecord("1234", 200))
			So(err, ShouldBeNil)

			got, err := store.ScoredByID(ctx, "1234")

			Convey("Then all field values round-trip", func() {
				So(err, ShouldBeNil)
				So(got.RecordID, ShouldEqual, "1234")
				So(got.User, ShouldEqual, "tester")
				So(got.HbA1c, ShouldEqual, 5.5)
				So(got.TotalScore, ShouldEqual, 200)
				So(got.LipidGrade, ShouldEqual, model.GradeB)
				So(got.CreatedAt.IsZero(), ShouldBeFalse)
			})
		})

		Convey("When inserting the same record id twice", func() {
			_, err := store.InsertScoredRecord(ctx, sampleRecord("1234", 200))
			So(err, ShouldBeNil)
			_, err = store.InsertScoredRecord(ctx, sampleRecord("1234", 150))

			Convey("Then the duplicate is reported as ErrDuplicate", func() {
				So(err, ShouldWrap, repository.ErrDuplicate)
			})
		})

		Convey("When querying an unknown id", func() {
			_, err := store.ScoredByID(ctx, "9999")
			So(err, ShouldWrap, repository.ErrNotFound)
		})

		Convey("When listing all records", func() {
			for i, id := range []string{"1111", "2222", "3333"} {
				_, err := store.InsertScoredRecord(ctx, sampleRecord(id, float64(100+i)))
				So(err, ShouldBeNil)
			}

			records, err := store.AllScored(ctx)

			Convey("Then they come back in insertion order", func() {
				So(err, ShouldBeNil)
				So(records, ShouldHaveLength, 3)
				So(records[0].RecordID, ShouldEqual, "1111")
				So(records[2].RecordID, ShouldEqual, "3333")
			})

			Convey("And CountScored agrees", func() {
				n, err := store.CountScored(ctx)
				So(err, ShouldBeNil)
				So(n, ShouldEqual, 3)
			})

			Convey("And total scores are readable as raw strings", func() {
				totals, err := store.TotalScoreStrings(ctx)
				So(err, ShouldBeNil)
				So(totals, ShouldHaveLength, 3)
			})
		})
	})
}

func TestSettings(t *testing.T) {
	Convey("Given an in-memory store", t, func() {
		ctx := context.Background()
		store := memoryStore(ctx)
		defer store.Close()

		Convey("When upserting the same key twice", func() {
			So(store.UpsertSetting(ctx, "extraction_fraction", "0.3"), ShouldBeNil)
			So(store.UpsertSetting(ctx, "extraction_fraction", "0.5"), ShouldBeNil)

			Convey("Then the latest value wins", func() {
				v, err := store.Setting(ctx, "extraction_fraction")
				So(err, ShouldBeNil)
				So(v, ShouldEqual, "0.5")
			})
		})

		Convey("When reading an absent key", func() {
			_, err := store.Setting(ctx, "missing")
			So(err, ShouldWrap, repository.ErrNotFound)
		})

		Convey("When listing by prefix", func() {
			So(store.UpsertSetting(ctx, "scoring_rule:2", `{"id":"2"}`), ShouldBeNil)
			So(store.UpsertSetting(ctx, "scoring_rule:1", `{"id":"1"}`), ShouldBeNil)
			So(store.UpsertSetting(ctx, "other", "x"), ShouldBeNil)

			settings, err := store.SettingsByPrefix(ctx, "scoring_rule:")

			Convey("Then only matching keys come back, in key order", func() {
				So(err, ShouldBeNil)
				So(settings, ShouldHaveLength, 2)
				So(settings[0].Key, ShouldEqual, "scoring_rule:1")
				So(settings[1].Key, ShouldEqual, "scoring_rule:2")
			})
		})
	})
}

func TestExtracted(t *testing.T) {
	Convey("Given an in-memory store with an extracted set", t, func() {
		ctx := context.Background()
		store := memoryStore(ctx)
		defer store.Close()

		first := []model.ExtractedEntry{
			{RecordID: "1111", TotalScore: 180},
			{RecordID: "2222", TotalScore: 160},
		}
		So(store.ReplaceExtracted(ctx, first), ShouldBeNil)

		Convey("When replacing it wholesale", func() {
			second := []model.ExtractedEntry{{RecordID: "3333", TotalScore: 190}}
			So(store.ReplaceExtracted(ctx, second), ShouldBeNil)

			Convey("Then only the new entries remain", func() {
				entries, err := store.AllExtracted(ctx)
				So(err, ShouldBeNil)
				So(entries, ShouldHaveLength, 1)
				So(entries[0].RecordID, ShouldEqual, "3333")

				n, err := store.CountExtracted(ctx)
				So(err, ShouldBeNil)
				So(n, ShouldEqual, 1)
			})
		})

		Convey("When reading the stored order", func() {
			entries, err := store.AllExtracted(ctx)
			So(err, ShouldBeNil)
			So(entries[0].RecordID, ShouldEqual, "1111")
			So(entries[1].RecordID, ShouldEqual, "2222")
		})
	})
}

func TestLogsAndUsers(t *testing.T) {
	Convey("Given an in-memory store", t, func() {
		ctx := context.Background()
		store := memoryStore(ctx)
		defer store.Close()

		Convey("When appending a log entry", func() {
			err := store.AppendLog(ctx, model.LogEntry{
				ID: "log-1", Level: "info", Message: "extraction finished", User: "tester",
			})
			So(err, ShouldBeNil)
		})

		Convey("When storing and fetching a user", func() {
			So(store.UpsertUser(ctx, model.User{Name: "alice", Password: "secret"}), ShouldBeNil)

			u, err := store.UserByName(ctx, "alice")
			So(err, ShouldBeNil)
			So(u.Password, ShouldEqual, "secret")

			_, err = store.UserByName(ctx, "nobody")
			So(err, ShouldWrap, repository.ErrNotFound)
		})
	})
}
