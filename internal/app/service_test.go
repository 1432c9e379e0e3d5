package service_test

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"testing"

	"github.com/okian/kenshin/internal/adapters/repository"
	service "github.com/okian/kenshin/internal/app"
	"github.com/okian/kenshin/internal/domain/csvfile"
	"github.com/okian/kenshin/internal/domain/extract"
	"github.com/okian/kenshin/internal/domain/model"
	"github.com/okian/kenshin/internal/domain/scoring"
	"github.com/okian/kenshin/pkg/logger"
	. "github.com/smartystreets/goconvey/convey"
)

func init() {
	_ = logger.Init()
}

// testRule awards 20 points per metric for any in-range value, so a
// healthy record totals 200 with straight A grades.
func testRule() scoring.Rule {
	metrics := make(map[string][]scoring.Band)
	cutoffs := make(map[string]scoring.Cutoff)
	for _, category := range scoring.Categories {
		names := scoring.CategoryMetrics[category]
		for _, m := range names {
			metrics[m] = []scoring.Band{{Max: 10000, Points: 20}}
		}
		top := float64(len(names)) * 20
		cutoffs[category] = scoring.Cutoff{A: top, B: top / 2, C: top / 4}
	}
	return scoring.Rule{ID: "standard", Name: "Standard Rule", Metrics: metrics, Cutoffs: cutoffs}
}

func healthyRow(id string) map[string]string {
	return map[string]string{
		"ID": id, "BMI": "22.0", "sBP": "120", "dBP": "80", "BS": "95",
		"HbA1c": "5.5", "LDL": "110", "TG": "90", "AST": "25", "ALT": "25", "GTP": "40",
	}
}

func newTestService(t *testing.T) *service.Service {
	t.Helper()
	ctx := context.Background()
	store, err := repository.NewSQLStore(ctx, ":memory:")
	if err != nil {
		t.Fatalf("open store: %v", err)
	}
	svc := service.New(service.WithStore(store))
	if err := svc.Start(ctx); err != nil {
		t.Fatalf("start service: %v", err)
	}
	t.Cleanup(svc.Stop)
	return svc
}

func TestService_ValidateCSV(t *testing.T) {
	Convey("Given a started service", t, func() {
		ctx := context.Background()
		svc := newTestService(t)

		Convey("When validating a clean upload", func() {
			csv := "ID,BMI,sBP,dBP,BS,HbA1c,LDL,TG,AST,ALT,GTP\n" +
				"12345,22.0,120,80,95,5.5,110,90,25,25,40\n"
			outcome, err := svc.ValidateCSV(ctx, []byte(csv))

			Convey("Then the outcome should be valid", func() {
				So(err, ShouldBeNil)
				So(outcome.IsValid, ShouldBeTrue)
				So(outcome.RowCount, ShouldEqual, 1)
				So(outcome.Errors, ShouldBeEmpty)
			})
		})

		Convey("When a row has an out-of-range value and a bad ID", func() {
			csv := "ID,BMI,sBP,dBP,BS,HbA1c,LDL,TG,AST,ALT,GTP\n" +
				"123,99.0,120,80,95,5.5,110,90,25,25,40\n"
			outcome, err := svc.ValidateCSV(ctx, []byte(csv))

			Convey("Then every offending field should be reported", func() {
				So(err, ShouldBeNil)
				So(outcome.IsValid, ShouldBeFalse)
				So(len(outcome.Errors), ShouldEqual, 2)
				So(outcome.Errors[0].Column, ShouldEqual, "ID")
				So(outcome.Errors[0].Reason, ShouldEqual, model.ReasonBadIDFormat)
				So(outcome.Errors[1].Column, ShouldEqual, "BMI")
				So(outcome.Errors[1].Reason, ShouldEqual, model.ReasonOutOfRange)
			})
		})
	})
}

func TestService_SaveRecords(t *testing.T) {
	Convey("Given a started service", t, func() {
		ctx := context.Background()
		svc := newTestService(t)

		Convey("When saving before any rule is active", func() {
			_, err := svc.SaveRecords(ctx, "admin", []map[string]string{healthyRow("12345")})

			Convey("Then it should fail with a configuration error", func() {
				So(err, ShouldNotBeNil)
				So(err, ShouldWrap, scoring.ErrNoActiveRule)
			})
		})

		Convey("When a rule is saved and records follow", func() {
			So(svc.SaveScoringRule(ctx, testRule()), ShouldBeNil)

			saved, err := svc.SaveRecords(ctx, "admin", []map[string]string{
				healthyRow("12345"), healthyRow("67890"),
			})

			Convey("Then both records should persist fully scored", func() {
				So(err, ShouldBeNil)
				So(saved, ShouldEqual, 2)

				rec, err := svc.RecordByID(ctx, "12345")
				So(err, ShouldBeNil)
				So(rec.User, ShouldEqual, "admin")
				So(rec.TotalScore, ShouldEqual, 200)
				So(rec.BMIScore, ShouldEqual, 20)
				So(rec.LiverScore, ShouldEqual, 60)
				So(rec.BMIGrade, ShouldEqual, model.GradeA)
				So(rec.LiverGrade, ShouldEqual, model.GradeA)
			})

			Convey("And saving the same ID again should report a duplicate", func() {
				So(err, ShouldBeNil)
				_, err := svc.SaveRecords(ctx, "admin", []map[string]string{healthyRow("12345")})
				So(err, ShouldNotBeNil)
				So(err, ShouldWrap, repository.ErrDuplicate)
			})
		})

		Convey("When a row misses a column", func() {
			So(svc.SaveScoringRule(ctx, testRule()), ShouldBeNil)
			row := healthyRow("12345")
			delete(row, "GTP")

			_, err := svc.SaveRecords(ctx, "admin", []map[string]string{row})

			Convey("Then it should fail with a missing field error", func() {
				So(err, ShouldNotBeNil)
				So(err, ShouldWrap, service.ErrMissingField)
				So(err.Error(), ShouldContainSubstring, "GTP")
			})
		})

		Convey("When a row fails validation", func() {
			So(svc.SaveScoringRule(ctx, testRule()), ShouldBeNil)
			row := healthyRow("12345")
			row["BMI"] = "99"

			_, err := svc.SaveRecords(ctx, "admin", []map[string]string{row})

			Convey("Then nothing should be stored", func() {
				So(err, ShouldNotBeNil)
				So(err, ShouldWrap, service.ErrInvalidRecord)
				_, err := svc.RecordByID(ctx, "12345")
				So(err, ShouldWrap, repository.ErrNotFound)
			})
		})
	})
}

func TestService_AggregateAndExtract(t *testing.T) {
	Convey("Given a service with ten scored records", t, func() {
		ctx := context.Background()
		svc := newTestService(t)

		// Vary BMI so two records lose their BMI points and land in a
		// lower bucket than the rest.
		rule := testRule()
		rule.Metrics["BMI"] = []scoring.Band{{Max: 25, Points: 20}}
		So(svc.SaveScoringRule(ctx, rule), ShouldBeNil)
		So(svc.UpdateConfig(ctx, service.SettingActiveRule, rule.ID), ShouldBeNil)

		rows := make([]map[string]string, 0, 10)
		for i := 0; i < 10; i++ {
			row := healthyRow(fmt.Sprintf("10%03d", i))
			if i < 2 {
				row["BMI"] = "30.0" // above the band, in range
			}
			rows = append(rows, row)
		}
		saved, err := svc.SaveRecords(ctx, "admin", rows)
		So(err, ShouldBeNil)
		So(saved, ShouldEqual, 10)

		Convey("When aggregating the distribution", func() {
			buckets, err := svc.Aggregate(ctx)

			Convey("Then the fixed buckets should partition the totals", func() {
				So(err, ShouldBeNil)
				So(len(buckets), ShouldEqual, 5)
				So(buckets[3].Range, ShouldEqual, "150-199")
				So(buckets[3].Count, ShouldEqual, 2) // totals of 180
				So(buckets[4].Range, ShouldEqual, "200+")
				So(buckets[4].Count, ShouldEqual, 8)
			})
		})

		Convey("When extracting the top half", func() {
			p := 0.5
			count, err := svc.Extract(ctx, &p)

			Convey("Then five entries should be stored, best first", func() {
				So(err, ShouldBeNil)
				So(count, ShouldEqual, 5)

				entries, err := svc.Extracted(ctx)
				So(err, ShouldBeNil)
				So(len(entries), ShouldEqual, 5)
				for _, e := range entries {
					So(e.TotalScore, ShouldEqual, 200)
				}
			})

			Convey("And a later run should replace the set wholesale", func() {
				So(err, ShouldBeNil)
				q := 0.1
				count, err := svc.Extract(ctx, &q)
				So(err, ShouldBeNil)
				So(count, ShouldEqual, 1)

				entries, err := svc.Extracted(ctx)
				So(err, ShouldBeNil)
				So(len(entries), ShouldEqual, 1)
			})
		})

		Convey("When extracting with an invalid fraction", func() {
			p := 1.5
			_, err := svc.Extract(ctx, &p)

			Convey("Then it should fail without touching the store", func() {
				So(err, ShouldWrap, extract.ErrInvalidFraction)
				entries, err := svc.Extracted(ctx)
				So(err, ShouldBeNil)
				So(entries, ShouldBeEmpty)
			})
		})

		Convey("When the extraction fraction comes from settings", func() {
			So(svc.UpdateConfig(ctx, service.SettingExtractionFraction, "0.2"), ShouldBeNil)

			count, err := svc.Extract(ctx, nil)

			Convey("Then the stored fraction should apply", func() {
				So(err, ShouldBeNil)
				So(count, ShouldEqual, 2)
			})
		})

		Convey("When the stored fraction is garbage", func() {
			So(svc.UpdateConfig(ctx, service.SettingExtractionFraction, "lots"), ShouldBeNil)

			_, err := svc.Extract(ctx, nil)

			Convey("Then extraction fails as a configuration error", func() {
				So(err, ShouldWrap, service.ErrBadFractionSetting)
				So(errors.Is(err, extract.ErrInvalidFraction), ShouldBeFalse)
			})
		})
	})

	Convey("Given a service with no records", t, func() {
		ctx := context.Background()
		svc := newTestService(t)

		Convey("When extracting", func() {
			count, err := svc.Extract(ctx, nil)

			Convey("Then nothing happens and nothing fails", func() {
				So(err, ShouldBeNil)
				So(count, ShouldEqual, 0)
			})
		})
	})
}

func TestService_ScoringRules(t *testing.T) {
	Convey("Given a started service", t, func() {
		ctx := context.Background()
		svc := newTestService(t)

		Convey("When saving an incomplete rule", func() {
			err := svc.SaveScoringRule(ctx, scoring.Rule{ID: "1", Name: "Test Rule"})

			Convey("Then it should store fine and list back", func() {
				So(err, ShouldBeNil)
				rules, err := svc.ScoringRules(ctx)
				So(err, ShouldBeNil)
				So(len(rules), ShouldEqual, 1)
				So(rules[0].ID, ShouldEqual, "1")
				So(rules[0].Name, ShouldEqual, "Test Rule")
			})

			Convey("And the first saved rule should become active", func() {
				So(err, ShouldBeNil)
				So(svc.SaveScoringRule(ctx, scoring.Rule{ID: "2", Name: "Second"}), ShouldBeNil)

				// Scoring still resolves rule 1, which is incomplete.
				_, saveErr := svc.SaveRecords(ctx, "admin", []map[string]string{healthyRow("12345")})
				So(saveErr, ShouldWrap, scoring.ErrMalformedRule)
			})
		})

		Convey("When saving a rule without an id", func() {
			err := svc.SaveScoringRule(ctx, scoring.Rule{Name: "No ID"})

			Convey("Then it should fail with a missing field error", func() {
				So(err, ShouldWrap, service.ErrMissingField)
			})
		})
	})
}

func TestService_UsersAndLogs(t *testing.T) {
	Convey("Given a started service", t, func() {
		ctx := context.Background()
		svc := newTestService(t)

		Convey("When a user is registered", func() {
			So(svc.RegisterUser(ctx, "admin", "password"), ShouldBeNil)

			Convey("Then matching credentials should authenticate", func() {
				So(svc.Authenticate(ctx, "admin", "password"), ShouldBeNil)
			})

			Convey("And a wrong password should not", func() {
				err := svc.Authenticate(ctx, "admin", "nope")
				So(err, ShouldWrap, service.ErrUnauthenticated)
			})

			Convey("And an unknown user should not", func() {
				err := svc.Authenticate(ctx, "nobody", "password")
				So(err, ShouldWrap, service.ErrUnauthenticated)
			})
		})

		Convey("When writing a log entry", func() {
			err := svc.WriteLog(ctx, "", "saved 10 records", "admin")

			Convey("Then it should default the level and persist", func() {
				So(err, ShouldBeNil)
			})
		})

		Convey("When writing a log entry without a message", func() {
			err := svc.WriteLog(ctx, "info", "   ", "admin")

			Convey("Then it should fail", func() {
				So(err, ShouldWrap, service.ErrMissingField)
			})
		})

		Convey("When updating config with an empty key", func() {
			err := svc.UpdateConfig(ctx, " ", "x")

			Convey("Then it should fail", func() {
				So(err, ShouldWrap, service.ErrMissingField)
			})
		})
	})
}

func TestService_NotStarted(t *testing.T) {
	Convey("Given a service that was never started", t, func() {
		ctx := context.Background()
		svc := service.New()

		Convey("Then store-backed operations refuse to run", func() {
			_, err := svc.SaveRecords(ctx, "admin", []map[string]string{healthyRow("12345")})
			So(err, ShouldWrap, service.ErrNotStarted)

			_, err = svc.Aggregate(ctx)
			So(err, ShouldWrap, service.ErrNotStarted)

			_, err = svc.Extract(ctx, nil)
			So(err, ShouldWrap, service.ErrNotStarted)

			So(svc.SaveScoringRule(ctx, testRule()), ShouldWrap, service.ErrNotStarted)
			So(svc.Authenticate(ctx, "admin", "password"), ShouldWrap, service.ErrNotStarted)
		})

		Convey("And stats report it as not started", func() {
			stats := svc.GetStats()
			So(stats["started"], ShouldBeFalse)
		})
	})
}

func TestService_GetStats(t *testing.T) {
	Convey("Given a started service with data", t, func() {
		ctx := context.Background()
		svc := newTestService(t)
		So(svc.SaveScoringRule(ctx, testRule()), ShouldBeNil)
		_, err := svc.SaveRecords(ctx, "admin", []map[string]string{healthyRow("12345")})
		So(err, ShouldBeNil)

		Convey("When fetching stats", func() {
			stats := svc.GetStats()

			Convey("Then counters should reflect the store", func() {
				So(stats["started"], ShouldBeTrue)
				So(stats["records"], ShouldEqual, 1)
				So(stats["extracted"], ShouldEqual, 0)
			})
		})
	})
}

func TestService_ParseCSV(t *testing.T) {
	Convey("Given a started service", t, func() {
		ctx := context.Background()
		svc := newTestService(t)

		Convey("When every data row has the wrong field count", func() {
			// One field short of the 11-column header.
			csv := "ID,BMI,sBP,dBP,BS,HbA1c,LDL,TG,AST,ALT,GTP\n" +
				"1234,22.0,120,80,95,5.5,110,90,25,20\n"

			Convey("Then parsing fails instead of answering with no data", func() {
				_, err := svc.ParseCSV(ctx, []byte(csv))
				So(err, ShouldNotBeNil)
				So(err, ShouldWrap, csvfile.ErrNoData)
			})

			Convey("And validation fails the same way", func() {
				_, err := svc.ValidateCSV(ctx, []byte(csv))
				So(err, ShouldNotBeNil)
				So(err, ShouldWrap, csvfile.ErrNoData)
			})
		})

		Convey("When a data row has the wrong field count", func() {
			csv := "ID,BMI,sBP,dBP,BS,HbA1c,LDL,TG,AST,ALT,GTP\n" +
				"12345,22.0,120,80,95,5.5,110,90,25,25,40\n" +
				"67890,22.0\n"
			result, err := svc.ParseCSV(ctx, []byte(csv))

			Convey("Then the bad row is excluded and reported", func() {
				So(err, ShouldBeNil)
				So(len(result.Records), ShouldEqual, 1)
				So(len(result.Errors), ShouldEqual, 1)
				So(result.Errors[0].Row, ShouldEqual, 2)
				So(strings.Contains(result.Errors[0].Message, "field"), ShouldBeTrue)
			})
		})
	})
}
