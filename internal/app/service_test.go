package service_test

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/okian/rally/internal/adapters/repository"
	service "github.com/okian/rally/internal/app"
	"github.com/okian/rally/internal/domain/model"
	"github.com/okian/rally/internal/domain/standings"
	. "github.com/smartystreets/goconvey/convey"
)

func newService(opts ...service.Option) *service.Service {
	store, err := repository.Open(context.Background(), repository.DriverSQLite, ":memory:")
	So(err, ShouldBeNil)

	svc := service.New(append([]service.Option{service.WithStore(store)}, opts...)...)
	So(svc.Start(context.Background()), ShouldBeNil)
	return svc
}

func seedRally(svc *service.Service, championshipID *string, names ...string) model.Rally {
	ctx := context.Background()
	r, err := svc.CreateRally(ctx, model.Rally{Name: "Rally Estonia", HeldOn: time.Date(2026, 7, 17, 0, 0, 0, 0, time.UTC), ChampionshipID: championshipID})
	So(err, ShouldBeNil)

	rows := make([]model.ResultInput, 0, len(names))
	for i, n := range names {
		rows = append(rows, model.ResultInput{ParticipantName: n, Class: "RC1", Position: i + 1})
	}
	_, err = svc.SubmitResults(ctx, r.ID, rows, "")
	So(err, ShouldBeNil)
	return r
}

func waitUntil(cond func() bool) bool {
	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		if cond() {
			return true
		}
		time.Sleep(10 * time.Millisecond)
	}
	return cond()
}

func TestService_Start(t *testing.T) {
	Convey("Given a service without a store", t, func() {
		svc := service.New()

		Convey("Then it refuses to start", func() {
			So(svc.Start(context.Background()), ShouldEqual, service.ErrNoStore)
		})

		Convey("Then scheduling reports it is not started", func() {
			_, err := svc.ScheduleAutoLink(context.Background(), "test", "")
			So(err, ShouldEqual, service.ErrNotStarted)
		})
	})

	Convey("Given a started service", t, func() {
		svc := newService(service.WithPointsTable([]int{10, 5}))
		ctx := context.Background()

		Convey("Then stats report it as started", func() {
			stats := svc.GetStats(ctx)
			So(stats["started"], ShouldEqual, true)
			So(stats["unlinkedResults"], ShouldEqual, 0)
			So(stats["pointsTable"], ShouldResemble, standings.PointsTable{10, 5})
		})

		Convey("When stopping twice", func() {
			svc.Stop()
			svc.Stop()

			Convey("Then it is marked as stopped", func() {
				So(svc.GetStats(ctx)["started"], ShouldEqual, false)
			})
		})

		Reset(func() { svc.Stop() })
	})
}

func TestService_ManualLinking(t *testing.T) {
	ctx := context.Background()

	Convey("Given a participant and an unlinked result", t, func() {
		svc := newService()
		Reset(func() { svc.Stop() })

		kalle, err := svc.CreateParticipant(ctx, "  Kalle   Rovanpera ", []string{"K. Rovanpera", " "})
		So(err, ShouldBeNil)
		So(kalle.DisplayName, ShouldEqual, "Kalle Rovanpera")
		So(len(kalle.Aliases), ShouldEqual, 1)

		seedRally(svc, nil, "Kale Rovanpera")
		unlinked, err := svc.UnlinkedResults(ctx)
		So(err, ShouldBeNil)
		So(len(unlinked), ShouldEqual, 1)
		res := unlinked[0]

		Convey("When asking for suggestions", func() {
			out, err := svc.SuggestForResult(ctx, res.ID)
			So(err, ShouldBeNil)

			Convey("Then the participant is the best candidate", func() {
				So(len(out), ShouldEqual, 1)
				So(out[0].CandidateID, ShouldEqual, kalle.ID)
				So(out[0].IsExactAlias, ShouldBeFalse)
			})
		})

		Convey("When suggesting for an alias spelling", func() {
			out, err := svc.SuggestForName(ctx, "k. ROVANPERA")
			So(err, ShouldBeNil)
			So(out[0].IsExactAlias, ShouldBeTrue)
		})

		Convey("When linking the result", func() {
			linked, err := svc.LinkResult(ctx, res.ID, kalle.ID)
			So(err, ShouldBeNil)

			Convey("Then the row points at the participant", func() {
				So(*linked.ParticipantID, ShouldEqual, kalle.ID)
			})

			Convey("Then the spelling becomes an alias", func() {
				p, err := svc.Participant(ctx, kalle.ID)
				So(err, ShouldBeNil)
				So(len(p.Aliases), ShouldEqual, 2)
			})

			Convey("Then linking again conflicts", func() {
				_, err := svc.LinkResult(ctx, res.ID, kalle.ID)
				So(errors.Is(err, repository.ErrAlreadyLinked), ShouldBeTrue)
			})

			Convey("And unlinking clears the reference", func() {
				r, err := svc.UnlinkResult(ctx, res.ID)
				So(err, ShouldBeNil)
				So(r.ParticipantID, ShouldBeNil)
			})
		})

		Convey("When linking to an unknown participant", func() {
			_, err := svc.LinkResult(ctx, res.ID, "missing")
			So(errors.Is(err, repository.ErrNotFound), ShouldBeTrue)
		})

		Convey("When creating a blank participant", func() {
			_, err := svc.CreateParticipant(ctx, "   ", nil)
			So(errors.Is(err, service.ErrInvalidInput), ShouldBeTrue)
		})

		Convey("When two participants share an alias", func() {
			_, err := svc.CreateParticipant(ctx, "Karl Rovanpera", []string{"k. rovanpera"})
			So(err, ShouldBeNil)

			conflicts, err := svc.AliasConflicts(ctx)
			So(err, ShouldBeNil)
			So(len(conflicts), ShouldEqual, 1)
			So(conflicts[0].Key, ShouldEqual, "k. rovanpera")
		})
	})
}

func TestService_RunAutoLink(t *testing.T) {
	ctx := context.Background()

	Convey("Given unlinked results with one known alias", t, func() {
		svc := newService()
		Reset(func() { svc.Stop() })

		_, err := svc.CreateParticipant(ctx, "Kalle Rovanpera", []string{"K. Rovanpera"})
		So(err, ShouldBeNil)
		seedRally(svc, nil, "k. rovanpera", "Elfyn Evans", "Sebastien Ogier")

		Convey("When running a dry run", func() {
			sum, err := svc.RunAutoLink(ctx, true)
			So(err, ShouldBeNil)

			Convey("Then nothing is written", func() {
				So(sum.DryRun, ShouldBeTrue)
				So(sum.Linked, ShouldEqual, 1)
				So(sum.Created, ShouldEqual, 2)
				unlinked, _ := svc.UnlinkedResults(ctx)
				So(len(unlinked), ShouldEqual, 3)
				_, ok := svc.LastBatch()
				So(ok, ShouldBeFalse)
			})
		})

		Convey("When running a batch", func() {
			sum, err := svc.RunAutoLink(ctx, false)
			So(err, ShouldBeNil)

			Convey("Then every row is resolved", func() {
				So(sum.Linked, ShouldEqual, 1)
				So(sum.AliasMatches, ShouldEqual, 1)
				So(sum.Created, ShouldEqual, 2)
				unlinked, _ := svc.UnlinkedResults(ctx)
				So(unlinked, ShouldBeEmpty)
				ps, _ := svc.Participants(ctx)
				So(len(ps), ShouldEqual, 3)
			})

			Convey("Then the batch is reported", func() {
				report, ok := svc.LastBatch()
				So(ok, ShouldBeTrue)
				So(report.Trigger, ShouldEqual, "manual")
				So(report.Summary.Created, ShouldEqual, 2)
			})

			Convey("And a second batch finds nothing to do", func() {
				again, err := svc.RunAutoLink(ctx, false)
				So(err, ShouldBeNil)
				So(again.Linked+again.Created+again.Skipped, ShouldEqual, 0)
			})
		})

		Convey("When the request context is already cancelled", func() {
			cctx, cancel := context.WithCancel(ctx)
			cancel()
			sum, err := svc.RunAutoLink(cctx, false)

			Convey("Then the batch still runs to completion", func() {
				So(err, ShouldBeNil)
				So(sum.Created, ShouldEqual, 2)
			})
		})
	})

	Convey("Given a service that links on submit", t, func() {
		svc := newService(service.WithAutoLinkOnSubmit(true))
		Reset(func() { svc.Stop() })

		seedRally(svc, nil, "Ott Tanak", "Thierry Neuville")

		Convey("Then the background worker resolves the rows", func() {
			So(waitUntil(func() bool {
				rs, err := svc.UnlinkedResults(ctx)
				return err == nil && len(rs) == 0
			}), ShouldBeTrue)
			So(waitUntil(func() bool {
				_, ok := svc.LastBatch()
				return ok
			}), ShouldBeTrue)
			report, _ := svc.LastBatch()
			So(report.Trigger, ShouldEqual, "submit")
		})
	})
}

func TestService_Results(t *testing.T) {
	ctx := context.Background()

	Convey("Given a submission key stored by an earlier process", t, func() {
		store, err := repository.Open(ctx, repository.DriverSQLite, ":memory:")
		So(err, ShouldBeNil)
		Reset(func() { _ = store.Close() })

		before := service.New(service.WithStore(store))
		r, err := before.CreateRally(ctx, model.Rally{Name: "Rally Sweden"})
		So(err, ShouldBeNil)
		rows := []model.ResultInput{{ParticipantName: "Elfyn Evans", Position: 1}}
		_, err = before.SubmitResults(ctx, r.ID, rows, "upload-1")
		So(err, ShouldBeNil)

		Convey("When a restarted service receives the same key", func() {
			after := service.New(service.WithStore(store))
			_, err := after.SubmitResults(ctx, r.ID, rows, "upload-1")

			Convey("Then the store rejects it", func() {
				So(err, ShouldEqual, service.ErrDuplicateSubmission)
				unlinked, _ := after.UnlinkedResults(ctx)
				So(len(unlinked), ShouldEqual, 1)
			})
		})

		Convey("When the key falls out of the in-memory window", func() {
			small := service.New(service.WithStore(store), service.WithSubmissionDedupeSize(1))
			_, err := small.SubmitResults(ctx, r.ID, rows, "upload-2")
			So(err, ShouldBeNil)
			_, err = small.SubmitResults(ctx, r.ID, rows, "upload-1")

			Convey("Then it is still a duplicate", func() {
				So(err, ShouldEqual, service.ErrDuplicateSubmission)
			})
		})
	})

	Convey("Given a rally", t, func() {
		svc := newService()
		Reset(func() { svc.Stop() })

		r, err := svc.CreateRally(ctx, model.Rally{Name: "Rally Finland"})
		So(err, ShouldBeNil)
		rows := []model.ResultInput{{ParticipantName: "Ott Tanak", Position: 1}}

		Convey("When the same submission is sent twice", func() {
			_, err := svc.SubmitResults(ctx, r.ID, rows, "upload-1")
			So(err, ShouldBeNil)
			_, err = svc.SubmitResults(ctx, r.ID, rows, "upload-1")

			Convey("Then the second is rejected", func() {
				So(err, ShouldEqual, service.ErrDuplicateSubmission)
				unlinked, _ := svc.UnlinkedResults(ctx)
				So(len(unlinked), ShouldEqual, 1)
			})
		})

		Convey("When a keyed submission fails", func() {
			_, err := svc.SubmitResults(ctx, r.ID, []model.ResultInput{{ParticipantName: " "}}, "upload-2")
			So(errors.Is(err, repository.ErrInvalidInput), ShouldBeTrue)

			Convey("Then the key can be retried", func() {
				_, err := svc.SubmitResults(ctx, r.ID, rows, "upload-2")
				So(err, ShouldBeNil)
			})
		})

		Convey("When submitting no rows", func() {
			_, err := svc.SubmitResults(ctx, r.ID, nil, "")
			So(errors.Is(err, service.ErrInvalidInput), ShouldBeTrue)
		})

		Convey("When importing an HTML table", func() {
			html := `<table>
				<tr><th>Pos</th><th>Driver</th><th>Class</th><th>Time</th></tr>
				<tr><td>1</td><td>Ott Tanak</td><td>RC1</td><td>2:31:04.5</td></tr>
				<tr><td>DNF</td><td>Elfyn Evans</td><td>RC1</td><td></td></tr>
			</table>`
			out, err := svc.ImportResults(ctx, r.ID, strings.NewReader(html), "", "")
			So(err, ShouldBeNil)

			Convey("Then rows are stored in table order", func() {
				So(len(out), ShouldEqual, 2)
				So(out[0].ParticipantName, ShouldEqual, "Ott Tanak")
				So(out[1].Position, ShouldEqual, 0)
				So(out[0].Status, ShouldEqual, model.StatusPending)
			})
		})

		Convey("When importing a page without a results table", func() {
			_, err := svc.ImportResults(ctx, r.ID, strings.NewReader("<p>nothing</p>"), "", "")
			So(errors.Is(err, service.ErrInvalidInput), ShouldBeTrue)
		})

		Convey("When setting an unknown status", func() {
			out, err := svc.SubmitResults(ctx, r.ID, rows, "")
			So(err, ShouldBeNil)
			_, err = svc.SetResultStatus(ctx, out[0].ID, "maybe")
			So(errors.Is(err, service.ErrInvalidInput), ShouldBeTrue)

			Convey("And rejecting the row", func() {
				rej, err := svc.SetResultStatus(ctx, out[0].ID, model.StatusRejected)
				So(err, ShouldBeNil)
				So(rej.Status, ShouldEqual, model.StatusRejected)
			})
		})
	})
}
