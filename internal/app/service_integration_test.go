package service_test

import (
	"context"
	"errors"
	"testing"

	service "github.com/okian/rally/internal/app"
	"github.com/okian/rally/internal/domain/model"
	. "github.com/smartystreets/goconvey/convey"
)

func TestService_IndividualSeason(t *testing.T) {
	ctx := context.Background()

	Convey("Given an individual championship with one rally", t, func() {
		svc := newService()
		Reset(func() { svc.Stop() })

		champ, err := svc.CreateChampionship(ctx, model.Championship{Name: "WRC 2026"})
		So(err, ShouldBeNil)
		So(champ.Kind, ShouldEqual, model.KindIndividual)

		_, err = svc.CreateParticipant(ctx, "Kalle Rovanpera", []string{"K. Rovanpera"})
		So(err, ShouldBeNil)
		rally := seedRally(svc, &champ.ID, "k. rovanpera", "Elfyn Evans", "Sebastien Ogier")

		Convey("When results are still pending", func() {
			table, err := svc.Standings(ctx, champ.ID, "")
			So(err, ShouldBeNil)

			Convey("Then the table is empty", func() {
				So(table.Entries, ShouldBeEmpty)
			})
		})

		Convey("When the rally is approved before linking", func() {
			n, err := svc.ApproveRally(ctx, rally.ID)
			So(err, ShouldBeNil)
			So(n, ShouldEqual, 3)

			table, err := svc.Standings(ctx, champ.ID, "")
			So(err, ShouldBeNil)

			Convey("Then unlinked rows appear under their free-text name", func() {
				So(len(table.Entries), ShouldEqual, 3)
				So(table.Entries[0].Key, ShouldEqual, "name:k. rovanpera")
				So(table.Entries[0].ParticipantID, ShouldBeEmpty)
				So(table.Entries[0].Points, ShouldEqual, 25)
			})
		})

		Convey("When the rows are linked and approved", func() {
			_, err := svc.RunAutoLink(ctx, false)
			So(err, ShouldBeNil)
			_, err = svc.ApproveRally(ctx, rally.ID)
			So(err, ShouldBeNil)

			table, err := svc.Standings(ctx, champ.ID, "")
			So(err, ShouldBeNil)

			Convey("Then entries are ranked by points under canonical names", func() {
				So(len(table.Entries), ShouldEqual, 3)
				So(table.Entries[0].Name, ShouldEqual, "Kalle Rovanpera")
				So(table.Entries[0].Points, ShouldEqual, 25)
				So(table.Entries[0].Wins, ShouldEqual, 1)
				So(table.Entries[0].Rank, ShouldEqual, 1)
				So(table.Entries[1].Name, ShouldEqual, "Elfyn Evans")
				So(table.Entries[1].Rank, ShouldEqual, 2)
				So(table.Entries[2].Points, ShouldEqual, 15)
				So(table.Individual, ShouldBeNil)
			})

			Convey("Then a class filter with no rows gives an empty table", func() {
				other, err := svc.Standings(ctx, champ.ID, "RC2")
				So(err, ShouldBeNil)
				So(other.Entries, ShouldBeEmpty)
			})
		})

		Convey("When creating a team in an individual championship", func() {
			_, err := svc.CreateTeam(ctx, champ.ID, "Toyota", nil)

			Convey("Then it is refused", func() {
				So(errors.Is(err, service.ErrWrongChampionshipKind), ShouldBeTrue)
			})
		})
	})
}

func TestService_TeamSeason(t *testing.T) {
	ctx := context.Background()

	Convey("Given a team championship with two teams", t, func() {
		svc := newService()
		Reset(func() { svc.Stop() })

		champ, err := svc.CreateChampionship(ctx, model.Championship{Name: "Manufacturers", Kind: model.KindTeam})
		So(err, ShouldBeNil)

		rally := seedRally(svc, nil, "Ott Tanak", "Thierry Neuville", "Adrien Fourmaux")
		So(svc.AttachRally(ctx, champ.ID, rally.ID), ShouldBeNil)
		_, err = svc.RunAutoLink(ctx, false)
		So(err, ShouldBeNil)
		_, err = svc.ApproveRally(ctx, rally.ID)
		So(err, ShouldBeNil)

		ids := map[string]string{}
		ps, err := svc.Participants(ctx)
		So(err, ShouldBeNil)
		for _, p := range ps {
			ids[p.DisplayName] = p.ID
		}

		_, err = svc.CreateTeam(ctx, champ.ID, "Hyundai", []string{ids["Ott Tanak"], ids["Thierry Neuville"]})
		So(err, ShouldBeNil)
		_, err = svc.CreateTeam(ctx, champ.ID, "M-Sport", []string{ids["Adrien Fourmaux"]})
		So(err, ShouldBeNil)

		Convey("When computing standings", func() {
			table, err := svc.Standings(ctx, champ.ID, "")
			So(err, ShouldBeNil)

			Convey("Then teams sum their members", func() {
				So(len(table.Entries), ShouldEqual, 2)
				So(table.Entries[0].Name, ShouldEqual, "Hyundai")
				So(table.Entries[0].Points, ShouldEqual, 43)
				So(table.Entries[1].Name, ShouldEqual, "M-Sport")
				So(table.Entries[1].Points, ShouldEqual, 15)
				So(len(table.Individual), ShouldEqual, 3)
			})
		})

		Convey("When listing teams", func() {
			teams, err := svc.Teams(ctx, champ.ID)
			So(err, ShouldBeNil)
			So(len(teams), ShouldEqual, 2)
		})
	})
}
