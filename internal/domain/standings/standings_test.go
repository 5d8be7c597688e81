package standings_test

import (
	"testing"

	"github.com/okian/rally/internal/domain/model"
	"github.com/okian/rally/internal/domain/standings"
	. "github.com/smartystreets/goconvey/convey"
)

func ptr[T any](v T) *T { return &v }

func approved(id, pid, name, class string, pos int) model.Result {
	r := model.Result{ID: id, ParticipantName: name, Class: class, Position: pos, Status: model.StatusApproved}
	if pid != "" {
		r.ParticipantID = ptr(pid)
	}
	return r
}

func TestPointsTable(t *testing.T) {
	Convey("Given the default points table", t, func() {
		tbl := standings.DefaultPointsTable

		So(tbl.For(1), ShouldEqual, 25)
		So(tbl.For(10), ShouldEqual, 1)
		So(tbl.For(11), ShouldEqual, 0)
		So(tbl.For(0), ShouldEqual, 0)
		So(tbl.For(-3), ShouldEqual, 0)
	})

	Convey("Given a custom table", t, func() {
		c := standings.NewCalculator(standings.WithPointsTable([]int{10, 5}))
		So(c.Table(), ShouldResemble, standings.PointsTable{10, 5})

		Convey("Then an invalid table is ignored", func() {
			c := standings.NewCalculator(standings.WithPointsTable([]int{10, -1}))
			So(c.Table(), ShouldResemble, standings.DefaultPointsTable)
		})

		Convey("Then an explicit override wins over the table", func() {
			r := approved("x", "p", "P", "", 1)
			r.Points = ptr(7)
			So(c.Points(r), ShouldEqual, 7)
		})
	})
}

func TestIndividual(t *testing.T) {
	names := map[string]string{"ott": "Ott Tänak", "kalle": "Kalle Rovanperä", "elfyn": "Elfyn Evans"}

	Convey("Given results from two rallies", t, func() {
		results := []model.Result{
			approved("1", "ott", "Ott Tanak", "WRC", 1),
			approved("2", "kalle", "K. Rovanpera", "WRC", 2),
			approved("3", "elfyn", "Evans", "WRC", 3),
			approved("4", "kalle", "Kalle", "WRC", 1),
			approved("5", "ott", "Ott", "WRC", 2),
			approved("6", "", "  Jari  Huttunen ", "WRC2", 1),
			approved("7", "", "jari huttunen", "WRC2", 4),
			{ID: "8", ParticipantID: ptr("elfyn"), Position: 1, Class: "WRC", Status: model.StatusPending},
			{ID: "9", ParticipantID: ptr("elfyn"), Position: 1, Class: "WRC", Status: model.StatusRejected},
		}
		c := standings.NewCalculator()

		Convey("When computing the full table", func() {
			out := c.Individual(results, names, "")

			Convey("Then points are summed and unapproved rows ignored", func() {
				So(len(out), ShouldEqual, 4)
				So(out[0].Key, ShouldEqual, "kalle")
				So(out[0].Name, ShouldEqual, "Kalle Rovanperä")
				So(out[1].Key, ShouldEqual, "ott")
				So(out[0].Points, ShouldEqual, 43)
				So(out[1].Points, ShouldEqual, 43)

				So(out[2].Name, ShouldEqual, "Jari Huttunen")
				So(out[2].Points, ShouldEqual, 37)
				So(out[2].ParticipantID, ShouldBeEmpty)
				So(out[2].Key, ShouldEqual, "name:jari huttunen")

				So(out[3].Key, ShouldEqual, "elfyn")
				So(out[3].Points, ShouldEqual, 15)
				So(out[3].Starts, ShouldEqual, 1)
			})

			Convey("Then entries tied on points and wins share a dense rank", func() {
				So(out[0].Rank, ShouldEqual, 1)
				So(out[1].Rank, ShouldEqual, 1)
				So(out[2].Rank, ShouldEqual, 2)
				So(out[3].Rank, ShouldEqual, 3)
			})
		})

		Convey("When filtering by class", func() {
			out := c.Individual(results, names, " wrc2 ")

			Convey("Then only that class counts", func() {
				So(len(out), ShouldEqual, 1)
				So(out[0].Points, ShouldEqual, 37)
				So(out[0].Wins, ShouldEqual, 1)
				So(out[0].BestPosition, ShouldEqual, 1)
			})
		})
	})

	Convey("Given entries tied on points but not wins", t, func() {
		results := []model.Result{
			approved("1", "a", "A", "", 1),
			approved("2", "b", "B", "", 2),
			approved("3", "b", "B", "", 0),
		}
		results[1].Points = ptr(25)

		out := standings.NewCalculator().Individual(results, nil, "")

		Convey("Then wins break the tie", func() {
			So(out[0].Key, ShouldEqual, "a")
			So(out[0].Rank, ShouldEqual, 1)
			So(out[1].Key, ShouldEqual, "b")
			So(out[1].Rank, ShouldEqual, 2)
			So(out[1].Starts, ShouldEqual, 2)
			So(out[1].BestPosition, ShouldEqual, 2)
		})
	})

	Convey("Given no results", t, func() {
		So(standings.NewCalculator().Individual(nil, nil, ""), ShouldBeEmpty)
	})
}

func TestTeams(t *testing.T) {
	Convey("Given an individual table and teams", t, func() {
		c := standings.NewCalculator()
		ind := c.Individual([]model.Result{
			approved("1", "a", "A", "", 1),
			approved("2", "b", "B", "", 2),
			approved("3", "c", "C", "", 3),
			approved("4", "", "Unlinked", "", 4),
		}, nil, "")
		teams := []model.Team{
			{ID: "t1", Name: "Alpha", MemberIDs: []string{"a", "c"}},
			{ID: "t2", Name: "Bravo", MemberIDs: []string{"b", "ghost"}},
			{ID: "t3", Name: "Empty"},
		}

		out := c.Teams(teams, ind)

		Convey("Then members' points are summed", func() {
			So(len(out), ShouldEqual, 3)
			So(out[0].Key, ShouldEqual, "t1")
			So(out[0].Points, ShouldEqual, 40)
			So(out[0].Wins, ShouldEqual, 1)
			So(out[0].BestPosition, ShouldEqual, 1)
			So(out[0].Members, ShouldResemble, []string{"a", "c"})
			So(out[1].Key, ShouldEqual, "t2")
			So(out[1].Points, ShouldEqual, 18)
			So(out[2].Points, ShouldEqual, 0)
			So(out[2].Rank, ShouldEqual, 3)
		})
	})
}
