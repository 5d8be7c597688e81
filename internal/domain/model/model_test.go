package model_test

import (
	"testing"

	model "github.com/okian/rally/internal/domain/model"
	"github.com/smartystreets/goconvey/convey"
)

func TestParticipant(t *testing.T) {
	convey.Convey("Given a participant", t, func() {
		convey.Convey("When the display name is set", func() {
			p := model.Participant{CanonicalName: "ott tanak", DisplayName: "Ott Tänak"}

			convey.So(p.Name(), convey.ShouldEqual, "Ott Tänak")
		})

		convey.Convey("When the display name is blank", func() {
			p := model.Participant{CanonicalName: "ott tanak", DisplayName: "  "}

			convey.So(p.Name(), convey.ShouldEqual, "ott tanak")
		})
	})
}

func TestResult(t *testing.T) {
	convey.Convey("Given result rows", t, func() {
		id := "p-1"
		empty := ""

		convey.So(model.Result{}.Linked(), convey.ShouldBeFalse)
		convey.So(model.Result{ParticipantID: &empty}.Linked(), convey.ShouldBeFalse)
		convey.So(model.Result{ParticipantID: &id}.Linked(), convey.ShouldBeTrue)
	})
}

func TestValidation(t *testing.T) {
	convey.Convey("Given status and kind values", t, func() {
		convey.So(model.ValidStatus(model.StatusPending), convey.ShouldBeTrue)
		convey.So(model.ValidStatus(model.StatusApproved), convey.ShouldBeTrue)
		convey.So(model.ValidStatus(model.StatusRejected), convey.ShouldBeTrue)
		convey.So(model.ValidStatus("done"), convey.ShouldBeFalse)

		convey.So(model.ValidKind(model.KindIndividual), convey.ShouldBeTrue)
		convey.So(model.ValidKind(model.KindTeam), convey.ShouldBeTrue)
		convey.So(model.ValidKind("mixed"), convey.ShouldBeFalse)
	})
}
