package logger_test

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"strings"
	"testing"

	"github.com/okian/rally/pkg/logger"
	. "github.com/smartystreets/goconvey/convey"
)

func TestInitWith(t *testing.T) {
	Convey("Given a JSON logger writing to a buffer", t, func() {
		var buf bytes.Buffer
		So(logger.InitWith(logger.Options{Format: "json", Output: &buf}), ShouldBeNil)
		log := logger.Named("linker")

		Convey("When logging at info", func() {
			log.Info(context.Background(), "batch finished", logger.Int("linked", 2), logger.Error(errors.New("boom")))

			Convey("Then the entry carries the fields, component and source", func() {
				var entry map[string]any
				So(json.Unmarshal(buf.Bytes(), &entry), ShouldBeNil)
				So(entry["msg"], ShouldEqual, "batch finished")
				So(entry["linked"], ShouldEqual, 2)
				So(entry["error"], ShouldEqual, "boom")
				So(entry["component"], ShouldEqual, "linker")
				So(entry["source"], ShouldContainSubstring, "logger_test.go")
			})
		})

		Convey("When the level is raised to warn", func() {
			So(logger.SetLevelString("warn"), ShouldBeNil)
			defer func() { _ = logger.SetLevelString("info") }()
			log.Info(context.Background(), "hidden")

			Convey("Then info entries are dropped", func() {
				So(buf.Len(), ShouldEqual, 0)
			})
		})
	})

	Convey("Given an unknown format", t, func() {
		So(logger.InitWith(logger.Options{Format: "xml"}), ShouldNotBeNil)
	})
}

func TestSetLevelString(t *testing.T) {
	Convey("Given level names", t, func() {
		So(logger.Init(), ShouldBeNil)
		for _, lvl := range []string{"debug", "INFO", "", "warning", "error"} {
			So(logger.SetLevelString(lvl), ShouldBeNil)
		}
		err := logger.SetLevelString("loud")
		So(err, ShouldNotBeNil)
		So(strings.Contains(err.Error(), "loud"), ShouldBeTrue)
		_ = logger.SetLevelString("info")
	})
}

func TestNop(t *testing.T) {
	Convey("Given the nop logger", t, func() {
		log := logger.Nop()

		So(func() {
			log.Info(context.Background(), "x")
			log.Named("y").Warn(context.Background(), "z")
		}, ShouldNotPanic)
	})
}
