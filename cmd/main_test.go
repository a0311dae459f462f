package main

import (
	"bytes"
	"context"
	"testing"
	"time"

	"github.com/smartystreets/goconvey/convey"
)

func TestMaxScoreCommand(t *testing.T) {
	convey.Convey("Given the maxscore command", t, func() {
		out := &bytes.Buffer{}
		rootCmd.SetOut(out)
		rootCmd.SetErr(&bytes.Buffer{})

		convey.Convey("When run with a note count", func() {
			rootCmd.SetArgs([]string{"maxscore", "300"})
			err := rootCmd.Execute()

			convey.Convey("Then it prints the maximum score", func() {
				convey.So(err, convey.ShouldBeNil)
				convey.So(out.String(), convey.ShouldEqual, "268755\n")
			})
		})

		convey.Convey("When run with a negative count", func() {
			rootCmd.SetArgs([]string{"maxscore", "-3"})
			err := rootCmd.Execute()

			convey.Convey("Then it fails", func() {
				convey.So(err, convey.ShouldNotBeNil)
			})
		})

		convey.Convey("When run without arguments", func() {
			rootCmd.SetArgs([]string{"maxscore"})
			err := rootCmd.Execute()

			convey.Convey("Then it fails", func() {
				convey.So(err, convey.ShouldNotBeNil)
			})
		})
	})
}

func TestUpdateSystemMetrics(t *testing.T) {
	convey.Convey("Given the system metrics updater", t, func() {
		convey.Convey("Then a single update does not panic", func() {
			convey.So(updateSystemMetrics, convey.ShouldNotPanic)
		})
	})
}

func TestSystemMetricsUpdater(t *testing.T) {
	convey.Convey("Given a running system metrics updater", t, func() {
		ctx, cancel := context.WithCancel(context.Background())
		done := make(chan struct{})
		go func() {
			startSystemMetricsUpdater(ctx, 5*time.Millisecond)
			close(done)
		}()

		convey.Convey("When its context is cancelled after a few ticks", func() {
			time.Sleep(20 * time.Millisecond)
			cancel()

			convey.Convey("Then it returns", func() {
				select {
				case <-done:
				case <-time.After(time.Second):
					t.Fatal("updater did not stop")
				}
			})
		})
	})
}
