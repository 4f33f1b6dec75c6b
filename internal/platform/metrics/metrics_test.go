package metrics

import (
	"errors"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
	. "github.com/smartystreets/goconvey/convey"
)

func TestRecorder(t *testing.T) {
	Convey("Given a recorder", t, func() {
		rec := New("test")

		Convey("When advances and batches are recorded", func() {
			rec.ObserveAdvance("live_match", 20*time.Millisecond)
			rec.ObserveAdvance("live_match", 10*time.Millisecond)
			rec.ObserveAdvance("blocked", time.Millisecond)
			rec.BatchProcessed(10)

			Convey("Then counters reflect them", func() {
				So(testutil.ToFloat64(rec.advances.WithLabelValues("live_match")), ShouldEqual, 2)
				So(testutil.ToFloat64(rec.advances.WithLabelValues("blocked")), ShouldEqual, 1)
				So(testutil.ToFloat64(rec.batches), ShouldEqual, 1)
				So(testutil.ToFloat64(rec.matchesSimulated), ShouldEqual, 10)
			})
		})

		Convey("When a stage fails", func() {
			rec.ObserveStage("loan_return", time.Millisecond, errors.New("boom"))
			rec.ObserveStage("loan_return", time.Millisecond, nil)

			Convey("Then only the failure is counted", func() {
				So(testutil.ToFloat64(rec.stageFailures.WithLabelValues("loan_return")), ShouldEqual, 1)
			})
		})
	})

	Convey("A nil recorder is a no-op", t, func() {
		var rec *Recorder
		So(func() {
			rec.ObserveAdvance("blocked", time.Second)
			rec.BatchProcessed(3)
			rec.DispatchFailed()
			rec.CareerTicks(2)
			rec.ObserveStage("x", time.Second, nil)
		}, ShouldNotPanic)
	})
}
