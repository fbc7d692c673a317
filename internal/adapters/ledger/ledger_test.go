package ledger_test

import (
	"errors"
	"testing"

	"github.com/okian/muster/internal/adapters/ledger"
	"github.com/okian/muster/internal/domain/model"
	. "github.com/smartystreets/goconvey/convey"
)

func TestLedger(t *testing.T) {
	Convey("Given a ledger over two positions", t, func() {
		book := ledger.New([]model.Position{
			{ID: "marshal", Capacity: 3},
			{ID: "water", Capacity: 1},
		})

		Convey("When nothing is reserved", func() {
			Convey("Then every position is at full capacity", func() {
				rem, err := book.Remaining("marshal")
				So(err, ShouldBeNil)
				So(rem, ShouldEqual, 3)
				So(book.Fits("water", 1), ShouldBeTrue)
			})
		})

		Convey("When reserving seats", func() {
			err := book.Reserve("marshal", 2)

			Convey("Then remaining capacity drops", func() {
				So(err, ShouldBeNil)
				rem, _ := book.Remaining("marshal")
				So(rem, ShouldEqual, 1)
				So(book.Fits("marshal", 1), ShouldBeTrue)
				So(book.Fits("marshal", 2), ShouldBeFalse)
			})
		})

		Convey("When reserving more than remains", func() {
			err := book.Reserve("water", 2)

			Convey("Then the reservation fails without mutating", func() {
				So(errors.Is(err, ledger.ErrInsufficientCapacity), ShouldBeTrue)
				rem, _ := book.Remaining("water")
				So(rem, ShouldEqual, 1)
			})
		})

		Convey("When reserving from an unknown position", func() {
			err := book.Reserve("nowhere", 1)

			Convey("Then the reservation fails", func() {
				So(errors.Is(err, ledger.ErrUnknownPosition), ShouldBeTrue)
				So(book.Fits("nowhere", 1), ShouldBeFalse)
			})
		})

		Convey("When reserving a non-positive count", func() {
			err := book.Reserve("marshal", 0)

			Convey("Then the reservation is rejected", func() {
				So(errors.Is(err, ledger.ErrInvalidReservation), ShouldBeTrue)
			})
		})

		Convey("When snapshotting", func() {
			So(book.Reserve("marshal", 1), ShouldBeNil)
			snap := book.Snapshot()

			Convey("Then the snapshot reflects current state", func() {
				So(snap["marshal"], ShouldEqual, 2)
				So(snap["water"], ShouldEqual, 1)
			})

			Convey("Then mutating the snapshot does not touch the ledger", func() {
				snap["marshal"] = 99
				rem, _ := book.Remaining("marshal")
				So(rem, ShouldEqual, 2)
			})
		})

		Convey("When listing position ids", func() {
			Convey("Then ids come back sorted", func() {
				So(book.PositionIDs(), ShouldResemble, []string{"marshal", "water"})
			})
		})
	})
}
