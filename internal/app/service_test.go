package service_test

import (
	"context"
	"errors"
	"fmt"
	"sync/atomic"
	"testing"
	"time"

	. "github.com/smartystreets/goconvey/convey"

	service "github.com/okian/starboard/internal/app"
	"github.com/okian/starboard/internal/adapters/repository"
	"github.com/okian/starboard/internal/domain/clock"
	"github.com/okian/starboard/internal/domain/model"
	"github.com/okian/starboard/internal/domain/picker"
	"github.com/okian/starboard/internal/domain/roster"
)

// Wednesday; the weeks starting 2 and 9 March have begun.
var wednesday = time.Date(2025, 3, 12, 10, 0, 0, 0, time.UTC)

func march() model.Month { return model.Month{Year: 2025, Month: time.March} }

func newService(now time.Time) (*service.Service, *repository.MemoryStore) {
	store := repository.NewMemoryStore()
	return newServiceWith(now, store), store
}

func newServiceWith(now time.Time, store repository.Store) *service.Service {
	var n atomic.Int64
	return service.New(
		service.WithStore(store),
		service.WithClock(clock.Fixed(now)),
		service.WithPicker(picker.New(picker.WithSource(picker.NewSequence(0)))),
		service.WithIDGenerator(func() string { return fmt.Sprintf("id-%d", n.Add(1)) }),
		service.WithEnvironment("test"),
	)
}

func seed(ctx context.Context, svc *service.Service) {
	_, err := svc.ReplaceCoordinators(ctx, []model.Coordinator{
		{ID: "a", Name: "Ann", Stars: 1, Available: true},
		{ID: "b", Name: "Ben", Stars: 1, Available: true},
		{ID: "c", Name: "Cara", Stars: 1, Available: true},
		{ID: "d", Name: "Dan", Stars: 1, Available: true},
	})
	So(err, ShouldBeNil)
}

var errBoardsDown = errors.New("boards down")

// brokenBoards fails board saves once broken is set.
type brokenBoards struct {
	*repository.MemoryStore
	broken atomic.Bool
}

func (s *brokenBoards) SaveBoards(ctx context.Context, boards []model.MonthlyBoard) error {
	if s.broken.Load() {
		return errBoardsDown
	}
	return s.MemoryStore.SaveBoards(ctx, boards)
}

func slot(t *testing.T, b model.MonthlyBoard, date string, typ model.MeetingType) model.Assignment {
	t.Helper()
	i := b.Find(date, typ)
	if i < 0 {
		t.Fatalf("slot %s %s missing", date, typ)
	}
	return b.Assignments[i]
}

func TestGeneration(t *testing.T) {
	Convey("Given a service with four coordinators", t, func() {
		ctx := context.Background()
		svc, _ := newService(wednesday)
		seed(ctx, svc)

		Convey("When generating two months from March", func() {
			res, err := svc.GenerateHorizon(ctx, march(), 2)

			Convey("Then each month uses every coordinator once", func() {
				So(err, ShouldBeNil)
				So(len(res.Boards), ShouldEqual, 2)
				So(res.Assigned, ShouldEqual, 8)
				So(res.Unassigned, ShouldEqual, 9)
				So(res.StarsSpent, ShouldEqual, 4)

				boards, err := svc.Boards(ctx)
				So(err, ShouldBeNil)
				So(boards[0].Month, ShouldEqual, "2025-03")
				So(len(boards[0].Assignments), ShouldEqual, 9)
				So(slot(t, boards[0], "2025-03-02", model.Sunday).CoordinatorID, ShouldEqual, "a")
				So(slot(t, boards[0], "2025-03-07", model.Friday).CoordinatorID, ShouldEqual, "b")
			})

			Convey("And stars are spent", func() {
				coords, err := svc.Coordinators(ctx)
				So(err, ShouldBeNil)
				for _, c := range coords {
					So(c.Stars, ShouldEqual, 0)
				}
			})

			Convey("And elapsed slots are written to the lead log", func() {
				logs, err := svc.LeadLogs(ctx)
				So(err, ShouldBeNil)
				So(len(logs), ShouldEqual, 3)
				So(logs[0].Date, ShouldEqual, "2025-03-02")
				So(logs[0].CoordinatorName, ShouldEqual, "Ann")
				So(logs[2].MonthStart, ShouldEqual, "2025-03-01")
			})
		})

		Convey("When the month count is negative", func() {
			_, err := svc.GenerateHorizon(ctx, march(), -1)

			Convey("Then it is an input error", func() {
				So(errors.Is(err, model.ErrInput), ShouldBeTrue)
			})
		})

		Convey("When generating a single past month", func() {
			_, err := svc.GenerateMonth(ctx, model.Month{Year: 2025, Month: time.February})

			Convey("Then it is refused", func() {
				So(errors.Is(err, model.ErrHistoricalMonth), ShouldBeTrue)
			})
		})

		Convey("When generating a single future month", func() {
			board, err := svc.GenerateMonth(ctx, model.Month{Year: 2025, Month: time.April})

			Convey("Then it is stored", func() {
				So(err, ShouldBeNil)
				So(board.Month, ShouldEqual, "2025-04")
				got, err := svc.Board(ctx, "2025-04")
				So(err, ShouldBeNil)
				So(got.Assignments, ShouldResemble, board.Assignments)
			})
		})

		Convey("When asking for a board that does not exist", func() {
			_, err := svc.Board(ctx, "2030-01")

			Convey("Then it is not found", func() {
				So(errors.Is(err, model.ErrNotFound), ShouldBeTrue)
			})
		})
	})
}

func TestRegeneration(t *testing.T) {
	Convey("Given a generated March", t, func() {
		ctx := context.Background()
		svc, _ := newService(wednesday)
		seed(ctx, svc)
		_, err := svc.GenerateHorizon(ctx, march(), 1)
		So(err, ShouldBeNil)
		before, err := svc.Board(ctx, "2025-03")
		So(err, ShouldBeNil)

		Convey("When regenerating March", func() {
			res, err := svc.RegenerateMonth(ctx, march())

			Convey("Then slots up to the current week are kept", func() {
				So(err, ShouldBeNil)
				So(res.Regenerated, ShouldResemble, []string{"2025-03"})
				after, err := svc.Board(ctx, "2025-03")
				So(err, ShouldBeNil)
				for _, date := range []string{"2025-03-02", "2025-03-07", "2025-03-09", "2025-03-14"} {
					typ := model.Sunday
					if date == "2025-03-07" || date == "2025-03-14" {
						typ = model.Friday
					}
					So(slot(t, after, date, typ), ShouldResemble, slot(t, before, date, typ))
				}
			})
		})

		Convey("When regenerating a stored February", func() {
			boards, err := svc.Boards(ctx)
			So(err, ShouldBeNil)
			_, err = svc.ReplaceBoards(ctx, append(boards, model.MonthlyBoard{
				Month: "2025-02",
				Assignments: []model.Assignment{
					{Date: "2025-02-02", Type: model.Sunday, CoordinatorID: "a", CoordinatorName: "Ann"},
					{Date: "2025-02-07", Type: model.Friday, CoordinatorID: "b", CoordinatorName: "Ben"},
				},
			}))
			So(err, ShouldBeNil)
			february, err := svc.Board(ctx, "2025-02")
			So(err, ShouldBeNil)
			coords, err := svc.Coordinators(ctx)
			So(err, ShouldBeNil)

			_, err = svc.RegenerateMonth(ctx, model.Month{Year: 2025, Month: time.February})

			Convey("Then it is a rule violation and nothing changes", func() {
				So(errors.Is(err, model.ErrRule), ShouldBeTrue)
				after, err := svc.Board(ctx, "2025-02")
				So(err, ShouldBeNil)
				So(after, ShouldResemble, february)
				So(slot(t, after, "2025-02-07", model.Friday).CoordinatorID, ShouldEqual, "b")
				later, err := svc.Coordinators(ctx)
				So(err, ShouldBeNil)
				So(later, ShouldResemble, coords)
			})
		})

		Convey("When regenerating several months", func() {
			res, err := svc.RegenerateMonths(ctx, []model.Month{
				{Year: 2025, Month: time.April},
				{Year: 2025, Month: time.February},
				march(),
			})

			Convey("Then past months are skipped and the rest run in order", func() {
				So(err, ShouldBeNil)
				So(res.Regenerated, ShouldResemble, []string{"2025-03", "2025-04"})
				So(res.Skipped, ShouldResemble, []string{"2025-02"})
			})
		})
	})
}

func TestAutoGenerate(t *testing.T) {
	Convey("Given the second-to-last day of March", t, func() {
		ctx := context.Background()
		svc, _ := newService(time.Date(2025, 3, 30, 8, 0, 0, 0, time.UTC))
		seed(ctx, svc)

		Convey("When auto generation runs twice", func() {
			month, generated, err := svc.AutoGenerateNextMonth(ctx)
			So(err, ShouldBeNil)
			_, again, err2 := svc.AutoGenerateNextMonth(ctx)

			Convey("Then April is generated once", func() {
				So(month, ShouldEqual, "2025-04")
				So(generated, ShouldBeTrue)
				So(err2, ShouldBeNil)
				So(again, ShouldBeFalse)
			})
		})
	})

	Convey("Given an empty April board on the second-to-last day of March", t, func() {
		ctx := context.Background()
		svc, _ := newService(time.Date(2025, 3, 30, 8, 0, 0, 0, time.UTC))
		seed(ctx, svc)
		_, err := svc.ReplaceBoards(ctx, []model.MonthlyBoard{{Month: "2025-04"}})
		So(err, ShouldBeNil)

		Convey("When auto generation runs", func() {
			month, generated, err := svc.AutoGenerateNextMonth(ctx)

			Convey("Then April is filled in", func() {
				So(err, ShouldBeNil)
				So(month, ShouldEqual, "2025-04")
				So(generated, ShouldBeTrue)
				board, err := svc.Board(ctx, "2025-04")
				So(err, ShouldBeNil)
				So(slot(t, board, "2025-04-04", model.Friday).Assigned(), ShouldBeTrue)
			})
		})
	})

	Convey("Given an ordinary day", t, func() {
		ctx := context.Background()
		svc, _ := newService(wednesday)

		Convey("Then nothing is generated", func() {
			_, generated, err := svc.AutoGenerateNextMonth(ctx)
			So(err, ShouldBeNil)
			So(generated, ShouldBeFalse)
		})
	})
}

func TestSlotEdits(t *testing.T) {
	Convey("Given a generated March", t, func() {
		ctx := context.Background()
		store := &brokenBoards{MemoryStore: repository.NewMemoryStore()}
		svc := newServiceWith(wednesday, store)
		seed(ctx, svc)
		_, err := svc.GenerateHorizon(ctx, march(), 1)
		So(err, ShouldBeNil)

		Convey("When assigning someone already on another Friday", func() {
			res, err := svc.AssignSlot(ctx, "2025-03", "2025-03-21", model.Friday, "b")

			Convey("Then a conflict is pending and the board is unchanged", func() {
				So(err, ShouldBeNil)
				So(res.Conflict, ShouldNotBeNil)
				So(res.Conflict.Name, ShouldEqual, "Ben")
				So(svc.Conflicts(ctx), ShouldHaveLength, 1)

				board, err := svc.Board(ctx, "2025-03")
				So(err, ShouldBeNil)
				So(slot(t, board, "2025-03-21", model.Friday).Assigned(), ShouldBeFalse)

				events, err := svc.AuditEvents(ctx, 1)
				So(err, ShouldBeNil)
				So(events[0].Action, ShouldEqual, model.ActionDuplicateDetected)
			})

			Convey("And auto resolution picks the only unused coordinator", func() {
				_, err := svc.AddCoordinator(ctx, roster.NewCoordinator{Name: "Eve"})
				So(err, ShouldBeNil)

				out, err := svc.ResolveConflictAuto(ctx, res.Conflict.ID)
				So(err, ShouldBeNil)
				So(out.NoEligible, ShouldBeFalse)
				So(slot(t, out.Board, "2025-03-21", model.Friday).CoordinatorName, ShouldEqual, "Eve")
				So(svc.Conflicts(ctx), ShouldBeEmpty)

				coords, err := svc.Coordinators(ctx)
				So(err, ShouldBeNil)
				So(coords[len(coords)-1].Stars, ShouldEqual, 0)
			})

			Convey("And manual resolution validates the name", func() {
				_, err := svc.ResolveConflictManual(ctx, res.Conflict.ID, "Zed")
				So(errors.Is(err, model.ErrUnknownCoordinator), ShouldBeTrue)

				_, err = svc.ResolveConflictManual(ctx, res.Conflict.ID, "BEN")
				So(errors.Is(err, model.ErrStillDuplicate), ShouldBeTrue)
				So(svc.Conflicts(ctx), ShouldHaveLength, 1)

				out, err := svc.ResolveConflictManual(ctx, res.Conflict.ID, "ann")
				So(err, ShouldBeNil)
				So(slot(t, out.Board, "2025-03-21", model.Friday).CoordinatorID, ShouldEqual, "a")

				events, err := svc.AuditEvents(ctx, 0)
				So(err, ShouldBeNil)
				So(events[0].Action, ShouldEqual, model.ActionDuplicateResolvedManual)
				So(events[0].Resolution, ShouldEqual, model.ResolutionManualEntry)
			})

			Convey("And dismissing closes it without changes", func() {
				So(svc.DismissConflict(ctx, res.Conflict.ID), ShouldBeNil)
				So(svc.Conflicts(ctx), ShouldBeEmpty)
				err := svc.DismissConflict(ctx, res.Conflict.ID)
				So(errors.Is(err, model.ErrConflictNotFound), ShouldBeTrue)

				events, err := svc.AuditEvents(ctx, 1)
				So(err, ShouldBeNil)
				So(events[0].Action, ShouldEqual, model.ActionConflictDismissed)
			})
		})

		Convey("When toggling joined on and off", func() {
			on, err := svc.ToggleJoined(ctx, "2025-03", "2025-03-14", model.Friday, true)
			So(err, ShouldBeNil)
			off, err := svc.ToggleJoined(ctx, "2025-03", "2025-03-14", model.Friday, false)
			So(err, ShouldBeNil)

			Convey("Then the slot is cleared and then re-picked", func() {
				a := slot(t, on.Board, "2025-03-14", model.Friday)
				So(a.Joined, ShouldBeTrue)
				So(a.Assigned(), ShouldBeFalse)

				b := slot(t, off.Board, "2025-03-14", model.Friday)
				So(b.Joined, ShouldBeFalse)
				So(b.CoordinatorID, ShouldEqual, "d")

				events, err := svc.AuditEvents(ctx, 2)
				So(err, ShouldBeNil)
				So(events[0].Action, ShouldEqual, model.ActionJoinedUnchecked)
				So(events[1].Action, ShouldEqual, model.ActionJoinedChecked)
				So(events[1].PreviousCoordinatorID, ShouldEqual, "d")
			})
		})

		Convey("When marking a Friday as youth Sunday", func() {
			_, err := svc.ToggleYouth(ctx, "2025-03", "2025-03-14", model.Friday, true)

			Convey("Then it is an input error", func() {
				So(errors.Is(err, model.ErrYouthOnFriday), ShouldBeTrue)
			})
		})

		Convey("When editing a month without a board", func() {
			_, err := svc.AssignSlot(ctx, "2025-09", "2025-09-05", model.Friday, "a")

			Convey("Then the board is not found", func() {
				So(errors.Is(err, model.ErrBoardNotFound), ShouldBeTrue)
			})
		})

		Convey("When a board save fails after a pick spent a star", func() {
			_, err := svc.ToggleJoined(ctx, "2025-03", "2025-03-21", model.Friday, true)
			So(err, ShouldBeNil)
			eve, err := svc.AddCoordinator(ctx, roster.NewCoordinator{Name: "Eve"})
			So(err, ShouldBeNil)
			store.broken.Store(true)

			_, err = svc.ToggleJoined(ctx, "2025-03", "2025-03-21", model.Friday, false)

			Convey("Then the error surfaces and the star is not spent", func() {
				So(errors.Is(err, errBoardsDown), ShouldBeTrue)
				coords, err := svc.Coordinators(ctx)
				So(err, ShouldBeNil)
				So(coords[model.IndexCoordinator(coords, eve.ID)].Stars, ShouldEqual, roster.DefaultStars)
			})
		})

		Convey("When clearing a slot", func() {
			res, err := svc.AssignSlot(ctx, "2025-03", "2025-03-02", model.Sunday, "")

			Convey("Then the slot is unassigned", func() {
				So(err, ShouldBeNil)
				So(slot(t, res.Board, "2025-03-02", model.Sunday).Assigned(), ShouldBeFalse)
			})
		})
	})
}

func TestRoster(t *testing.T) {
	Convey("Given a generated March", t, func() {
		ctx := context.Background()
		svc, _ := newService(wednesday)
		seed(ctx, svc)
		_, err := svc.GenerateHorizon(ctx, march(), 1)
		So(err, ShouldBeNil)

		Convey("When renaming a coordinator", func() {
			name := "Anna"
			c, err := svc.UpdateCoordinator(ctx, "a", roster.Patch{Name: &name})

			Convey("Then the board shows the new name", func() {
				So(err, ShouldBeNil)
				So(c.Name, ShouldEqual, "Anna")
				board, err := svc.Board(ctx, "2025-03")
				So(err, ShouldBeNil)
				So(slot(t, board, "2025-03-02", model.Sunday).CoordinatorName, ShouldEqual, "Anna")
			})
		})

		Convey("When replacing the roster with a renamed coordinator", func() {
			coords, err := svc.Coordinators(ctx)
			So(err, ShouldBeNil)
			coords[model.IndexCoordinator(coords, "a")].Name = "Annette"
			_, err = svc.ReplaceCoordinators(ctx, coords)

			Convey("Then the board shows the new name", func() {
				So(err, ShouldBeNil)
				board, err := svc.Board(ctx, "2025-03")
				So(err, ShouldBeNil)
				a := slot(t, board, "2025-03-02", model.Sunday)
				So(a.CoordinatorID, ShouldEqual, "a")
				So(a.CoordinatorName, ShouldEqual, "Annette")
				So(slot(t, board, "2025-03-07", model.Friday).CoordinatorName, ShouldEqual, "Ben")
			})
		})

		Convey("When removing a coordinator", func() {
			err := svc.RemoveCoordinator(ctx, "b")

			Convey("Then the roster shrinks and history keeps the name", func() {
				So(err, ShouldBeNil)
				coords, err := svc.Coordinators(ctx)
				So(err, ShouldBeNil)
				So(coords, ShouldHaveLength, 3)
				board, err := svc.Board(ctx, "2025-03")
				So(err, ShouldBeNil)
				So(slot(t, board, "2025-03-07", model.Friday).CoordinatorName, ShouldEqual, "Ben")
			})
		})

		Convey("When removing an unknown coordinator", func() {
			err := svc.RemoveCoordinator(ctx, "zz")

			Convey("Then it is not found", func() {
				So(errors.Is(err, model.ErrCoordinatorNotFound), ShouldBeTrue)
			})
		})

		Convey("When adding a coordinator with markup", func() {
			c, err := svc.AddCoordinator(ctx, roster.NewCoordinator{Name: "<b>Fay</b>", Phone: " 555 "})

			Convey("Then the name is cleaned", func() {
				So(err, ShouldBeNil)
				So(c.Name, ShouldEqual, "Fay")
				So(c.Phone, ShouldEqual, "555")
				So(c.Stars, ShouldEqual, roster.DefaultStars)
			})
		})
	})
}

func TestReplaceBoards(t *testing.T) {
	Convey("Given a service with a roster", t, func() {
		ctx := context.Background()
		svc, _ := newService(wednesday)
		seed(ctx, svc)

		Convey("When a board holds a date from another month", func() {
			_, err := svc.ReplaceBoards(ctx, []model.MonthlyBoard{{
				Month:       "2025-03",
				Assignments: []model.Assignment{{Date: "2025-04-04", Type: model.Friday}},
			}})

			Convey("Then it is rejected as input", func() {
				So(errors.Is(err, model.ErrInput), ShouldBeTrue)
			})
		})

		Convey("When a date is not a real calendar day", func() {
			_, err := svc.ReplaceBoards(ctx, []model.MonthlyBoard{{
				Month:       "2025-03",
				Assignments: []model.Assignment{{Date: "2025-03-99", Type: model.Friday}},
			}})

			Convey("Then it is rejected as an invalid date", func() {
				So(errors.Is(err, model.ErrInvalidDate), ShouldBeTrue)
				So(errors.Is(err, model.ErrInput), ShouldBeTrue)
				boards, err := svc.Boards(ctx)
				So(err, ShouldBeNil)
				So(boards, ShouldBeEmpty)
			})
		})

		Convey("When a Sunday is sent as a Friday slot", func() {
			_, err := svc.ReplaceBoards(ctx, []model.MonthlyBoard{{
				Month:       "2025-03",
				Assignments: []model.Assignment{{Date: "2025-03-02", Type: model.Friday}},
			}})

			Convey("Then it is rejected as an invalid type", func() {
				So(errors.Is(err, model.ErrInvalidType), ShouldBeTrue)
				So(errors.Is(err, model.ErrInput), ShouldBeTrue)
			})
		})

		Convey("When a board carries a stale name for a known coordinator", func() {
			saved, err := svc.ReplaceBoards(ctx, []model.MonthlyBoard{{
				Month: "2025-03",
				Assignments: []model.Assignment{
					{Date: "2025-03-07", Type: model.Friday, CoordinatorID: "b", CoordinatorName: "Bob"},
				},
			}})

			Convey("Then the roster name is stored", func() {
				So(err, ShouldBeNil)
				So(saved[0].Assignments[0].CoordinatorName, ShouldEqual, "Ben")
				board, err := svc.Board(ctx, "2025-03")
				So(err, ShouldBeNil)
				So(slot(t, board, "2025-03-07", model.Friday).CoordinatorName, ShouldEqual, "Ben")
			})
		})

		Convey("When a valid partial board is stored", func() {
			saved, err := svc.ReplaceBoards(ctx, []model.MonthlyBoard{{
				Month: "2025-03",
				Assignments: []model.Assignment{
					{Date: "2025-03-07", Type: "friday", CoordinatorID: "x", CoordinatorName: "X"},
					{Date: "2025-03-02", Type: model.Sunday, YouthSunday: true, CoordinatorID: "y", CoordinatorName: "Y"},
				},
			}})

			Convey("Then it is normalised and backfilled on read", func() {
				So(err, ShouldBeNil)
				So(saved[0].Assignments[0].Date, ShouldEqual, "2025-03-02")
				So(saved[0].Assignments[0].Assigned(), ShouldBeFalse)
				So(saved[0].Assignments[1].Type, ShouldEqual, model.Friday)

				boards, err := svc.Boards(ctx)
				So(err, ShouldBeNil)
				So(boards[0].Assignments, ShouldHaveLength, 9)
			})
		})
	})
}

func TestHealth(t *testing.T) {
	Convey("Given a memory-backed service", t, func() {
		ctx := context.Background()
		svc, _ := newService(wednesday)
		So(svc.Start(ctx), ShouldBeNil)

		Convey("Then health reports the backend", func() {
			h := svc.Health(ctx)
			So(h.Status, ShouldEqual, "ok")
			So(h.Backend, ShouldEqual, "memory")
			So(h.DBConfigured, ShouldBeFalse)
			So(h.Env, ShouldEqual, "test")
			So(h.Time, ShouldEqual, wednesday)
		})

		Reset(func() {
			So(svc.Stop(ctx), ShouldBeNil)
		})
	})
}
