package repository

import (
	"context"
	"encoding/json"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/gofrs/flock"
	. "github.com/smartystreets/goconvey/convey"

	"github.com/okian/starboard/internal/domain/model"
)

func TestFileStore_Contract(t *testing.T) {
	store, err := NewFileStore(t.TempDir())
	if err != nil {
		t.Fatalf("new file store: %v", err)
	}
	defer store.Close()
	exerciseStore(t, store)
}

func TestFileStore(t *testing.T) {
	Convey("Given a file store in a temp dir", t, func() {
		dir := t.TempDir()
		store, err := NewFileStore(dir, WithLockTimeout(200*time.Millisecond))
		So(err, ShouldBeNil)
		Reset(func() { _ = store.Close() })
		ctx := context.Background()

		Convey("When saving coordinators", func() {
			err := store.SaveCoordinators(ctx, []model.Coordinator{{ID: "a", Name: "Ann", Stars: 1, Available: true}})
			So(err, ShouldBeNil)

			Convey("Then coordinators.json should hold plain JSON and no temp files remain", func() {
				data, err := os.ReadFile(filepath.Join(dir, CoordinatorsFile))
				So(err, ShouldBeNil)
				var raw []map[string]any
				So(json.Unmarshal(data, &raw), ShouldBeNil)
				So(raw[0]["name"], ShouldEqual, "Ann")

				matches, _ := filepath.Glob(filepath.Join(dir, "*.tmp"))
				So(matches, ShouldBeEmpty)
			})

			Convey("Then a second store over the same dir should see them", func() {
				other, err := NewFileStore(dir)
				So(err, ShouldBeNil)
				defer other.Close()
				got, err := other.LoadCoordinators(ctx)
				So(err, ShouldBeNil)
				So(len(got), ShouldEqual, 1)
			})
		})

		Convey("When the audit log has a blank line", func() {
			So(store.AppendAuditEvent(ctx, model.AuditEvent{ID: "1", Action: model.ActionYouthChecked}), ShouldBeNil)
			f, err := os.OpenFile(filepath.Join(dir, AuditFile), os.O_APPEND|os.O_WRONLY, 0o644)
			So(err, ShouldBeNil)
			_, _ = f.WriteString("\n")
			_ = f.Close()
			So(store.AppendAuditEvent(ctx, model.AuditEvent{ID: "2", Action: model.ActionYouthUnchecked}), ShouldBeNil)

			Convey("Then it should be skipped", func() {
				events, err := store.ListAuditEvents(ctx, 0)
				So(err, ShouldBeNil)
				So(len(events), ShouldEqual, 2)
				So(events[0].ID, ShouldEqual, "2")
			})
		})

		Convey("When a file is corrupt", func() {
			So(os.WriteFile(filepath.Join(dir, BoardsFile), []byte("{not json"), 0o644), ShouldBeNil)
			_, err := store.LoadBoards(ctx)
			So(err, ShouldNotBeNil)
		})

		Convey("When another process holds the lock", func() {
			holder := flock.New(filepath.Join(dir, lockFile))
			locked, err := holder.TryLock()
			So(err, ShouldBeNil)
			So(locked, ShouldBeTrue)
			defer holder.Unlock()

			err = store.SaveBoards(ctx, nil)

			Convey("Then writes should time out", func() {
				So(err, ShouldEqual, ErrLockTimeout)
			})
		})

		Convey("When the directory is empty", func() {
			boards, err := store.LoadBoards(ctx)
			So(err, ShouldBeNil)
			So(boards, ShouldBeEmpty)
			leads, err := store.ListLeadLogs(ctx)
			So(err, ShouldBeNil)
			So(leads, ShouldBeEmpty)
		})
	})
}
