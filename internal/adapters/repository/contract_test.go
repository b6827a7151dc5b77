package repository

import (
	"context"
	"testing"
	"time"

	"github.com/okian/starboard/internal/domain/model"
)

// exerciseStore runs the behaviour every backend must share.
func exerciseStore(t *testing.T, store Store) {
	t.Helper()
	ctx := context.Background()

	coords, err := store.LoadCoordinators(ctx)
	if err != nil {
		t.Fatalf("load empty coordinators: %v", err)
	}
	if len(coords) != 0 {
		t.Fatalf("expected no coordinators, got %d", len(coords))
	}

	roster := []model.Coordinator{
		{ID: "b", Name: "Bob", Stars: 0, Available: true},
		{ID: "a", Name: "Ann", Stars: 3, Available: false, Phone: "555"},
	}
	if err := store.SaveCoordinators(ctx, roster); err != nil {
		t.Fatalf("save coordinators: %v", err)
	}
	got, err := store.LoadCoordinators(ctx)
	if err != nil {
		t.Fatalf("load coordinators: %v", err)
	}
	if len(got) != 2 || got[0].ID != "b" || got[1].Phone != "555" || got[1].Available {
		t.Errorf("coordinators did not round trip in order: %+v", got)
	}

	// overwrite drops missing entries
	if err := store.SaveCoordinators(ctx, roster[1:]); err != nil {
		t.Fatalf("overwrite coordinators: %v", err)
	}
	got, _ = store.LoadCoordinators(ctx)
	if len(got) != 1 || got[0].ID != "a" {
		t.Errorf("expected only a after overwrite, got %+v", got)
	}

	boards := []model.MonthlyBoard{
		{Month: "2025-04", Assignments: []model.Assignment{{Date: "2025-04-04", Type: model.Friday, CoordinatorID: "a", CoordinatorName: "Ann"}}},
		{Month: "2025-03", Assignments: []model.Assignment{{Date: "2025-03-02", Type: model.Sunday, YouthSunday: true}}},
	}
	if err := store.SaveBoards(ctx, boards); err != nil {
		t.Fatalf("save boards: %v", err)
	}
	gotBoards, err := store.LoadBoards(ctx)
	if err != nil {
		t.Fatalf("load boards: %v", err)
	}
	if len(gotBoards) != 2 || gotBoards[0].Month != "2025-03" {
		t.Fatalf("boards not ordered by month: %+v", gotBoards)
	}
	if !gotBoards[0].Assignments[0].YouthSunday || gotBoards[1].Assignments[0].CoordinatorName != "Ann" {
		t.Errorf("assignments did not round trip: %+v", gotBoards)
	}

	base := time.Date(2025, 3, 1, 12, 0, 0, 0, time.UTC)
	for i, action := range []model.AuditAction{model.ActionJoinedChecked, model.ActionDuplicateDetected, model.ActionDuplicateResolvedAuto} {
		ev := model.AuditEvent{ID: string(action), Timestamp: base.Add(time.Duration(i) * time.Minute), Action: action, MonthStart: "2025-03-01"}
		if err := store.AppendAuditEvent(ctx, ev); err != nil {
			t.Fatalf("append audit: %v", err)
		}
	}
	events, err := store.ListAuditEvents(ctx, 2)
	if err != nil {
		t.Fatalf("list audit: %v", err)
	}
	if len(events) != 2 || events[0].Action != model.ActionDuplicateResolvedAuto || events[1].Action != model.ActionDuplicateDetected {
		t.Errorf("expected newest two events, got %+v", events)
	}
	all, _ := store.ListAuditEvents(ctx, 0)
	if len(all) != 3 {
		t.Errorf("expected 3 events, got %d", len(all))
	}

	logs := []model.LeadLog{
		{Date: "2025-03-09", Type: model.Sunday, CoordinatorID: "a", CoordinatorName: "Ann", MonthStart: "2025-03-01"},
		{Date: "2025-03-07", Type: model.Friday, CoordinatorID: "b", CoordinatorName: "Bob", MonthStart: "2025-03-01"},
	}
	if err := store.UpsertLeadLogs(ctx, logs); err != nil {
		t.Fatalf("upsert leads: %v", err)
	}
	if err := store.UpsertLeadLogs(ctx, []model.LeadLog{{Date: "2025-03-09", Type: model.Sunday, CoordinatorID: "c", CoordinatorName: "Cid"}}); err != nil {
		t.Fatalf("upsert leads again: %v", err)
	}
	leads, err := store.ListLeadLogs(ctx)
	if err != nil {
		t.Fatalf("list leads: %v", err)
	}
	if len(leads) != 2 || leads[0].Date != "2025-03-07" || leads[1].CoordinatorName != "Cid" {
		t.Errorf("lead logs not upserted by slot: %+v", leads)
	}
}
