package sprint

import (
	"testing"
	"time"

	"github.com/zulandar/sprintyard/internal/models"
)

func TestMoveItemToSprint_CascadeCount(t *testing.T) {
	tests := []struct{ n, m int }{{0, 0}, {1, 1}, {2, 3}, {3, 2}}
	for _, tt := range tests {
		gormDB, ready := testDB(t)
		epic, ids := epicTree(t, gormDB, tt.n, tt.m)

		if err := MoveItemToSprint(gormDB, epic.ID, ready.ID, ""); err != nil {
			t.Fatalf("MoveItemToSprint: %v", err)
		}

		want := int64(1 + tt.n + tt.n*tt.m)
		if got := countAssocs(t, gormDB, ready.ID); got != want {
			t.Errorf("n=%d m=%d: associations = %d, want %d", tt.n, tt.m, got, want)
		}
		for _, id := range ids {
			if got := boardStatus(t, gormDB, id, ready.ID); got != models.BoardToDo {
				t.Errorf("board status of %s = %q, want todo", id, got)
			}
			if got := reload(t, gormDB, id).Status; got != models.ItemReady {
				t.Errorf("status of %s = %q, want ready", id, got)
			}
		}
	}
}

func TestMoveItemToSprint_Idempotent(t *testing.T) {
	gormDB, ready := testDB(t)
	epic, _ := epicTree(t, gormDB, 2, 2)

	for range 2 {
		if err := MoveItemToSprint(gormDB, epic.ID, ready.ID, ""); err != nil {
			t.Fatalf("MoveItemToSprint: %v", err)
		}
	}
	if got := countAssocs(t, gormDB, ready.ID); got != 7 {
		t.Errorf("associations = %d, want 7", got)
	}
}

func TestMoveThenRemove_Restores(t *testing.T) {
	gormDB, ready := testDB(t)
	epic, ids := epicTree(t, gormDB, 2, 2)

	if err := MoveItemToSprint(gormDB, epic.ID, ready.ID, ""); err != nil {
		t.Fatalf("MoveItemToSprint: %v", err)
	}
	if err := RemoveItemFromSprint(gormDB, epic.ID, ready.ID, ""); err != nil {
		t.Fatalf("RemoveItemFromSprint: %v", err)
	}

	if got := countAssocs(t, gormDB, ready.ID); got != 0 {
		t.Errorf("associations = %d, want 0", got)
	}
	for _, id := range ids {
		if got := reload(t, gormDB, id).Status; got != models.ItemBacklog {
			t.Errorf("status of %s = %q, want backlog", id, got)
		}
	}
}

func TestMoveItemToSprint_MissingIsNoop(t *testing.T) {
	gormDB, ready := testDB(t)
	task := mkItem(t, gormDB, "Task", models.TypeTask, "", 1)

	if err := MoveItemToSprint(gormDB, "itm-missing", ready.ID, ""); err != nil {
		t.Errorf("missing item: err = %v", err)
	}
	if err := MoveItemToSprint(gormDB, task.ID, "spr-missing", ""); err != nil {
		t.Errorf("missing sprint: err = %v", err)
	}
	if got := countAssocs(t, gormDB, ready.ID); got != 0 {
		t.Errorf("associations = %d, want 0", got)
	}
	if got := reload(t, gormDB, task.ID).Status; got != models.ItemBacklog {
		t.Errorf("status = %q, want backlog", got)
	}
}

func TestMoveItemToSprint_Parent(t *testing.T) {
	gormDB, ready := testDB(t)
	story := mkItem(t, gormDB, "Story", models.TypeStory, "", 0)
	other := mkItem(t, gormDB, "Other", models.TypeStory, "", 0)
	task := mkItem(t, gormDB, "Task", models.TypeTask, story.ID, 1)

	if err := MoveItemToSprint(gormDB, task.ID, ready.ID, other.ID); err != nil {
		t.Fatalf("MoveItemToSprint: %v", err)
	}
	if got := reload(t, gormDB, task.ID).ParentID; got == nil || *got != other.ID {
		t.Errorf("parent = %v, want %s", got, other.ID)
	}

	if err := MoveItemToSprint(gormDB, task.ID, ready.ID, ""); err != nil {
		t.Fatalf("MoveItemToSprint: %v", err)
	}
	if got := reload(t, gormDB, task.ID).ParentID; got != nil {
		t.Errorf("parent = %s, want nil", *got)
	}
}

func TestMoveItemToSprint_SkipsFinishedDescendants(t *testing.T) {
	gormDB, ready := testDB(t)
	story := mkItem(t, gormDB, "Story", models.TypeStory, "", 0)
	open := mkItem(t, gormDB, "Open", models.TypeTask, story.ID, 1)
	done := mkItem(t, gormDB, "Done", models.TypeTask, story.ID, 1)
	gormDB.Model(&models.Item{}).Where("id = ?", done.ID).Update("status", models.ItemFinished)

	if err := MoveItemToSprint(gormDB, story.ID, ready.ID, ""); err != nil {
		t.Fatalf("MoveItemToSprint: %v", err)
	}
	if got := countAssocs(t, gormDB, ready.ID); got != 2 {
		t.Errorf("associations = %d, want 2", got)
	}
	if got := reload(t, gormDB, done.ID).Status; got != models.ItemFinished {
		t.Errorf("finished child status = %q, want finished", got)
	}
	if got := reload(t, gormDB, open.ID).Status; got != models.ItemReady {
		t.Errorf("open child status = %q, want ready", got)
	}
}

func TestRemoveItemFromSprint_TakesParentStatus(t *testing.T) {
	gormDB, ready := testDB(t)
	story := mkItem(t, gormDB, "Story", models.TypeStory, "", 0)
	task := mkItem(t, gormDB, "Task", models.TypeTask, "", 1)
	if err := MoveItemToSprint(gormDB, task.ID, ready.ID, ""); err != nil {
		t.Fatalf("MoveItemToSprint: %v", err)
	}

	if err := RemoveItemFromSprint(gormDB, task.ID, ready.ID, story.ID); err != nil {
		t.Fatalf("RemoveItemFromSprint: %v", err)
	}
	got := reload(t, gormDB, task.ID)
	if got.Status != models.ItemBacklog {
		t.Errorf("status = %q, want backlog", got.Status)
	}
	if got.ParentID == nil || *got.ParentID != story.ID {
		t.Errorf("parent = %v, want %s", got.ParentID, story.ID)
	}
}

func TestRemoveItemFromSprint_NoAssociationIsNoop(t *testing.T) {
	gormDB, ready := testDB(t)
	story := mkItem(t, gormDB, "Story", models.TypeStory, "", 0)
	task := mkItem(t, gormDB, "Task", models.TypeTask, story.ID, 1)

	if err := RemoveItemFromSprint(gormDB, task.ID, ready.ID, ""); err != nil {
		t.Fatalf("RemoveItemFromSprint: %v", err)
	}
	if got := reload(t, gormDB, task.ID).ParentID; got == nil || *got != story.ID {
		t.Errorf("parent changed to %v", got)
	}
}

func TestReparentAssociation(t *testing.T) {
	t.Run("backlog under backlog", func(t *testing.T) {
		gormDB, ready := testDB(t)
		story := mkItem(t, gormDB, "Story", models.TypeStory, "", 0)
		task := mkItem(t, gormDB, "Task", models.TypeTask, "", 1)

		if err := ReparentAssociation(gormDB, task.ID, ready.ID, story.ID); err != nil {
			t.Fatalf("ReparentAssociation: %v", err)
		}
		if got := countAssocs(t, gormDB, ready.ID); got != 0 {
			t.Errorf("associations = %d, want 0", got)
		}
	})

	t.Run("backlog under scheduled parent moves", func(t *testing.T) {
		gormDB, ready := testDB(t)
		story := mkItem(t, gormDB, "Story", models.TypeStory, "", 0)
		task := mkItem(t, gormDB, "Task", models.TypeTask, "", 1)
		MoveItemToSprint(gormDB, story.ID, ready.ID, "")

		if err := ReparentAssociation(gormDB, task.ID, ready.ID, story.ID); err != nil {
			t.Fatalf("ReparentAssociation: %v", err)
		}
		got := reload(t, gormDB, task.ID)
		if got.Status != models.ItemReady {
			t.Errorf("status = %q, want ready", got.Status)
		}
		if got.ParentID == nil || *got.ParentID != story.ID {
			t.Errorf("parent = %v, want %s", got.ParentID, story.ID)
		}
		if n := countAssocs(t, gormDB, ready.ID); n != 2 {
			t.Errorf("associations = %d, want 2", n)
		}
	})

	t.Run("scheduled under backlog parent removes", func(t *testing.T) {
		gormDB, ready := testDB(t)
		story := mkItem(t, gormDB, "Story", models.TypeStory, "", 0)
		task := mkItem(t, gormDB, "Task", models.TypeTask, "", 1)
		MoveItemToSprint(gormDB, task.ID, ready.ID, "")

		if err := ReparentAssociation(gormDB, task.ID, ready.ID, story.ID); err != nil {
			t.Fatalf("ReparentAssociation: %v", err)
		}
		if got := reload(t, gormDB, task.ID).Status; got != models.ItemBacklog {
			t.Errorf("status = %q, want backlog", got)
		}
		if n := countAssocs(t, gormDB, ready.ID); n != 0 {
			t.Errorf("associations = %d, want 0", n)
		}
	})

	t.Run("same sprint is a no-op", func(t *testing.T) {
		gormDB, ready := testDB(t)
		story := mkItem(t, gormDB, "Story", models.TypeStory, "", 0)
		task := mkItem(t, gormDB, "Task", models.TypeTask, "", 1)
		MoveItemToSprint(gormDB, story.ID, ready.ID, "")
		MoveItemToSprint(gormDB, task.ID, ready.ID, "")

		if err := ReparentAssociation(gormDB, task.ID, ready.ID, story.ID); err != nil {
			t.Fatalf("ReparentAssociation: %v", err)
		}
		if got := reload(t, gormDB, task.ID).ParentID; got != nil {
			t.Errorf("parent = %s, want untouched nil", *got)
		}
		if n := countAssocs(t, gormDB, ready.ID); n != 2 {
			t.Errorf("associations = %d, want 2", n)
		}
	})

	t.Run("different sprints left alone", func(t *testing.T) {
		gormDB, ready := testDB(t)
		story := mkItem(t, gormDB, "Story", models.TypeStory, "", 0)
		task := mkItem(t, gormDB, "Task", models.TypeTask, "", 1)
		active := startWith(t, gormDB, ready, task)
		next, _ := CreateReady(gormDB, "prj-1")
		MoveItemToSprint(gormDB, story.ID, next.ID, "")

		if err := ReparentAssociation(gormDB, task.ID, next.ID, story.ID); err != nil {
			t.Fatalf("ReparentAssociation: %v", err)
		}
		if got := reload(t, gormDB, task.ID).Status; got != models.ItemActive {
			t.Errorf("status = %q, want active", got)
		}
		if n := countAssocs(t, gormDB, active.ID); n != 1 {
			t.Errorf("active associations = %d, want 1", n)
		}
	})

	t.Run("missing parent", func(t *testing.T) {
		gormDB, ready := testDB(t)
		task := mkItem(t, gormDB, "Task", models.TypeTask, "", 1)
		if err := ReparentAssociation(gormDB, task.ID, ready.ID, ""); err != nil {
			t.Fatalf("ReparentAssociation: %v", err)
		}
		if err := ReparentAssociation(gormDB, task.ID, ready.ID, "itm-missing"); err != nil {
			t.Fatalf("ReparentAssociation: %v", err)
		}
	})
}

func TestIncrementTaskBoardStatus(t *testing.T) {
	gormDB, ready := testDB(t)
	task := mkItem(t, gormDB, "Task", models.TypeTask, "", 3)
	MoveItemToSprint(gormDB, task.ID, ready.ID, "")

	a, err := IncrementTaskBoardStatus(gormDB, ready.ID, task.ID, 1)
	if err != nil || a != nil {
		t.Fatalf("ready sprint: got %v, %v; want nil, nil", a, err)
	}

	startWith(t, gormDB, ready)
	later := testClock.Add(72 * time.Hour)
	now = func() time.Time { return later }

	tests := []struct {
		delta int
		want  string
	}{
		{1, models.BoardInProgress},
		{1, models.BoardForReview},
		{10, models.BoardDone},
		{-1, models.BoardForReview},
		{-10, models.BoardToDo},
		{-1, models.BoardToDo},
	}
	for _, tt := range tests {
		a, err := IncrementTaskBoardStatus(gormDB, ready.ID, task.ID, tt.delta)
		if err != nil {
			t.Fatalf("IncrementTaskBoardStatus(%d): %v", tt.delta, err)
		}
		if a == nil || a.TaskBoardStatus != tt.want {
			t.Fatalf("IncrementTaskBoardStatus(%d) = %+v, want %s", tt.delta, a, tt.want)
		}
		if got := boardStatus(t, gormDB, task.ID, ready.ID); got != tt.want {
			t.Errorf("stored board status = %q, want %q", got, tt.want)
		}
	}

	missing, err := IncrementTaskBoardStatus(gormDB, ready.ID, "itm-missing", 1)
	if err != nil || missing != nil {
		t.Errorf("missing item: got %v, %v", missing, err)
	}
}

func TestIncrementTaskBoardStatus_LastMovedOnlyOnChange(t *testing.T) {
	gormDB, ready := testDB(t)
	task := mkItem(t, gormDB, "Task", models.TypeTask, "", 3)
	startWith(t, gormDB, ready, task)

	a, _ := IncrementTaskBoardStatus(gormDB, ready.ID, task.ID, -1)
	if !a.LastMoved.Equal(testClock) {
		t.Errorf("clamped move changed last_moved to %v", a.LastMoved)
	}

	later := testClock.Add(time.Hour)
	now = func() time.Time { return later }
	a, _ = IncrementTaskBoardStatus(gormDB, ready.ID, task.ID, 1)
	if !a.LastMoved.Equal(later) {
		t.Errorf("last_moved = %v, want %v", a.LastMoved, later)
	}
}

func TestFollowParent(t *testing.T) {
	gormDB, ready := testDB(t)
	story := mkItem(t, gormDB, "Story", models.TypeStory, "", 0)
	MoveItemToSprint(gormDB, story.ID, ready.ID, "")

	task := mkItem(t, gormDB, "Task", models.TypeTask, story.ID, 2)
	if err := FollowParent(gormDB, task); err != nil {
		t.Fatalf("FollowParent: %v", err)
	}
	if got := reload(t, gormDB, task.ID).Status; got != models.ItemReady {
		t.Errorf("status = %q, want ready", got)
	}
	if got := boardStatus(t, gormDB, task.ID, ready.ID); got != models.BoardToDo {
		t.Errorf("board status = %q, want todo", got)
	}

	loose := mkItem(t, gormDB, "Loose", models.TypeTask, "", 1)
	if err := FollowParent(gormDB, loose); err != nil {
		t.Fatalf("FollowParent without parent: %v", err)
	}
	if got := reload(t, gormDB, loose.ID).Status; got != models.ItemBacklog {
		t.Errorf("status = %q, want backlog", got)
	}
}

func TestAssociations_BoardOrder(t *testing.T) {
	gormDB, ready := testDB(t)
	a := mkItem(t, gormDB, "A", models.TypeTask, "", 1)
	b := mkItem(t, gormDB, "B", models.TypeTask, "", 1)
	startWith(t, gormDB, ready, a, b)
	IncrementTaskBoardStatus(gormDB, ready.ID, a.ID, 2)

	assocs, err := Associations(gormDB, ready.ID)
	if err != nil {
		t.Fatalf("Associations: %v", err)
	}
	if len(assocs) != 2 || assocs[0].ItemID != b.ID || assocs[1].ItemID != a.ID {
		t.Errorf("order = %+v", assocs)
	}
	if assocs[0].Item.Title != "B" {
		t.Errorf("item not preloaded: %+v", assocs[0].Item)
	}
}
