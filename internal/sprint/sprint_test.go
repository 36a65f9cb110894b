package sprint

import (
	"testing"
	"time"

	"github.com/zulandar/sprintyard/internal/db"
	"github.com/zulandar/sprintyard/internal/item"
	"github.com/zulandar/sprintyard/internal/models"
	"gorm.io/gorm"
)

var testClock = time.Date(2026, 10, 5, 9, 0, 0, 0, time.UTC)

// testDB creates an in-memory database holding one project with a ready
// sprint, and pins the package clock.
func testDB(t *testing.T) (*gorm.DB, *models.Sprint) {
	t.Helper()
	gormDB, err := db.OpenMemory()
	if err != nil {
		t.Fatalf("open test db: %v", err)
	}
	if err := gormDB.Create(&models.Project{ID: "prj-1", Title: "Webshop", SprintDuration: 2}).Error; err != nil {
		t.Fatalf("create project: %v", err)
	}
	ready, err := CreateReady(gormDB, "prj-1")
	if err != nil {
		t.Fatalf("CreateReady: %v", err)
	}

	orig := now
	now = func() time.Time { return testClock }
	t.Cleanup(func() { now = orig })
	return gormDB, ready
}

func mkItem(t *testing.T, gormDB *gorm.DB, title, typ, parentID string, effort int) *models.Item {
	t.Helper()
	it, err := item.Create(gormDB, item.CreateOpts{
		ProjectID: "prj-1",
		Title:     title,
		Type:      typ,
		ParentID:  parentID,
		Effort:    effort,
	})
	if err != nil {
		t.Fatalf("create item %q: %v", title, err)
	}
	return it
}

func reload(t *testing.T, gormDB *gorm.DB, id string) *models.Item {
	t.Helper()
	it, err := item.Find(gormDB, id)
	if err != nil || it == nil {
		t.Fatalf("reload %s: %v", id, err)
	}
	return it
}

func countAssocs(t *testing.T, gormDB *gorm.DB, sprintID string) int64 {
	t.Helper()
	var n int64
	if err := gormDB.Model(&models.Association{}).Where("sprint_id = ?", sprintID).Count(&n).Error; err != nil {
		t.Fatalf("count associations: %v", err)
	}
	return n
}

func boardStatus(t *testing.T, gormDB *gorm.DB, itemID, sprintID string) string {
	t.Helper()
	var a models.Association
	if err := gormDB.Where("item_id = ? AND sprint_id = ?", itemID, sprintID).First(&a).Error; err != nil {
		t.Fatalf("association %s/%s: %v", itemID, sprintID, err)
	}
	return a.TaskBoardStatus
}

// epicTree builds an epic with n stories of m tasks each.
func epicTree(t *testing.T, gormDB *gorm.DB, n, m int) (*models.Item, []string) {
	t.Helper()
	epic := mkItem(t, gormDB, "Epic", models.TypeEpic, "", 0)
	ids := []string{epic.ID}
	for i := range n {
		story := mkItem(t, gormDB, "Story "+string(rune('A'+i)), models.TypeStory, epic.ID, 0)
		ids = append(ids, story.ID)
		for j := range m {
			task := mkItem(t, gormDB, "Task "+string(rune('A'+i))+string(rune('0'+j)), models.TypeTask, story.ID, 1)
			ids = append(ids, task.ID)
		}
	}
	return epic, ids
}

func startWith(t *testing.T, gormDB *gorm.DB, s *models.Sprint, items ...*models.Item) *models.Sprint {
	t.Helper()
	for _, it := range items {
		if err := MoveItemToSprint(gormDB, it.ID, s.ID, ""); err != nil {
			t.Fatalf("move %s: %v", it.ID, err)
		}
	}
	started, err := StartSprint(gormDB, s.ID, "Ship it")
	if err != nil || started == nil {
		t.Fatalf("StartSprint = %v, %v", started, err)
	}
	return started
}
