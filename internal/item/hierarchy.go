package item

import (
	"fmt"

	"github.com/zulandar/sprintyard/internal/models"
	"gorm.io/gorm"
)

// StatusCount holds a status and its count for children summaries.
type StatusCount struct {
	Status string
	Count  int
}

// Node is an item with its subtree, used for tree rendering.
type Node struct {
	Item     models.Item
	Children []*Node
}

// Children returns the direct children of parentID, most important first.
func Children(db *gorm.DB, parentID string) ([]models.Item, error) {
	var children []models.Item
	if err := db.Where("parent_id = ?", parentID).
		Order("priority DESC, created_at ASC").
		Find(&children).Error; err != nil {
		return nil, fmt.Errorf("item: get children of %s: %w", parentID, err)
	}
	return children, nil
}

// Descendants walks the subtree below rootID depth-first (child, then the
// child's children) and returns every descendant in visit order. The root
// itself is not included.
func Descendants(db *gorm.DB, rootID string) ([]models.Item, error) {
	var out []models.Item
	visited := map[string]bool{rootID: true}
	var walk func(id string) error
	walk = func(id string) error {
		children, err := Children(db, id)
		if err != nil {
			return err
		}
		for _, c := range children {
			if visited[c.ID] {
				continue
			}
			visited[c.ID] = true
			out = append(out, c)
			if err := walk(c.ID); err != nil {
				return err
			}
		}
		return nil
	}
	if err := walk(rootID); err != nil {
		return nil, err
	}
	return out, nil
}

// Tree loads the subtree rooted at it.
func Tree(db *gorm.DB, it models.Item) (*Node, error) {
	root := &Node{Item: it}
	visited := map[string]bool{it.ID: true}
	var build func(n *Node) error
	build = func(n *Node) error {
		children, err := Children(db, n.Item.ID)
		if err != nil {
			return err
		}
		for _, c := range children {
			if visited[c.ID] {
				continue
			}
			visited[c.ID] = true
			child := &Node{Item: c}
			n.Children = append(n.Children, child)
			if err := build(child); err != nil {
				return err
			}
		}
		return nil
	}
	if err := build(root); err != nil {
		return nil, err
	}
	return root, nil
}

// HasChildren reports whether any item names id as its parent.
func HasChildren(db *gorm.DB, id string) (bool, error) {
	var count int64
	if err := db.Model(&models.Item{}).Where("parent_id = ?", id).Count(&count).Error; err != nil {
		return false, fmt.Errorf("item: count children of %s: %w", id, err)
	}
	return count > 0, nil
}

// ParentIDs returns the set of item IDs that have at least one child, among
// the items of a project. An empty projectID scans all items.
func ParentIDs(db *gorm.DB, projectID string) (map[string]bool, error) {
	q := db.Model(&models.Item{}).Where("parent_id IS NOT NULL")
	if projectID != "" {
		q = q.Where("project_id = ?", projectID)
	}
	var ids []string
	if err := q.Distinct().Pluck("parent_id", &ids).Error; err != nil {
		return nil, fmt.Errorf("item: list parents: %w", err)
	}
	set := make(map[string]bool, len(ids))
	for _, id := range ids {
		set[id] = true
	}
	return set, nil
}

// Ancestors returns the chain of parents above it, nearest first.
func Ancestors(db *gorm.DB, it models.Item) ([]models.Item, error) {
	var out []models.Item
	seen := map[string]bool{it.ID: true}
	cur := it
	for cur.ParentID != nil && !seen[*cur.ParentID] {
		parent, err := Find(db, *cur.ParentID)
		if err != nil {
			return nil, err
		}
		if parent == nil {
			break
		}
		seen[parent.ID] = true
		out = append(out, *parent)
		cur = *parent
	}
	return out, nil
}

// ChildrenSummary returns status counts for all children of a parent item.
func ChildrenSummary(db *gorm.DB, parentID string) ([]StatusCount, error) {
	var results []StatusCount
	if err := db.Model(&models.Item{}).
		Select("status, COUNT(*) as count").
		Where("parent_id = ?", parentID).
		Group("status").
		Order("status ASC").
		Find(&results).Error; err != nil {
		return nil, fmt.Errorf("item: children summary of %s: %w", parentID, err)
	}
	return results, nil
}

// IDs extracts the IDs of items, preserving order.
func IDs(items []models.Item) []string {
	ids := make([]string, len(items))
	for i, it := range items {
		ids[i] = it.ID
	}
	return ids
}
