package models

// Item types. Epics own Stories, Stories own Tasks and Bugs.
const (
	TypeEpic  = "epic"
	TypeStory = "story"
	TypeTask  = "task"
	TypeBug   = "bug"
)

// Item statuses mirror the state of the sprint an item is associated with.
const (
	ItemBacklog  = "backlog"
	ItemReady    = "ready"
	ItemActive   = "active"
	ItemFinished = "finished"
)

// Sprint statuses. Transitions only ever move forward.
const (
	SprintReady    = "ready"
	SprintActive   = "active"
	SprintFinished = "finished"
)

// Task-board statuses, in board order.
const (
	BoardToDo       = "todo"
	BoardInProgress = "in_progress"
	BoardForReview  = "for_review"
	BoardDone       = "done"
)

// BoardColumns lists the task-board statuses from left to right.
var BoardColumns = []string{BoardToDo, BoardInProgress, BoardForReview, BoardDone}

// ItemTypes lists every valid item type.
var ItemTypes = []string{TypeEpic, TypeStory, TypeTask, TypeBug}

// IsContainerType reports whether items of type t may own children.
func IsContainerType(t string) bool {
	return t == TypeEpic || t == TypeStory
}

// ItemStatusForSprint maps a sprint status onto the status its items carry.
func ItemStatusForSprint(sprintStatus string) string {
	switch sprintStatus {
	case SprintReady:
		return ItemReady
	case SprintActive:
		return ItemActive
	case SprintFinished:
		return ItemFinished
	}
	return ItemBacklog
}
