package cache

import (
	"strings"
	"time"

	"github.com/fouadkhalied/task-mangment-system/internal/tasks/domain/task"
)

// Namespace is a cache region with its own TTL. The Redis key of an entry is
// "<namespace>:<key>".
type Namespace string

const (
	NamespaceTask      Namespace = "task"
	NamespaceTaskList  Namespace = "task_list"
	NamespaceTaskCount Namespace = "task_count"
	NamespaceUserTask  Namespace = "user_task"
)

// Namespaces returns every namespace.
func Namespaces() []Namespace {
	return []Namespace{NamespaceTask, NamespaceTaskList, NamespaceTaskCount, NamespaceUserTask}
}

// TTLConfig holds the time-to-live per namespace.
type TTLConfig struct {
	Task  time.Duration
	List  time.Duration
	Count time.Duration
	User  time.Duration
}

// DefaultTTLConfig returns the default TTLs.
func DefaultTTLConfig() TTLConfig {
	return TTLConfig{
		Task:  time.Hour,
		List:  30 * time.Minute,
		Count: 15 * time.Minute,
		User:  45 * time.Minute,
	}
}

// For returns the TTL of a namespace.
func (c TTLConfig) For(ns Namespace) time.Duration {
	switch ns {
	case NamespaceTask:
		return c.Task
	case NamespaceTaskList:
		return c.List
	case NamespaceTaskCount:
		return c.Count
	case NamespaceUserTask:
		return c.User
	default:
		return c.List
	}
}

// Key derivation. Each function returns the key within its namespace.

func TaskKey(taskID string) string { return taskID }

func BoardListKey(boardID string) string { return "board:" + boardID }

func BoardStatusListKey(boardID string, status task.Status) string {
	return "board:" + boardID + ":status:" + string(status)
}

func BoardOrderedListKey(boardID string) string { return "board:" + boardID + ":ordered" }

func UserStatusListKey(userID string, status task.Status) string {
	return "user:" + userID + ":status:" + string(status)
}

func OverdueListKey() string { return "overdue" }

func BoardStatusCountKey(boardID string, status task.Status) string {
	return "board:" + boardID + ":status:" + string(status)
}

func UserTaskKey(userID string) string { return userID }

// RedisKey returns the full store key for an entry.
func RedisKey(ns Namespace, key string) string {
	return string(ns) + ":" + key
}

// stripNamespace accepts either a namespaced or a bare key.
func stripNamespace(ns Namespace, key string) string {
	return strings.TrimPrefix(key, string(ns)+":")
}

// boardKeys lists every entry whose contents depend on a board's membership.
// Every status is enumerated, not just those present.
func boardKeys(boardID string) map[Namespace][]string {
	lists := []string{BoardListKey(boardID), BoardOrderedListKey(boardID)}
	var counts []string
	for _, s := range task.Statuses() {
		lists = append(lists, BoardStatusListKey(boardID, s))
		counts = append(counts, BoardStatusCountKey(boardID, s))
	}
	return map[Namespace][]string{
		NamespaceTaskList:  lists,
		NamespaceTaskCount: counts,
	}
}

// userKeys lists every entry whose contents depend on a user's assignments.
func userKeys(userID string) map[Namespace][]string {
	var lists []string
	for _, s := range task.Statuses() {
		lists = append(lists, UserStatusListKey(userID, s))
	}
	return map[Namespace][]string{
		NamespaceUserTask: {UserTaskKey(userID)},
		NamespaceTaskList: lists,
	}
}
