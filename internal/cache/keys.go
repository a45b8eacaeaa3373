package cache

import (
	"fmt"
	"time"
)

// Default lifetimes of cached list pages and annotation sets.
const (
	DefaultListTTL       = 2 * time.Minute
	DefaultAnnotationTTL = 3 * time.Minute
)

// TTLs groups the lifetimes applied to cached key spaces.
type TTLs struct {
	List       time.Duration
	Annotation time.Duration
}

// ModelListKey caches one page of a user's models.
func ModelListKey(userID string, page, limit int) string {
	return fmt.Sprintf("models:user:%s:page:%d:limit:%d", userID, page, limit)
}

// ModelListPattern matches every cached model page of a user.
func ModelListPattern(userID string) string {
	return fmt.Sprintf("models:user:%s:*", userID)
}

// ProjectListKey caches one page of a user's projects.
func ProjectListKey(userID string, page, limit int) string {
	return fmt.Sprintf("projects:user:%s:page:%d:limit:%d", userID, page, limit)
}

// ProjectListPattern matches every cached project page of a user.
func ProjectListPattern(userID string) string {
	return fmt.Sprintf("projects:user:%s:*", userID)
}

// AnnotationsKey caches all annotations of one model.
func AnnotationsKey(modelID string) string {
	return "annotations:model:" + modelID
}

// UserStatsKey caches a user's aggregate counters.
func UserStatsKey(userID string) string {
	return "stats:user:" + userID
}
