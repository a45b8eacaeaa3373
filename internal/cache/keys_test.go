package cache

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestKeySpace(t *testing.T) {
	require.Equal(t, "models:user:u1:page:2:limit:50", ModelListKey("u1", 2, 50))
	require.Equal(t, "models:user:u1:*", ModelListPattern("u1"))
	require.Equal(t, "projects:user:u1:page:1:limit:10", ProjectListKey("u1", 1, 10))
	require.Equal(t, "projects:user:u1:*", ProjectListPattern("u1"))
	require.Equal(t, "annotations:model:m9", AnnotationsKey("m9"))
	require.Equal(t, "stats:user:u1", UserStatsKey("u1"))
}
