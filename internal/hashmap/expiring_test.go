package hashmap

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestNormalMap(t *testing.T) {
	obj := NewNormal[string, int]()
	obj.Set("a", 1)
	obj.Set("b", 2)
	assert.Equal(t, 2, obj.Size())

	val, ok := obj.Lookup("a")
	assert.True(t, ok)
	assert.Equal(t, 1, val)

	obj.Unset("a")
	_, ok = obj.Lookup("a")
	assert.False(t, ok)

	obj.Manipulate(func(underlying map[string]int) {
		underlying["c"] = 3
	})
	val, _ = obj.Lookup("c")
	assert.Equal(t, 3, val)

	obj.Clear()
	assert.Zero(t, obj.Size())
}

func TestExpiringMapCleanup(t *testing.T) {
	obj := NewExpiring[string, int](10 * time.Millisecond)
	obj.Set("a", 1)
	obj.ScheduleCleanupTask(5 * time.Millisecond)
	defer obj.StopCleanupTask()

	_, ok := obj.Lookup("a")
	assert.True(t, ok)

	assert.Eventually(t, func() bool {
		_, ok := obj.Lookup("a")
		return !ok
	}, time.Second, 5*time.Millisecond)
}
