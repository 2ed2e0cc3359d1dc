package access

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"

	"tradeacademy_backend/internal/model"
)

func curriculum(n int) []model.Video {
	videos := make([]model.Video, 0, n)
	for i := 1; i <= n; i++ {
		videos = append(videos, model.Video{
			Model:       gorm.Model{ID: uint(i)},
			StrategyID:  1,
			VideoNumber: i,
			Title:       "Lesson",
		})
	}
	return videos
}

func TestComputeSequentialUnlock(t *testing.T) {
	videos := curriculum(3)
	completed := map[uint]bool{1: true}

	result, progress := Compute(videos, completed)
	require.Len(t, result, 3)

	assert.True(t, result[0].IsCompleted)
	assert.True(t, result[0].CanAccess, "completed videos stay re-watchable")
	assert.Equal(t, StateCompleted, result[0].State)

	assert.True(t, result[1].IsCurrent)
	assert.True(t, result[1].CanAccess)
	assert.Equal(t, StateCurrent, result[1].State)

	assert.True(t, result[2].IsLocked)
	assert.False(t, result[2].CanAccess, "locked videos are not accessible even directly")
	assert.Equal(t, StateLocked, result[2].State)

	assert.Equal(t, 1, progress.CompletedCount)
	assert.Equal(t, 3, progress.TotalVideos)
	assert.Equal(t, 33, progress.ProgressPercentage)
	require.NotNil(t, progress.CurrentVideoID)
	assert.Equal(t, uint(2), *progress.CurrentVideoID)
}

func TestComputeNothingCompleted(t *testing.T) {
	result, progress := Compute(curriculum(3), map[uint]bool{})

	assert.True(t, result[0].IsCurrent)
	assert.True(t, result[1].IsLocked)
	assert.True(t, result[2].IsLocked)
	assert.Equal(t, 0, progress.ProgressPercentage)
}

func TestComputeAllCompleted(t *testing.T) {
	videos := curriculum(3)
	completed := map[uint]bool{1: true, 2: true, 3: true}

	result, progress := Compute(videos, completed)

	for _, v := range result {
		assert.Equal(t, StateCompleted, v.State)
		assert.True(t, v.CanAccess)
	}
	assert.Nil(t, progress.CurrentVideoID)
	assert.Equal(t, 100, progress.ProgressPercentage)
}

func TestComputeEmptyCurriculum(t *testing.T) {
	result, progress := Compute(nil, map[uint]bool{})

	assert.Empty(t, result)
	assert.Equal(t, 0, progress.TotalVideos)
	assert.Equal(t, 0, progress.ProgressPercentage)
	assert.Nil(t, progress.CurrentVideoID)
}

func TestComputeUnsortedInput(t *testing.T) {
	videos := curriculum(3)
	// Order in the slice must not matter, only the video number does
	videos[0], videos[2] = videos[2], videos[0]

	result, _ := Compute(videos, map[uint]bool{1: true})

	require.Len(t, result, 3)
	assert.Equal(t, 1, result[0].VideoNumber)
	assert.True(t, result[1].IsCurrent)
}

func TestComputeIsIdempotent(t *testing.T) {
	videos := curriculum(5)
	completed := map[uint]bool{1: true, 2: true}

	first, firstProgress := Compute(videos, completed)
	second, secondProgress := Compute(videos, completed)

	assert.Equal(t, first, second)
	assert.Equal(t, firstProgress, secondProgress)
	// Inputs are untouched
	assert.Equal(t, 1, videos[0].VideoNumber)
	assert.Len(t, completed, 2)
}

func TestCanAccess(t *testing.T) {
	videos := curriculum(3)
	completed := map[uint]bool{1: true}

	ok, _ := CanAccess(videos, completed, 2)
	assert.True(t, ok)

	ok, reason := CanAccess(videos, completed, 3)
	assert.False(t, ok)
	assert.NotEmpty(t, reason)

	ok, reason = CanAccess(videos, completed, 99)
	assert.False(t, ok)
	assert.Equal(t, "Video not found in your strategy", reason)

	// Re-watching a completed video is always permitted
	ok, _ = CanAccess(videos, completed, 1)
	assert.True(t, ok)
}
