package access

import (
	"math"
	"sort"

	"tradeacademy_backend/internal/model"
)

// State is the single display state of a video in the unlock sequence.
// When more than one flag would apply, completed wins over current,
// current over locked, locked over ready.
type State string

const (
	StateCompleted State = "completed"
	StateCurrent   State = "current"
	StateLocked    State = "locked"
	StateReady     State = "ready"
)

// VideoAccess is one video with its computed access flags.
type VideoAccess struct {
	ID            uint   `json:"id"`
	StrategyID    uint   `json:"strategy_id"`
	VideoNumber   int    `json:"video_number"`
	Title         string `json:"title"`
	Description   string `json:"description"`
	CoverPhotoURL string `json:"cover_photo_url"`
	IsCompleted   bool   `json:"is_completed"`
	IsCurrent     bool   `json:"is_current"`
	IsLocked      bool   `json:"is_locked"`
	CanAccess     bool   `json:"can_access"`
	State         State  `json:"state"`
}

// Progress aggregates completion across a strategy's curriculum.
type Progress struct {
	TotalVideos        int   `json:"total_videos"`
	CompletedCount     int   `json:"completed_count"`
	ProgressPercentage int   `json:"progress_percentage"`
	CurrentVideoID     *uint `json:"current_video_id"`
}

// Compute derives per-video access for a sequentially unlocked curriculum.
// A video is accessible when every lower-numbered video is completed, or when
// it is itself completed (re-watching is always allowed). Exactly one video
// is current: the lowest-numbered incomplete one. Pure function, no I/O.
func Compute(videos []model.Video, completed map[uint]bool) ([]VideoAccess, Progress) {
	ordered := make([]model.Video, len(videos))
	copy(ordered, videos)
	sort.SliceStable(ordered, func(i, j int) bool {
		return ordered[i].VideoNumber < ordered[j].VideoNumber
	})

	result := make([]VideoAccess, 0, len(ordered))
	progress := Progress{TotalVideos: len(ordered)}

	allPriorCompleted := true
	for _, v := range ordered {
		isCompleted := completed[v.ID]
		isCurrent := false
		if isCompleted {
			progress.CompletedCount++
		} else if allPriorCompleted && progress.CurrentVideoID == nil {
			isCurrent = true
			id := v.ID
			progress.CurrentVideoID = &id
		}
		isLocked := !isCompleted && !isCurrent && !allPriorCompleted

		result = append(result, VideoAccess{
			ID:            v.ID,
			StrategyID:    v.StrategyID,
			VideoNumber:   v.VideoNumber,
			Title:         v.Title,
			Description:   v.Description,
			CoverPhotoURL: v.CoverPhotoURL,
			IsCompleted:   isCompleted,
			IsCurrent:     isCurrent,
			IsLocked:      isLocked,
			CanAccess:     isCompleted || isCurrent,
			State:         stateOf(isCompleted, isCurrent, isLocked),
		})

		if !isCompleted {
			allPriorCompleted = false
		}
	}

	if progress.TotalVideos > 0 {
		progress.ProgressPercentage = int(math.Round(
			100 * float64(progress.CompletedCount) / float64(progress.TotalVideos)))
	}

	return result, progress
}

// CanAccess answers the authoritative server-side check for a single video.
// Returns a human-readable reason when access is denied.
func CanAccess(videos []model.Video, completed map[uint]bool, videoID uint) (bool, string) {
	computed, _ := Compute(videos, completed)
	for _, v := range computed {
		if v.ID == videoID {
			if v.CanAccess {
				return true, ""
			}
			return false, "Complete the previous lessons to unlock this video"
		}
	}
	return false, "Video not found in your strategy"
}

func stateOf(isCompleted, isCurrent, isLocked bool) State {
	switch {
	case isCompleted:
		return StateCompleted
	case isCurrent:
		return StateCurrent
	case isLocked:
		return StateLocked
	default:
		return StateReady
	}
}
