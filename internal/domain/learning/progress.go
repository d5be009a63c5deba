package learning

import "math"

// ComputeProgress returns round(completed/total*100), or 0 for a course without chapters.
func ComputeProgress(chapters []Chapter) int {
	if len(chapters) == 0 {
		return 0
	}
	completed := 0
	for _, ch := range chapters {
		if ch.Completed {
			completed++
		}
	}
	return int(math.Round(float64(completed) * 100 / float64(len(chapters))))
}
