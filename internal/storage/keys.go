package storage

import "fmt"

// Object key conventions shared with the task coordinator and the frontends
// that issue presigned URLs against the same bucket.

// AudioKey is the durable location of one paragraph's narration audio.
func AudioKey(taskID int64, paragraphIndex int) string {
	return fmt.Sprintf("audio/%d/tts_%d.mp3", taskID, paragraphIndex)
}

// OutputKey is the durable location of the finished composition.
func OutputKey(taskID int64) string {
	return fmt.Sprintf("output/%d/final.mp4", taskID)
}

// SubtitleKey is the durable location of the generated subtitle track.
func SubtitleKey(taskID int64) string {
	return fmt.Sprintf("output/%d/subtitle.ass", taskID)
}
