package compose

// ParagraphAudio is the synthesized narration for one paragraph, uploaded to
// durable storage and measured.
type ParagraphAudio struct {
	ParagraphIndex int
	ObjectKey      string
	Duration       float64
}

// ParagraphDuration is the handoff contract between voice synthesis and the
// downstream cut and subtitle stages.
type ParagraphDuration struct {
	ParagraphIndex int
	ShotID         int64
	Text           string
	Duration       float64
}

// Segment is a trimmed local clip sized to one paragraph's narration.
// Segments belong to the pipeline run and are deleted after composition.
type Segment struct {
	ParagraphIndex int
	Path           string
	Duration       float64
	ShotID         int64
}

// Composition is the terminal artifact of a pipeline run. Ownership moves to
// durable storage on upload; the local file is purged by the caller.
type Composition struct {
	Path      string
	Duration  float64
	SizeBytes int64
}
