package outbound

import "context"

type VideoMetadata struct {
	DurationSeconds float64
	Width           int
	Height          int
	Format          string
}

type VideoProcessorPort interface {
	// ExtractLastFrame downloads the video and extracts a near-final frame
	// as a local still image. The downloaded video is removed on every exit
	// path; the returned frame file belongs to the caller.
	ExtractLastFrame(ctx context.Context, videoURL string) (string, error)
	// CombineVideos concatenates the inputs in the given order via stream
	// copy and returns the local path of the combined file.
	CombineVideos(ctx context.Context, videoURLs []string) (string, error)
	GetMetadata(ctx context.Context, localPath string) (*VideoMetadata, error)
}
