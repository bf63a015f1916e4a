package adapters

import (
	"bufio"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"strconv"
	"time"

	"video-sequence-api/application/ports/outbound"
	"video-sequence-api/config"
	"video-sequence-api/domain"

	"github.com/google/uuid"
)

// lastFrameOffset backs the extraction point off the very end of the clip,
// which often lands on a black encoder-flush frame.
const lastFrameOffset = 0.1

type ffmpegVideoProcessor struct {
	logger  outbound.LoggerPort
	cfg     *config.ProcessorConfig
	fetcher ContentFetcher
}

func NewFFmpegVideoProcessor(cfg *config.ProcessorConfig, fetcher ContentFetcher, logger outbound.LoggerPort) outbound.VideoProcessorPort {
	return &ffmpegVideoProcessor{
		logger:  logger,
		cfg:     cfg,
		fetcher: fetcher,
	}
}

func (p *ffmpegVideoProcessor) tempPath(extension string) string {
	name := fmt.Sprintf("%d_%s%s", time.Now().UnixNano(), uuid.NewString(), extension)
	return filepath.Join(p.cfg.TempDir, name)
}

func (p *ffmpegVideoProcessor) download(ctx context.Context, videoURL string) (string, error) {
	dest := p.tempPath(".mp4")
	err := p.fetcher.DownloadToFile(ctx, videoURL, dest, p.cfg.MaxDownloadBytes)
	if err != nil {
		if errors.Is(err, ErrContentTooLarge) {
			return "", &domain.FFmpegError{
				Code:    domain.FFmpegFileTooLarge,
				Message: fmt.Sprintf("video %s exceeds the %d byte limit", videoURL, p.cfg.MaxDownloadBytes),
				Cause:   err,
			}
		}
		return "", &domain.FFmpegError{
			Code:    domain.FFmpegDownloadError,
			Message: "failed to download " + videoURL,
			Cause:   err,
		}
	}
	return dest, nil
}

func (p *ffmpegVideoProcessor) removeTemp(path string) {
	err := os.Remove(path)
	if err != nil && !os.IsNotExist(err) {
		p.logger.ErrorWithFields(err, "Failed to remove temp file", map[string]interface{}{
			"path": path,
		})
	}
}

func (p *ffmpegVideoProcessor) ExtractLastFrame(ctx context.Context, videoURL string) (string, error) {
	videoPath, err := p.download(ctx, videoURL)
	if err != nil {
		return "", err
	}
	defer p.removeTemp(videoPath)

	meta, err := p.GetMetadata(ctx, videoPath)
	if err != nil {
		return "", err
	}

	seek := meta.DurationSeconds - lastFrameOffset
	if seek < 0 {
		seek = 0
	}

	framePath := p.tempPath(".jpg")
	cmd := exec.CommandContext(ctx, "ffmpeg", "-y",
		"-ss", strconv.FormatFloat(seek, 'f', 3, 64),
		"-i", videoPath,
		"-vframes", "1",
		"-q:v", "2",
		framePath)
	if output, err := cmd.CombinedOutput(); err != nil {
		p.removeTemp(framePath)
		return "", &domain.FFmpegError{
			Code:    domain.FFmpegFrameExtraction,
			Message: "failed to extract last frame of " + videoURL,
			Cause:   fmt.Errorf("%w: %s", err, string(output)),
		}
	}

	return framePath, nil
}

func (p *ffmpegVideoProcessor) CombineVideos(ctx context.Context, videoURLs []string) (string, error) {
	if len(videoURLs) == 0 {
		return "", &domain.FFmpegError{
			Code:    domain.FFmpegCombination,
			Message: "no videos to combine",
		}
	}

	var tempInputs []string
	defer func() {
		for _, path := range tempInputs {
			p.removeTemp(path)
		}
	}()

	for _, videoURL := range videoURLs {
		path, err := p.download(ctx, videoURL)
		if err != nil {
			return "", err
		}
		tempInputs = append(tempInputs, path)
	}

	manifestPath, err := p.writeManifest(tempInputs)
	if err != nil {
		return "", &domain.FFmpegError{
			Code:    domain.FFmpegCombination,
			Message: fmt.Sprintf("failed to write concat manifest for %d scene videos", len(videoURLs)),
			Cause:   err,
		}
	}
	defer p.removeTemp(manifestPath)

	outputPath := p.tempPath(".mp4")
	cmd := exec.CommandContext(ctx, "ffmpeg", "-y",
		"-f", "concat",
		"-safe", "0",
		"-i", manifestPath,
		"-c", "copy",
		"-movflags", "+faststart",
		outputPath)
	if output, err := cmd.CombinedOutput(); err != nil {
		p.removeTemp(outputPath)
		return "", &domain.FFmpegError{
			Code:    domain.FFmpegCombination,
			Message: fmt.Sprintf("failed to combine %d scene videos", len(videoURLs)),
			Cause:   fmt.Errorf("%w: %s", err, string(output)),
		}
	}

	return outputPath, nil
}

func (p *ffmpegVideoProcessor) writeManifest(inputPaths []string) (string, error) {
	manifest, err := os.Create(p.tempPath(".txt"))
	if err != nil {
		return "", err
	}

	writer := bufio.NewWriter(manifest)
	for _, path := range inputPaths {
		if _, err := writer.WriteString("file '" + path + "'\n"); err != nil {
			_ = manifest.Close()
			p.removeTemp(manifest.Name())
			return "", err
		}
	}
	if err := writer.Flush(); err != nil {
		_ = manifest.Close()
		p.removeTemp(manifest.Name())
		return "", err
	}
	if err := manifest.Close(); err != nil {
		p.removeTemp(manifest.Name())
		return "", err
	}

	return manifest.Name(), nil
}

type ffprobeOutput struct {
	Format struct {
		Duration   string `json:"duration"`
		FormatName string `json:"format_name"`
	} `json:"format"`
	Streams []struct {
		CodecType string `json:"codec_type"`
		Width     int    `json:"width"`
		Height    int    `json:"height"`
	} `json:"streams"`
}

func (p *ffmpegVideoProcessor) GetMetadata(ctx context.Context, localPath string) (*outbound.VideoMetadata, error) {
	cmd := exec.CommandContext(ctx, "ffprobe",
		"-v", "error",
		"-print_format", "json",
		"-show_format",
		"-show_streams",
		localPath)
	out, err := cmd.Output()
	if err != nil {
		return nil, &domain.FFmpegError{
			Code:    domain.FFmpegMetadataError,
			Message: "failed to probe " + localPath,
			Cause:   err,
		}
	}

	var probed ffprobeOutput
	if err := json.Unmarshal(out, &probed); err != nil {
		return nil, &domain.FFmpegError{
			Code:    domain.FFmpegMetadataError,
			Message: "failed to parse ffprobe output for " + localPath,
			Cause:   err,
		}
	}

	duration, err := strconv.ParseFloat(probed.Format.Duration, 64)
	if err != nil {
		return nil, &domain.FFmpegError{
			Code:    domain.FFmpegMetadataError,
			Message: "failed to parse duration for " + localPath,
			Cause:   err,
		}
	}

	meta := &outbound.VideoMetadata{
		DurationSeconds: duration,
		Format:          probed.Format.FormatName,
	}
	for _, stream := range probed.Streams {
		if stream.CodecType == "video" {
			meta.Width = stream.Width
			meta.Height = stream.Height
			break
		}
	}

	return meta, nil
}
