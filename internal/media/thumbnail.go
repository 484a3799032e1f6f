package media

import (
	"context"
	"fmt"
	"strconv"
	"time"

	"github.com/previewvault/backend/internal/common"
	"github.com/previewvault/backend/internal/metrics"
	"go.uber.org/zap"
)

const (
	DefaultThumbnailOffset = 5 * time.Second
	DefaultThumbnailWidth  = 1280
	DefaultThumbnailHeight = 720
)

// ThumbnailExtractor grabs one still frame from a video
type ThumbnailExtractor struct {
	runner Runner
	offset time.Duration
	width  int
	height int
	logger *zap.Logger
}

// NewThumbnailExtractor creates a new extractor taking the frame at offset,
// scaled to width x height
func NewThumbnailExtractor(runner Runner, offset time.Duration, width, height int, logger *zap.Logger) *ThumbnailExtractor {
	if offset < 0 {
		offset = DefaultThumbnailOffset
	}
	if width <= 0 || height <= 0 {
		width, height = DefaultThumbnailWidth, DefaultThumbnailHeight
	}
	return &ThumbnailExtractor{
		runner: runner,
		offset: offset,
		width:  width,
		height: height,
		logger: logger,
	}
}

// Extract writes a JPEG still of inputPath to outputPath.
//
// ffmpeg exits cleanly without writing a frame when the offset is past the end
// of the video, so a missing output is reported as common.ErrThumbnail too.
func (x *ThumbnailExtractor) Extract(ctx context.Context, inputPath, outputPath string) error {
	args := []string{
		"-y",
		"-ss", strconv.FormatFloat(x.offset.Seconds(), 'f', 3, 64),
		"-i", inputPath,
		"-frames:v", "1",
		"-vf", fmt.Sprintf("scale=%d:%d", x.width, x.height),
		"-q:v", "2",
		outputPath,
	}

	start := time.Now()
	out, err := x.runner.Run(ctx, args...)
	metrics.ObserveEngine("thumbnail", time.Since(start), err)
	if err != nil {
		x.logger.Warn("thumbnail extraction failed",
			zap.String("input", inputPath),
			zap.Error(err),
			zap.String("ffmpeg_output", outputTail(out)),
		)
		return fmt.Errorf("%w: %w", common.ErrThumbnail, err)
	}

	if !nonEmptyFile(outputPath) {
		return fmt.Errorf("%w: no frame at %s", common.ErrThumbnail, x.offset)
	}
	return nil
}
