package media

import (
	"context"
	"fmt"
	"os"
	"strconv"
	"time"

	"github.com/previewvault/backend/internal/common"
	"github.com/previewvault/backend/internal/metrics"
	"go.uber.org/zap"
)

const (
	DefaultPreset = "fast"
	DefaultCRF    = 23
)

// watermarkFilter scales the watermark to the frame size of the main input
// and overlays it centered
const watermarkFilter = "[1:v][0:v]scale2ref=w=iw:h=ih[wm][base];[base][wm]overlay=(W-w)/2:(H-h)/2[out]"

// WatermarkEncoder burns a fixed watermark image into a video
type WatermarkEncoder struct {
	runner        Runner
	watermarkPath string
	preset        string
	crf           int
	logger        *zap.Logger
}

// NewWatermarkEncoder creates a new encoder.
// It fails with common.ErrWatermarkMissing if the watermark asset does not exist.
func NewWatermarkEncoder(runner Runner, watermarkPath, preset string, crf int, logger *zap.Logger) (*WatermarkEncoder, error) {
	info, err := os.Stat(watermarkPath)
	if err != nil || info.IsDir() {
		return nil, fmt.Errorf("%w: %s", common.ErrWatermarkMissing, watermarkPath)
	}
	if preset == "" {
		preset = DefaultPreset
	}
	if crf <= 0 {
		crf = DefaultCRF
	}
	return &WatermarkEncoder{
		runner:        runner,
		watermarkPath: watermarkPath,
		preset:        preset,
		crf:           crf,
		logger:        logger,
	}, nil
}

// Encode re-encodes the video at inputPath with the watermark overlaid and
// writes it to outputPath. Audio is copied unmodified. The container follows
// the extension of outputPath.
func (e *WatermarkEncoder) Encode(ctx context.Context, inputPath, outputPath string) error {
	if _, err := os.Stat(e.watermarkPath); err != nil {
		return fmt.Errorf("%w: %w", common.ErrTranscode, common.ErrWatermarkMissing)
	}

	args := []string{
		"-y",
		"-i", inputPath,
		"-i", e.watermarkPath,
		"-filter_complex", watermarkFilter,
		"-map", "[out]",
		"-map", "0:a?",
		"-c:v", "libx264",
		"-preset", e.preset,
		"-crf", strconv.Itoa(e.crf),
		"-c:a", "copy",
		outputPath,
	}

	start := time.Now()
	out, err := e.runner.Run(ctx, args...)
	metrics.ObserveEngine("watermark", time.Since(start), err)
	if err != nil {
		e.logger.Error("watermark encoding failed",
			zap.String("input", inputPath),
			zap.Error(err),
			zap.String("ffmpeg_output", outputTail(out)),
		)
		return fmt.Errorf("%w: %w", common.ErrTranscode, err)
	}

	if !nonEmptyFile(outputPath) {
		return fmt.Errorf("%w: engine produced no output", common.ErrTranscode)
	}
	return nil
}

func nonEmptyFile(path string) bool {
	info, err := os.Stat(path)
	return err == nil && !info.IsDir() && info.Size() > 0
}
