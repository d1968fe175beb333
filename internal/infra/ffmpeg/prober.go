package ffmpeg

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os/exec"
	"strconv"
	"strings"

	"github.com/reactiontech/websa-api/internal/domain/apperr"
	"github.com/reactiontech/websa-api/internal/domain/port"
	"go.uber.org/zap"
)

// Prober validates uploads with a single ffprobe JSON call.
type Prober struct {
	binary string
	logger *zap.Logger
}

func NewProber(binary string, logger *zap.Logger) *Prober {
	if binary == "" {
		binary = "ffprobe"
	}
	return &Prober{binary: binary, logger: logger}
}

func (p *Prober) Probe(ctx context.Context, path string) (*port.VideoInfo, error) {
	cmd := exec.CommandContext(ctx, p.binary,
		"-v", "quiet",
		"-print_format", "json",
		"-show_format", "-show_streams",
		path,
	)

	out, err := cmd.Output()
	if err != nil {
		if ctxErr := ctx.Err(); ctxErr != nil {
			return nil, ctxErr
		}
		var execErr *exec.Error
		if errors.As(err, &execErr) {
			return nil, apperr.Dependency("probe video", err)
		}
		p.logger.Debug("ffprobe rejected upload", zap.String("path", path), zap.Error(err))
		return nil, apperr.Decode("probe video", fmt.Errorf("ffprobe: %w", err))
	}

	info, err := ParseProbeJSON(out)
	if err != nil {
		return nil, apperr.Decode("probe video", err)
	}

	p.logger.Debug("video probed",
		zap.String("codec", info.Codec),
		zap.Int("width", info.Width),
		zap.Int("height", info.Height),
		zap.Float64("duration", info.Duration),
	)
	return info, nil
}

type probeOutput struct {
	Format  probeFormat   `json:"format"`
	Streams []probeStream `json:"streams"`
}

type probeFormat struct {
	FormatName string `json:"format_name"`
	Duration   string `json:"duration"`
}

type probeStream struct {
	CodecName   string         `json:"codec_name"`
	CodecType   string         `json:"codec_type"`
	Width       int            `json:"width"`
	Height      int            `json:"height"`
	NbFrames    string         `json:"nb_frames"`
	Duration    string         `json:"duration"`
	Disposition map[string]int `json:"disposition"`
}

// ParseProbeJSON extracts the first real video stream from ffprobe JSON
// output. Cover-art streams do not count as video.
func ParseProbeJSON(data []byte) (*port.VideoInfo, error) {
	var raw probeOutput
	if err := json.Unmarshal(data, &raw); err != nil {
		return nil, fmt.Errorf("parse ffprobe JSON: %w", err)
	}

	for _, s := range raw.Streams {
		if s.CodecType != "video" || s.Disposition["attached_pic"] == 1 {
			continue
		}
		if s.Width <= 0 || s.Height <= 0 {
			continue
		}
		duration := parseFloat(s.Duration)
		if duration == 0 {
			duration = parseFloat(raw.Format.Duration)
		}
		return &port.VideoInfo{
			Codec:    s.CodecName,
			Width:    s.Width,
			Height:   s.Height,
			Duration: duration,
			Frames:   parseInt(s.NbFrames),
		}, nil
	}
	return nil, errors.New("no video stream found")
}

// ffprobe reports numbers as strings
func parseFloat(s string) float64 {
	f, _ := strconv.ParseFloat(strings.TrimSpace(s), 64)
	return f
}

func parseInt(s string) int {
	n, _ := strconv.Atoi(strings.TrimSpace(s))
	return n
}
