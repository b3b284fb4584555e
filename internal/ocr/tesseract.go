package ocr

import (
	"bytes"
	"context"
	"fmt"
	"image"
	"image/png"
	"log/slog"
	"strconv"
	"strings"
)

// Config configures the tesseract engine.
type Config struct {
	Tesseract   string   // binary name or absolute path; if empty -> "tesseract"
	Languages   []string // default ["eng"]
	TessdataDir string
	PSM         int // page segmentation mode; 0 leaves tesseract's default
	OEM         int // engine mode; 0 leaves tesseract's default
}

// Tesseract runs the tesseract CLI in TSV mode.
type Tesseract struct {
	cfg    Config
	runner Runner
	logger *slog.Logger
}

// NewTesseract builds a reader for the configured language set.
func NewTesseract(cfg Config, logger *slog.Logger) *Tesseract {
	if logger == nil {
		logger = slog.Default()
	}
	if cfg.Tesseract == "" {
		cfg.Tesseract = "tesseract"
	}
	if len(cfg.Languages) == 0 {
		cfg.Languages = []string{"eng"}
	}
	return &Tesseract{cfg: cfg, runner: execRunner{logger: logger}, logger: logger}
}

// WithRunner swaps the command runner.
func (t *Tesseract) WithRunner(r Runner) *Tesseract {
	t.runner = r
	return t
}

// Recognize encodes img as PNG, pipes it to tesseract and groups the
// recognized words into line spans.
func (t *Tesseract) Recognize(ctx context.Context, img image.Image) ([]Span, error) {
	var buf bytes.Buffer
	if err := png.Encode(&buf, img); err != nil {
		return nil, fmt.Errorf("encode page image: %w", err)
	}

	// tesseract stdin stdout -l <langs> [...] tsv
	args := []string{"stdin", "stdout", "-l", strings.Join(t.cfg.Languages, "+")}
	if t.cfg.PSM > 0 {
		args = append(args, "--psm", strconv.Itoa(t.cfg.PSM))
	}
	if t.cfg.OEM > 0 {
		args = append(args, "--oem", strconv.Itoa(t.cfg.OEM))
	}
	if t.cfg.TessdataDir != "" {
		args = append(args, "--tessdata-dir", t.cfg.TessdataDir)
	}
	args = append(args, "tsv")

	out, errb, err := t.runner.Run(ctx, buf.Bytes(), t.cfg.Tesseract, args...)
	if err != nil {
		return nil, fmt.Errorf("tesseract: %w: %s", err, truncate(strings.TrimSpace(string(errb)), 512))
	}

	spans := ParseTSV(string(out))
	t.logger.Debug("ocr.recognize.ok", "spans", len(spans), "image_bytes", buf.Len())
	return spans, nil
}

type lineKey struct {
	page, block, par, line int
}

// ParseTSV groups tesseract TSV word rows (level 5) into one span per text
// line. Confidence is the mean word confidence scaled to 0..1.
func ParseTSV(tsv string) []Span {
	var (
		spans []Span
		index = map[lineKey]int{}
		confN []int
	)

	for i, ln := range strings.Split(tsv, "\n") {
		if i == 0 || strings.TrimSpace(ln) == "" {
			continue // header
		}
		cols := strings.Split(strings.TrimRight(ln, "\r"), "\t")
		if len(cols) < 12 {
			continue
		}
		if cols[0] != "5" {
			continue
		}
		text := strings.TrimSpace(cols[11])
		if text == "" {
			continue
		}

		nums := make([]int, 10)
		for j := 1; j <= 9; j++ {
			nums[j], _ = strconv.Atoi(cols[j])
		}
		conf, _ := strconv.ParseFloat(cols[10], 64)

		key := lineKey{page: nums[1], block: nums[2], par: nums[3], line: nums[4]}
		box := image.Rect(nums[6], nums[7], nums[6]+nums[8], nums[7]+nums[9])

		pos, ok := index[key]
		if !ok {
			index[key] = len(spans)
			spans = append(spans, Span{Box: box, Text: text})
			confN = append(confN, 0)
			pos = len(spans) - 1
		} else {
			spans[pos].Text += " " + text
			spans[pos].Box = spans[pos].Box.Union(box)
		}
		if conf >= 0 {
			n := confN[pos]
			spans[pos].Confidence = (spans[pos].Confidence*float64(n) + conf/100) / float64(n+1)
			confN[pos] = n + 1
		}
	}
	return spans
}
