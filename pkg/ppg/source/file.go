package source

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"

	"github.com/RyanBlaney/latency-benchmark-common/logging"
)

// FileSource replays recorded samples: one value per line, or the first
// column of a comma separated file. Blank lines and # comments are skipped,
// as is one non-numeric header line before the first sample.
type FileSource struct {
	path       string
	reader     io.ReadCloser
	maxSamples int
	logger     logging.Logger
}

// NewFileSource opens cfg.Target for reading
func NewFileSource(cfg *Config) (*FileSource, error) {
	if cfg.Target == "" {
		return nil, NewSourceError(SourceTypeFile, "", ErrCodeOpen, "no sample file configured", nil)
	}

	f, err := os.Open(cfg.Target)
	if err != nil {
		return nil, NewSourceError(SourceTypeFile, cfg.Target, ErrCodeOpen, "failed to open sample file", err)
	}

	return newFileSource(cfg, f), nil
}

// NewReaderSource replays samples from r using the file format
func NewReaderSource(cfg *Config, r io.Reader) *FileSource {
	return newFileSource(cfg, io.NopCloser(r))
}

func newFileSource(cfg *Config, r io.ReadCloser) *FileSource {
	logger := cfg.Logger
	if logger == nil {
		logger = logging.NewDefaultLogger()
	}

	return &FileSource{
		path:       cfg.Target,
		reader:     r,
		maxSamples: cfg.MaxSamples,
		logger: logger.WithFields(logging.Fields{
			"component": "file_source",
			"path":      cfg.Target,
		}),
	}
}

func (s *FileSource) Type() SourceType { return SourceTypeFile }

func (s *FileSource) Close() error {
	return s.reader.Close()
}

// Stream implements Source
func (s *FileSource) Stream(ctx context.Context, out chan<- float64) error {
	scanner := bufio.NewScanner(s.reader)
	line := 0
	sent := 0
	header := false

	for scanner.Scan() {
		line++
		text := strings.TrimSpace(scanner.Text())
		if text == "" || strings.HasPrefix(text, "#") {
			continue
		}

		field, _, _ := strings.Cut(text, ",")
		value, err := strconv.ParseFloat(strings.TrimSpace(field), 64)
		if err != nil {
			if sent == 0 && !header {
				header = true
				s.logger.Debug("Skipping header line", logging.Fields{"header": text, "line": line})
				continue
			}
			return NewSourceError(SourceTypeFile, s.path, ErrCodeInvalidFormat,
				fmt.Sprintf("invalid sample on line %d", line), err)
		}

		select {
		case <-ctx.Done():
			return ctx.Err()
		case out <- value:
		}

		sent++
		if s.maxSamples > 0 && sent >= s.maxSamples {
			break
		}
	}

	if err := scanner.Err(); err != nil {
		return NewSourceError(SourceTypeFile, s.path, ErrCodeDecoding, "failed to read sample file", err)
	}

	s.logger.Debug("Sample file exhausted", logging.Fields{"samples": sent})
	return nil
}
