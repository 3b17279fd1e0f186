package session

import (
	"context"
	"errors"
	"fmt"
	"io"
	"time"

	"github.com/guidoenr/wizsync/internal/analyzer"
	"github.com/guidoenr/wizsync/internal/profile"
	"github.com/guidoenr/wizsync/internal/source"
)

// Scan is the one-shot pre-pass: it consumes the whole source in block order
// and returns the feature sequence. It runs decoupled from real time (as fast
// as decoding allows) and stops early when ctx is canceled. Invalid blocks
// are skipped, matching the live path.
func (s *Session) Scan(ctx context.Context, src source.Source) ([]analyzer.FeatureSample, error) {
	blocker, err := source.NewBlocker(src, s.cfg.BlockSize)
	if err != nil {
		return nil, err
	}

	scanner := analyzer.New(s.cfg.Analyzer)
	var feats []analyzer.FeatureSample
	for {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		blk, err := blocker.Next()
		if err == io.EOF {
			return feats, nil
		}
		if err != nil {
			return nil, fmt.Errorf("pre-pass read: %w", err)
		}

		frame, err := scanner.Analyze(blk)
		if err != nil {
			if errors.Is(err, analyzer.ErrInvalidBlock) {
				continue
			}
			return nil, err
		}
		// Unity gain here: the pre-pass measures the track as-is and the
		// classifier derives the gain from it.
		feats = append(feats, analyzer.Extract(frame, blk, 1.0))
	}
}

// ClassifyTrack runs the pre-pass and classification in one step.
func (s *Session) ClassifyTrack(ctx context.Context, src source.Source) (profile.TrackProfile, error) {
	feats, err := s.Scan(ctx, src)
	if err != nil {
		return profile.Default(), err
	}
	return s.classifier.Classify(feats), nil
}

// StreamBlocks feeds a block source into the live pipeline at playback pace:
// each block is delivered when its position in the stream would be playing.
// This is the producer context; Run consumes on its own cadence.
func (s *Session) StreamBlocks(ctx context.Context, src source.Source) error {
	blocker, err := source.NewBlocker(src, s.cfg.BlockSize)
	if err != nil {
		return err
	}

	blockDur := time.Duration(float64(s.cfg.BlockSize) / float64(src.SampleRate()) * float64(time.Second))
	ticker := time.NewTicker(blockDur)
	defer ticker.Stop()

	for {
		blk, err := blocker.Next()
		if err == io.EOF {
			return nil
		}
		if err != nil {
			return fmt.Errorf("stream read: %w", err)
		}

		// Invalid blocks are already logged by Feed; playback goes on.
		_ = s.Feed(blk)

		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
		}

		for s.paused.Load() {
			select {
			case <-ctx.Done():
				return ctx.Err()
			case <-time.After(50 * time.Millisecond):
			}
		}
	}
}
