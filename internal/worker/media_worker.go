package worker

// media_worker.go
// Voice confirmations and video recaps. Both call the AI provider and
// write the result under a configured directory.

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"
)

type VoiceJobPayload struct {
	PaymentID string `json:"payment_id"`
	Text      string `json:"text"`
}

type VideoJobPayload struct {
	JobID  string `json:"job_id"`
	Prompt string `json:"prompt"`
}

type Speaker interface {
	Speak(ctx context.Context, text string) ([]byte, error)
}

type VideoGenerator interface {
	GenerateVideo(ctx context.Context, prompt string) ([]byte, error)
}

// VoiceFileName and VideoFileName are shared with the HTTP layer, which
// serves the files once they exist.
func VoiceFileName(paymentID string) string { return paymentID + ".pcm" }

func VideoFileName(jobID string) string { return jobID + ".mp4" }

type VoiceWorker struct {
	speaker Speaker
	dir     string
}

func NewVoiceWorker(speaker Speaker, dir string) *VoiceWorker {
	return &VoiceWorker{speaker: speaker, dir: dir}
}

func (w *VoiceWorker) Process(ctx context.Context, raw json.RawMessage) error {
	var payload VoiceJobPayload
	if err := json.Unmarshal(raw, &payload); err != nil {
		log.Error().Err(err).Msg("voice_worker: invalid payload")
		return nil
	}
	if _, err := uuid.Parse(payload.PaymentID); err != nil || payload.Text == "" {
		log.Error().Str("payment_id", payload.PaymentID).Msg("voice_worker: incomplete payload")
		return nil
	}

	audio, err := w.speaker.Speak(ctx, payload.Text)
	if err != nil {
		return err
	}
	path, err := writeAtomic(w.dir, VoiceFileName(payload.PaymentID), audio)
	if err != nil {
		return err
	}
	log.Info().Str("path", path).Int("bytes", len(audio)).Msg("voice_worker: confirmation stored")
	return nil
}

type VideoWorker struct {
	generator VideoGenerator
	dir       string
}

func NewVideoWorker(generator VideoGenerator, dir string) *VideoWorker {
	return &VideoWorker{generator: generator, dir: dir}
}

func (w *VideoWorker) Process(ctx context.Context, raw json.RawMessage) error {
	var payload VideoJobPayload
	if err := json.Unmarshal(raw, &payload); err != nil {
		log.Error().Err(err).Msg("video_worker: invalid payload")
		return nil
	}
	if _, err := uuid.Parse(payload.JobID); err != nil {
		log.Error().Str("job_id", payload.JobID).Msg("video_worker: invalid job_id")
		return nil
	}

	video, err := w.generator.GenerateVideo(ctx, payload.Prompt)
	if err != nil {
		return err
	}
	path, err := writeAtomic(w.dir, VideoFileName(payload.JobID), video)
	if err != nil {
		return err
	}
	log.Info().Str("path", path).Int("bytes", len(video)).Msg("video_worker: recap stored")
	return nil
}

// writeAtomic writes through a temp file so readers never see a partial file.
func writeAtomic(dir, name string, data []byte) (string, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return "", fmt.Errorf("create %s: %w", dir, err)
	}
	tmp, err := os.CreateTemp(dir, name+".*.tmp")
	if err != nil {
		return "", err
	}
	defer os.Remove(tmp.Name())
	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		return "", err
	}
	if err := tmp.Close(); err != nil {
		return "", err
	}
	final := filepath.Join(dir, name)
	if err := os.Rename(tmp.Name(), final); err != nil {
		return "", err
	}
	return final, nil
}
