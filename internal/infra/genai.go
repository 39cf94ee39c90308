package infra

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"recovr/internal/config"
	"recovr/internal/dto"

	"github.com/rs/zerolog/log"
	"google.golang.org/genai"
)

const (
	assistantPersona = "You are the 'RECOVR Senior Field Marshal'. Expert in Pakistani collections and accounting. Authoritative, concise, and helpful."
	receiptPrompt    = "Analyze this image of a payment receipt (Parchi). Extract the total amount as a number and the merchant name. If amount is not clear, look for the largest number near the bottom. Return strictly JSON."
	ttsVoice         = "Kore"
)

// ErrEmptyAIResponse means the model answered without usable content.
var ErrEmptyAIResponse = errors.New("genai: empty response")

// GenAIClient talks to Gemini for the assistant features. Every call goes
// through the circuit breaker.
type GenAIClient struct {
	client         *genai.Client
	cb             *CircuitBreaker
	chatModel      string
	visionModel    string
	ttsModel       string
	videoModel     string
	thinkingBudget int32
	pollInterval   time.Duration
}

// NewGenAIClient returns nil, nil when no API key is configured.
func NewGenAIClient(ctx context.Context, cfg *config.Config, cb *CircuitBreaker) (*GenAIClient, error) {
	if cfg.GeminiAPIKey == "" {
		return nil, nil
	}
	client, err := genai.NewClient(ctx, &genai.ClientConfig{
		APIKey:  cfg.GeminiAPIKey,
		Backend: genai.BackendGeminiAPI,
	})
	if err != nil {
		return nil, fmt.Errorf("genai: new client: %w", err)
	}
	return &GenAIClient{
		client:         client,
		cb:             cb,
		chatModel:      cfg.GeminiChatModel,
		visionModel:    cfg.GeminiVisionModel,
		ttsModel:       cfg.GeminiTTSModel,
		videoModel:     cfg.GeminiVideoModel,
		thinkingBudget: 32768,
		pollInterval:   10 * time.Second,
	}, nil
}

// Ask sends a single prompt to the chat model with the assistant persona.
func (g *GenAIClient) Ask(ctx context.Context, prompt string) (string, error) {
	budget := g.thinkingBudget
	cfg := &genai.GenerateContentConfig{
		SystemInstruction: genai.NewContentFromText(assistantPersona, genai.RoleUser),
		ThinkingConfig:    &genai.ThinkingConfig{ThinkingBudget: &budget},
	}
	var answer string
	err := g.cb.Execute(func() error {
		resp, err := g.client.Models.GenerateContent(ctx, g.chatModel, genai.Text(prompt), cfg)
		if err != nil {
			return err
		}
		answer = resp.Text()
		if answer == "" {
			return ErrEmptyAIResponse
		}
		return nil
	})
	return answer, err
}

// AnalyzeReceipt runs OCR over a receipt photo and returns the structured result.
func (g *GenAIClient) AnalyzeReceipt(ctx context.Context, image []byte, mimeType string) (*dto.ReceiptAnalysis, error) {
	if mimeType == "" {
		mimeType = "image/jpeg"
	}
	contents := []*genai.Content{
		genai.NewContentFromParts([]*genai.Part{
			genai.NewPartFromBytes(image, mimeType),
			genai.NewPartFromText(receiptPrompt),
		}, genai.RoleUser),
	}
	cfg := &genai.GenerateContentConfig{
		ResponseMIMEType: "application/json",
		ResponseSchema: &genai.Schema{
			Type: genai.TypeObject,
			Properties: map[string]*genai.Schema{
				"amount":     {Type: genai.TypeNumber, Description: "The total amount paid on the receipt."},
				"merchant":   {Type: genai.TypeString, Description: "The shop or merchant name found on the receipt."},
				"confidence": {Type: genai.TypeString, Description: "Confidence level: 'high' or 'low'."},
			},
			Required: []string{"amount", "merchant", "confidence"},
		},
	}

	var out dto.ReceiptAnalysis
	err := g.cb.Execute(func() error {
		resp, err := g.client.Models.GenerateContent(ctx, g.visionModel, contents, cfg)
		if err != nil {
			return err
		}
		text := resp.Text()
		if text == "" {
			return ErrEmptyAIResponse
		}
		if err := json.Unmarshal([]byte(text), &out); err != nil {
			return fmt.Errorf("genai: parse receipt analysis: %w", err)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return &out, nil
}

// Speak synthesizes a short notification. The result is raw 24kHz mono
// 16-bit PCM as returned by the TTS model.
func (g *GenAIClient) Speak(ctx context.Context, text string) ([]byte, error) {
	cfg := &genai.GenerateContentConfig{
		ResponseModalities: []string{"AUDIO"},
		SpeechConfig: &genai.SpeechConfig{
			VoiceConfig: &genai.VoiceConfig{
				PrebuiltVoiceConfig: &genai.PrebuiltVoiceConfig{VoiceName: ttsVoice},
			},
		},
	}
	var audio []byte
	err := g.cb.Execute(func() error {
		resp, err := g.client.Models.GenerateContent(ctx, g.ttsModel, genai.Text("Recovr Notification: "+text), cfg)
		if err != nil {
			return err
		}
		audio = firstInlineData(resp)
		if len(audio) == 0 {
			return ErrEmptyAIResponse
		}
		return nil
	})
	return audio, err
}

// VerifyBusiness asks the model to check a shop against Google Search.
func (g *GenAIClient) VerifyBusiness(ctx context.Context, shopName, location string) (*dto.VerificationResponse, error) {
	prompt := fmt.Sprintf("Verify the existence and reputation of %q in \"%s, Pakistan\". Check if they are a known trade party.", shopName, location)
	cfg := &genai.GenerateContentConfig{
		Tools: []*genai.Tool{{GoogleSearch: &genai.GoogleSearch{}}},
	}

	out := &dto.VerificationResponse{Sources: []dto.SourceLink{}}
	err := g.cb.Execute(func() error {
		resp, err := g.client.Models.GenerateContent(ctx, g.visionModel, genai.Text(prompt), cfg)
		if err != nil {
			return err
		}
		out.Text = resp.Text()
		if len(resp.Candidates) > 0 && resp.Candidates[0].GroundingMetadata != nil {
			for _, chunk := range resp.Candidates[0].GroundingMetadata.GroundingChunks {
				if chunk == nil || chunk.Web == nil {
					continue
				}
				out.Sources = append(out.Sources, dto.SourceLink{Title: chunk.Web.Title, URI: chunk.Web.URI})
			}
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return out, nil
}

// GenerateVideo starts a video generation operation, polls it until done
// and downloads the first video. It blocks for minutes and is only called
// from the worker pool.
func (g *GenAIClient) GenerateVideo(ctx context.Context, prompt string) ([]byte, error) {
	var video []byte
	err := g.cb.Execute(func() error {
		op, err := g.client.Models.GenerateVideos(ctx, g.videoModel, prompt, nil, &genai.GenerateVideosConfig{
			NumberOfVideos: 1,
			Resolution:     "720p",
			AspectRatio:    "16:9",
		})
		if err != nil {
			return err
		}

		ticker := time.NewTicker(g.pollInterval)
		defer ticker.Stop()
		for !op.Done {
			select {
			case <-ctx.Done():
				return ctx.Err()
			case <-ticker.C:
			}
			op, err = g.client.Operations.GetVideosOperation(ctx, op, nil)
			if err != nil {
				return err
			}
			log.Debug().Str("operation", op.Name).Bool("done", op.Done).Msg("genai: polled video operation")
		}

		if op.Response == nil || len(op.Response.GeneratedVideos) == 0 || op.Response.GeneratedVideos[0].Video == nil {
			return ErrEmptyAIResponse
		}
		generated := op.Response.GeneratedVideos[0]
		video, err = g.client.Files.Download(ctx, genai.NewDownloadURIFromGeneratedVideo(generated), nil)
		return err
	})
	return video, err
}

func firstInlineData(resp *genai.GenerateContentResponse) []byte {
	if resp == nil || len(resp.Candidates) == 0 || resp.Candidates[0].Content == nil {
		return nil
	}
	for _, part := range resp.Candidates[0].Content.Parts {
		if part != nil && part.InlineData != nil && len(part.InlineData.Data) > 0 {
			return part.InlineData.Data
		}
	}
	return nil
}
