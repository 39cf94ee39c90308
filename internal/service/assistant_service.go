package service

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"recovr/internal/dto"
	"recovr/internal/model"
	"recovr/internal/repository"
	"recovr/internal/worker"

	"github.com/google/uuid"
)

// AIClient is the external assistant provider. infra.GenAIClient implements it.
type AIClient interface {
	Ask(ctx context.Context, prompt string) (string, error)
	AnalyzeReceipt(ctx context.Context, image []byte, mimeType string) (*dto.ReceiptAnalysis, error)
	Speak(ctx context.Context, text string) ([]byte, error)
	VerifyBusiness(ctx context.Context, shopName, location string) (*dto.VerificationResponse, error)
}

// AssistantError wraps a provider failure so the HTTP layer can answer 502.
type AssistantError struct {
	Op  string
	Err error
}

func (e *AssistantError) Error() string { return fmt.Sprintf("assistant %s: %v", e.Op, e.Err) }

func (e *AssistantError) Unwrap() error { return e.Err }

type AssistantService interface {
	Chat(ctx context.Context, userID uuid.UUID, userName, message string) (*dto.ChatReplyResponse, error)
	ChatHistory(ctx context.Context, userID uuid.UUID, userName string) ([]dto.ChatMessageResponse, error)
	AnalyzeReceipt(ctx context.Context, image []byte, mimeType string) (*dto.ReceiptAnalysis, error)
	VerifyBusiness(ctx context.Context, req dto.VerifyBusinessRequest) (*dto.VerificationResponse, error)
	Speak(ctx context.Context, text string) ([]byte, error)
	RequestVideo(ctx context.Context, prompt string) (*dto.VideoJobResponse, error)
	// VideoFile returns the finished video's path, or "" while it is still rendering.
	VideoFile(jobID uuid.UUID) string
}

type assistantService struct {
	ai         AIClient // nil when no provider is configured
	chats      repository.ChatRepository
	dispatcher *worker.Dispatcher
	videoDir   string
	now        func() time.Time
}

func NewAssistantService(ai AIClient, chats repository.ChatRepository, dispatcher *worker.Dispatcher, videoDir string) AssistantService {
	return &assistantService{ai: ai, chats: chats, dispatcher: dispatcher, videoDir: videoDir, now: time.Now}
}

func welcomeMessage(userName string) string {
	return fmt.Sprintf("Salaam %s, I'm your RECOVR Marshal. How can I assist your field operations today?", firstName(userName))
}

func (s *assistantService) ChatHistory(ctx context.Context, userID uuid.UUID, userName string) ([]dto.ChatMessageResponse, error) {
	msgs, err := s.chats.ListByUser(ctx, userID)
	if err != nil {
		return nil, err
	}
	if len(msgs) == 0 {
		welcome := model.ChatMessage{
			ID:        uuid.New(),
			UserID:    userID,
			Role:      "ai",
			Text:      welcomeMessage(userName),
			CreatedAt: s.now().UTC(),
		}
		if err := s.chats.Append(ctx, welcome); err != nil {
			return nil, err
		}
		msgs = []model.ChatMessage{welcome}
	}
	out := make([]dto.ChatMessageResponse, len(msgs))
	for i := range msgs {
		out[i] = chatToResponse(&msgs[i])
	}
	return out, nil
}

// Chat asks the provider and persists both turns only once an answer exists.
func (s *assistantService) Chat(ctx context.Context, userID uuid.UUID, userName, message string) (*dto.ChatReplyResponse, error) {
	if s.ai == nil {
		return nil, ErrAssistantUnavailable
	}
	asked := s.now().UTC()
	answer, err := s.ai.Ask(ctx, message)
	if err != nil {
		return nil, &AssistantError{Op: "chat", Err: err}
	}

	question := model.ChatMessage{ID: uuid.New(), UserID: userID, Role: "user", Text: message, CreatedAt: asked}
	reply := model.ChatMessage{ID: uuid.New(), UserID: userID, Role: "ai", Text: answer, CreatedAt: s.now().UTC()}
	if err := s.chats.Append(ctx, question, reply); err != nil {
		return nil, err
	}
	return &dto.ChatReplyResponse{Question: chatToResponse(&question), Answer: chatToResponse(&reply)}, nil
}

func (s *assistantService) AnalyzeReceipt(ctx context.Context, image []byte, mimeType string) (*dto.ReceiptAnalysis, error) {
	if s.ai == nil {
		return nil, ErrAssistantUnavailable
	}
	out, err := s.ai.AnalyzeReceipt(ctx, image, mimeType)
	if err != nil {
		return nil, &AssistantError{Op: "receipt", Err: err}
	}
	return out, nil
}

func (s *assistantService) VerifyBusiness(ctx context.Context, req dto.VerifyBusinessRequest) (*dto.VerificationResponse, error) {
	if s.ai == nil {
		return nil, ErrAssistantUnavailable
	}
	out, err := s.ai.VerifyBusiness(ctx, req.ShopName, req.Location)
	if err != nil {
		return nil, &AssistantError{Op: "verify", Err: err}
	}
	return out, nil
}

func (s *assistantService) Speak(ctx context.Context, text string) ([]byte, error) {
	if s.ai == nil {
		return nil, ErrAssistantUnavailable
	}
	audio, err := s.ai.Speak(ctx, text)
	if err != nil {
		return nil, &AssistantError{Op: "speak", Err: err}
	}
	return audio, nil
}

// RequestVideo queues a recap; rendering takes minutes so it runs on the worker pool.
func (s *assistantService) RequestVideo(ctx context.Context, prompt string) (*dto.VideoJobResponse, error) {
	if s.ai == nil || s.dispatcher == nil {
		return nil, ErrAssistantUnavailable
	}
	jobID := uuid.New()
	if err := s.dispatcher.EnqueueVideo(ctx, worker.VideoJobPayload{JobID: jobID.String(), Prompt: prompt}); err != nil {
		return nil, err
	}
	return &dto.VideoJobResponse{JobID: jobID.String(), Status: "queued"}, nil
}

func (s *assistantService) VideoFile(jobID uuid.UUID) string {
	path := filepath.Join(s.videoDir, worker.VideoFileName(jobID.String()))
	if _, err := os.Stat(path); err != nil {
		return ""
	}
	return path
}

func chatToResponse(m *model.ChatMessage) dto.ChatMessageResponse {
	return dto.ChatMessageResponse{
		ID:        m.ID.String(),
		Role:      m.Role,
		Text:      m.Text,
		CreatedAt: m.CreatedAt.Format(time.RFC3339Nano),
	}
}
