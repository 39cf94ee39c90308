package dto

// ─── Request DTOs ────────────────────────────────────────────────────────────

type ChatRequest struct {
	Message string `json:"message" validate:"required,min=1,max=4000"`
}

type VerifyBusinessRequest struct {
	ShopName string `json:"shop_name" validate:"required,min=4"`
	Location string `json:"location"  validate:"required,min=6"`
}

type SpeakRequest struct {
	Text string `json:"text" validate:"required,min=1,max=500"`
}

type VideoRequest struct {
	Prompt string `json:"prompt" validate:"required,min=10,max=2000"`
}

// ─── Response DTOs ───────────────────────────────────────────────────────────

type ChatMessageResponse struct {
	ID        string `json:"id"`
	Role      string `json:"role"` // user | ai
	Text      string `json:"text"`
	CreatedAt string `json:"created_at"`
}

type ChatReplyResponse struct {
	Question ChatMessageResponse `json:"question"`
	Answer   ChatMessageResponse `json:"answer"`
}

// ReceiptAnalysis is what OCR extracted from a receipt photo.
type ReceiptAnalysis struct {
	Amount     float64 `json:"amount"`
	Merchant   string  `json:"merchant"`
	Confidence string  `json:"confidence"` // high | low
}

type SourceLink struct {
	Title string `json:"title"`
	URI   string `json:"uri"`
}

type VerificationResponse struct {
	Text    string       `json:"text"`
	Sources []SourceLink `json:"sources"`
}

type VideoJobResponse struct {
	JobID  string `json:"job_id"`
	Status string `json:"status"` // queued | ready
}
