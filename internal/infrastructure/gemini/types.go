package gemini

import (
	"strings"

	"github.com/riskibarqy/sports-insights/internal/usecase"
)

const (
	FileStateProcessing = "PROCESSING"
	FileStateActive     = "ACTIVE"
	FileStateFailed     = "FAILED"
)

// File is an uploaded file as reported by the Files API.
type File struct {
	Name           string `json:"name"`
	DisplayName    string `json:"displayName"`
	MimeType       string `json:"mimeType"`
	SizeBytes      string `json:"sizeBytes"`
	State          string `json:"state"`
	URI            string `json:"uri"`
	ExpirationTime string `json:"expirationTime"`
}

func (f File) Ref() usecase.RemoteFile {
	return usecase.RemoteFile{
		Name:        f.Name,
		DisplayName: f.DisplayName,
		URI:         f.URI,
		MimeType:    f.MimeType,
	}
}

// GenerationConfig mirrors the generationConfig request object.
type GenerationConfig struct {
	Temperature      float64 `json:"temperature"`
	TopP             float64 `json:"topP"`
	TopK             int     `json:"topK"`
	MaxOutputTokens  int     `json:"maxOutputTokens"`
	ResponseMimeType string  `json:"responseMimeType,omitempty"`
}

func DefaultGenerationConfig() GenerationConfig {
	return GenerationConfig{
		Temperature:      0.7,
		TopP:             0.95,
		TopK:             40,
		MaxOutputTokens:  8192,
		ResponseMimeType: "application/json",
	}
}

type uploadEnvelope struct {
	File File `json:"file"`
}

type uploadStartRequest struct {
	File struct {
		DisplayName string `json:"display_name"`
	} `json:"file"`
}

type generateRequest struct {
	Contents         []content        `json:"contents"`
	GenerationConfig GenerationConfig `json:"generationConfig"`
}

type content struct {
	Role  string `json:"role,omitempty"`
	Parts []part `json:"parts"`
}

type part struct {
	Text     string    `json:"text,omitempty"`
	Thought  bool      `json:"thought,omitempty"`
	FileData *fileData `json:"file_data,omitempty"`
}

type fileData struct {
	MimeType string `json:"mime_type"`
	FileURI  string `json:"file_uri"`
}

type generateResponse struct {
	Candidates []struct {
		Content      content `json:"content"`
		FinishReason string  `json:"finishReason"`
	} `json:"candidates"`
	PromptFeedback *struct {
		BlockReason string `json:"blockReason"`
	} `json:"promptFeedback"`
	Error *apiError `json:"error"`
}

type apiError struct {
	Code    int    `json:"code"`
	Message string `json:"message"`
	Status  string `json:"status"`
}

// text joins the non-thought parts of the first candidate.
func (r generateResponse) text() string {
	if len(r.Candidates) == 0 {
		return ""
	}
	var b strings.Builder
	for _, p := range r.Candidates[0].Content.Parts {
		if p.Thought {
			continue
		}
		b.WriteString(p.Text)
	}
	return b.String()
}

func (r generateResponse) blockReason() string {
	if r.PromptFeedback == nil {
		return ""
	}
	return r.PromptFeedback.BlockReason
}

func buildGenerateRequest(prompt string, files []usecase.RemoteFile, cfg GenerationConfig) generateRequest {
	parts := make([]part, 0, len(files)+1)
	for _, f := range files {
		parts = append(parts, part{FileData: &fileData{MimeType: f.MimeType, FileURI: f.URI}})
	}
	parts = append(parts, part{Text: prompt})
	return generateRequest{
		Contents:         []content{{Role: "user", Parts: parts}},
		GenerationConfig: cfg,
	}
}
