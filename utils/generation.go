package utils

import (
	"context"
	"fmt"
	"log"
	"time"

	"jobtrail/engine"
	"jobtrail/models"

	"github.com/gofiber/fiber/v2"
)

const defaultGenerationTimeout = 10 * time.Second

// GenerationClient talks to the document generation service that produces
// tailored resumes and cover letters. The service is an opaque collaborator;
// only its request/response contract matters here.
type GenerationClient struct {
	BaseURL string
	Logger  *log.Logger
}

func NewGenerationClient(baseURL string, logger *log.Logger) *GenerationClient {
	return &GenerationClient{
		BaseURL: baseURL,
		Logger:  logger,
	}
}

type generationRequest struct {
	JobID   uint   `json:"job_id"`
	UserID  uint   `json:"user_id"`
	Title   string `json:"title"`
	Company string `json:"company"`
	Notes   string `json:"notes,omitempty"`
	Tone    string `json:"tone,omitempty"`
}

type generationResponse struct {
	Content string `json:"content"`
	Error   string `json:"error,omitempty"`
}

// GenerateResume implements engine.Generator
func (g *GenerationClient) GenerateResume(ctx context.Context, job models.Job, tone string) (*engine.Document, error) {
	return g.generate(ctx, "/api/v1/generate/resume", "resume", job, tone)
}

// GenerateCoverLetter implements engine.Generator
func (g *GenerationClient) GenerateCoverLetter(ctx context.Context, job models.Job, tone string) (*engine.Document, error) {
	return g.generate(ctx, "/api/v1/generate/cover-letter", "cover_letter", job, tone)
}

func (g *GenerationClient) generate(ctx context.Context, path, kind string, job models.Job, tone string) (*engine.Document, error) {
	timeout := defaultGenerationTimeout
	if deadline, ok := ctx.Deadline(); ok {
		timeout = time.Until(deadline)
	}

	agent := fiber.Post(g.BaseURL + path)
	agent.Timeout(timeout)
	agent.JSON(generationRequest{
		JobID:   job.ID,
		UserID:  job.UserID,
		Title:   job.Title,
		Company: job.Company,
		Notes:   job.Notes,
		Tone:    tone,
	})

	var payload generationResponse
	code, _, errs := agent.Struct(&payload)
	if len(errs) > 0 {
		return nil, fmt.Errorf("generation service unreachable: %v", errs[0])
	}
	if code != fiber.StatusOK {
		g.Logger.Printf("Generation service returned %d for job %d (%s)", code, job.ID, kind)
		return nil, fmt.Errorf("generation service returned status %d", code)
	}
	if payload.Error != "" {
		return nil, fmt.Errorf("generation service error: %s", payload.Error)
	}

	return &engine.Document{
		Kind:    kind,
		JobID:   job.ID,
		Content: payload.Content,
	}, nil
}
