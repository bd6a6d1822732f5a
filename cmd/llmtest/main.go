// Command llmtest probes the configured language model candidates and
// reports which one answered.
package main

import (
	"context"
	"fmt"
	"log"
	"os"
	"time"

	"github.com/joho/godotenv"

	"github.com/wolfman30/pathlab-ai-platform/cmd/mainconfig"
	"github.com/wolfman30/pathlab-ai-platform/internal/app/bootstrap"
	appconfig "github.com/wolfman30/pathlab-ai-platform/internal/config"
	"github.com/wolfman30/pathlab-ai-platform/internal/llm"
	"github.com/wolfman30/pathlab-ai-platform/pkg/logging"
)

const (
	classifyPrompt = `Classify the user's request into one of: booking, view_report, appointment_status.
Respond with JSON only: {"intent": "...", "confidence": 0.0}
User: I'd like to check my thyroid results from last week`

	replyPrompt = `You are a friendly pathology lab assistant. In one sentence, ask the
patient which date suits them for a blood sample collection.`
)

// attemptPrinter logs every candidate attempt the gateway makes.
type attemptPrinter struct{}

func (attemptPrinter) ObserveLLMRequest(model, kind, status string, elapsed time.Duration) {
	fmt.Printf("    attempt model=%s kind=%s status=%s (%v)\n", model, kind, status, elapsed.Round(time.Millisecond))
}

func main() {
	if err := godotenv.Load(); err != nil {
		log.Println("No .env file found, using environment variables")
	}

	cfg := appconfig.Load()
	logger := logging.New("warn")

	ctx, cancel := context.WithTimeout(context.Background(), 60*time.Second)
	defer cancel()

	gateway, closeGateway, err := bootstrap.BuildLLMGateway(ctx, cfg, mainconfig.LoadAWSConfig, logger, llm.WithObserver(attemptPrinter{}))
	if err != nil {
		log.Fatalf("build gateway: %v", err)
	}
	defer closeGateway()

	models := gateway.Models()
	fmt.Printf("Candidates (%d): %v\n", len(models), models)
	if len(models) == 0 {
		fmt.Println("No provider configured. Set GEMINI_API_KEY, BEDROCK_MODEL_IDS or OPENAI_API_KEY.")
		os.Exit(1)
	}

	failed := false

	fmt.Println("\n[1] JSON classification")
	var classification struct {
		Intent     string  `json:"intent"`
		Confidence float64 `json:"confidence"`
	}
	if err := gateway.GenerateJSON(ctx, classifyPrompt, &classification); err != nil {
		fmt.Printf("    FAILED: %v\n", err)
		failed = true
	} else {
		fmt.Printf("    intent=%s confidence=%.2f\n", classification.Intent, classification.Confidence)
	}

	fmt.Println("\n[2] Text reply")
	start := time.Now()
	text, model, err := gateway.GenerateTextWithModel(ctx, replyPrompt)
	if err != nil {
		fmt.Printf("    FAILED: %v\n", err)
		failed = true
	} else {
		fmt.Printf("    answered by %s in %v\n", model, time.Since(start).Round(time.Millisecond))
		fmt.Printf("    %s\n", text)
	}

	if failed {
		os.Exit(1)
	}
}
