package suggest

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"strings"

	"github.com/hitoshi/todoman/internal/model"
)

// FallbackSuggestion はAI応答を提案リストとして解釈できなかった場合に返す固定文言。
const FallbackSuggestion = "Could not parse suggestions. Try again."

// TextGenerator はプロンプトからテキストを生成するインターフェース。
type TextGenerator interface {
	GenerateText(ctx context.Context, prompt string) (string, error)
}

// Service は既存タスクをもとにAIへ新規タスクの提案を依頼する。
type Service struct {
	generator TextGenerator
	logger    *slog.Logger
}

// NewService は提案サービスを生成する。
func NewService(generator TextGenerator, logger *slog.Logger) *Service {
	return &Service{
		generator: generator,
		logger:    logger,
	}
}

// Suggest は既存タスク名のリストをもとに3件の新規タスク案を返す。
// AI応答がJSON文字列配列として解釈できない場合はエラーにせず、
// 固定のフォールバック文言1件を返す。
// 上流API呼び出しの失敗はUPSTREAM_ERRORを返し、詳細はログのみに記録する。
func (s *Service) Suggest(ctx context.Context, todos []string) ([]string, error) {
	prompt := buildPrompt(todos)

	text, err := s.generator.GenerateText(ctx, prompt)
	if err != nil {
		s.logger.Error("AI提案の生成に失敗しました",
			slog.String("error", err.Error()),
			slog.Int("todo_count", len(todos)),
		)
		return nil, model.NewUpstreamError()
	}

	suggestions, ok := parseSuggestions(text)
	if !ok {
		s.logger.Warn("AI応答を提案リストとして解釈できませんでした",
			slog.Int("response_length", len(text)),
		)
		return []string{FallbackSuggestion}, nil
	}

	return suggestions, nil
}

// buildPrompt は既存タスク名をカンマ結合してプロンプトに埋め込む。
func buildPrompt(todos []string) string {
	return fmt.Sprintf(`Based on the following list of tasks, suggest 3 new and distinct todo items.
The suggestions should be varied and realistic, potentially related to personal life, work, hobbies, or self-improvement.
Format the output as a JSON array of strings, like this:
["Suggestion 1", "Suggestion 2", "Suggestion 3"]

Current tasks: %s`, strings.Join(todos, ", "))
}

// parseSuggestions は応答テキストをJSON文字列配列として解釈する。
// markdownコードフェンス（```json ... ```）で包まれた応答にも対応する。
func parseSuggestions(text string) ([]string, bool) {
	cleaned := strings.TrimSpace(text)
	cleaned = strings.TrimPrefix(cleaned, "```json")
	cleaned = strings.TrimPrefix(cleaned, "```")
	cleaned = strings.TrimSuffix(cleaned, "```")
	cleaned = strings.TrimSpace(cleaned)

	var suggestions []string
	if err := json.Unmarshal([]byte(cleaned), &suggestions); err != nil {
		return nil, false
	}
	if suggestions == nil {
		return nil, false
	}
	return suggestions, true
}
