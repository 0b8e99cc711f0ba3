package recipe

import (
	"context"
	"strconv"
	"strings"

	"video-recipe-generator/internal/core/ai/provider"
	"video-recipe-generator/internal/pkg/common"

	"go.uber.org/zap"
)

// wireIngredient 模型輸出的欄位名稱，與提示詞保持一致
type wireIngredient struct {
	Name      string      `json:"ingrediente"`
	Quantity  interface{} `json:"quantità"`
	Estimated bool        `json:"stimata"`
}

// IngredientService 從轉錄中取出暫定食材清單
type IngredientService struct {
	provider provider.Provider
	options  GenerationOptions
}

// NewIngredientService 創建食材擷取服務
func NewIngredientService(p provider.Provider, opts GenerationOptions) *IngredientService {
	return &IngredientService{provider: p, options: opts}
}

// ExtractIngredients 取出食材清單。
// 任何失敗都回傳 nil 清單讓流程繼續；只有 ctx 結束時回傳 error
func (s *IngredientService) ExtractIngredients(ctx context.Context, transcript string, src Source) ([]ProvisionalIngredient, error) {
	resp, err := s.provider.Generate(ctx, &provider.Request{
		Model: s.options.Model,
		Messages: []provider.Message{
			{Role: provider.RoleSystem, Content: ingredientSystemPrompt},
			{Role: provider.RoleUser, Content: buildIngredientPrompt(transcript, src)},
		},
		MaxTokens:   s.options.MaxTokens,
		Temperature: provider.Float(s.options.Temperature),
		TopP:        provider.Float(1),
	})
	if err != nil {
		if ctx.Err() != nil {
			return nil, ctx.Err()
		}
		common.LogWarn("Ingredient extraction skipped",
			zap.String("reason", "provider error"),
			zap.Error(err),
		)
		return nil, nil
	}

	ingredients, err := ParseIngredients(resp.Content)
	if err != nil {
		common.LogWarn("Ingredient extraction skipped",
			zap.String("reason", "unparseable response"),
			zap.Error(err),
			zap.String("content_preview", common.Truncate(resp.Content, 200)),
		)
		return nil, nil
	}

	common.LogInfo("Successfully extracted ingredients",
		zap.Int("ingredients_count", len(ingredients)),
	)
	return ingredients, nil
}

// ParseIngredients 嚴格解析：內容必須整段是一個符合 schema 的 JSON 陣列
func ParseIngredients(content string) ([]ProvisionalIngredient, error) {
	content = strings.TrimSpace(content)

	if err := ingredientValidator.ValidateJSON([]byte(content)); err != nil {
		return nil, &ParseError{Stage: "ingredient", Content: content, Err: err}
	}

	var wire []wireIngredient
	if err := common.ParseJSON(content, &wire); err != nil {
		return nil, &ParseError{Stage: "ingredient", Content: content, Err: err}
	}

	ingredients := make([]ProvisionalIngredient, 0, len(wire))
	for _, w := range wire {
		name := strings.TrimSpace(w.Name)
		if name == "" {
			continue
		}
		ingredients = append(ingredients, ProvisionalIngredient{
			Name:         name,
			QuantityText: quantityText(w.Quantity),
			Estimated:    w.Estimated,
		})
	}
	return ingredients, nil
}

func quantityText(v interface{}) *string {
	var text string
	switch q := v.(type) {
	case string:
		text = strings.TrimSpace(q)
	case float64:
		text = strconv.FormatFloat(q, 'f', -1, 64)
	default:
		return nil
	}
	if text == "" {
		return nil
	}
	return &text
}
