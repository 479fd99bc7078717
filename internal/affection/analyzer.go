package affection

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"math"
	"regexp"
	"strconv"
	"strings"

	"mingling-server/internal/llm"
	"mingling-server/internal/model"
)

// 分析失败时返回的原因
const (
	ReasonParseFailed = "Failed to analyze conversation"
	ReasonUnavailable = "Analysis service unavailable"
	ReasonMissing     = "No reason provided"
)

// Outcome 分析结果的来源
type Outcome string

const (
	OutcomeAnalyzed    Outcome = "analyzed"
	OutcomeParseFailed Outcome = "parse_failed"
	OutcomeUnavailable Outcome = "unavailable"
)

// Result 一轮对话的好感度分析结果
// Delta 始终在 [-10,10] 内
type Result struct {
	Delta   int
	Reason  string
	Outcome Outcome
}

// Input 分析所需的对话内容
type Input struct {
	UserMessage string
	Reply       string
	Personality string
	History     []model.ChatMessage
}

// AnalyzerConfig 分析使用的模型参数
type AnalyzerConfig struct {
	Model       string
	MaxTokens   int64
	Temperature float64
}

// Analyzer 调用大模型判断一轮对话对好感度的影响
// 不读写数据库
type Analyzer struct {
	client llm.Client
	cfg    AnalyzerConfig
}

// NewAnalyzer 创建 Analyzer
func NewAnalyzer(client llm.Client, cfg AnalyzerConfig) *Analyzer {
	return &Analyzer{client: client, cfg: cfg}
}

// Analyze 分析一轮对话，永远不返回错误
// 模型调用失败时返回 {0, ReasonUnavailable}，输出无法解析时返回 {0, ReasonParseFailed}
func (a *Analyzer) Analyze(ctx context.Context, in Input) Result {
	if a == nil || a.client == nil {
		return Result{Reason: ReasonUnavailable, Outcome: OutcomeUnavailable}
	}

	content, err := a.client.Complete(ctx, llm.Request{
		Model:       a.cfg.Model,
		Messages:    []llm.Message{{Role: llm.RoleUser, Content: BuildAnalysisPrompt(in)}},
		MaxTokens:   a.cfg.MaxTokens,
		Temperature: llm.Float(a.cfg.Temperature),
	})
	if err != nil || strings.TrimSpace(content) == "" {
		slog.WarnContext(ctx, "affection analysis unavailable", "error", err)
		return Result{Reason: ReasonUnavailable, Outcome: OutcomeUnavailable}
	}

	result, ok := ParseAnalysis(content)
	if !ok {
		slog.WarnContext(ctx, "failed to parse affection analysis", "content", content)
	}
	return result
}

// BuildAnalysisPrompt 构造分析提示词
func BuildAnalysisPrompt(in Input) string {
	var sb strings.Builder
	sb.WriteString("You analyze the emotional dynamics of a conversation between a user and an AI character.\n\n")
	fmt.Fprintf(&sb, "Character personality: %s\n\n", in.Personality)

	if len(in.History) > 0 {
		sb.WriteString("Earlier conversation:\n")
		for _, msg := range in.History {
			speaker := "AI"
			if msg.IsUserMessage {
				speaker = "User"
			}
			fmt.Fprintf(&sb, "%s: %s\n", speaker, msg.Message)
		}
		sb.WriteString("\n")
	}

	sb.WriteString("Latest exchange:\n")
	fmt.Fprintf(&sb, "User: %s\n", in.UserMessage)
	fmt.Fprintf(&sb, "AI: %s\n\n", in.Reply)

	sb.WriteString(`Decide how much the character's affection toward the user changes because of this exchange.

Rules:
- Use an integer from -10 to +10.
- Positive values mean the user was friendly, kind or thoughtful.
- Negative values mean the user was rude, dismissive or inappropriate.
- Judge appropriateness against the character's personality.
- Use 0 when the exchange has no noticeable effect.

Guide:
- Compliments, gratitude, sharing something personal: +2 to +5
- Kind questions or interest in the character: +1 to +3
- Ordinary polite conversation: 0 to +1
- Slightly rude or dismissive: -1 to -3
- Offensive or very inappropriate: -5 to -10

Reply with only this JSON object:
{"affectionChange": <integer>, "reason": "<short explanation>"}`)
	return sb.String()
}

var leadingInt = regexp.MustCompile(`^\s*([+-]?\d+)`)

// ParseAnalysis 解析模型返回的 JSON
// 返回的 bool 表示是否解析成功；失败时结果为 {0, ReasonParseFailed}
func ParseAnalysis(content string) (Result, bool) {
	failed := Result{Reason: ReasonParseFailed, Outcome: OutcomeParseFailed}

	// 模型有时会在 JSON 前后加说明文字或代码块标记
	start := strings.Index(content, "{")
	end := strings.LastIndex(content, "}")
	if start < 0 || end <= start {
		return failed, false
	}

	var raw map[string]json.RawMessage
	if err := json.Unmarshal([]byte(content[start:end+1]), &raw); err != nil {
		return failed, false
	}

	field, ok := raw["affectionChange"]
	if !ok {
		return failed, false
	}
	delta, ok := parseDelta(field)
	if !ok {
		return failed, false
	}

	reason := ReasonMissing
	if r, ok := raw["reason"]; ok {
		var s string
		if err := json.Unmarshal(r, &s); err == nil && strings.TrimSpace(s) != "" {
			reason = strings.TrimSpace(s)
		}
	}

	return Result{Delta: ClampDelta(delta), Reason: reason, Outcome: OutcomeAnalyzed}, true
}

// parseDelta 接受数字或以整数开头的字符串，小数向零截断
func parseDelta(field json.RawMessage) (int, bool) {
	if strings.TrimSpace(string(field)) == "null" {
		return 0, false
	}

	var num float64
	if err := json.Unmarshal(field, &num); err == nil {
		if math.IsNaN(num) || math.IsInf(num, 0) {
			return 0, false
		}
		return truncate(num), true
	}

	var s string
	if err := json.Unmarshal(field, &s); err != nil {
		return 0, false
	}
	m := leadingInt.FindStringSubmatch(s)
	if m == nil {
		return 0, false
	}
	n, err := strconv.ParseInt(m[1], 10, 64)
	if err != nil {
		// 位数过多，按符号取极值
		if strings.HasPrefix(m[1], "-") {
			return MinDelta, true
		}
		return MaxDelta, true
	}
	return truncate(float64(n)), true
}

func truncate(v float64) int {
	v = math.Trunc(v)
	// 先截到安全范围，避免 int 溢出
	if v < MinDelta {
		return MinDelta
	}
	if v > MaxDelta {
		return MaxDelta
	}
	return int(v)
}
