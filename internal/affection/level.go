// Package affection 负责好感度的分级、截断以及基于大模型的变化量分析
package affection

import "mingling-server/internal/model"

// 单轮对话好感度变化的范围
const (
	MinDelta = -10
	MaxDelta = 10
)

// band 好感度分档，下界包含
type band struct {
	min   int
	label string
}

// 按下界从高到低排列
var bands = []band{
	{90, "💖 최고의 친구"},
	{80, "💕 매우 친함"},
	{70, "😊 친함"},
	{60, "🙂 호감"},
	{50, "😐 보통"},
	{40, "😒 약간 서먹"},
	{30, "😕 서먹함"},
	{20, "😤 불편함"},
	{10, "😠 매우 불편함"},
	{model.MinAffectionScore, "💔 최악"},
}

// Clamp 把好感度截断到 [0,100]
func Clamp(score int) int {
	if score < model.MinAffectionScore {
		return model.MinAffectionScore
	}
	if score > model.MaxAffectionScore {
		return model.MaxAffectionScore
	}
	return score
}

// ClampDelta 把单轮变化量截断到 [-10,10]
func ClampDelta(delta int) int {
	if delta < MinDelta {
		return MinDelta
	}
	if delta > MaxDelta {
		return MaxDelta
	}
	return delta
}

// Apply 计算应用变化量之后的好感度
func Apply(score, delta int) int {
	return Clamp(score + delta)
}

// Level 返回好感度对应的文字分档
// 超出 [0,100] 的输入先截断
func Level(score int) string {
	score = Clamp(score)
	for _, b := range bands {
		if score >= b.min {
			return b.label
		}
	}
	return bands[len(bands)-1].label
}

// Levels 按从高到低的顺序返回全部分档文字
func Levels() []string {
	out := make([]string, 0, len(bands))
	for _, b := range bands {
		out = append(out, b.label)
	}
	return out
}

// BehaviorClause 根据好感度选择角色的语气要求
func BehaviorClause(score int) string {
	score = Clamp(score)
	switch {
	case score >= 80:
		return "You feel very close to this person. Be warm, affectionate and open, share your feelings freely."
	case score >= 60:
		return "You like this person. Be friendly and positive, and show genuine interest in what they say."
	case score >= 40:
		return "You feel neutral toward this person. Be polite and natural, but keep some distance."
	case score >= 20:
		return "You feel uncomfortable with this person. Be distant and formal, and keep your answers short."
	default:
		return "You strongly dislike this person. Be cold and dismissive, and answer only briefly."
	}
}
