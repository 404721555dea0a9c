package conversation

const (
	titleMaxRunes = 20
	titleEllipsis = "..."
)

// GenerateTitle 由首条用户消息生成标题：超过 20 个字符时截断并追加省略号
func GenerateTitle(s string) string {
	runes := []rune(s)
	if len(runes) <= titleMaxRunes {
		return s
	}
	return string(runes[:titleMaxRunes]) + titleEllipsis
}
