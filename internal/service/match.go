package service

import (
	"strings"

	"PillSync/internal/model"
)

// MatchMedicine 判断 OCR 识别文本里是否出现了药品名。
// 刻意宽松：包装上的文字嘈杂、OCR 质量不稳定，全名或任意一个词命中都算匹配。
// 识别文本为空（OCR 失败或没拍到字）一律 mismatch。
func MatchMedicine(medicineName, recognizedText string) model.MatchStatus {
	name := strings.ToLower(strings.TrimSpace(medicineName))
	text := strings.ToLower(strings.TrimSpace(recognizedText))

	if name == "" || text == "" {
		return model.MatchStatusMismatch
	}

	// 全名子串命中
	if strings.Contains(text, name) {
		return model.MatchStatusMatch
	}

	// 任意一个空白分隔的词命中
	for _, token := range strings.Fields(name) {
		if strings.Contains(text, token) {
			return model.MatchStatusMatch
		}
	}

	return model.MatchStatusMismatch
}
