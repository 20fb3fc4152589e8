package service

import "strings"

// Маркеры секций, которые обязан содержать ответ рассказчика
// (формат задается промтом storyteller.md).
const (
	titleMarker = "[TITLE]"
	bodyMarker  = "[BODY]"
)

// ParseDraft извлекает заголовок и тело истории из сырого ответа модели.
//
// Ожидаемый формат:
//
//	[TITLE]
//	<заголовок>
//	[BODY]
//	<тело>
//
// Если маркеры отсутствуют или стоят не по порядку, ответ не считается
// ошибкой: весь текст целиком становится телом, заголовок - пустым,
// usedFallback=true. Никаких частичных regexp-эвристик.
func ParseDraft(raw string) (title, body string, usedFallback bool) {
	titleIdx := strings.Index(raw, titleMarker)
	bodyIdx := strings.Index(raw, bodyMarker)

	if titleIdx < 0 || bodyIdx < 0 || bodyIdx < titleIdx {
		return "", strings.TrimSpace(raw), true
	}

	title = strings.TrimSpace(raw[titleIdx+len(titleMarker) : bodyIdx])
	body = strings.TrimSpace(raw[bodyIdx+len(bodyMarker):])
	return title, body, false
}
