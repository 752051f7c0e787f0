// Package scoring — rules.go задаёт правила начисления очков за один прогноз.
package scoring

import "serotonyl.ru/bolao/internal/common"

// Очки за прогноз на завершённый матч
const (
	PointsExact    = 10 // Точный счёт
	PointsTendency = 5  // Угадан исход (победа хозяев, ничья, победа гостей)
	PointsPartial  = 3  // Угаданы голы одной из команд
	PointsWrong    = 0
)

// ScorePrediction начисляет очки за прогноз predHome:predAway
// при итоговом счёте finalHome:finalAway. Правила проверяются по порядку,
// засчитывается первое совпавшее.
func ScorePrediction(predHome, predAway, finalHome, finalAway int) int {
	switch {
	case predHome == finalHome && predAway == finalAway:
		return PointsExact
	case common.Outcome(predHome, predAway) == common.Outcome(finalHome, finalAway):
		return PointsTendency
	case predHome == finalHome || predAway == finalAway:
		return PointsPartial
	default:
		return PointsWrong
	}
}
