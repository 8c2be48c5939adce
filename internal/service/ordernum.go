package service

import (
	"fmt"
	"time"

	"github.com/nanorand/nanorand"
)

// GenerateOrderNumber выдаёт человекочитаемый номер вида ORD-20260901-483920.
// Глобальная уникальность гарантируется не здесь, а уникальным индексом в БД:
// при коллизии чекаут генерирует номер заново.
func GenerateOrderNumber(now time.Time) (string, error) {
	rng, err := nanorand.Gen(6)
	if err != nil {
		return "", err
	}
	return fmt.Sprintf("ORD-%s-%s", now.UTC().Format("20060102"), rng), nil
}
