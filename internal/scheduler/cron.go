package scheduler

import (
	"fmt"

	"github.com/robfig/cron/v3"
)

// DefaultPeriod — период цикла по умолчанию: раз в час.
const DefaultPeriod = "0 * * * *"

// cronParser — парсер cron-выражений (стандартные 5 полей).
var cronParser = cron.NewParser(cron.Minute | cron.Hour | cron.Dom | cron.Month | cron.Dow)

// ParsePeriod разбирает cron-выражение периода цикла.
// Пустая строка означает DefaultPeriod.
func ParsePeriod(expr string) (cron.Schedule, error) {
	if expr == "" {
		expr = DefaultPeriod
	}
	schedule, err := cronParser.Parse(expr)
	if err != nil {
		return nil, fmt.Errorf("parse period expression %q: %w", expr, err)
	}
	return schedule, nil
}
