package browser

import (
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/chromedp/chromedp"
)

// Capture сохраняет диагностический снимок вкладки: скриншот и дамп
// DOM, помеченные адаптером и временем. Вызывается при падении
// операции провайдера, перед закрытием сессии.
//
// Лучшая попытка: любая ошибка логируется и проглатывается — сбой
// диагностики никогда не маскирует исходную ошибку операции.
// Возвращает путь к скриншоту (или пустую строку).
func (s *Session) Capture(note string) string {
	dir := s.manager.captureDir
	if dir == "" {
		return ""
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		s.manager.logger.Warn("diagnostic capture dir unavailable", "dir", dir, "error", err)
		return ""
	}

	stamp := time.Now().UTC().Format("20060102T150405")
	base := fmt.Sprintf("%s_%s_%s", s.adapterID, note, stamp)

	var shot []byte
	var html string
	if err := s.run(s.timeouts.Interaction,
		chromedp.FullScreenshot(&shot, 80),
		chromedp.OuterHTML("html", &html),
	); err != nil {
		s.manager.logger.Warn("diagnostic capture failed",
			"adapter_id", s.adapterID,
			"session_key", s.sessionKey,
			"error", err,
		)
		return ""
	}

	shotPath := filepath.Join(dir, base+".png")
	if err := os.WriteFile(shotPath, shot, 0o644); err != nil {
		s.manager.logger.Warn("diagnostic screenshot write failed", "path", shotPath, "error", err)
		shotPath = ""
	}
	htmlPath := filepath.Join(dir, base+".html")
	if err := os.WriteFile(htmlPath, []byte(html), 0o644); err != nil {
		s.manager.logger.Warn("diagnostic dom dump write failed", "path", htmlPath, "error", err)
	}

	s.manager.logger.Info("diagnostic capture saved",
		"adapter_id", s.adapterID,
		"screenshot", shotPath,
	)
	return shotPath
}
