package browser

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/chromedp/chromedp"

	"github.com/shaiso/Fabrika/internal/domain"
)

// Session — одна браузерная вкладка, привязанная к sessionKey.
//
// Жизненный цикл: Manager.Open → серия Run/Navigate/Download → Close.
// Close гарантированно снимает срез состояния авторизации,
// персистирует его и освобождает ключ сессии, даже если промежуточные
// операции падали.
type Session struct {
	manager    *Manager
	adapterID  string
	sessionKey string
	entryURL   string
	timeouts   domain.Timeouts

	ctx     context.Context
	cancel  context.CancelFunc
	release func()

	closeOnce sync.Once
	closeErr  error
}

// open восстанавливает сохранённое состояние и открывает entry URL.
func (s *Session) open(ctx context.Context) error {
	state, err := s.manager.loadState(ctx, s.sessionKey)
	if err != nil {
		return err
	}

	actions := []chromedp.Action{enableNetwork()}
	if state != nil && !state.Empty() {
		actions = append(actions, restoreCookiesAction(state))
	}
	actions = append(actions, chromedp.Navigate(s.entryURL))
	if state != nil && len(state.LocalStorage) > 0 {
		// localStorage привязан к origin — восстанавливаем после навигации.
		actions = append(actions, restoreLocalStorage(state))
	}

	if err := s.run(s.timeouts.Navigation, actions...); err != nil {
		return fmt.Errorf("open %s: %w", s.entryURL, err)
	}
	return nil
}

// Run выполняет chromedp-действия под таймаутом взаимодействия.
func (s *Session) Run(actions ...chromedp.Action) error {
	return s.run(s.timeouts.Interaction, actions...)
}

// RunNavigation выполняет действия под навигационным таймаутом.
func (s *Session) RunNavigation(actions ...chromedp.Action) error {
	return s.run(s.timeouts.Navigation, actions...)
}

// RunDownload выполняет действия под таймаутом скачивания
// (длительные генерации и выгрузки артефактов).
func (s *Session) RunDownload(actions ...chromedp.Action) error {
	return s.run(s.timeouts.Download, actions...)
}

func (s *Session) run(timeout time.Duration, actions ...chromedp.Action) error {
	ctx, cancel := context.WithTimeout(s.ctx, timeout)
	defer cancel()
	return chromedp.Run(ctx, actions...)
}

// Navigate открывает URL под навигационным таймаутом.
func (s *Session) Navigate(url string) error {
	return s.RunNavigation(chromedp.Navigate(url))
}

// Context возвращает контекст вкладки для прямых chromedp-вызовов.
func (s *Session) Context() context.Context {
	return s.ctx
}

// AdapterID возвращает ID адаптера-владельца.
func (s *Session) AdapterID() string {
	return s.adapterID
}

// Close снимает срез состояния авторизации, персистирует его и
// освобождает ключ сессии. Повторные вызовы — no-op.
//
// Если снятие среза не удалось, сохранённая запись НЕ перезаписывается:
// старое валидное состояние ценнее пустого.
func (s *Session) Close(ctx context.Context) error {
	s.closeOnce.Do(func() {
		defer s.release()
		defer s.cancel()

		state := &AuthState{}
		snapErr := s.run(s.timeouts.Interaction,
			snapshotAction(state),
			snapshotLocalStorage(state),
		)
		if snapErr != nil {
			s.manager.logger.Warn("auth state snapshot failed, keeping previous record",
				"adapter_id", s.adapterID,
				"session_key", s.sessionKey,
				"error", snapErr,
			)
			return
		}

		if err := s.manager.saveState(ctx, s.adapterID, s.sessionKey, state); err != nil {
			s.closeErr = err
		}
	})
	return s.closeErr
}
