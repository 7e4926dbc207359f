package browser

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/chromedp/cdproto/network"
	"github.com/chromedp/chromedp"

	"github.com/shaiso/Fabrika/internal/domain"
	"github.com/shaiso/Fabrika/internal/repo"
	"github.com/shaiso/Fabrika/internal/telemetry"
)

// defaultUserAgent — user agent процессов автоматизации.
const defaultUserAgent = "Mozilla/5.0 (X11; Linux x86_64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/124.0.0.0 Safari/537.36"

// Manager владеет браузерным аллокатором и выдаёт Sessions адаптерам.
//
// Инвариант: на один sessionKey — не более одного живого браузерного
// контекста одновременно. Open-вызовы с одним ключом сериализуются
// keyed-семафором, чтобы два адаптера не мутировали одну
// персистированную сессию конкурентно.
type Manager struct {
	store      SessionStore
	captureDir string
	logger     *slog.Logger

	allocCtx    context.Context
	allocCancel context.CancelFunc

	// locks — семафор на sessionKey (ёмкость 1).
	mu    sync.Mutex
	locks map[string]chan struct{}
}

// ManagerConfig — конфигурация Manager.
type ManagerConfig struct {
	// Store — персистенс SessionRecord (обязательно).
	Store SessionStore

	// CaptureDir — каталог диагностических снимков.
	CaptureDir string

	// Headless — запуск без видимого окна (default: true).
	Headless *bool

	// UserAgent — переопределение user agent.
	UserAgent string

	// Logger — логгер.
	Logger *slog.Logger
}

// NewManager создаёт Manager и браузерный аллокатор.
func NewManager(ctx context.Context, cfg ManagerConfig) (*Manager, error) {
	if cfg.Store == nil {
		return nil, fmt.Errorf("browser manager: store is required")
	}

	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}

	headless := true
	if cfg.Headless != nil {
		headless = *cfg.Headless
	}

	userAgent := cfg.UserAgent
	if userAgent == "" {
		userAgent = defaultUserAgent
	}

	allocCtx, allocCancel := chromedp.NewExecAllocator(
		ctx,
		append(
			chromedp.DefaultExecAllocatorOptions[:],
			chromedp.Flag("headless", headless),
			chromedp.Flag("disable-gpu", true),
			chromedp.Flag("no-sandbox", true),
			chromedp.Flag("disable-dev-shm-usage", true),
			chromedp.UserAgent(userAgent),
		)...,
	)

	return &Manager{
		store:       cfg.Store,
		captureDir:  cfg.CaptureDir,
		logger:      logger,
		allocCtx:    allocCtx,
		allocCancel: allocCancel,
		locks:       make(map[string]chan struct{}),
	}, nil
}

// Open открывает Session для адаптера: захватывает ключ сессии,
// создаёт вкладку, восстанавливает сохранённое состояние авторизации
// и открывает точку входа провайдера.
//
// Возвращённый Session обязан быть закрыт (defer session.Close) —
// Close персистирует состояние и освобождает ключ.
func (m *Manager) Open(ctx context.Context, desc domain.AdapterDescriptor) (*Session, error) {
	release, err := m.acquire(ctx, desc.SessionKey)
	if err != nil {
		return nil, fmt.Errorf("acquire session key %s: %w", desc.SessionKey, err)
	}

	tabCtx, tabCancel := chromedp.NewContext(m.allocCtx)

	s := &Session{
		manager:    m,
		adapterID:  desc.ID,
		sessionKey: desc.SessionKey,
		entryURL:   desc.BaseURL,
		timeouts:   desc.Timeouts.WithDefaults(),
		ctx:        tabCtx,
		cancel:     tabCancel,
		release:    release,
	}

	if err := s.open(ctx); err != nil {
		// Открытие не удалось — освобождаем всё, ничего не персистируя
		// (состояние в store не менялось и не потеряно).
		tabCancel()
		release()
		return nil, err
	}

	return s, nil
}

// Close останавливает аллокатор. Открытые Sessions должны быть
// закрыты до вызова.
func (m *Manager) Close() {
	m.allocCancel()
}

// acquire захватывает семафор sessionKey с учётом контекста.
func (m *Manager) acquire(ctx context.Context, key string) (func(), error) {
	m.mu.Lock()
	ch, ok := m.locks[key]
	if !ok {
		ch = make(chan struct{}, 1)
		m.locks[key] = ch
	}
	m.mu.Unlock()

	select {
	case ch <- struct{}{}:
		return func() { <-ch }, nil
	case <-ctx.Done():
		return nil, ctx.Err()
	}
}

// loadState загружает сохранённый AuthState для sessionKey.
// Отсутствие записи — не ошибка (свежий профиль).
func (m *Manager) loadState(ctx context.Context, sessionKey string) (*AuthState, error) {
	rec, err := m.store.LoadSession(ctx, sessionKey)
	if err != nil {
		if errors.Is(err, repo.ErrNotFound) {
			telemetry.SessionRestores.WithLabelValues("miss").Inc()
			return nil, nil
		}
		telemetry.SessionRestores.WithLabelValues("error").Inc()
		return nil, fmt.Errorf("load session %s: %w", sessionKey, err)
	}

	state, err := UnmarshalAuthState(rec.AuthState)
	if err != nil {
		// Битая запись трактуется как отсутствие сессии: адаптер
		// упрётся в AuthRequired и запись будет перезаписана.
		m.logger.Warn("stored auth state is corrupt, starting fresh",
			"session_key", sessionKey,
			"error", err,
		)
		telemetry.SessionRestores.WithLabelValues("error").Inc()
		return nil, nil
	}

	telemetry.SessionRestores.WithLabelValues("hit").Inc()
	return state, nil
}

// saveState персистирует AuthState для sessionKey.
func (m *Manager) saveState(ctx context.Context, adapterID, sessionKey string, state *AuthState) error {
	raw, err := state.Marshal()
	if err != nil {
		return fmt.Errorf("marshal auth state: %w", err)
	}

	rec := &domain.SessionRecord{
		SessionKey: sessionKey,
		AdapterID:  adapterID,
		AuthState:  raw,
		UpdatedAt:  time.Now(),
	}
	if err := m.store.SaveSession(ctx, rec); err != nil {
		return fmt.Errorf("save session %s: %w", sessionKey, err)
	}
	return nil
}

// enableNetwork включает network domain вкладки (нужно для cookies).
func enableNetwork() chromedp.Action {
	return network.Enable()
}
