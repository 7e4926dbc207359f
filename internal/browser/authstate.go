package browser

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/chromedp/cdproto/cdp"
	"github.com/chromedp/cdproto/network"
	"github.com/chromedp/chromedp"
)

// Cookie — сериализуемое представление браузерной cookie.
// Собственная структура вместо network.Cookie: формат хранения
// не должен меняться вместе с devtools-протоколом.
type Cookie struct {
	Name     string  `json:"name"`
	Value    string  `json:"value"`
	Domain   string  `json:"domain"`
	Path     string  `json:"path"`
	Expires  float64 `json:"expires,omitempty"`
	Secure   bool    `json:"secure,omitempty"`
	HTTPOnly bool    `json:"http_only,omitempty"`
	SameSite string  `json:"same_site,omitempty"`
}

// AuthState — снимок авторизованного состояния браузерного профиля.
// Сериализуется в SessionRecord.AuthState как JSON.
type AuthState struct {
	// Cookies — все cookies браузерного контекста.
	Cookies []Cookie `json:"cookies"`

	// LocalStorage — localStorage точки входа провайдера.
	LocalStorage map[string]string `json:"local_storage,omitempty"`
}

// Empty возвращает true для снимка без какого-либо состояния.
func (a *AuthState) Empty() bool {
	return len(a.Cookies) == 0 && len(a.LocalStorage) == 0
}

// Marshal сериализует снимок в JSON.
// Поля сериализуются детерминированно — round-trip через SessionStore
// сравним побайтово.
func (a *AuthState) Marshal() ([]byte, error) {
	return json.Marshal(a)
}

// UnmarshalAuthState разбирает JSON снимка.
func UnmarshalAuthState(raw []byte) (*AuthState, error) {
	var state AuthState
	if err := json.Unmarshal(raw, &state); err != nil {
		return nil, fmt.Errorf("unmarshal auth state: %w", err)
	}
	return &state, nil
}

// snapshotAction собирает AuthState из живого браузерного контекста.
func snapshotAction(state *AuthState) chromedp.Action {
	return chromedp.ActionFunc(func(ctx context.Context) error {
		cookies, err := network.GetCookies().Do(ctx)
		if err != nil {
			return fmt.Errorf("get cookies: %w", err)
		}

		state.Cookies = make([]Cookie, 0, len(cookies))
		for _, c := range cookies {
			state.Cookies = append(state.Cookies, Cookie{
				Name:     c.Name,
				Value:    c.Value,
				Domain:   c.Domain,
				Path:     c.Path,
				Expires:  c.Expires,
				Secure:   c.Secure,
				HTTPOnly: c.HTTPOnly,
				SameSite: string(c.SameSite),
			})
		}
		return nil
	})
}

// restoreCookiesAction восстанавливает cookies в браузерный контекст.
// Ошибка отдельной cookie не прерывает восстановление остальных.
func restoreCookiesAction(state *AuthState) chromedp.Action {
	return chromedp.ActionFunc(func(ctx context.Context) error {
		for _, c := range state.Cookies {
			setCookie := network.SetCookie(c.Name, c.Value).
				WithDomain(c.Domain).
				WithPath(c.Path).
				WithSecure(c.Secure).
				WithHTTPOnly(c.HTTPOnly)

			if c.SameSite != "" {
				setCookie = setCookie.WithSameSite(network.CookieSameSite(c.SameSite))
			}
			if c.Expires > 0 {
				expires := cdp.TimeSinceEpoch(time.Unix(int64(c.Expires), 0))
				setCookie = setCookie.WithExpires(&expires)
			}

			if err := setCookie.Do(ctx); err != nil {
				// Одна битая cookie не должна ронять всю сессию
				continue
			}
		}
		return nil
	})
}

// snapshotLocalStorage снимает localStorage текущей страницы.
func snapshotLocalStorage(state *AuthState) chromedp.Action {
	return chromedp.Evaluate(
		`Object.assign({}, window.localStorage)`,
		&state.LocalStorage,
	)
}

// restoreLocalStorage восстанавливает localStorage на текущей странице.
func restoreLocalStorage(state *AuthState) chromedp.Action {
	return chromedp.ActionFunc(func(ctx context.Context) error {
		if len(state.LocalStorage) == 0 {
			return nil
		}
		payload, err := json.Marshal(state.LocalStorage)
		if err != nil {
			return fmt.Errorf("marshal local storage: %w", err)
		}
		script := fmt.Sprintf(
			`(() => { const data = %s; for (const k in data) { window.localStorage.setItem(k, data[k]); } })()`,
			payload,
		)
		return chromedp.Evaluate(script, nil).Do(ctx)
	})
}
