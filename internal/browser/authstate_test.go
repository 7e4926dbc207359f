package browser

import (
	"context"
	"testing"

	"github.com/chromedp/chromedp"
)

// Снятие и восстановление работают через один общий снимок:
// snapshot-действия пишут в него, restore-действия читают из него.
func TestAuthStateActionsShareSnapshot(t *testing.T) {
	state := &AuthState{
		Cookies:      []Cookie{{Name: "sid", Value: "abc", Domain: ".studio.example", Path: "/"}},
		LocalStorage: map[string]string{"token": "jwt-xyz"},
	}

	for name, a := range map[string]chromedp.Action{
		"snapshot_cookies":      snapshotAction(state),
		"snapshot_localstorage": snapshotLocalStorage(state),
		"restore_cookies":       restoreCookiesAction(state),
		"restore_localstorage":  restoreLocalStorage(state),
	} {
		if a == nil {
			t.Fatalf("%s: constructor returned nil action", name)
		}
	}
}

func TestRestoreActionsEmptyStateNoOp(t *testing.T) {
	ctx := context.Background()
	state := &AuthState{}

	// Пустой снимок не должен трогать devtools-транспорт вовсе:
	// оба действия обязаны вернуться без исполнителя в контексте.
	if err := restoreCookiesAction(state).Do(ctx); err != nil {
		t.Fatalf("restore cookies on empty state: %v", err)
	}
	if err := restoreLocalStorage(state).Do(ctx); err != nil {
		t.Fatalf("restore localStorage on empty state: %v", err)
	}
}
