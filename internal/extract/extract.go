package extract

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"
	"unicode/utf8"
)

// DefaultMaxChars — дефолтный предел длины извлечённого текста.
// Текст длиннее обрезается перед передачей этапу strategy.
const DefaultMaxChars = 12000

// Extractor извлекает читаемый текст статьи по URL.
// Внешний коллаборатор jobs типа create_from_url.
type Extractor interface {
	// ExtractText возвращает текст статьи.
	ExtractText(ctx context.Context, url string) (string, error)
}

// HTTPExtractor — дефолтная реализация: скачивает страницу и
// снимает HTML-разметку. Продакшен-развёртывание подменяет её
// полноценным сервисом извлечения.
type HTTPExtractor struct {
	client *http.Client
}

// NewHTTPExtractor создаёт HTTPExtractor.
// client может быть nil — тогда используется клиент с таймаутом 30s.
func NewHTTPExtractor(client *http.Client) *HTTPExtractor {
	if client == nil {
		client = &http.Client{Timeout: 30 * time.Second}
	}
	return &HTTPExtractor{client: client}
}

// ExtractText скачивает страницу и возвращает её текст без разметки.
func (e *HTTPExtractor) ExtractText(ctx context.Context, url string) (string, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return "", fmt.Errorf("build request: %w", err)
	}
	req.Header.Set("Accept", "text/html")

	resp, err := e.client.Do(req)
	if err != nil {
		return "", fmt.Errorf("fetch %s: %w", url, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("fetch %s: unexpected status %d", url, resp.StatusCode)
	}

	body, err := io.ReadAll(io.LimitReader(resp.Body, 4<<20))
	if err != nil {
		return "", fmt.Errorf("read body: %w", err)
	}

	return stripHTML(string(body)), nil
}

// stripHTML снимает теги и скрипты, схлопывает пробелы.
func stripHTML(html string) string {
	var b strings.Builder
	inTag := false
	skipDepth := 0 // внутри <script>/<style>

	lower := strings.ToLower(html)
	for i := 0; i < len(html); i++ {
		c := html[i]
		if c == '<' {
			if strings.HasPrefix(lower[i:], "<script") || strings.HasPrefix(lower[i:], "<style") {
				skipDepth++
			}
			if strings.HasPrefix(lower[i:], "</script") || strings.HasPrefix(lower[i:], "</style") {
				if skipDepth > 0 {
					skipDepth--
				}
			}
			inTag = true
			continue
		}
		if c == '>' {
			inTag = false
			b.WriteByte(' ')
			continue
		}
		if !inTag && skipDepth == 0 {
			b.WriteByte(c)
		}
	}

	return strings.Join(strings.Fields(b.String()), " ")
}

// Truncate обрезает текст до maxChars, не разрывая UTF-8 символ.
func Truncate(text string, maxChars int) string {
	if maxChars <= 0 {
		maxChars = DefaultMaxChars
	}
	if utf8.RuneCountInString(text) <= maxChars {
		return text
	}
	runes := []rune(text)
	return string(runes[:maxChars])
}
