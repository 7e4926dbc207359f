package pipeline

import (
	"context"
	"fmt"
	"os"
	"path/filepath"

	"github.com/google/uuid"
)

// Archiver сохраняет текстовые артефакты run во внешнем хранилище
// и возвращает ссылку для записи в PipelineRun.
type Archiver interface {
	// ArchiveText сохраняет текстовый артефакт под именем name в
	// пространстве операции operationID и возвращает ссылку.
	ArchiveText(ctx context.Context, operationID uuid.UUID, name string, text []byte) (string, error)
}

// FileArchiver — архиватор на локальной файловой системе.
// Дефолтная реализация для standalone-развёртывания; в продакшене
// заменяется коллаборатором объектного хранилища.
type FileArchiver struct {
	// Dir — корневой каталог архива.
	Dir string
}

// ArchiveText пишет артефакт в <dir>/<operationID>/<name>.
func (f *FileArchiver) ArchiveText(_ context.Context, operationID uuid.UUID, name string, text []byte) (string, error) {
	dir := filepath.Join(f.Dir, operationID.String())
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return "", fmt.Errorf("archive dir: %w", err)
	}
	path := filepath.Join(dir, name)
	if err := os.WriteFile(path, text, 0o644); err != nil {
		return "", fmt.Errorf("archive %s: %w", name, err)
	}
	return path, nil
}
