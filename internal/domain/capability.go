package domain

import "strings"

// Capability — вид работы одного этапа конвейера.
//
// Набор capabilities фиксирован на уровне процесса. Каждый внешний
// провайдер (Adapter) реализует подмножество из них. Порядок этапов
// конвейера задаётся StageOrder и не меняется между запусками.
type Capability string

const (
	// CapabilityStrategy — генерация контент-стратегии по теме или тексту.
	CapabilityStrategy Capability = "strategy"

	// CapabilityScript — генерация сценария по стратегии.
	CapabilityScript Capability = "script"

	// CapabilityImage — генерация изображения по промпту.
	CapabilityImage Capability = "image"

	// CapabilityAudio — озвучка текстового фрагмента.
	CapabilityAudio Capability = "audio"

	// CapabilityVideoClip — генерация видеоклипа по стратегии.
	CapabilityVideoClip Capability = "video_clip"

	// CapabilityCompilation — сборка финального ролика из ассетов.
	CapabilityCompilation Capability = "compilation"
)

// distributionPrefix — префикс capabilities публикации.
const distributionPrefix = "distribution:"

// DistributionFor возвращает capability публикации на конкретную платформу.
// Например: DistributionFor("youtube") → "distribution:youtube".
func DistributionFor(platform string) Capability {
	return Capability(distributionPrefix + platform)
}

// IsDistribution возвращает true для capabilities публикации.
func (c Capability) IsDistribution() bool {
	return strings.HasPrefix(string(c), distributionPrefix)
}

// Platform возвращает имя платформы для capability публикации.
// Для остальных capabilities возвращает пустую строку.
func (c Capability) Platform() string {
	if !c.IsDistribution() {
		return ""
	}
	return strings.TrimPrefix(string(c), distributionPrefix)
}

// StageOrder возвращает фиксированную последовательность этапов конвейера
// (без этапов публикации — они идут под-этапами после compilation).
func StageOrder() []Capability {
	return []Capability{
		CapabilityStrategy,
		CapabilityScript,
		CapabilityImage,
		CapabilityAudio,
		CapabilityVideoClip,
		CapabilityCompilation,
	}
}
