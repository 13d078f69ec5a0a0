package product

import (
	"context"
	"fmt"
	"strings"
)

// Searcher finds catalog products semantically similar to a free-text query.
type Searcher interface {
	Search(ctx context.Context, query string, limit int, scoreThreshold float64) ([]Match, error)
}

// FormatExcerpt renders the top search hits as a short catalog excerpt for
// inclusion in an agent prompt. Spanish output, matching the assistant's
// storefront language.
func FormatExcerpt(matches []Match, top int) string {
	if len(matches) == 0 {
		return "No se encontraron productos relevantes."
	}
	if top <= 0 || top > len(matches) {
		top = len(matches)
	}

	var sb strings.Builder
	sb.WriteString("Productos relevantes encontrados:\n\n")

	for i, match := range matches[:top] {
		p := match.Product
		fmt.Fprintf(&sb, "%d. %s\n", i+1, p.Name)
		fmt.Fprintf(&sb, "   - Categoría: %s\n", p.Category)
		fmt.Fprintf(&sb, "   - Precio: $%.2f\n", p.Price)
		fmt.Fprintf(&sb, "   - Relevancia: %.2f\n", match.Score)
		if highlights := specHighlights(p.Spec); highlights != "" {
			fmt.Fprintf(&sb, "   - Características: %s\n", highlights)
		}
		sb.WriteString("\n")
	}

	return sb.String()
}

func specHighlights(spec Spec) string {
	switch s := spec.(type) {
	case IPhoneSpec:
		return joinNonEmpty(s.Chip, s.DisplaySize, storageLabel(s.StorageGB))
	case MacSpec:
		return joinNonEmpty(s.Chip, s.ScreenSize, storageLabel(s.StorageGB))
	case IPadSpec:
		return joinNonEmpty(s.Chip, s.ScreenSize, storageLabel(s.StorageGB))
	case WatchSpec:
		return joinNonEmpty(s.Series, s.CaseMaterial)
	case AccessorySpec:
		return joinNonEmpty(s.AccessoryType, s.WirelessTechnology)
	default:
		return ""
	}
}

func storageLabel(gb int) string {
	if gb <= 0 {
		return ""
	}
	return fmt.Sprintf("%dGB", gb)
}

func joinNonEmpty(parts ...string) string {
	kept := parts[:0]
	for _, part := range parts {
		if part != "" {
			kept = append(kept, part)
		}
	}
	return strings.Join(kept, ", ")
}
