package providers

import "strings"

// ProviderRef is one entry of a provider list such as "openai:gpt-4o-mini".
// The part after the colon, when present, overrides the provider's model.
type ProviderRef struct {
	Raw   string
	Name  string
	Model string
}

func ParseProviderList(raw string) []ProviderRef {
	parts := strings.Split(raw, "|")
	out := make([]ProviderRef, 0, len(parts))
	for _, p := range parts {
		p = strings.TrimSpace(p)
		if p == "" {
			continue
		}
		ref := ProviderRef{Raw: p, Name: p}
		if name, model, ok := strings.Cut(p, ":"); ok {
			ref.Name = strings.TrimSpace(name)
			ref.Model = strings.TrimSpace(model)
		}
		ref.Name = strings.ToLower(ref.Name)
		out = append(out, ref)
	}
	return out
}
