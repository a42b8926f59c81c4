// services/render.go
package services

import (
	"strings"

	"menthub/models"
)

// RenderTemplate substitutes {{key}} tokens in a template's title and body.
// Every occurrence of a provided key is replaced; tokens with no matching
// key stay verbatim. Pure function, no store access.
func RenderTemplate(template *models.NotificationTemplate, placeholders map[string]string, locale string) (string, string) {
	title := template.Title
	body := template.Body

	if locale != "" {
		if override, ok := template.Locales[locale]; ok {
			if override.Title != "" {
				title = override.Title
			}
			if override.Body != "" {
				body = override.Body
			}
		}
	}

	return RenderText(title, placeholders), RenderText(body, placeholders)
}

// RenderText replaces all {{key}} occurrences in a single string.
func RenderText(text string, placeholders map[string]string) string {
	for key, value := range placeholders {
		text = strings.ReplaceAll(text, "{{"+key+"}}", value)
	}
	return text
}
