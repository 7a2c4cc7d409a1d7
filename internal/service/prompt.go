package service

import (
	"fmt"
	"strings"

	"github.com/helpassistant/assistant-platform/internal/model"
)

// Greeting is the deterministic opening line of a chat.
func Greeting(a *model.Assistant) string {
	return fmt.Sprintf("Bonjour, je suis %s, votre assistant %s. Ma mission : %s. Comment puis-je vous aider ?",
		a.OperatorName, a.Name, strings.TrimRight(strings.TrimSpace(a.Mission), "."))
}

// SystemPrompt builds the persona instructions sent ahead of the history.
func SystemPrompt(a *model.Assistant) string {
	var b strings.Builder

	fmt.Fprintf(&b, "Tu es %s, l'assistant %s.", a.OperatorName, a.Name)
	fmt.Fprintf(&b, " Ta mission : %s.", strings.TrimRight(strings.TrimSpace(a.Mission), "."))
	if d := strings.TrimSpace(a.Description); d != "" {
		fmt.Fprintf(&b, "\nContexte : %s", d)
	}
	if a.URL != "" {
		fmt.Fprintf(&b, "\nSite de référence : %s", a.URL)
	}

	fmt.Fprintf(&b, "\nTon : %s. Sois %s.", a.Tone.Label("fr"), a.Tone.Directive())

	if len(a.Authorizations) == 0 {
		b.WriteString("\nTu ne peux effectuer aucune action en dehors de cette conversation.")
	} else {
		caps := make([]string, 0, len(a.Authorizations))
		for _, auth := range a.Authorizations {
			caps = append(caps, auth.Describe())
		}
		fmt.Fprintf(&b, "\nTu es autorisé à : %s. N'annonce aucune autre action.", strings.Join(caps, ", "))
	}

	b.WriteString("\nReste toujours dans ton personnage et réponds en français, dans le registre de ce ton.")
	b.WriteString(" Si des documents sont fournis, appuie-toi dessus ; si la réponse n'y figure pas, dis-le simplement.")
	return b.String()
}
