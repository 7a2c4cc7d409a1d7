package model

import (
	"fmt"
	"strings"
)

// Tone is the style directive applied to generated text.
type Tone string

const (
	ToneProfessional Tone = "PROFESSIONAL"
	ToneFriendly     Tone = "FRIENDLY"
	ToneCasual       Tone = "CASUAL"
	ToneEmpathetic   Tone = "EMPATHETIC"
	ToneTechnical    Tone = "TECHNICAL"
	ToneEducational  Tone = "EDUCATIONAL"
	ToneHumorous     Tone = "HUMOROUS"
)

// DefaultTone is used when an assistant is created without a tone.
const DefaultTone = ToneProfessional

// Tones lists every tone in display order.
var Tones = []Tone{
	ToneProfessional,
	ToneFriendly,
	ToneCasual,
	ToneEmpathetic,
	ToneTechnical,
	ToneEducational,
	ToneHumorous,
}

type toneText struct {
	label       map[string]string
	description map[string]string
	directive   string
}

var toneTexts = map[Tone]toneText{
	ToneProfessional: {
		label:       map[string]string{"fr": "Professionnel", "en": "Professional"},
		description: map[string]string{"fr": "Formel, précis et courtois", "en": "Formal, precise and courteous"},
		directive:   "formel et professionnel, en vouvoyant l'utilisateur",
	},
	ToneFriendly: {
		label:       map[string]string{"fr": "Amical", "en": "Friendly"},
		description: map[string]string{"fr": "Chaleureux et accessible", "en": "Warm and approachable"},
		directive:   "chaleureux et amical, tout en restant respectueux",
	},
	ToneCasual: {
		label:       map[string]string{"fr": "Décontracté", "en": "Casual"},
		description: map[string]string{"fr": "Détendu, comme entre collègues", "en": "Relaxed, like talking to a colleague"},
		directive:   "décontracté et naturel, avec des phrases simples",
	},
	ToneEmpathetic: {
		label:       map[string]string{"fr": "Empathique", "en": "Empathetic"},
		description: map[string]string{"fr": "À l'écoute et bienveillant", "en": "Attentive and caring"},
		directive:   "empathique et bienveillant, en reconnaissant le ressenti de l'utilisateur",
	},
	ToneTechnical: {
		label:       map[string]string{"fr": "Technique", "en": "Technical"},
		description: map[string]string{"fr": "Détaillé et rigoureux", "en": "Detailed and rigorous"},
		directive:   "technique et rigoureux, avec un vocabulaire précis",
	},
	ToneEducational: {
		label:       map[string]string{"fr": "Pédagogique", "en": "Educational"},
		description: map[string]string{"fr": "Explique pas à pas", "en": "Explains step by step"},
		directive:   "pédagogique, en expliquant étape par étape",
	},
	ToneHumorous: {
		label:       map[string]string{"fr": "Humoristique", "en": "Humorous"},
		description: map[string]string{"fr": "Léger, avec une touche d'humour", "en": "Light-hearted, with a touch of humour"},
		directive:   "léger et humoristique, sans jamais manquer de respect",
	},
}

// ParseTone normalizes s and checks it against the closed set of tones.
func ParseTone(s string) (Tone, error) {
	t := Tone(strings.ToUpper(strings.TrimSpace(s)))
	if !t.Valid() {
		return "", fmt.Errorf("unknown tone %q", s)
	}
	return t, nil
}

// Valid reports whether t is one of the known tones.
func (t Tone) Valid() bool {
	_, ok := toneTexts[t]
	return ok
}

// Label returns the localized display name, falling back to French.
func (t Tone) Label(lang string) string {
	return localized(toneTexts[t].label, lang)
}

// Description returns the localized description, falling back to French.
func (t Tone) Description(lang string) string {
	return localized(toneTexts[t].description, lang)
}

// Directive returns the French style instruction used in prompts.
func (t Tone) Directive() string {
	return toneTexts[t].directive
}

func localized(texts map[string]string, lang string) string {
	if s, ok := texts[strings.ToLower(lang)]; ok {
		return s
	}
	return texts["fr"]
}

// ToneOption is one entry of the tone listing.
type ToneOption struct {
	Value       Tone   `json:"value"`
	Label       string `json:"label"`
	Description string `json:"description"`
}

// ToneOptions lists all tones with texts in lang.
func ToneOptions(lang string) []ToneOption {
	opts := make([]ToneOption, 0, len(Tones))
	for _, t := range Tones {
		opts = append(opts, ToneOption{
			Value:       t,
			Label:       t.Label(lang),
			Description: t.Description(lang),
		})
	}
	return opts
}

// Authorization is a capability granted to an assistant.
type Authorization string

const (
	AuthorizationSendEmail     Authorization = "CAN_SEND_EMAIL"
	AuthorizationReadDocuments Authorization = "CAN_READ_DOCUMENTS"
)

var authorizationLabels = map[Authorization]string{
	AuthorizationSendEmail:     "envoyer des e-mails",
	AuthorizationReadDocuments: "consulter les documents fournis",
}

// ParseAuthorization normalizes s and checks it against the known capabilities.
func ParseAuthorization(s string) (Authorization, error) {
	a := Authorization(strings.ToUpper(strings.TrimSpace(s)))
	if _, ok := authorizationLabels[a]; !ok {
		return "", fmt.Errorf("unknown authorization %q", s)
	}
	return a, nil
}

// Describe returns the French phrase used in prompts.
func (a Authorization) Describe() string {
	return authorizationLabels[a]
}
