package dialog

import (
	"strings"

	"salonvox/internal/models"
)

// MenuIntent is the outcome of keyword matching against menu speech.
type MenuIntent int

const (
	IntentNone MenuIntent = iota
	IntentBooking
	IntentPrices
	IntentAddress
	IntentHours
)

// humanLexicon triggers the global human-handoff override. Substring match,
// case-insensitive, checked before any state logic on every turn.
var humanLexicon = []string{
	"humain",
	"conseiller",
	"agent",
	"personne",
	"quelqu'un",
	"transf",
	"parler à",
	"parler a",
}

// WantsHuman reports whether free speech asks for a human. Pure predicate.
func WantsHuman(text string) bool {
	lowered := strings.ToLower(text)
	for _, word := range humanLexicon {
		if strings.Contains(lowered, word) {
			return true
		}
	}
	return false
}

// menuRules is the ordered intent table for the voice menu; the first rule
// whose keyword appears in the input wins.
var menuRules = []struct {
	intent   MenuIntent
	keywords []string
}{
	{IntentPrices, []string{"prix", "tarif", "combien", "coûte", "coute"}},
	{IntentAddress, []string{"adresse", "où êtes", "ou etes", "situé", "situe", "trouve"}},
	{IntentHours, []string{"horaire", "heures d'ouverture", "ouvert", "fermé", "ferme"}},
	{IntentBooking, []string{"rendez-vous", "rendez vous", "rdv", "réserv", "reserv", "coupe"}},
}

// MatchMenuIntent runs the ordered keyword table over menu speech.
func MatchMenuIntent(text string) MenuIntent {
	lowered := strings.ToLower(text)
	for _, rule := range menuRules {
		for _, word := range rule.keywords {
			if strings.Contains(lowered, word) {
				return rule.intent
			}
		}
	}
	return IntentNone
}

// MatchService matches speech against the configured service keywords, in
// configuration order, first match wins. Returns ServiceNone when nothing
// matches; the caller may then fall back to the intent classifier.
func MatchService(text string, services []models.Service) models.ServiceKind {
	lowered := strings.ToLower(text)
	for _, svc := range services {
		for _, word := range svc.Keywords {
			if strings.Contains(lowered, strings.ToLower(word)) {
				return svc.Kind
			}
		}
	}
	return models.ServiceNone
}
