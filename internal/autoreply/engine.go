package autoreply

import (
	"strings"

	"dmcheckout/internal/entities"
)

// Product is the slice of catalog data a reply can mention.
type Product struct {
	Title      string
	PriceCents int64
}

// FlowContext is everything one decision needs. History must be the full
// ordered thread; whether it already includes the latest inbound message
// does not matter, only outbound stages are read from it.
type FlowContext struct {
	History           []entities.Message
	LatestUserMessage string
	Keyword           string
	Scripts           map[entities.Stage]string
	Product           Product
}

// Reply is an automated message the thread is due.
type Reply struct {
	Stage entities.Stage
	Text  string
}

type rule struct {
	stage    entities.Stage
	requires entities.Stage // stage that must already have fired, if any
	matches  func(fc FlowContext, text string) bool
}

// rules are evaluated in order and the first match wins. Pitch comes first so
// a keyword message is never swallowed by an objection phrase; objection comes
// next so hesitation is answered before any forward move.
var rules = []rule{
	{stage: entities.StagePitch, matches: func(fc FlowContext, text string) bool {
		kw := strings.ToLower(strings.TrimSpace(fc.Keyword))
		return kw != "" && strings.Contains(text, kw)
	}},
	{stage: entities.StageObjection, matches: func(_ FlowContext, text string) bool {
		return containsAny(text, ObjectionKeywords)
	}},
	{stage: entities.StageQualify, requires: entities.StagePitch, matches: func(_ FlowContext, text string) bool {
		return containsAny(text, AffirmativeKeywords)
	}},
	{stage: entities.StageCheckout, requires: entities.StageQualify, matches: func(_ FlowContext, text string) bool {
		return containsAny(text, CheckoutKeywords) || containsAny(text, AffirmativeKeywords)
	}},
	{stage: entities.StageDelivery, requires: entities.StageCheckout, matches: func(_ FlowContext, text string) bool {
		return containsAny(text, PurchaseKeywords)
	}},
}

// NextAutoReply returns the reply the thread is due, or ok == false when no
// rule applies. A stage whose script is missing never fires.
func NextAutoReply(fc FlowContext) (reply Reply, ok bool) {
	text := strings.ToLower(strings.TrimSpace(fc.LatestUserMessage))
	if text == "" {
		return Reply{}, false
	}

	fired := FiredStages(fc.History)
	for _, r := range rules {
		if fired[r.stage] {
			continue
		}
		if r.requires != "" && !fired[r.requires] {
			continue
		}
		body, hasScript := fc.Scripts[r.stage]
		if !hasScript || !r.matches(fc, text) {
			continue
		}
		return Reply{Stage: r.stage, Text: RenderTemplate(body, Variables(fc))}, true
	}
	return Reply{}, false
}

// FiredStages reports which stages already have an outbound message in history.
func FiredStages(history []entities.Message) map[entities.Stage]bool {
	fired := make(map[entities.Stage]bool, len(rules))
	for _, m := range history {
		if m.Role == entities.RoleOutbound && m.Stage != "" {
			fired[m.Stage] = true
		}
	}
	return fired
}

// Variables is the substitution set shared by every stage.
func Variables(fc FlowContext) map[string]string {
	return map[string]string{
		"product": fc.Product.Title,
		"price":   FormatPrice(fc.Product.PriceCents),
		"keyword": fc.Keyword,
	}
}
