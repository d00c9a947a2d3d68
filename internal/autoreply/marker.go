package autoreply

import (
	"regexp"

	"dmcheckout/internal/entities"
)

// markerPattern matches one trailing stage marker. The name group is loose on
// purpose so unknown names can be rejected without a second pattern.
var markerPattern = regexp.MustCompile(`\n\[\[stage:([A-Za-z]+)\]\]$`)

// AttachStageMarker appends the stage marker to text. Any marker already on
// the text is replaced, so stored messages carry at most one.
func AttachStageMarker(text string, stage entities.Stage) string {
	clean, _, _ := ParseStageMarker(text)
	return clean + "\n[[stage:" + string(stage) + "]]"
}

// ParseStageMarker strips trailing stage markers from text and returns the
// clean text together with the outermost decoded stage. Text without a
// well-formed marker is returned unchanged with ok == false.
func ParseStageMarker(text string) (clean string, stage entities.Stage, ok bool) {
	clean = text
	for {
		m := markerPattern.FindStringSubmatchIndex(clean)
		if m == nil {
			return clean, stage, ok
		}
		st, known := entities.ParseStage(clean[m[2]:m[3]])
		if !known {
			return clean, stage, ok
		}
		if !ok {
			stage, ok = st, true
		}
		clean = clean[:m[0]]
	}
}
