package safety

import (
	"regexp"
	"strings"
)

// Word boundaries are spelled out because regexp's \b only understands ASCII
// and the vocabulary includes Cyrillic.
const (
	leftEdge  = `(?:^|[^\p{L}\p{N}_])`
	rightEdge = `(?:$|[^\p{L}\p{N}_])`
)

// treatmentTerms are matched as whole words. A trailing \p{L}* turns a term
// into a stem.
var treatmentTerms = []string{
	// English
	`treat\p{L}*`,
	`therap\p{L}*`,
	`prescri\p{L}*`,
	`dose`, `doses`, `dosage\p{L}*`, `dosing`,
	`medicate`, `medicated`,
	`antibiotic\p{L}*`,
	`tablet\p{L}*`, `pill`, `pills`, `capsule\p{L}*`,
	`inject\p{L}*`, `infusion\p{L}*`,
	`administer\p{L}*`,
	`milligram\p{L}*`,
	`ibuprofen`, `paracetamol`, `acetaminophen`, `amoxicillin`, `aspirin`,
	`twice daily`, `once daily`,

	// Russian
	`леч\p{L}*`,
	`терапи\p{L}*`,
	`назнач\p{L}*`,
	`рецепт\p{L}*`,
	`доз[аеуыо]\p{L}*`, `дозиров\p{L}*`,
	`таблет\p{L}*`,
	`препарат\p{L}*`,
	`антибиотик\p{L}*`,
	`инъекц\p{L}*`,
	`укол\p{L}*`,
	`принима\p{L}*`,
	`ибупрофен\p{L}*`, `парацетамол\p{L}*`,
}

// Units may follow a number directly ("5mg"), so only letters count as a
// left boundary.
var unitTerms = []string{`mg`, `mcg`, `ml`, `мг`, `мкг`, `мл`}

var (
	treatmentRe = regexp.MustCompile(`(?i)` + leftEdge + `(?:` + strings.Join(treatmentTerms, `|`) + `)` + rightEdge)
	unitRe      = regexp.MustCompile(`(?i)(?:^|[^\p{L}_])(?:` + strings.Join(unitTerms, `|`) + `)` + rightEdge)
	planRe      = regexp.MustCompile(`(?i)` + leftEdge + `plan` + rightEdge)
)

// MentionsTreatment reports whether s contains any treatment, dosage or
// prescription term.
func MentionsTreatment(s string) bool {
	return treatmentRe.MatchString(s) || unitRe.MatchString(s)
}

// HasPlan reports whether s contains a standalone "PLAN" word in any case.
func HasPlan(s string) bool {
	return planRe.MatchString(s)
}
