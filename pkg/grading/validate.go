package grading

// requiredResultFields is the fixed enumeration order the validator reports
// missing fields in.
var requiredResultFields = []string{
	"analyticsId",
	"assignmentId",
	"gradeReceived",
	"aiGeneratedAnalytics",
	"plagarismAnalytics",
	"gradeReasoning",
	"remarks",
}

// ValidateResult checks that every required top-level field of a decoded
// result document is present and non-empty, failing fast with the first
// missing field. Zero values count as missing, including a numeric grade of
// exactly 0, which matches the upstream acceptance policy.
func ValidateResult(doc map[string]any) error {
	for _, field := range requiredResultFields {
		if !truthy(doc[field]) {
			return &MissingFieldError{Field: field}
		}
	}

	return nil
}

func truthy(value any) bool {
	switch v := value.(type) {
	case nil:
		return false
	case string:
		return v != ""
	case bool:
		return v
	case float64:
		return v != 0
	case int:
		return v != 0
	case int64:
		return v != 0
	default:
		// Maps and lists count as present even when empty.
		return true
	}
}
