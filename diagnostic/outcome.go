package diagnostic

// OperationOutcome is the FHIR resource used to report issues back to a caller.
type OperationOutcome struct {
	ResourceType string         `json:"resourceType"`
	Issue        []OutcomeIssue `json:"issue"`
}

// OutcomeIssue is one OperationOutcome.issue entry.
type OutcomeIssue struct {
	Severity    string   `json:"severity"`
	Code        string   `json:"code"`
	Diagnostics string   `json:"diagnostics,omitempty"`
	Expression  []string `json:"expression,omitempty"`
}

// issueTypes maps diagnostic codes onto the FHIR issue-type value set.
var issueTypes = map[string]string{
	CodeMissingRequiredField:   "required",
	CodeTooManyValues:          "structure",
	CodeInvalidCode:            "code-invalid",
	CodeAmbiguousChoiceValue:   "invariant",
	CodeTypeMismatch:           "value",
	CodeWrongResourceType:      "structure",
	CodeUnknownElement:         "informational",
	CodeTerminologyUnavailable: "not-supported",
	CodeDecodeError:            "structure",
	CodeInvalidDefinition:      "invalid",
	CodeDuplicateDefinition:    "duplicate",
	CodeUnknownType:            "not-found",
}

func outcomeSeverity(s Severity) string {
	switch s {
	case SeverityError:
		return "error"
	case SeverityWarning:
		return "warning"
	default:
		return "information"
	}
}

// OperationOutcome renders the diagnostics as a FHIR OperationOutcome. An
// empty set yields a single informational "all ok" issue, as FHIR requires at
// least one issue.
func (d *Diagnostics) OperationOutcome() OperationOutcome {
	out := OperationOutcome{ResourceType: "OperationOutcome"}

	for _, diag := range d.All() {
		code, ok := issueTypes[diag.Code]
		if !ok {
			code = "processing"
		}

		issue := OutcomeIssue{
			Severity:    outcomeSeverity(diag.Severity),
			Code:        code,
			Diagnostics: diag.String(),
		}

		if diag.FieldPath != "" {
			issue.Expression = []string{diag.FieldPath}
		}

		out.Issue = append(out.Issue, issue)
	}

	if len(out.Issue) == 0 {
		out.Issue = []OutcomeIssue{{Severity: "information", Code: "informational", Diagnostics: "All OK"}}
	}

	return out
}
