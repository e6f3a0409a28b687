package messaging

// Subject names follow the pattern: {prefix}.{resource}.{action}
const (
	DefaultSubjectPrefix = "breachsim"

	ResourceRuns  = "runs"
	ResourceRules = "rules"

	ActionCompleted = "completed"
	ActionMatched   = "matched"
	ActionApplied   = "applied"
)

// Subject builds a subject name under prefix, e.g. breachsim.runs.completed.
// An empty prefix falls back to DefaultSubjectPrefix.
func Subject(prefix, resource, action string) string {
	if prefix == "" {
		prefix = DefaultSubjectPrefix
	}
	return prefix + "." + resource + "." + action
}
