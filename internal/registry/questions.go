package registry

// WelcomeMessage opens a fresh interview.
func WelcomeMessage() string {
	return "Hi, I'm Sage — your retirement planning assistant. " +
		"I'll walk you through a few questions to build a personalized plan. " +
		"Let's get started!"
}

// ResumeMessage opens a resumed interview that still has open questions.
func ResumeMessage(nextQuestion string) string {
	return "Welcome back! Let's continue where we left off.\n\n" + nextQuestion
}

// CompletionMessage closes the interview once every field is collected.
func CompletionMessage() string {
	return "Great — I have all the information I need to build your " +
		"retirement plan! I'm ready to run simulations and generate your " +
		"personalized projections. When you're ready, click **Run Analysis** " +
		"below to see your results."
}

// ResumedCompleteMessage opens a resumed interview that is already done.
func ResumedCompleteMessage() string {
	return "This plan is complete. Would you like to make any changes to your answers?"
}

// QuestionFor returns the question template for a field path.
func QuestionFor(path string) string {
	if spec, ok := specs[path]; ok && spec.Question != "" {
		return spec.Question
	}
	return "Could you share " + FriendlyName(path) + "?"
}

// ackPhrases maps an applied field to a short conversational acknowledgment.
var ackPhrases = map[string]string{
	"client.birth_year":                      "Great, thanks for sharing your birth year.",
	"location.state":                         "Perfect, thanks for sharing your location.",
	"location.city":                          "Perfect, thanks for sharing your location.",
	"income.current_gross_annual":            "Thanks, I have your income.",
	"accounts.retirement_balance":            "Great, I have your retirement balance.",
	"accounts.has_employer_plan":             "Thanks for letting me know about your employer plan.",
	"accounts.employer_match_percent":        "Great, I have your employer match information.",
	"accounts.employee_contribution_percent": "Perfect, I have your contribution rate.",
	"accounts.savings_rate_percent":          "Great, I have your savings rate.",
	"spending.retirement_monthly_real":       "Thanks, I have your retirement spending target.",
	"social_security.combined_at_67_monthly": "Great, I have your Social Security estimate.",
	"social_security.combined_at_70_monthly": "Great, I have your Social Security estimate.",
}

// Acknowledgment returns a conversational ack for the applied paths. A
// freshly collected name gets a personal greeting.
func Acknowledgment(appliedPaths []string, name string, nameIsNew bool) string {
	if len(appliedPaths) == 0 {
		return "Thanks for that."
	}
	for _, p := range appliedPaths {
		if p == "client.name" && nameIsNew {
			if name != "" {
				return "Hi " + name + ", nice to meet you."
			}
			return "Nice to meet you."
		}
	}
	for _, p := range appliedPaths {
		if phrase, ok := ackPhrases[p]; ok {
			return phrase
		}
	}
	return "Thanks — got it."
}
