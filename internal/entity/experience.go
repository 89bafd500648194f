package entity

// ExperiencePosition is one entry of a candidate's listed work history.
type ExperiencePosition struct {
	Role      string
	Company   string
	Duration  string // "<start> – <end-or-Present>"
	IsPresent bool
}

// ExperienceSummary is the aggregate derived from a candidate's positions.
type ExperienceSummary struct {
	YearsOfExperience string `json:"years_of_experience"`
	CurrentRole       string `json:"current_role"`
	CurrentCompany    string `json:"current_company"`
	ExperienceString  string `json:"experience_string"`
}
