package entity

import "time"

// DownloadStatus records whether a resume download was handed to the dispatcher.
type DownloadStatus string

const (
	DownloadInitiated    DownloadStatus = "initiated"
	DownloadFailed       DownloadStatus = "failed"
	DownloadNotAttempted DownloadStatus = "not_attempted"
)

// ResumeUnavailable is stored in ResumeURL when no download link appeared.
const ResumeUnavailable = "COULD NOT DOWNLOAD"

// Default field values for a freshly visited applicant.
const (
	UnknownName        = "Unknown Name"
	UnknownLocation    = "Unknown Location"
	UnknownAppliedAgo  = "Unknown Time"
	NotEmployed        = "Not currently employed"
	NoExperienceListed = "No experience listed"
	ZeroYears          = "0"
)

// ApplicantRecord is one exported row. It mirrors the `applicants` PostgreSQL table.
type ApplicantRecord struct {
	SerialNumber      int
	Name              string
	Location          string
	AppliedAgo        string
	ResumeURL         string
	YearsOfExperience string
	CurrentRole       string
	CurrentCompany    string
	ExperienceString  string
	DownloadStatus    DownloadStatus
	CollectedAt       time.Time
}

// NewApplicantRecord returns a record populated with the placeholder defaults.
func NewApplicantRecord(serial int) *ApplicantRecord {
	return &ApplicantRecord{
		SerialNumber:      serial,
		Name:              UnknownName,
		Location:          UnknownLocation,
		AppliedAgo:        UnknownAppliedAgo,
		YearsOfExperience: ZeroYears,
		CurrentRole:       NotEmployed,
		CurrentCompany:    NotEmployed,
		ExperienceString:  NoExperienceListed,
		DownloadStatus:    DownloadNotAttempted,
	}
}

// ApplyExperience merges a summary into the record.
func (r *ApplicantRecord) ApplyExperience(s ExperienceSummary) {
	r.YearsOfExperience = s.YearsOfExperience
	r.CurrentRole = s.CurrentRole
	r.CurrentCompany = s.CurrentCompany
	r.ExperienceString = s.ExperienceString
}

// ExportHeaders is the column order of the exported sheet.
var ExportHeaders = []string{
	"Serial No.",
	"Name",
	"Location",
	"Applied Ago",
	"Resume URL",
	"Years of Experience",
	"Current Role",
	"Current Company",
	"Experience History",
}

// Row returns the record's values in ExportHeaders order.
func (r *ApplicantRecord) Row() []string {
	return []string{
		itoa(r.SerialNumber),
		r.Name,
		r.Location,
		r.AppliedAgo,
		r.ResumeURL,
		r.YearsOfExperience,
		r.CurrentRole,
		r.CurrentCompany,
		r.ExperienceString,
	}
}
