package model

import "strings"

// Supported exam types, as named by the question bank API.
const (
	ExamTypeUTME     = "utme"
	ExamTypeWASSCE   = "wassce"
	ExamTypeNECO     = "neco"
	ExamTypePostUTME = "post-utme"
)

// ExamTypes lists all supported exam types for catalog endpoints.
var ExamTypes = []string{ExamTypeUTME, ExamTypeWASSCE, ExamTypeNECO, ExamTypePostUTME}

// Subjects is the fixed catalog of subjects the question bank serves.
// Matching is case-insensitive; subject names are stored lower-cased.
var Subjects = []string{
	"english",
	"mathematics",
	"physics",
	"chemistry",
	"biology",
	"commerce",
	"accounting",
	"economics",
	"government",
	"literature",
	"crk",
	"geography",
	"irk",
	"civiledu",
	"insurance",
	"currentaffairs",
	"history",
}

// IsKnownSubject reports whether name is in the subject catalog.
func IsKnownSubject(name string) bool {
	name = NormalizeSubject(name)
	for _, s := range Subjects {
		if s == name {
			return true
		}
	}
	return false
}

// NormalizeSubject lower-cases and trims a subject name for matching.
func NormalizeSubject(name string) string {
	return strings.ToLower(strings.TrimSpace(name))
}

// IsKnownExamType reports whether t is a supported exam type.
func IsKnownExamType(t string) bool {
	switch t {
	case ExamTypeUTME, ExamTypeWASSCE, ExamTypeNECO, ExamTypePostUTME:
		return true
	}
	return false
}
