// Package descriptor defines the classifier's knowledge about a
// cookie *name* (as opposed to pkg/cookie, which models one instance
// on one request). A Descriptor is what the Store persists and what
// the LM Client produces, spec.md §3's `Descriptor D`.
package descriptor

import "time"

// Category is spec.md §3's closed category enum for `D`.
type Category string

const (
	CategoryEssential       Category = "Essential"
	CategoryAnalytics       Category = "Analytics"
	CategoryAdvertising     Category = "Advertising"
	CategoryFunctional      Category = "Functional"
	CategoryPerformance     Category = "Performance"
	CategorySocialMedia     Category = "SocialMedia"
	CategorySecurity        Category = "Security"
	CategoryPersonalization Category = "Personalization"
	CategoryUnknown         Category = "Unknown"
)

// Sensitivity is a coarse privacy rating attached to a cookie.
type Sensitivity string

const (
	SensitivityLow      Sensitivity = "Low"
	SensitivityMedium   Sensitivity = "Medium"
	SensitivityHigh     Sensitivity = "High"
	SensitivityCritical Sensitivity = "Critical"
)

// Source records how a Descriptor was produced, for audit and for
// deciding whether a cache hit is trustworthy.
type Source string

const (
	SourceAI       Source = "ai"
	SourceManual   Source = "manual"
	SourceImported Source = "imported"
	SourcePattern  Source = "pattern"
)

// Descriptor is the `D` of spec.md §3 and §6: what the classifier
// knows (or guesses) a cookie is for.
type Descriptor struct {
	Name              string
	Vendor            string // e.g. "Google", "" when unknown
	Category          Category
	Purpose           string // short human-readable description
	Sensitivity       Sensitivity
	ThirdParty        bool
	TypicalExpiration string // e.g. "2 years", "session" — free text, not parsed
	CommonDomains     []string
	Notes             string
	Confidence        float64 // 0.0-1.0, default 0.7 when the LM omits it
	Source            Source
	Domain            string // the domain this particular observation came from
	CreatedAt         time.Time
	UpdatedAt         time.Time
}

// DefaultConfidence is substituted when an LM response omits the
// confidence field, spec.md §4.3.
const DefaultConfidence = 0.7
