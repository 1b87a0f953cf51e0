package store

import "time"

// cookieRecord backs the `cookies` table, keyed by unique name,
// spec.md §4.3. CommonDomains is stored as a comma-joined string;
// SQLite/GORM has no native string-slice column.
type cookieRecord struct {
	ID                uint   `gorm:"primaryKey"`
	Name              string `gorm:"uniqueIndex;not null"`
	Domain            string
	Vendor            string
	Category          string
	Purpose           string
	Sensitivity       string
	ThirdParty        bool
	TypicalExpiration string
	CommonDomains     string
	Notes             string
	Confidence        float64
	Source            string
	CreatedAt         time.Time
	UpdatedAt         time.Time
}

func (cookieRecord) TableName() string { return "cookies" }

// cookiePattern backs `cookie_patterns`: a glob pattern that resolves
// to an existing cookie's descriptor, cascade-deleted with it.
type cookiePattern struct {
	ID       uint   `gorm:"primaryKey"`
	Pattern  string `gorm:"uniqueIndex;not null"`
	CookieID uint   `gorm:"index;not null"`
	Cookie   cookieRecord `gorm:"constraint:OnDelete:CASCADE;"`
}

func (cookiePattern) TableName() string { return "cookie_patterns" }

// aiQueryCache backs `ai_query_cache`, keyed by MD5(name|domain),
// holding the raw LM response for audit per spec.md §4.3.
type aiQueryCache struct {
	Key         string `gorm:"primaryKey"` // md5(name|domain)
	Name        string
	Domain      string
	RawResponse string
	CreatedAt   time.Time
}

func (aiQueryCache) TableName() string { return "ai_query_cache" }

// userCorrection backs `user_corrections`: a field-level audit log
// of manual edits made through the UI editor surface.
type userCorrection struct {
	ID        uint `gorm:"primaryKey"`
	Name      string
	Field     string
	OldValue  string
	NewValue  string
	CreatedAt time.Time
}

func (userCorrection) TableName() string { return "user_corrections" }

// setting backs `settings`: a generic key-value row, used at minimum
// for the schema-version marker spec.md §6 requires.
type setting struct {
	Key   string `gorm:"primaryKey"`
	Value string
}

func (setting) TableName() string { return "settings" }

// schemaVersionKey is the settings row identifying the schema,
// spec.md §6: "A versioned settings row identifies the schema."
const schemaVersionKey = "schema_version"

// currentSchemaVersion bumps whenever the ai_query_cache raw-response
// shape changes (spec.md §9, "LM prompt stability").
const currentSchemaVersion = "1"
