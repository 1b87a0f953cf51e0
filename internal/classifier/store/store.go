// Package store is the classifier's embedded relational data store,
// spec.md §4.3: five logical tables behind a small operation set,
// backed by GORM and a pure-Go SQLite driver so the module needs no
// cgo toolchain, the same pairing the teacher's storage package used
// (internal/logger.GormBridge adapts our logger.Logger to GORM here
// exactly as it did for the teacher's storage layer).
package store

import (
	"crypto/md5"
	"encoding/hex"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/glebarez/sqlite"
	"github.com/gobwas/glob"
	"gorm.io/gorm"

	"github.com/cookiesolver/cookiesolver/internal/logger"
	"github.com/cookiesolver/cookiesolver/pkg/descriptor"
)

// Store wraps the embedded database. Readers are safe concurrently;
// writers serialize on the single underlying connection, per
// spec.md §4.3's "Concurrent readers must be safe; writers serialize."
type Store struct {
	db  *gorm.DB
	log logger.Logger
}

// Open creates (or reuses) the database file at path, migrating the
// schema and writing the version marker if absent.
func Open(path string, log logger.Logger) (*Store, error) {
	if log == nil {
		log = logger.NewNop()
	}
	if dir := filepath.Dir(path); dir != "" && dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, fmt.Errorf("create store directory %q: %w", dir, err)
		}
	}

	db, err := gorm.Open(sqlite.Open(path), &gorm.Config{
		Logger: logger.NewGormBridge(log),
	})
	if err != nil {
		return nil, fmt.Errorf("open store %q: %w", path, err)
	}
	sqlDB, err := db.DB()
	if err != nil {
		return nil, fmt.Errorf("open store %q: %w", path, err)
	}
	sqlDB.SetMaxOpenConns(1)

	s := &Store{db: db, log: log}
	if err := s.migrate(); err != nil {
		return nil, err
	}
	return s, nil
}

func (s *Store) migrate() error {
	if err := s.db.AutoMigrate(&cookieRecord{}, &cookiePattern{}, &aiQueryCache{}, &userCorrection{}, &setting{}); err != nil {
		return fmt.Errorf("migrate store schema: %w", err)
	}
	var current setting
	err := s.db.First(&current, "key = ?", schemaVersionKey).Error
	if err == gorm.ErrRecordNotFound {
		return s.db.Create(&setting{Key: schemaVersionKey, Value: currentSchemaVersion}).Error
	}
	return err
}

// Close releases the underlying connection.
func (s *Store) Close() error {
	sqlDB, err := s.db.DB()
	if err != nil {
		return err
	}
	return sqlDB.Close()
}

func toDescriptor(r cookieRecord) descriptor.Descriptor {
	return descriptor.Descriptor{
		Name:              r.Name,
		Domain:            r.Domain,
		Vendor:            r.Vendor,
		Category:          descriptor.Category(r.Category),
		Purpose:           r.Purpose,
		Sensitivity:       descriptor.Sensitivity(r.Sensitivity),
		ThirdParty:        r.ThirdParty,
		TypicalExpiration: r.TypicalExpiration,
		CommonDomains:     splitCommonDomains(r.CommonDomains),
		Notes:             r.Notes,
		Confidence:        r.Confidence,
		Source:            descriptor.Source(r.Source),
		CreatedAt:         r.CreatedAt,
		UpdatedAt:         r.UpdatedAt,
	}
}

func fromDescriptor(d descriptor.Descriptor) cookieRecord {
	return cookieRecord{
		Name:              d.Name,
		Domain:            d.Domain,
		Vendor:            d.Vendor,
		Category:          string(d.Category),
		Purpose:           d.Purpose,
		Sensitivity:       string(d.Sensitivity),
		ThirdParty:        d.ThirdParty,
		TypicalExpiration: d.TypicalExpiration,
		CommonDomains:     strings.Join(d.CommonDomains, ","),
		Notes:             d.Notes,
		Confidence:        d.Confidence,
		Source:            string(d.Source),
		CreatedAt:         d.CreatedAt,
	}
}

// splitCommonDomains reverses the comma-join fromDescriptor applies,
// skipping empty entries so a never-set column round-trips to nil.
func splitCommonDomains(s string) []string {
	if s == "" {
		return nil
	}
	parts := strings.Split(s, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		if p != "" {
			out = append(out, p)
		}
	}
	return out
}

// UpsertDescriptor inserts the row for d.Name, or updates the existing
// one field by field: every non-zero field of d overwrites the stored
// value, while zero-valued fields (empty strings, false, 0) leave the
// stored value as it is.
func (s *Store) UpsertDescriptor(d descriptor.Descriptor) error {
	rec := fromDescriptor(d)
	return s.db.Where(cookieRecord{Name: d.Name}).
		Assign(rec).
		FirstOrCreate(&cookieRecord{}).Error
}

// LookupByExactName returns the descriptor for name, if present.
func (s *Store) LookupByExactName(name string) (descriptor.Descriptor, bool, error) {
	var rec cookieRecord
	err := s.db.First(&rec, "name = ?", name).Error
	if err == gorm.ErrRecordNotFound {
		return descriptor.Descriptor{}, false, nil
	}
	if err != nil {
		return descriptor.Descriptor{}, false, err
	}
	return toDescriptor(rec), true, nil
}

// LookupByPattern resolves name against every registered glob,
// first-match-wins in insertion (primary-key) order, per spec.md §4.3
// and the Open Question decision recorded in SPEC_FULL.md.
func (s *Store) LookupByPattern(name string) (descriptor.Descriptor, bool, error) {
	var patterns []cookiePattern
	if err := s.db.Order("id asc").Find(&patterns).Error; err != nil {
		return descriptor.Descriptor{}, false, err
	}
	for _, p := range patterns {
		g, err := glob.Compile(p.Pattern)
		if err != nil {
			s.log.Warn("skipping invalid cookie pattern", "pattern", p.Pattern, "error", err.Error())
			continue
		}
		if !g.Match(name) {
			continue
		}
		var rec cookieRecord
		if err := s.db.First(&rec, p.CookieID).Error; err != nil {
			return descriptor.Descriptor{}, false, err
		}
		return toDescriptor(rec), true, nil
	}
	return descriptor.Descriptor{}, false, nil
}

// Resolve implements the lookup order of spec.md §4.3: exact name,
// then pattern.
func (s *Store) Resolve(name string) (descriptor.Descriptor, bool, error) {
	if d, ok, err := s.LookupByExactName(name); ok || err != nil {
		return d, ok, err
	}
	return s.LookupByPattern(name)
}

// AddPattern registers glob -> cookieName, cascade-deleted with the
// cookie row it targets.
func (s *Store) AddPattern(globPattern, cookieName string) error {
	var rec cookieRecord
	if err := s.db.First(&rec, "name = ?", cookieName).Error; err != nil {
		return fmt.Errorf("add pattern %q: target cookie %q not found: %w", globPattern, cookieName, err)
	}
	return s.db.Where(cookiePattern{Pattern: globPattern}).
		Assign(cookiePattern{CookieID: rec.ID}).
		FirstOrCreate(&cookiePattern{}).Error
}

// ListAll returns every descriptor, ordered by name for stable UI
// listing.
func (s *Store) ListAll() ([]descriptor.Descriptor, error) {
	var recs []cookieRecord
	if err := s.db.Order("name asc").Find(&recs).Error; err != nil {
		return nil, err
	}
	out := make([]descriptor.Descriptor, 0, len(recs))
	for _, r := range recs {
		out = append(out, toDescriptor(r))
	}
	return out, nil
}

// UpdateFields applies a partial field update and records a
// user_corrections audit entry per field changed, spec.md §4.3 and
// its supplemented audit-log feature.
func (s *Store) UpdateFields(name string, fields map[string]any) error {
	var rec cookieRecord
	if err := s.db.First(&rec, "name = ?", name).Error; err != nil {
		return err
	}
	return s.db.Transaction(func(tx *gorm.DB) error {
		for field, newValue := range fields {
			oldValue := fmt.Sprintf("%v", fieldValue(rec, field))
			if err := tx.Create(&userCorrection{
				Name:     name,
				Field:    field,
				OldValue: oldValue,
				NewValue: fmt.Sprintf("%v", newValue),
			}).Error; err != nil {
				return err
			}
		}
		return tx.Model(&cookieRecord{}).Where("name = ?", name).Updates(fields).Error
	})
}

func fieldValue(rec cookieRecord, field string) any {
	switch field {
	case "domain":
		return rec.Domain
	case "vendor":
		return rec.Vendor
	case "category":
		return rec.Category
	case "purpose":
		return rec.Purpose
	case "sensitivity":
		return rec.Sensitivity
	case "third_party":
		return rec.ThirdParty
	case "typical_expiration":
		return rec.TypicalExpiration
	case "common_domains":
		return rec.CommonDomains
	case "notes":
		return rec.Notes
	case "confidence":
		return rec.Confidence
	case "source":
		return rec.Source
	default:
		return ""
	}
}

// DeleteByName removes a cookie row (its patterns cascade).
func (s *Store) DeleteByName(name string) error {
	return s.db.Where("name = ?", name).Delete(&cookieRecord{}).Error
}

// Statistics returns count-and-group breakdowns for the UI's overview
// panel: total cookies, counts by category, counts by sensitivity.
func (s *Store) Statistics() (map[string]any, error) {
	var total int64
	if err := s.db.Model(&cookieRecord{}).Count(&total).Error; err != nil {
		return nil, err
	}

	byCategory, err := s.groupCount("category")
	if err != nil {
		return nil, err
	}
	bySensitivity, err := s.groupCount("sensitivity")
	if err != nil {
		return nil, err
	}

	return map[string]any{
		"total_cookies":  total,
		"by_category":    byCategory,
		"by_sensitivity": bySensitivity,
	}, nil
}

func (s *Store) groupCount(column string) (map[string]int64, error) {
	type row struct {
		Value string
		Count int64
	}
	var rows []row
	if err := s.db.Model(&cookieRecord{}).
		Select(column+" as value, count(*) as count").
		Group(column).Scan(&rows).Error; err != nil {
		return nil, err
	}
	sort.Slice(rows, func(i, j int) bool { return rows[i].Value < rows[j].Value })
	out := make(map[string]int64, len(rows))
	for _, r := range rows {
		out[r.Value] = r.Count
	}
	return out, nil
}

// CacheKey computes the MD5(name|domain) key ai_query_cache is keyed
// by, spec.md §4.3.
func CacheKey(name, domain string) string {
	sum := md5.Sum([]byte(name + "|" + domain))
	return hex.EncodeToString(sum[:])
}

// CacheAIResponse persists the raw LM response text for audit.
func (s *Store) CacheAIResponse(name, domain, raw string) error {
	key := CacheKey(name, domain)
	return s.db.Where(aiQueryCache{Key: key}).
		Assign(aiQueryCache{Name: name, Domain: domain, RawResponse: raw}).
		FirstOrCreate(&aiQueryCache{}).Error
}
