package catalog

import "time"

// Origin records who created a persisted record
type Origin string

const (
	// OriginAuto marks records created by discovery
	OriginAuto Origin = "auto"
	// OriginManual marks curated records maintained out of band
	OriginManual Origin = "manual"
)

// DefaultCategory is used for marketplaces whose plugins declare no category
const DefaultCategory = "community"

// DiscoveryHit is a file location returned by code search
type DiscoveryHit struct {
	SourceRepo string
	FilePath   string
	ViewURL    string
}

// CandidateContent is the raw text of a hit that passed the quality gate
type CandidateContent struct {
	SourceRepo string
	FilePath   string
	RawText    string
}

// PopularityMap maps a source repository to its popularity. A nil value means
// the lookup failed: it sorts as zero but must never overwrite stored data.
type PopularityMap map[string]*int

// Get returns the popularity of repo, or nil when unknown
func (p PopularityMap) Get(repo string) *int {
	if p == nil {
		return nil
	}
	return p[repo]
}

// ValueOrZero returns the popularity of repo, treating unknown as zero
func (p PopularityMap) ValueOrZero(repo string) int {
	if v := p.Get(repo); v != nil {
		return *v
	}
	return 0
}

// Marketplace is a repository publishing a plugin marketplace manifest
type Marketplace struct {
	SourceRepo       string     `json:"repo"`
	Slug             string     `json:"slug"`
	HumanDescription string     `json:"description"`
	ItemCount        int        `json:"pluginCount"`
	Categories       []string   `json:"categories"`
	PluginKeywords   []string   `json:"pluginKeywords,omitempty"`
	DiscoveredAt     *time.Time `json:"discoveredAt,omitempty"`
	LastUpdated      *time.Time `json:"lastUpdated,omitempty"`
	Origin           Origin     `json:"source,omitempty"`
	Popularity       *int       `json:"stars,omitempty"`
	PopularityAt     *time.Time `json:"starsFetchedAt,omitempty"`
}

// Key implements Record
func (m Marketplace) Key() string { return m.SourceRepo }

// PopularityValue implements Record
func (m Marketplace) PopularityValue() *int { return m.Popularity }

// Skill is a single SKILL.md entry
type Skill struct {
	ID             string     `json:"id"`
	Name           string     `json:"name"`
	Description    string     `json:"description"`
	SourceRepo     string     `json:"repo"`
	RepoSlug       string     `json:"repoSlug"`
	RelativePath   string     `json:"path"`
	License        string     `json:"license,omitempty"`
	Popularity     *int       `json:"stars,omitempty"`
	InstallCommand string     `json:"installCommand"`
	DiscoveredAt   *time.Time `json:"discoveredAt,omitempty"`
	LastUpdated    *time.Time `json:"lastUpdated,omitempty"`
}

// Key implements Record
func (s Skill) Key() string { return s.ID }

// PopularityValue implements Record
func (s Skill) PopularityValue() *int { return s.Popularity }

// SkillRepo summarizes the skills published by one repository
type SkillRepo struct {
	SourceRepo            string     `json:"repo"`
	Slug                  string     `json:"slug"`
	AggregatedDescription string     `json:"description"`
	ItemCount             int        `json:"skillCount"`
	Popularity            *int       `json:"stars,omitempty"`
	PopularityAt          *time.Time `json:"starsFetchedAt,omitempty"`
	DiscoveredAt          *time.Time `json:"discoveredAt,omitempty"`
	LastUpdated           *time.Time `json:"lastUpdated,omitempty"`
	Origin                Origin     `json:"source,omitempty"`
}

// Key implements Record
func (r SkillRepo) Key() string { return r.SourceRepo }

// PopularityValue implements Record
func (r SkillRepo) PopularityValue() *int { return r.Popularity }

// Record is implemented by every persisted record type
type Record interface {
	// Key uniquely identifies the record within its set and is stable across runs
	Key() string
	// PopularityValue returns the popularity, nil when unknown
	PopularityValue() *int
}
