package db

import (
	"encoding/json"
	"time"
)

// Place maps geo.places.
type Place struct {
	PlaceID         int64           `gorm:"column:place_id;primaryKey;autoIncrement"`
	PlaceUUID       string          `gorm:"column:place_uuid;type:uuid;not null;default:gen_random_uuid();unique"`
	Kind            string          `gorm:"column:kind;type:text;not null"`
	CountryCode     *string         `gorm:"column:country_code;type:text"`
	Adm1Code        *string         `gorm:"column:adm1_code;type:text"`
	Adm2Code        *string         `gorm:"column:adm2_code;type:text"`
	Lat             *float64        `gorm:"column:lat;type:double precision"`
	Lng             *float64        `gorm:"column:lng;type:double precision"`
	Population      *int64          `gorm:"column:population;type:bigint"`
	WikidataQID     *string         `gorm:"column:wikidata_qid;type:text"`
	Source          string          `gorm:"column:source;type:text;not null"`
	CanonicalNameID *int64          `gorm:"column:canonical_name_id;type:bigint"`
	Extra           json.RawMessage `gorm:"column:extra;type:jsonb"`
	Status          string          `gorm:"column:status;type:text;not null;default:active"`
	CreatedAt       time.Time       `gorm:"column:created_at;type:timestamptz;not null;default:now()"`
	UpdatedAt       time.Time       `gorm:"column:updated_at;type:timestamptz;not null;default:now()"`
}

func (Place) TableName() string { return "geo.places" }

// PlaceName maps geo.place_names. Uniqueness over
// (place_id, normalized, lang, name_kind) is logical, not a key;
// merges de-duplicate by that tuple.
type PlaceName struct {
	NameID      int64     `gorm:"column:name_id;primaryKey;autoIncrement"`
	PlaceID     int64     `gorm:"column:place_id;type:bigint;not null;index"`
	Name        string    `gorm:"column:name;type:text;not null"`
	Normalized  string    `gorm:"column:normalized;type:text;not null;index"`
	Lang        *string   `gorm:"column:lang;type:text"`
	NameKind    string    `gorm:"column:name_kind;type:text;not null;default:common"`
	IsPreferred bool      `gorm:"column:is_preferred;type:boolean;not null;default:false"`
	IsOfficial  bool      `gorm:"column:is_official;type:boolean;not null;default:false"`
	CreatedAt   time.Time `gorm:"column:created_at;type:timestamptz;not null;default:now()"`
}

func (PlaceName) TableName() string { return "geo.place_names" }

// PlaceHierarchy maps geo.place_hierarchy. The composite key permits
// multiple parents per child for the same relation; a city can be
// capital_of more than one recognized entity.
type PlaceHierarchy struct {
	ParentID  int64           `gorm:"column:parent_id;type:bigint;primaryKey"`
	ChildID   int64           `gorm:"column:child_id;type:bigint;primaryKey"`
	Relation  string          `gorm:"column:relation;type:text;primaryKey"`
	Depth     int             `gorm:"column:depth;type:integer;not null;default:1"`
	Metadata  json.RawMessage `gorm:"column:metadata;type:jsonb"`
	CreatedAt time.Time       `gorm:"column:created_at;type:timestamptz;not null;default:now()"`
}

func (PlaceHierarchy) TableName() string { return "geo.place_hierarchy" }

// PlaceExternalID maps geo.place_external_ids, unique per (source, ext_id).
type PlaceExternalID struct {
	Source    string    `gorm:"column:source;type:text;primaryKey"`
	ExtID     string    `gorm:"column:ext_id;type:text;primaryKey"`
	PlaceID   int64     `gorm:"column:place_id;type:bigint;not null;index"`
	CreatedAt time.Time `gorm:"column:created_at;type:timestamptz;not null;default:now()"`
}

func (PlaceExternalID) TableName() string { return "geo.place_external_ids" }

// PlaceAttributeValue maps geo.place_attribute_values.
type PlaceAttributeValue struct {
	PlaceID   int64     `gorm:"column:place_id;type:bigint;primaryKey"`
	Attribute string    `gorm:"column:attribute;type:text;primaryKey"`
	Value     string    `gorm:"column:value;type:text;not null"`
	UpdatedAt time.Time `gorm:"column:updated_at;type:timestamptz;not null;default:now()"`
}

func (PlaceAttributeValue) TableName() string { return "geo.place_attribute_values" }

// IngestionRun maps geo.ingestion_runs. Rows are append-only and
// update-only; terminal states are final.
type IngestionRun struct {
	RunID         int64      `gorm:"column:run_id;primaryKey;autoIncrement"`
	RunUUID       string     `gorm:"column:run_uuid;type:uuid;not null;default:gen_random_uuid();unique"`
	Source        string     `gorm:"column:source;type:text;not null"`
	SourceVersion string     `gorm:"column:source_version;type:text;not null"`
	StartedAt     time.Time  `gorm:"column:started_at;type:timestamptz;not null;default:now()"`
	CompletedAt   *time.Time `gorm:"column:completed_at;type:timestamptz"`
	Status        string     `gorm:"column:status;type:text;not null;default:running"`
	PlacesCreated int        `gorm:"column:places_created;type:integer;not null;default:0"`
	PlacesUpdated int        `gorm:"column:places_updated;type:integer;not null;default:0"`
	NamesAdded    int        `gorm:"column:names_added;type:integer;not null;default:0"`
	ErrorMessage  *string    `gorm:"column:error_message;type:text"`
}

func (IngestionRun) TableName() string { return "geo.ingestion_runs" }

// PlaceHub maps geo.place_hubs, one row per sighted hub page.
type PlaceHub struct {
	HubID             int64           `gorm:"column:hub_id;primaryKey;autoIncrement"`
	Host              string          `gorm:"column:host;type:text;not null"`
	URL               string          `gorm:"column:url;type:text;not null"`
	PlaceSlug         *string         `gorm:"column:place_slug;type:text"`
	PlaceKind         *string         `gorm:"column:place_kind;type:text"`
	TopicSlug         *string         `gorm:"column:topic_slug;type:text"`
	TopicLabel        *string         `gorm:"column:topic_label;type:text"`
	Title             string          `gorm:"column:title;type:text;not null;default:''"`
	NavLinksCount     int             `gorm:"column:nav_links_count;type:integer;not null;default:0"`
	ArticleLinksCount int             `gorm:"column:article_links_count;type:integer;not null;default:0"`
	Evidence          json.RawMessage `gorm:"column:evidence;type:jsonb"`
	CreatedAt         time.Time       `gorm:"column:created_at;type:timestamptz;not null;default:now()"`
	UpdatedAt         time.Time       `gorm:"column:updated_at;type:timestamptz;not null;default:now()"`
}

func (PlaceHub) TableName() string { return "geo.place_hubs" }

// HubAuditEntry maps geo.hub_audit_log, append-only and best-effort.
type HubAuditEntry struct {
	AuditID           int64     `gorm:"column:audit_id;primaryKey;autoIncrement"`
	Domain            string    `gorm:"column:domain;type:text;not null"`
	URL               string    `gorm:"column:url;type:text;not null"`
	PlaceKind         *string   `gorm:"column:place_kind;type:text"`
	PlaceName         *string   `gorm:"column:place_name;type:text"`
	Decision          string    `gorm:"column:decision;type:text;not null"`
	ValidationMetrics *string   `gorm:"column:validation_metrics;type:jsonb"`
	AttemptID         *string   `gorm:"column:attempt_id;type:text"`
	RunID             *int64    `gorm:"column:run_id;type:bigint"`
	CreatedAt         time.Time `gorm:"column:created_at;type:timestamptz;not null;default:now()"`
}

func (HubAuditEntry) TableName() string { return "geo.hub_audit_log" }

// DomainDetermination maps geo.domain_determinations, one summary row
// per domain per processing pass.
type DomainDetermination struct {
	DeterminationID    int64     `gorm:"column:determination_id;primaryKey;autoIncrement"`
	Domain             string    `gorm:"column:domain;type:text;not null"`
	Completed          bool      `gorm:"column:completed;type:boolean;not null"`
	RateLimitTriggered bool      `gorm:"column:rate_limit_triggered;type:boolean;not null;default:false"`
	HubsInserted       int       `gorm:"column:hubs_inserted;type:integer;not null;default:0"`
	HubsUpdated        int       `gorm:"column:hubs_updated;type:integer;not null;default:0"`
	HubsUnchanged      int       `gorm:"column:hubs_unchanged;type:integer;not null;default:0"`
	CandidatesSkipped  int       `gorm:"column:candidates_skipped;type:integer;not null;default:0"`
	Reason             string    `gorm:"column:reason;type:text;not null"`
	CreatedAt          time.Time `gorm:"column:created_at;type:timestamptz;not null;default:now()"`
}

func (DomainDetermination) TableName() string { return "geo.domain_determinations" }

func autoMigrateModels() []any {
	return []any{
		&Place{},
		&PlaceName{},
		&PlaceHierarchy{},
		&PlaceExternalID{},
		&PlaceAttributeValue{},
		&IngestionRun{},
		&PlaceHub{},
		&HubAuditEntry{},
		&DomainDetermination{},
	}
}
