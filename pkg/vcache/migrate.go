package vcache

import (
	"encoding/json"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/orvandel/mentat/pkg/metrics"
)

// SchemaVersion is the current on-disk record schema. Legacy payloads
// without a version are treated as version 1 and migrated.
const SchemaVersion = 2

// accentFold maps the accented runes that actually occur in cached claims
// to their base letters. Enough for fingerprint stability across accent
// variants without pulling in a full Unicode normalization dependency.
var accentFold = map[rune]rune{
	'à': 'a', 'á': 'a', 'â': 'a', 'ä': 'a', 'ã': 'a',
	'ç': 'c',
	'è': 'e', 'é': 'e', 'ê': 'e', 'ë': 'e',
	'ì': 'i', 'í': 'i', 'î': 'i', 'ï': 'i',
	'ñ': 'n',
	'ò': 'o', 'ó': 'o', 'ô': 'o', 'ö': 'o', 'õ': 'o',
	'ù': 'u', 'ú': 'u', 'û': 'u', 'ü': 'u',
	'ý': 'y', 'ÿ': 'y',
}

// Fingerprint normalizes claim text for exact-match deduplication:
// lowercase, whitespace collapsed to single spaces, accents folded.
func Fingerprint(text string) string {
	lower := strings.ToLower(text)
	folded := strings.Map(func(r rune) rune {
		if base, ok := accentFold[r]; ok {
			return base
		}
		return r
	}, lower)
	return strings.Join(strings.Fields(folded), " ")
}

// deniedKeys are stripped from records and their nested metadata on both
// load and save. Embedding vectors and third-party provider traces must
// never round-trip through the cache.
var deniedKeys = map[string]bool{
	"embedding":      true,
	"embeddings":     true,
	"vector":         true,
	"vectors":        true,
	"providertrace":  true,
	"provider_trace": true,
	"rawresponse":    true,
	"raw_response":   true,
	"apiresponse":    true,
	"api_response":   true,
}

func denied(key string) bool {
	return deniedKeys[strings.ToLower(key)]
}

// sanitizeMap strips denylisted keys recursively, descending into nested
// maps and slices of maps. Returns the same map, mutated.
func sanitizeMap(m map[string]any) map[string]any {
	for key, value := range m {
		if denied(key) {
			delete(m, key)
			continue
		}
		switch v := value.(type) {
		case map[string]any:
			m[key] = sanitizeMap(v)
		case []any:
			for i, item := range v {
				if nested, ok := item.(map[string]any); ok {
					v[i] = sanitizeMap(nested)
				}
			}
		}
	}
	return m
}

// persistedCollection is the on-disk shape of the record store.
type persistedCollection struct {
	SchemaVersion int              `json:"schemaVersion"`
	Records       []map[string]any `json:"records"`
}

// ExportRecords serializes every record (expired ones included, so a
// freshly loaded store does not silently lose history before its first
// sweep) with the denylist re-applied. The output always round-trips
// through the same sanitization as legacy payloads.
func (c *Cache) ExportRecords() ([]byte, error) {
	c.mu.RLock()
	records := make([]*Record, 0, len(c.records))
	for _, rec := range c.records {
		records = append(records, rec.clone())
	}
	c.mu.RUnlock()

	out := persistedCollection{
		SchemaVersion: SchemaVersion,
		Records:       make([]map[string]any, 0, len(records)),
	}
	for _, rec := range records {
		raw, err := json.Marshal(rec)
		if err != nil {
			return nil, err
		}
		var m map[string]any
		if err := json.Unmarshal(raw, &m); err != nil {
			return nil, err
		}
		out.Records = append(out.Records, sanitizeMap(m))
	}
	return json.MarshalIndent(out, "", "  ")
}

// ImportRecords loads a persisted collection, migrating legacy payloads
// before any record becomes visible:
//   - denylisted keys stripped recursively from records and metadata
//   - string-typed confidence coerced to numeric
//   - missing schema version defaulted
//   - missing ids regenerated, unknown statuses mapped to unverified
//
// Returns the number of records loaded. Malformed individual records are
// skipped, not fatal.
func (c *Cache) ImportRecords(raw []byte) (int, error) {
	var col persistedCollection
	if err := json.Unmarshal(raw, &col); err != nil {
		// Oldest layout: a bare array of records.
		var bare []map[string]any
		if err2 := json.Unmarshal(raw, &bare); err2 != nil {
			return 0, err
		}
		col = persistedCollection{Records: bare}
	}
	if col.SchemaVersion == 0 {
		col.SchemaVersion = 1
	}

	loaded := 0
	for _, m := range col.Records {
		rec := migrateRecord(sanitizeMap(m))
		if rec == nil {
			continue
		}
		c.mu.Lock()
		c.records[rec.ID] = rec
		c.byKey[sessionKey(rec.SessionID, Fingerprint(rec.Text))] = rec.ID
		c.mu.Unlock()
		loaded++
	}
	return loaded, nil
}

// migrateRecord coerces one sanitized legacy map into a Record. Returns
// nil for records with no usable text.
func migrateRecord(m map[string]any) *Record {
	text, _ := m["text"].(string)
	if text == "" {
		return nil
	}

	rec := &Record{Text: text}

	if id, ok := m["id"].(string); ok && id != "" {
		rec.ID = id
	} else {
		rec.ID = uuid.NewString()
	}

	status := metrics.VerificationStatus(stringOr(m["status"], ""))
	// One legacy revision spelled the status "contradictory".
	if status == "contradictory" {
		status = metrics.StatusContradicted
	}
	if !metrics.ValidStatus(status) {
		status = metrics.StatusUnverified
	}
	rec.Status = status

	rec.Confidence = numericOr(m["confidence"], 0)
	if rec.Confidence < 0 {
		rec.Confidence = 0
	}
	if rec.Confidence > 1 {
		rec.Confidence = 1
	}

	if sources, ok := m["sources"].([]any); ok {
		for _, s := range sources {
			if str, ok := s.(string); ok {
				rec.Sources = append(rec.Sources, str)
			}
		}
	}

	rec.SessionID = stringOr(m["sessionId"], "")
	rec.CreatedAt = timeOr(m["createdAt"], time.Now())
	rec.ExpiresAt = timeOr(m["expiresAt"], time.Now().Add(24*time.Hour))

	if meta, ok := m["metadata"].(map[string]any); ok && len(meta) > 0 {
		rec.Metadata = meta
	}
	return rec
}

func stringOr(v any, fallback string) string {
	if s, ok := v.(string); ok {
		return s
	}
	return fallback
}

// numericOr handles both numeric and legacy string-typed values.
func numericOr(v any, fallback float64) float64 {
	switch n := v.(type) {
	case float64:
		return n
	case int:
		return float64(n)
	case string:
		if parsed, err := strconv.ParseFloat(n, 64); err == nil {
			return parsed
		}
	}
	return fallback
}

func timeOr(v any, fallback time.Time) time.Time {
	if s, ok := v.(string); ok {
		if t, err := time.Parse(time.RFC3339Nano, s); err == nil {
			return t
		}
		if t, err := time.Parse(time.RFC3339, s); err == nil {
			return t
		}
	}
	return fallback
}
