package poi

import "github.com/kailas-cloud/poisearch/internal/db"

// Hash field names of a stored POI.
const (
	FieldName       = "name"
	FieldLocation   = "location"
	FieldCategory   = "category"
	FieldAmenity    = "amenity"
	FieldPopularity = "popularity"
	FieldAddress    = "address"
	FieldKeywords   = "keywords"
	FieldKeyPhrases = "key_phrases"
	FieldKeyInfo    = "key_info"
	FieldRewrites   = "rewrites"
	FieldTags       = "tags"
)

// List separators inside hash values. Phrases are kept apart so a phrase
// query cannot match across two entries.
const (
	listSep   = ", "
	phraseSep = "; "
	tagSep    = ","
)

// candidateFields are returned by search; the rest stay server-side.
var candidateFields = []string{FieldName, FieldLocation, FieldCategory, FieldAmenity, FieldPopularity}

// IndexDefinition returns the FT schema for POI hashes.
func IndexDefinition(name, prefix, language string) (*db.IndexDefinition, error) {
	b := db.NewIndex(name).Prefix(prefix)
	if language != "" {
		b = b.Language(language)
	}
	return b.
		Text(FieldName).
		Text(FieldAddress).
		Text(FieldKeywords).
		Text(FieldKeyPhrases).
		Text(FieldKeyInfo).
		Text(FieldRewrites).
		Text(FieldTags).
		Tag(FieldCategory, tagSep).
		Tag(FieldAmenity, tagSep).
		Numeric(FieldPopularity).
		Geo(FieldLocation).
		Build()
}
