package domain

import (
	"encoding/json"
	"fmt"
)

// OsmType identifies the three kinds of OSM primitives.
type OsmType int

const (
	OsmTypeNode OsmType = iota
	OsmTypeWay
	OsmTypeRelation
)

// String renders the lowercase wire form ("node", "way", "relation").
func (t OsmType) String() string {
	switch t {
	case OsmTypeNode:
		return "node"
	case OsmTypeWay:
		return "way"
	case OsmTypeRelation:
		return "relation"
	default:
		return "unknown"
	}
}

// MarshalJSON renders OsmType as its lowercase string form.
func (t OsmType) MarshalJSON() ([]byte, error) {
	return []byte(`"` + t.String() + `"`), nil
}

// UnmarshalJSON parses the lowercase string form back into an OsmType.
func (t *OsmType) UnmarshalJSON(data []byte) error {
	s := string(data)
	switch s {
	case `"node"`:
		*t = OsmTypeNode
	case `"way"`:
		*t = OsmTypeWay
	case `"relation"`:
		*t = OsmTypeRelation
	default:
		return fmt.Errorf("domain: unknown osm_type %s", s)
	}
	return nil
}

// AdminLevel is the ordered administrative hierarchy level, mapped
// bijectively from OSM's numeric admin_level tag.
type AdminLevel int

const (
	AdminLevelCountry AdminLevel = iota
	AdminLevelMacroRegion
	AdminLevelRegion
	AdminLevelMacroCounty
	AdminLevelCounty
	AdminLevelLocalAdmin
	AdminLevelLocality
	AdminLevelBorough
	AdminLevelNeighbourhood
)

// adminLevelCount is the number of AdminLevel slots in an AdminHierarchy.
const adminLevelCount = int(AdminLevelNeighbourhood) + 1

// AdminLevelFromOSM maps an OSM admin_level number to an AdminLevel.
// admin_level 11 collapses into Neighbourhood. Returns false for any
// other value.
func AdminLevelFromOSM(n int) (AdminLevel, bool) {
	switch n {
	case 2:
		return AdminLevelCountry, true
	case 3:
		return AdminLevelMacroRegion, true
	case 4:
		return AdminLevelRegion, true
	case 5:
		return AdminLevelMacroCounty, true
	case 6:
		return AdminLevelCounty, true
	case 7:
		return AdminLevelLocalAdmin, true
	case 8:
		return AdminLevelLocality, true
	case 9:
		return AdminLevelBorough, true
	case 10, 11:
		return AdminLevelNeighbourhood, true
	default:
		return 0, false
	}
}

// adminLevelNames maps each AdminLevel to its wire key, used by both
// AdminHierarchy's and AdminHierarchyIDs' JSON encodings (keyed by
// level name rather than by index, so the shape reads naturally as
// parent.country, parent.region, etc. per spec §3).
var adminLevelNames = [adminLevelCount]string{
	AdminLevelCountry:        "country",
	AdminLevelMacroRegion:    "macroregion",
	AdminLevelRegion:         "region",
	AdminLevelMacroCounty:    "macrocounty",
	AdminLevelCounty:         "county",
	AdminLevelLocalAdmin:     "localadmin",
	AdminLevelLocality:       "locality",
	AdminLevelBorough:        "borough",
	AdminLevelNeighbourhood:  "neighbourhood",
}

// AdminLevelFromName reverses adminLevelNames, for decoding.
func AdminLevelFromName(name string) (AdminLevel, bool) {
	for l, n := range adminLevelNames {
		if n == name {
			return AdminLevel(l), true
		}
	}
	return 0, false
}

func (l AdminLevel) String() string {
	switch l {
	case AdminLevelCountry:
		return "country"
	case AdminLevelMacroRegion:
		return "macroregion"
	case AdminLevelRegion:
		return "region"
	case AdminLevelMacroCounty:
		return "macrocounty"
	case AdminLevelCounty:
		return "county"
	case AdminLevelLocalAdmin:
		return "localadmin"
	case AdminLevelLocality:
		return "locality"
	case AdminLevelBorough:
		return "borough"
	case AdminLevelNeighbourhood:
		return "neighbourhood"
	default:
		return "unknown"
	}
}

// Layer is the place classification used for display and for the
// query-time hierarchy filter (see [LayerRank]).
type Layer string

const (
	LayerVenue         Layer = "venue"
	LayerAddress       Layer = "address"
	LayerStreet        Layer = "street"
	LayerAdmin         Layer = "admin"
	LayerNeighbourhood Layer = "neighbourhood"
	LayerLocality      Layer = "locality"
	LayerCounty        Layer = "county"
	LayerRegion        Layer = "region"
	LayerMacroCounty   Layer = "macrocounty"
	LayerMacroRegion   Layer = "macroregion"
	LayerLocalAdmin    Layer = "localadmin"
	LayerBorough       Layer = "borough"
	LayerCountry       Layer = "country"
)

// LayerRank returns the numeric rank used by hierarchy filtering: a
// result only shows a parent slot whose rank is strictly greater than
// the result's own rank.
func LayerRank(l Layer) int {
	switch l {
	case LayerCountry:
		return 100
	case LayerMacroRegion:
		return 90
	case LayerRegion:
		return 80
	case LayerMacroCounty:
		return 70
	case LayerCounty:
		return 60
	case LayerLocalAdmin, LayerAdmin:
		return 50
	case LayerLocality:
		return 40
	case LayerBorough:
		return 30
	case LayerNeighbourhood:
		return 20
	case LayerStreet, LayerAddress, LayerVenue:
		return 10
	default:
		return 0
	}
}

// layerForAdminLevel is the Layer a boundary at a given AdminLevel is
// indexed under: the admin Place documents ingest.Driver emits for
// boundaries carry this level-specific layer, and levels without one
// fall back to LayerAdmin.
func layerForAdminLevel(l AdminLevel) Layer {
	switch l {
	case AdminLevelCountry:
		return LayerCountry
	case AdminLevelMacroRegion:
		return LayerMacroRegion
	case AdminLevelRegion:
		return LayerRegion
	case AdminLevelMacroCounty:
		return LayerMacroCounty
	case AdminLevelCounty:
		return LayerCounty
	case AdminLevelLocalAdmin:
		return LayerLocalAdmin
	case AdminLevelLocality:
		return LayerLocality
	case AdminLevelBorough:
		return LayerBorough
	case AdminLevelNeighbourhood:
		return LayerNeighbourhood
	default:
		return LayerAdmin
	}
}

// LayerForAdminLevel exports layerForAdminLevel for the ingest driver's
// admin Place documents and the query planner's parent-rank filtering.
func LayerForAdminLevel(l AdminLevel) Layer { return layerForAdminLevel(l) }

// GeoPoint is a WGS84 coordinate in degrees.
type GeoPoint struct {
	Lat float64 `json:"lat"`
	Lon float64 `json:"lon"`
}

// GeoBbox is an axis-aligned bounding envelope, serialized in the
// GeoJSON-ish "envelope" shape the text index expects:
// {type:"envelope", coordinates:[[minLon,maxLat],[maxLon,minLat]]}.
type GeoBbox struct {
	MinLon float64 `json:"-"`
	MinLat float64 `json:"-"`
	MaxLon float64 `json:"-"`
	MaxLat float64 `json:"-"`
}

// NewGeoBbox builds a GeoBbox from an unordered pair of corners.
func NewGeoBbox(lon1, lat1, lon2, lat2 float64) GeoBbox {
	b := GeoBbox{MinLon: lon1, MaxLon: lon2, MinLat: lat1, MaxLat: lat2}
	if b.MinLon > b.MaxLon {
		b.MinLon, b.MaxLon = b.MaxLon, b.MinLon
	}
	if b.MinLat > b.MaxLat {
		b.MinLat, b.MaxLat = b.MaxLat, b.MinLat
	}
	return b
}

type geoBboxWire struct {
	Type        string        `json:"type"`
	Coordinates [][2]float64 `json:"coordinates"`
}

// MarshalJSON renders the envelope shape described in spec §3.
func (b GeoBbox) MarshalJSON() ([]byte, error) {
	return json.Marshal(geoBboxWire{
		Type: "envelope",
		Coordinates: [][2]float64{
			{b.MinLon, b.MaxLat},
			{b.MaxLon, b.MinLat},
		},
	})
}

// UnmarshalJSON parses the envelope shape back into a GeoBbox.
func (b *GeoBbox) UnmarshalJSON(data []byte) error {
	var w geoBboxWire
	if err := json.Unmarshal(data, &w); err != nil {
		return err
	}
	if len(w.Coordinates) != 2 {
		return fmt.Errorf("domain: envelope needs exactly 2 coordinate pairs")
	}
	b.MinLon = w.Coordinates[0][0]
	b.MaxLat = w.Coordinates[0][1]
	b.MaxLon = w.Coordinates[1][0]
	b.MinLat = w.Coordinates[1][1]
	return nil
}

// Address is the street-level address portion of a Place, all fields optional.
type Address struct {
	HouseNumber string `json:"housenumber,omitempty"`
	Street      string `json:"street,omitempty"`
	Postcode    string `json:"postcode,omitempty"`
	City        string `json:"city,omitempty"`
}

// IsEmpty reports whether every field of the address is unset.
func (a Address) IsEmpty() bool {
	return a.HouseNumber == "" && a.Street == "" && a.Postcode == "" && a.City == ""
}

// AdminArea is an administrative boundary's metadata, independent of
// its geometry.
type AdminArea struct {
	OsmID          int64             `json:"osm_id"`
	Level          AdminLevel        `json:"level"`
	WikidataID     string            `json:"wikidata_id,omitempty"`
	Name           map[string]string `json:"name"`
	Bbox           *GeoBbox          `json:"bbox,omitempty"`
	Abbr           string            `json:"abbr,omitempty"`
	IsoCountryCode string            `json:"iso_country_code,omitempty"`
}

// SourceID is the admin area's KV/text-index key: "relation/<osm_id>".
func (a AdminArea) SourceID() string {
	return fmt.Sprintf("relation/%d", a.OsmID)
}

// AdminEntry is the denormalized parent record embedded in an
// AdminHierarchy. The text-index wire form omits Names (to avoid
// colliding with the reserved `id` field and other sibling keys); the
// KV wire form includes it. Use [AdminEntry.MarshalTextIndex] and
// [AdminEntry.MarshalKV] to select the right shape explicitly.
type AdminEntry struct {
	Name  string            `json:"name,omitempty"`
	Abbr  string            `json:"abbr,omitempty"`
	ID    string            `json:"id,omitempty"`
	Bbox  *GeoBbox          `json:"bbox,omitempty"`
	Names map[string]string `json:"-"`
}

type adminEntryKVWire struct {
	Name  string            `json:"name,omitempty"`
	Abbr  string            `json:"abbr,omitempty"`
	ID    string            `json:"id,omitempty"`
	Bbox  *GeoBbox          `json:"bbox,omitempty"`
	Names map[string]string `json:"names,omitempty"`
}

// MarshalKV renders the full form, including the nested names map,
// used when persisting to the KV store.
func (e AdminEntry) MarshalKV() ([]byte, error) {
	return json.Marshal(adminEntryKVWire{Name: e.Name, Abbr: e.Abbr, ID: e.ID, Bbox: e.Bbox, Names: e.Names})
}

// UnmarshalKV parses the full KV wire form produced by MarshalKV,
// populating Names (which the default JSON form omits).
func (e *AdminEntry) UnmarshalKV(data []byte) error {
	var wire adminEntryKVWire
	if err := json.Unmarshal(data, &wire); err != nil {
		return err
	}
	e.Name, e.Abbr, e.ID, e.Bbox, e.Names = wire.Name, wire.Abbr, wire.ID, wire.Bbox, wire.Names
	return nil
}

// MarshalJSON implements the text-index form (names map omitted), the
// default JSON shape for an AdminEntry embedded in a Place.
func (e AdminEntry) MarshalJSON() ([]byte, error) {
	type wire AdminEntry
	return json.Marshal(wire(e))
}

// AdminHierarchy holds one optional AdminEntry per AdminLevel.
type AdminHierarchy struct {
	slots [adminLevelCount]*AdminEntry
}

// Set places an entry at the given level.
func (h *AdminHierarchy) Set(level AdminLevel, entry AdminEntry) {
	h.slots[level] = &entry
}

// Get returns the entry at a level, or nil if unset.
func (h *AdminHierarchy) Get(level AdminLevel) *AdminEntry {
	return h.slots[level]
}

// Levels returns the set AdminLevels in ascending (Country-first) order.
func (h *AdminHierarchy) Levels() []AdminLevel {
	var out []AdminLevel
	for l := AdminLevelCountry; l <= AdminLevelNeighbourhood; l++ {
		if h.slots[l] != nil {
			out = append(out, l)
		}
	}
	return out
}

// Country is a convenience accessor for the Country slot.
func (h *AdminHierarchy) Country() *AdminEntry { return h.slots[AdminLevelCountry] }

// MarshalJSON renders the set slots as {"country": {...}, "region": {...}, ...},
// keyed by level name (spec §3 "parent: AdminHierarchy").
func (h AdminHierarchy) MarshalJSON() ([]byte, error) {
	out := map[string]*AdminEntry{}
	for _, level := range h.Levels() {
		out[adminLevelNames[level]] = h.slots[level]
	}
	return json.Marshal(out)
}

// UnmarshalJSON parses the {"country": {...}, ...} shape back into an
// AdminHierarchy.
func (h *AdminHierarchy) UnmarshalJSON(data []byte) error {
	var raw map[string]AdminEntry
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}
	for name, entry := range raw {
		level, ok := AdminLevelFromName(name)
		if !ok {
			continue
		}
		h.Set(level, entry)
	}
	return nil
}

// AdminBoundary is the spatial unit indexed for PIP: metadata plus a
// reconstructed multipolygon.
type AdminBoundary struct {
	Area     AdminArea
	Geometry [][]GeoPoint // multipolygon: list of closed outer rings
}

// Place is a single geocodable entity extracted from OSM.
type Place struct {
	SourceID        string            `json:"source_id"`
	SourceFile      string            `json:"source_file"`
	ImportTimestamp int64             `json:"import_timestamp"`
	OsmType         OsmType           `json:"osm_type"`
	OsmID           int64             `json:"osm_id"`
	WikidataID      string            `json:"wikidata_id,omitempty"`
	Importance      *float64          `json:"importance,omitempty"`
	Layer           Layer             `json:"layer"`
	Categories      []string          `json:"categories,omitempty"`
	Name            map[string]string `json:"name"`
	Phrase          string            `json:"phrase,omitempty"`
	Address         *Address          `json:"address,omitempty"`
	CenterPoint     GeoPoint          `json:"center_point"`
	Bbox            *GeoBbox          `json:"bbox,omitempty"`
	Parent          AdminHierarchy    `json:"parent"`
}

// NewPlace builds a Place with its SourceID derived from osmType/osmID
// and its import timestamp set from the injected clock.
func NewPlace(osmType OsmType, osmID int64, layer Layer, center GeoPoint, sourceFile string) Place {
	return Place{
		SourceID:        fmt.Sprintf("%s/%d", osmType, osmID),
		SourceFile:      sourceFile,
		ImportTimestamp: clock.Now().UTC().UnixMilli(),
		OsmType:         osmType,
		OsmID:           osmID,
		Layer:           layer,
		Name:            map[string]string{},
		CenterPoint:     center,
	}
}

// AddName sets a name in the given language, refreshing Phrase when the
// default name is set (invariant: phrase == name["default"]).
func (p *Place) AddName(lang, value string) {
	if p.Name == nil {
		p.Name = map[string]string{}
	}
	p.Name[lang] = value
	if lang == "default" {
		p.Phrase = value
	}
}

// AddCategory appends a "k:v" category tag if not already present.
func (p *Place) AddCategory(category string) {
	for _, c := range p.Categories {
		if c == category {
			return
		}
	}
	p.Categories = append(p.Categories, category)
}

// NormalizedPlace is a Place whose parent hierarchy references admin
// entries by string ID ("relation/<osm_id>") instead of embedding them.
type NormalizedPlace struct {
	SourceID        string            `json:"source_id"`
	SourceFile      string            `json:"source_file"`
	ImportTimestamp int64             `json:"import_timestamp"`
	OsmType         OsmType           `json:"osm_type"`
	OsmID           int64             `json:"osm_id"`
	WikidataID      string            `json:"wikidata_id,omitempty"`
	Importance      *float64          `json:"importance,omitempty"`
	Layer           Layer             `json:"layer"`
	Categories      []string          `json:"categories,omitempty"`
	Name            map[string]string `json:"name"`
	Phrase          string            `json:"phrase,omitempty"`
	Address         *Address          `json:"address,omitempty"`
	CenterPoint     GeoPoint          `json:"center_point"`
	Bbox            *GeoBbox          `json:"bbox,omitempty"`
	ParentIDs       AdminHierarchyIDs `json:"parent"`
}

// AdminHierarchyIDs is the normalized form of AdminHierarchy: one
// optional "relation/<id>" string per level.
type AdminHierarchyIDs struct {
	ids [adminLevelCount]string
}

// Set records the admin ID at a level.
func (h *AdminHierarchyIDs) Set(level AdminLevel, id string) { h.ids[level] = id }

// Get returns the admin ID at a level, or "" if unset.
func (h *AdminHierarchyIDs) Get(level AdminLevel) string { return h.ids[level] }

// MarshalJSON renders the set slots as {"country": "relation/...", ...},
// keyed by level name, mirroring AdminHierarchy's shape minus the
// inline entry (spec §3 "normalized ... for the KV store").
func (h AdminHierarchyIDs) MarshalJSON() ([]byte, error) {
	out := map[string]string{}
	for l, id := range h.ids {
		if id != "" {
			out[adminLevelNames[l]] = id
		}
	}
	return json.Marshal(out)
}

// UnmarshalJSON parses the {"country": "relation/...", ...} shape back
// into an AdminHierarchyIDs.
func (h *AdminHierarchyIDs) UnmarshalJSON(data []byte) error {
	var raw map[string]string
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}
	for name, id := range raw {
		level, ok := AdminLevelFromName(name)
		if !ok {
			continue
		}
		h.Set(level, id)
	}
	return nil
}

// ToNormalized converts a Place into a NormalizedPlace, replacing each
// inline AdminEntry with its "relation/<osm_id>" ID.
func ToNormalized(p Place) NormalizedPlace {
	np := NormalizedPlace{
		SourceID:        p.SourceID,
		SourceFile:      p.SourceFile,
		ImportTimestamp: p.ImportTimestamp,
		OsmType:         p.OsmType,
		OsmID:           p.OsmID,
		WikidataID:      p.WikidataID,
		Importance:      p.Importance,
		Layer:           p.Layer,
		Categories:      p.Categories,
		Name:            p.Name,
		Phrase:          p.Phrase,
		Address:         p.Address,
		CenterPoint:     p.CenterPoint,
		Bbox:            p.Bbox,
	}
	for l := AdminLevelCountry; l <= AdminLevelNeighbourhood; l++ {
		if entry := p.Parent.Get(l); entry != nil && entry.ID != "" {
			np.ParentIDs.Set(l, entry.ID)
		}
	}
	return np
}
