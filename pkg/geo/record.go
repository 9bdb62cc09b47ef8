// Package geo holds the postal code record model, key normalization,
// great-circle distance and the tolerant GeoNames TSV parser.
package geo

// Record is one row of a GeoNames postal code dump.
type Record struct {
	CountryCode string  `json:"country_code"`
	PostalCode  string  `json:"postal_code"`
	PlaceName   string  `json:"place_name"`
	AdminName1  string  `json:"admin_name1"`
	AdminCode1  string  `json:"admin_code1"`
	AdminName2  string  `json:"admin_name2"`
	AdminCode2  string  `json:"admin_code2"`
	AdminName3  string  `json:"admin_name3"`
	AdminCode3  string  `json:"admin_code3"`
	Latitude    float64 `json:"latitude"`
	Longitude   float64 `json:"longitude"`
	Accuracy    float64 `json:"accuracy"`
}

// Point returns the record's coordinates.
func (r Record) Point() Point {
	return Point{Lat: r.Latitude, Lon: r.Longitude}
}

// Key is the normalized postal code the record is indexed under.
func (r Record) Key() string {
	return NormalizeCode(r.PostalCode)
}
