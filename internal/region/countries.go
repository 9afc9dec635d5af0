package region

// countryContinents lists the countries served with an explicit placement.
// Continent codes follow the GeoIP2 convention so the table agrees with
// database-derived continents.
var countryContinents = map[string]string{
	// North America, Central America and the Caribbean
	"US": "NA", "CA": "NA", "MX": "NA", "GL": "NA", "PM": "NA", "BM": "NA",
	"GT": "NA", "BZ": "NA", "SV": "NA", "HN": "NA", "NI": "NA", "CR": "NA", "PA": "NA",
	"CU": "NA", "JM": "NA", "HT": "NA", "DO": "NA", "PR": "NA", "BS": "NA",
	"BB": "NA", "TT": "NA", "AG": "NA", "DM": "NA", "GD": "NA", "KN": "NA",
	"LC": "NA", "VC": "NA", "AW": "NA", "CW": "NA", "SX": "NA", "BQ": "NA",
	"KY": "NA", "VG": "NA", "VI": "NA", "TC": "NA", "AI": "NA", "MS": "NA",
	"GP": "NA", "MQ": "NA", "BL": "NA", "MF": "NA",

	// South America
	"AR": "SA", "BO": "SA", "BR": "SA", "CL": "SA", "CO": "SA", "EC": "SA",
	"FK": "SA", "GF": "SA", "GY": "SA", "PY": "SA", "PE": "SA", "SR": "SA",
	"UY": "SA", "VE": "SA",

	// Europe
	"AD": "EU", "AL": "EU", "AT": "EU", "AX": "EU", "BA": "EU", "BE": "EU",
	"BG": "EU", "BY": "EU", "CH": "EU", "CZ": "EU", "DE": "EU", "DK": "EU",
	"EE": "EU", "ES": "EU", "FI": "EU", "FO": "EU", "FR": "EU", "GB": "EU",
	"GG": "EU", "GI": "EU", "GR": "EU", "HR": "EU", "HU": "EU", "IE": "EU",
	"IM": "EU", "IS": "EU", "IT": "EU", "JE": "EU", "LI": "EU", "LT": "EU",
	"LU": "EU", "LV": "EU", "MC": "EU", "MD": "EU", "ME": "EU", "MK": "EU",
	"MT": "EU", "NL": "EU", "NO": "EU", "PL": "EU", "PT": "EU", "RO": "EU",
	"RS": "EU", "RU": "EU", "SE": "EU", "SI": "EU", "SJ": "EU", "SK": "EU",
	"SM": "EU", "UA": "EU", "VA": "EU", "XK": "EU",
}

// ContinentOf returns the continent code for a country in the table, or ""
// when the country is not listed.
func ContinentOf(country string) string {
	cc, ok := NormalizeCountry(country)
	if !ok {
		return ""
	}
	return countryContinents[cc]
}

