// README: Static Tunisian city table used for deterministic geocoding and driver-city distances.
package location

import (
	"sort"
	"strings"

	"github.com/hammamiayoub/vtc-new-sub000/internal/types"
)

type City struct {
	Name     string
	Position types.Point
}

var knownCities = []City{
	{Name: "Tunis", Position: types.Point{Lat: 36.8065, Lng: 10.1815}},
	{Name: "Ariana", Position: types.Point{Lat: 36.8665, Lng: 10.1647}},
	{Name: "Ben Arous", Position: types.Point{Lat: 36.7531, Lng: 10.2189}},
	{Name: "Manouba", Position: types.Point{Lat: 36.8101, Lng: 10.0956}},
	{Name: "La Marsa", Position: types.Point{Lat: 36.8782, Lng: 10.3247}},
	{Name: "Carthage", Position: types.Point{Lat: 36.8528, Lng: 10.3233}},
	{Name: "La Goulette", Position: types.Point{Lat: 36.8181, Lng: 10.3050}},
	{Name: "Nabeul", Position: types.Point{Lat: 36.4561, Lng: 10.7376}},
	{Name: "Hammamet", Position: types.Point{Lat: 36.4000, Lng: 10.6167}},
	{Name: "Bizerte", Position: types.Point{Lat: 37.2744, Lng: 9.8739}},
	{Name: "Zaghouan", Position: types.Point{Lat: 36.4029, Lng: 10.1429}},
	{Name: "Béja", Position: types.Point{Lat: 36.7256, Lng: 9.1817}},
	{Name: "Jendouba", Position: types.Point{Lat: 36.5011, Lng: 8.7802}},
	{Name: "Le Kef", Position: types.Point{Lat: 36.1826, Lng: 8.7148}},
	{Name: "Siliana", Position: types.Point{Lat: 36.0849, Lng: 9.3708}},
	{Name: "Sousse", Position: types.Point{Lat: 35.8256, Lng: 10.6360}},
	{Name: "Hammam Sousse", Position: types.Point{Lat: 35.8609, Lng: 10.5937}},
	{Name: "Monastir", Position: types.Point{Lat: 35.7643, Lng: 10.8113}},
	{Name: "Mahdia", Position: types.Point{Lat: 35.5047, Lng: 11.0622}},
	{Name: "Kairouan", Position: types.Point{Lat: 35.6781, Lng: 10.0963}},
	{Name: "Kasserine", Position: types.Point{Lat: 35.1676, Lng: 8.8365}},
	{Name: "Sidi Bouzid", Position: types.Point{Lat: 35.0382, Lng: 9.4849}},
	{Name: "Sfax", Position: types.Point{Lat: 34.7406, Lng: 10.7603}},
	{Name: "Gafsa", Position: types.Point{Lat: 34.4250, Lng: 8.7842}},
	{Name: "Tozeur", Position: types.Point{Lat: 33.9197, Lng: 8.1335}},
	{Name: "Kebili", Position: types.Point{Lat: 33.7044, Lng: 8.9690}},
	{Name: "Gabès", Position: types.Point{Lat: 33.8815, Lng: 10.0982}},
	{Name: "Médenine", Position: types.Point{Lat: 33.3549, Lng: 10.5055}},
	{Name: "Djerba", Position: types.Point{Lat: 33.8076, Lng: 10.8451}},
	{Name: "Zarzis", Position: types.Point{Lat: 33.5036, Lng: 11.1122}},
	{Name: "Tataouine", Position: types.Point{Lat: 32.9297, Lng: 10.4518}},
	{Name: "Enfidha", Position: types.Point{Lat: 36.1350, Lng: 10.3808}},
	{Name: "Tabarka", Position: types.Point{Lat: 36.9544, Lng: 8.7580}},
}

// citiesByLength holds normalized names, longest first, so "Hammam Sousse"
// wins over "Sousse".
var citiesByLength = func() []normalizedCity {
	out := make([]normalizedCity, 0, len(knownCities))
	for _, c := range knownCities {
		out = append(out, normalizedCity{key: normalizeName(c.Name), city: c})
	}
	sort.SliceStable(out, func(i, j int) bool { return len(out[i].key) > len(out[j].key) })
	return out
}()

type normalizedCity struct {
	key  string
	city City
}

var accentFolder = strings.NewReplacer(
	"à", "a", "â", "a", "ä", "a",
	"é", "e", "è", "e", "ê", "e", "ë", "e",
	"î", "i", "ï", "i",
	"ô", "o", "ö", "o",
	"ù", "u", "û", "u", "ü", "u",
	"ç", "c",
)

// countryWords are dropped before matching so "..., Sfax, Tunisie" does not
// resolve to Tunis.
var countryWords = strings.NewReplacer("tunisie", " ", "tunisia", " ")

func normalizeName(s string) string {
	return accentFolder.Replace(strings.ToLower(strings.TrimSpace(s)))
}

// LookupCity finds the first known city whose name appears inside address,
// case- and accent-insensitively.
func LookupCity(address string) (City, bool) {
	norm := strings.TrimSpace(countryWords.Replace(normalizeName(address)))
	if norm == "" {
		return City{}, false
	}
	for _, c := range citiesByLength {
		if strings.Contains(norm, c.key) {
			return c.city, true
		}
	}
	return City{}, false
}

// Cities returns a copy of the static table.
func Cities() []City {
	out := make([]City, len(knownCities))
	copy(out, knownCities)
	return out
}
