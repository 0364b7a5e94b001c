package query

// categoryHints maps editor category tags to search keywords. Only the
// venue's first category is consulted; tags without an entry contribute
// nothing to the query.
var categoryHints = map[string]string{
	"RESTAURANT":                       "restaurant",
	"FAST_FOOD":                        "fast food",
	"CAFE":                             "cafe",
	"BAKERY":                           "bakery",
	"BAR":                              "bar",
	"GAS_STATION":                      "gas station",
	"CAR_WASH":                         "car wash",
	"CAR_SERVICES":                     "auto repair",
	"CAR_DEALERSHIP":                   "car dealership",
	"HOTEL":                            "hotel",
	"BANK_FINANCIAL":                   "bank",
	"ATM":                              "atm",
	"HOSPITAL_URGENT_CARE":             "hospital",
	"DOCTOR_CLINIC":                    "clinic",
	"DENTIST_ORTHODONTIST":             "dentist",
	"PHARMACY":                         "pharmacy",
	"SUPERMARKET_GROCERY":              "grocery store",
	"CONVENIENCE_STORE":                "convenience store",
	"SHOPPING_AND_SERVICES":            "store",
	"HARDWARE_STORE":                   "hardware store",
	"PET_STORE_VETERINARIAN_SERVICES":  "veterinarian",
	"PERSONAL_CARE":                    "salon",
	"GYM_FITNESS":                      "gym",
	"SCHOOL":                           "school",
	"LIBRARY":                          "library",
	"MUSEUM":                           "museum",
	"POST_OFFICE":                      "post office",
}

// HintFor returns the search keyword for a category tag, if one exists.
func HintFor(category string) (string, bool) {
	hint, ok := categoryHints[category]
	return hint, ok
}
