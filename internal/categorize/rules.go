package categorize

import "github.com/shopspring/decimal"

// Categories
const (
	Maintenance      = "Maintenance"
	Shopping         = "Shopping"
	Tools            = "Tools"
	BusinessServices = "Business Services"
	FoodDining       = "Food & Dining"
	Transportation   = "Transportation"
	Entertainment    = "Entertainment"
	BillsUtilities   = "Bills & Utilities"
	Healthcare       = "Healthcare"
	Education        = "Education"
	Miscellaneous    = "Miscellaneous"
	Other            = "Other"
)

// Categories lists every label the classifier can produce on its own
var Categories = []string{
	Maintenance, Shopping, Tools, BusinessServices, FoodDining, Transportation,
	Entertainment, BillsUtilities, Healthcare, Education, Miscellaneous, Other,
}

// Rule assigns Category when Match holds and Unless does not
type Rule struct {
	Name     string
	Category string
	Match    Predicate
	Unless   Predicate
}

func (r Rule) applies(description string) bool {
	if !r.Match(description) {
		return false
	}
	return r.Unless == nil || !r.Unless(description)
}

var largeAmount = decimal.NewFromInt(10000)

var (
	toolBrands = newKeywordSet("stanley", "bosch", "makita", "dewalt", "craftsman")

	utilityBillTerms = newKeywordSet(
		"electric bill", "electricity bill", "power bill", "energy bill", "water bill",
		"gas bill", "internet bill", "phone bill", "mobile bill", "utility bill",
		"broadband bill", "cable bill", "electricity", "utility",
	)

	electronicsStores = newKeywordSet(
		"poorvika", "croma", "reliance digital", "vijay sales", "samsung", "apple store",
		"mi store", "oneplus", "oppo", "vivo", "realme", "nokia", "lg", "sony",
		"dell", "hp", "lenovo", "asus", "acer", "flipkart", "amazon", "snapdeal",
	)

	electronicsItems = newKeywordSet(
		"mobile", "phone", "smartphone", "tablet", "laptop", "computer", "pc",
		"headphone", "earphone", "speaker", "charger", "adapter", "power adapter",
		"cable", "usb", "bluetooth", "smartwatch", "tv", "television", "monitor",
		"keyboard", "mouse", "webcam", "camera", "hard drive", "ssd", "ram",
		"processor", "graphics card", "motherboard", "electronics", "gadget",
		"accessory", "case", "cover", "screen guard", "tempered glass",
	)

	toolKeywords = newKeywordSet(
		"hammer", "saw", "drill", "screwdriver", "wrench", "pliers", "chisel", "file",
		"measuring tape", "level", "square", "caliper", "micrometer", "gauge",
		"socket", "spanner", "ratchet", "torque", "clamp", "vise",
		"stanley", "bosch", "makita", "dewalt", "craftsman", "milwaukee", "ridgid",
		"black & decker", "worx", "ryobi", "porter cable", "festool",
		"precision tool", "cutting tool", "measuring tool", "hand tool", "power tool",
		"workshop tool", "mechanics tool", "carpentry tool", "electrical tool",
		"equipment", "machinery", "apparatus", "device", "instrument", "component",
		"spare part", "replacement part", "toolbox", "tool kit", "tool set",
	)
	strongToolTerms = newKeywordSet("automatic saw", "claw hammer", "precision", "manufacturing")
	toolWord        = newKeywordSet("tool")
	toolContext     = newKeywordSet("precision", "manufacturing", "workshop", "industrial")

	businessTerms = newKeywordSet(
		"business service", "office", "consulting", "professional service",
		"legal service", "accounting", "audit", "tax preparation", "financial services",
		"construction service", "contractor", "renovation service", "installation service",
		"maturity", "investment", "finance", "policy", "insurance", "mutual fund", "stocks",
		"bonds", "portfolio", "banking", "loan", "credit", "mortgage",
	)

	foodKeywords = newKeywordSet(
		"chicken", "fish", "mutton", "beef", "pork", "paneer", "dal", "curry", "biryani",
		"naan", "roti", "paratha", "rice", "pasta", "pizza", "burger", "sandwich", "salad",
		"soup", "starter", "dessert", "ice cream", "cake", "coffee", "tea", "juice",
		"angara", "masala", "tandoori", "gravy", "fried", "grilled", "roasted",
		"restaurant", "food", "cafe", "dining", "kitchen", "meal", "breakfast", "lunch",
		"dinner", "snack", "beverage", "drink", "bakery", "deli", "catering",
		"grocery", "supermarket", "walmart", "target",
	)
	dishNames = newKeywordSet(
		"chicken", "biryani", "curry", "naan", "roti", "paratha", "angara", "masala",
		"tandoori", "paneer", "dal", "rice", "pasta", "pizza", "burger",
	)
	diningContext = newKeywordSet("restaurant", "cafe", "dining", "kitchen", "meal", "menu", "order")

	clothingBrands = newKeywordSet(
		"allen solly", "aditya birla", "lifestyle brands", "raymond", "arrow", "van heusen",
		"louis philippe", "peter england", "zara", "h&m", "uniqlo", "levis", "nike", "adidas",
	)
	clothingItems = newKeywordSet(
		"shirt", "trouser", "trousers", "pant", "pants", "duffel bag", "bag", "clothing",
		"apparel", "wear", "dress", "skirt", "jacket", "blazer", "suit", "tie", "belt",
		"shoes", "sandal", "sneaker", "formal", "casual", "sleeve", "collar",
	)
	shoppingTerms = newKeywordSet(
		"store", "shop", "mall", "amazon", "retail", "purchase", "buy", "shopping",
		"clothes", "electronics", "cosmetics", "jewelry", "accessories",
	)

	transportPhrases = newKeywordSet(
		"uber ride", "uber trip", "ola ride", "ola cab", "taxi fare", "cab fare",
		"bus ticket", "train ticket", "metro ticket", "metro card",
		"parking fee", "toll plaza", "fuel station", "petrol pump", "gas station",
		"auto rickshaw", "rickshaw fare", "transport service", "travel agency",
		"journey fare", "ride booking", "trip fare", "flight booking", "airline ticket",
		"airport taxi",
	)
	fuelTerms = newKeywordSet(
		"petrol", "diesel", "cng", "fuel pump", "gasoline", "bp petrol", "hp petrol",
		"indian oil", "bharat petroleum", "hindustan petroleum", "fuel station",
	)
	vehicleTerms = newKeywordSet("car service", "vehicle maintenance", "auto repair", "garage", "mechanic")

	entertainmentTerms = newKeywordSet(
		"movie", "theater", "entertainment", "game", "netflix", "cinema", "concert",
		"show", "event", "amusement", "park", "sports", "hobby", "music", "book",
	)

	utilityTerms = newKeywordSet(
		"electric bill", "electricity bill", "power bill", "energy bill",
		"water bill", "gas bill", "internet bill", "phone bill", "mobile bill",
		"utility bill", "broadband bill", "cable bill", "subscription",
		"electricity", "water utility", "internet", "broadband", "cable",
		"mobile plan", "phone plan", "power", "energy",
	)
	restaurantBillTerms = newKeywordSet("chicken", "food", "restaurant", "dining", "meal", "naan", "curry", "rice")

	healthcareTerms = newKeywordSet(
		"hospital", "doctor", "pharmacy", "medical", "health", "clinic", "medicine",
		"treatment", "checkup", "surgery", "dental", "optical", "lab test", "prescription",
	)
	educationTerms = newKeywordSet(
		"school", "college", "university", "education", "tuition", "course", "training",
		"book", "study", "exam", "certification", "workshop", "seminar", "library",
	)
)

// defaultRules is evaluated top to bottom; the first applicable rule wins.
// Its order encodes precedence and must not be changed casually.
var defaultRules = []Rule{
	{
		Name:     "maintenance",
		Category: Maintenance,
		Match: anyPattern(
			`\bmaintenance\b`, `\brepairs?\b`, `\bservic(?:e|ing)\b`, `\bworkshop\b`,
			`\bgarage\b`, `\bmechanic\b`, `\binstallations?\b`, `\binstallation/repair\b`,
			`\bengine repair\b`, `\bac repair\b`, `\bvehicle repair\b`, `\bcar service\b`,
			`\bauto service\b`, `\bplumber\b`, `\belectrician\b`, `\btune[- ]?up\b`,
			`\binspection\b`, `\boverhaul\b`, `\breplacement\b`, `\brefurbish(?:ment)?\b`,
		),
		Unless: either(anyOf(toolBrands), anyOf(utilityBillTerms)),
	},
	{Name: "electronics store", Category: Shopping, Match: anyOf(electronicsStores)},
	{Name: "electronics item", Category: Shopping, Match: anyOf(electronicsItems)},
	{
		Name:     "tech brand",
		Category: Shopping,
		Match: anyPattern(
			`\bsamsung\b`, `\bapple\b`, `\biphone\b`, `\bipad\b`, `\bmacbook\b`,
			`\boneplus\b`, `\bxiaomi\b`, `\bmi\s+\d+\b`, `\brealme\b`, `\boppo\b`,
			`\bvivo\b`, `\bnokia\b`, `\bmoto\b`, `\blg\b`, `\bsony\b`,
			`\bt\d+\w*\b`, `\bep\s+\w+\b`, `\bmodel\s+\w+\d+\b`,
		),
	},
	{
		Name:     "tools",
		Category: Tools,
		Match: either(
			atLeast(2, toolKeywords),
			anyOf(toolBrands),
			anyOf(strongToolTerms),
			both(anyOf(toolWord), anyOf(toolContext)),
		),
	},
	{Name: "business services", Category: BusinessServices, Match: anyOf(businessTerms)},
	{Name: "food", Category: FoodDining, Match: either(atLeast(2, foodKeywords), anyOf(dishNames))},
	{Name: "food in dining context", Category: FoodDining, Match: both(exactly(1, foodKeywords), anyOf(diningContext))},
	{Name: "clothing brand", Category: Shopping, Match: anyOf(clothingBrands)},
	{Name: "clothing item", Category: Shopping, Match: anyOf(clothingItems)},
	{Name: "shopping", Category: Shopping, Match: anyOf(shoppingTerms)},
	{Name: "transport", Category: Transportation, Match: anyOf(transportPhrases)},
	{Name: "ride hailing", Category: Transportation, Match: anyPattern(`\buber\b`, `\blyft\b`, `\bgrab\b`)},
	{Name: "fuel", Category: Transportation, Match: anyOf(fuelTerms)},
	{Name: "vehicle", Category: Transportation, Match: anyOf(vehicleTerms)},
	{Name: "entertainment", Category: Entertainment, Match: anyOf(entertainmentTerms)},
	{
		Name:     "utilities",
		Category: BillsUtilities,
		Match:    anyOf(utilityTerms),
		Unless:   anyOf(restaurantBillTerms),
	},
	{Name: "healthcare", Category: Healthcare, Match: anyOf(healthcareTerms)},
	{Name: "education", Category: Education, Match: anyOf(educationTerms)},
}
