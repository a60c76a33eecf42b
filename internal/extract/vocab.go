package extract

// Bilingual (Hebrew/English) vocabularies driving the heuristic extractors.
// All lookups are exact token or substring matches, favoring precision
// over recall.

// schedulingKeywords signal that a message proposes or discusses a plan.
var schedulingKeywords = []string{
	// English
	"meet", "meeting", "meetup", "schedule", "scheduled", "plan", "plans",
	"appointment", "lunch", "dinner", "breakfast", "coffee", "hang out",
	"hangout", "get together", "see you", "come over", "join us",
	"available", "free tomorrow", "free today", "what time", "when are",
	// Hebrew
	"נפגש", "ניפגש", "להיפגש", "פגישה", "לקבוע", "נקבע", "קבענו",
	"מתי נ", "בא לך", "יוצאים", "נצא", "על האש", "ארוחת", "מסיבה",
	"אירוע", "תכנון", "מתוכנן", "נתראה", "תבוא", "תבואי", "מגיעים",
}

// availabilityPatterns are question shapes that imply scheduling when a
// time reference is also present.
var availabilityPatterns = []string{
	"are you free", "you free", "can you make", "does that work",
	"פנוי", "פנויה", "יכול להגיע", "יכולה להגיע", "מתאים לך", "יש לך זמן",
}

// urgencyKeywords mark a scheduling message as urgent.
var urgencyKeywords = []string{
	"urgent", "asap", "right now", "immediately", "hurry",
	"דחוף", "דחופה", "עכשיו", "מיד", "מהר",
}

// confirmationWords are short agreement tokens.
var confirmationWords = []string{
	"yes", "yeah", "yep", "sure", "ok", "okay", "confirmed", "sounds good",
	"deal", "done",
	"כן", "סבבה", "בטח", "מאשר", "מאשרת", "אישרתי", "סגור", "מעולה",
	"אין בעיה", "בסדר",
}

// relationshipTerms are person references that are not proper names.
var relationshipTerms = []string{
	"mom", "dad", "mother", "father", "brother", "sister", "friend",
	"grandma", "grandpa", "wife", "husband", "boss",
	"אמא", "אבא", "אח שלי", "אחות שלי", "חבר", "חברה", "סבתא", "סבא",
	"אשתי", "בעלי",
}

// venueTypes are generic place words in either language.
var venueTypes = []string{
	"restaurant", "cafe", "coffee shop", "bar", "pub", "park", "beach",
	"cinema", "mall", "gym", "office", "hotel", "club",
	"מסעדה", "קפה", "בית קפה", "בר", "פאב", "פארק", "חוף", "ים",
	"קולנוע", "קניון", "מכון", "משרד", "מלון", "מועדון", "בית",
}

// curatedNames is a small allow-list of common first names used by the
// person extractor alongside the capitalization heuristic.
var curatedNames = []string{
	"Yahav", "Noa", "Tamar", "Itay", "Omer", "Yuval", "Maya", "Daniel",
	"David", "Sarah", "Michael", "Rachel",
	"יהב", "נועה", "תמר", "איתי", "עומר", "יובל", "מאיה", "דניאל",
	"דוד", "שרה", "מיכאל", "רחל", "יוסי", "אורי", "רון", "גל",
}

// activityVocab maps activity category to its lookup terms.
var activityVocab = map[string][]string{
	"meal": {
		"lunch", "dinner", "breakfast", "brunch", "bbq", "barbecue",
		"ארוחה", "ארוחת ערב", "ארוחת צהריים", "ארוחת בוקר", "על האש",
	},
	"meeting": {
		"meeting", "appointment", "call", "sync",
		"פגישה", "שיחה", "ישיבה",
	},
	"entertainment": {
		"movie", "film", "concert", "show", "party", "game night",
		"סרט", "הופעה", "מסיבה", "הצגה",
	},
	"sport": {
		"workout", "run", "running", "football", "soccer", "basketball",
		"yoga", "swim",
		"אימון", "ריצה", "כדורגל", "כדורסל", "יוגה", "שחייה",
	},
	"shopping": {
		"shopping", "groceries",
		"קניות", "סופר",
	},
	"travel": {
		"trip", "flight", "vacation", "hike",
		"טיול", "טיסה", "חופשה", "נסיעה",
	},
}

// hebrewTimeWords are relative time expressions in Hebrew. The query layer
// maps these to canonical English; the extractor records them verbatim.
var hebrewTimeWords = []string{
	"היום", "מחר", "מחרתיים", "אתמול", "שלשום", "הערב", "בבוקר",
	"בצהריים", "אחר הצהריים", "בלילה", "השבוע", "בשבוע הבא",
	"בשבוע שעבר", "בסוף השבוע", "סופש",
}

// englishTimeWords back up the natural-language parser for expressions it
// may anchor mid-sentence.
var englishTimeWords = []string{
	"today", "tomorrow", "yesterday", "tonight", "this week", "next week",
	"last week", "this weekend", "next month",
}

// hebrewLocativePrefixes are single-letter prefixes that attach to place
// names (b- "in", l- "to").
var hebrewLocativePrefixes = []rune{'ב', 'ל'}

// latinStopwords are capitalized words that are never treated as names.
var latinStopwords = map[string]bool{
	"I": true, "The": true, "A": true, "An": true, "This": true,
	"That": true, "What": true, "When": true, "Where": true, "Who": true,
	"Why": true, "How": true, "Is": true, "Are": true, "Do": true,
	"Does": true, "Can": true, "Will": true, "Hi": true, "Hey": true,
	"Hello": true, "Ok": true, "Okay": true, "Yes": true, "No": true,
	"Me": true, "My": true, "We": true, "You": true, "He": true,
	"She": true, "They": true, "It": true, "If": true, "But": true,
	"And": true, "Or": true, "So": true, "On": true, "At": true,
	"In": true, "To": true, "For": true, "From": true, "With": true,
	"Monday": true, "Tuesday": true, "Wednesday": true, "Thursday": true,
	"Friday": true, "Saturday": true, "Sunday": true,
}

// urlKeywordPurposes maps context-window keywords to a URL purpose, used
// when the domain allow-list gives no answer.
var urlKeywordPurposes = []struct {
	keywords []string
	purpose  string
}{
	{[]string{"restaurant", "dinner", "lunch", "menu", "מסעדה", "תפריט", "אוכל"}, "restaurant"},
	{[]string{"movie", "film", "trailer", "סרט", "טריילר"}, "movie"},
	{[]string{"song", "music", "playlist", "video", "שיר", "מוזיקה", "קליפ"}, "media"},
	{[]string{"address", "location", "directions", "כתובת", "מיקום", "ניווט"}, "location"},
	{[]string{"post", "story", "profile", "פוסט", "סטורי", "פרופיל"}, "social"},
}

// urlDomainPurposes is the domain allow-list checked before keywords.
var urlDomainPurposes = map[string]string{
	"maps.google.com":  "location",
	"goo.gl":           "location",
	"waze.com":         "location",
	"youtube.com":      "media",
	"youtu.be":         "media",
	"spotify.com":      "media",
	"soundcloud.com":   "media",
	"netflix.com":      "movie",
	"imdb.com":         "movie",
	"instagram.com":    "social",
	"facebook.com":     "social",
	"twitter.com":      "social",
	"x.com":            "social",
	"tiktok.com":       "social",
	"linkedin.com":     "social",
	"wolt.com":         "restaurant",
	"10bis.co.il":      "restaurant",
	"tabit.cloud":      "restaurant",
	"ontopo.com":       "restaurant",
	"rest.co.il":       "restaurant",
	"tripadvisor.com":  "restaurant",
}
