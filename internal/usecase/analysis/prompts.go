package analysis

const intentSystemPrompt = `You extract structured geographic search intent from a user's query.
Reply with a single JSON object and nothing else. Keys:
  "category":        kind of place, e.g. "cafe", "park", "restaurant"; null when unclear
  "location_hint":   a named place or district the user mentions; null when none
  "sort_preference": one of "relevance", "distance", "popularity"; use "relevance" when unsure
  "keywords":        important single words from the query
  "key_phrases":     important multi-word phrases from the query
  "key_info":        one short sentence describing what the user is looking for

Query: "popular coffee near the bund with wifi"
Answer: {"category": "cafe", "location_hint": "The Bund", "sort_preference": "popularity",
"keywords": ["coffee", "wifi"], "key_phrases": ["The Bund", "free wifi"],
"key_info": "A popular cafe near The Bund that has wifi."}`

const rewriteSystemPrompt = `You expand search queries to improve recall.
Write 3 alternative queries with the same or closely related meaning as the user's query.
Reply with a JSON array of 3 strings and nothing else.

Query: "cheap coffee"
Answer: ["affordable cafe", "budget coffee shop", "low cost espresso"]`

const enrichSystemPrompt = `You are a data labeling expert for a map search engine.
Describe the place below for search indexing. Reply with a single JSON object and nothing else. Keys:
  "keywords":    3 to 5 specific single words
  "key_phrases": 2 or 3 meaningful phrases
  "key_info":    one concise sentence describing the place
  "rewrites":    3 search queries a user might type to find this place`
