package analysis

func set(ws ...string) map[string]struct{} {
	m := make(map[string]struct{}, len(ws))
	for _, w := range ws {
		m[w] = struct{}{}
	}
	return m
}

var positiveWords = set(
	"gain", "gains", "gained", "rise", "rises", "rose", "surge", "surged", "surges", "soar", "soared",
	"growth", "grow", "grew", "profit", "profits", "profitable", "record", "boost", "boosted",
	"improve", "improved", "improves", "improvement", "recovery", "recover", "recovered", "strong",
	"stronger", "success", "successful", "win", "wins", "won", "victory", "agreement", "deal",
	"approve", "approved", "praise", "praised", "celebrate", "celebrated", "optimistic", "optimism",
	"good", "great", "excellent", "positive", "benefit", "benefits", "breakthrough", "rally",
	"rallied", "upbeat", "expand", "expanded", "expansion", "launch", "launched", "innovative",
	"peace", "safe", "secure", "welcome", "welcomed", "happy", "hope", "hopeful", "wonderful",
	"best", "better", "outperform", "outperformed", "beat", "upgrade", "upgraded", "thrive",
)

var negativeWords = set(
	"loss", "losses", "lost", "fall", "falls", "fell", "drop", "drops", "dropped", "plunge",
	"plunged", "slump", "slumped", "slide", "slid", "decline", "declined", "crash", "crashed",
	"crisis", "fraud", "scandal", "probe", "investigation", "allegation", "allegations", "alleged",
	"accused", "charges", "charged", "lawsuit", "sued", "fined", "penalty", "ban", "banned",
	"bankrupt", "bankruptcy", "default", "debt", "layoffs", "layoff", "cuts", "slash",
	"slashed", "weak", "weaker", "fail", "failed", "failure", "collapse", "collapsed", "risk",
	"risks", "warning", "warn", "warned", "threat", "threats", "attack", "attacked", "killed",
	"dead", "death", "deaths", "war", "conflict", "violence", "protest", "protests", "strike",
	"angry", "anger", "concern", "concerns", "worry", "worries", "fear", "fears", "bad", "worst",
	"worse", "negative", "terrible", "disappointing", "disappointed", "downgrade", "downgraded",
	"selloff", "volatile", "volatility", "recession", "inflation", "shortage",
	"corruption", "manipulation", "hate", "wrong", "rout", "tumble", "tumbled",
)

var negators = set(
	"not", "no", "never", "without", "neither", "nor", "hardly", "barely",
	"isn't", "wasn't", "aren't", "weren't", "don't", "doesn't", "didn't", "won't", "can't",
	"cannot", "couldn't", "shouldn't", "wouldn't",
)

var leftCues = []string{
	"social justice", "climate crisis", "income inequality", "wealth tax", "workers' rights",
	"progressive", "systemic racism", "living wage", "universal healthcare", "corporate greed",
	"gun control", "reproductive rights", "marginalized communities", "tax the rich",
	"union busting", "green new deal", "climate justice", "billionaires",
}

var rightCues = []string{
	"border security", "illegal immigrants", "illegal aliens", "tax relief", "big government",
	"free market", "law and order", "traditional values", "radical left", "woke",
	"second amendment", "job creators", "government overreach", "religious liberty",
	"energy independence", "socialist", "patriots", "deregulation",
}

var stopCapitalized = set(
	"the", "a", "an", "in", "on", "at", "for", "and", "but", "or", "of", "to", "by", "with",
	"from", "as", "it", "its", "this", "that", "these", "those", "he", "she", "they", "we",
	"i", "you", "his", "her", "their", "our", "after", "before", "while", "when", "if",
	"meanwhile", "however", "also", "there", "here", "what", "who", "why", "how", "monday",
	"tuesday", "wednesday", "thursday", "friday", "saturday", "sunday", "january", "february",
	"march", "april", "may", "june", "july", "august", "september", "october", "november",
	"december", "today", "yesterday", "according", "shares", "but", "so", "yet", "said",
)

var honorifics = set(
	"mr", "mrs", "ms", "dr", "prof", "president", "minister", "senator", "sen", "rep",
	"governor", "gov", "chairman", "ceo", "judge", "justice", "king", "queen", "prince",
	"princess", "sir", "lord", "pope", "general", "gen", "chancellor", "premier", "mayor",
)

var orgSuffixes = set(
	"inc", "corp", "corporation", "ltd", "limited", "llc", "plc", "group", "bank", "company",
	"co", "holdings", "industries", "enterprises", "ministry", "department", "university",
	"association", "party", "council", "agency", "commission", "committee", "institute",
	"foundation", "fund", "board", "court", "times", "post", "news", "exchange", "airlines",
	"motors", "technologies", "systems", "partners", "capital", "securities", "energy", "ports",
)

var knownOrganizations = set(
	"reuters", "bloomberg", "sebi", "nasdaq", "nyse", "opec", "nato", "un", "eu", "imf", "who",
	"fbi", "sec", "google", "apple", "microsoft", "amazon", "tesla", "meta", "nvidia", "hindenburg",
)

var knownLocations = set(
	"india", "china", "usa", "us", "u.s", "uk", "u.k", "britain", "england", "france", "germany",
	"japan", "russia", "ukraine", "israel", "gaza", "iran", "pakistan", "canada", "mexico",
	"brazil", "australia", "europe", "asia", "africa", "america", "washington", "london",
	"paris", "berlin", "tokyo", "beijing", "moscow", "kyiv", "delhi", "new delhi", "mumbai",
	"new york", "california", "texas", "gujarat", "singapore", "dubai", "hong kong",
	"united states", "united kingdom", "south africa", "south korea", "north korea",
)
