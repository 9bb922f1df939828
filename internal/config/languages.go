package config

// SupportedLanguages maps the accepted language codes to display names.
var SupportedLanguages = map[string]string{
	"auto": "Auto-detect",
	"en":   "English",
	"pt":   "Portuguese",
	"es":   "Spanish",
	"fr":   "French",
	"de":   "German",
	"it":   "Italian",
	"nl":   "Dutch",
	"pl":   "Polish",
	"ru":   "Russian",
	"zh":   "Chinese",
	"ja":   "Japanese",
	"ko":   "Korean",
	"ar":   "Arabic",
	"hi":   "Hindi",
	"tr":   "Turkish",
	"vi":   "Vietnamese",
	"th":   "Thai",
	"id":   "Indonesian",
	"ms":   "Malay",
	"tl":   "Tagalog",
	"uk":   "Ukrainian",
	"cs":   "Czech",
	"ro":   "Romanian",
	"hu":   "Hungarian",
	"el":   "Greek",
	"sv":   "Swedish",
	"da":   "Danish",
	"fi":   "Finnish",
	"no":   "Norwegian",
	"he":   "Hebrew",
	"bg":   "Bulgarian",
	"hr":   "Croatian",
	"sk":   "Slovak",
	"sl":   "Slovenian",
	"lt":   "Lithuanian",
	"lv":   "Latvian",
	"et":   "Estonian",
	"ca":   "Catalan",
	"gl":   "Galician",
	"eu":   "Basque",
	"cy":   "Welsh",
	"af":   "Afrikaans",
	"sw":   "Swahili",
	"ta":   "Tamil",
	"te":   "Telugu",
	"ml":   "Malayalam",
	"bn":   "Bengali",
	"ur":   "Urdu",
	"fa":   "Persian",
}
