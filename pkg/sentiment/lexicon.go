package sentiment

// Weighted emoji tables. The weight reflects intensity: one rage emoji
// outweighs one mild-amusement emoji.
var positiveEmojis = map[string]float64{
	// Happy faces
	"😀": 1, "😃": 1, "😄": 1, "😁": 1, "😆": 1, "😊": 1, "🥰": 1.5,
	"😍": 1.5, "🤩": 1.5, "☺️": 1, "😉": 0.5, "😋": 0.5, "😎": 1,
	"🥳": 1.5, "😏": 0.3, "🙂": 0.5, "😌": 0.5, "🤗": 1, "😇": 1,
	// Positive gestures
	"👍": 1, "👏": 1, "🙌": 1.5, "🤝": 1, "✌️": 0.5, "🤞": 0.5,
	"💪": 1, "👌": 1, "🫡": 0.5,
	// Hearts
	"❤️": 1.5, "🧡": 1, "💛": 1, "💚": 1, "💙": 1, "💜": 1,
	"🖤": 0.5, "🤍": 0.5, "💕": 1.5, "💖": 1.5, "💗": 1, "💘": 1,
	"💝": 1.5, "❤️‍🔥": 1.5, "♥️": 1,
	// Celebration
	"🎉": 1.5, "🎊": 1.5, "🎆": 1, "🎇": 1, "✨": 1, "🌟": 1,
	"⭐": 1, "🏆": 1.5, "🥇": 1.5, "🎯": 1, "🏅": 1,
	// Laughter
	"😂": 1, "🤣": 1, "😹": 1,
	// Approval
	"✅": 1, "✔️": 1, "🆗": 0.5, "💯": 1.5, "🔝": 1,
	// Other positives
	"🚀": 1, "💡": 0.5, "🙏": 1, "🌈": 0.5, "☀️": 0.5,
	"🌻": 0.5, "🎶": 0.5, "💐": 1, "🌹": 1,
}

var negativeEmojis = map[string]float64{
	// Sad / angry faces
	"😢": 1, "😭": 1.5, "😞": 1, "😔": 1, "😟": 1, "🙁": 1,
	"☹️": 1, "😣": 1, "😖": 1, "😫": 1.5, "😩": 1.5, "🥺": 0.5,
	"😤": 1.5, "😡": 2, "🤬": 2.5, "😠": 1.5, "🤢": 1, "🤮": 1.5,
	"😰": 1, "😨": 1, "😱": 1.5, "😵": 1, "😵‍💫": 1, "🥴": 0.5,
	"😷": 0.5, "🤒": 0.5, "🤕": 0.5, "😑": 0.5, "😒": 1,
	"🙄": 1, "😪": 0.5, "😮‍💨": 1, "💀": 1, "☠️": 1, "🤡": 1.5,
	// Negative gestures
	"👎": 1.5, "🖕": 2, "🤦": 1, "🤦‍♂️": 1, "🤦‍♀️": 1,
	// Negative symbols
	"❌": 1.5, "⛔": 1, "🚫": 1, "❗": 0.5, "‼️": 1, "⚠️": 0.5,
	"🔴": 0.5, "💔": 1.5, "🩹": 0.5, "📉": 1,
	// Other negatives
	"🗑️": 1, "💩": 1.5, "🤷": 0.5, "🤷‍♂️": 0.5, "🤷‍♀️": 0.5,
	"😬": 0.5, "🫠": 0.5, "🫤": 0.5, "😶": 0.3,
	// Fire reads negative in complaint threads
	"🔥": 0.3,
}

// Word lexicons, tuned for Spanish complaints about tax platforms. Entries
// may be multi-word phrases and are matched as case-insensitive substrings.
var negativeWords = []string{
	"error", "problema", "falla", "no funciona", "caída", "lento",
	"imposible", "frustración", "queja", "demora", "bug", "reclamo",
	"horrible", "pésimo", "desastre", "inútil", "vergüenza", "mal",
	"peor", "molesta", "odio", "bronca", "cansado", "harto",
	"no puedo", "no anda", "se cayó", "no carga", "no sirve",
	"traba", "cuelga", "actualización", "incompatible", "rechazado",
	"vencido", "multa", "intimación", "deuda", "apremio", "eliminar",
	"lastre", "lentisimo", "lpqlp", "carreta", "no funcione",
	"no cambia", "elimine", "feroces", "no tienen bolas", "dinosaurios",
	"robo", "roba", "enano", "privilegios", "mierda", "renegando",
	"faltan huevos", "demencial",
}

var positiveWords = []string{
	"excelente", "genial", "muy bien", "rápido", "fácil",
	"perfecto", "útil", "práctico", "mejoró", "mejor",
	"bueno", "correcto", "ok",
}
