package decoder

// Closing is appended to every reading.
const Closing = "IMPORTANTE: Esta pista es solo el comienzo. Para desactivar el programa biológico, debemos viajar al momento exacto del trauma en una sesión personalizada."

var defaultBundle = Bundle{
	Title:       "Estrés en Soledad",
	Core:        "Tu biología está gestionando una carga emocional que la mente consciente ha ignorado. El síntoma es la respuesta de adaptación a un estrés vivido en soledad.",
	Hook:        "¿Qué situación inesperada viviste recientemente que te dejó sin recursos para reaccionar?",
	ConflictTag: "Estrés vivido en soledad",
	Badge:       "Programa Activo",
}

// Order matters: broad fragments such as "ver" or "tos" resolve to
// whichever rule is declared first.
var defaultRules = []Rule{
	rule("cabeza", `cabeza|migraña|cefalea|cerebro|mente`, Bundle{
		Title:       "Desvalorización Intelectual",
		Core:        "Conflicto de desvalorización intelectual. Sucede cuando 'calentamos' la mente buscando una salida racional a un problema emocional, o cuando nos juzgamos duramente.",
		Hook:        "¿Estás controlando cada detalle para evitar un error, o te criticas despiadadamente por una decisión tomada?",
		ConflictTag: "Desvalorización intelectual",
		Badge:       "Sistema Nervioso",
	}),
	rule("estomago", `est[oó]mago|panza|digest|indigest|acidez|gastritis|reflujo|v[oó]mito`, Bundle{
		Title:       "Bocado Indigesto",
		Core:        "Conflicto de 'bocado indigesto'. Has tenido que aceptar ('tragar') una situación, palabra o acción que consideras inaceptable, tóxica o injusta.",
		Hook:        "¿Qué 'sapo' te has tenido que tragar recientemente en tu entorno familiar o laboral para evitar una guerra mayor?",
		ConflictTag: "Bocado indigesto",
		Badge:       "Sistema Digestivo",
	}),
	rule("higado", `h[ií]gado|bilis|colesterol|grasa|hepat`, Bundle{
		Title:       "Miedo a la Carencia",
		Core:        "Miedo profundo a la carencia. El hígado es el laboratorio del cuerpo; acumula reservas cuando el inconsciente percibe que 'faltará' alimento, dinero o fe.",
		Hook:        "¿Te preocupa obsesivamente la estabilidad económica de tu familia o sientes que te falta el sustento esencial?",
		ConflictTag: "Miedo a la carencia",
		Badge:       "Metabolismo",
	}),
	rule("garganta", `garganta|tos|laringe|faringe|tiroides|voz|ahogo|anginas`, Bundle{
		Title:       "Presa Atrapada",
		Core:        "Conflicto de la 'presa atrapada'. Palabras que se quedaron en el umbral, gritos ahogados, o la imposibilidad de atrapar (o escupir) algo vital.",
		Hook:        "¿Qué es eso tan importante que no te atreviste a decir, o que dijiste y ahora te arrepientes profundamente?",
		ConflictTag: "Presa atrapada",
		Badge:       "Vías Altas",
	}),
	rule("pulmon", `pulm[oó]n|respir|aire|asma|bronqui|neumo`, Bundle{
		Title:       "Amenaza al Territorio",
		Core:        "Amenaza en el territorio o miedo arcaico a morir. Sentir que alguien nos asfixia, nos invade o nos quita el aire vital.",
		Hook:        "¿Quién está invadiendo tu espacio personal de forma que sientes que te falta el aire para ser tú mismo?",
		ConflictTag: "Miedo a morir en el territorio",
		Badge:       "Sistema Respiratorio",
	}),
	rule("rinon", `ri[ñn][oó]n|orina|cistitis|l[ií]quido|renal|calculo`, Bundle{
		Title:       "Conflicto de Liquidez",
		Core:        "Conflicto de liquidez y referentes. Sentirse como 'pez fuera del agua', desmoronado, sin puntos de apoyo firmes, o miedo a perderlo todo.",
		Hook:        "¿Te has sentido solo ante el peligro, abandonado a tu suerte o has perdido tus puntos de referencia vitales?",
		ConflictTag: "Liquidez y referentes",
		Badge:       "Sistema Renal",
	}),
	rule("piel", `piel|dermis|eczem|alergia|urticaria|grano|acn[eé]|psoriasis|ronchas`, Bundle{
		Title:       "Separación y Contacto",
		Core:        "Conflicto de separación o contacto impuesto. La piel duele donde nos falta una caricia deseada, o donde hemos recibido un contacto desagradable.",
		Hook:        "¿A quién extrañas tocar desesperadamente, o de quién te gustaría separarte pero convives a diario obligadamente?",
		ConflictTag: "Separación o contacto impuesto",
		Badge:       "Piel",
	}),
	rule("hueso", `hueso|articul|rodilla|hombro|codo|artritis|osteoporo|reuma|cadera|columna`, Bundle{
		Title:       "Desvalorización Profunda",
		Core:        "Desvalorización profunda del ser. 'No valgo', 'no soy capaz', 'no puedo soportar esta carga'. El hueso se afecta cuando perdemos valor ante nuestros propios ojos.",
		Hook:        "¿En qué pilar fundamental de tu vida sientes que te estás desmoronando o que no eres capaz de 'dar la talla'?",
		ConflictTag: "Desvalorización del ser",
		Badge:       "Sistema Óseo",
	}),
	rule("musculo", `músculo|fibro|calambre|tendi|contractura|pierna|brazo`, Bundle{
		Title:       "Impotencia en la Acción",
		Core:        "Impotencia en la acción. La energía para luchar o huir se ha bloqueado. 'Quiero golpear y no puedo', 'quiero irme y debo quedarme'.",
		Hook:        "¿Hacia dónde te impulsa tu instinto biológico, pero tu mente racional te frena en seco?",
		ConflictTag: "Impotencia en la acción",
		Badge:       "Sistema Muscular",
	}),
	rule("corazon", `coraz[oó]n|taquicardia|presi[oó]n|hipertensi[oó]n|sangre|cardi`, Bundle{
		Title:       "Amor y Territorio",
		Core:        "Desvalorización por amor o territorio. El corazón bombea la vida (sangre/familia). Conflictos de 'quiero que alguien vuelva a casa' o 'quiero defender mi territorio'.",
		Hook:        "¿Por quién te duele el corazón, o qué miembro de la familia te está exigiendo un esfuerzo sobrehumano para mantener la unión?",
		ConflictTag: "Desvalorización por amor",
		Badge:       "Sistema Cardiovascular",
	}),
	rule("ojos", `ojo|vis|ver|mio|astigmat|lentes|ciego`, Bundle{
		Title:       "Negación Visual",
		Core:        "Miedo en la nuca (peligro por detrás) o negación visual. 'No quiero ver lo que pasa en mi casa', o 'tengo miedo de perder de vista a alguien'.",
		Hook:        "¿Qué realidad dolorosa tienes delante de tus narices y prefieres ignorar para no sufrir?",
		ConflictTag: "Negación visual",
		Badge:       "Visión",
	}),
	rule("oido", `o[ií]do|sorder|zumbido|tinnitus|vertigo|v[eé]rtigo|escuchar`, Bundle{
		Title:       "Conflicto de Audición",
		Core:        "Conflicto de audición. 'No puedo creer lo que oigo'. Palabras tóxicas, críticas constantes, o un silencio sepulcral donde debería haber una voz.",
		Hook:        "¿Qué frase hiriente se repite en tu cabeza, o qué 'te quiero' estás esperando y nunca llega?",
		ConflictTag: "No puedo creer lo que oigo",
		Badge:       "Audición",
	}),
	rule("boca", `diente|muela|boca|mand[ií]bula|enc[ií]a`, Bundle{
		Title:       "Agresividad Contenida",
		Core:        "Conflicto de agresividad contenida. No poder 'mostrar los dientes'. Dificultad para atrapar lo que es tuyo o defenderte de una agresión.",
		Hook:        "¿A quién tienes ganas de morder (defenderte) pero te obligas a sonreír por educación o sumisión?",
		ConflictTag: "Agresividad contenida",
		Badge:       "Boca y Dientes",
	}),
	rule("femenino", `mujer|ovario|utero|menstru|regla|seno|mama|vagina|candid`, Bundle{
		Title:       "Identidad Femenina",
		Core:        "Conflicto de identidad femenina, pérdida o nido. Problemas en la relación con la pareja, los hijos o la propia feminidad/sexualidad.",
		Hook:        "¿Sientes que tu rol de mujer o madre está en entredicho, o has vivido un conflicto de separación con un hijo o pareja?",
		ConflictTag: "Identidad femenina y nido",
		Badge:       "Sistema Reproductor",
	}),
	rule("masculino", `hombre|test[ií]culo|prostata|pr[óo]stata|pene|erecci[oó]n`, Bundle{
		Title:       "Identidad Masculina",
		Core:        "Conflicto de identidad masculina, potencia o territorio. Miedo a no ser suficiente hombre para proteger el clan o satisfacer a la pareja.",
		Hook:        "¿En qué situación sientes que has perdido tu poder o que no eres respetado como la autoridad en tu territorio?",
		ConflictTag: "Potencia y territorio",
		Badge:       "Sistema Reproductor",
	}),
}

// DefaultClassifier returns the classifier loaded with the page's rule table.
func DefaultClassifier() *Classifier {
	return NewClassifier(defaultRules, defaultBundle)
}

// DefaultBundle is the reading returned when no rule matches.
func DefaultBundle() Bundle {
	return defaultBundle
}
