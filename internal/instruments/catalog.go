package instruments

// builtinInstruments is the canonical instrument table. Order matters: it
// breaks ties in fuzzy matching, and no alias may appear twice.
var builtinInstruments = []Instrument{
	// Woodwinds
	{Name: "Piccolo", Transposition: TranspositionC, Section: SectionWoodwinds, Aliases: []string{"piccolo", "picc", "piccolo flute", "plccolo"}},
	{Name: "Flute", Transposition: TranspositionC, Section: SectionWoodwinds, Aliases: []string{"flute", "flutes", "fl.", "f1ute", "flauto"}},
	{Name: "Alto Flute", Transposition: TranspositionG, Section: SectionWoodwinds, Aliases: []string{"alto flute", "flute in g"}},
	{Name: "Oboe", Transposition: TranspositionC, Section: SectionWoodwinds, Aliases: []string{"oboe", "oboes", "ob0e"}},
	{Name: "English Horn", Transposition: TranspositionF, Section: SectionWoodwinds, Aliases: []string{"english horn", "cor anglais", "eng. horn", "englis horn"}},
	{Name: "Bassoon", Transposition: TranspositionC, Section: SectionWoodwinds, Aliases: []string{"bassoon", "bassoons", "bsn", "fagotto", "bass00n"}},
	{Name: "Contrabassoon", Transposition: TranspositionC, Section: SectionWoodwinds, Aliases: []string{"contrabassoon", "contra bassoon", "double bassoon"}},
	{Name: "Eb Clarinet", Transposition: TranspositionEb, Section: SectionWoodwinds, Aliases: []string{"eb clarinet", "e-flat clarinet", "e flat clarinet", "clarinet in eb", "eb clar", "e♭ clarinet"}},
	{Name: "Bb Clarinet", Transposition: TranspositionBb, Section: SectionWoodwinds, Aliases: []string{"clarinet", "clarinets", "bb clarinet", "b-flat clarinet", "b flat clarinet", "clarinet in bb", "b♭ clarinet", "clar", "c1arinet", "clarinct"}},
	{Name: "A Clarinet", Transposition: TranspositionA, Section: SectionWoodwinds, Aliases: []string{"a clarinet", "clarinet in a"}},
	{Name: "Alto Clarinet", Transposition: TranspositionEb, Section: SectionWoodwinds, Aliases: []string{"alto clarinet", "eb alto clarinet", "alto clar"}},
	{Name: "Bass Clarinet", Transposition: TranspositionBb, Section: SectionWoodwinds, Aliases: []string{"bass clarinet", "bb bass clarinet", "bass clar", "b. cl.", "bass c1arinet"}},
	{Name: "Contrabass Clarinet", Transposition: TranspositionBb, Section: SectionWoodwinds, Aliases: []string{"contrabass clarinet", "contra bass clarinet", "contra-alto clarinet"}},
	{Name: "Soprano Saxophone", Transposition: TranspositionBb, Section: SectionWoodwinds, Aliases: []string{"soprano saxophone", "soprano sax", "sop sax", "bb soprano saxophone"}},
	{Name: "Alto Saxophone", Transposition: TranspositionEb, Section: SectionWoodwinds, Aliases: []string{"alto saxophone", "alto sax", "eb alto saxophone", "alto saxophon", "a. sax"}},
	{Name: "Tenor Saxophone", Transposition: TranspositionBb, Section: SectionWoodwinds, Aliases: []string{"tenor saxophone", "tenor sax", "bb tenor saxophone", "tenor saxophon", "t. sax"}},
	{Name: "Baritone Saxophone", Transposition: TranspositionEb, Section: SectionWoodwinds, Aliases: []string{"baritone saxophone", "baritone sax", "bari sax", "eb baritone saxophone", "b. sax"}},
	{Name: "Bass Saxophone", Transposition: TranspositionBb, Section: SectionWoodwinds, Aliases: []string{"bass saxophone", "bass sax"}},

	// Brass
	{Name: "Bb Trumpet", Transposition: TranspositionBb, Section: SectionBrass, Aliases: []string{"trumpet", "trumpets", "bb trumpet", "b-flat trumpet", "trumpet in bb", "tpt", "trpt", "trumpct", "b♭ trumpet"}},
	{Name: "D Trumpet", Transposition: TranspositionD, Section: SectionBrass, Aliases: []string{"trumpet in d", "piccolo trumpet in d"}},
	{Name: "Cornet", Transposition: TranspositionBb, Section: SectionBrass, Aliases: []string{"cornet", "cornets", "bb cornet", "c0rnet"}},
	{Name: "Flugelhorn", Transposition: TranspositionBb, Section: SectionBrass, Aliases: []string{"flugelhorn", "flugel horn", "flügelhorn", "fluegelhorn"}},
	{Name: "Horn in F", Transposition: TranspositionF, Section: SectionBrass, Aliases: []string{"horn", "horns", "french horn", "horn in f", "f horn", "hn.", "corno"}},
	{Name: "Trombone", Transposition: TranspositionC, Section: SectionBrass, Aliases: []string{"trombone", "trombones", "tbn", "trb", "tromb0ne", "tenor trombone"}},
	{Name: "Bass Trombone", Transposition: TranspositionC, Section: SectionBrass, Aliases: []string{"bass trombone", "bass tbn", "b. tbn"}},
	{Name: "Euphonium", Transposition: TranspositionC, Section: SectionBrass, Aliases: []string{"euphonium", "euph", "euphonlum", "baritone b.c.", "baritone bc"}},
	{Name: "Baritone T.C.", Transposition: TranspositionBb, Section: SectionBrass, Aliases: []string{"baritone t.c.", "baritone tc", "euphonium t.c.", "euphonium tc", "baritone treble clef"}},
	{Name: "Tuba", Transposition: TranspositionC, Section: SectionBrass, Aliases: []string{"tuba", "tubas", "sousaphone", "bass tuba"}},

	// Percussion
	{Name: "Timpani", Transposition: TranspositionC, Section: SectionPercussion, Aliases: []string{"timpani", "timp", "kettle drums", "tympani", "tirnpani"}},
	{Name: "Snare Drum", Transposition: TranspositionC, Section: SectionPercussion, Aliases: []string{"snare drum", "snare", "s.d."}},
	{Name: "Bass Drum", Transposition: TranspositionC, Section: SectionPercussion, Aliases: []string{"bass drum", "b.d.", "gran cassa"}},
	{Name: "Cymbals", Transposition: TranspositionC, Section: SectionPercussion, Aliases: []string{"cymbals", "cymbal", "crash cymbals", "suspended cymbal"}},
	{Name: "Drum Set", Transposition: TranspositionC, Section: SectionPercussion, Aliases: []string{"drum set", "drumset", "drum kit", "drums"}},
	{Name: "Mallet Percussion", Transposition: TranspositionC, Section: SectionPercussion, Aliases: []string{"mallet percussion", "mallets", "bells", "orchestra bells"}},
	{Name: "Glockenspiel", Transposition: TranspositionC, Section: SectionPercussion, Aliases: []string{"glockenspiel", "glock"}},
	{Name: "Xylophone", Transposition: TranspositionC, Section: SectionPercussion, Aliases: []string{"xylophone", "xylo"}},
	{Name: "Marimba", Transposition: TranspositionC, Section: SectionPercussion, Aliases: []string{"marimba"}},
	{Name: "Vibraphone", Transposition: TranspositionC, Section: SectionPercussion, Aliases: []string{"vibraphone", "vibes", "vibraphon"}},
	{Name: "Chimes", Transposition: TranspositionC, Section: SectionPercussion, Aliases: []string{"chimes", "tubular bells"}},
	{Name: "Auxiliary Percussion", Transposition: TranspositionC, Section: SectionPercussion, Aliases: []string{"percussion", "perc", "auxiliary percussion", "aux percussion", "aux. perc"}},

	// Strings
	{Name: "Violin", Transposition: TranspositionC, Section: SectionStrings, Aliases: []string{"violin", "violins", "vln", "vl.", "vio1in"}},
	{Name: "Viola", Transposition: TranspositionC, Section: SectionStrings, Aliases: []string{"viola", "violas", "vla"}},
	{Name: "Cello", Transposition: TranspositionC, Section: SectionStrings, Aliases: []string{"cello", "cellos", "violoncello", "vc."}},
	{Name: "Double Bass", Transposition: TranspositionC, Section: SectionStrings, Aliases: []string{"double bass", "string bass", "contrabass", "upright bass", "bass viol"}},
	{Name: "Harp", Transposition: TranspositionC, Section: SectionStrings, Aliases: []string{"harp", "harpe"}},
	{Name: "Guitar", Transposition: TranspositionC, Section: SectionStrings, Aliases: []string{"guitar", "acoustic guitar", "electric guitar", "gtr"}},
	{Name: "Bass Guitar", Transposition: TranspositionC, Section: SectionStrings, Aliases: []string{"bass guitar", "electric bass", "e. bass"}},

	// Keyboard
	{Name: "Piano", Transposition: TranspositionC, Section: SectionKeyboard, Aliases: []string{"piano", "pianoforte", "pno", "keyboard"}},
	{Name: "Organ", Transposition: TranspositionC, Section: SectionKeyboard, Aliases: []string{"organ", "pipe organ"}},
	{Name: "Celesta", Transposition: TranspositionC, Section: SectionKeyboard, Aliases: []string{"celesta", "celeste"}},
	{Name: "Synthesizer", Transposition: TranspositionC, Section: SectionKeyboard, Aliases: []string{"synthesizer", "synth"}},

	// Vocals
	{Name: "Soprano", Transposition: TranspositionC, Section: SectionVocals, Aliases: []string{"soprano", "soprano voice"}},
	{Name: "Alto", Transposition: TranspositionC, Section: SectionVocals, Aliases: []string{"alto", "alto voice", "contralto"}},
	{Name: "Tenor", Transposition: TranspositionC, Section: SectionVocals, Aliases: []string{"tenor", "tenor voice"}},
	{Name: "Baritone Voice", Transposition: TranspositionC, Section: SectionVocals, Aliases: []string{"baritone voice"}},
	{Name: "Bass Voice", Transposition: TranspositionC, Section: SectionVocals, Aliases: []string{"bass voice", "basso"}},
	{Name: "Choir", Transposition: TranspositionC, Section: SectionVocals, Aliases: []string{"choir", "chorus", "satb", "vocal"}},

	// Score
	{Name: "Full Score", Transposition: TranspositionC, Section: SectionScore, Aliases: []string{"full score", "score", "partitur"}},
	{Name: "Conductor Score", Transposition: TranspositionC, Section: SectionScore, Aliases: []string{"conductor score", "conductor", "conductor's score", "director"}},
	{Name: "Condensed Score", Transposition: TranspositionC, Section: SectionScore, Aliases: []string{"condensed score", "piano conductor", "short score"}},
}
