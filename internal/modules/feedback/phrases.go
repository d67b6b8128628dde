package feedback

import types "github.com/yungbote/fynix-backend/internal/domain/feed"

type Surface string

const (
	SurfaceFeed     Surface = "feed"
	SurfaceMaterial Surface = "material"
)

type localized struct {
	feedRight, feedWrong         string
	materialRight, materialWrong string
	perfect, great, solid, low   string
	roastMild                    []string
	roastMedium                  []string
	roastHard                    []string
}

var german = localized{
	feedRight:     "Richtig! 🎉",
	feedWrong:     "Leider falsch 💀",
	materialRight: "✅ Richtig!",
	materialWrong: "❌ Leider falsch",
	perfect:       "Perfekt! Alles richtig – du hast den Stoff drauf! 🏆",
	great:         "Sehr gut! Fast alles richtig, nur Kleinigkeiten üben! 💪",
	solid:         "Solide Leistung! Schau dir die Fehler nochmal an. 📖",
	low:           "Da ist noch Luft nach oben – übe die Themen nochmal durch! 📚",
	roastMild: []string{
		"Kein Ding, beim nächsten Mal sitzt's! 🙂",
		"Knapp daneben ist auch vorbei, aber du lernst!",
		"Fehler sind nur Zwischenschritte. Weiter geht's!",
	},
	roastMedium: []string{
		"Autsch. Das tat sogar mir weh. 😅",
		"Mutig geraten, leider falsch geraten.",
		"Dein Gehirn hat kurz Pause gemacht, oder?",
	},
	roastHard: []string{
		"Wow. Das war… kreativ. 💀",
		"Selbst mein Toaster hätte das gewusst.",
		"Ich sag's mal so: Dein Schulbuch vermisst dich.",
	},
}

var english = localized{
	feedRight:     "Correct! 🎉",
	feedWrong:     "Wrong 💀",
	materialRight: "✅ Correct!",
	materialWrong: "❌ Wrong",
	perfect:       "Perfect! All correct, you've nailed it! 🏆",
	great:         "Great job! Almost everything right, just polish the details! 💪",
	solid:         "Solid work! Take another look at your mistakes. 📖",
	low:           "There's room to grow, go over these topics again! 📚",
	roastMild: []string{
		"No worries, you'll get it next time! 🙂",
		"Close, but not quite. You're learning!",
		"Mistakes are just stepping stones. Keep going!",
	},
	roastMedium: []string{
		"Ouch. That even hurt me. 😅",
		"Bold guess, wrong guess.",
		"Did your brain just take a coffee break?",
	},
	roastHard: []string{
		"Wow. That was… creative. 💀",
		"Even my toaster knew that one.",
		"Let's just say your textbook misses you.",
	},
}

func phrasesFor(language string) localized {
	if types.LanguageBase(language) == "de" {
		return german
	}
	return english
}

// roastLines maps roast levels 1-2 to mild, 3 to medium and 4-5 to hard.
// Level 0 has no roast.
func (l localized) roastLines(level int) []string {
	switch {
	case level <= 0:
		return nil
	case level <= 2:
		return l.roastMild
	case level == 3:
		return l.roastMedium
	default:
		return l.roastHard
	}
}
