package dialog

import (
	"fmt"
	"time"
)

var frenchDays = [...]string{
	"dimanche", "lundi", "mardi", "mercredi", "jeudi", "vendredi", "samedi",
}

var frenchMonths = [...]string{
	"janvier", "février", "mars", "avril", "mai", "juin",
	"juillet", "août", "septembre", "octobre", "novembre", "décembre",
}

// speakTime renders a slot the way it should be read out loud.
func speakTime(t time.Time) string {
	day := frenchDays[int(t.Weekday())]
	month := frenchMonths[int(t.Month())-1]
	if t.Minute() == 0 {
		return fmt.Sprintf("%s %d %s à %d heures", day, t.Day(), month, t.Hour())
	}
	return fmt.Sprintf("%s %d %s à %d heures %02d", day, t.Day(), month, t.Hour(), t.Minute())
}
