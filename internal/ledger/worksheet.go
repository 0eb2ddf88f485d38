package ledger

import (
	"fmt"
	"time"
)

var monthNames = [12]string{
	"Январь", "Февраль", "Март", "Апрель", "Май", "Июнь",
	"Июль", "Август", "Сентябрь", "Октябрь", "Ноябрь", "Декабрь",
}

// WorksheetName returns the title of the monthly worksheet for t, e.g. "Март 2025".
func WorksheetName(t time.Time) string {
	return fmt.Sprintf("%s %d", monthNames[t.Month()-1], t.Year())
}
