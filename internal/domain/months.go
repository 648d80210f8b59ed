package domain

// monthNames is indexed by month number minus one. Kept as a constant table
// so output never depends on the host locale.
var monthNames = [12]string{
	"Janeiro", "Fevereiro", "Março", "Abril",
	"Maio", "Junho", "Julho", "Agosto",
	"Setembro", "Outubro", "Novembro", "Dezembro",
}

// MonthName returns the Portuguese name for month n (1-12), or "" when n is
// out of range.
func MonthName(n int) string {
	if n < 1 || n > 12 {
		return ""
	}
	return monthNames[n-1]
}

// MonthNumber is the inverse of MonthName.
func MonthNumber(name string) (int, bool) {
	for i, n := range monthNames {
		if n == name {
			return i + 1, true
		}
	}
	return 0, false
}
