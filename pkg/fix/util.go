package fix

import "strconv"

func parseInt(s string) (int, error) {
	return strconv.Atoi(s)
}

func formatInt(n int) string {
	return strconv.Itoa(n)
}
