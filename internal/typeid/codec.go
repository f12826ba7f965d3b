package typeid

import (
	"strconv"
	"strings"
)

const base62Digits = "0123456789abcdefghijklmnopqrstuvwxyzABCDEFGHIJKLMNOPQRSTUVWXYZ"

func base62(n uint64) string {
	if n == 0 {
		return "0"
	}
	var buf [11]byte
	i := len(buf)
	for n > 0 {
		i--
		buf[i] = base62Digits[n%62]
		n /= 62
	}
	return string(buf[i:])
}

// toDisambiguator renders a v0 mangling disambiguator: 0 is "s_", n is
// "s" + base62(n-1) + "_".
func toDisambiguator(n uint64) string {
	if n == 0 {
		return "s_"
	}
	return "s" + base62(n-1) + "_"
}

// toSeqID renders an Itanium substitution sequence id: 0 is empty, n is
// base36(n-1) in upper case.
func toSeqID(n int) string {
	if n <= 0 {
		return ""
	}
	return strings.ToUpper(strconv.FormatUint(uint64(n-1), 36))
}
