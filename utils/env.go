package utils

import (
	"os"
	"strconv"
)

// GetenvInt returns the integer value of the environment variable v, or def if it is unset or unparseable.
func GetenvInt(v string, def int) int {
	x, err := strconv.ParseInt(os.Getenv(v), 10, 64)
	if err != nil {
		return def
	}
	return int(x)
}
