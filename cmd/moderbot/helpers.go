package main

import (
	"fmt"
	"strconv"
	"strings"
)

func parseID(label, raw string) (int64, error) {
	id, err := strconv.ParseInt(strings.TrimSpace(raw), 10, 64)
	if err != nil || id <= 0 {
		return 0, fmt.Errorf("invalid %s %q", label, raw)
	}
	return id, nil
}

func actorLabel(id int64, username string) string {
	if username != "" && username != "operator" {
		return "@" + username
	}
	if id == 0 {
		return "operator"
	}
	return strconv.FormatInt(id, 10)
}

func orDash(value string) string {
	if strings.TrimSpace(value) == "" {
		return "-"
	}
	return value
}
