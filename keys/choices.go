package keys

import "strings"

// ParseChoices splits a newline separated candidate block into labels.
//
// The block as a whole is trimmed, then split on newlines. A trailing
// carriage return is dropped so CRLF input behaves like LF input. Lines that
// are empty or whitespace only are skipped; every other line is kept verbatim
// and its position in the result becomes the candidate's derivation index.
func ParseChoices(choices string) []string {
	trimmed := strings.TrimSpace(choices)
	if trimmed == "" {
		return nil
	}

	var labels []string
	for _, line := range strings.Split(trimmed, "\n") {
		line = strings.TrimSuffix(line, "\r")
		if strings.TrimSpace(line) == "" {
			continue
		}
		labels = append(labels, line)
	}
	return labels
}
