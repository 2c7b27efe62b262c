package matching

import "strings"

// UsernameSimilarity scores two usernames 0-100. Exact match (case
// insensitive) scores 100, one name containing the other scores 85,
// otherwise the score is the normalized Levenshtein similarity
// (1 - distance/maxLen) scaled to 100.
func UsernameSimilarity(a, b string) float64 {
	a = strings.ToLower(strings.TrimSpace(a))
	b = strings.ToLower(strings.TrimSpace(b))
	if a == "" || b == "" {
		return 0
	}
	if a == b {
		return 100
	}
	if strings.Contains(a, b) || strings.Contains(b, a) {
		return 85
	}

	maxLen := len([]rune(a))
	if l := len([]rune(b)); l > maxLen {
		maxLen = l
	}
	dist := levenshtein(a, b)
	score := (1 - float64(dist)/float64(maxLen)) * 100
	if score < 0 {
		return 0
	}
	return score
}

// levenshtein computes the edit distance between two strings, rune-wise,
// with a rolling single-row buffer.
func levenshtein(a, b string) int {
	ra := []rune(a)
	rb := []rune(b)
	if len(ra) == 0 {
		return len(rb)
	}
	if len(rb) == 0 {
		return len(ra)
	}

	row := make([]int, len(rb)+1)
	for j := range row {
		row[j] = j
	}
	for i := 1; i <= len(ra); i++ {
		prev := row[0]
		row[0] = i
		for j := 1; j <= len(rb); j++ {
			cost := 1
			if ra[i-1] == rb[j-1] {
				cost = 0
			}
			current := row[j]
			insert := row[j-1] + 1
			remove := row[j] + 1
			replace := prev + cost
			best := insert
			if remove < best {
				best = remove
			}
			if replace < best {
				best = replace
			}
			row[j] = best
			prev = current
		}
	}
	return row[len(rb)]
}
