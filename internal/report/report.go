// Package report renders a torrent listing into the status text pushed to
// the remote store.
package report

import (
	"strconv"
	"strings"

	"torrentstream/bridge/internal/domain"
)

// EmptyReport is sent when the client has no torrents.
const EmptyReport = "Список торрентов пуст."

// NameLimit is how many characters of a torrent name make it into a line.
const NameLimit = 20

const (
	linePrefix = "🎬 "
	nameSuffix = "..: "
)

// Build renders one line per torrent using NameLimit.
func Build(torrents []domain.Torrent) string {
	return BuildWithLimit(torrents, NameLimit)
}

// BuildWithLimit renders one line per torrent:
//
//	🎬 <first limit characters of name>..: <progress×100, one decimal>%
//
// An empty listing renders EmptyReport.
func BuildWithLimit(torrents []domain.Torrent, limit int) string {
	if len(torrents) == 0 {
		return EmptyReport
	}
	var b strings.Builder
	for _, t := range torrents {
		b.WriteString(linePrefix)
		b.WriteString(truncate(t.Name, limit))
		b.WriteString(nameSuffix)
		b.WriteString(Percent(t.Progress))
		b.WriteString("%\n")
	}
	return b.String()
}

// Percent formats a 0..1 fraction as a percentage with one decimal place.
func Percent(progress float64) string {
	return strconv.FormatFloat(progress*100, 'f', 1, 64)
}

// truncate counts characters, not bytes, so multi-byte names are never cut
// mid-rune.
func truncate(name string, limit int) string {
	if limit <= 0 {
		return ""
	}
	n := 0
	for i := range name {
		if n == limit {
			return name[:i]
		}
		n++
	}
	return name
}
